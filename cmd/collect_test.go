package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-feed-harvest/pkg/config"
)

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name      string
		flags     CollectFlags
		wantYears []string
		wantErr   bool
	}{
		{
			name:      "既定値",
			flags:     CollectFlags{Sector: "all", TimeRange: []int{2008, 2023}, DataPath: "data"},
			wantYears: config.DefaultTimeRange().Years(),
		},
		{
			name:      "単一の年",
			flags:     CollectFlags{Sector: "all", TimeRange: []int{2010}, DataPath: "data"},
			wantYears: []string{"2010"},
		},
		{
			name:      "セクター指定",
			flags:     CollectFlags{Sector: "politica", TimeRange: []int{2008, 2023}, DataPath: "data"},
			wantYears: []string{"politica"},
		},
		{
			name:    "開始年が終了年より後",
			flags:   CollectFlags{Sector: "all", TimeRange: []int{2010, 2008}, DataPath: "data"},
			wantErr: true,
		},
		{
			name:    "3つ以上の年",
			flags:   CollectFlags{Sector: "all", TimeRange: []int{2008, 2009, 2010}, DataPath: "data"},
			wantErr: true,
		},
		{
			name:    "保存先が空",
			flags:   CollectFlags{Sector: "all", TimeRange: []int{2010}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := buildPlan(tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, config.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYears, plan.Elements())
		})
	}
}

func TestMergeTimeRangeArgs(t *testing.T) {
	tests := []struct {
		name    string
		values  []int
		changed bool
		args    []string
		want    []int
		wantErr bool
	}{
		{name: "引数なし", values: []int{2008, 2023}, want: []int{2008, 2023}},
		{name: "空白区切りの終了年", values: []int{2008}, changed: true, args: []string{"2012"}, want: []int{2008, 2012}},
		{name: "3つ以上は後段で拒否される", values: []int{2008}, changed: true, args: []string{"2009", "2010"}, want: []int{2008, 2009, 2010}},
		{name: "数値でない引数", values: []int{2008}, changed: true, args: []string{"politica"}, wantErr: true},
		{name: "--time-range なしの位置引数", values: []int{2008, 2023}, args: []string{"2012"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeTimeRangeArgs(tt.values, tt.changed, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, config.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeRangeFlag_SpaceSeparated(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr bool
		want    []string
	}{
		{name: "空白区切り", argv: []string{"--time-range", "2008", "2010"}, want: []string{"2008", "2009", "2010"}},
		{name: "カンマ区切り", argv: []string{"--time-range", "2008,2010"}, want: []string{"2008", "2009", "2010"}},
		{name: "逆順は拒否", argv: []string{"--time-range", "2010", "2008"}, wantErr: true},
		{name: "3つ以上は拒否", argv: []string{"--time-range", "2008", "2009", "2010"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var values []int
			c := &cobra.Command{}
			c.Flags().IntSliceVar(&values, "time-range", []int{config.DefaultStartYear, config.DefaultEndYear}, "")
			require.NoError(t, c.ParseFlags(tt.argv))

			merged, err := mergeTimeRangeArgs(values, c.Flags().Changed("time-range"), c.Flags().Args())
			require.NoError(t, err)

			plan, err := buildPlan(CollectFlags{Sector: "all", TimeRange: merged, DataPath: "data"})
			if tt.wantErr {
				assert.True(t, config.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Elements())
		})
	}
}

func TestEnsureScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://veja.abril.com.br", want: "https://veja.abril.com.br"},
		{in: "http://localhost:8080", want: "http://localhost:8080"},
		{in: "veja.abril.com.br", want: "https://veja.abril.com.br"},
		{in: "ftp://veja.abril.com.br", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ensureScheme(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestBrowserOptions(t *testing.T) {
	s := config.DefaultSettings()
	s.Zoom = 0.5
	s.UserAgent = "feed-harvest-test"

	opts := browserOptions(s, true)
	assert.True(t, opts.Headless)
	assert.Equal(t, 0.5, opts.Zoom)
	assert.Equal(t, s.LookupTimeout, opts.LookupTimeout)
	assert.Equal(t, "feed-harvest-test", opts.UserAgent)
}
