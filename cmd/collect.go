package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-feed-harvest/internal/pipeline"
	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/browser"
	"github.com/shouni/go-feed-harvest/pkg/config"
	"github.com/shouni/go-feed-harvest/pkg/store"
)

// CollectFlags は collect サブコマンドのフラグを保持
type CollectFlags struct {
	Headless  bool
	Sector    string
	TimeRange []int
	DataPath  string
}

var collectFlags CollectFlags

// buildPlan はフラグを検証して収集の対象を作ります。ブラウザを開く前に呼ばれます。
func buildPlan(f CollectFlags) (pipeline.Plan, error) {
	tr, err := config.ParseTimeRange(f.TimeRange)
	if err != nil {
		return pipeline.Plan{}, err
	}
	if f.Sector == "" {
		return pipeline.Plan{}, &config.ConfigurationError{Field: "sector", Reason: "空です"}
	}
	if f.DataPath == "" {
		return pipeline.Plan{}, &config.ConfigurationError{Field: "data-path", Reason: "空です"}
	}
	return pipeline.Plan{Sector: f.Sector, TimeRange: tr}, nil
}

// mergeTimeRangeArgs は "--time-range 2008 2012" のように空白区切りで渡された年を
// --time-range の値に連結します。--time-range が指定されていない場合、位置引数は受け付けません。
func mergeTimeRangeArgs(values []int, changed bool, args []string) ([]int, error) {
	if len(args) == 0 {
		return values, nil
	}
	if !changed {
		return nil, &config.ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("予期しない引数です: %v", args)}
	}

	merged := append([]int(nil), values...)
	for _, arg := range args {
		year, err := strconv.Atoi(arg)
		if err != nil {
			return nil, &config.ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("年として解釈できません: %q", arg)}
		}
		merged = append(merged, year)
	}
	return merged, nil
}

// browserOptions は設定とフラグからブラウザセッションの設定を作ります。
func browserOptions(s config.Settings, headless bool) browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = headless
	opts.LookupTimeout = s.LookupTimeout
	opts.NavigateTimeout = s.NavigateTimeout
	opts.Zoom = s.Zoom
	opts.UserAgent = s.UserAgent
	return opts
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "一覧ページをブラウザで読み込み切り、記事リンクを年ごとに保存します",
	Long: `veja.abril.com.br のセクター、または --sector all の場合は --time-range の各年のアーカイブを
ブラウザで開き、「もっと見る」とスクロールを繰り返して記事を読み込ませた後、
リンクを <data-path>/<sector>/links/<年>.txt に保存します。`,
	Args: cobra.ArbitraryArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		flags := collectFlags
		years, err := mergeTimeRangeArgs(flags.TimeRange, cmd.Flags().Changed("time-range"), args)
		if err != nil {
			return err
		}
		flags.TimeRange = years

		plan, err := buildPlan(flags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		reporter := progress.New(os.Stderr, clibase.Flags.Verbose)
		reporter.Infof("収集を開始します (sector: %s, time-range: %s, data-path: %s)", plan.Scope(), plan.TimeRange, collectFlags.DataPath)

		harvester := pipeline.New(
			browser.NewOpener(browserOptions(settings, collectFlags.Headless)),
			store.New(collectFlags.DataPath, nil),
			settings,
			reporter,
		)

		report, err := harvester.Run(ctx, plan)
		if err != nil {
			return fmt.Errorf("収集を中断しました: %w", err)
		}
		if len(report.Elements) > 0 && report.Failed() == len(report.Elements) {
			return fmt.Errorf("すべてのフィードの収集に失敗しました (%d件)", report.Failed())
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectFlags.Headless, "headless", false, "ブラウザをヘッドレスモードで起動します")
	collectCmd.Flags().StringVar(&collectFlags.Sector, "sector", config.DefaultSector, `収集するセクター名。"all" の場合は年ごとのアーカイブを収集します`)
	collectCmd.Flags().IntSliceVar(&collectFlags.TimeRange, "time-range",
		[]int{config.DefaultStartYear, config.DefaultEndYear},
		"収集する年 (例: 2010) または範囲 (例: 2008,2012 または 2008 2012)。--sector all の場合のみ使用されます")
	collectCmd.Flags().StringVar(&collectFlags.DataPath, "data-path", defaultDataPath(), "リンクを保存するディレクトリ")
}
