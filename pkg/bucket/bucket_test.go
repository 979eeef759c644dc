package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-feed-harvest/pkg/dateparse"
	"github.com/shouni/go-feed-harvest/pkg/types"
)

func compact(link, date string) types.FeedItem {
	return types.FeedItem{Link: link, RawDateText: date, Variant: types.VariantCompact}
}

func expanded(link, date string) types.FeedItem {
	return types.FeedItem{Link: link, RawDateText: date, Variant: types.VariantExpanded}
}

func TestBucketer_Bucket(t *testing.T) {
	items := []types.FeedItem{
		compact("a", "31 dez 2022, 18h04"),
		expanded("b", "30 dez 2022, 16h52"),
		expanded("c", "Atualizado em 2 jan 2022, 10h00 - Publicado em 31 dez 2021, 18h00"),
		compact("d", "sem data"),
		expanded("e", "1 jan 2022, 0h01"),
		compact("", "1 jan 2022, 0h01"),
		compact("f", "10 mai 2021, 9h00"),
	}

	res := NewBucketer().Bucket(items)

	assert.Equal(t, []string{"2022", "2021"}, res.Buckets.Years())
	assert.Equal(t, []string{"a", "b", "e"}, res.Buckets.Links("2022"))
	assert.Equal(t, []string{"c", "f"}, res.Buckets.Links("2021"))
	assert.Equal(t, 5, res.Buckets.Total())

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Skipped[0].Index)
	assert.True(t, dateparse.IsMalformed(res.Skipped[0].Err))
	assert.Equal(t, 5, res.Skipped[1].Index)
	assert.False(t, dateparse.IsMalformed(res.Skipped[1].Err))
	assert.Equal(t, 1, res.Malformed())
}

func TestBucketer_NoDeduplication(t *testing.T) {
	items := []types.FeedItem{
		compact("a", "1 jan 2020, 1h00"),
		compact("a", "1 jan 2020, 1h00"),
	}

	res := NewBucketer().Bucket(items)

	assert.Equal(t, []string{"a", "a"}, res.Buckets.Links("2020"))
	assert.Equal(t, 1, res.Buckets.Len())
}

func TestBucketer_Empty(t *testing.T) {
	res := NewBucketer().Bucket(nil)
	assert.Equal(t, 0, res.Buckets.Len())
	assert.Empty(t, res.Skipped)
}

func TestBuckets_YearsIsCopy(t *testing.T) {
	b := New()
	b.Add("2019", "x")
	years := b.Years()
	years[0] = "changed"
	assert.Equal(t, []string{"2019"}, b.Years())
}
