package feed

import (
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-feed-harvest/pkg/types"
)

// ItemSource は、FeedItem の列を提供できる任意の型を表します。
type ItemSource interface {
	Items() []types.FeedItem
}

// FeedAdapter は gofeed.Feed を ItemSource に適合させるためのアダプターです。
// 各エントリの公開日時は、一覧ページのバリアントAと同じ形式の日付テキストに変換されます。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// Items はエントリを出現順に FeedItem に変換します。リンクのないエントリは除外します。
// 公開日時も更新日時もないエントリの日付テキストは空になり、年の解決時にスキップされます。
func (a *FeedAdapter) Items() []types.FeedItem {
	if a == nil || a.Feed == nil || len(a.Feed.Items) == 0 {
		return []types.FeedItem{}
	}

	items := make([]types.FeedItem, 0, len(a.Feed.Items))
	for _, entry := range a.Feed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}
		item := types.FeedItem{Link: entry.Link, Variant: types.VariantCompact}
		switch {
		case entry.PublishedParsed != nil:
			item.RawDateText = FormatDateText(*entry.PublishedParsed)
		case entry.UpdatedParsed != nil:
			item.RawDateText = FormatDateText(*entry.UpdatedParsed)
		}
		items = append(items, item)
	}
	return items
}

// Links はリンクのみを出現順に返します。
func (a *FeedAdapter) Links() []string {
	items := a.Items()
	links := make([]string, 0, len(items))
	for _, item := range items {
		links = append(links, item.Link)
	}
	return links
}

var monthAbbrev = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// FormatDateText は t を "31 dez 2022, 18h04" 形式の日付テキストにします。
func FormatDateText(t time.Time) string {
	return fmt.Sprintf("%d %s %d, %dh%02d", t.Day(), monthAbbrev[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// GetAllItems は ItemSource から FeedItem を取り出す汎用関数です。
func GetAllItems(source ItemSource) []types.FeedItem {
	if source == nil {
		return []types.FeedItem{}
	}
	return source.Items()
}
