package feedpage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-feed-harvest/pkg/types"
)

// Selectors は、フィードの DOM 構造を表す CSS セレクターです。
type Selectors struct {
	List         string // 記事一覧のコンテナ
	Item         string // 一覧内の1件の記事 (List からの相対)
	Expand       string // 「もっと見る」ボタン
	Author       string // 日付・著者を含む要素 (Item からの相対)
	CompactClass string // Author がこのクラスを持つ場合バリアントA
	DateSpan     string // バリアントBで日付を含む子要素 (最後の要素が使われる)
	Anchor       string // 記事リンク
}

// DefaultSelectors は veja.abril.com.br の一覧ページ用のセレクターです。
func DefaultSelectors() Selectors {
	return Selectors{
		List:         "#infinite-list",
		Item:         "[id^='post']",
		Expand:       "#infinite-handle button",
		Author:       ".author",
		CompactClass: "blog-image",
		DateSpan:     "span",
		Anchor:       "a",
	}
}

// ItemQuery はドキュメント全体から記事を指すセレクターを返します。
func (s Selectors) ItemQuery() string {
	return s.List + " " + s.Item
}

// ParseItems は一覧コンテナの HTML から記事を出現順に読み取ります。
func ParseItems(html string, sel Selectors, base *url.URL) ([]types.FeedItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	var items []types.FeedItem
	doc.Find(sel.Item).Each(func(i int, s *goquery.Selection) {
		items = append(items, itemFromSelection(s, sel, base))
	})
	return items, nil
}

// ParseItem は1件の記事要素の HTML を読み取ります。
func ParseItem(html string, sel Selectors, base *url.URL) (types.FeedItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.FeedItem{}, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	s := doc.Find(sel.Item).First()
	if s.Length() == 0 {
		return types.FeedItem{}, fmt.Errorf("記事要素が見つかりません (selector: %s)", sel.Item)
	}
	return itemFromSelection(s, sel, base), nil
}

// itemFromSelection は記事要素からリンクと日付テキストを取り出します。
// 日付テキストは HTML のインデントや改行を除いて1行に正規化されます。
func itemFromSelection(s *goquery.Selection, sel Selectors, base *url.URL) types.FeedItem {
	href, _ := s.Find(sel.Anchor).First().Attr("href")

	item := types.FeedItem{Link: resolveLink(strings.TrimSpace(href), base)}

	author := s.Find(sel.Author).First()
	if author.HasClass(sel.CompactClass) {
		item.Variant = types.VariantCompact
		item.RawDateText = textUtils.NormalizeText(author.Text())
	} else {
		item.Variant = types.VariantExpanded
		item.RawDateText = textUtils.NormalizeText(author.Find(sel.DateSpan).Last().Text())
	}
	return item
}

// resolveLink は相対リンクを base を基準に絶対 URL にします。解決できない場合はそのまま返します。
func resolveLink(href string, base *url.URL) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
