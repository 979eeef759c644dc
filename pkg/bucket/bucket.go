package bucket

import (
	"fmt"

	"github.com/shouni/go-feed-harvest/pkg/dateparse"
	"github.com/shouni/go-feed-harvest/pkg/types"
)

// Buckets は、年ごとのリンク列を保持します。
// 年のキーは最初に出現した順序で保持され、リンクの重複排除は行いません。
type Buckets struct {
	years []string
	links map[string][]string
}

// New は空の Buckets を生成します。
func New() *Buckets {
	return &Buckets{links: make(map[string][]string)}
}

// Add は year のリンク列の末尾に link を追加します。
func (b *Buckets) Add(year, link string) {
	if _, ok := b.links[year]; !ok {
		b.years = append(b.years, year)
	}
	b.links[year] = append(b.links[year], link)
}

// Years は年のキーを最初に出現した順序で返します。
func (b *Buckets) Years() []string {
	out := make([]string, len(b.years))
	copy(out, b.years)
	return out
}

// Links は指定した年のリンク列を返します。
func (b *Buckets) Links(year string) []string {
	return b.links[year]
}

// Len は年のキーの数を返します。
func (b *Buckets) Len() int {
	return len(b.years)
}

// Total はすべての年のリンク数の合計を返します。
func (b *Buckets) Total() int {
	total := 0
	for _, links := range b.links {
		total += len(links)
	}
	return total
}

// Skip は、バケットに振り分けられなかったアイテムの記録です。
type Skip struct {
	Index int
	Item  types.FeedItem
	Err   error
}

// Result は Bucket の結果です。
type Result struct {
	Buckets *Buckets
	Skipped []Skip
}

// Malformed は日付テキストの形式不正によりスキップされた件数を返します。
func (r *Result) Malformed() int {
	n := 0
	for _, s := range r.Skipped {
		if dateparse.IsMalformed(s.Err) {
			n++
		}
	}
	return n
}

// YearFunc はアイテムから年を解決する関数です。
type YearFunc func(types.FeedItem) (string, error)

// Bucketer は FeedItem の列を年ごとのリンク列に振り分けます。
type Bucketer struct {
	yearOf YearFunc
}

// NewBucketer は dateparse.ExtractYear を使う Bucketer を生成します。
func NewBucketer() *Bucketer {
	return &Bucketer{yearOf: dateparse.ExtractYear}
}

// Bucket はアイテムを順に走査し、年ごとにリンクを追加します。
// 年を解決できないアイテムやリンクを持たないアイテムはスキップされ、Result.Skipped に記録されます。
func (b *Bucketer) Bucket(items []types.FeedItem) *Result {
	res := &Result{Buckets: New()}

	for i, item := range items {
		if item.Link == "" {
			res.Skipped = append(res.Skipped, Skip{
				Index: i,
				Item:  item,
				Err:   fmt.Errorf("アイテム %d にリンクがありません", i),
			})
			continue
		}

		year, err := b.yearOf(item)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Index: i, Item: item, Err: err})
			continue
		}
		res.Buckets.Add(year, item.Link)
	}

	return res
}
