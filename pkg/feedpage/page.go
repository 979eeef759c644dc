package feedpage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shouni/go-feed-harvest/pkg/browser"
	"github.com/shouni/go-feed-harvest/pkg/pagination"
	"github.com/shouni/go-feed-harvest/pkg/retry"
	"github.com/shouni/go-feed-harvest/pkg/types"
)

const (
	// DefaultWaitAttempts はページ遷移後に一覧の出現を待つ最大試行回数です。
	DefaultWaitAttempts = 30
	// DefaultWaitInterval は一覧の出現を確認する間隔です。
	DefaultWaitInterval = 1 * time.Second
)

// Page は、ブラウザ上の遅延読み込みフィード1ページを表します。
// pagination.Feed を実装します。
type Page struct {
	driver    browser.Driver
	selectors Selectors
	wait      retry.Config
	base      *url.URL
}

// Ensure Page implements the interface.
var _ pagination.Feed = (*Page)(nil)

// Option は Page の設定を行うための関数型です。
type Option func(*Page)

// WithSelectors はセレクターを差し替えます。
func WithSelectors(sel Selectors) Option {
	return func(p *Page) {
		p.selectors = sel
	}
}

// WithWait は一覧の出現待ちのポーリング設定を差し替えます。
func WithWait(attempts uint64, interval time.Duration) Option {
	return func(p *Page) {
		p.wait = retry.PollingConfig(attempts, interval)
	}
}

// New は driver を操作する Page を生成します。
func New(driver browser.Driver, options ...Option) *Page {
	p := &Page{
		driver:    driver,
		selectors: DefaultSelectors(),
		wait:      retry.PollingConfig(DefaultWaitAttempts, DefaultWaitInterval),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Open は pageURL へ遷移し、記事一覧が現れるまで待機します。
func (p *Page) Open(ctx context.Context, pageURL string) error {
	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("URLのパースエラー: %w", err)
	}
	p.base = base

	if err := p.driver.Navigate(ctx, pageURL); err != nil {
		return err
	}

	return retry.Do(ctx, p.wait, "記事一覧の待機", func() error {
		n, err := p.driver.Count(ctx, p.selectors.List)
		if err != nil {
			return &pagination.LookupError{Op: "list", Err: err}
		}
		if n == 0 {
			return &pagination.LookupError{Op: "list", Err: browser.ErrNotFound}
		}
		return nil
	}, pagination.IsTransient)
}

// Expand は「もっと見る」ボタンのクリックを試みます。
func (p *Page) Expand(ctx context.Context) error {
	if err := p.driver.Click(ctx, p.selectors.Expand); err != nil {
		return transient("expand", err)
	}
	return nil
}

// LastItem は現在読み込まれている最後の記事を指す ItemRef を返します。
func (p *Page) LastItem(ctx context.Context) (pagination.ItemRef, error) {
	n, err := p.driver.Count(ctx, p.selectors.ItemQuery())
	if err != nil {
		return pagination.ItemRef{}, transient("items", err)
	}
	if n == 0 {
		return pagination.ItemRef{}, transient("items", browser.ErrNotFound)
	}
	return pagination.NewItemRef(n - 1), nil
}

// ScrollTo は ref が指す記事までスクロールします。
func (p *Page) ScrollTo(ctx context.Context, ref pagination.ItemRef) error {
	if !ref.Valid() {
		return transient("scroll", browser.ErrNotFound)
	}
	if err := p.driver.ScrollTo(ctx, p.selectors.ItemQuery(), ref.Index); err != nil {
		return transient("scroll", err)
	}
	return nil
}

// Item は ref が指す記事を読み取ります。
func (p *Page) Item(ctx context.Context, ref pagination.ItemRef) (types.FeedItem, error) {
	if !ref.Valid() {
		return types.FeedItem{}, transient("item", browser.ErrNotFound)
	}
	html, err := p.driver.OuterHTML(ctx, p.selectors.ItemQuery(), ref.Index)
	if err != nil {
		return types.FeedItem{}, transient("item", err)
	}
	return ParseItem(html, p.selectors, p.base)
}

// Items は一覧に読み込まれているすべての記事を出現順に読み取ります。
func (p *Page) Items(ctx context.Context) ([]types.FeedItem, error) {
	html, err := p.driver.OuterHTML(ctx, p.selectors.List, 0)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return ParseItems(html, p.selectors, p.base)
}

// transient は Driver のエラーを pagination.LookupError に変換します。
// キャンセルの判定は呼び出し元がコンテキストで行います。
func transient(op string, err error) error {
	return &pagination.LookupError{Op: op, Err: err}
}
