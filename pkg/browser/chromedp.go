package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Session は chromedp による Driver の実装です。1つのセッションは1つのブラウザを排他的に所有します。
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options

	closeOnce sync.Once
	closeErr  error
}

// Ensure Session implements the interface.
var _ Driver = (*Session)(nil)

// lookupResult は querySelectorAll を評価するスクリプトの戻り値です。
type lookupResult struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Value   string `json:"value"`
}

// Open は新しいブラウザを起動し、セッションを返します。
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// 最初の Run でブラウザが起動する
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("ブラウザの起動に失敗しました: %w", err)
	}

	return &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
	}, nil
}

// NewOpener は、opts で新しいセッションを開く Opener を返します。
func NewOpener(opts Options) Opener {
	return func(ctx context.Context) (Driver, error) {
		return Open(ctx, opts)
	}
}

// run は呼び出し元のコンテキストとタイムアウトを反映してアクションを実行します。
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate は url へ遷移し、必要であればズームを適用します。
func (s *Session) Navigate(ctx context.Context, url string) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if s.opts.Zoom > 0 && s.opts.Zoom != 1 {
		script := fmt.Sprintf(`document.body.style.zoom = %q;`, strconv.FormatFloat(s.opts.Zoom, 'f', -1, 64))
		actions = append(actions, chromedp.Evaluate(script, nil))
	}
	if err := s.run(ctx, s.opts.NavigateTimeout, actions...); err != nil {
		return fmt.Errorf("ページ遷移に失敗しました (URL: %s): %w", url, err)
	}
	return nil
}

// Count はセレクターに一致する要素数を返します。要素を待機しません。
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := s.run(ctx, s.opts.LookupTimeout, chromedp.Evaluate(script, &n)); err != nil {
		return 0, &LookupError{Op: "count", Selector: selector, Err: err}
	}
	return n, nil
}

// Click はセレクターに一致する最初の要素が表示されていればクリックします。
func (s *Session) Click(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return {found: false, visible: false, value: ""};
	const style = window.getComputedStyle(el);
	if (el.offsetParent === null || style.visibility === "hidden" || el.disabled) {
		return {found: true, visible: false, value: ""};
	}
	el.click();
	return {found: true, visible: true, value: ""};
})()`, jsString(selector))

	res, err := s.lookup(ctx, "click", selector, 0, script)
	if err != nil {
		return err
	}
	if !res.Visible {
		return &LookupError{Op: "click", Selector: selector, Err: ErrNotInteractable}
	}
	return nil
}

// ScrollTo は index 番目の要素の座標までウィンドウをスクロールし、固定ヘッダー分だけ戻します。
func (s *Session) ScrollTo(ctx context.Context, selector string, index int) error {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return {found: false, visible: false, value: ""};
	const r = el.getBoundingClientRect();
	window.scrollTo(r.left + window.scrollX, r.top + window.scrollY);
	window.scrollBy(0, -%d);
	return {found: true, visible: true, value: ""};
})()`, jsString(selector), index, s.opts.ScrollOffset)

	_, err := s.lookup(ctx, "scroll", selector, index, script)
	return err
}

// OuterHTML は index 番目の要素の outerHTML を返します。
func (s *Session) OuterHTML(ctx context.Context, selector string, index int) (string, error) {
	return s.value(ctx, "outerHTML", selector, index, `el.outerHTML`)
}

// Close はブラウザを終了します。複数回呼び出しても安全です。
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

func (s *Session) value(ctx context.Context, op, selector string, index int, expr string) (string, error) {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return {found: false, visible: false, value: ""};
	return {found: true, visible: true, value: String(%s)};
})()`, jsString(selector), index, expr)

	res, err := s.lookup(ctx, op, selector, index, script)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

func (s *Session) lookup(ctx context.Context, op, selector string, index int, script string) (lookupResult, error) {
	var res lookupResult
	if err := s.run(ctx, s.opts.LookupTimeout, chromedp.Evaluate(script, &res)); err != nil {
		return res, &LookupError{Op: op, Selector: selector, Index: index, Err: err}
	}
	if !res.Found {
		return res, &LookupError{Op: op, Selector: selector, Index: index, Err: ErrNotFound}
	}
	return res, nil
}

// jsString は Go の文字列を JavaScript の文字列リテラルに変換します。
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
