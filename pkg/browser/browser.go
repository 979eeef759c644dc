package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound は、セレクターに一致する要素が存在しないことを示します。
var ErrNotFound = errors.New("要素が見つかりません")

// ErrNotInteractable は、要素は存在するが表示されておらず操作できないことを示します。
var ErrNotInteractable = errors.New("要素を操作できません")

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Driver は、ブラウザ自動操作の機能のインターフェースを定義します。
// 要素の指定はすべて CSS セレクターで行い、index は querySelectorAll の結果の位置です。
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	ScrollTo(ctx context.Context, selector string, index int) error
	OuterHTML(ctx context.Context, selector string, index int) (string, error)
	Close() error
}

// Opener は新しいブラウザセッションを開く関数です。
type Opener func(ctx context.Context) (Driver, error)

const (
	// DefaultLookupTimeout は要素の検索・操作1回あたりのタイムアウトです。
	DefaultLookupTimeout = 10 * time.Second
	// DefaultNavigateTimeout はページ遷移のタイムアウトです。
	DefaultNavigateTimeout = 60 * time.Second
	// DefaultScrollOffset は固定ヘッダーを避けるためにスクロール後に戻す量 (px) です。
	DefaultScrollOffset = 120
)

// Options はブラウザセッションの設定です。
type Options struct {
	Headless        bool
	LookupTimeout   time.Duration
	NavigateTimeout time.Duration
	// Zoom が 0 より大きく 1 でない場合、ページ遷移後に document.body へ適用されます。
	// 画面内に多くの記事を収めることで遅延読み込みが早く発火します。
	Zoom         float64
	ScrollOffset int
	UserAgent    string
}

// DefaultOptions は既定の設定を返します。
func DefaultOptions() Options {
	return Options{
		LookupTimeout:   DefaultLookupTimeout,
		NavigateTimeout: DefaultNavigateTimeout,
		Zoom:            0.3,
		ScrollOffset:    DefaultScrollOffset,
	}
}

func (o Options) withDefaults() Options {
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.NavigateTimeout <= 0 {
		o.NavigateTimeout = DefaultNavigateTimeout
	}
	return o
}

// LookupError は Driver 操作の失敗にセレクターの情報を付加します。
type LookupError struct {
	Op       string
	Selector string
	Index    int
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s に失敗しました (selector: %s, index: %d): %v", e.Op, e.Selector, e.Index, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
