package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-feed-harvest/pkg/types"
)

const (
	// DefaultMaxRounds はラウンド数の上限です。フィードの終端を示すシグナルが存在しないため、
	// この上限が実質的な終了条件になります。
	DefaultMaxRounds = 100
	// DefaultMaxScrollAttempts は1ラウンド内のスクロール試行回数の上限です。
	DefaultMaxScrollAttempts = 100
	// DefaultScrollDelay は各スクロール後に遅延読み込みを待つ時間です。
	DefaultScrollDelay = 1 * time.Second
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Feed は、遅延読み込みされるフィードを操作する機能のインターフェースです。
// 要素が見つからない・操作できない場合は LookupError を返すことが期待されます。
type Feed interface {
	// Expand は「もっと見る」ボタンのクリックを試みます。クリックできた場合に nil を返します。
	Expand(ctx context.Context) error
	// LastItem は現在読み込まれている最後のアイテムを指す ItemRef を返します。
	LastItem(ctx context.Context) (ItemRef, error)
	// ScrollTo は ref が指すアイテムを画面内にスクロールします。
	ScrollTo(ctx context.Context, ref ItemRef) error
	// Item は ref が指すアイテムを読み取ります。
	Item(ctx context.Context, ref ItemRef) (types.FeedItem, error)
}

// LookupError は、要素がまだ存在しない・操作できないことを示す一時的なエラーです。
// コントローラはこのエラーを上限付きループ内で黙ってリトライします。
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("要素の取得に失敗しました (%s)", e.Op)
	}
	return fmt.Sprintf("要素の取得に失敗しました (%s): %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsTransient は与えられたエラーが LookupError であるかを判断します。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var lookup *LookupError
	return errors.As(err, &lookup)
}

// ----------------------------------------------------------------------
// 設定とコンストラクタ
// ----------------------------------------------------------------------

// Config はコントローラの設定です。
type Config struct {
	Limits
	ScrollDelay time.Duration
	// StopOnExhausted が true の場合、スクロール上限に達したラウンドで実行を終了します。
	StopOnExhausted bool
}

// DefaultConfig は既定の設定を返します。
func DefaultConfig() Config {
	return Config{
		Limits: Limits{
			MaxRounds:         DefaultMaxRounds,
			MaxScrollAttempts: DefaultMaxScrollAttempts,
		},
		ScrollDelay:     DefaultScrollDelay,
		StopOnExhausted: true,
	}
}

// RoundReport は1ラウンドの終了時に観測された進捗です。制御フローには影響しません。
type RoundReport struct {
	Round          int
	Phase          Phase
	ScrollAttempts int
	Elapsed        time.Duration
	DateText       string
	Year           string
	Err            error
}

// ObserverFunc はラウンドごとの進捗を受け取る関数です。
type ObserverFunc func(RoundReport)

// Result はページネーション全体の結果です。
type Result struct {
	Rounds            int
	Expansions        int
	ExhaustedRounds   int
	Exhausted         bool // StopOnExhausted により早期終了した場合 true
	TransientFailures int
	LastYear          string
}

// Controller は、フィードを上限付きの試行で最大限まで読み込ませます。
type Controller struct {
	cfg      Config
	observer ObserverFunc
	yearOf   func(types.FeedItem) (string, error)
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Option は Controller の設定を行うための関数型です。
type Option func(*Controller)

// WithObserver はラウンドごとの進捗通知先を設定します。
func WithObserver(fn ObserverFunc) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithYearFunc は進捗表示用に日付テキストから年を推定する関数を設定します。
func WithYearFunc(fn func(types.FeedItem) (string, error)) Option {
	return func(c *Controller) {
		c.yearOf = fn
	}
}

// WithSleep はスクロール後の待機処理を差し替えます (主にテスト用)。
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithClock は経過時間の計測に使う時刻関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New は Controller を生成します。0 以下の上限は既定値に置き換えられます。
func New(cfg Config, options ...Option) *Controller {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxScrollAttempts <= 0 {
		cfg.MaxScrollAttempts = DefaultMaxScrollAttempts
	}
	if cfg.ScrollDelay < 0 {
		cfg.ScrollDelay = 0
	}

	c := &Controller{
		cfg:      cfg,
		observer: func(RoundReport) {},
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ----------------------------------------------------------------------
// メインロジック
// ----------------------------------------------------------------------

// Run はラウンド数の上限に達するまでフィードの展開を繰り返します。
// 返却時、フィードには到達可能な限りのアイテムが読み込まれています。
// エラーを返すのはコンテキストがキャンセルされた場合のみです。
func (c *Controller) Run(ctx context.Context, feed Feed) (Result, error) {
	var (
		state State
		res   Result
		err   error
	)

	for !state.Done(c.cfg.Limits) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := c.now()
		state = state.Begin()

		state, err = c.runRound(ctx, feed, state, &res)
		if err != nil {
			return res, err
		}

		var last ItemRef
		state, last = state.Finish()
		res.Rounds = state.Round

		report := c.observe(ctx, feed, state, last, start)
		if report.Year != "" {
			res.LastYear = report.Year
		}

		if state.Phase == PhaseRoundComplete {
			res.Expansions++
			continue
		}

		res.ExhaustedRounds++
		if c.cfg.StopOnExhausted {
			res.Exhausted = true
			break
		}
	}

	return res, nil
}

// runRound は Expanding / ScrollingToBottom を終了状態になるまで繰り返します。
func (c *Controller) runRound(ctx context.Context, feed Feed, state State, res *Result) (State, error) {
	for {
		expandErr := feed.Expand(ctx)
		if expandErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return state, ctxErr
			}
			res.TransientFailures++
		}

		state = state.Expanded(expandErr == nil, c.cfg.Limits)
		if state.Phase.Terminal() {
			return state, nil
		}

		// 展開できなかったので最後のアイテムまでスクロールして遅延読み込みを促す
		ref, err := feed.LastItem(ctx)
		if err == nil {
			err = feed.ScrollTo(ctx, ref)
		} else {
			ref = ItemRef{}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return state, ctxErr
			}
			res.TransientFailures++
		}
		state = state.Scrolled(ref)

		if err := c.sleep(ctx, c.cfg.ScrollDelay); err != nil {
			return state, err
		}
	}
}

// observe は最後に見たアイテムの日付を読み取り、進捗として通知します。
func (c *Controller) observe(ctx context.Context, feed Feed, state State, last ItemRef, start time.Time) RoundReport {
	report := RoundReport{
		Round:          state.Round,
		Phase:          state.Phase,
		ScrollAttempts: state.ScrollAttempts,
	}

	if !last.Valid() {
		if ref, err := feed.LastItem(ctx); err == nil {
			last = ref
		}
	}

	if last.Valid() {
		item, err := feed.Item(ctx, last)
		if err != nil {
			report.Err = err
		} else {
			report.DateText = item.RawDateText
			if c.yearOf != nil {
				report.Year, report.Err = c.yearOf(item)
			}
		}
	}

	report.Elapsed = c.now().Sub(start)
	c.observer(report)
	return report
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
