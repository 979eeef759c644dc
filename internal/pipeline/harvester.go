package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/browser"
	"github.com/shouni/go-feed-harvest/pkg/bucket"
	"github.com/shouni/go-feed-harvest/pkg/config"
	"github.com/shouni/go-feed-harvest/pkg/dateparse"
	"github.com/shouni/go-feed-harvest/pkg/feedpage"
	"github.com/shouni/go-feed-harvest/pkg/pagination"
	"github.com/shouni/go-feed-harvest/pkg/store"
	"github.com/shouni/go-feed-harvest/pkg/types"
)

// ErrNoLinks は、要素からリンクが1件も得られなかったことを示します。
var ErrNoLinks = errors.New("リンクが見つかりませんでした")

// Plan は1回の収集の対象です。
type Plan struct {
	Sector    string
	TimeRange config.TimeRange
}

// Scope はファイルの保存先ディレクトリ名を返します。
func (p Plan) Scope() string {
	if p.Sector == "" {
		return config.DefaultSector
	}
	return p.Sector
}

// Elements は順に処理するフィードの一覧を返します。
// セクターが "all" の場合は範囲内の各年のアーカイブ、それ以外はセクター自身です。
func (p Plan) Elements() []string {
	if p.Scope() == config.DefaultSector {
		return p.TimeRange.Years()
	}
	return []string{p.Sector}
}

// ElementReport は1つのフィードの処理結果です。
type ElementReport struct {
	Element    string
	URL        string
	Pagination pagination.Result
	Items      int
	Links      int
	Malformed  int
	Skipped    int
	Paths      []string
	Elapsed    time.Duration
	Err        error
}

// Report は収集全体の結果です。
type Report struct {
	RunID    string
	Scope    string
	Elements []ElementReport
}

// Failed は失敗した要素の数を返します。
func (r *Report) Failed() int {
	n := 0
	for _, e := range r.Elements {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// Malformed は形式不正によりスキップされた記事の合計を返します。
func (r *Report) Malformed() int {
	n := 0
	for _, e := range r.Elements {
		n += e.Malformed
	}
	return n
}

// PersistenceFailures は保存に失敗した要素を返します。
func (r *Report) PersistenceFailures() []ElementReport {
	var failed []ElementReport
	for _, e := range r.Elements {
		if store.IsPersistenceError(e.Err) {
			failed = append(failed, e)
		}
	}
	return failed
}

// Links は保存したリンクの合計を返します。
func (r *Report) Links() int {
	n := 0
	for _, e := range r.Elements {
		n += e.Links
	}
	return n
}

// Harvester は、フィードごとにブラウザセッションを開き、
// ページネーション・年ごとの振り分け・保存を順に行います。
type Harvester struct {
	open     browser.Opener
	store    *store.Store
	settings config.Settings
	reporter *progress.Reporter
	bucketer *bucket.Bucketer
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option は Harvester の設定を行うための関数型です。
type Option func(*Harvester)

// WithSleep はスクロール後の待機処理を差し替えます (主にテスト用)。
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harvester) {
		h.sleep = fn
	}
}

// New は Harvester を生成します。
func New(open browser.Opener, st *store.Store, settings config.Settings, reporter *progress.Reporter, options ...Option) *Harvester {
	if reporter == nil {
		reporter = progress.New(nil, false)
	}
	h := &Harvester{
		open:     open,
		store:    st,
		settings: settings,
		reporter: reporter,
		bucketer: bucket.NewBucketer(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Run は plan の各要素を順に処理します。1つの要素の失敗は記録され、次の要素の処理を続けます。
// エラーを返すのはコンテキストがキャンセルされた場合のみです。
func (h *Harvester) Run(ctx context.Context, plan Plan) (*Report, error) {
	report := &Report{
		RunID: uuid.NewString(),
		Scope: plan.Scope(),
	}
	h.reporter.Debugf("実行ID: %s", report.RunID)

	for _, element := range plan.Elements() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		er := h.harvestElement(ctx, report.Scope, element)
		report.Elements = append(report.Elements, er)

		if er.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			if store.IsPersistenceError(er.Err) {
				h.reporter.Failf("[%s] %v", element, er.Err)
			} else {
				h.reporter.Warnf("[%s] %v", element, er.Err)
			}
		}
	}

	h.summarize(report)
	return report, nil
}

// harvestElement は1つのフィードを処理します。
func (h *Harvester) harvestElement(ctx context.Context, scope, element string) (er ElementReport) {
	start := time.Now()
	er = ElementReport{Element: element, URL: h.settings.ElementURL(element)}
	defer func() { er.Elapsed = time.Since(start) }()

	h.reporter.Infof("[%s] 収集を開始します: %s", element, er.URL)

	items, pres, err := h.collectItems(ctx, element, er.URL)
	er.Pagination = pres
	er.Items = len(items)
	if err != nil {
		er.Err = err
		return er
	}

	res := h.bucketer.Bucket(items)
	er.Malformed = res.Malformed()
	er.Skipped = len(res.Skipped)
	for _, s := range res.Skipped {
		h.reporter.Debugf("[%s] 記事 %d をスキップしました: %v", element, s.Index, s.Err)
	}
	if er.Malformed > 0 {
		h.reporter.Warnf("[%s] 日付の形式が不正な記事を %d 件スキップしました", element, er.Malformed)
	}

	if res.Buckets.Total() == 0 {
		er.Err = fmt.Errorf("%s: %w", element, ErrNoLinks)
		return er
	}

	paths, err := h.store.Save(scope, res.Buckets)
	er.Paths = paths
	for i, path := range paths {
		h.reporter.Saved(path, len(res.Buckets.Links(res.Buckets.Years()[i])))
	}
	if err != nil {
		er.Err = err
		return er
	}
	er.Links = res.Buckets.Total()
	return er
}

// collectItems はセッションを開いてフィードを読み込み切り、全記事を読み取ってからセッションを閉じます。
func (h *Harvester) collectItems(ctx context.Context, element, pageURL string) (items []types.FeedItem, pres pagination.Result, err error) {
	driver, err := h.open(ctx)
	if err != nil {
		return nil, pres, fmt.Errorf("ブラウザセッションを開けませんでした: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); closeErr != nil {
			h.reporter.Debugf("[%s] セッションの終了に失敗しました: %v", element, closeErr)
		}
	}()

	page := feedpage.New(driver, feedpage.WithWait(h.settings.WaitAttempts, h.settings.WaitInterval))
	if err := page.Open(ctx, pageURL); err != nil {
		return nil, pres, fmt.Errorf("ページを開けませんでした: %w", err)
	}

	opts := []pagination.Option{
		pagination.WithObserver(h.reporter.Round(element)),
		pagination.WithYearFunc(dateparse.ExtractYear),
	}
	if h.sleep != nil {
		opts = append(opts, pagination.WithSleep(h.sleep))
	}
	controller := pagination.New(pagination.Config{
		Limits: pagination.Limits{
			MaxRounds:         h.settings.MaxRounds,
			MaxScrollAttempts: h.settings.MaxScrollAttempts,
		},
		ScrollDelay:     h.settings.ScrollDelay,
		StopOnExhausted: h.settings.StopOnExhausted,
	}, opts...)

	pres, err = controller.Run(ctx, page)
	if err != nil {
		return nil, pres, err
	}
	h.reporter.Debugf("[%s] ラウンド %d 回 (展開 %d 回, 一時的な失敗 %d 回)", element, pres.Rounds, pres.Expansions, pres.TransientFailures)

	items, err = page.Items(ctx)
	if err != nil {
		return nil, pres, err
	}
	return items, pres, nil
}

// summarize は実行全体の結果を出力します。
func (h *Harvester) summarize(r *Report) {
	h.reporter.Infof("完了: %d 件のフィード, 保存したリンク %d 件, 失敗 %d 件", len(r.Elements), r.Links(), r.Failed())
	if n := r.Malformed(); n > 0 {
		h.reporter.Warnf("日付の形式が不正な記事: %d 件", n)
	}
	for _, e := range r.PersistenceFailures() {
		h.reporter.Failf("保存に失敗しました [%s]: %v", e.Element, e.Err)
	}
}
