package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/bucket"
	"github.com/shouni/go-feed-harvest/pkg/config"
	"github.com/shouni/go-feed-harvest/pkg/feed"
	"github.com/shouni/go-feed-harvest/pkg/store"
)

// FeedParser は RSS フィードの取得とパースを行う機能のインターフェースです。
type FeedParser interface {
	FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// Ensure feed.Parser implements the interface.
var _ FeedParser = (*feed.Parser)(nil)

// FeedHarvester は、ブラウザを使わずにセクターの RSS フィードから記事を収集します。
// 振り分けと保存は Harvester と同じ形式で行われます。
type FeedHarvester struct {
	parser   FeedParser
	store    *store.Store
	settings config.Settings
	reporter *progress.Reporter
	bucketer *bucket.Bucketer
}

// NewFeedHarvester は FeedHarvester を生成します。
func NewFeedHarvester(parser FeedParser, st *store.Store, settings config.Settings, reporter *progress.Reporter) *FeedHarvester {
	if reporter == nil {
		reporter = progress.New(nil, false)
	}
	return &FeedHarvester{
		parser:   parser,
		store:    st,
		settings: settings,
		reporter: reporter,
		bucketer: bucket.NewBucketer(),
	}
}

// Run は sectors の各フィードを順に処理します。1つのセクターの失敗は記録され、処理を続けます。
func (h *FeedHarvester) Run(ctx context.Context, sectors []string) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Scope: "rss"}
	h.reporter.Debugf("実行ID: %s", report.RunID)

	for _, sector := range sectors {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		er := h.harvestSector(ctx, sector)
		report.Elements = append(report.Elements, er)
		if er.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			if store.IsPersistenceError(er.Err) {
				h.reporter.Failf("[%s] %v", sector, er.Err)
			} else {
				h.reporter.Warnf("[%s] %v", sector, er.Err)
			}
		}
	}

	h.reporter.Infof("完了: %d 件のフィード, 保存したリンク %d 件, 失敗 %d 件", len(report.Elements), report.Links(), report.Failed())
	return report, nil
}

func (h *FeedHarvester) harvestSector(ctx context.Context, sector string) (er ElementReport) {
	start := time.Now()
	er = ElementReport{Element: sector, URL: h.settings.FeedURL(sector)}
	defer func() { er.Elapsed = time.Since(start) }()

	h.reporter.Infof("[%s] フィードを取得します: %s", sector, er.URL)
	parsed, err := h.parser.FetchAndParse(ctx, er.URL)
	if err != nil {
		er.Err = err
		return er
	}

	items := feed.GetAllItems(feed.NewFeedAdapter(parsed))
	er.Items = len(items)

	res := h.bucketer.Bucket(items)
	er.Malformed = res.Malformed()
	er.Skipped = len(res.Skipped)
	if er.Skipped > 0 {
		h.reporter.Warnf("[%s] 公開日時のない記事を %d 件スキップしました", sector, er.Skipped)
	}
	if res.Buckets.Total() == 0 {
		er.Err = fmt.Errorf("%s: %w", sector, ErrNoLinks)
		return er
	}

	paths, err := h.store.Save(sector, res.Buckets)
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
