package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/browser"
	"github.com/shouni/go-feed-harvest/pkg/config"
	"github.com/shouni/go-feed-harvest/pkg/store"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// pageDriver は URL ごとに固定の記事一覧を返す browser.Driver の実装です。
// 「もっと見る」ボタンは存在しないため、各ラウンドはスクロール上限で終了します。
type pageDriver struct {
	pages  map[string][]string
	doc    *goquery.Document
	closed *int
}

func (d *pageDriver) Navigate(ctx context.Context, url string) error {
	posts, ok := d.pages[url]
	if !ok {
		return fmt.Errorf("unexpected url: %s", url)
	}
	html := `<html><body><div id="infinite-list">` + strings.Join(posts, "") + `</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	d.doc = doc
	return err
}

func (d *pageDriver) find(selector string, index int) (*goquery.Selection, error) {
	s := d.doc.Find(selector).Eq(index)
	if s.Length() == 0 {
		return nil, &browser.LookupError{Op: "find", Selector: selector, Index: index, Err: browser.ErrNotFound}
	}
	return s, nil
}

func (d *pageDriver) Count(ctx context.Context, selector string) (int, error) {
	return d.doc.Find(selector).Length(), nil
}

func (d *pageDriver) Click(ctx context.Context, selector string) error {
	_, err := d.find(selector, 0)
	return err
}

func (d *pageDriver) ScrollTo(ctx context.Context, selector string, index int) error {
	_, err := d.find(selector, index)
	return err
}

func (d *pageDriver) OuterHTML(ctx context.Context, selector string, index int) (string, error) {
	s, err := d.find(selector, index)
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(s)
}

func (d *pageDriver) Close() error {
	*d.closed++
	return nil
}

func post(id int, year string) string {
	return fmt.Sprintf(`<div id="post-%d"><a href="https://veja.abril.com.br/p/%d/">t</a><div class="author blog-image">1 jan %s, 10h00</div></div>`, id, id, year)
}

func malformedPost(id int) string {
	return fmt.Sprintf(`<div id="post-%d"><a href="https://veja.abril.com.br/p/%d/">t</a><div class="author"><span>sem data</span></div></div>`, id, id)
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.BaseURL = "https://veja.abril.com.br"
	s.MaxRounds = 3
	s.MaxScrollAttempts = 1
	s.ScrollDelay = 0
	s.WaitAttempts = 1
	s.WaitInterval = time.Millisecond
	return s
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

// ======================================================================
// テスト関数
// ======================================================================

func TestPlan_Elements(t *testing.T) {
	tr := config.TimeRange{Start: 2010, End: 2012}

	assert.Equal(t, []string{"2010", "2011", "2012"}, Plan{Sector: "all", TimeRange: tr}.Elements())
	assert.Equal(t, []string{"2010", "2011", "2012"}, Plan{TimeRange: tr}.Elements())
	assert.Equal(t, []string{"politica"}, Plan{Sector: "politica", TimeRange: tr}.Elements())
	assert.Equal(t, "all", Plan{}.Scope())
}

func TestHarvester_RunYearArchives(t *testing.T) {
	root := t.TempDir()
	closed := 0
	pages := map[string][]string{
		"https://veja.abril.com.br/2010/": {post(1, "2010"), malformedPost(2), post(3, "2010")},
		"https://veja.abril.com.br/2011/": {post(4, "2011"), post(3, "2010")},
	}
	opener := func(ctx context.Context) (browser.Driver, error) {
		return &pageDriver{pages: pages, closed: &closed}, nil
	}

	var logs bytes.Buffer
	h := New(opener, store.New(root, nil), testSettings(), progress.New(&logs, true), WithSleep(noSleep))

	report, err := h.Run(context.Background(), Plan{Sector: "all", TimeRange: config.TimeRange{Start: 2010, End: 2011}})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "all", report.Scope)
	require.Len(t, report.Elements, 2)
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 1, report.Malformed())
	assert.Equal(t, 4, report.Links())
	assert.Equal(t, 2, closed)

	assert.Equal(t, 3, report.Elements[0].Items)
	assert.True(t, report.Elements[0].Pagination.Exhausted)

	data, err := os.ReadFile(filepath.Join(root, "all", "links", "2010.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://veja.abril.com.br/p/1/\nhttps://veja.abril.com.br/p/3/\nhttps://veja.abril.com.br/p/3/", string(data))

	data, err = os.ReadFile(filepath.Join(root, "all", "links", "2011.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://veja.abril.com.br/p/4/", string(data))

	assert.Contains(t, logs.String(), "[2010] ラウンド 1")
}

func TestHarvester_ContinuesAfterFailures(t *testing.T) {
	root := t.TempDir()
	closed := 0
	pages := map[string][]string{
		"https://veja.abril.com.br/2013/": {malformedPost(1)},
		"https://veja.abril.com.br/2014/": {post(2, "2014")},
	}
	calls := 0
	opener := func(ctx context.Context) (browser.Driver, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("chrome not found")
		}
		return &pageDriver{pages: pages, closed: &closed}, nil
	}

	h := New(opener, store.New(root, nil), testSettings(), progress.New(&bytes.Buffer{}, false), WithSleep(noSleep))
	report, err := h.Run(context.Background(), Plan{Sector: "all", TimeRange: config.TimeRange{Start: 2012, End: 2014}})
	require.NoError(t, err)

	require.Len(t, report.Elements, 3)
	assert.ErrorContains(t, report.Elements[0].Err, "chrome not found")
	assert.ErrorIs(t, report.Elements[1].Err, ErrNoLinks)
	assert.NoError(t, report.Elements[2].Err)
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, 2, closed)

	_, err = os.Stat(filepath.Join(root, "all", "links", "2014.txt"))
	assert.NoError(t, err)
}

// readOnlyFS はディレクトリの作成を常に失敗させます。
type readOnlyFS struct{ store.OSFS }

func (readOnlyFS) MkdirAll(path string, perm os.FileMode) error {
	return errors.New("read-only file system")
}

func TestHarvester_PersistenceFailure(t *testing.T) {
	closed := 0
	pages := map[string][]string{
		"https://veja.abril.com.br/politica/": {post(1, "2022"), post(2, "2021")},
	}
	opener := func(ctx context.Context) (browser.Driver, error) {
		return &pageDriver{pages: pages, closed: &closed}, nil
	}

	h := New(opener, store.New(t.TempDir(), readOnlyFS{}), testSettings(), progress.New(&bytes.Buffer{}, false), WithSleep(noSleep))
	report, err := h.Run(context.Background(), Plan{Sector: "politica", TimeRange: config.DefaultTimeRange()})
	require.NoError(t, err)

	require.Len(t, report.Elements, 1)
	assert.True(t, store.IsPersistenceError(report.Elements[0].Err))
	assert.Len(t, report.PersistenceFailures(), 1)
	assert.Equal(t, 1, closed)
}

func TestHarvester_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := func(ctx context.Context) (browser.Driver, error) {
		t.Fatal("セッションは開かれないはずです")
		return nil, nil
	}
	h := New(opener, store.New(t.TempDir(), nil), testSettings(), nil)
	_, err := h.Run(ctx, Plan{Sector: "politica"})
	assert.ErrorIs(t, err, context.Canceled)
}

// orderCheckFS は保存時点でその要素のセッションが既に閉じられているかを検証します。
type orderCheckFS struct {
	store.OSFS
	t      *testing.T
	closed *int
	saves  *int
	writes *int
}

func (f orderCheckFS) MkdirAll(path string, perm os.FileMode) error {
	*f.saves++
	assert.Equal(f.t, *f.saves, *f.closed, "保存の前にセッションが閉じられていません: %s", path)
	return f.OSFS.MkdirAll(path, perm)
}

func (f orderCheckFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	*f.writes++
	assert.Equal(f.t, *f.saves, *f.closed, "書き込みの前にセッションが閉じられていません: %s", name)
	return f.OSFS.WriteFile(name, data, perm)
}

func TestHarvester_ClosesSessionBeforePersisting(t *testing.T) {
	closed, saves, writes := 0, 0, 0
	pages := map[string][]string{
		"https://veja.abril.com.br/2016/": {post(1, "2016"), post(2, "2015")},
		"https://veja.abril.com.br/2017/": {post(3, "2017")},
	}
	opener := func(ctx context.Context) (browser.Driver, error) {
		return &pageDriver{pages: pages, closed: &closed}, nil
	}
	fsys := orderCheckFS{t: t, closed: &closed, saves: &saves, writes: &writes}

	h := New(opener, store.New(t.TempDir(), fsys), testSettings(), progress.New(&bytes.Buffer{}, false), WithSleep(noSleep))
	report, err := h.Run(context.Background(), Plan{Sector: "all", TimeRange: config.TimeRange{Start: 2016, End: 2017}})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 2, saves)
	assert.Equal(t, 3, writes)
	assert.Equal(t, 2, closed)
}
