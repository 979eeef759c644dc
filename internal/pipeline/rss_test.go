package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/config"
	"github.com/shouni/go-feed-harvest/pkg/store"
)

// MockFeedParser は FeedParser のモックです。
type MockFeedParser struct {
	mock.Mock
}

func (m *MockFeedParser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	args := m.Called(ctx, feedURL)
	feed, _ := args.Get(0).(*gofeed.Feed)
	return feed, args.Error(1)
}

func TestFeedHarvester_Run(t *testing.T) {
	root := t.TempDir()
	d2022 := time.Date(2022, time.December, 31, 18, 4, 0, 0, time.UTC)
	d2021 := time.Date(2021, time.December, 29, 16, 52, 0, 0, time.UTC)

	parser := new(MockFeedParser)
	parser.On("FetchAndParse", mock.Anything, "https://veja.abril.com.br/politica/feed/").Return(&gofeed.Feed{
		Items: []*gofeed.Item{
			{Link: "https://veja.abril.com.br/politica/a/", PublishedParsed: &d2022},
			{Link: "https://veja.abril.com.br/politica/b/"},
			{Link: "https://veja.abril.com.br/politica/c/", PublishedParsed: &d2021},
		},
	}, nil)
	parser.On("FetchAndParse", mock.Anything, "https://veja.abril.com.br/economia/feed/").Return(nil, errors.New("HTTPエラー: 404"))

	h := NewFeedHarvester(parser, store.New(root, nil), config.DefaultSettings(), progress.New(&bytes.Buffer{}, false))
	report, err := h.Run(context.Background(), []string{"politica", "economia"})
	require.NoError(t, err)
	parser.AssertExpectations(t)

	require.Len(t, report.Elements, 2)
	assert.NoError(t, report.Elements[0].Err)
	assert.Equal(t, 3, report.Elements[0].Items)
	assert.Equal(t, 1, report.Elements[0].Skipped)
	assert.Equal(t, 2, report.Links())
	assert.ErrorContains(t, report.Elements[1].Err, "404")

	data, err := os.ReadFile(filepath.Join(root, "politica", "links", "2022.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://veja.abril.com.br/politica/a/", string(data))
	_, err = os.Stat(filepath.Join(root, "politica", "links", "2021.txt"))
	assert.NoError(t, err)
}
