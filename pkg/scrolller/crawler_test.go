package scrolller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/models"
	"mediagrab/pkg/scraper"
)

type captureSink struct {
	mu    sync.Mutex
	items []*models.MediaItem
}

func (s *captureSink) HandleFile(item *models.MediaItem) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

func (s *captureSink) all() []*models.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.MediaItem(nil), s.items...)
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables struct {
		URL      string  `json:"url"`
		Iterator *string `json:"iterator"`
	} `json:"variables"`
}

type mediaSource struct {
	URL string `json:"url"`
}

type apiItem struct {
	Title        string        `json:"title"`
	MediaSources []mediaSource `json:"mediaSources"`
}

func apiResponse(iterator *string, items []apiItem) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"getSubreddit": map[string]interface{}{
				"title": "earthporn",
				"children": map[string]interface{}{
					"iterator": iterator,
					"items":    items,
				},
			},
		},
	}
}

func newTestCrawler(t *testing.T, apiURL string) (*Crawler, *scraper.Engine, *captureSink) {
	t.Helper()
	cfg := config.DefaultConfig()
	sink := &captureSink{}
	eng := scraper.New(cfg, sink)

	httpClient, err := client.New(5*time.Second, nil)
	require.NoError(t, err)

	c := New(eng, httpClient, cfg)
	if apiURL != "" {
		api, err := url.Parse(apiURL)
		require.NoError(t, err)
		c.api = api
	}
	return c, eng, sink
}

func TestMatches(t *testing.T) {
	c, _, _ := newTestCrawler(t, "")

	assert.True(t, c.Matches("scrolller.com"))
	assert.True(t, c.Matches("api.scrolller.com"))
	assert.False(t, c.Matches("notscrolller.com"))
	assert.False(t, c.Matches("example.com"))
}

func TestFetchSubredditPaging(t *testing.T) {
	cursor := "page-2"
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)

		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/r/earthporn", req.Variables.URL)

		w.Header().Set("Content-Type", "application/json")
		if req.Variables.Iterator == nil {
			// first page: two usable items, one without an extension,
			// sources ascending by resolution
			items := []apiItem{
				{Title: "one", MediaSources: []mediaSource{
					{URL: "https://img.scrolller.com/low/one-240.jpg"},
					{URL: "https://img.scrolller.com/full/one.jpg"},
				}},
				{Title: "two", MediaSources: []mediaSource{
					{URL: "https://img.scrolller.com/full/two.mp4"},
				}},
				{Title: "no extension", MediaSources: []mediaSource{
					{URL: "https://img.scrolller.com/full/raw"},
				}},
			}
			json.NewEncoder(w).Encode(apiResponse(&cursor, items))
			return
		}

		// second page: one item, iterator stops advancing
		assert.Equal(t, cursor, *req.Variables.Iterator)
		items := []apiItem{
			{Title: "three", MediaSources: []mediaSource{
				{URL: "https://img.scrolller.com/full/three.webm"},
			}},
		}
		json.NewEncoder(w).Encode(apiResponse(&cursor, items))
	}))
	defer server.Close()

	c, eng, sink := newTestCrawler(t, server.URL)

	item, err := models.NewScrapeItem("https://scrolller.com/r/earthporn")
	require.NoError(t, err)
	c.Fetch(context.Background(), item)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "paging stops when the iterator repeats")

	files := sink.all()
	require.Len(t, files, 3, "source without extension is skipped")

	byName := make(map[string]*models.MediaItem, len(files))
	for _, f := range files {
		byName[f.Filename] = f
	}
	require.Contains(t, byName, "one.jpg")
	require.Contains(t, byName, "two.mp4")
	require.Contains(t, byName, "three.webm")

	assert.Equal(t, "https://img.scrolller.com/full/one.jpg", byName["one.jpg"].URL.String(),
		"the highest-resolution source wins")
	assert.Equal(t, "earthporn (Scrolller)", byName["one.jpg"].DownloadFolder)

	assert.True(t, item.PartOfAlbum)
	assert.Equal(t, 1, eng.Stats().Snapshot().Scraped)
	assert.Equal(t, 0, eng.Tracker().ActiveCount())
}

func TestFetchEmptySubreddit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(apiResponse(nil, nil))
	}))
	defer server.Close()

	c, eng, sink := newTestCrawler(t, server.URL)

	item, err := models.NewScrapeItem("https://scrolller.com/r/empty")
	require.NoError(t, err)
	c.Fetch(context.Background(), item)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, sink.all())
	assert.Equal(t, 1, eng.Stats().Snapshot().Scraped)
}

func TestFetchUnsupportedPath(t *testing.T) {
	c, eng, sink := newTestCrawler(t, "")

	item, err := models.NewScrapeItem("https://scrolller.com/about")
	require.NoError(t, err)
	c.Fetch(context.Background(), item)

	assert.Empty(t, sink.all())
	summary := eng.Stats().Snapshot()
	assert.Equal(t, 1, summary.ScrapeFailures["not_found"])
	assert.Equal(t, 0, eng.Tracker().ActiveCount())
}

func TestFetchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, eng, sink := newTestCrawler(t, server.URL)

	item, err := models.NewScrapeItem("https://scrolller.com/r/broken")
	require.NoError(t, err)
	c.Fetch(context.Background(), item)

	assert.Empty(t, sink.all())
	assert.Equal(t, 1, eng.Stats().Snapshot().ScrapeFailures["server_error"])
}
