package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagrab/pkg/config"
	"mediagrab/pkg/models"
)

// recordingSink collects dispatched media items
type recordingSink struct {
	mu    sync.Mutex
	items []*models.MediaItem
}

func (s *recordingSink) HandleFile(item *models.MediaItem) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// fanOutCrawler resolves /album into three file items, and file items into
// dispatched media, without touching the network.
type fanOutCrawler struct {
	eng     *Engine
	fetched int32
}

func (f *fanOutCrawler) Site() string { return "stub" }

func (f *fanOutCrawler) Matches(host string) bool {
	return host == "stub.test" || strings.HasSuffix(host, ".stub.test")
}

func (f *fanOutCrawler) Fetch(ctx context.Context, item *models.ScrapeItem) {
	atomic.AddInt32(&f.fetched, 1)

	taskID := f.eng.Tracker().AddTask(item.URL.String())
	defer f.eng.Tracker().RemoveTask(taskID)

	if strings.HasPrefix(item.URL.Path, "/album") {
		for i := 0; i < 3; i++ {
			link, _ := url.Parse(fmt.Sprintf("https://stub.test/file/%d.jpg", i))
			f.eng.Queue().Put(item.Child(link, true, 0))
		}
		f.eng.Stats().AddScraped()
		return
	}

	media := models.NewMediaItem(item.URL, item.URL, item.ParentTitle, "file.jpg", ".jpg", "file.jpg", 0)
	f.eng.Sink().HandleFile(media)
	f.eng.Stats().AddScraped()
}

func runWithTimeout(t *testing.T, eng *Engine) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		eng.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not terminate")
	}
}

func TestEngineFanOut(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &recordingSink{}
	eng := New(cfg, sink)

	crawler := &fanOutCrawler{eng: eng}
	eng.Register(crawler)

	require.NoError(t, eng.Submit("https://stub.test/album/xyz"))
	runWithTimeout(t, eng)

	assert.Equal(t, int32(4), atomic.LoadInt32(&crawler.fetched), "root plus three children")
	assert.Equal(t, 3, sink.count())
	assert.Equal(t, 0, eng.Tracker().ActiveCount())

	summary := eng.Stats().Snapshot()
	assert.Equal(t, 4, summary.Scraped)
}

func TestEngineDuplicateSubmit(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &recordingSink{}
	eng := New(cfg, sink)

	crawler := &fanOutCrawler{eng: eng}
	eng.Register(crawler)

	require.NoError(t, eng.Submit("https://stub.test/file/solo.jpg"))
	require.NoError(t, eng.Submit("https://stub.test/file/solo.jpg"))
	runWithTimeout(t, eng)

	assert.Equal(t, int32(1), atomic.LoadInt32(&crawler.fetched))
	assert.Equal(t, 1, sink.count())
}

func TestEngineUnsupportedHost(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &recordingSink{}
	eng := New(cfg, sink)
	eng.Register(&fanOutCrawler{eng: eng})

	require.NoError(t, eng.Submit("https://unknown.example/whatever"))
	runWithTimeout(t, eng)

	assert.Equal(t, 0, sink.count())
	summary := eng.Stats().Snapshot()
	assert.Equal(t, 1, summary.ScrapeFailures["unsupported_host"])
}

func TestEngineSubmitInvalidURL(t *testing.T) {
	eng := New(config.DefaultConfig(), &recordingSink{})
	assert.Error(t, eng.Submit("://not-a-url"))
}

func TestEngineSubmitRetryItem(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &recordingSink{}
	eng := New(cfg, sink)
	eng.Register(&fanOutCrawler{eng: eng})

	link, _ := url.Parse("https://stub.test/file/failed-before.jpg")
	item := &models.ScrapeItem{URL: link, Retry: true, RetryPath: "Old Album"}
	require.True(t, eng.SubmitItem(item))

	runWithTimeout(t, eng)
	require.Equal(t, 1, sink.count())
}
