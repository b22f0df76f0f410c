package downloader

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/history"
	"mediagrab/pkg/metadata"
	"mediagrab/pkg/models"
	"mediagrab/pkg/storage"
)

type poolHarness struct {
	pool    *WorkerPool
	store   *storage.Manager
	history *history.Manager
	config  *config.Config
}

func newPoolHarness(t *testing.T) *poolHarness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.DownloadTimeout = 5 * time.Second

	httpClient, err := client.New(5*time.Second, nil)
	require.NoError(t, err)

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	require.NoError(t, err)

	hist, err := history.NewManager(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	return &poolHarness{
		pool:    NewWorkerPool(cfg, httpClient, store, hist),
		store:   store,
		history: hist,
		config:  cfg,
	}
}

// runJobs feeds the pool and collects all results after it drains
func (h *poolHarness) runJobs(t *testing.T, items ...*models.MediaItem) []Result {
	t.Helper()

	h.pool.Start()
	for _, item := range items {
		h.pool.HandleFile(item)
	}

	var results []Result
	collected := make(chan struct{})
	go func() {
		for result := range h.pool.Results() {
			results = append(results, result)
		}
		close(collected)
	}()

	h.pool.Stop()
	select {
	case <-collected:
	case <-time.After(10 * time.Second):
		t.Fatal("results channel never closed")
	}
	return results
}

func mediaFor(t *testing.T, rawURL, folder string, datetime int64) *models.MediaItem {
	t.Helper()
	link, err := url.Parse(rawURL)
	require.NoError(t, err)
	referer, err := url.Parse("https://bunkr.su/a/ref")
	require.NoError(t, err)

	filename := filepath.Base(link.Path)
	return models.NewMediaItem(link, referer, folder, filename, filepath.Ext(filename), filename, datetime)
}

func TestDownloadSuccess(t *testing.T) {
	var gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, "image-bytes")
	}))
	defer server.Close()

	h := newPoolHarness(t)
	media := mediaFor(t, server.URL+"/photo.jpg", "Album (Bunkr)", 1614954600)

	results := h.runJobs(t, media)
	require.Len(t, results, 1)
	result := results[0]

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	require.NotNil(t, result.State)
	assert.Equal(t, "photo.jpg", result.State.DownloadFilename)
	assert.Equal(t, int64(len("image-bytes")), result.State.Filesize)
	assert.Equal(t, "https://bunkr.su/a/ref", gotReferer)

	path := filepath.Join(h.store.BaseDir(), "Album (Bunkr)", "photo.jpg")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1614954600), info.ModTime().Unix())

	assert.True(t, h.history.IsCompleted(media.URL.String()))
}

func TestDownloadFailureRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	h := newPoolHarness(t)
	media := mediaFor(t, server.URL+"/gone.jpg", "Album (Bunkr)", 0)

	results := h.runJobs(t, media)
	require.Len(t, results, 1)
	result := results[0]

	require.Error(t, result.Error)
	assert.False(t, result.Success)

	entries := h.history.FailedEntries()
	assert.Equal(t, "Album (Bunkr)", entries[media.URL.String()])

	_, err := os.Stat(filepath.Join(h.store.BaseDir(), "Album (Bunkr)", "gone.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryDedupeSkips(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, "image-bytes")
	}))
	defer server.Close()

	h := newPoolHarness(t)
	media := mediaFor(t, server.URL+"/photo.jpg", "", 0)
	require.NoError(t, h.history.RecordCompleted(media.URL.String(), "photo.jpg"))

	results := h.runJobs(t, media)
	require.Len(t, results, 1)

	assert.True(t, results[0].Skipped)
	assert.False(t, results[0].Success)
	assert.Zero(t, requests, "skipped items must not touch the network")
}

func TestCollisionResolvedFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "new-bytes")
	}))
	defer server.Close()

	h := newPoolHarness(t)
	media := mediaFor(t, server.URL+"/photo.jpg", "Album", 0)

	// a file with the natural name already exists
	_, err := h.store.Save(strings.NewReader("old-bytes"), "Album", "photo.jpg")
	require.NoError(t, err)

	results := h.runJobs(t, media)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Error)
	assert.Equal(t, "photo (1).jpg", results[0].State.DownloadFilename)

	data, err := os.ReadFile(filepath.Join(h.store.BaseDir(), "Album", "photo (1).jpg"))
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(data))

	data, err = os.ReadFile(filepath.Join(h.store.BaseDir(), "Album", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "old-bytes", string(data), "the existing file is untouched")
}

func TestMetadataSidecar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "image-bytes")
	}))
	defer server.Close()

	h := newPoolHarness(t)
	h.config.Download.WriteMetadata = true

	media := mediaFor(t, server.URL+"/photo.jpg", "Album", 1614954600)
	results := h.runJobs(t, media)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Error)

	path := filepath.Join(h.store.BaseDir(), "Album", "photo.jpg")
	require.True(t, metadata.Exists(path))

	record, err := metadata.Load(path)
	require.NoError(t, err)
	assert.Equal(t, media.URL.String(), record.URL)
	assert.Equal(t, "photo.jpg", record.Filename)
	assert.Equal(t, "image", record.FileType)
}

func TestTimestampsDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "image-bytes")
	}))
	defer server.Close()

	h := newPoolHarness(t)
	h.config.Download.DisableTimestamps = true

	media := mediaFor(t, server.URL+"/photo.jpg", "", 1614954600)
	results := h.runJobs(t, media)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Error)

	info, err := os.Stat(filepath.Join(h.store.BaseDir(), "photo.jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, int64(1614954600), info.ModTime().Unix())
}
