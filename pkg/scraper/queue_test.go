package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagrab/pkg/models"
)

func newItem(t *testing.T, rawURL string) *models.ScrapeItem {
	t.Helper()
	item, err := models.NewScrapeItem(rawURL)
	require.NoError(t, err)
	return item
}

func TestQueueDedupe(t *testing.T) {
	q := NewQueue(16)

	assert.True(t, q.Put(newItem(t, "https://bunkr.su/a/abc")))
	assert.False(t, q.Put(newItem(t, "https://bunkr.su/a/abc")), "same URL must be dropped")
	assert.True(t, q.Put(newItem(t, "https://bunkr.su/a/def")))

	q.Done()
	q.Done()
}

func TestQueueRetryBypassesDedupe(t *testing.T) {
	q := NewQueue(16)

	require.True(t, q.Put(newItem(t, "https://bunkr.su/d/file.jpg")))

	retryItem := newItem(t, "https://bunkr.su/d/file.jpg")
	retryItem.Retry = true
	retryItem.RetryPath = "Album (Bunkr)"
	assert.True(t, q.Put(retryItem), "retry items must bypass dedupe")
}

func TestQueuePutNeverBlocks(t *testing.T) {
	q := NewQueue(1)

	// more items than channel capacity, from a single goroutine
	urls := []string{
		"https://bunkr.su/a/one",
		"https://bunkr.su/a/two",
		"https://bunkr.su/a/three",
	}
	done := make(chan struct{})
	go func() {
		for _, u := range urls {
			q.Put(newItem(t, u))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put blocked on a full channel")
	}

	for range urls {
		select {
		case <-q.Items():
			q.Done()
		case <-time.After(time.Second):
			t.Fatal("queued item never arrived")
		}
	}
}

func TestQueueWaitClosesAfterFanOut(t *testing.T) {
	q := NewQueue(16)
	require.True(t, q.Put(newItem(t, "https://bunkr.su/a/root")))

	processed := 0
	workerDone := make(chan int)
	go func() {
		for item := range q.Items() {
			// the root item fans out into two children
			if item.URL.Path == "/a/root" {
				q.Put(item.Child(newItem(t, "https://bunkr.su/d/one.jpg").URL, true, 0))
				q.Put(item.Child(newItem(t, "https://bunkr.su/d/two.jpg").URL, true, 0))
			}
			processed++
			q.Done()
		}
		workerDone <- processed
	}()

	waited := make(chan struct{})
	go func() {
		q.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after queue drained")
	}

	select {
	case n := <-workerDone:
		assert.Equal(t, 3, n)
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after channel close")
	}
}
