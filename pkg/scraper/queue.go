package scraper

import (
	"sync"

	"mediagrab/pkg/models"
)

// Queue is the shared scrape work queue. Crawlers enqueue the children they
// discover onto the same queue their own item came from, so completion is
// queue-empty-and-no-in-flight, tracked with a WaitGroup: Put adds, Done
// releases, and Wait closes the channel once everything has drained.
//
// Items are deduplicated by URL for the lifetime of the queue. Retry items
// bypass dedupe since their URL already failed in an earlier run.
type Queue struct {
	items chan *models.ScrapeItem
	wg    sync.WaitGroup

	mu   sync.Mutex
	seen map[string]bool

	closeOnce sync.Once
}

// NewQueue creates a queue with the given channel capacity
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{
		items: make(chan *models.ScrapeItem, capacity),
		seen:  make(map[string]bool),
	}
}

// Put enqueues a scrape item. Returns false for duplicates, which are
// dropped without being queued.
func (q *Queue) Put(item *models.ScrapeItem) bool {
	key := item.URL.String()

	q.mu.Lock()
	if q.seen[key] && !item.Retry {
		q.mu.Unlock()
		return false
	}
	q.seen[key] = true
	q.mu.Unlock()

	q.wg.Add(1)

	// Workers block feeding the same queue they drain, so a full channel
	// must not deadlock the producer.
	select {
	case q.items <- item:
	default:
		go func() { q.items <- item }()
	}
	return true
}

// Items returns the receive side of the queue. The channel closes once all
// queued and in-flight work has finished.
func (q *Queue) Items() <-chan *models.ScrapeItem {
	return q.items
}

// Done marks one dequeued item as fully processed, including any children
// it enqueued before returning.
func (q *Queue) Done() {
	q.wg.Done()
}

// Wait blocks until the queue is empty with no items in flight, then closes
// the items channel so workers drain and exit.
func (q *Queue) Wait() {
	q.wg.Wait()
	q.closeOnce.Do(func() { close(q.items) })
}
