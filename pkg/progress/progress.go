package progress

import (
	"sync"

	"github.com/google/uuid"
)

// TaskID identifies a registered scrape task
type TaskID = uuid.UUID

// Tracker registers in-flight scrape tasks. Crawlers add a task when they
// begin resolving an item and remove it on every exit path, so the active
// count reflects real in-flight work even when items fail.
type Tracker struct {
	mu      sync.Mutex
	active  map[TaskID]string
	started int
	ended   int
}

// NewTracker creates an empty scrape task tracker
func NewTracker() *Tracker {
	return &Tracker{active: make(map[TaskID]string)}
}

// AddTask registers a scrape task for the given URL and returns its handle
func (t *Tracker) AddTask(url string) TaskID {
	id := uuid.New()
	t.mu.Lock()
	t.active[id] = url
	t.started++
	t.mu.Unlock()
	return id
}

// RemoveTask deregisters a task. Unknown handles are ignored so double
// removal cannot unbalance the counts.
func (t *Tracker) RemoveTask(id TaskID) {
	t.mu.Lock()
	if _, ok := t.active[id]; ok {
		delete(t.active, id)
		t.ended++
	}
	t.mu.Unlock()
}

// ActiveCount returns the number of currently registered tasks
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Counts returns how many tasks were registered and deregistered
func (t *Tracker) Counts() (started, ended int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started, t.ended
}

// Stats accumulates scrape and download outcome counters
type Stats struct {
	mu sync.Mutex

	scraped       int
	scrapeFailed  map[string]int
	queuedMedia   int
	completed     int
	failed        int
	skipped       int
	previouslyDone int
}

// NewStats creates an empty outcome counter set
func NewStats() *Stats {
	return &Stats{scrapeFailed: make(map[string]int)}
}

// AddScraped records one successfully resolved scrape item
func (s *Stats) AddScraped() {
	s.mu.Lock()
	s.scraped++
	s.mu.Unlock()
}

// AddScrapeFailure records one failed scrape item by failure reason
func (s *Stats) AddScrapeFailure(reason string) {
	s.mu.Lock()
	s.scrapeFailed[reason]++
	s.mu.Unlock()
}

// AddQueuedMedia records a media item handed to the downloader
func (s *Stats) AddQueuedMedia() {
	s.mu.Lock()
	s.queuedMedia++
	s.mu.Unlock()
}

// AddCompleted records a finished download
func (s *Stats) AddCompleted() {
	s.mu.Lock()
	s.completed++
	s.mu.Unlock()
}

// AddFailed records a permanently failed download
func (s *Stats) AddFailed() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

// AddSkipped records a download skipped by filters or free-space checks
func (s *Stats) AddSkipped() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// AddPreviouslyCompleted records a download suppressed by history dedupe
func (s *Stats) AddPreviouslyCompleted() {
	s.mu.Lock()
	s.previouslyDone++
	s.mu.Unlock()
}

// Summary is a point-in-time snapshot of all counters
type Summary struct {
	Scraped             int
	ScrapeFailures      map[string]int
	QueuedMedia         int
	Completed           int
	Failed              int
	Skipped             int
	PreviouslyCompleted int
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures := make(map[string]int, len(s.scrapeFailed))
	for reason, count := range s.scrapeFailed {
		failures[reason] = count
	}
	return Summary{
		Scraped:             s.scraped,
		ScrapeFailures:      failures,
		QueuedMedia:         s.queuedMedia,
		Completed:           s.completed,
		Failed:              s.failed,
		Skipped:             s.skipped,
		PreviouslyCompleted: s.previouslyDone,
	}
}
