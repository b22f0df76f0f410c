package scraper

import (
	"context"
	"fmt"
	"sync"

	"mediagrab/pkg/config"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/models"
	"mediagrab/pkg/progress"
	"mediagrab/pkg/ratelimit"
)

// Engine is the scrape orchestrator: it drains the shared work queue with a
// worker pool, dispatches each item to the matching site crawler, and holds
// the cross-crawler collaborators (progress tracker, stats, per-domain
// politeness limiter). It terminates when the queue is empty and no item is
// in flight.
type Engine struct {
	queue         *Queue
	registry      *Registry
	tracker       *progress.Tracker
	stats         *progress.Stats
	domainLimiter *ratelimit.DomainLimiter
	sink          Dispatcher
	config        *config.Config
	logger        logger.Logger
}

// New creates a scrape engine dispatching media items to sink
func New(cfg *config.Config, sink Dispatcher) *Engine {
	return &Engine{
		queue:         NewQueue(cfg.Scraper.QueueSize),
		registry:      NewRegistry(),
		tracker:       progress.NewTracker(),
		stats:         progress.NewStats(),
		domainLimiter: ratelimit.NewDomainLimiter(cfg.RateLimit.DomainRequests, cfg.RateLimit.DomainWindow),
		sink:          sink,
		config:        cfg,
		logger:        logger.GetLogger(),
	}
}

// Register adds a site crawler to the dispatch registry
func (e *Engine) Register(c Crawler) {
	e.registry.Register(c)
}

// Queue returns the shared work queue crawlers enqueue children onto
func (e *Engine) Queue() *Queue {
	return e.queue
}

// Tracker returns the shared scrape progress tracker
func (e *Engine) Tracker() *progress.Tracker {
	return e.tracker
}

// Stats returns the shared outcome counters
func (e *Engine) Stats() *progress.Stats {
	return e.stats
}

// Sink returns the download dispatcher crawlers hand media items to
func (e *Engine) Sink() Dispatcher {
	return e.sink
}

// Submit parses a raw URL and enqueues it as a root scrape item
func (e *Engine) Submit(rawURL string) error {
	item, err := models.NewScrapeItem(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if !e.queue.Put(item) {
		e.logger.DebugWithFields("duplicate url skipped", map[string]interface{}{"url": rawURL})
	}
	return nil
}

// SubmitItem enqueues a prepared scrape item, such as a retry item carrying
// a recorded folder path.
func (e *Engine) SubmitItem(item *models.ScrapeItem) bool {
	return e.queue.Put(item)
}

// Run processes the queue until all submitted work and everything it fanned
// out into has finished. Call Submit before Run; crawlers keep feeding the
// queue while Run drains it.
func (e *Engine) Run(ctx context.Context) {
	workers := e.config.Scraper.Workers
	if workers <= 0 {
		workers = 1
	}

	e.logger.InfoWithFields("scrape engine starting", map[string]interface{}{
		"workers": workers,
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx)
		}()
	}

	e.queue.Wait()
	wg.Wait()

	started, ended := e.tracker.Counts()
	e.logger.InfoWithFields("scrape engine finished", map[string]interface{}{
		"tasks_started": started,
		"tasks_ended":   ended,
	})
}

func (e *Engine) worker(ctx context.Context) {
	for item := range e.queue.Items() {
		e.process(ctx, item)
		e.queue.Done()
	}
}

func (e *Engine) process(ctx context.Context, item *models.ScrapeItem) {
	if ctx.Err() != nil {
		return
	}

	host := item.URL.Hostname()
	crawler, ok := e.registry.Lookup(host)
	if !ok {
		e.logger.WarnWithFields("unsupported url", map[string]interface{}{
			"url":  item.URL.String(),
			"host": host,
		})
		e.stats.AddScrapeFailure("unsupported_host")
		return
	}

	if err := e.domainLimiter.Wait(ctx, host); err != nil {
		return
	}
	crawler.Fetch(ctx, item)
}
