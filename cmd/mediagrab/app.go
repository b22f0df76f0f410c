package main

import (
	"context"
	"fmt"
	"sync"

	"mediagrab/internal/downloader"
	"mediagrab/pkg/bunkr"
	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/history"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/models"
	"mediagrab/pkg/progress"
	"mediagrab/pkg/scraper"
	"mediagrab/pkg/scrolller"
	"mediagrab/pkg/storage"
)

// app wires the full pipeline: HTTP client, storage, history, download pool,
// scrape engine and the registered site crawlers.
type app struct {
	config  *config.Config
	client  *client.Client
	store   *storage.Manager
	history *history.Manager
	pool    *downloader.WorkerPool
	engine  *scraper.Engine
	logger  logger.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.GetLogger()

	httpClient, err := client.New(cfg.Download.DownloadTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	hist, err := history.NewManager("")
	if err != nil {
		return nil, fmt.Errorf("failed to open download history: %w", err)
	}

	pool := downloader.NewWorkerPool(cfg, httpClient, store, hist)
	engine := scraper.New(cfg, pool)
	engine.Register(bunkr.New(engine, httpClient, cfg))
	engine.Register(scrolller.New(engine, httpClient, cfg))

	return &app{
		config:  cfg,
		client:  httpClient,
		store:   store,
		history: hist,
		pool:    pool,
		engine:  engine,
		logger:  log,
	}, nil
}

// run drains the scrape queue and the download pool, then returns the final
// counters. Items must be submitted before calling run.
func (a *app) run(ctx context.Context) progress.Summary {
	a.pool.Start()

	stats := a.engine.Stats()
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for result := range a.pool.Results() {
			switch {
			case result.Skipped:
				stats.AddPreviouslyCompleted()
			case result.Success:
				stats.AddCompleted()
			default:
				stats.AddFailed()
			}
		}
	}()

	a.engine.Run(ctx)
	a.pool.Stop()
	consumer.Wait()

	return stats.Snapshot()
}

// submitURLs enqueues raw user-supplied URLs
func (a *app) submitURLs(urls []string) error {
	for _, raw := range urls {
		if err := a.engine.Submit(raw); err != nil {
			return err
		}
	}
	return nil
}

// submitRetries enqueues the recorded failures as retry items reusing their
// original folder paths.
func (a *app) submitRetries() (int, error) {
	entries := a.history.FailedEntries()
	submitted := 0
	for rawURL, folder := range entries {
		item, err := models.NewScrapeItem(rawURL)
		if err != nil {
			a.logger.WarnWithFields("skipping invalid recorded url", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
			continue
		}
		item.Retry = true
		item.RetryPath = folder
		if a.engine.SubmitItem(item) {
			submitted++
		}
	}
	return submitted, nil
}

func printSummary(summary progress.Summary) {
	fmt.Printf("\nScraped: %d", summary.Scraped)
	if len(summary.ScrapeFailures) > 0 {
		total := 0
		for _, n := range summary.ScrapeFailures {
			total += n
		}
		fmt.Printf("  (failed: %d)", total)
	}
	fmt.Printf("\nQueued: %d  Completed: %d  Failed: %d  Skipped: %d  Previously done: %d\n",
		summary.QueuedMedia, summary.Completed, summary.Failed, summary.Skipped, summary.PreviouslyCompleted)
}
