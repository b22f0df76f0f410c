package downloader

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/errors"
	"mediagrab/pkg/history"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/metadata"
	"mediagrab/pkg/models"
	"mediagrab/pkg/ratelimit"
	"mediagrab/pkg/retry"
	"mediagrab/pkg/storage"
)

// Result is the outcome of one media item's download
type Result struct {
	Media    *models.MediaItem
	State    *models.DownloadState
	Success  bool
	Skipped  bool // suppressed by history dedupe
	Error    error
	Duration time.Duration
}

// WorkerPool executes media item downloads concurrently. It owns the
// DownloadState record of every item it processes; the scraper side never
// sees those fields.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan *models.MediaItem
	resultQueue chan Result
	wg          sync.WaitGroup

	client  *client.Client
	store   *storage.Manager
	history *history.Manager
	limiter *ratelimit.DomainLimiter
	config  *config.Config
	logger  logger.Logger
}

// NewWorkerPool creates a download worker pool
func NewWorkerPool(cfg *config.Config, httpClient *client.Client, store *storage.Manager, hist *history.Manager) *WorkerPool {
	numWorkers := cfg.Download.ConcurrentDownloads
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan *models.MediaItem, numWorkers*8),
		resultQueue: make(chan Result, numWorkers),
		client:      httpClient,
		store:       store,
		history:     hist,
		limiter:     ratelimit.NewDomainLimiter(cfg.RateLimit.DomainRequests, cfg.RateLimit.DomainWindow),
		config:      cfg,
		logger:      logger.GetLogger(),
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting download pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop drains remaining jobs, waits for workers, and closes the results
// channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.logger.Info("download pool stopped")
}

// HandleFile accepts a resolved media item for download. It is the
// dispatcher the scrape engine hands terminal files to.
func (wp *WorkerPool) HandleFile(item *models.MediaItem) {
	wp.jobQueue <- item
}

// Results returns the channel of download outcomes
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for media := range wp.jobQueue {
		result := wp.process(media, id)
		wp.resultQueue <- result
	}
}

// process downloads one media item with bounded retry
func (wp *WorkerPool) process(media *models.MediaItem, workerID int) Result {
	start := time.Now()
	mediaURL := media.URL.String()
	result := Result{Media: media}

	if wp.history.IsCompleted(mediaURL) && !wp.config.Output.OverwriteExisting {
		wp.logger.DebugWithFields("already downloaded, skipping", map[string]interface{}{
			"worker_id": workerID,
			"url":       mediaURL,
		})
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	filename := media.Filename
	if !wp.config.Output.OverwriteExisting {
		filename = wp.store.ResolveFilename(media.DownloadFolder, media.Filename)
	}

	state := &models.DownloadState{
		MediaID:          media.ID,
		DownloadFilename: filename,
		TaskID:           uuid.New(),
	}
	result.State = state

	retryCfg := &retry.Config{
		MaxAttempts: wp.config.Download.MaxAttempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Logger:      wp.logger,
	}

	err := retry.Do(func() error {
		state.CurrentAttempt++
		return wp.download(media, state)
	}, retryCfg)

	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		wp.store.Release(media.DownloadFolder, filename)
		if histErr := wp.history.RecordFailure(mediaURL, media.DownloadFolder); histErr != nil {
			wp.logger.WithError(histErr).Warn("failed to record download failure")
		}
		wp.logger.ErrorWithFields("download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       mediaURL,
			"attempts":  state.CurrentAttempt,
			"error":     err.Error(),
		})
		return result
	}

	if histErr := wp.history.RecordCompleted(mediaURL, filename); histErr != nil {
		wp.logger.WithError(histErr).Warn("failed to record download completion")
	}

	if wp.config.Download.WriteMetadata {
		record := metadata.FromMediaItem(media, state)
		path := filepath.Join(wp.store.FolderPath(media.DownloadFolder), filename)
		if metaErr := record.Save(path); metaErr != nil {
			wp.logger.WithError(metaErr).Warn("failed to write metadata sidecar")
		}
	}

	result.Success = true
	wp.logger.DebugWithFields("download completed", map[string]interface{}{
		"worker_id": workerID,
		"url":       mediaURL,
		"filename":  filename,
		"size":      state.Filesize,
		"duration":  result.Duration,
	})
	return result
}

// download performs one attempt: fetch, write through a partial file, then
// stamp the modification time from the discovered date.
func (wp *WorkerPool) download(media *models.MediaItem, state *models.DownloadState) error {
	ctx, cancel := wp.attemptContext()
	defer cancel()

	if err := wp.limiter.Wait(ctx, media.URL.Hostname()); err != nil {
		return err
	}

	headers := map[string]string{}
	if media.Referer != nil {
		headers["Referer"] = media.Referer.String()
	}

	resp, err := wp.client.Get(ctx, media.URL.String(), headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return &errors.Error{
			Type:    statusErrorType(resp.StatusCode),
			Message: fmt.Sprintf("unexpected status fetching %s", media.URL),
			Code:    resp.StatusCode,
		}
	}

	written, err := wp.store.Save(resp.Body, media.DownloadFolder, state.DownloadFilename)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeNetwork, Message: err.Error()}
	}
	state.Filesize = written

	if !wp.config.Download.DisableTimestamps && media.Datetime > 0 {
		if err := wp.store.SetModTime(media.DownloadFolder, state.DownloadFilename, media.Datetime); err != nil {
			wp.logger.WithError(err).Warn("failed to set file timestamp")
		}
	}
	return nil
}

// attemptContext bounds a single download attempt
func (wp *WorkerPool) attemptContext() (context.Context, context.CancelFunc) {
	timeout := wp.config.Download.DownloadTimeout
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

func statusErrorType(code int) errors.ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return errors.ErrorTypeRateLimit
	case code == http.StatusNotFound:
		return errors.ErrorTypeNotFound
	case code >= 500:
		return errors.ErrorTypeServerError
	default:
		return errors.ErrorTypeUnknown
	}
}
