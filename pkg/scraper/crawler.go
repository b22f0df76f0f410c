package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/errors"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/models"
	"mediagrab/pkg/progress"
	"mediagrab/pkg/ratelimit"
)

// Crawler is the contract every site plugin implements. Fetch resolves one
// scrape item into child items enqueued on the shared queue, or into a media
// item handed to the dispatcher. Failures are handled inside Fetch and never
// propagate to the engine.
type Crawler interface {
	// Site returns the site key used for config lookup and logging
	Site() string

	// Matches reports whether the crawler handles URLs on the given host
	Matches(host string) bool

	// Fetch resolves one scrape item
	Fetch(ctx context.Context, item *models.ScrapeItem)
}

// Dispatcher accepts resolved media items for download execution
type Dispatcher interface {
	HandleFile(item *models.MediaItem)
}

// Base carries the per-crawler collaborators and shared helpers: rate
// limiting, progress pairing, the failure wrapper, cookie priming, title
// building and the media handoff. Site crawlers embed it.
type Base struct {
	SiteKey  string
	SiteName string

	Client  *client.Client
	Limiter ratelimit.Limiter
	Queue   *Queue
	Tracker *progress.Tracker
	Stats   *progress.Stats
	Sink    Dispatcher
	Config  *config.Config
	Logger  logger.Logger

	primeOnce sync.Once
}

// Site returns the crawler's site key
func (b *Base) Site() string {
	return b.SiteKey
}

// Run executes one handler for a scrape item, pairing progress registration
// with deregistration on every exit path. Handler errors are logged with the
// offending URL and swallowed so sibling items keep flowing.
func (b *Base) Run(item *models.ScrapeItem, handler func() error) {
	taskID := b.Tracker.AddTask(item.URL.String())
	defer b.Tracker.RemoveTask(taskID)

	if err := handler(); err != nil {
		b.Logger.ErrorWithFields("scrape item failed", map[string]interface{}{
			"site":  b.SiteKey,
			"url":   item.URL.String(),
			"error": err.Error(),
		})
		b.Stats.AddScrapeFailure(failureReason(err))
		return
	}
	b.Stats.AddScraped()
}

// Acquire blocks on the crawler's shared rate limiter before a network fetch
func (b *Base) Acquire(ctx context.Context) error {
	return b.Limiter.Wait(ctx)
}

// PrimeCookies injects the site's configured cookie values into the shared
// cookie store, scoped to scopeURL. The map goes from cookie name to config
// key. It runs at most once per crawler instance; keys with no configured
// value are skipped individually.
func (b *Base) PrimeCookies(scopeURL string, cookieKeys map[string]string) {
	b.primeOnce.Do(func() {
		values := make(map[string]string, len(cookieKeys))
		for cookieName, configKey := range cookieKeys {
			values[cookieName] = b.Config.SiteSecret(b.SiteKey, configKey)
		}
		if err := b.Client.UpdateCookies(values, scopeURL); err != nil {
			b.Logger.WarnWithFields("cookie priming failed", map[string]interface{}{
				"site":  b.SiteKey,
				"error": err.Error(),
			})
		}
	})
}

// CreateTitle builds an album folder title tagged with the site name, the
// way downloads from different sites stay distinguishable on disk.
func (b *Base) CreateTitle(title, albumID string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = albumID
	}
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("%s (%s)", title, b.SiteName)
}

// Enqueue puts a child scrape item on the shared queue
func (b *Base) Enqueue(item *models.ScrapeItem) {
	if !b.Queue.Put(item) {
		b.Logger.DebugWithFields("duplicate scrape item skipped", map[string]interface{}{
			"site": b.SiteKey,
			"url":  item.URL.String(),
		})
	}
}

// HandleFile hands a terminal file off to the download dispatcher. The
// download folder comes from the item's recorded retry path when retrying,
// otherwise from the accumulated title chain.
func (b *Base) HandleFile(item *models.ScrapeItem, link *url.URL, filename, ext string) {
	folder := item.ParentTitle
	if item.Retry {
		folder = item.RetryPath
	}
	if b.Config.Output.BlockSubFolders {
		if idx := strings.Index(folder, "/"); idx >= 0 {
			folder = folder[:idx]
		}
	}

	media := models.NewMediaItem(link, item.URL, folder, filename, ext, lastSegment(item.URL), item.PossibleDatetime)
	b.Sink.HandleFile(media)
	b.Stats.AddQueuedMedia()

	b.Logger.DebugWithFields("media item dispatched", map[string]interface{}{
		"site":     b.SiteKey,
		"url":      link.String(),
		"folder":   folder,
		"filename": filename,
	})
}

// lastSegment returns the final path segment of a URL
func lastSegment(u *url.URL) string {
	path := strings.TrimSuffix(u.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// failureReason maps an error to a stable counter key
func failureReason(err error) string {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return string(typed.Type)
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "unknown"
}
