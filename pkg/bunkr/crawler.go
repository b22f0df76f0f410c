package bunkr

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/errors"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/models"
	"mediagrab/pkg/ratelimit"
	"mediagrab/pkg/sanitize"
	"mediagrab/pkg/scraper"
)

// Selectors are pinned to the site's current markup and will need updates
// when the site changes.
const (
	albumTitleSelector = `h1[class*="font-bold"]`
	albumCardSelector  = `div[class*="grid-images_box"]`
	albumLinkSelector  = `a[class*="grid-images_box-link"]`
	albumDateSelector  = `p[class*="date"]`
	videoLinkSelector  = `a[class*="bg-blue-500"]`
	otherLinkSelector  = `a[class*="inline-flex"]`
)

// ddosGuardScope covers the primary domain and every subdomain
const ddosGuardScope = "https://*.bunkr.su"

// siteHosts matches the primary domain, its spelling variants and any
// subdomain of either.
var siteHosts = regexp.MustCompile(`(?:^|\.)bunkr{1,2}\.[a-z]{2,3}$`)

// Crawler resolves album, video and single-file pages
type Crawler struct {
	scraper.Base
}

// New creates the crawler wired to the engine's shared collaborators
func New(eng *scraper.Engine, httpClient *client.Client, cfg *config.Config) *Crawler {
	return &Crawler{
		Base: scraper.Base{
			SiteKey:  "bunkr",
			SiteName: "Bunkr",
			Client:   httpClient,
			Limiter:  ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window),
			Queue:    eng.Queue(),
			Tracker:  eng.Tracker(),
			Stats:    eng.Stats(),
			Sink:     eng.Sink(),
			Config:   cfg,
			Logger:   logger.GetLogger(),
		},
	}
}

// Matches reports whether the crawler handles URLs on the given host
func (c *Crawler) Matches(host string) bool {
	return siteHosts.MatchString(host)
}

// Fetch classifies the item by URL path and dispatches to the matching
// handler: /a/ albums, /v/ videos, everything else a single file.
func (c *Crawler) Fetch(ctx context.Context, item *models.ScrapeItem) {
	item.URL = StreamLink(item.URL)

	c.PrimeCookies(ddosGuardScope, map[string]string{
		"__ddg1_":  "ddg1",
		"__ddg2_":  "ddg2",
		"__ddgid_": "ddgid",
	})

	c.Run(item, func() error {
		switch {
		case hasPathPart(item.URL, "a"):
			return c.album(ctx, item)
		case hasPathPart(item.URL, "v"):
			return c.video(ctx, item)
		default:
			return c.other(ctx, item)
		}
	})
}

// album scrapes a listing page, merges its title into the item's folder
// chain and enqueues one child item per listing entry.
func (c *Crawler) album(ctx context.Context, item *models.ScrapeItem) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	doc, err := c.Client.Document(ctx, c.SiteKey, item.URL)
	if err != nil {
		return err
	}

	titleNode := doc.Find(albumTitleSelector).First()
	if titleNode.Length() == 0 {
		return &errors.Error{Type: errors.ErrorTypeParse, Message: "album title not found"}
	}
	// strip decorative counters nested inside the heading
	titleNode.Find("span").Remove()

	title := c.CreateTitle(strings.TrimSpace(titleNode.Text()), albumID(item.URL))
	item.AddToParentTitle(title)

	doc.Find(albumCardSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(albumLinkSelector).First().Attr("href")
		if !ok {
			return
		}
		link, err := resolveLink(item.URL, href)
		if err != nil {
			return
		}

		var datetime int64
		if dateText := card.Find(albumDateSelector).First().Text(); dateText != "" {
			if parsed, err := ParseDatetime(dateText); err == nil {
				datetime = parsed
			}
		}

		c.Enqueue(item.Child(StreamLink(link), true, datetime))
	})
	return nil
}

// video scrapes a single-video page
func (c *Crawler) video(ctx context.Context, item *models.ScrapeItem) error {
	return c.singleFile(ctx, item, videoLinkSelector)
}

// other scrapes a single image or other file page
func (c *Crawler) other(ctx context.Context, item *models.ScrapeItem) error {
	return c.singleFile(ctx, item, otherLinkSelector)
}

// singleFile extracts the final download anchor from a resource page and
// hands the file off. When the anchor's path segment carries no extension,
// the name falls back to the page URL's own segment.
func (c *Crawler) singleFile(ctx context.Context, item *models.ScrapeItem, selector string) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	doc, err := c.Client.Document(ctx, c.SiteKey, item.URL)
	if err != nil {
		return err
	}

	anchors := doc.Find(selector)
	href, ok := anchors.Last().Attr("href")
	if !ok {
		return &errors.Error{Type: errors.ErrorTypeParse, Message: "download link not found"}
	}
	link, err := resolveLink(item.URL, href)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeParse, Message: "invalid download link: " + href}
	}

	filename, ext, err := sanitize.FilenameAndExt(link.Path)
	if errors.IsNoExtension(err) {
		filename, ext, err = sanitize.FilenameAndExt(item.URL.Path)
	}
	if err != nil {
		return err
	}

	c.HandleFile(item, link, filename, ext)
	return nil
}

// resolveLink parses an href, resolving root-relative links against the
// page's host.
func resolveLink(page *url.URL, href string) (*url.URL, error) {
	if strings.HasPrefix(href, "/") {
		return url.Parse("https://" + page.Host + href)
	}
	return url.Parse(href)
}

// albumID returns the identifier segment following /a/ in an album URL
func albumID(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "a" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// hasPathPart reports whether a URL path contains the given segment
func hasPathPart(u *url.URL, segment string) bool {
	for _, part := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

var _ scraper.Crawler = (*Crawler)(nil)
