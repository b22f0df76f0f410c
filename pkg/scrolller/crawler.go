package scrolller

import (
	"context"
	"net/url"
	"strings"

	"mediagrab/pkg/client"
	"mediagrab/pkg/config"
	"mediagrab/pkg/errors"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/models"
	"mediagrab/pkg/ratelimit"
	"mediagrab/pkg/sanitize"
	"mediagrab/pkg/scraper"
)

const apiEndpoint = "https://api.scrolller.com/api/v2/graphql"

const subredditQuery = `
query SubredditQuery(
    $url: String!
    $filter: SubredditPostFilter
    $iterator: String
) {
    getSubreddit(url: $url) {
        title
        children(
            limit: 10000
            iterator: $iterator
            filter: $filter
            disabledHosts: null
        ) {
            iterator
            items {
                title
                mediaSources {
                    url
                }
            }
        }
    }
}`

// Crawler resolves subreddit listings through the site's GraphQL API
type Crawler struct {
	scraper.Base
	api *url.URL
}

// New creates the crawler wired to the engine's shared collaborators
func New(eng *scraper.Engine, httpClient *client.Client, cfg *config.Config) *Crawler {
	api, _ := url.Parse(apiEndpoint)
	return &Crawler{
		Base: scraper.Base{
			SiteKey:  "scrolller",
			SiteName: "Scrolller",
			Client:   httpClient,
			Limiter:  ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window),
			Queue:    eng.Queue(),
			Tracker:  eng.Tracker(),
			Stats:    eng.Stats(),
			Sink:     eng.Sink(),
			Config:   cfg,
			Logger:   logger.GetLogger(),
		},
		api: api,
	}
}

// Matches reports whether the crawler handles URLs on the given host
func (c *Crawler) Matches(host string) bool {
	return host == "scrolller.com" || strings.HasSuffix(host, ".scrolller.com")
}

// Fetch dispatches subreddit listing URLs; anything else is unsupported
func (c *Crawler) Fetch(ctx context.Context, item *models.ScrapeItem) {
	c.Run(item, func() error {
		if hasPathPart(item.URL, "r") {
			return c.subreddit(ctx, item)
		}
		return &errors.Error{Type: errors.ErrorTypeNotFound, Message: "unsupported url: " + item.URL.String()}
	})
}

type subredditResponse struct {
	Data struct {
		GetSubreddit struct {
			Title    string `json:"title"`
			Children struct {
				Iterator *string `json:"iterator"`
				Items    []struct {
					Title        string `json:"title"`
					MediaSources []struct {
						URL string `json:"url"`
					} `json:"mediaSources"`
				} `json:"items"`
			} `json:"children"`
		} `json:"getSubreddit"`
	} `json:"data"`
}

// subreddit pages through a subreddit's media, following the API iterator
// until it stops advancing. Each item's highest-resolution source becomes
// one dispatched file.
func (c *Crawler) subreddit(ctx context.Context, item *models.ScrapeItem) error {
	name := lastPathPart(item.URL)
	item.AddToParentTitle(c.CreateTitle(name, ""))
	item.PartOfAlbum = true

	variables := map[string]interface{}{
		"url":    "/r/" + name,
		"filter": nil,
	}

	var iterator *string
	for {
		variables["iterator"] = iterator

		if err := c.Acquire(ctx); err != nil {
			return err
		}
		var resp subredditResponse
		body := map[string]interface{}{"query": subredditQuery, "variables": variables}
		if err := c.Client.PostJSON(ctx, c.SiteKey, c.api, body, &resp); err != nil {
			return err
		}

		children := resp.Data.GetSubreddit.Children
		for _, entry := range children.Items {
			if len(entry.MediaSources) == 0 {
				continue
			}
			// sources are ordered ascending by resolution
			link, err := url.Parse(entry.MediaSources[len(entry.MediaSources)-1].URL)
			if err != nil {
				continue
			}
			filename, ext, err := sanitize.FilenameAndExt(link.Path)
			if err != nil {
				c.Logger.DebugWithFields("skipping source without extension", map[string]interface{}{
					"site": c.SiteKey,
					"url":  link.String(),
				})
				continue
			}
			c.HandleFile(item, link, filename, ext)
		}

		prev := iterator
		iterator = children.Iterator
		if len(children.Items) == 0 || iteratorsEqual(prev, iterator) {
			break
		}
	}
	return nil
}

// iteratorsEqual reports whether the paging cursor stopped advancing
func iteratorsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hasPathPart(u *url.URL, segment string) bool {
	for _, part := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

func lastPathPart(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return parts[len(parts)-1]
}

var _ scraper.Crawler = (*Crawler)(nil)
