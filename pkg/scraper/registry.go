package scraper

import (
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Registry maps URL hosts to the crawler that serves them. Dispatch is a
// lookup against each crawler's host matcher, tried with the raw host first
// and the registrable domain (eTLD+1) second, so CDN and mirror subdomains
// land on the same crawler as the primary site.
type Registry struct {
	mu       sync.RWMutex
	crawlers []Crawler
}

// NewRegistry creates an empty crawler registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a crawler to the registry
func (r *Registry) Register(c Crawler) {
	r.mu.Lock()
	r.crawlers = append(r.crawlers, c)
	r.mu.Unlock()
}

// Lookup finds the crawler serving the given host
func (r *Registry) Lookup(host string) (Crawler, bool) {
	host = strings.ToLower(host)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.crawlers {
		if c.Matches(host) {
			return c, true
		}
	}

	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil && registrable != host {
		for _, c := range r.crawlers {
			if c.Matches(registrable) {
				return c, true
			}
		}
	}
	return nil, false
}
