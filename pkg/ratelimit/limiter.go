package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter bounds the rate of outbound requests
type Limiter interface {
	// Allow checks if a request is allowed right now without blocking
	Allow() bool
	// Wait blocks until the limiter admits another request or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state
	Reset()
}

// TokenBucket implements a token bucket limiter: the bucket holds capacity
// tokens and refills completely every refill period.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		pause := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()
		if pause <= 0 {
			pause = 10 * time.Millisecond
		}

		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

func (tb *TokenBucket) refill() {
	if time.Since(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
}

// SlidingWindow admits at most maxRequests within any window of windowSize.
// This is the per-crawler request limiter (default 10 ops per second).
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		var pause time.Duration
		if len(sw.requests) > 0 {
			pause = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()
		if pause <= 0 {
			pause = 10 * time.Millisecond
		}

		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// evict drops requests that have fallen out of the window. Caller holds mu.
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// DomainLimiter enforces a per-host request rate, creating one token-bucket
// limiter per domain on first use.
type DomainLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter admitting requests per window for each host
func NewDomainLimiter(requests int, window time.Duration) *DomainLimiter {
	return &DomainLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's limiter admits a request or ctx is done
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d == nil || host == "" || d.requests <= 0 {
		return nil
	}
	host = strings.ToLower(host)

	d.mu.Lock()
	limiter, ok := d.limiters[host]
	if !ok {
		interval := d.window / time.Duration(d.requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		limiter = rate.NewLimiter(rate.Every(interval), d.requests)
		d.limiters[host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
