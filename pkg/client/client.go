package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"mediagrab/pkg/errors"
	"mediagrab/pkg/logger"
)

// Client is the shared HTTP collaborator: page fetching with HTML parsing,
// JSON APIs, raw downloads, and a cookie store shared by all crawlers.
type Client struct {
	httpClient *http.Client
	jar        *cookiejar.Jar
	headers    map[string]string
	logger     logger.Logger
}

// New creates a client with a cookie jar and default browser-like headers
func New(timeout time.Duration, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		jar: jar,
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: log,
	}, nil
}

// SetHeader sets a default header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// UpdateCookies injects named cookie values scoped to scopeURL. A host of the
// form "*.example.com" scopes the cookies to the domain and all subdomains.
// Empty values are skipped individually.
func (c *Client) UpdateCookies(values map[string]string, scopeURL string) error {
	u, err := url.Parse(scopeURL)
	if err != nil {
		return fmt.Errorf("invalid cookie scope url: %w", err)
	}

	host := u.Hostname()
	wildcard := strings.HasPrefix(host, "*.")
	if wildcard {
		host = strings.TrimPrefix(host, "*.")
	}

	cookies := make([]*http.Cookie, 0, len(values))
	for name, value := range values {
		if value == "" {
			continue
		}
		cookie := &http.Cookie{Name: name, Value: value, Path: "/"}
		if wildcard {
			// A Domain attribute makes the cookie cover all subdomains.
			cookie.Domain = host
		}
		cookies = append(cookies, cookie)
	}
	if len(cookies) == 0 {
		return nil
	}

	scope := &url.URL{Scheme: "https", Host: host, Path: "/"}
	c.jar.SetCookies(scope, cookies)

	c.logger.DebugWithFields("cookies updated", map[string]interface{}{
		"host":     host,
		"wildcard": wildcard,
		"count":    len(cookies),
	})
	return nil
}

// Cookies returns the stored cookies that would be sent to the given URL
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// Get performs a GET request with the client's default headers plus extras
func (c *Client) Get(ctx context.Context, rawURL string, extra map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	return c.do(req, extra)
}

func (c *Client) do(req *http.Request, extra map[string]string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
			"error":  err.Error(),
		})
		return nil, &errors.Error{Type: errors.ErrorTypeNetwork, Message: fmt.Sprintf("network error: %v", err)}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})
	return resp, nil
}

// Document fetches a page and parses it into a goquery document. The domain
// is the site key of the requesting crawler, carried for log context.
func (c *Client) Document(ctx context.Context, domain string, pageURL *url.URL) (*goquery.Document, error) {
	resp, err := c.Get(ctx, pageURL.String(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		c.logger.WarnWithFields("page fetch rejected", map[string]interface{}{
			"domain": domain,
			"url":    pageURL.String(),
			"status": resp.StatusCode,
		})
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParse,
			Message: fmt.Sprintf("failed to parse HTML: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return doc, nil
}

// JSON fetches a URL and decodes the JSON response into target
func (c *Client) JSON(ctx context.Context, domain string, apiURL *url.URL, target interface{}, extra map[string]string) error {
	resp, err := c.Get(ctx, apiURL.String(), extra)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decodeJSON(domain, resp, target)
}

// PostJSON posts a JSON body and decodes the JSON response into target
func (c *Client) PostJSON(ctx context.Context, domain string, apiURL *url.URL, body interface{}, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("failed to encode request body: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL.String(), bytes.NewReader(payload))
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	resp, err := c.do(req, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decodeJSON(domain, resp, target)
}

func (c *Client) decodeJSON(domain string, resp *http.Response, target interface{}) error {
	if err := checkStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeNetwork, Message: fmt.Sprintf("failed to read response body: %v", err), Code: resp.StatusCode}
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"domain":       domain,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errors.Error{Type: errors.ErrorTypeParse, Message: fmt.Sprintf("failed to parse JSON: %v", err), Code: resp.StatusCode}
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &errors.Error{Type: errors.ErrorTypeAuth, Message: "authentication required", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &errors.Error{Type: errors.ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &errors.Error{Type: errors.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &errors.Error{Type: errors.ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode), Code: resp.StatusCode}
	default:
		return nil
	}
}
