// Package fetch retrieves individual bulletin versions over HTTP.
//
// Each version is fetched with a bounded retry budget: transient network
// errors are retried after a fixed backoff, while a structurally valid page
// that lacks the bulletin text is surfaced immediately, since retrying cannot
// make the marker appear.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/series"
)

// contentSelector matches the preformatted element carrying the bulletin text.
const contentSelector = "pre.glossaryProduct"

// Sentinel errors classifying fetch failures.
var (
	// ErrNetwork marks a transient transport failure that exhausted the
	// retry budget.
	ErrNetwork = errors.New("network error")
	// ErrContentNotFound marks a well-formed response without the bulletin
	// content element. It is never retried.
	ErrContentNotFound = errors.New("content not found")
)

// Config controls retrieval behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Attempts  int
	Backoff   time.Duration
}

// Outcome is the immutable result of fetching one version.
type Outcome struct {
	Version  int
	Content  string
	Bytes    int
	Elapsed  time.Duration
	Attempts int
	Err      error
}

// OK reports whether the fetch produced content.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Client fetches bulletin versions for a single series. It holds no mutable
// state; any number of Fetch calls may run concurrently.
type Client struct {
	cfg    Config
	series series.Series
	base   *colly.Collector
	logger *zap.Logger
}

// NewClient builds a Client bound to one series.
func NewClient(cfg Config, s series.Series, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:    cfg,
		series: s,
		base:   base,
		logger: logger,
	}
}

// Fetch retrieves one version, retrying transient errors up to the configured
// budget with a fixed backoff between attempts. The per-attempt request runs
// to completion under its own timeout; ctx is only consulted between attempts
// so in-flight requests drain rather than abort.
func (c *Client) Fetch(ctx context.Context, version int) Outcome {
	url := c.series.VersionURL(version)
	out := Outcome{Version: version}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		out.Attempts = attempt
		start := time.Now()
		body, err := c.attempt(url)
		elapsed := time.Since(start)

		if err == nil {
			content, perr := extractContent(body)
			if perr != nil {
				out.Err = fmt.Errorf("version %d: %w", version, perr)
				return out
			}
			out.Content = content
			out.Bytes = len(content)
			out.Elapsed = elapsed
			return out
		}

		lastErr = err
		if attempt < c.cfg.Attempts {
			c.logger.Warn("fetch attempt failed, retrying",
				zap.Int("version", version),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if werr := sleep(ctx, c.cfg.Backoff); werr != nil {
				out.Err = fmt.Errorf("version %d: %w", version, werr)
				return out
			}
			continue
		}
	}

	out.Err = fmt.Errorf("version %d: %w after %d attempts: %v", version, ErrNetwork, c.cfg.Attempts, lastErr)
	return out
}

// attempt performs a single HTTP GET and returns the raw response body.
func (c *Client) attempt(url string) ([]byte, error) {
	collector := c.base.Clone()
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return nil, err
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

// extractContent parses the product page and pulls the bulletin text.
func extractContent(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse product page: %w", err)
	}
	sel := doc.Find(contentSelector)
	if sel.Length() == 0 {
		return "", ErrContentNotFound
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// sleep waits for the backoff interval unless ctx finishes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
