// Package discover determines how many versions of a bulletin exist.
package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/series"
)

// versionsMarker is the literal label preceding the version anchors on the
// product page.
const versionsMarker = "Versions:"

// ErrDiscoveryFailed signals that the version range could not be determined.
// It is fatal to a harvest: no fetch tasks are dispatched without it.
var ErrDiscoveryFailed = errors.New("version discovery failed")

// Discoverer queries the listing view of a product series once per harvest.
// Discovery is deliberately not retried here; a caller that wants retries
// owns that policy.
type Discoverer struct {
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Discoverer.
func New(userAgent string, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(colly.UserAgent(userAgent))
	base.AllowURLRevisit = true
	return &Discoverer{base: base, logger: logger}
}

// MaxVersion fetches the series listing and returns the highest available
// version identifier. Versions are dense: every identifier in [1, max] is
// expected to exist.
func (d *Discoverer) MaxVersion(ctx context.Context, s series.Series) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}

	url := s.ListingURL()
	body, err := d.get(url)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch listing %s: %v", ErrDiscoveryFailed, url, err)
	}

	max, err := parseMaxVersion(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}

	d.logger.Info("discovered version range",
		zap.String("series", s.Name),
		zap.Int("max_version", max),
	)
	return max, nil
}

func (d *Discoverer) get(url string) ([]byte, error) {
	collector := d.base.Clone()

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

// parseMaxVersion locates the container labeled with the versions marker and
// reads the last anchor, which carries the highest version number. Zero or
// unparsable markers are an error, never an empty range.
func parseMaxVersion(body []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse listing page: %v", err)
	}

	max := 0
	doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if !strings.Contains(div.Text(), versionsMarker) {
			return true
		}
		links := div.Find("a")
		if links.Length() == 0 {
			return true
		}
		last := strings.TrimSpace(links.Last().Text())
		n, aerr := strconv.Atoi(last)
		if aerr != nil {
			return true
		}
		max = n
		return false
	})

	if max <= 0 {
		return 0, errors.New("no version markers found in listing")
	}
	return max, nil
}
