// Package reviews counts keyword hits in the review search of business pages.
package reviews

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"github.com/rendis/yelptap/internal/engine/transport"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
)

// DefaultDelay is the pause between consecutive page requests.
const DefaultDelay = 500 * time.Millisecond

// DefaultKeywords are the review searches run per business.
var DefaultKeywords = []string{"fundraise", "nonprofit", "non profit", "non-profit", "charity"}

type Stats struct {
	BusinessesTotal atomic.Int64
	BusinessesDone  atomic.Int64
	Requests        atomic.Int64
	Hits            atomic.Int64
	Misses          atomic.Int64
}

type Options struct {
	// BaseURL, when set, replaces scheme and host of business page URLs.
	BaseURL  string
	Selector string
	Delay    time.Duration
	Timeout  time.Duration
	ProxyURL string
	// Transport replaces the Chrome-fingerprint transport, mostly for tests.
	Transport http.RoundTripper
	Logger    *log.Logger
	Stats     *Stats
	// OnBusiness is called after each business is scanned.
	OnBusiness func(b model.Business, count int)
}

// Scanner fetches review searches one at a time through a single paced
// collector; every request shares its limit rule.
type Scanner struct {
	collector  *colly.Collector
	baseURL    string
	selector   string
	logger     *log.Logger
	stats      *Stats
	onBusiness func(model.Business, int)
}

func NewScanner(opts Options) (*Scanner, error) {
	s := &Scanner{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		selector:   opts.Selector,
		logger:     opts.Logger,
		stats:      opts.Stats,
		onBusiness: opts.OnBusiness,
	}
	if s.selector == "" {
		s.selector = DefaultSelector
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.stats == nil {
		s.stats = &Stats{}
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	rt := opts.Transport
	if rt == nil {
		tr, err := transport.Browser(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		rt = tr
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
	}); err != nil {
		return nil, fmt.Errorf("setting limit rule: %w", err)
	}
	c.WithTransport(rt)
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	s.collector = c
	return s, nil
}

func (s *Scanner) Stats() *Stats {
	return s.stats
}

// Count sums the review-search result counts of one business page over
// keywords. A keyword whose page fails to load or lacks the header counts
// as zero.
func (s *Scanner) Count(ctx context.Context, pageURL string, keywords []string) (int, error) {
	total := 0
	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.countKeyword(pageURL, kw)
		if err != nil {
			s.stats.Misses.Add(1)
			s.logger.Printf("REVIEW miss url=%s keyword=%q err=%v", pageURL, kw, err)
			continue
		}
		s.stats.Hits.Add(1)
		s.logger.Printf("REVIEW url=%s keyword=%q count=%d", pageURL, kw, n)
		total += n
	}
	return total, nil
}

// ScanAll counts every distinct business in order and returns a table of
// summed review hits. Cancellation stops the scan between requests.
func (s *Scanner) ScanAll(ctx context.Context, businesses []model.Business, keywords []string) (*yelp.Table, error) {
	table := yelp.NewTable()
	seen := make(map[model.Key]bool, len(businesses))
	var todo []model.Business
	for _, b := range businesses {
		if seen[b.Key()] {
			continue
		}
		seen[b.Key()] = true
		todo = append(todo, b)
	}
	s.stats.BusinessesTotal.Store(int64(len(todo)))

	for _, b := range todo {
		n, err := s.Count(ctx, s.pageURL(b.URL), keywords)
		if err != nil {
			return nil, err
		}
		table.Add(b, n)
		s.stats.BusinessesDone.Add(1)
		if s.onBusiness != nil {
			s.onBusiness(b, n)
		}
	}
	return table, nil
}

func (s *Scanner) countKeyword(pageURL, keyword string) (int, error) {
	// Clones share the limit rule but not callbacks.
	c := s.collector.Clone()
	extensions.RandomUserAgent(c)

	var (
		count    int
		found    bool
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			parseErr = fmt.Errorf("parsing page: %w", err)
			return
		}
		count, found = ParseResultCount(doc, s.selector)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	s.stats.Requests.Add(1)
	if err := c.Visit(keywordURL(pageURL, keyword)); err != nil && visitErr == nil {
		visitErr = err
	}
	c.Wait()

	switch {
	case visitErr != nil:
		return 0, visitErr
	case parseErr != nil:
		return 0, parseErr
	case !found:
		return 0, fmt.Errorf("no match for %q", s.selector)
	}
	return count, nil
}

func (s *Scanner) pageURL(raw string) string {
	if s.baseURL == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return s.baseURL + u.EscapedPath()
}

func keywordURL(pageURL, keyword string) string {
	sep := "?"
	if strings.Contains(pageURL, "?") {
		sep = "&"
	}
	return pageURL + sep + url.Values{"q": {keyword}}.Encode()
}
