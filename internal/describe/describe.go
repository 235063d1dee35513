// Package describe looks up a short site description for a bookmark URL.
package describe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/model"
)

const (
	DefaultTimeout = 5 * time.Second

	// maxBodySize caps how much of a page is read looking for meta tags.
	maxBodySize = 2 << 20

	// maxDescriptionLen is exclusive, in characters.
	maxDescriptionLen = 200
)

// Describer returns a description for a URL, or "" when none is found.
type Describer interface {
	Describe(ctx context.Context, rawURL string) string
}

// Options configures a Fetcher.
type Options struct {
	// Proxy is a URL template with one %s for the query-escaped page URL.
	// Empty fetches the page directly.
	Proxy   string
	Timeout time.Duration
	Client  *http.Client
	Cache   Cache
	// Limiter paces outbound fetches. Nil means unlimited.
	Limiter *rate.Limiter
	Logger  logger.Logger
}

// Fetcher fetches pages and extracts their meta description. Results,
// including failures, are cached per hostname, and concurrent lookups of
// the same host share one request.
type Fetcher struct {
	proxy   string
	timeout time.Duration
	client  *http.Client
	cache   Cache
	limiter *rate.Limiter
	log     logger.Logger
	group   singleflight.Group
}

var _ Describer = (*Fetcher)(nil)

// New creates a Fetcher. Missing options get defaults.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		proxy:   opts.Proxy,
		timeout: opts.Timeout,
		client:  opts.Client,
		cache:   opts.Cache,
		limiter: opts.Limiter,
		log:     opts.Logger,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.cache == nil {
		f.cache = NewMemoryCache(1024)
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	return f
}

// Describe returns the cached or freshly fetched description for rawURL.
// It never fails; any problem yields "".
func (f *Fetcher) Describe(ctx context.Context, rawURL string) string {
	host := model.Hostname(rawURL)

	if desc, ok, err := f.cache.Get(ctx, host); err != nil {
		f.log.Debug("describe cache get failed", logger.String("host", host), logger.Error(err))
	} else if ok {
		return desc
	}

	// The shared fetch outlives any single caller; f.timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(host, func() (interface{}, error) {
		desc, err := f.fetch(fetchCtx, rawURL)
		if err != nil {
			f.log.Debug("describe fetch failed",
				logger.String("url", rawURL),
				logger.Error(err))
			if errors.Is(err, context.Canceled) {
				return "", nil
			}
			desc = ""
		}
		if err := f.cache.Set(fetchCtx, host, desc); err != nil {
			f.log.Debug("describe cache set failed", logger.String("host", host), logger.Error(err))
		}
		return desc, nil
	})

	select {
	case r := <-ch:
		return r.Val.(string)
	case <-ctx.Done():
		return ""
	}
}

func (f *Fetcher) target(rawURL string) string {
	if f.proxy == "" {
		return rawURL
	}
	return fmt.Sprintf(f.proxy, url.QueryEscape(rawURL))
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.target(rawURL), http.NoBody)
	if err != nil {
		return "", err
	}
	setHeaders(req)

	start := time.Now()
	res, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return "", err
	}

	desc := Extract(doc)
	f.log.Debug("describe fetched",
		logger.String("url", rawURL),
		logger.Bool("found", desc != ""),
		logger.Duration("elapsed", time.Since(start)))
	return desc, nil
}

// Extract returns the first usable meta description of doc: a name
// "description" tag first, then an "og:description" property.
func Extract(doc *goquery.Document) string {
	candidates := []struct{ attr, value string }{
		{"name", "description"},
		{"property", "og:description"},
	}

	for _, c := range candidates {
		content := ""
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.EqualFold(strings.TrimSpace(s.AttrOr(c.attr, "")), c.value) {
				return true
			}
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return content == ""
		})

		if n := utf8.RuneCountInString(content); n > 0 && n < maxDescriptionLen {
			return content
		}
	}
	return ""
}

func setHeaders(r *http.Request) {
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0")
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// Nop never describes anything. It stands in when lookups are disabled.
type Nop struct{}

func (Nop) Describe(context.Context, string) string { return "" }
