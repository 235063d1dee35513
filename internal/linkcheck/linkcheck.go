// Package linkcheck probes bookmark URLs and sorts them into healthy, dead
// and unreachable.
package linkcheck

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/model"
)

type Status int

const (
	Healthy     Status = iota // 2xx or 3xx
	Dead                      // 404 or 410
	Unreachable               // transport failure or any other status
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "ok"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 8
	maxRedirects       = 10
)

type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int    // 0 when no response arrived
	Reason     string // short cause for Unreachable
}

// ProgressFunc is called after each URL; calls are serialized.
type ProgressFunc func(done, total int)

type Options struct {
	Timeout     time.Duration
	Concurrency int
	// PrivateDomains report 404s as "possibly private" instead of dead,
	// subdomains included.
	PrivateDomains []string
	Client         *http.Client
	Limiter        *rate.Limiter
	Logger         logger.Logger
	OnProgress     ProgressFunc
}

type Checker struct {
	client      *http.Client
	concurrency int
	private     []string
	limiter     *rate.Limiter
	log         logger.Logger
	progress    ProgressFunc
}

func New(opts Options) *Checker {
	c := &Checker{
		client:      opts.Client,
		concurrency: opts.Concurrency,
		limiter:     opts.Limiter,
		log:         opts.Logger,
		progress:    opts.OnProgress,
	}
	for _, d := range opts.PrivateDomains {
		c.private = append(c.private, strings.ToLower(strings.TrimSpace(d)))
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// Check probes every bookmark with a URL. Results keep input order.
// Cancelling ctx stops the remaining probes and returns ctx's error.
func (c *Checker) Check(ctx context.Context, bookmarks []model.Bookmark) ([]Result, error) {
	var targets []model.Bookmark
	for _, b := range bookmarks {
		if strings.TrimSpace(b.URL) != "" {
			targets = append(targets, b)
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	results := make([]Result, len(targets))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, b := range targets {
		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			results[i] = c.probe(gctx, b)

			if c.progress != nil {
				mu.Lock()
				done++
				c.progress(done, len(targets))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Checker) probe(ctx context.Context, b model.Bookmark) Result {
	res := Result{Bookmark: b}

	// some servers reject HEAD, so fall back to GET
	resp, err := c.do(ctx, http.MethodHead, b.URL)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = c.do(ctx, http.MethodGet, b.URL)
	}
	if err != nil {
		c.log.Debug("link unreachable", logger.String("url", b.URL), logger.Error(err))
		res.Status = Unreachable
		res.Reason = reason(err)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		res.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if c.isPrivate(b.URL) {
			res.Status = Unreachable
			res.Reason = "possibly private"
		} else {
			res.Status = Dead
		}
	default:
		// 5xx and auth walls may be temporary
		res.Status = Unreachable
		res.Reason = http.StatusText(resp.StatusCode)
	}
	return res
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *Checker) isPrivate(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range c.private {
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return true
		}
	}
	return false
}

// reason shortens transport errors to a category.
func reason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"):
		return "dns failure"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection refused"):
		return "connection refused"
	case strings.Contains(msg, "certificate"), strings.Contains(msg, "tls:"):
		return "tls error"
	case strings.Contains(msg, "unsupported protocol scheme"):
		return "not a web address"
	default:
		return err.Error()
	}
}
