// Package collyfetcher implements the whole-body word count strategy using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/wordcount-api/internal/fetcher"
	"github.com/JakeFAU/wordcount-api/internal/metrics"
	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/textnorm"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

// ErrBodyTooLarge reports a document over the configured max_body_bytes.
var ErrBodyTooLarge = errors.New("response body exceeds max_body_bytes")

// Fetcher buffers the full response body, then tallies it in one pass.
type Fetcher struct {
	cfg           fetcher.Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// visit captures what the collector callbacks observed for one request.
type visit struct {
	headersSeen bool
	statusCode  int
	body        []byte
	err         error
}

// New builds a Fetcher using transport; a nil transport gets a fresh pooled one.
func New(cfg fetcher.Config, transport http.RoundTripper, logger *zap.Logger) (*Fetcher, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if transport == nil {
		t, err := fetcher.NewTransport(cfg.EnableHTTP2)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	// Colly truncates at its limit without reporting it, so read one byte past
	// ours to tell an oversized body from one that fits exactly.
	bodyLimit := 0
	if cfg.MaxBodyBytes > 0 {
		bodyLimit = cfg.MaxBodyBytes + 1
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(bodyLimit),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{cfg: cfg, baseCollector: c, logger: logger}, nil
}

// Acquire fetches url and returns a fresh tally of its normalized words.
func (f *Fetcher) Acquire(ctx context.Context, url string, opts textnorm.Options) (*tally.Tally, error) {
	var v visit
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	configureCollectorHooks(collector, &v)

	if err := f.runCollector(ctx, collector, url, &v); err != nil {
		return nil, err
	}

	if f.cfg.MaxBodyBytes > 0 && len(v.body) > f.cfg.MaxBodyBytes {
		return nil, &wordcount.FetchError{
			URL:        url,
			StatusCode: v.statusCode,
			Err:        fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.cfg.MaxBodyBytes),
		}
	}

	body, err := fetcher.ValidUTF8(v.body)
	if err != nil {
		return nil, &wordcount.ProcessingError{URL: url, Err: err}
	}
	metrics.ObserveWholeBody(len(v.body))
	f.logger.Debug("document buffered", zap.String("url", url), zap.Int("bytes", len(v.body)))

	return tally.Process(string(body), opts, tally.New()), nil
}

func configureCollectorHooks(hooks collectorHooks, v *visit) {
	hooks.OnResponseHeaders(func(r *colly.Response) {
		v.headersSeen = true
		v.statusCode = r.StatusCode
	})

	hooks.OnResponse(func(r *colly.Response) {
		v.statusCode = r.StatusCode
		v.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			v.statusCode = r.StatusCode
		}
		v.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, v *visit) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &wordcount.FetchError{URL: url, Err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		return classify(url, err, v)
	}
}

// classify maps a finished visit onto the wordcount error taxonomy. Colly
// reports non-2xx responses through OnError; a Visit failure after headers
// arrived without an OnError call comes from charset conversion.
func classify(url string, visitErr error, v *visit) error {
	if v.statusCode != 0 {
		if err := fetcher.CheckStatus(url, v.statusCode); err != nil {
			var fe *wordcount.FetchError
			if errors.As(err, &fe) && v.err != nil {
				fe.Err = v.err
			}
			return err
		}
	}
	switch {
	case v.err != nil:
		return &wordcount.FetchError{URL: url, StatusCode: v.statusCode, Err: fmt.Errorf("colly response failed: %w", v.err)}
	case visitErr != nil && v.headersSeen:
		return &wordcount.ProcessingError{URL: url, Err: fmt.Errorf("decode body: %w", visitErr)}
	case visitErr != nil:
		return &wordcount.FetchError{URL: url, Err: fmt.Errorf("colly visit failed: %w", visitErr)}
	}
	return nil
}
