// Package streamfetcher implements the streamed word count strategy: the
// response body is decoded and folded into a tally chunk by chunk, so memory
// use is bounded by the chunk size rather than the document size.
package streamfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wordcount-api/internal/fetcher"
	"github.com/JakeFAU/wordcount-api/internal/metrics"
	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/textnorm"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

// errIdleTimeout cancels a fetch when the server sends nothing for a full
// timeout period. It bounds stalls, not document size.
var errIdleTimeout = errors.New("no response data within fetch timeout")

// Fetcher streams documents over net/http.
type Fetcher struct {
	cfg    fetcher.Config
	client *http.Client
	logger *zap.Logger
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
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		logger: logger,
	}, nil
}

// Acquire fetches url and folds its body into a fresh tally. The timeout
// applies to the response headers and then to each gap between body reads.
// A failure at any point discards the partial tally.
func (f *Fetcher) Acquire(ctx context.Context, url string, opts textnorm.Options) (*tally.Tally, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(f.cfg.Timeout, func() { cancel(errIdleTimeout) })
	defer idle.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &wordcount.FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &wordcount.FetchError{URL: url, Err: fmt.Errorf("http get: %w", withCause(ctx, err))}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Debug("response body close failed", zap.String("url", url), zap.Error(cerr))
		}
	}()

	if err := fetcher.CheckStatus(url, resp.StatusCode); err != nil {
		return nil, err
	}

	src := &countingReader{r: resp.Body, onData: func() { idle.Reset(f.cfg.Timeout) }}
	decoded, err := fetcher.DecodeReader(src, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, classify(ctx, url, err, src)
	}

	counts, err := tally.Fold(Chunks(decoded, f.cfg.ChunkSize), opts, tally.New())
	if err != nil {
		return nil, classify(ctx, url, err, src)
	}
	// The charset sniffer treats a short first read as end of input, which
	// can hide a transport error from the fold.
	if src.err != nil {
		return nil, classify(ctx, url, io.ErrUnexpectedEOF, src)
	}
	f.logger.Debug("document streamed", zap.String("url", url), zap.Int64("bytes", src.n))
	return counts, nil
}

// Chunks returns a pull sequence over r in reads of at most size bytes. The
// yielded slice is reused, so consumers must not retain it. A read error is
// yielded once and ends the sequence.
func Chunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = fetcher.DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				metrics.ObserveStreamChunk(n)
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// countingReader tracks raw bytes read and remembers the first transport error,
// which separates network failures from decoding failures downstream.
type countingReader struct {
	r      io.Reader
	n      int64
	err    error
	onData func()
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if n > 0 && c.onData != nil {
		c.onData()
	}
	if err != nil && !errors.Is(err, io.EOF) && c.err == nil {
		c.err = err
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}

func classify(ctx context.Context, url string, err error, src *countingReader) error {
	if src.err != nil {
		return &wordcount.FetchError{URL: url, Err: fmt.Errorf("read body: %w", withCause(ctx, src.err))}
	}
	return &wordcount.ProcessingError{URL: url, Err: fmt.Errorf("decode body: %w", err)}
}

// withCause attaches the idle timeout to err when it is why ctx ended.
func withCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, errIdleTimeout) {
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}
