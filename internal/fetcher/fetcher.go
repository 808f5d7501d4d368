// Package fetcher holds the HTTP plumbing shared by the whole-body and
// streamed word count strategies.
package fetcher

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/http2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

const (
	// DefaultTimeout bounds a whole-body fetch, and each wait for data when streaming.
	DefaultTimeout = 30 * time.Second
	// DefaultChunkSize is the streamed read size.
	DefaultChunkSize = 32 * 1024
	// DefaultMaxBodyBytes caps buffered bodies.
	DefaultMaxBodyBytes = 10 * 1024 * 1024
)

// Config controls both fetch strategies.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps the whole-body strategy; larger documents fail rather
	// than being counted in part. Zero means unlimited.
	MaxBodyBytes int
	ChunkSize    int
	EnableHTTP2  bool
}

// WithDefaults fills zero timeouts and chunk sizes.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// NewTransport returns a pooled transport, upgraded for HTTP/2 over TLS when enabled.
func NewTransport(enableHTTP2 bool) (*http.Transport, error) {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if enableHTTP2 {
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, fmt.Errorf("configure http2 transport: %w", err)
		}
	}
	return t, nil
}

// CheckStatus returns a FetchError for any non-2xx status.
func CheckStatus(url string, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &wordcount.FetchError{
		URL:        url,
		StatusCode: code,
		Err:        fmt.Errorf("unexpected status %q", http.StatusText(code)),
	}
}

// DecodeReader wraps body so it yields valid UTF-8. The source encoding comes
// from the Content-Type charset, else from sniffing the first KiB. Invalid
// byte sequences become U+FFFD.
func DecodeReader(body io.Reader, contentType string) (io.Reader, error) {
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("charset reader: %w", err)
	}
	return transform.NewReader(decoded, unicode.UTF8.NewDecoder()), nil
}

// ValidUTF8 replaces invalid UTF-8 sequences in an already decoded body.
func ValidUTF8(body []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("utf-8 decode: %w", err)
	}
	return out, nil
}
