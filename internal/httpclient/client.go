// Package httpclient provides resilient acquisition of provider resources.
//
// One logical fetch is routed through an ordered chain of transport
// strategies (rewrite proxy, direct, local relay, public CORS proxies),
// retried with exponential backoff, paced by a FIFO concurrency limiter, and
// interpreted exactly once into a tagged Body. Responses are transparently
// decompressed (gzip, deflate, brotli) and logged with credential
// obfuscation.
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// ErrFetchFailed is returned when a fetch exhausted its retry budget.
var ErrFetchFailed = errors.New("fetch failed")

// Default configuration values.
const (
	DefaultTimeout              = 45 * time.Second
	DefaultRetryAttempts        = 3
	DefaultRetryDelay           = 1 * time.Second
	DefaultRetryMaxDelay        = 30 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
)

// HTTP header constants.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// Config holds the configuration for the fetcher.
type Config struct {
	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int

	// RetryDelay is the initial delay before the first retry.
	RetryDelay time.Duration

	// RetryMaxDelay caps the exponential backoff delay.
	RetryMaxDelay time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// MaxConcurrent caps in-flight upstream requests.
	MaxConcurrent int

	// MinInterval is the minimum spacing between upstream requests.
	MinInterval time.Duration

	// RewriteProxyURL is the dedicated rewrite proxy endpoint, if any.
	RewriteProxyURL string

	// CORSProxies are generic public proxy prefixes tried last.
	CORSProxies []string

	// Relay is an optional local relay collaborator.
	Relay Relay

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Logger is the structured logger for request/response logging.
	Logger *slog.Logger

	// BaseClient is the underlying http.Client to use.
	// If nil, a default client is created.
	BaseClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		RetryAttempts:     DefaultRetryAttempts,
		RetryDelay:        DefaultRetryDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxConcurrent:     DefaultMaxConcurrent,
		MinInterval:       DefaultMinInterval,
		Logger:            slog.Default(),
	}
}

// Fetcher acquires provider resources with retries, pacing, and transport
// fallback.
type Fetcher struct {
	config  Config
	chain   *chain
	limiter *Limiter
	logger  *slog.Logger
}

// New creates a new fetcher with the given configuration.
func New(cfg Config) *Fetcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	baseClient := cfg.BaseClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Fetcher{
		config: cfg,
		chain: &chain{
			client:          baseClient,
			rewriteProxyURL: cfg.RewriteProxyURL,
			corsProxies:     cfg.CORSProxies,
			relay:           cfg.Relay,
			userAgent:       cfg.UserAgent,
			logger:          cfg.Logger,
		},
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MinInterval),
		logger:  cfg.Logger,
	}
}

// NewWithDefaults creates a new fetcher with default configuration.
func NewWithDefaults() *Fetcher {
	return New(DefaultConfig())
}

// Fetch acquires the requested resource, retrying with exponential backoff
// until the retry budget is exhausted. Every attempt holds a limiter slot for
// its full duration. Guide documents take one unretried direct attempt before
// entering the generic fallback path; providers usually serve their guide
// endpoint unproxied, and skipping the chain avoids burning proxy quota on it.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Body, error) {
	if req.Kind == ResourceGuide {
		body, err := f.attempt(ctx, req, f.chain.direct)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		f.logger.Debug("direct guide fetch failed, entering fallback path",
			slog.String("url", obfuscateURL(req.URL)),
			slog.String("error", err.Error()),
		)
	}

	var lastErr error
	delay := f.config.RetryDelay

	for attempt := 0; attempt <= f.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			f.logger.Debug("retrying fetch",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", obfuscateURL(req.URL)),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * f.config.BackoffMultiplier)
			if delay > f.config.RetryMaxDelay {
				delay = f.config.RetryMaxDelay
			}
		}

		body, err := f.attempt(ctx, req, f.chain.do)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, obfuscateURL(req.URL), lastErr)
}

// attempt runs one chain invocation inside a limiter slot.
func (f *Fetcher) attempt(ctx context.Context, req Request, via func(context.Context, Request) (*Body, error)) (*Body, error) {
	slot, err := f.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer slot.Release()

	start := time.Now()
	body, err := via(ctx, req)
	duration := time.Since(start)

	if err != nil {
		f.logger.Warn("fetch attempt failed",
			slog.String("url", obfuscateURL(req.URL)),
			slog.String("kind", req.Kind.String()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	f.logger.Debug("fetch completed",
		slog.String("url", obfuscateURL(req.URL)),
		slog.String("kind", req.Kind.String()),
		slog.Duration("duration", duration),
		slog.Int("bytes", len(body.Raw)),
	)
	return body, nil
}

// Limiter exposes the fetcher's limiter for introspection in tests and health
// reporting.
func (f *Fetcher) Limiter() *Limiter {
	return f.limiter
}

// wrapDecompression wraps the response body with appropriate decompression.
func wrapDecompression(resp *http.Response, logger *slog.Logger) io.ReadCloser {
	encoding := resp.Header.Get(HeaderContentEncoding)
	if encoding == "" {
		return resp.Body
	}

	switch strings.ToLower(encoding) {
	case EncodingGzip:
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			logger.Warn("failed to create gzip reader, returning raw body",
				slog.String("error", err.Error()),
			)
			return resp.Body
		}
		return &decompressReader{reader: reader, closer: resp.Body}

	case EncodingDeflate:
		return &decompressReader{reader: flate.NewReader(resp.Body), closer: resp.Body}

	case EncodingBrotli:
		return &decompressReader{reader: brotli.NewReader(resp.Body), closer: resp.Body}

	default:
		logger.Debug("unknown content encoding, returning raw body",
			slog.String("encoding", encoding),
		)
		return resp.Body
	}
}

// decompressReader wraps a decompression reader with the original body closer.
type decompressReader struct {
	reader io.Reader
	closer io.Closer
}

func (d *decompressReader) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReader) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.closer.Close()
}

// obfuscateURL returns a URL string with sensitive query parameters obfuscated.
func obfuscateURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := u.Query()
	sensitiveParams := []string{
		"password", "passwd", "pass", "pwd",
		"token", "api_key", "apikey", "key",
		"secret", "auth", "authorization",
		"credential", "credentials",
	}
	changed := false
	for _, param := range sensitiveParams {
		if query.Has(param) {
			query.Set(param, "***")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = query.Encode()
	return u.String()
}
