package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// ErrTransportExhausted is returned when every applicable transport strategy
// failed for a single logical request.
var ErrTransportExhausted = errors.New("all transport strategies exhausted")

// ResourceKind identifies what a request is fetching. The guide kind gets
// special routing: direct-first strategy order and an XML body tag.
type ResourceKind int

const (
	// ResourceAPI is a provider JSON API call (player_api.php and friends).
	ResourceAPI ResourceKind = iota
	// ResourcePlaylist is a raw M3U playlist document.
	ResourcePlaylist
	// ResourceGuide is an XMLTV guide document.
	ResourceGuide
)

func (k ResourceKind) String() string {
	switch k {
	case ResourcePlaylist:
		return "playlist"
	case ResourceGuide:
		return "guide"
	default:
		return "api"
	}
}

// Request describes one logical fetch routed through the fallback chain.
type Request struct {
	URL    string
	Kind   ResourceKind
	Header http.Header
}

// RelayResult is the response surface a local relay collaborator produces.
type RelayResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Relay is an optional local relay collaborator consulted after proxied and
// direct attempts fail. Implementations typically tunnel the request through
// a co-located service that is exempt from upstream blocking.
type Relay interface {
	Get(ctx context.Context, rawURL string, header http.Header) (*RelayResult, error)
}

// strategy is one way of physically reaching the target URL.
type strategy struct {
	name string
	do   func(ctx context.Context, req Request) (*Body, error)
}

// chain executes transport strategies in order until one yields a usable body.
type chain struct {
	client          *http.Client
	rewriteProxyURL string
	corsProxies     []string
	relay           Relay
	userAgent       string
	logger          *slog.Logger
}

// do runs the applicable strategies for the request's resource kind in order,
// returning the first successful body. Guide requests lead with the direct
// strategy; everything else tries the rewrite proxy first.
func (c *chain) do(ctx context.Context, req Request) (*Body, error) {
	var lastErr error
	for _, s := range c.strategies(req.Kind) {
		body, err := s.do(ctx, req)
		if err == nil {
			c.logger.Debug("transport strategy succeeded",
				slog.String("strategy", s.name),
				slog.String("kind", req.Kind.String()),
				slog.String("url", obfuscateURL(req.URL)),
				slog.String("body_kind", body.Kind.String()),
			)
			return body, nil
		}
		lastErr = err
		c.logger.Debug("transport strategy failed",
			slog.String("strategy", s.name),
			slog.String("url", obfuscateURL(req.URL)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no transport strategies configured")
	}
	return nil, fmt.Errorf("%w: %w", ErrTransportExhausted, lastErr)
}

// direct runs only the direct strategy. Used for the guide fast path.
func (c *chain) direct(ctx context.Context, req Request) (*Body, error) {
	return c.doDirect(ctx, req)
}

func (c *chain) strategies(kind ResourceKind) []strategy {
	direct := strategy{"direct", c.doDirect}
	var out []strategy

	if kind == ResourceGuide {
		out = append(out, direct)
	}
	if c.rewriteProxyURL != "" {
		out = append(out, strategy{"rewrite_proxy", c.doRewriteProxy})
	}
	if kind != ResourceGuide {
		out = append(out, direct)
	}
	if c.relay != nil {
		out = append(out, strategy{"relay", c.doRelay})
	}
	for i, prefix := range c.corsProxies {
		p := prefix
		out = append(out, strategy{
			name: fmt.Sprintf("cors_proxy_%d", i),
			do: func(ctx context.Context, req Request) (*Body, error) {
				return c.doVia(ctx, req, proxiedURL(p, req.URL))
			},
		})
	}
	return out
}

func (c *chain) doDirect(ctx context.Context, req Request) (*Body, error) {
	return c.doVia(ctx, req, req.URL)
}

// doRewriteProxy routes through the configured rewrite proxy. The proxy takes
// the fully-formed, escaped target URL appended to its prefix; credentials and
// action stay inside the target's own query string rather than becoming
// parameters of the proxy URL.
func (c *chain) doRewriteProxy(ctx context.Context, req Request) (*Body, error) {
	return c.doVia(ctx, req, proxiedURL(c.rewriteProxyURL, req.URL))
}

// doVia issues a plain GET against target and classifies the payload under
// the original request's resource kind.
func (c *chain) doVia(ctx context.Context, req Request, target string) (*Body, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get(HeaderUserAgent) == "" && c.userAgent != "" {
		httpReq.Header.Set(HeaderUserAgent, c.userAgent)
	}
	if httpReq.Header.Get(HeaderAcceptEncoding) == "" {
		httpReq.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(wrapDecompression(resp, c.logger))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return classifyBody(req.Kind, resp.Header.Get("Content-Type"), raw), nil
}

func (c *chain) doRelay(ctx context.Context, req Request) (*Body, error) {
	res, err := c.relay.Get(ctx, req.URL, req.Header)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("relay: unexpected status %d", res.StatusCode)
	}
	return classifyBody(req.Kind, res.ContentType, res.Body), nil
}

// proxiedURL builds the proxy request URL for target. A "%s" placeholder in
// the prefix is substituted with the escaped target; otherwise the escaped
// target is appended.
func proxiedURL(prefix, target string) string {
	escaped := url.QueryEscape(target)
	if strings.Contains(prefix, "%s") {
		return strings.Replace(prefix, "%s", escaped, 1)
	}
	return prefix + escaped
}
