package cache

import (
	"context"
	"net/url"

	"github.com/zaptv/zaptv/internal/httpclient"
	"github.com/zaptv/zaptv/pkg/m3u"
)

// Upstream is the transport a CachingFetcher delegates to on cache miss.
type Upstream interface {
	Fetch(ctx context.Context, req httpclient.Request) (*httpclient.Body, error)
}

// CachingFetcher wraps a transport with cache-aside reads. It satisfies the
// same Fetch contract as httpclient.Fetcher, so API clients built on the
// fetcher interface get caching without knowing about it.
//
// Keys follow the store's composite shape. The resource kind and selector
// come from the request URL: API calls key on their action and category_id,
// playlist fetches on the requested output format, guide fetches on "guide".
type CachingFetcher struct {
	store    *Store
	upstream Upstream
	server   string
	identity string
}

// NewCachingFetcher creates a caching layer over upstream. server and
// identity scope the keys so distinct providers never collide.
func NewCachingFetcher(store *Store, upstream Upstream, server, identity string) *CachingFetcher {
	return &CachingFetcher{
		store:    store,
		upstream: upstream,
		server:   server,
		identity: identity,
	}
}

// Fetch implements the fetcher contract with a cache in front.
//
// Playlist responses additionally feed the process-lifetime playlist hold,
// which is consulted before the persistent cache and never TTL-expired.
func (f *CachingFetcher) Fetch(ctx context.Context, req httpclient.Request) (*httpclient.Body, error) {
	if req.Kind == httpclient.ResourcePlaylist {
		if raw := f.store.PlaylistBody(); raw != nil {
			return &httpclient.Body{Kind: httpclient.KindText, Raw: raw}, nil
		}
	}

	body, err := f.store.GetOrFetch(ctx, f.key(req), func(ctx context.Context) (*httpclient.Body, error) {
		return f.upstream.Fetch(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	// Output-format discovery probes several URLs; only a real playlist may
	// populate the hold, or a junk probe response would shadow later probes.
	if req.Kind == httpclient.ResourcePlaylist && m3u.LooksLikePlaylist(body.Raw) {
		f.store.SetPlaylistBody(body.Raw)
	}
	return body, nil
}

// Key returns the composite cache key a request would be stored under.
func (f *CachingFetcher) Key(req httpclient.Request) string {
	return f.key(req)
}

// GuideKey returns the cache key used for guide documents, for targeted
// invalidation on forced refresh.
func (f *CachingFetcher) GuideKey() string {
	return f.store.Key("guide", f.server, f.identity, "")
}

// Store returns the underlying cache store.
func (f *CachingFetcher) Store() *Store {
	return f.store
}

func (f *CachingFetcher) key(req httpclient.Request) string {
	switch req.Kind {
	case httpclient.ResourceGuide:
		return f.GuideKey()
	case httpclient.ResourcePlaylist:
		return f.store.Key("playlist", f.server, f.identity, queryParam(req.URL, "output"))
	default:
		kind := queryParam(req.URL, "action")
		if kind == "" {
			kind = "auth"
		}
		return f.store.Key(kind, f.server, f.identity, queryParam(req.URL, "category_id"))
	}
}

// queryParam extracts one query parameter, tolerating unparseable URLs.
func queryParam(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}
