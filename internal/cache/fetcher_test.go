package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptv/zaptv/internal/httpclient"
)

type fakeUpstream struct {
	calls atomic.Int32
	body  *httpclient.Body
}

func (u *fakeUpstream) Fetch(context.Context, httpclient.Request) (*httpclient.Body, error) {
	u.calls.Add(1)
	return u.body, nil
}

func TestCachingFetcher_KeysByActionAndCategory(t *testing.T) {
	store := New(NewMemoryBackend(), time.Hour, "zaptv", nil)
	f := NewCachingFetcher(store, &fakeUpstream{}, "http://srv", "u")

	all := f.Key(httpclient.Request{
		URL:  "http://srv/player_api.php?username=u&password=p&action=get_live_streams",
		Kind: httpclient.ResourceAPI,
	})
	filtered := f.Key(httpclient.Request{
		URL:  "http://srv/player_api.php?username=u&password=p&action=get_live_streams&category_id=7",
		Kind: httpclient.ResourceAPI,
	})
	auth := f.Key(httpclient.Request{
		URL:  "http://srv/player_api.php?username=u&password=p",
		Kind: httpclient.ResourceAPI,
	})

	assert.Equal(t, "zaptv:get_live_streams:http://srv:u:all", all)
	assert.Equal(t, "zaptv:get_live_streams:http://srv:u:7", filtered)
	assert.Equal(t, "zaptv:auth:http://srv:u:all", auth)
	assert.NotEqual(t, all, filtered, "selectors must never collide")
}

func TestCachingFetcher_SecondCallServedFromCache(t *testing.T) {
	store := New(NewMemoryBackend(), time.Hour, "zaptv", nil)
	upstream := &fakeUpstream{body: &httpclient.Body{Kind: httpclient.KindJSON, Raw: []byte(`[]`)}}
	f := NewCachingFetcher(store, upstream, "http://srv", "u")

	req := httpclient.Request{
		URL:  "http://srv/player_api.php?action=get_live_categories",
		Kind: httpclient.ResourceAPI,
	}
	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, `[]`, body.Text())
	}

	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCachingFetcher_PlaylistHoldShortCircuits(t *testing.T) {
	store := New(NewMemoryBackend(), time.Hour, "zaptv", nil)
	upstream := &fakeUpstream{body: &httpclient.Body{Kind: httpclient.KindText, Raw: []byte("#EXTM3U\n")}}
	f := NewCachingFetcher(store, upstream, "http://srv", "u")

	req := httpclient.Request{
		URL:  "http://srv/get.php?username=u&password=p&type=m3u_plus&output=ts",
		Kind: httpclient.ResourcePlaylist,
	}

	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int32(1), upstream.calls.Load())
	assert.Equal(t, []byte("#EXTM3U\n"), store.PlaylistBody())

	// Drop the persistent entry; the hold still answers.
	require.NoError(t, store.Invalidate(context.Background(), f.Key(req)))
	body, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body.Text())
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCachingFetcher_GuideKeyInvalidation(t *testing.T) {
	store := New(NewMemoryBackend(), time.Hour, "zaptv", nil)
	upstream := &fakeUpstream{body: &httpclient.Body{Kind: httpclient.KindXML, Raw: []byte("<tv/>")}}
	f := NewCachingFetcher(store, upstream, "http://srv", "u")

	req := httpclient.Request{URL: "http://srv/xmltv.php?username=u", Kind: httpclient.ResourceGuide}

	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), upstream.calls.Load())

	require.NoError(t, store.Invalidate(context.Background(), f.GuideKey()))

	_, err = f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load(), "forced refresh bypasses the cached guide")
}
