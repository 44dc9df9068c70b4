package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = discardLogger()
	cfg.MinInterval = 0
	cfg.RetryDelay = 5 * time.Millisecond
	cfg.RetryMaxDelay = 20 * time.Millisecond
	return cfg
}

func TestFetcher_SuccessFirstAttempt(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"category_id":"1","category_name":"Sports"}]`)) //nolint:errcheck
	}))
	defer upstream.Close()

	f := New(testConfig())

	body, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceAPI})
	require.NoError(t, err)
	assert.Equal(t, KindJSON, body.Kind)
}

func TestFetcher_RetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("#EXTM3U\n")) //nolint:errcheck
	}))
	defer upstream.Close()

	f := New(testConfig())

	body, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourcePlaylist})
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body.Text())
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_ExhaustsRetryBudget(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.RetryAttempts = 2
	f := New(cfg)

	_, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceAPI})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrTransportExhausted)
	// Initial attempt + 2 retries.
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_BackoffDelays(t *testing.T) {
	var stamps []time.Time
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.RetryAttempts = 2
	cfg.RetryDelay = 20 * time.Millisecond
	cfg.RetryMaxDelay = time.Second
	f := New(cfg)

	_, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceAPI})
	require.Error(t, err)
	require.Len(t, stamps, 3)

	gap1 := stamps[1].Sub(stamps[0])
	gap2 := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, gap1, 15*time.Millisecond, "first retry should wait the initial delay")
	assert.GreaterOrEqual(t, gap2, 35*time.Millisecond, "second retry should wait the doubled delay")
}

func TestFetcher_GuideDirectFastPath(t *testing.T) {
	var guideHits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		guideHits.Add(1)
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<tv></tv>`)) //nolint:errcheck
	}))
	defer upstream.Close()

	var proxyHits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		proxyHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()

	cfg := testConfig()
	cfg.RewriteProxyURL = proxy.URL + "?url="
	f := New(cfg)

	body, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceGuide})
	require.NoError(t, err)
	assert.Equal(t, KindXML, body.Kind)
	assert.Equal(t, int32(1), guideHits.Load())
	assert.Equal(t, int32(0), proxyHits.Load(), "healthy guide endpoint must not touch the proxy")
}

func TestFetcher_GuideFallsBackAfterDirectFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	var proxyHits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(`<tv><channel id="x"></channel></tv>`)) //nolint:errcheck
	}))
	defer proxy.Close()

	cfg := testConfig()
	cfg.RewriteProxyURL = proxy.URL + "?url="
	f := New(cfg)

	body, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceGuide})
	require.NoError(t, err)
	assert.Equal(t, KindXML, body.Kind, "guide body stays XML whatever the proxy declares")
	assert.GreaterOrEqual(t, proxyHits.Load(), int32(1))
}

func TestFetcher_ContextCancellation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	f := New(testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, Request{URL: upstream.URL, Kind: ResourceAPI})
	require.Error(t, err)
	assert.Equal(t, 0, f.Limiter().InFlight(), "slot must be released on cancellation")
}

func TestFetcher_GzipDecompression(t *testing.T) {
	payload := `{"server_info":{"url":"example.com"}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(payload)) //nolint:errcheck
		zw.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes()) //nolint:errcheck
	}))
	defer upstream.Close()

	// Disable the transport's own gzip handling so ours is exercised.
	base := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	cfg := testConfig()
	cfg.BaseClient = base
	f := New(cfg)

	body, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceAPI})
	require.NoError(t, err)
	assert.Equal(t, KindJSON, body.Kind)
	assert.Equal(t, payload, body.Text())
}

func TestFetcher_SlotHeldPerAttempt(t *testing.T) {
	var concurrent, peak atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := concurrent.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		concurrent.Add(-1)
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.MaxConcurrent = 2
	f := New(cfg)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := f.Fetch(context.Background(), Request{URL: upstream.URL, Kind: ResourceAPI})
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestObfuscateURL(t *testing.T) {
	t.Run("password masked", func(t *testing.T) {
		got := obfuscateURL("http://example.com/player_api.php?username=u&password=hunter2")
		assert.Contains(t, got, "password=%2A%2A%2A")
		assert.NotContains(t, got, "hunter2")
	})

	t.Run("token masked", func(t *testing.T) {
		got := obfuscateURL("http://example.com/api?token=abc123")
		assert.NotContains(t, got, "abc123")
	})

	t.Run("clean url untouched", func(t *testing.T) {
		in := "http://example.com/xmltv.php?username=u"
		assert.Equal(t, in, obfuscateURL(in))
	})
}
