package xtream

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptv/zaptv/internal/httpclient"
)

func testFetcher(t *testing.T) *httpclient.Fetcher {
	t.Helper()
	return httpclient.New(httpclient.Config{
		RetryAttempts: 1,
		MinInterval:   time.Millisecond,
		Logger:        slog.New(slog.DiscardHandler),
	})
}

func newPanel(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "user", "pass", testFetcher(t)), srv
}

func TestClient_GetAuthInfo(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/player_api.php", r.URL.Path)
		assert.Equal(t, "user", r.URL.Query().Get("username"))
		assert.Empty(t, r.URL.Query().Get("action"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_info":{"username":"user","auth":1,"status":"Active","max_connections":"2"},"server_info":{"url":"panel","port":"8080"}}`))
	})

	info, err := client.GetAuthInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, info.UserInfo.IsAuthenticated())
	assert.Equal(t, int64(2), info.UserInfo.MaxConnections.Int())
	assert.Equal(t, int64(8080), info.ServerInfo.Port.Int())
}

func TestClient_GetLiveCategories(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ActionGetLiveCategories, r.URL.Query().Get("action"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"category_id":"7","category_name":"Sports","parent_id":0},{"category_id":12,"category_name":"News","parent_id":0}]`))
	})

	categories, err := client.GetLiveCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "7", categories[0].CategoryID.String())
	assert.Equal(t, "12", categories[1].CategoryID.String(),
		"numeric category ids normalize to strings")
}

func TestClient_GetLiveStreams_CategoryFilter(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("category_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"num":1,"name":"ESPN","stream_id":"101","epg_channel_id":"ESPN.br","category_id":"7"}]`))
	})

	streams, err := client.GetLiveStreams(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "ESPN", streams[0].Name)
	assert.Equal(t, int64(101), streams[0].StreamID.Int())
	assert.Equal(t, "ESPN.br", streams[0].EPGChannelID)
}

func TestClient_GetShortEPG(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ActionGetShortEPG, r.URL.Query().Get("action"))
		assert.Equal(t, "101", r.URL.Query().Get("stream_id"))
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"epg_listings":[{"id":"1","title":"U3BvcnRzQ2VudGVy","start":"2026-08-31 12:00:00","end":"2026-08-31 13:00:00"}]}`))
	})

	listings, err := client.GetShortEPG(context.Background(), "101", 4)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "1", listings[0].ID.String())
}

func TestClient_NonJSONResponseRejected(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>blocked</html>"))
	})

	_, err := client.GetLiveCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON")
}

func TestClient_GetXMLTV_TaggedXML(t *testing.T) {
	client, _ := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xmltv.php", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0"?><tv></tv>`))
	})

	body, err := client.GetXMLTV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, httpclient.KindXML, body.Kind)
}

func TestClient_URLBuilders(t *testing.T) {
	c := NewClient("http://panel:8080/", "u", "p w", nil)

	assert.Equal(t, "http://panel:8080", c.BaseURL(), "trailing slash trimmed")
	assert.Equal(t, "http://panel:8080/live/u/p w/101.ts", c.LiveStreamURL("101", ""))
	assert.Equal(t, "http://panel:8080/movie/u/p w/202.mkv", c.VODStreamURL("202", "mkv"))
	assert.Equal(t, "http://panel:8080/series/u/p w/303.mkv", c.SeriesStreamURL("303", ""))

	playlist, err := url.Parse(c.M3UPlaylistURL(""))
	require.NoError(t, err)
	assert.Equal(t, "/get.php", playlist.Path)
	assert.Equal(t, "m3u_plus", playlist.Query().Get("type"))
	assert.Equal(t, "ts", playlist.Query().Get("output"))
	assert.Equal(t, "p w", playlist.Query().Get("password"), "credentials are query-escaped")

	guide, err := url.Parse(c.XMLTVURL())
	require.NoError(t, err)
	assert.Equal(t, "/xmltv.php", guide.Path)
	assert.Equal(t, "u", guide.Query().Get("username"))
}
