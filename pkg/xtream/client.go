package xtream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zaptv/zaptv/internal/httpclient"
)

// API endpoint paths and actions.
const (
	pathPlayerAPI = "/player_api.php"
	pathXMLTV     = "/xmltv.php"
	pathGetM3U    = "/get.php"
	pathLive      = "/live"
	pathMovie     = "/movie"
	pathSeries    = "/series"

	ActionGetLiveCategories   = "get_live_categories"
	ActionGetVODCategories    = "get_vod_categories"
	ActionGetSeriesCategories = "get_series_categories"
	ActionGetLiveStreams      = "get_live_streams"
	ActionGetVODStreams       = "get_vod_streams"
	ActionGetSeries           = "get_series"
	ActionGetShortEPG         = "get_short_epg"
)

const (
	defaultExtensionTS  = "ts"
	defaultExtensionMP4 = "mp4"
	defaultExtensionMKV = "mkv"
	defaultPlaylistType = "m3u_plus"
	defaultOutput       = "ts"
)

// Fetcher is the transport the client issues requests through. Satisfied by
// httpclient.Fetcher, which layers retries and fallback routes under it.
type Fetcher interface {
	Fetch(ctx context.Context, req httpclient.Request) (*httpclient.Body, error)
}

// Client is an Xtream Codes panel client. All requests go through the
// injected Fetcher so upstream flakiness is absorbed below this layer.
type Client struct {
	baseURL  string
	username string
	password string
	fetcher  Fetcher
}

// NewClient creates a panel client. baseURL must carry a scheme and host.
func NewClient(baseURL, username, password string, fetcher Fetcher) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		fetcher:  fetcher,
	}
}

// BaseURL returns the configured panel base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiURL builds a player_api.php URL for an action. Empty action yields the
// bare auth endpoint.
func (c *Client) apiURL(action string, params map[string]string) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	if action != "" {
		q.Set("action", action)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	return c.baseURL + pathPlayerAPI + "?" + q.Encode()
}

// call issues an API request and decodes the JSON payload into target.
func (c *Client) call(ctx context.Context, action string, params map[string]string, target any) error {
	body, err := c.fetcher.Fetch(ctx, httpclient.Request{
		URL:  c.apiURL(action, params),
		Kind: httpclient.ResourceAPI,
	})
	if err != nil {
		return err
	}
	if body.Kind != httpclient.KindJSON {
		return fmt.Errorf("%s: expected JSON response, got %s", action, body.Kind)
	}
	if err := body.DecodeJSON(target); err != nil {
		return fmt.Errorf("%s: decoding response: %w", action, err)
	}
	return nil
}

// GetAuthInfo retrieves account and server details. Typically the first call
// made against a panel to verify credentials.
func (c *Client) GetAuthInfo(ctx context.Context) (*AuthInfo, error) {
	var info AuthInfo
	if err := c.call(ctx, "", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetLiveCategories retrieves all live stream categories.
func (c *Client) GetLiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.call(ctx, ActionGetLiveCategories, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetVODCategories retrieves all video-on-demand categories.
func (c *Client) GetVODCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.call(ctx, ActionGetVODCategories, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetSeriesCategories retrieves all series categories.
func (c *Client) GetSeriesCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.call(ctx, ActionGetSeriesCategories, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// categoryParams builds the optional category_id filter.
func categoryParams(categoryID string) map[string]string {
	if categoryID == "" {
		return nil
	}
	return map[string]string{"category_id": categoryID}
}

// GetLiveStreams retrieves live streams, optionally filtered by category.
func (c *Client) GetLiveStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	var streams []Stream
	if err := c.call(ctx, ActionGetLiveStreams, categoryParams(categoryID), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetVODStreams retrieves VOD content, optionally filtered by category.
func (c *Client) GetVODStreams(ctx context.Context, categoryID string) ([]VODStream, error) {
	var streams []VODStream
	if err := c.call(ctx, ActionGetVODStreams, categoryParams(categoryID), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetSeries retrieves series, optionally filtered by category.
func (c *Client) GetSeries(ctx context.Context, categoryID string) ([]Series, error) {
	var series []Series
	if err := c.call(ctx, ActionGetSeries, categoryParams(categoryID), &series); err != nil {
		return nil, err
	}
	return series, nil
}

// GetShortEPG retrieves the short EPG listing for a stream. limit of 0 uses
// the panel default.
func (c *Client) GetShortEPG(ctx context.Context, streamID string, limit int) ([]EPGListing, error) {
	params := map[string]string{"stream_id": streamID}
	if limit > 0 {
		params["limit"] = fmt.Sprintf("%d", limit)
	}
	var response EPGResponse
	if err := c.call(ctx, ActionGetShortEPG, params, &response); err != nil {
		return nil, err
	}
	return response.EPGListings, nil
}

// XMLTVURL returns the URL for the full XMLTV guide document.
func (c *Client) XMLTVURL() string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	return c.baseURL + pathXMLTV + "?" + q.Encode()
}

// GetXMLTV retrieves the full XMLTV guide. Guide documents are fetched
// direct-first; the transport chain handles that routing.
func (c *Client) GetXMLTV(ctx context.Context) (*httpclient.Body, error) {
	return c.fetcher.Fetch(ctx, httpclient.Request{
		URL:  c.XMLTVURL(),
		Kind: httpclient.ResourceGuide,
	})
}

// M3UPlaylistURL returns the URL for the panel's M3U playlist export.
// playlistType is "m3u" or "m3u_plus"; empty defaults to m3u_plus.
func (c *Client) M3UPlaylistURL(playlistType string) string {
	if playlistType == "" {
		playlistType = defaultPlaylistType
	}
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	q.Set("type", playlistType)
	q.Set("output", defaultOutput)
	return c.baseURL + pathGetM3U + "?" + q.Encode()
}

// GetM3UPlaylist retrieves the panel's M3U playlist export.
func (c *Client) GetM3UPlaylist(ctx context.Context, playlistType string) (*httpclient.Body, error) {
	return c.fetcher.Fetch(ctx, httpclient.Request{
		URL:  c.M3UPlaylistURL(playlistType),
		Kind: httpclient.ResourcePlaylist,
	})
}

// LiveStreamURL returns the playback URL for a live stream.
func (c *Client) LiveStreamURL(streamID, extension string) string {
	if extension == "" {
		extension = defaultExtensionTS
	}
	return fmt.Sprintf("%s%s/%s/%s/%s.%s",
		c.baseURL, pathLive, c.username, c.password, streamID, extension)
}

// VODStreamURL returns the playback URL for a VOD item. The extension should
// match the item's container_extension.
func (c *Client) VODStreamURL(streamID, extension string) string {
	if extension == "" {
		extension = defaultExtensionMP4
	}
	return fmt.Sprintf("%s%s/%s/%s/%s.%s",
		c.baseURL, pathMovie, c.username, c.password, streamID, extension)
}

// SeriesStreamURL returns the playback URL for a series episode.
func (c *Client) SeriesStreamURL(episodeID, extension string) string {
	if extension == "" {
		extension = defaultExtensionMKV
	}
	return fmt.Sprintf("%s%s/%s/%s/%s.%s",
		c.baseURL, pathSeries, c.username, c.password, episodeID, extension)
}
