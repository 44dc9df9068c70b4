// Package xtream provides a client for Xtream Codes IPTV panels.
//
// Xtream Codes panels expose a JSON API for live channels, video on demand,
// series, and EPG data, plus M3U playlist and XMLTV guide exports. This
// client issues every request through an injected Fetcher so retries, rate
// limiting, and fallback routing live below this layer.
//
// # Usage
//
//	client := xtream.NewClient("http://panel:8080", "user", "pass", fetcher)
//
//	info, err := client.GetAuthInfo(ctx)
//	categories, err := client.GetLiveCategories(ctx)
//	streams, err := client.GetLiveStreams(ctx, "7")
//
// # Endpoints
//
// The panel API follows the pattern:
//
//	{baseURL}/player_api.php?username={user}&password={pass}&action={action}
//
// Additional endpoints:
//   - {baseURL}/xmltv.php?username={user}&password={pass}: XMLTV guide
//   - {baseURL}/get.php?...&type=m3u_plus&output=ts: M3U playlist export
//   - {baseURL}/live/{user}/{pass}/{streamID}.{ext}: live playback
//   - {baseURL}/movie/{user}/{pass}/{streamID}.{ext}: VOD playback
//   - {baseURL}/series/{user}/{pass}/{episodeID}.{ext}: episode playback
//
// Panels are inconsistent about numeric encoding; the Flex types accept both
// string and number forms.
package xtream
