package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zaptv/zaptv/internal/httpclient"
	"github.com/zaptv/zaptv/pkg/m3u"
)

// outputFormats is the discovery order for the panel's get.php export. The
// first response whose body starts with #EXTM3U wins.
var outputFormats = []string{"ts", "m3u_plus", "m3u"}

// playlistDocument fetches the raw playlist. An explicit m3u_url is fetched
// as-is; otherwise the get.php output format is discovered by probing.
func (s *Service) playlistDocument(ctx context.Context) ([]byte, error) {
	if s.cfg.M3UURL != "" {
		body, err := s.fetcher.Fetch(ctx, httpclient.Request{
			URL:  s.cfg.M3UURL,
			Kind: httpclient.ResourcePlaylist,
		})
		if err != nil {
			return nil, err
		}
		if !m3u.LooksLikePlaylist(body.Raw) {
			return nil, fmt.Errorf("response from %s is not an M3U playlist", s.cfg.M3UURL)
		}
		return body.Raw, nil
	}

	var lastErr error
	for _, format := range outputFormats {
		body, err := s.fetcher.Fetch(ctx, httpclient.Request{
			URL:  s.cfg.PlaylistURL(format),
			Kind: httpclient.ResourcePlaylist,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if m3u.LooksLikePlaylist(body.Raw) {
			if format != outputFormats[0] {
				s.logger.Debug("playlist output format discovered", slog.String("format", format))
			}
			return body.Raw, nil
		}
		lastErr = fmt.Errorf("output format %q did not yield a playlist", format)
	}
	return nil, fmt.Errorf("playlist discovery failed: %w", lastErr)
}

// playlistEntries parses the playlist into entries. Parse errors on single
// lines are logged and skipped; only a document-level failure is returned.
func (s *Service) playlistEntries(ctx context.Context) ([]m3u.Entry, error) {
	raw, err := s.playlistDocument(ctx)
	if err != nil {
		return nil, err
	}

	var entries []m3u.Entry
	parser := &m3u.Parser{
		OnEntry: func(entry *m3u.Entry) error {
			entries = append(entries, *entry)
			return nil
		},
		OnError: func(lineNum int, err error) {
			s.logger.Debug("skipping malformed playlist line",
				slog.Int("line", lineNum),
				slog.String("error", err.Error()),
			)
		},
	}
	if err := parser.ParseCompressed(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parsing playlist: %w", err)
	}
	return entries, nil
}

// classifyGroup infers the content type from a group title. Keyword
// heuristics: movie-ish words mean VOD, series-ish words mean series,
// everything else is live.
func classifyGroup(group string) StreamType {
	g := strings.ToLower(group)
	switch {
	case containsAny(g, "movie", "film", "vod", "cine"):
		return TypeMovie
	case containsAny(g, "series", "show"):
		return TypeSeries
	default:
		return TypeLive
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// playlistCategories derives categories from group titles, keeping
// first-seen order. The group title doubles as the category id.
func (s *Service) playlistCategories(ctx context.Context, typ StreamType) ([]Category, error) {
	entries, err := s.playlistEntries(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var categories []Category
	for i := range entries {
		group := entries[i].GroupTitle
		if group == "" || seen[group] || classifyGroup(group) != typ {
			continue
		}
		seen[group] = true
		categories = append(categories, Category{ID: group, Name: group, Type: typ})
	}
	return categories, nil
}

// playlistStreams filters entries by inferred type and optional category.
func (s *Service) playlistStreams(ctx context.Context, typ StreamType, categoryID string) ([]Stream, error) {
	entries, err := s.playlistEntries(ctx)
	if err != nil {
		return nil, err
	}

	var streams []Stream
	for i := range entries {
		entry := &entries[i]
		if classifyGroup(entry.GroupTitle) != typ {
			continue
		}
		if categoryID != "" && entry.GroupTitle != categoryID {
			continue
		}

		id := entry.TvgID
		if id == "" {
			id = entry.URL
		}
		name := entry.Title
		if name == "" {
			name = entry.TvgName
		}
		streams = append(streams, Stream{
			ID:           id,
			Name:         name,
			Type:         typ,
			Icon:         entry.TvgLogo,
			CategoryID:   entry.GroupTitle,
			EPGChannelID: entry.TvgID,
			URL:          entry.URL,
		})
	}
	return streams, nil
}
