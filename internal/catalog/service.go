// Package catalog normalizes upstream IPTV catalogs into one stream
// representation. Two provider modes are supported: the Xtream Codes JSON
// API and a raw M3U playlist from which categories and classification are
// derived heuristically.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptv/zaptv/internal/config"
	"github.com/zaptv/zaptv/internal/urlutil"
	"github.com/zaptv/zaptv/pkg/xtream"
)

// ErrInvalidServerURL is returned at construction when the provider base URL
// can never serve a request. Fatal by design: every later call would fail.
var ErrInvalidServerURL = errors.New("invalid provider server URL")

// Provider modes.
const (
	ModeXtream = "xtream"
	ModeM3U    = "m3u"
)

// Service is the catalog read surface. All listing operations go through the
// injected fetcher, which layers caching and resilient transport beneath.
type Service struct {
	cfg     config.ProviderConfig
	mode    string
	client  *xtream.Client
	fetcher xtream.Fetcher
	logger  *slog.Logger
}

// New creates a catalog service. The provider base URL (or explicit M3U URL)
// is validated immediately; a malformed one fails with ErrInvalidServerURL.
func New(cfg config.ProviderConfig, fetcher xtream.Fetcher, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeXtream
	}
	if mode != ModeXtream && mode != ModeM3U {
		return nil, fmt.Errorf("%w: unknown provider mode %q", ErrInvalidServerURL, cfg.Mode)
	}

	cfg.URL = urlutil.NormalizeBaseURL(cfg.URL)

	if mode == ModeM3U && cfg.M3UURL != "" {
		if err := urlutil.ValidateBaseURL(cfg.M3UURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
		}
	} else {
		if err := urlutil.ValidateBaseURL(cfg.URL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
		}
	}

	return &Service{
		cfg:     cfg,
		mode:    mode,
		client:  xtream.NewClient(cfg.URL, cfg.Username, cfg.Password, fetcher),
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "catalog")),
	}, nil
}

// Mode returns the active provider mode.
func (s *Service) Mode() string {
	return s.mode
}

// Client returns the underlying panel client, shared with the EPG engine for
// guide downloads.
func (s *Service) Client() *xtream.Client {
	return s.client
}

// GetCategories lists the categories for one content type.
func (s *Service) GetCategories(ctx context.Context, typ StreamType) ([]Category, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown category type %q", typ)
	}
	if s.mode == ModeM3U {
		return s.playlistCategories(ctx, typ)
	}
	return s.xtreamCategories(ctx, typ)
}

// GetLiveStreams lists live channels, optionally filtered by category.
func (s *Service) GetLiveStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	if s.mode == ModeM3U {
		return s.playlistStreams(ctx, TypeLive, categoryID)
	}
	return s.xtreamLiveStreams(ctx, categoryID)
}

// GetVodStreams lists video-on-demand items, optionally filtered by category.
func (s *Service) GetVodStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	if s.mode == ModeM3U {
		return s.playlistStreams(ctx, TypeMovie, categoryID)
	}
	return s.xtreamVodStreams(ctx, categoryID)
}

// GetSeriesStreams lists series, optionally filtered by category.
func (s *Service) GetSeriesStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	if s.mode == ModeM3U {
		return s.playlistStreams(ctx, TypeSeries, categoryID)
	}
	return s.xtreamSeriesStreams(ctx, categoryID)
}

// StreamName resolves a live stream id to its display name. Used by the EPG
// engine when a guide lookup arrives with a catalog id instead of a guide id.
func (s *Service) StreamName(ctx context.Context, streamID string) (string, error) {
	streams, err := s.GetLiveStreams(ctx, "")
	if err != nil {
		return "", err
	}
	for i := range streams {
		if streams[i].ID == streamID {
			return streams[i].Name, nil
		}
	}
	return "", fmt.Errorf("no live stream with id %q", streamID)
}
