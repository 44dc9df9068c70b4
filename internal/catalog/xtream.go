package catalog

import (
	"context"

	"github.com/zaptv/zaptv/pkg/xtream"
)

// xtreamCategories maps panel category listings for one type.
func (s *Service) xtreamCategories(ctx context.Context, typ StreamType) ([]Category, error) {
	var (
		upstream []xtream.Category
		err      error
	)
	switch typ {
	case TypeLive:
		upstream, err = s.client.GetLiveCategories(ctx)
	case TypeMovie:
		upstream, err = s.client.GetVODCategories(ctx)
	default:
		upstream, err = s.client.GetSeriesCategories(ctx)
	}
	if err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(upstream))
	for _, c := range upstream {
		categories = append(categories, Category{
			ID:   c.CategoryID.String(),
			Name: c.CategoryName,
			Type: typ,
		})
	}
	return categories, nil
}

// xtreamLiveStreams lists live channels, synthesizing playback URLs from the
// panel URL template when the panel supplies no direct source.
func (s *Service) xtreamLiveStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	upstream, err := s.client.GetLiveStreams(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	format := s.cfg.StreamFormat
	streams := make([]Stream, 0, len(upstream))
	for i := range upstream {
		src := &upstream[i]
		id := src.StreamID.String()
		url := src.DirectSource
		if url == "" {
			url = s.client.LiveStreamURL(id, format)
		}
		streams = append(streams, Stream{
			ID:           id,
			Name:         src.Name,
			Type:         TypeLive,
			Icon:         src.StreamIcon,
			CategoryID:   src.CategoryID.String(),
			EPGChannelID: src.EPGChannelID,
			URL:          url,
		})
	}
	return streams, nil
}

// xtreamVodStreams lists VOD items. The playback URL extension follows the
// item's container_extension.
func (s *Service) xtreamVodStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	upstream, err := s.client.GetVODStreams(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	streams := make([]Stream, 0, len(upstream))
	for i := range upstream {
		src := &upstream[i]
		id := src.StreamID.String()
		url := src.DirectSource
		if url == "" {
			url = s.client.VODStreamURL(id, src.ContainerExtension)
		}
		streams = append(streams, Stream{
			ID:         id,
			Name:       src.Name,
			Type:       TypeMovie,
			Icon:       src.StreamIcon,
			CategoryID: src.CategoryID.String(),
			URL:        url,
			Rating:     src.Rating.Float(),
		})
	}
	return streams, nil
}

// xtreamSeriesStreams lists series. Series have no single playback URL;
// episodes are resolved separately by the playback layer.
func (s *Service) xtreamSeriesStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	upstream, err := s.client.GetSeries(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	streams := make([]Stream, 0, len(upstream))
	for i := range upstream {
		src := &upstream[i]
		streams = append(streams, Stream{
			ID:          src.SeriesID.String(),
			Name:        src.Name,
			Type:        TypeSeries,
			Icon:        src.Cover,
			CategoryID:  src.CategoryID.String(),
			Rating:      src.Rating.Float(),
			Genre:       src.Genre,
			Plot:        src.Plot,
			ReleaseDate: src.ReleaseDate,
		})
	}
	return streams, nil
}
