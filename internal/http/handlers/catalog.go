// Package handlers provides the HTTP API handlers for zaptv.
package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zaptv/zaptv/internal/catalog"
)

// CatalogHandler exposes the provider catalog.
//
// Upstream failures surface as an empty collection plus an error message in
// the response body, not as a 5xx: a flaky provider must not look like a
// broken gateway.
type CatalogHandler struct {
	service *catalog.Service
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(service *catalog.Service, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{service: service, logger: logger}
}

// Register registers the catalog routes with the API.
func (h *CatalogHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listCategories",
		Method:      "GET",
		Path:        "/api/v1/catalog/categories",
		Summary:     "List categories",
		Description: "Returns provider categories for one content type",
		Tags:        []string{"Catalog"},
	}, h.ListCategories)

	huma.Register(api, huma.Operation{
		OperationID: "listLiveStreams",
		Method:      "GET",
		Path:        "/api/v1/catalog/streams/live",
		Summary:     "List live streams",
		Tags:        []string{"Catalog"},
	}, h.ListLiveStreams)

	huma.Register(api, huma.Operation{
		OperationID: "listVodStreams",
		Method:      "GET",
		Path:        "/api/v1/catalog/streams/vod",
		Summary:     "List VOD streams",
		Tags:        []string{"Catalog"},
	}, h.ListVodStreams)

	huma.Register(api, huma.Operation{
		OperationID: "listSeries",
		Method:      "GET",
		Path:        "/api/v1/catalog/streams/series",
		Summary:     "List series",
		Tags:        []string{"Catalog"},
	}, h.ListSeries)
}

// ListCategoriesInput selects the content type.
type ListCategoriesInput struct {
	Type string `query:"type" default:"live" enum:"live,movie,series" doc:"Content type"`
}

// ListCategoriesOutput is the category listing response.
type ListCategoriesOutput struct {
	Body CategoriesResponse
}

// CategoriesResponse carries categories plus an optional upstream error.
type CategoriesResponse struct {
	Categories []catalog.Category `json:"categories"`
	Error      string             `json:"error,omitempty"`
}

// ListCategories returns the categories for the requested content type.
func (h *CatalogHandler) ListCategories(ctx context.Context, input *ListCategoriesInput) (*ListCategoriesOutput, error) {
	categories, err := h.service.GetCategories(ctx, catalog.StreamType(input.Type))

	out := &ListCategoriesOutput{Body: CategoriesResponse{Categories: categories}}
	if out.Body.Categories == nil {
		out.Body.Categories = []catalog.Category{}
	}
	if err != nil {
		h.logger.Warn("category listing failed",
			slog.String("type", input.Type),
			slog.String("error", err.Error()),
		)
		out.Body.Error = err.Error()
	}
	return out, nil
}

// ListStreamsInput optionally narrows a stream listing to one category.
type ListStreamsInput struct {
	CategoryID string `query:"category_id" doc:"Restrict to one category"`
}

// ListStreamsOutput is a stream listing response.
type ListStreamsOutput struct {
	Body StreamsResponse
}

// StreamsResponse carries streams plus an optional upstream error.
type StreamsResponse struct {
	Streams []catalog.Stream `json:"streams"`
	Error   string           `json:"error,omitempty"`
}

// ListLiveStreams returns live channels, optionally filtered by category.
func (h *CatalogHandler) ListLiveStreams(ctx context.Context, input *ListStreamsInput) (*ListStreamsOutput, error) {
	streams, err := h.service.GetLiveStreams(ctx, input.CategoryID)
	return h.streamsOutput("live", streams, err), nil
}

// ListVodStreams returns VOD entries, optionally filtered by category.
func (h *CatalogHandler) ListVodStreams(ctx context.Context, input *ListStreamsInput) (*ListStreamsOutput, error) {
	streams, err := h.service.GetVodStreams(ctx, input.CategoryID)
	return h.streamsOutput("vod", streams, err), nil
}

// ListSeries returns series, optionally filtered by category.
func (h *CatalogHandler) ListSeries(ctx context.Context, input *ListStreamsInput) (*ListStreamsOutput, error) {
	streams, err := h.service.GetSeriesStreams(ctx, input.CategoryID)
	return h.streamsOutput("series", streams, err), nil
}

func (h *CatalogHandler) streamsOutput(kind string, streams []catalog.Stream, err error) *ListStreamsOutput {
	out := &ListStreamsOutput{Body: StreamsResponse{Streams: streams}}
	if out.Body.Streams == nil {
		out.Body.Streams = []catalog.Stream{}
	}
	if err != nil {
		h.logger.Warn("stream listing failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		out.Body.Error = err.Error()
	}
	return out
}
