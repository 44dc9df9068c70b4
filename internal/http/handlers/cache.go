package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zaptv/zaptv/internal/cache"
)

// CacheHandler exposes cache administration.
type CacheHandler struct {
	store  *cache.Store
	logger *slog.Logger
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(store *cache.Store, logger *slog.Logger) *CacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{store: store, logger: logger}
}

// Register registers the cache routes with the API.
func (h *CacheHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "clearCache",
		Method:      "POST",
		Path:        "/api/v1/cache/clear",
		Summary:     "Clear the cache",
		Description: "Removes every cached upstream payload, including the held playlist",
		Tags:        []string{"System"},
	}, h.Clear)
}

// ClearInput is empty; clear takes no parameters.
type ClearInput struct{}

// ClearOutput reports the clear outcome.
type ClearOutput struct {
	Body ClearResponse
}

// ClearResponse reports whether the cache was cleared.
type ClearResponse struct {
	Cleared bool   `json:"cleared"`
	Error   string `json:"error,omitempty"`
}

// Clear removes every cached payload.
func (h *CacheHandler) Clear(ctx context.Context, _ *ClearInput) (*ClearOutput, error) {
	if err := h.store.Clear(ctx); err != nil {
		h.logger.Warn("cache clear failed", slog.String("error", err.Error()))
		return &ClearOutput{Body: ClearResponse{Error: err.Error()}}, nil
	}
	return &ClearOutput{Body: ClearResponse{Cleared: true}}, nil
}
