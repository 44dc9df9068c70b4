package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zaptv/zaptv/internal/epg"
)

// EPGHandler exposes the program guide.
type EPGHandler struct {
	engine *epg.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewEPGHandler creates an EPG handler.
func NewEPGHandler(engine *epg.Engine, logger *slog.Logger) *EPGHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EPGHandler{engine: engine, logger: logger, now: time.Now}
}

// Register registers the EPG routes with the API.
func (h *EPGHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getGuide",
		Method:      "GET",
		Path:        "/api/v1/epg",
		Summary:     "Get the full program guide",
		Description: "Returns every guide channel that carries programs",
		Tags:        []string{"EPG"},
	}, h.GetGuide)

	huma.Register(api, huma.Operation{
		OperationID: "getChannelGuide",
		Method:      "GET",
		Path:        "/api/v1/epg/channel/{channel_id}",
		Summary:     "Get the guide for one channel",
		Description: "Resolves a guide channel id, a display name, or a catalog stream id",
		Tags:        []string{"EPG"},
	}, h.GetChannelGuide)

	huma.Register(api, huma.Operation{
		OperationID: "getNowAndNext",
		Method:      "GET",
		Path:        "/api/v1/epg/channel/{channel_id}/now",
		Summary:     "Get the current and next program for one channel",
		Tags:        []string{"EPG"},
	}, h.GetNowAndNext)

	huma.Register(api, huma.Operation{
		OperationID: "refreshGuide",
		Method:      "POST",
		Path:        "/api/v1/epg/refresh",
		Summary:     "Force a guide refresh",
		Description: "Drops the cached guide document and refetches it",
		Tags:        []string{"EPG"},
	}, h.Refresh)
}

// GetGuideInput is empty; the whole guide has no parameters.
type GetGuideInput struct{}

// GuideOutput is a guide listing response.
type GuideOutput struct {
	Body GuideResponse
}

// GuideResponse carries guide channels plus an optional upstream error.
type GuideResponse struct {
	Channels []*epg.Channel `json:"channels"`
	Error    string         `json:"error,omitempty"`
}

// GetGuide returns the full guide.
func (h *EPGHandler) GetGuide(ctx context.Context, _ *GetGuideInput) (*GuideOutput, error) {
	channels, err := h.engine.Guide(ctx)
	return h.guideOutput(channels, err), nil
}

// ChannelGuideInput names the channel to resolve.
type ChannelGuideInput struct {
	ChannelID string `path:"channel_id" doc:"Guide channel id, display name, or catalog stream id"`
}

// GetChannelGuide resolves one channel through the matching cascade. An
// unresolvable id is an empty listing, not an error.
func (h *EPGHandler) GetChannelGuide(ctx context.Context, input *ChannelGuideInput) (*GuideOutput, error) {
	channels, err := h.engine.GetEPG(ctx, input.ChannelID)
	return h.guideOutput(channels, err), nil
}

// NowAndNextOutput is the current/next program response.
type NowAndNextOutput struct {
	Body NowAndNextResponse
}

// NowAndNextResponse carries the programs airing now and next on a channel.
type NowAndNextResponse struct {
	Channel string       `json:"channel,omitempty"`
	Now     *epg.Program `json:"now,omitempty"`
	Next    *epg.Program `json:"next,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// GetNowAndNext returns the program airing now and the one after it.
func (h *EPGHandler) GetNowAndNext(ctx context.Context, input *ChannelGuideInput) (*NowAndNextOutput, error) {
	channels, err := h.engine.GetEPG(ctx, input.ChannelID)

	out := &NowAndNextOutput{}
	if err != nil {
		out.Body.Error = err.Error()
		return out, nil
	}
	if len(channels) == 0 {
		return out, nil
	}

	ch := channels[0]
	now := h.now()
	out.Body.Channel = ch.ID
	out.Body.Now = epg.CurrentProgram(ch, now)
	out.Body.Next = epg.NextProgram(ch, now)
	return out, nil
}

// RefreshInput is empty; refresh takes no parameters.
type RefreshInput struct{}

// RefreshOutput reports whether the refresh succeeded.
type RefreshOutput struct {
	Body RefreshResponse
}

// RefreshResponse reports the refresh outcome.
type RefreshResponse struct {
	Refreshed bool `json:"refreshed"`
}

// Refresh drops the cached guide and refetches it. A failed refresh reports
// refreshed=false; the previous guide stays in service.
func (h *EPGHandler) Refresh(ctx context.Context, _ *RefreshInput) (*RefreshOutput, error) {
	refreshed := h.engine.ForceRefresh(ctx)
	if !refreshed {
		h.logger.Warn("guide refresh request failed")
	}
	return &RefreshOutput{Body: RefreshResponse{Refreshed: refreshed}}, nil
}

func (h *EPGHandler) guideOutput(channels []*epg.Channel, err error) *GuideOutput {
	out := &GuideOutput{Body: GuideResponse{Channels: channels}}
	if out.Body.Channels == nil {
		out.Body.Channels = []*epg.Channel{}
	}
	if err != nil {
		h.logger.Warn("guide request failed", slog.String("error", err.Error()))
		out.Body.Error = err.Error()
	}
	return out
}
