package handlers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptv/zaptv/internal/epg"
	"github.com/zaptv/zaptv/internal/httpclient"
)

const handlerGuideFixture = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="ESPN.br">
    <display-name>ESPN Brasil</display-name>
  </channel>
  <programme start="20260831120000 -0300" stop="20260831130000 -0300" channel="ESPN.br">
    <title>SportsCenter</title>
  </programme>
  <programme start="20260831130000 -0300" stop="20260831140000 -0300" channel="ESPN.br">
    <title>Futebol ao Vivo</title>
  </programme>
</tv>
`

type guideSourceStub struct {
	body *httpclient.Body
	err  error
}

func (s *guideSourceStub) Fetch(context.Context, httpclient.Request) (*httpclient.Body, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}

func newEPGHandler(t *testing.T) *EPGHandler {
	t.Helper()
	source := &guideSourceStub{
		body: &httpclient.Body{Kind: httpclient.KindXML, Raw: []byte(handlerGuideFixture)},
	}
	engine := epg.NewEngine(source, "http://panel/xmltv.php", nil, nil, slog.New(slog.DiscardHandler))
	return NewEPGHandler(engine, slog.New(slog.DiscardHandler))
}

func TestEPGHandler_GetGuide(t *testing.T) {
	h := newEPGHandler(t)

	out, err := h.GetGuide(context.Background(), &GetGuideInput{})
	require.NoError(t, err)
	require.Len(t, out.Body.Channels, 1)
	assert.Equal(t, "ESPN.br", out.Body.Channels[0].ID)
	assert.Empty(t, out.Body.Error)
}

func TestEPGHandler_GetChannelGuide_UnknownIsEmptyNotError(t *testing.T) {
	h := newEPGHandler(t)

	out, err := h.GetChannelGuide(context.Background(), &ChannelGuideInput{ChannelID: "does-not-exist"})
	require.NoError(t, err)
	assert.NotNil(t, out.Body.Channels)
	assert.Empty(t, out.Body.Channels)
	assert.Empty(t, out.Body.Error)
}

func TestEPGHandler_GetNowAndNext(t *testing.T) {
	h := newEPGHandler(t)
	zone := time.FixedZone("", -3*60*60)
	h.now = func() time.Time { return time.Date(2026, 8, 31, 12, 30, 0, 0, zone) }

	out, err := h.GetNowAndNext(context.Background(), &ChannelGuideInput{ChannelID: "ESPN.br"})
	require.NoError(t, err)
	assert.Equal(t, "ESPN.br", out.Body.Channel)
	require.NotNil(t, out.Body.Now)
	assert.Equal(t, "SportsCenter", out.Body.Now.Title)
	require.NotNil(t, out.Body.Next)
	assert.Equal(t, "Futebol ao Vivo", out.Body.Next.Title)
}

func TestEPGHandler_Refresh(t *testing.T) {
	h := newEPGHandler(t)

	out, err := h.Refresh(context.Background(), &RefreshInput{})
	require.NoError(t, err)
	assert.True(t, out.Body.Refreshed)
}

func TestEPGHandler_UpstreamFailureIsEmptyBodyWithMessage(t *testing.T) {
	source := &guideSourceStub{err: assert.AnError}
	engine := epg.NewEngine(source, "http://panel/xmltv.php", nil, nil, slog.New(slog.DiscardHandler))
	h := NewEPGHandler(engine, slog.New(slog.DiscardHandler))

	out, err := h.GetGuide(context.Background(), &GetGuideInput{})
	require.NoError(t, err, "upstream failure must not surface as a handler error")
	assert.Empty(t, out.Body.Channels)
	assert.NotEmpty(t, out.Body.Error)
}
