// Package epg downloads and parses XMLTV program guides and resolves
// loosely-structured upstream channel identifiers to guide channels through
// a cascade of matching strategies.
package epg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zaptv/zaptv/internal/httpclient"
	"github.com/zaptv/zaptv/internal/observability"
	"github.com/zaptv/zaptv/pkg/xmltv"
)

// Program is one guide entry. Start and Stop keep the upstream's raw textual
// form; comparisons always go through NormalizeTimestamp.
type Program struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Start       string `json:"start"`
	Stop        string `json:"stop"`
	ChannelName string `json:"channel_name"`
}

// Channel is a guide channel with its programs sorted ascending by start.
type Channel struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon,omitempty"`
	Programs []Program `json:"programs"`

	normalizedName string
}

// Empty reports whether the channel carries no programs. Empty channels are
// excluded from matching results by default.
func (c *Channel) Empty() bool {
	return len(c.Programs) == 0
}

// GuideSource fetches the raw guide document.
type GuideSource interface {
	Fetch(ctx context.Context, req httpclient.Request) (*httpclient.Body, error)
}

// StreamNamer resolves a catalog stream id to its display name. Catalog ids
// and guide ids are assigned independently upstream, so a failed guide
// lookup retries through the stream's human name.
type StreamNamer interface {
	StreamName(ctx context.Context, streamID string) (string, error)
}

// Invalidator drops the cached guide document so the next load refetches.
type Invalidator func(ctx context.Context) error

// Engine acquires and serves the program guide.
type Engine struct {
	source     GuideSource
	guideURL   string
	invalidate Invalidator
	names      StreamNamer
	logger     *slog.Logger

	mu       sync.RWMutex
	channels []*Channel
	byID     map[string]*Channel
	loaded   bool
}

// NewEngine creates a guide engine. guideURL is the XMLTV document location
// (a panel xmltv.php URL or an explicit override). names may be nil when no
// catalog is available for id indirection; invalidate may be nil when the
// source is not cached.
func NewEngine(source GuideSource, guideURL string, invalidate Invalidator, names StreamNamer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:     source,
		guideURL:   guideURL,
		invalidate: invalidate,
		names:      names,
		logger:     logger.With(slog.String("component", "epg")),
		byID:       make(map[string]*Channel),
	}
}

// Guide returns every non-empty guide channel, loading on first use.
// Acquisition or parse failures yield an empty slice plus the error; callers
// keep functioning and may retry.
func (e *Engine) Guide(ctx context.Context) ([]*Channel, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return []*Channel{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Channel, 0, len(e.channels))
	for _, ch := range e.channels {
		if !ch.Empty() {
			out = append(out, ch)
		}
	}
	return out, nil
}

// GetEPG resolves channelID to guide channels. An empty id returns the whole
// guide. A non-empty id is matched through the cascade; when it is in fact a
// catalog stream id, the stream's display name is resolved and re-matched.
// No match yields an empty slice, not an error.
func (e *Engine) GetEPG(ctx context.Context, channelID string) ([]*Channel, error) {
	channels, err := e.Guide(ctx)
	if err != nil {
		return []*Channel{}, err
	}
	if channelID == "" {
		return channels, nil
	}

	if ch := e.lookupID(channelID); ch != nil && !ch.Empty() {
		return []*Channel{ch}, nil
	}
	if ch := FindMatchingChannel(channelID, channels); ch != nil {
		return []*Channel{ch}, nil
	}

	if e.names != nil {
		if name, err := e.names.StreamName(ctx, channelID); err == nil && name != "" {
			if ch := FindMatchingChannel(name, channels); ch != nil {
				return []*Channel{ch}, nil
			}
		}
	}

	return []*Channel{}, nil
}

// ForceRefresh drops the cached guide, refetches, and reparses. It reports
// success as a bool and never raises: a failed refresh leaves the previous
// guide in place and the engine consistent for another attempt.
func (e *Engine) ForceRefresh(ctx context.Context) bool {
	if e.invalidate != nil {
		if err := e.invalidate(ctx); err != nil {
			e.logger.Warn("dropping cached guide failed", slog.String("error", err.Error()))
			return false
		}
	}

	if err := e.load(ctx); err != nil {
		e.logger.Warn("guide refresh failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// CurrentProgram returns the program bracketing now, or nil.
func CurrentProgram(ch *Channel, now time.Time) *Program {
	for i := range ch.Programs {
		p := &ch.Programs[i]
		start, err1 := ParseTimestamp(p.Start)
		stop, err2 := ParseTimestamp(p.Stop)
		if err1 != nil || err2 != nil {
			continue
		}
		if !now.Before(start) && now.Before(stop) {
			return p
		}
	}
	return nil
}

// NextProgram returns the earliest program starting after now, or nil.
// Programs are sorted by start, so the first future start wins.
func NextProgram(ch *Channel, now time.Time) *Program {
	for i := range ch.Programs {
		p := &ch.Programs[i]
		start, err := ParseTimestamp(p.Start)
		if err != nil {
			continue
		}
		if start.After(now) {
			return p
		}
	}
	return nil
}

// lookupID answers id lookups from the index, which also carries the
// synthesized alias entries for dictionary-matched channels.
func (e *Engine) lookupID(id string) *Channel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if ch := e.byID[id]; ch != nil {
		return ch
	}
	return e.byID[NormalizeName(id)]
}

func (e *Engine) ensureLoaded(ctx context.Context) error {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if loaded {
		return nil
	}
	return e.load(ctx)
}

// load fetches and parses the guide, replacing the channel set wholesale on
// success. A fetch or parse failure leaves the previous set untouched.
func (e *Engine) load(ctx context.Context) error {
	done := observability.TimedOperation(ctx, e.logger, "guide load")
	defer done()

	body, err := e.source.Fetch(ctx, httpclient.Request{
		URL:  e.guideURL,
		Kind: httpclient.ResourceGuide,
	})
	if err != nil {
		return err
	}

	channels, byID, stats, err := parseGuide(body.Raw)
	if err != nil {
		return fmt.Errorf("parsing guide: %w", err)
	}

	e.mu.Lock()
	e.channels = channels
	e.byID = byID
	e.loaded = true
	e.mu.Unlock()

	e.logger.Info("guide parsed",
		slog.Int("channels", len(channels)),
		slog.Int("dropped_channels", stats.droppedChannels),
		slog.Int("dropped_programs", stats.droppedPrograms),
	)
	return nil
}

type parseStats struct {
	droppedChannels int
	droppedPrograms int
}

// parseGuide builds the channel set from a raw XMLTV document. Malformed
// elements are dropped and counted; a document-level parse failure is
// returned so the caller keeps its previous channel set.
func parseGuide(raw []byte) ([]*Channel, map[string]*Channel, parseStats, error) {
	var (
		channels []*Channel
		byID     = make(map[string]*Channel)
		byName   = make(map[string]*Channel)
		stats    parseStats
	)

	parser := &xmltv.Parser{
		OnChannel: func(src *xmltv.Channel) error {
			if src.ID == "" || src.DisplayName == "" {
				stats.droppedChannels++
				return nil
			}
			ch := &Channel{
				ID:             src.ID,
				Name:           src.DisplayName,
				Icon:           src.Icon,
				normalizedName: NormalizeName(src.DisplayName),
			}
			channels = append(channels, ch)
			byID[ch.ID] = ch
			if ch.normalizedName != "" {
				byName[ch.normalizedName] = ch
			}
			return nil
		},
		OnProgramme: func(src *xmltv.Programme) error {
			ch := byID[src.Channel]
			if ch == nil {
				// The channel attribute sometimes carries a name, not an id.
				ch = byName[NormalizeName(src.Channel)]
			}
			if ch == nil || src.Title == "" || (src.Start == "" && src.Stop == "") {
				stats.droppedPrograms++
				return nil
			}
			ch.Programs = append(ch.Programs, Program{
				Title:       src.Title,
				Description: src.Description,
				Category:    src.Category,
				Language:    src.Language,
				Icon:        src.Icon,
				Start:       src.Start,
				Stop:        src.Stop,
				ChannelName: ch.Name,
			})
			return nil
		},
	}

	if err := parser.ParseCompressed(bytes.NewReader(raw)); err != nil {
		return nil, nil, stats, err
	}

	for _, ch := range channels {
		sortPrograms(ch.Programs)
	}

	// Channels matching a dictionary target gain index entries under the
	// brand's normalized names, so id lookups under any alias succeed.
	for _, ch := range channels {
		for _, name := range aliasNamesFor(ch.ID) {
			if _, taken := byID[name]; !taken {
				byID[name] = ch
			}
		}
	}

	return channels, byID, stats, nil
}

// sortPrograms orders by normalized start time; unparseable starts sort by
// their raw text after all parseable ones.
func sortPrograms(programs []Program) {
	sort.SliceStable(programs, func(i, j int) bool {
		ti, erri := ParseTimestamp(programs[i].Start)
		tj, errj := ParseTimestamp(programs[j].Start)
		switch {
		case erri == nil && errj == nil:
			return ti.Before(tj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return strings.Compare(programs[i].Start, programs[j].Start) < 0
		}
	})
}
