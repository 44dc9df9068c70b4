// Package cache implements the cache-aside layer between the API surface and
// upstream acquisition. Cached payloads live in a persistent backend keyed by
// composite keys; the raw provider playlist is additionally held in memory for
// the lifetime of the process.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zaptv/zaptv/internal/httpclient"
	"github.com/zaptv/zaptv/internal/models"
)

// DefaultTTL is how long cached payloads stay fresh.
const DefaultTTL = time.Hour

// Backend is the persistence surface for cached payloads.
type Backend interface {
	// Get returns the entry for key, or nil when absent.
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	// Put stores the entry, replacing any previous entry with the same key.
	Put(ctx context.Context, entry *models.CacheEntry) error
	// DeleteByPrefix removes every entry whose key starts with prefix and
	// reports how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	// DeleteExpired removes entries whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Producer acquires a fresh payload on cache miss.
type Producer func(ctx context.Context) (*httpclient.Body, error)

// Store is the cache-aside coordinator.
type Store struct {
	backend   Backend
	ttl       time.Duration
	namespace string
	logger    *slog.Logger

	// inflight deduplicates concurrent producers per key.
	inflightMu sync.Mutex
	inflight   map[string]*sync.Mutex

	// The raw playlist is fetched once per process and never TTL-expired;
	// only an explicit Clear discards it.
	playlistMu sync.RWMutex
	playlist   []byte
}

// New creates a store over the given backend. Zero ttl falls back to
// DefaultTTL; empty namespace falls back to "zaptv".
func New(backend Backend, ttl time.Duration, namespace string, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if namespace == "" {
		namespace = "zaptv"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:   backend,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger,
		inflight:  make(map[string]*sync.Mutex),
	}
}

// Key builds the composite cache key for a resource. Empty selector segments
// collapse to "all" so key shapes stay stable.
func (s *Store) Key(kind, server, identity, selector string) string {
	if selector == "" {
		selector = "all"
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", s.namespace, kind, server, identity, selector)
}

// GetOrFetch returns the cached payload for key when fresh, otherwise runs
// the producer and overwrites the entry wholesale. Concurrent callers for the
// same key share one producer invocation.
func (s *Store) GetOrFetch(ctx context.Context, key string, produce Producer) (*httpclient.Body, error) {
	if body, ok := s.lookup(ctx, key); ok {
		return body, nil
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have filled the entry while we waited.
	if body, ok := s.lookup(ctx, key); ok {
		return body, nil
	}

	body, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	entry := &models.CacheEntry{
		Key:       key,
		BodyKind:  body.Kind.String(),
		Payload:   body.Raw,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}
	if err := s.backend.Put(ctx, entry); err != nil {
		// A write failure must not hide a successful fetch.
		s.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return body, nil
}

// lookup returns a rehydrated fresh entry, or false on miss/stale/error.
func (s *Store) lookup(ctx context.Context, key string) (*httpclient.Body, bool) {
	entry, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if entry == nil || entry.Expired(time.Now()) {
		return nil, false
	}
	return rehydrate(entry), true
}

// Invalidate drops a single key so the next GetOrFetch reruns its producer.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	_, err := s.backend.DeleteByPrefix(ctx, key)
	return err
}

// Clear removes every entry under the store's namespace and discards the
// playlist hold.
func (s *Store) Clear(ctx context.Context) error {
	n, err := s.backend.DeleteByPrefix(ctx, s.namespace+":")
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	s.playlistMu.Lock()
	s.playlist = nil
	s.playlistMu.Unlock()

	s.logger.Info("cache cleared", slog.Int64("entries", n))
	return nil
}

// SweepExpired removes stale rows. Run periodically by the scheduler.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.backend.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired cache entries: %w", err)
	}
	if n > 0 {
		s.logger.Debug("expired cache entries swept", slog.Int64("entries", n))
	}
	return n, nil
}

// PlaylistBody returns the held raw playlist, or nil if none is held.
func (s *Store) PlaylistBody() []byte {
	s.playlistMu.RLock()
	defer s.playlistMu.RUnlock()
	return s.playlist
}

// SetPlaylistBody stores the raw playlist for the lifetime of the process.
func (s *Store) SetPlaylistBody(raw []byte) {
	s.playlistMu.Lock()
	s.playlist = raw
	s.playlistMu.Unlock()
}

// Namespace returns the store's key namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// keyLock returns the per-key producer lock.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	lock, ok := s.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		s.inflight[key] = lock
	}
	return lock
}

// rehydrate rebuilds a tagged body from a stored entry.
func rehydrate(entry *models.CacheEntry) *httpclient.Body {
	var kind httpclient.BodyKind
	switch strings.ToLower(entry.BodyKind) {
	case "json":
		kind = httpclient.KindJSON
	case "xml":
		kind = httpclient.KindXML
	default:
		kind = httpclient.KindText
	}

	body := &httpclient.Body{Kind: kind, Raw: entry.Payload}
	if kind == httpclient.KindJSON {
		var doc any
		if err := body.DecodeJSON(&doc); err == nil {
			body.JSON = doc
		} else {
			body.Kind = httpclient.KindText
		}
	}
	return body
}
