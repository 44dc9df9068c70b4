package httpclient

import (
	"context"
	"sync"
	"time"
)

// Limiter default values.
const (
	DefaultMaxConcurrent = 2
	DefaultMinInterval   = 500 * time.Millisecond
)

// Limiter bounds upstream pressure on two axes: at most capacity requests in
// flight, and a pacing delay absorbed by every acquisition before its request
// may be issued. The delay is charged per slot, not globally serialized, so
// concurrent slots pace themselves independently. Waiters are served strictly
// first-come-first-served.
type Limiter struct {
	mu          sync.Mutex
	capacity    int
	minInterval time.Duration
	inUse       int
	waiters     []*waiter
}

type waiter struct {
	ready   chan struct{}
	granted bool
}

// Slot is a granted limiter slot. Release must be called on every exit path;
// it is safe to call more than once but only the first call returns capacity.
type Slot struct {
	once    sync.Once
	limiter *Limiter
}

// Release returns the slot to the limiter.
func (s *Slot) Release() {
	s.once.Do(func() {
		l := s.limiter
		l.mu.Lock()
		l.inUse--
		l.pumpLocked()
		l.mu.Unlock()
	})
}

// NewLimiter creates a limiter with the given concurrency cap and per-slot
// pacing interval. Non-positive capacity falls back to the default; a
// negative interval is treated as zero.
func NewLimiter(capacity int, minInterval time.Duration) *Limiter {
	if capacity < 1 {
		capacity = DefaultMaxConcurrent
	}
	if minInterval < 0 {
		minInterval = 0
	}
	return &Limiter{
		capacity:    capacity,
		minInterval: minInterval,
	}
}

// Acquire blocks until a slot is granted and its pacing delay has elapsed,
// or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) (*Slot, error) {
	w := &waiter{ready: make(chan struct{})}

	l.mu.Lock()
	l.waiters = append(l.waiters, w)
	l.pumpLocked()
	l.mu.Unlock()

	select {
	case <-w.ready:
	case <-ctx.Done():
		l.mu.Lock()
		if w.granted {
			// Grant raced the cancellation; hand the slot straight back.
			l.inUse--
			l.pumpLocked()
		} else {
			l.removeLocked(w)
		}
		l.mu.Unlock()
		return nil, ctx.Err()
	}

	slot := &Slot{limiter: l}

	// The pacing delay runs inside the held slot, so each acquisition pays
	// its own interval and concurrent slots do not queue behind each other.
	if l.minInterval > 0 {
		timer := time.NewTimer(l.minInterval)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			slot.Release()
			return nil, ctx.Err()
		}
	}
	return slot, nil
}

// InFlight reports the number of currently held slots.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Waiting reports the number of queued acquisitions.
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// pumpLocked grants slots to queued waiters in order while capacity remains.
// Caller must hold l.mu.
func (l *Limiter) pumpLocked() {
	for len(l.waiters) > 0 && l.inUse < l.capacity {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]
		w.granted = true
		close(w.ready)
		l.inUse++
	}
}

// removeLocked drops a still-queued waiter. Caller must hold l.mu.
func (l *Limiter) removeLocked(target *waiter) {
	for i, w := range l.waiters {
		if w == target {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}
