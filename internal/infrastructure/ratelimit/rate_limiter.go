package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits at most Limit events per key within any rolling Window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Clock lets tests drive time.
type Clock func() time.Time

// SlidingWindow is an in-process sliding-window-log limiter: it keeps the
// timestamps of admitted events per key and admits a new one only while
// fewer than limit fall inside the trailing window.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    Clock

	mu     sync.Mutex
	events map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration, now Clock) *SlidingWindow {
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    now,
		events: make(map[string][]time.Time),
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.events[key], now.Add(-l.window))
	if len(kept) >= l.limit {
		l.events[key] = kept
		return Decision{
			Allowed:    false,
			RetryAfter: kept[0].Add(l.window).Sub(now),
		}, nil
	}

	kept = append(kept, now)
	l.events[key] = kept
	return Decision{Allowed: true, Remaining: l.limit - len(kept)}, nil
}

// Cleanup drops keys with no events inside the window.
func (l *SlidingWindow) Cleanup() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ts := range l.events {
		if kept := prune(ts, cutoff); len(kept) == 0 {
			delete(l.events, key)
		} else {
			l.events[key] = kept
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (l *SlidingWindow) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (l *SlidingWindow) keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// prune drops timestamps at or before cutoff. ts is sorted ascending.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
