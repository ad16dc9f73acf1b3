package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSlidingWindow_BlocksOverLimitAndRecovers(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)}
	l := NewSlidingWindow(30, time.Minute, clock.now)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		d, err := l.Allow(ctx, "send_message:u1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "event %d", i+1)
		clock.advance(time.Second)
	}

	d, err := l.Allow(ctx, "send_message:u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	// First event was at t=0 and the clock is now at t=30s.
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	other, _ := l.Allow(ctx, "send_message:u2")
	assert.True(t, other.Allowed)

	clock.advance(30*time.Second + time.Millisecond)
	d, err = l.Allow(ctx, "send_message:u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestSlidingWindow_RollingNotFixed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)}
	l := NewSlidingWindow(2, time.Minute, clock.now)
	ctx := context.Background()

	a, _ := l.Allow(ctx, "k")
	clock.advance(50 * time.Second)
	b, _ := l.Allow(ctx, "k")
	clock.advance(20 * time.Second)
	// t=70s: the t=0 event left the window, the t=50s one has not.
	c, _ := l.Allow(ctx, "k")
	d, _ := l.Allow(ctx, "k")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.True(t, c.Allowed)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestSlidingWindow_Cleanup(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	l := NewSlidingWindow(5, time.Minute, clock.now)

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	clock.advance(2 * time.Minute)
	l.Cleanup()

	assert.Zero(t, l.keys())
}

func TestSlidingWindow_CleanupRoutineDropsIdleSenders(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)}
	l := NewSlidingWindow(30, time.Minute, clock.now)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 1000; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("send_message:u%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, 1000, l.keys())

	l.StartCleanupRoutine(ctx, 5*time.Millisecond)
	clock.advance(time.Hour)
	_, _ = l.Allow(ctx, "send_message:late")

	assert.Eventually(t, func() bool { return l.keys() == 1 }, time.Second, 5*time.Millisecond)
}
