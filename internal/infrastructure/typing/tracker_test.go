package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type event struct {
	kind   string
	chatID string
	userID string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) UserTyping(chatID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"typing", chatID, userID})
}

func (r *recorder) UserStoppedTyping(chatID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"stopped", chatID, userID})
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func TestTracker_AutoStopsAfterTimeout(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(50*time.Millisecond, rec)
	defer tr.Close()

	tr.Start("c1", "u1")
	assert.True(t, tr.IsTyping("c1", "u1"))

	assert.Eventually(t, func() bool { return rec.count("stopped") == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, tr.IsTyping("c1", "u1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []event{
		{"typing", "c1", "u1"},
		{"stopped", "c1", "u1"},
	}, rec.snapshot())
}

func TestTracker_RestartExtendsWithoutReannouncing(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(80*time.Millisecond, rec)
	defer tr.Close()

	tr.Start("c1", "u1")
	time.Sleep(50 * time.Millisecond)
	tr.Start("c1", "u1")
	time.Sleep(50 * time.Millisecond)

	// First timer would have fired by now; the restart must have cancelled it.
	assert.True(t, tr.IsTyping("c1", "u1"))
	assert.Equal(t, 1, rec.count("typing"))
	assert.Equal(t, 0, rec.count("stopped"))

	assert.Eventually(t, func() bool { return rec.count("stopped") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count("stopped"))
}

func TestTracker_ExplicitStopEmitsOnce(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(50*time.Millisecond, rec)
	defer tr.Close()

	tr.Start("c1", "u1")
	assert.True(t, tr.Stop("c1", "u1"))
	assert.False(t, tr.Stop("c1", "u1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count("stopped"))
}

func TestTracker_StopUserStopsEveryChat(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(time.Minute, rec)
	defer tr.Close()

	tr.Start("c1", "u1")
	tr.Start("c2", "u1")
	tr.Start("c3", "u1")
	tr.Start("c1", "u2")

	n := tr.StopUser("u1")

	assert.Equal(t, 3, n)
	assert.Equal(t, 3, rec.count("stopped"))
	assert.Equal(t, []string{"u2"}, tr.Typing("c1"))
	assert.Empty(t, tr.Typing("c2"))
}

func TestTracker_CloseIsSilent(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(20*time.Millisecond, rec)

	tr.Start("c1", "u1")
	tr.Close()
	tr.Start("c2", "u1")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, len(rec.snapshot()))
}
