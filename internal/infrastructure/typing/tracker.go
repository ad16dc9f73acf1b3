package typing

import (
	"sort"
	"sync"
	"time"
)

const DefaultTimeout = 3 * time.Second

// Notifier receives typing transitions. Calls happen outside the tracker
// lock and may arrive from timer goroutines.
type Notifier interface {
	UserTyping(chatID, userID string)
	UserStoppedTyping(chatID, userID string)
}

type key struct {
	chatID string
	userID string
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Tracker holds the idle/typing state of each (chat, user) pair. A typing
// pair reverts to idle after timeout unless started again.
type Tracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	notifier Notifier
	active   map[key]*entry
	gen      uint64
	closed   bool
}

func NewTracker(timeout time.Duration, notifier Notifier) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout:  timeout,
		notifier: notifier,
		active:   make(map[key]*entry),
	}
}

// Start moves the pair to typing, or pushes its expiry out if already
// typing. Only the idle to typing transition is announced.
func (t *Tracker) Start(chatID, userID string) {
	k := key{chatID, userID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.gen++
	gen := t.gen
	e, already := t.active[k]
	if already {
		e.timer.Stop()
		e.gen = gen
	} else {
		e = &entry{gen: gen}
		t.active[k] = e
	}
	e.timer = time.AfterFunc(t.timeout, func() { t.expire(k, gen) })
	t.mu.Unlock()

	if !already {
		t.notifier.UserTyping(chatID, userID)
	}
}

// Stop moves the pair to idle. It reports whether the pair was typing.
func (t *Tracker) Stop(chatID, userID string) bool {
	k := key{chatID, userID}

	t.mu.Lock()
	e, ok := t.active[k]
	if ok {
		e.timer.Stop()
		delete(t.active, k)
	}
	t.mu.Unlock()

	if ok {
		t.notifier.UserStoppedTyping(chatID, userID)
	}
	return ok
}

// StopUser stops every chat userID is typing in and returns how many.
func (t *Tracker) StopUser(userID string) int {
	var chats []string

	t.mu.Lock()
	for k, e := range t.active {
		if k.userID == userID {
			e.timer.Stop()
			delete(t.active, k)
			chats = append(chats, k.chatID)
		}
	}
	t.mu.Unlock()

	sort.Strings(chats)
	for _, chatID := range chats {
		t.notifier.UserStoppedTyping(chatID, userID)
	}
	return len(chats)
}

// Typing returns the users currently typing in chatID.
func (t *Tracker) Typing(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var users []string
	for k := range t.active {
		if k.chatID == chatID {
			users = append(users, k.userID)
		}
	}
	sort.Strings(users)
	return users
}

func (t *Tracker) IsTyping(chatID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[key{chatID, userID}]
	return ok
}

// Close cancels all timers without emitting notifications.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, e := range t.active {
		e.timer.Stop()
		delete(t.active, k)
	}
	t.closed = true
}

func (t *Tracker) expire(k key, gen uint64) {
	t.mu.Lock()
	e, ok := t.active[k]
	// A restart after this timer was armed bumps gen; ignore the stale fire.
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.active, k)
	t.mu.Unlock()

	t.notifier.UserStoppedTyping(k.chatID, k.userID)
}
