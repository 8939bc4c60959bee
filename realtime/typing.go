package realtime

import (
	"slices"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// TypingSet aggregates inbound typing events into a per-conversation
// set of currently-typing users. Conversations whose set drains are
// removed entirely: no empty entries persist.
//
// A stop event (or expiry, when enabled) is the only removal path; with
// expiry disabled a dropped stop event leaves the user typing forever.
type TypingSet struct {
	mu     sync.Mutex
	convos map[string]map[string]time.Time
	expiry time.Duration
	subs   []typingSub
	next   int
	now    func() time.Time
}

type typingSub struct {
	id int
	fn func(conversationID string, users []string)
}

// TypingOption configures a TypingSet.
type TypingOption func(*TypingSet)

// WithExpiry makes typing entries lapse d after the last start event,
// covering dropped stop events (e.g. across a missed reconnect window).
// Zero disables expiry.
func WithExpiry(d time.Duration) TypingOption {
	return func(t *TypingSet) { t.expiry = d }
}

// NewTypingSet creates an empty aggregator.
func NewTypingSet(opts ...TypingOption) *TypingSet {
	t := &TypingSet{
		convos: make(map[string]map[string]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply folds one inbound typing event into the set. Designed to be
// composed into Handlers.OnTyping.
func (t *TypingSet) Apply(ev proto.TypingEvent) {
	t.mu.Lock()
	t.purgeLocked(ev.ConversationID)
	users := t.convos[ev.ConversationID]

	changed := false
	if ev.IsTyping {
		if users == nil {
			users = make(map[string]time.Time)
			t.convos[ev.ConversationID] = users
		}
		if _, ok := users[ev.UserID]; !ok {
			changed = true
		}
		// Re-stamp even when already present so expiry tracks activity.
		users[ev.UserID] = t.now()
	} else if users != nil {
		if _, ok := users[ev.UserID]; ok {
			delete(users, ev.UserID)
			changed = true
		}
		if len(users) == 0 {
			delete(t.convos, ev.ConversationID)
		}
	}

	var snapshot []string
	var subs []typingSub
	if changed {
		snapshot = t.usersLocked(ev.ConversationID)
		subs = slices.Clone(t.subs)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		sub.fn(ev.ConversationID, snapshot)
	}
}

// IsUserTyping reports whether userID is currently typing in the
// conversation. False for unknown conversations.
func (t *TypingSet) IsUserTyping(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.purgeLocked(conversationID)
	users, ok := t.convos[conversationID]
	if !ok {
		return false
	}
	_, typing := users[userID]
	return typing
}

// TypingUsers returns the users currently typing in the conversation,
// sorted for stable output. Empty (never nil) when nobody is.
func (t *TypingSet) TypingUsers(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.purgeLocked(conversationID)
	return t.usersLocked(conversationID)
}

// Conversations returns the IDs of conversations with at least one
// typing user.
func (t *TypingSet) Conversations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.convos))
	for id := range t.convos {
		t.purgeLocked(id)
		if _, ok := t.convos[id]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// OnChange registers a listener fired with the updated user set each
// time a conversation's typing set actually changes. Returns an
// unregister func. This is the subscription surface cache layers use
// instead of reaching into the set.
func (t *TypingSet) OnChange(fn func(conversationID string, users []string)) func() {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs = append(t.subs, typingSub{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.subs = slices.DeleteFunc(t.subs, func(s typingSub) bool { return s.id == id })
		t.mu.Unlock()
	}
}

// Reset drops all typing state, e.g. after a disconnect.
func (t *TypingSet) Reset() {
	t.mu.Lock()
	t.convos = make(map[string]map[string]time.Time)
	t.mu.Unlock()
}

func (t *TypingSet) usersLocked(conversationID string) []string {
	users := t.convos[conversationID]
	out := make([]string, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (t *TypingSet) purgeLocked(conversationID string) {
	if t.expiry <= 0 {
		return
	}
	users, ok := t.convos[conversationID]
	if !ok {
		return
	}
	cutoff := t.now().Add(-t.expiry)
	for id, stamped := range users {
		if stamped.Before(cutoff) {
			delete(users, id)
		}
	}
	if len(users) == 0 {
		delete(t.convos, conversationID)
	}
}
