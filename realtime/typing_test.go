package realtime

import (
	"slices"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

func typingEv(c, u string, typing bool) proto.TypingEvent {
	return proto.TypingEvent{ConversationID: c, UserID: u, IsTyping: typing}
}

func TestTypingLifecycle(t *testing.T) {
	ts := NewTypingSet()

	ts.Apply(typingEv("c1", "u1", true))
	ts.Apply(typingEv("c1", "u2", true))
	ts.Apply(typingEv("c1", "u1", false))

	if got := ts.TypingUsers("c1"); !slices.Equal(got, []string{"u2"}) {
		t.Fatalf("expected [u2], got %v", got)
	}

	ts.Apply(typingEv("c1", "u2", false))
	if got := ts.TypingUsers("c1"); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	if convos := ts.Conversations(); len(convos) != 0 {
		t.Fatalf("drained conversation entry must be removed, got %v", convos)
	}
}

func TestTypingIdempotentStart(t *testing.T) {
	ts := NewTypingSet()

	ts.Apply(typingEv("c1", "u1", true))
	ts.Apply(typingEv("c1", "u1", true))

	got := ts.TypingUsers("c1")
	if !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("duplicate start must be a no-op, got %v", got)
	}
}

func TestTypingStopUnknownIsNoop(t *testing.T) {
	ts := NewTypingSet()

	ts.Apply(typingEv("c1", "ghost", false))
	if ts.IsUserTyping("c1", "ghost") {
		t.Fatalf("ghost reported typing")
	}
	if convos := ts.Conversations(); len(convos) != 0 {
		t.Fatalf("stop for unknown user must not create an entry, got %v", convos)
	}
}

func TestTypingIsUserTyping(t *testing.T) {
	ts := NewTypingSet()
	ts.Apply(typingEv("c1", "u1", true))

	if !ts.IsUserTyping("c1", "u1") {
		t.Fatalf("u1 should be typing")
	}
	if ts.IsUserTyping("c1", "u2") {
		t.Fatalf("u2 should not be typing")
	}
	if ts.IsUserTyping("unknown", "u1") {
		t.Fatalf("unknown conversation should report false")
	}
}

func TestTypingExpiry(t *testing.T) {
	now := time.Now()
	ts := NewTypingSet(WithExpiry(5 * time.Second))
	ts.now = func() time.Time { return now }

	ts.Apply(typingEv("c1", "u1", true))

	now = now.Add(3 * time.Second)
	if !ts.IsUserTyping("c1", "u1") {
		t.Fatalf("entry expired too early")
	}

	// Activity re-stamps the entry.
	ts.Apply(typingEv("c1", "u1", true))
	now = now.Add(4 * time.Second)
	if !ts.IsUserTyping("c1", "u1") {
		t.Fatalf("re-stamped entry expired too early")
	}

	now = now.Add(2 * time.Second)
	if ts.IsUserTyping("c1", "u1") {
		t.Fatalf("entry survived past expiry")
	}
	if convos := ts.Conversations(); len(convos) != 0 {
		t.Fatalf("expired conversation entry must be removed, got %v", convos)
	}
}

func TestTypingOnChange(t *testing.T) {
	ts := NewTypingSet()

	type change struct {
		convo string
		users []string
	}
	var changes []change
	unsub := ts.OnChange(func(c string, users []string) {
		changes = append(changes, change{c, users})
	})

	ts.Apply(typingEv("c1", "u1", true))
	ts.Apply(typingEv("c1", "u1", true)) // no-op, no notification
	ts.Apply(typingEv("c1", "u1", false))

	if len(changes) != 2 {
		t.Fatalf("expected 2 change notifications, got %d", len(changes))
	}
	if !slices.Equal(changes[0].users, []string{"u1"}) || len(changes[1].users) != 0 {
		t.Fatalf("unexpected change sequence: %+v", changes)
	}

	unsub()
	ts.Apply(typingEv("c1", "u1", true))
	if len(changes) != 2 {
		t.Fatalf("listener fired after unsubscribe")
	}
}

func TestPresenceSet(t *testing.T) {
	p := NewPresenceSet()

	p.Apply(proto.StatusEvent{UserID: "alice", Online: true})
	if !p.IsOnline("alice") {
		t.Fatalf("alice should be online")
	}

	p.Apply(proto.StatusEvent{UserID: "alice", Online: false})
	if p.IsOnline("alice") {
		t.Fatalf("alice should be offline")
	}

	p.Apply(proto.StatusEvent{UserID: "bob", Online: true})
	p.Reset()
	if p.IsOnline("bob") {
		t.Fatalf("reset should clear presence")
	}
}
