package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

func eventFrame(t *testing.T, event string, payload any) proto.Outbound {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event, Data: raw}
}

// mustEvent waits for one value on ch.
func mustEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		panic("unreachable")
	}
}

func connectedManager(t *testing.T) (*Manager, *fakeConn) {
	t.Helper()
	m := NewManager(testConfig())
	conn := newFakeConn()
	m.dial = func(context.Context) (transport, error) { return conn, nil }
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, conn
}

func TestBindRoutesEvents(t *testing.T) {
	m, conn := connectedManager(t)

	messages := make(chan proto.MessageEvent, 1)
	typing := make(chan proto.TypingEvent, 1)
	errs := make(chan error, 1)

	cleanup := m.Bind(&Handlers{
		OnMessage: func(ev proto.MessageEvent) { messages <- ev },
		OnTyping:  func(ev proto.TypingEvent) { typing <- ev },
		OnError:   func(err error) { errs <- err },
	})
	defer cleanup()

	conn.push(eventFrame(t, proto.EventMessage, proto.MessageEvent{
		ID: "m1", ConversationID: "c1", SenderID: "alice", Body: "hi",
	}))
	msg := mustEvent(t, messages)
	if msg.ID != "m1" || msg.SenderID != "alice" {
		t.Fatalf("unexpected message event: %+v", msg)
	}

	conn.push(eventFrame(t, proto.EventTyping, proto.TypingEvent{
		ConversationID: "c1", UserID: "alice", IsTyping: true,
	}))
	tv := mustEvent(t, typing)
	if !tv.IsTyping || tv.UserID != "alice" {
		t.Fatalf("unexpected typing event: %+v", tv)
	}

	conn.push(proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unauthorized", Msg: "no token"}})
	err := mustEvent(t, errs)
	ce, ok := err.(*ClientError)
	if !ok || ce.Code != ErrorUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBindCleanupUnbinds(t *testing.T) {
	m, conn := connectedManager(t)

	messages := make(chan proto.MessageEvent, 1)
	cleanup := m.Bind(&Handlers{
		OnMessage: func(ev proto.MessageEvent) { messages <- ev },
	})
	cleanup()

	conn.push(eventFrame(t, proto.EventMessage, proto.MessageEvent{ID: "m1"}))
	select {
	case ev := <-messages:
		t.Fatalf("handler fired after cleanup: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStaleCleanupIsNoop(t *testing.T) {
	m, conn := connectedManager(t)

	old := m.Bind(&Handlers{})
	messages := make(chan proto.MessageEvent, 1)
	fresh := m.Bind(&Handlers{
		OnMessage: func(ev proto.MessageEvent) { messages <- ev },
	})
	defer fresh()

	// Cleaning up the superseded table must not unbind the fresh one.
	old()

	conn.push(eventFrame(t, proto.EventMessage, proto.MessageEvent{ID: "m2"}))
	ev := mustEvent(t, messages)
	if ev.ID != "m2" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMalformedPayloadReportsSerializationError(t *testing.T) {
	m, conn := connectedManager(t)

	errs := make(chan error, 1)
	cleanup := m.Bind(&Handlers{
		OnMessage: func(proto.MessageEvent) { t.Errorf("handler fired for malformed payload") },
		OnError:   func(err error) { errs <- err },
	})
	defer cleanup()

	conn.push(proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventMessage,
		Data:  json.RawMessage(`{"id":`),
	})

	err := mustEvent(t, errs)
	ce, ok := err.(*ClientError)
	if !ok || ce.Code != ErrorSerialization {
		t.Fatalf("expected serialization error, got %v", err)
	}
}
