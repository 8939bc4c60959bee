package realtime

import (
	"context"
	"testing"
)

func TestEmitWhileDisconnectedReportsFalse(t *testing.T) {
	m := NewManager(testConfig())
	e := NewEmitter(m)
	ctx := context.Background()

	if e.OpenConversation(ctx, "c1") {
		t.Fatalf("OpenConversation succeeded while disconnected")
	}
	if _, ok := e.SendMessage(ctx, "c1", "hi"); ok {
		t.Fatalf("SendMessage succeeded while disconnected")
	}
	if e.StartTyping(ctx, "c1") || e.StopTyping(ctx, "c1") {
		t.Fatalf("typing emission succeeded while disconnected")
	}
	if e.AnnounceOnline(ctx) {
		t.Fatalf("AnnounceOnline succeeded while disconnected")
	}
}

func TestEmitWhenConnected(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	m.dial = func(context.Context) (transport, error) { return conn, nil }
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	e := NewEmitter(m)
	id, ok := e.SendMessage(context.Background(), "c1", "hello")
	if !ok {
		t.Fatalf("SendMessage failed while connected")
	}
	if id == "" {
		t.Fatalf("expected client-generated message id")
	}

	writes := conn.written()
	// hello + msg
	if len(writes) != 2 || writes[1].Type != "msg" {
		t.Fatalf("unexpected frames: %+v", writes)
	}
}

func TestEmitAfterCloseDoesNotPanic(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	m.dial = func(context.Context) (transport, error) { return conn, nil }
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	e := NewEmitter(m)
	_ = m.Close()

	if e.React(context.Background(), "m1", "👍") {
		t.Fatalf("React succeeded after close")
	}
}
