package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// fakeConn is an in-memory transport. Reads block on the frames
// channel; pushing an error through fail terminates the read loop.
type fakeConn struct {
	mu     sync.Mutex
	writes []proto.Inbound
	frames chan any // proto.Outbound or error
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan any, 16)}
}

func (c *fakeConn) Read(ctx context.Context, v any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case item := <-c.frames:
		if err, ok := item.(error); ok {
			return err
		}
		*(v.(*proto.Outbound)) = item.(proto.Outbound)
		return nil
	}
}

func (c *fakeConn) Write(_ context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed conn")
	}
	c.writes = append(c.writes, v.(proto.Inbound))
	return nil
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) push(out proto.Outbound) { c.frames <- out }
func (c *fakeConn) fail(err error)          { c.frames <- err }

func (c *fakeConn) written() []proto.Inbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]proto.Inbound, len(c.writes))
	copy(out, c.writes)
	return out
}

func testConfig() Config {
	return Config{
		URL:               "ws://test",
		Tokens:            auth.StaticToken("test-token"),
		MaxReconnectTries: 5,
		ReconnectInterval: time.Millisecond,
		MaxReconnectDelay: 2 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestSubscribeDeliversSnapshotSynchronously(t *testing.T) {
	m := NewManager(testConfig())

	var got []State
	unsub := m.Subscribe(func(s State) { got = append(got, s) })
	defer unsub()

	if len(got) != 1 {
		t.Fatalf("expected immediate snapshot, got %d calls", len(got))
	}
	if got[0].Status != StatusDisconnected || got[0].Err != nil || got[0].ReconnectAttempts != 0 {
		t.Fatalf("unexpected initial state: %+v", got[0])
	}
}

func TestConnectTransitionsAndHello(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	m.dial = func(context.Context) (transport, error) { return conn, nil }

	var statuses []Status
	m.Subscribe(func(s State) { statuses = append(statuses, s.Status) })

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	st := m.State()
	if st.Status != StatusConnected || st.Err != nil || st.ReconnectAttempts != 0 {
		t.Fatalf("unexpected state after connect: %+v", st)
	}
	if st.LastConnected.IsZero() {
		t.Fatalf("LastConnected not stamped")
	}

	// disconnected (snapshot) -> connecting -> connected, in order.
	want := []Status{StatusDisconnected, StatusConnecting, StatusConnected}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected transitions: %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("transition %d: got %s want %s", i, statuses[i], want[i])
		}
	}

	writes := conn.written()
	if len(writes) != 1 || writes[0].Type != proto.InboundTypeHello {
		t.Fatalf("expected hello handshake, got %+v", writes)
	}
	hello := writes[0].Data.(proto.HelloData)
	if hello.Token != "test-token" || hello.Protocol != proto.ProtocolVersion {
		t.Fatalf("unexpected hello payload: %+v", hello)
	}
}

func TestConnectWhileConnectedIsNoop(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	dials := 0
	m.dial = func(context.Context) (transport, error) { dials++; return conn, nil }

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if dials != 1 {
		t.Fatalf("expected 1 dial, got %d", dials)
	}
}

func TestReconnectExhaustion(t *testing.T) {
	m := NewManager(testConfig())
	dialErr := errors.New("refused")
	dials := 0
	var mu sync.Mutex
	m.dial = func(context.Context) (transport, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, dialErr
	}

	if err := m.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error")
	}

	waitFor(t, time.Second, func() bool {
		st := m.State()
		return st.Status == StatusError && st.ReconnectAttempts == 5
	}, "retry exhaustion")

	mu.Lock()
	defer mu.Unlock()
	if dials != 5 {
		t.Fatalf("expected 5 dial attempts, got %d", dials)
	}
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	m := NewManager(testConfig())
	first := newFakeConn()
	second := newFakeConn()
	dials := 0
	var mu sync.Mutex
	m.dial = func(context.Context) (transport, error) {
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()
		if n == 1 {
			return first, nil
		}
		return second, nil
	}

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	first.fail(errors.New("connection reset"))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		n := dials
		mu.Unlock()
		st := m.State()
		return n == 2 && st.Status == StatusConnected && st.ReconnectAttempts == 0 && st.Err == nil
	}, "reconnect")

	mu.Lock()
	defer mu.Unlock()
	if dials != 2 {
		t.Fatalf("expected 2 dials, got %d", dials)
	}
}

func TestServerInitiatedCloseDoesNotRetry(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	dials := 0
	m.dial = func(context.Context) (transport, error) { dials++; return conn, nil }

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	conn.fail(websocket.CloseError{Code: websocket.StatusNormalClosure, Reason: "bye"})

	waitFor(t, time.Second, func() bool {
		return m.State().Status == StatusDisconnected
	}, "clean disconnect")

	// Give any stray reconnect loop a chance to dial.
	time.Sleep(10 * time.Millisecond)
	if dials != 1 {
		t.Fatalf("clean close must not reconnect, got %d dials", dials)
	}
}

func TestCloseResetsStateAndSilencesListeners(t *testing.T) {
	m := NewManager(testConfig())
	conn := newFakeConn()
	m.dial = func(context.Context) (transport, error) { return conn, nil }

	notifications := 0
	m.Subscribe(func(State) { notifications++ })

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	before := notifications

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st := m.State()
	if st.Status != StatusDisconnected || st.Err != nil || st.ReconnectAttempts != 0 {
		t.Fatalf("unexpected state after close: %+v", st)
	}

	// Transport activity after Close must fire nothing.
	conn.fail(errors.New("late error"))
	time.Sleep(10 * time.Millisecond)
	if notifications != before {
		t.Fatalf("listener fired after close")
	}

	if err := m.Connect(context.Background()); err == nil {
		t.Fatalf("connect after close should fail")
	}
}
