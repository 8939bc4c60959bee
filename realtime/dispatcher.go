package realtime

import (
	"encoding/json"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// Handlers is the fixed table of inbound event callbacks. Compose the
// full set once before Bind; the table is not mutated after binding.
// Nil entries drop their events.
type Handlers struct {
	OnMessage        func(proto.MessageEvent)
	OnMessageEdited  func(proto.MessageEvent)
	OnMessageDeleted func(proto.MessageEvent)
	OnMessagesRead   func(proto.ReadEvent)
	OnReaction       func(proto.ReactionEvent)
	OnTyping         func(proto.TypingEvent)
	OnUserStatus     func(proto.StatusEvent)
	OnReadReceipt    func(proto.ReadEvent)
	OnCallOffer      func(proto.CallOfferEvent)
	OnCallAnswer     func(proto.CallAnswerEvent)
	OnCallCandidate  func(proto.CallCandidateEvent)
	OnCallEnded      func(proto.CallEndedEvent)
	OnError          func(error)
}

// Bind installs h as the inbound handler table and returns a cleanup
// func that unbinds it. Cleanup only removes the exact table it bound:
// if a later Bind replaced it, the stale cleanup is a no-op.
func (m *Manager) Bind(h *Handlers) func() {
	m.mu.Lock()
	if !m.closed {
		m.handlers = h
	}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		if m.handlers == h {
			m.handlers = nil
		}
		m.mu.Unlock()
	}
}

// dispatch routes one server frame to the bound handler table. Frames
// arriving with no table bound are dropped.
func (m *Manager) dispatch(out proto.Outbound) {
	m.mu.Lock()
	h := m.handlers
	m.mu.Unlock()
	if h == nil {
		return
	}

	if out.Type == proto.OutboundTypeError {
		if h.OnError != nil && out.Error != nil {
			h.OnError(FromProtocolError(out.Error))
		}
		return
	}

	switch out.Event {
	case proto.EventMessage:
		fire(out, h.OnMessage, h.OnError)
	case proto.EventMessageEdited:
		fire(out, h.OnMessageEdited, h.OnError)
	case proto.EventMessageDeleted:
		fire(out, h.OnMessageDeleted, h.OnError)
	case proto.EventMessagesRead:
		fire(out, h.OnMessagesRead, h.OnError)
	case proto.EventMessageReaction:
		fire(out, h.OnReaction, h.OnError)
	case proto.EventTyping:
		fire(out, h.OnTyping, h.OnError)
	case proto.EventUserStatus:
		fire(out, h.OnUserStatus, h.OnError)
	case proto.EventReadReceipt:
		fire(out, h.OnReadReceipt, h.OnError)
	case proto.EventCallOffer:
		fire(out, h.OnCallOffer, h.OnError)
	case proto.EventCallAnswer:
		fire(out, h.OnCallAnswer, h.OnError)
	case proto.EventCallCandidate:
		fire(out, h.OnCallCandidate, h.OnError)
	case proto.EventCallEnded:
		fire(out, h.OnCallEnded, h.OnError)
	}
}

// fire decodes the frame payload and invokes the handler, reporting
// malformed payloads through onErr.
func fire[T any](out proto.Outbound, h func(T), onErr func(error)) {
	if h == nil {
		return
	}
	var ev T
	if err := json.Unmarshal(out.Data, &ev); err != nil {
		if onErr != nil {
			onErr(WrapError(ErrorSerialization, "unmarshal "+out.Event+" event", err))
		}
		return
	}
	h(ev)
}
