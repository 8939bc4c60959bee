package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// Emitter is the outbound-only facade over a Manager. Every operation
// is gated on "connected": while disconnected it reports false and logs
// a warning instead of failing loudly. Nothing is queued; callers own
// the resubmission policy.
type Emitter struct {
	m   *Manager
	log zerolog.Logger
}

// NewEmitter wraps m.
func NewEmitter(m *Manager) *Emitter {
	return &Emitter{m: m, log: m.log.With().Str("component", "emitter").Logger()}
}

// OpenConversation announces the client is viewing a conversation.
func (e *Emitter) OpenConversation(ctx context.Context, conversationID string) bool {
	return e.emit(ctx, proto.InboundTypeOpen, proto.ConversationData{ConversationID: conversationID})
}

// CloseConversation announces the client left the conversation view.
func (e *Emitter) CloseConversation(ctx context.Context, conversationID string) bool {
	return e.emit(ctx, proto.InboundTypeClose, proto.ConversationData{ConversationID: conversationID})
}

// SendMessage emits a chat message with a client-generated ID and
// returns that ID with the emission result.
func (e *Emitter) SendMessage(ctx context.Context, conversationID, body string) (string, bool) {
	id := uuid.New().String()
	ok := e.emit(ctx, proto.InboundTypeMsg, proto.MsgData{
		ID:             id,
		ConversationID: conversationID,
		Body:           body,
	})
	return id, ok
}

// EditMessage replaces the body of an existing message.
func (e *Emitter) EditMessage(ctx context.Context, messageID, body string) bool {
	return e.emit(ctx, proto.InboundTypeEdit, proto.EditData{MessageID: messageID, Body: body})
}

// DeleteMessage removes a message.
func (e *Emitter) DeleteMessage(ctx context.Context, messageID string) bool {
	return e.emit(ctx, proto.InboundTypeDelete, proto.DeleteData{MessageID: messageID})
}

// MarkRead marks the conversation read up to messageID.
func (e *Emitter) MarkRead(ctx context.Context, conversationID, messageID string) bool {
	return e.emit(ctx, proto.InboundTypeRead, proto.ReadData{ConversationID: conversationID, MessageID: messageID})
}

// React attaches an emoji reaction to a message.
func (e *Emitter) React(ctx context.Context, messageID, emoji string) bool {
	return e.emit(ctx, proto.InboundTypeReact, proto.ReactData{MessageID: messageID, Emoji: emoji})
}

// StartTyping signals the local user started typing.
func (e *Emitter) StartTyping(ctx context.Context, conversationID string) bool {
	return e.emit(ctx, proto.InboundTypeTypingStart, proto.ConversationData{ConversationID: conversationID})
}

// StopTyping signals the local user stopped typing.
func (e *Emitter) StopTyping(ctx context.Context, conversationID string) bool {
	return e.emit(ctx, proto.InboundTypeTypingStop, proto.ConversationData{ConversationID: conversationID})
}

// AnnounceOnline reports presence after (re)connecting.
func (e *Emitter) AnnounceOnline(ctx context.Context) bool {
	return e.emit(ctx, proto.InboundTypeOnline, nil)
}

// SendCallOffer relays an SDP offer to the peer.
func (e *Emitter) SendCallOffer(ctx context.Context, data proto.CallOfferData) bool {
	return e.emit(ctx, proto.InboundTypeCallOffer, data)
}

// SendCallAnswer relays an SDP answer to the peer.
func (e *Emitter) SendCallAnswer(ctx context.Context, data proto.CallAnswerData) bool {
	return e.emit(ctx, proto.InboundTypeCallAnswer, data)
}

// SendCallCandidate trickles one ICE candidate to the peer.
func (e *Emitter) SendCallCandidate(ctx context.Context, data proto.CallCandidateData) bool {
	return e.emit(ctx, proto.InboundTypeCallCandidate, data)
}

// SendCallEnd tells the peer the call is over.
func (e *Emitter) SendCallEnd(ctx context.Context, data proto.CallEndData) bool {
	return e.emit(ctx, proto.InboundTypeCallEnd, data)
}

func (e *Emitter) emit(ctx context.Context, typ string, data any) bool {
	if !e.m.IsConnected() {
		e.log.Warn().Str("event", typ).Msg("emit while disconnected, dropping")
		return false
	}
	if err := e.m.send(ctx, proto.Inbound{Type: typ, Data: data}); err != nil {
		e.log.Warn().Err(err).Str("event", typ).Msg("emit failed")
		return false
	}
	return true
}
