package proto

import "encoding/json"

// Inbound is the envelope for frames the client sends to the server.
type Inbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound is the envelope for frames the server sends to the client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

const (
	ProtocolVersion = 1

	// Client -> server frame types.
	InboundTypeHello         = "hello"
	InboundTypeOpen          = "open"
	InboundTypeClose         = "close"
	InboundTypeMsg           = "msg"
	InboundTypeEdit          = "edit"
	InboundTypeDelete        = "delete"
	InboundTypeRead          = "read"
	InboundTypeReact         = "react"
	InboundTypeTypingStart   = "typing_start"
	InboundTypeTypingStop    = "typing_stop"
	InboundTypeOnline        = "online"
	InboundTypeCallOffer     = "call_offer"
	InboundTypeCallAnswer    = "call_answer"
	InboundTypeCallCandidate = "call_candidate"
	InboundTypeCallEnd       = "call_end"

	// Server -> client frame types.
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	// Server -> client event names.
	EventMessage         = "message"
	EventMessageEdited   = "message_edited"
	EventMessageDeleted  = "message_deleted"
	EventMessagesRead    = "messages_read"
	EventMessageReaction = "message_reaction"
	EventTyping          = "typing"
	EventUserStatus      = "user_status"
	EventReadReceipt     = "read_receipt"
	EventCallOffer       = "call_offer"
	EventCallAnswer      = "call_answer"
	EventCallCandidate   = "call_candidate"
	EventCallEnded       = "call_ended"
)

// Call types carried in offer payloads.
const (
	CallTypeAudio = "AUDIO"
	CallTypeVideo = "VIDEO"
)

// HelloData introduces the client and carries the bearer credential.
type HelloData struct {
	Protocol int    `json:"protocol,omitempty"`
	Token    string `json:"token"`
}

// ConversationData addresses a single conversation (open/close).
type ConversationData struct {
	ConversationID string `json:"conversation_id"`
}

// MsgData is an outbound chat message. ID is client-generated so the
// optimistic local copy and the server echo can be reconciled.
type MsgData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

// EditData replaces the body of an existing message.
type EditData struct {
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

// DeleteData removes a message.
type DeleteData struct {
	MessageID string `json:"message_id"`
}

// ReadData marks a conversation read up to a message.
type ReadData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
}

// ReactData attaches an emoji reaction to a message.
type ReactData struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// MessageEvent is a message delivered, edited or deleted.
type MessageEvent struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body,omitempty"`
	TS             int64  `json:"ts"`
	Edited         bool   `json:"edited,omitempty"`
	Deleted        bool   `json:"deleted,omitempty"`
}

// ReactionEvent notifies about a reaction on a message.
type ReactionEvent struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// TypingEvent reports a user starting or stopping typing.
type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

// StatusEvent reports a user's presence change.
type StatusEvent struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// ReadEvent reports messages read in a conversation, either as a bulk
// messages_read notification or a per-user read_receipt.
type ReadEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	MessageID      string `json:"message_id,omitempty"`
}

// CallOfferData opens call negotiation with a peer. SDP is the raw
// session description; CallType is CallTypeAudio or CallTypeVideo.
type CallOfferData struct {
	ConversationID string `json:"conversation_id"`
	To             string `json:"to"`
	SDP            string `json:"sdp"`
	CallType       string `json:"call_type"`
}

// CallAnswerData answers a pending offer.
type CallAnswerData struct {
	ConversationID string `json:"conversation_id"`
	To             string `json:"to"`
	SDP            string `json:"sdp"`
}

// CallCandidateData trickles one ICE candidate to the peer.
type CallCandidateData struct {
	To        string `json:"to"`
	Candidate string `json:"candidate"`
}

// CallEndData terminates the call for the peer.
type CallEndData struct {
	ConversationID string `json:"conversation_id"`
	To             string `json:"to"`
}

// CallOfferEvent mirrors CallOfferData with the sender attached.
type CallOfferEvent struct {
	ConversationID string `json:"conversation_id"`
	From           string `json:"from"`
	SDP            string `json:"sdp"`
	CallType       string `json:"call_type"`
}

// CallAnswerEvent mirrors CallAnswerData with the sender attached.
type CallAnswerEvent struct {
	ConversationID string `json:"conversation_id"`
	From           string `json:"from"`
	SDP            string `json:"sdp"`
}

// CallCandidateEvent mirrors CallCandidateData with the sender attached.
type CallCandidateEvent struct {
	From      string `json:"from"`
	Candidate string `json:"candidate"`
}

// CallEndedEvent reports that the peer hung up or declined.
type CallEndedEvent struct {
	ConversationID string `json:"conversation_id"`
	From           string `json:"from"`
	Declined       bool   `json:"declined,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
