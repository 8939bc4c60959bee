package rest

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by the auth endpoints.
type TokenResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest,omitempty"`
}

// MessageDTO is one message in a history page. Field names mirror the
// realtime event payloads so both paths hydrate the same cache.
type MessageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body,omitempty"`
	TS             int64  `json:"ts"`
	Edited         bool   `json:"edited,omitempty"`
	Deleted        bool   `json:"deleted,omitempty"`
}

// MessagesResponse is a cursor-paged history window.
type MessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
	HasMore  bool         `json:"has_more"`
}

// PostMessageRequest sends a message over REST. Used as the fallback
// path while the realtime transport is down; ID is client-generated so
// the send stays idempotent across retries.
type PostMessageRequest struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
