package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vovakirdan/wirechat-client/internal/auth"
)

func TestHistorySendsBearerAndCursor(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(MessagesResponse{
			Messages: []MessageDTO{{ID: "m1", ConversationID: "c1", SenderID: "alice", Body: "hi", TS: 1}},
			HasMore:  true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.StaticToken("tok-123"))
	resp, err := c.History(context.Background(), "c1", 20, "m0")
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/messages/c1" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "limit=20&before=m0" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(resp.Messages) != 1 || !resp.HasMore {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLoginSkipsAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(TokenResponse{Token: "fresh", UserID: 7, Username: req.Username})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	resp, err := c.Login(context.Background(), LoginRequest{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "fresh" || resp.Username != "alice" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "token expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.StaticToken("stale"))
	_, err := c.History(context.Background(), "c1", 20, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "api error (status 401): token expired" {
		t.Fatalf("unexpected error: %q", got)
	}
}

func TestPostMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req PostMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(MessageDTO{ID: req.ID, ConversationID: req.ConversationID, Body: req.Body, TS: 42})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.StaticToken("tok"))
	msg, err := c.PostMessage(context.Background(), PostMessageRequest{ID: "m9", ConversationID: "c1", Body: "offline send"})
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if msg.ID != "m9" || msg.TS != 42 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
