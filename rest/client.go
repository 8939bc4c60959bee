// Package rest is the HTTP side of the client: authentication, history
// hydration, and the send fallback used while the realtime transport
// is down.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/auth"
)

// Client provides REST API access to a wirechat server.
type Client struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL is the API base, e.g.
// "http://localhost:8080/api". tokens supplies the bearer credential
// for authenticated endpoints and may be nil until login.
func NewClient(baseURL string, tokens auth.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetTokenSource installs the credential source for authenticated
// requests. The token is re-read on every request, so a refreshed
// credential takes effect without rebuilding the client.
func (c *Client) SetTokenSource(tokens auth.TokenSource) {
	c.tokens = tokens
}

// Login authenticates with existing credentials and returns a JWT token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GuestLogin creates a temporary guest user and returns a JWT token.
func (c *Client) GuestLogin(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/guest", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges the current token for a fresh one. The caller must
// tear down and redial the realtime transport afterwards; a live
// connection keeps its handshake credential.
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/refresh", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History retrieves message history for a conversation with
// cursor-based pagination. before, when non-empty, pages to messages
// older than that message ID.
func (c *Client) History(ctx context.Context, conversationID string, limit int, before string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/messages/%s?limit=%d", url.PathEscape(conversationID), limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}

	var resp MessagesResponse
	if err := c.get(ctx, path, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostMessage sends a message over REST instead of the realtime
// transport.
func (c *Client) PostMessage(ctx context.Context, req PostMessageRequest) (*MessageDTO, error) {
	var resp MessageDTO
	if err := c.post(ctx, "/messages", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if requireAuth {
		if err := c.authorize(req); err != nil {
			return err
		}
	}

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if requireAuth {
		if err := c.authorize(req); err != nil {
			return err
		}
	}

	return c.do(req, dest)
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return fmt.Errorf("no credential source configured")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
