package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the WireChat server's JWT claims. The client decodes
// them without signature verification; only the server holds the
// secret; the client just needs identity and expiry.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
	jwt.RegisteredClaims
}

// TokenSource yields the current bearer credential. It is consulted on
// every (re)connect attempt so a refreshed token is picked up without
// rebuilding the transport by hand.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource wrapping a fixed string.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(s), nil
}

// FileToken reads the credential from a file on every call, the
// client-side analogue of the browser's cookie store.
type FileToken string

func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", string(f))
	}
	return token, nil
}

// Decode parses token claims without verifying the signature.
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token expires within leeway from now.
// Tokens without an exp claim are treated as non-expiring.
func Expired(token string, leeway time.Duration) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(leeway).After(claims.ExpiresAt.Time)
}
