package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, userID int64, username string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestDecodeClaims(t *testing.T) {
	token := signedToken(t, 42, "alice", time.Now().Add(time.Hour))

	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestExpired(t *testing.T) {
	live := signedToken(t, 1, "bob", time.Now().Add(time.Hour))
	if Expired(live, 0) {
		t.Fatalf("token with 1h left reported expired")
	}
	if !Expired(live, 2*time.Hour) {
		t.Fatalf("token inside leeway window should report expired")
	}

	dead := signedToken(t, 1, "bob", time.Now().Add(-time.Minute))
	if !Expired(dead, 0) {
		t.Fatalf("expired token reported live")
	}

	if !Expired("garbage", 0) {
		t.Fatalf("undecodable token should count as expired")
	}
}

func TestFileTokenMissing(t *testing.T) {
	if _, err := FileToken("/nonexistent/token").Token(); err == nil {
		t.Fatalf("expected error for missing token file")
	}
}
