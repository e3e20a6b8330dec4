package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s")
	tok, err := IssueToken(secret, AuthUser{ID: "u1", Email: "a@b.c", Role: RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if c.UserID != "u1" || c.Role != RoleAdmin || c.Email != "a@b.c" {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := ParseToken([]byte("other"), tok); err == nil {
		t.Fatal("token accepted with wrong secret")
	}

	expired, _ := IssueToken(secret, AuthUser{ID: "u1"}, -time.Minute)
	if _, err := ParseToken(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseToken(secret, raw); err == nil {
		t.Fatal("unsigned token accepted")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	}
	for h, want := range cases {
		got, _ := bearerToken(h)
		if got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", h, got, want)
		}
	}
}
