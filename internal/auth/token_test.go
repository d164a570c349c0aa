package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims Claims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func validClaims() Claims {
	now := time.Now()
	return Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "liveqa-app",
		Audience:  jwt.ClaimStrings{"liveqa"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
}

func TestVerify_Valid(t *testing.T) {
	v := NewVerifier("s3cret", "liveqa-app", "liveqa")
	got, err := v.Verify(sign(t, "s3cret", validClaims(), jwt.SigningMethodHS256))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "u1" {
		t.Errorf("got %q, want %q", got, "u1")
	}
}

func TestVerify_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noExp := validClaims()
	noExp.ExpiresAt = nil
	noSub := validClaims()
	noSub.Subject = ""
	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"other"}

	v := NewVerifier("s3cret", "liveqa-app", "liveqa")
	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong key", sign(t, "other", validClaims(), jwt.SigningMethodHS256)},
		{"wrong alg", sign(t, "s3cret", validClaims(), jwt.SigningMethodHS512)},
		{"expired", sign(t, "s3cret", expired, jwt.SigningMethodHS256)},
		{"no expiry", sign(t, "s3cret", noExp, jwt.SigningMethodHS256)},
		{"no subject", sign(t, "s3cret", noSub, jwt.SigningMethodHS256)},
		{"wrong audience", sign(t, "s3cret", wrongAud, jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err != ErrInvalidToken {
				t.Errorf("got err %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestAuthenticate_HeaderAndQuery(t *testing.T) {
	v := NewVerifier("s3cret", "", "")
	tok := sign(t, "s3cret", validClaims(), jwt.SigningMethodHS256)

	hdr := httptest.NewRequest("GET", "/ws", nil)
	hdr.Header.Set("Authorization", "Bearer "+tok)
	if got, ok := v.Authenticate(hdr); !ok || got != "u1" {
		t.Errorf("header: got (%q, %v), want (u1, true)", got, ok)
	}

	query := httptest.NewRequest("GET", "/ws?token="+tok, nil)
	if got, ok := v.Authenticate(query); !ok || got != "u1" {
		t.Errorf("query: got (%q, %v), want (u1, true)", got, ok)
	}

	if _, ok := v.Authenticate(httptest.NewRequest("GET", "/ws", nil)); ok {
		t.Error("request without token authenticated")
	}
}
