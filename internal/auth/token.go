// Package auth verifies the access tokens the main application issues, so a
// socket's user id comes from a signed claim instead of the join payload.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or
	// signed with the wrong key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoToken is returned when a request carries no token.
	ErrNoToken = errors.New("no token")
)

// Claims are the access token claims the verifier reads. Subject is the
// user id.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id,omitempty"`
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier returns a verifier for tokens signed with secret. Empty issuer
// or audience are not checked.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses tokenString and returns the user id it was issued for.
func (v *Verifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate reads the token from the Authorization header or, for
// browsers that cannot set headers on a socket, the token query parameter.
// It has the shape of handlers.Authenticator.
func (v *Verifier) Authenticate(r *http.Request) (string, bool) {
	tok, err := tokenFromRequest(r)
	if err != nil {
		return "", false
	}
	userID, err := v.Verify(tok)
	if err != nil {
		return "", false
	}
	return userID, true
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && strings.TrimSpace(h) != "" {
		return strings.TrimSpace(h), nil
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return q, nil
	}
	return "", ErrNoToken
}
