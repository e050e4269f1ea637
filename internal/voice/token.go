// Package voice handles Alexa account linking. Users set a short PIN in the
// app, prove it during the link handshake, and receive a signed access token
// the skill presents on every request.
package voice

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 180 * 24 * time.Hour

// TokenIssuer signs and verifies voice access tokens.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Configured returns true if a signing secret is set.
func (t *TokenIssuer) Configured() bool {
	return len(t.secret) > 0
}

// Issue returns a signed token identifying the given user.
func (t *TokenIssuer) Issue(userID int64) (string, error) {
	if !t.Configured() {
		return "", fmt.Errorf("voice tokens not configured: missing secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    "lumina-voice",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign voice token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the user ID it identifies.
func (t *TokenIssuer) Verify(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer("lumina-voice"), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("parse voice token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid voice token")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse voice token subject: %w", err)
	}
	return userID, nil
}
