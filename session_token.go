package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const sessionTokenIssuer = "passport_preview"

var ErrInvalidSessionToken = errors.New("invalid session token")

type SessionClaims struct {
	Email     string
	SessionId string
	ExpiresAt time.Time
}

// SessionTokens signs and verifies the session cookie value.
type SessionTokens interface {
	CreateToken(email, sessionId string, ttl time.Duration) (string, error)
	ParseToken(token string) (SessionClaims, error)
}

type HmacSessionTokens struct {
	secret []byte
	now    func() time.Time
}

// NewHmacSessionTokens uses secret as the HS256 key. An empty secret is
// replaced with a random one, which logs every user out on restart.
func NewHmacSessionTokens(secret string) (*HmacSessionTokens, error) {
	key := []byte(secret)
	if len(key) == 0 {
		random, err := GenerateNonce(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		slog.Warn("No session secret configured, using a random one")
		key = []byte(random)
	}
	return &HmacSessionTokens{secret: key, now: time.Now}, nil
}

func (st *HmacSessionTokens) CreateToken(email, sessionId string, ttl time.Duration) (string, error) {
	now := st.now()
	claims := jwt.RegisteredClaims{
		Issuer:    sessionTokenIssuer,
		Subject:   email,
		ID:        sessionId,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(st.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (st *HmacSessionTokens) ParseToken(token string) (SessionClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return st.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if claims.Issuer != sessionTokenIssuer {
		return SessionClaims{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidSessionToken, claims.Issuer)
	}

	return SessionClaims{
		Email:     claims.Subject,
		SessionId: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
