// Package token signs and verifies the HS256 bearer tokens issued by the
// auth service. The chat engine only verifies; Sign exists for tooling and
// tests.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
)

var ErrInvalid = errors.New("invalid token")

type Manager struct {
	secret []byte
	issuer string
}

func NewManager(secret, issuer string) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (m *Manager) Sign(actor chat.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		UserID: actor.UserID.String(),
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify checks signature and expiry and returns the actor the token was
// issued for.
func (m *Manager) Verify(tok string) (chat.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	var c claims
	t, err := jwt.ParseWithClaims(tok, &c, func(*jwt.Token) (any, error) { return m.secret, nil }, opts...)
	if err != nil {
		return chat.Actor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !t.Valid {
		return chat.Actor{}, ErrInvalid
	}
	raw := c.UserID
	if raw == "" {
		raw = c.Subject
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return chat.Actor{}, fmt.Errorf("%w: user id: %v", ErrInvalid, err)
	}
	return chat.Actor{UserID: id, Role: chat.ParseRole(c.Role)}, nil
}
