// Package sessions keeps login sessions keyed by an opaque cookie value
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Session binds a cookie value to an account
type Session struct {
	ID        string    `json:"id"`
	AccountID uint      `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns nil, nil for unknown or expired ids.
type Store interface {
	Create(ctx context.Context, accountID uint, ttl time.Duration) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	DeleteForAccount(ctx context.Context, accountID uint, except string) error
}

// NewID returns 32 random bytes, base64url encoded
func NewID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
