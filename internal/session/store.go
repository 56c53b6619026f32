package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingID = errors.New("session: missing session id or user id")
	ErrExpired   = errors.New("session: expires_at must be in the future")
)

// Session points at a user. It never holds provider credentials.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns (nil, nil) for unknown ids.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
