// Package session stores the credentials used by calendar sync.
//
// The planner does not run an OAuth flow itself. An access token for the
// calendar API is handed to `fractal auth token` and kept here until it
// expires or the user logs out.
//
// # Usage
//
//	store, err := session.NewFileStore("") // ~/.config/fractal/sessions/
//	sess, err := session.New(token, session.DefaultTTL)
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, sess.ID)
//	if sess == nil {
//	    // not logged in, or the token expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// ErrNotLoggedIn is returned when no usable session exists.
var ErrNotLoggedIn = errors.New("not logged in (run 'fractal auth token' first)")

// Session holds a calendar access token.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is how long a stored token is trusted when the caller does
// not know its real lifetime.
const DefaultTTL = time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a session for token. A non-positive ttl yields a session
// that never expires.
func New(accessToken string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:          id,
		AccessToken: accessToken,
		CreatedAt:   now,
	}
	if ttl > 0 {
		sess.ExpiresAt = now.Add(ttl)
	}
	return sess, nil
}
