// Package session provides refresh-session storage backends. Sessions are
// keyed by the SHA-256 hash of the refresh token, never the token itself.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session is unknown, revoked, or expired.
var ErrNotFound = errors.New("session not found")

// Store tracks issued refresh sessions.
type Store interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
	Close() error
}
