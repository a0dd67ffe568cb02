package storage

import (
	"context"
	"time"
)

// Config configures the cooldown store.
//
// Driver values:
//   - "sqlite" (default): SQLite database file
//   - "file": dependency-free file backend (journal + snapshot)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// Window is the minimum elapsed time between two permitted sends to
	// the same user.
	Window time.Duration
}

// Store gates outbound sends per user.
//
// All implementations are safe for concurrent use; ShouldSend for one user
// id is serialized so concurrent calls yield exactly one permit.
type Store interface {
	// ShouldSend reports whether a send to userID is permitted at now and,
	// if permitted, records now as the user's last send time in the same
	// step. A denied call never mutates the record. Persistence failures
	// are returned as errors, never guessed as permit or deny.
	ShouldSend(ctx context.Context, userID int64, now time.Time) (bool, error)

	// LastSent returns the recorded last send time for userID, if any.
	LastSent(ctx context.Context, userID int64) (time.Time, bool, error)

	// PruneBefore deletes records whose last send is older than cutoff and
	// returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
