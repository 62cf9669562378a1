package ports

import (
	"context"
	"time"

	"github.com/charlontank/wakeguard/internal/domain"
)

// SessionRepository persists the registry of active sessions. Implementations
// must serialize concurrent access across goroutines and across processes
// sharing the same store file.
type SessionRepository interface {
	// Upsert inserts the session or refreshes an existing one with the same
	// ID. RegisteredAt of a stored session is preserved on refresh, and an
	// empty Origin keeps the stored value. Returns the stored session.
	Upsert(ctx context.Context, session domain.Session) (domain.Session, error)

	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, id domain.SessionID) error

	// DeleteIfRefreshedBefore removes the session only when its stored
	// LastRefreshedAt is not after cutoff, and reports whether it deleted.
	// A refresh that landed after the caller sampled the session wins.
	DeleteIfRefreshedBefore(ctx context.Context, id domain.SessionID, cutoff time.Time) (bool, error)

	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)

	// List returns all sessions ordered most recently refreshed first.
	List(ctx context.Context) ([]domain.Session, error)

	Count(ctx context.Context) (int, error)

	// Clear removes every session in a single atomic write.
	Clear(ctx context.Context) error
}

// ControllerStateRepository persists the arbitration state shared between the
// daemon and one-shot command invocations.
type ControllerStateRepository interface {
	ControllerState(ctx context.Context) (domain.ControllerState, error)
	SetResourceEnabled(ctx context.Context, enabled bool) error
	SetSafetyTripped(ctx context.Context, tripped bool) error
}
