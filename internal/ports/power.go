package ports

import "context"

// SleepInhibitor toggles system sleep prevention. SetInhibited is idempotent:
// applying a value already in effect must succeed.
type SleepInhibitor interface {
	SetInhibited(ctx context.Context, inhibited bool) error
}
