package domain

import "time"

// SessionID is the OS process id of the reporter that owns a session.
type SessionID int

// Session is one registered unit of active work. A reporter refreshes its
// session on every registration; RegisteredAt never moves after the first.
type Session struct {
	ID              SessionID
	Origin          string
	RegisteredAt    time.Time
	LastRefreshedAt time.Time
}

// LastActive returns the later of the registration and refresh times.
func (s Session) LastActive() time.Time {
	if s.LastRefreshedAt.After(s.RegisteredAt) {
		return s.LastRefreshedAt
	}
	return s.RegisteredAt
}

func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.RegisteredAt)
}

func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActive())
}
