package toml

import (
	"fmt"
	"time"

	"github.com/charlontank/wakeguard/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version         int             `toml:"version"`
	ResourceEnabled bool            `toml:"resource_enabled"`
	SafetyTripped   bool            `toml:"safety_tripped"`
	Sessions        []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID              int    `toml:"id"`
	Origin          string `toml:"origin,omitempty"`
	RegisteredAt    string `toml:"registered_at"`
	LastRefreshedAt string `toml:"last_refreshed_at"`
}

func toSchema(session domain.Session) sessionSchema {
	return sessionSchema{
		ID:              int(session.ID),
		Origin:          session.Origin,
		RegisteredAt:    formatTime(session.RegisteredAt),
		LastRefreshedAt: formatTime(session.LastRefreshedAt),
	}
}

func fromSchema(session sessionSchema) domain.Session {
	return domain.Session{
		ID:              domain.SessionID(session.ID),
		Origin:          session.Origin,
		RegisteredAt:    parseTime(session.RegisteredAt),
		LastRefreshedAt: parseTime(session.LastRefreshedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
