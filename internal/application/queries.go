package application

import "github.com/charlontank/wakeguard/internal/domain"

// Status is the arbitration summary shown by `wakeguard status`.
type Status struct {
	SessionCount    int                `json:"session_count"`
	ResourceEnabled bool               `json:"resource_enabled"`
	SafetyState     domain.SafetyState `json:"safety_state"`
}

// ActiveSession is one registered session enriched with live process data.
type ActiveSession struct {
	ID         int     `json:"id"`
	AgeSeconds int64   `json:"age_seconds"`
	CPU        float64 `json:"cpu"`
	Origin     string  `json:"origin,omitempty"`
}

// Listing pairs registered sessions with reporter processes that are running
// but have no registration.
type Listing struct {
	Active          []ActiveSession `json:"active"`
	Inactive        []int           `json:"inactive"`
	ResourceEnabled bool            `json:"resource_enabled"`
}
