package application

import (
	"context"
	"fmt"
	"time"

	"github.com/charlontank/wakeguard/internal/ports"
	"go.uber.org/zap"
)

const (
	// DefaultGracePeriod protects a freshly registered or refreshed session
	// from the idle check.
	DefaultGracePeriod = 10 * time.Second

	// DefaultIdleCPUPercent is the CPU usage below which a live session past
	// its grace period counts as abandoned.
	DefaultIdleCPUPercent = 1.0

	// probeTimeout bounds the existence and CPU checks for one session. A
	// hung probe must not stall the rest of the sweep or later ticks.
	probeTimeout = 2 * time.Second
)

// Reaper removes sessions whose owning process died or went idle, so a
// crashed reporter cannot hold sleep prevention forever.
type Reaper struct {
	sessions       ports.SessionRepository
	procs          ports.ProcessInspector
	clock          ports.Clock
	logger         *zap.Logger
	gracePeriod    time.Duration
	idleCPUPercent float64
}

func NewReaper(
	sessions ports.SessionRepository,
	procs ports.ProcessInspector,
	clock ports.Clock,
	logger *zap.Logger,
	gracePeriod time.Duration,
	idleCPUPercent float64,
) *Reaper {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if idleCPUPercent <= 0 {
		idleCPUPercent = DefaultIdleCPUPercent
	}

	return &Reaper{
		sessions:       sessions,
		procs:          procs,
		clock:          clock,
		logger:         logger,
		gracePeriod:    gracePeriod,
		idleCPUPercent: idleCPUPercent,
	}
}

// Sweep examines every session and returns how many were removed. Dead
// processes are removed unconditionally. Live processes are removed only
// once past the grace period with CPU usage below the idle threshold. A
// failed CPU sample keeps the session for the next pass.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := r.clock.Now()
	removed := 0
	for _, session := range sessions {
		pid := int(session.ID)

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)

		if !r.procs.Exists(probeCtx, pid) {
			cancel()
			if err := r.sessions.Delete(ctx, session.ID); err != nil {
				return removed, fmt.Errorf("remove dead session %d: %w", pid, err)
			}
			removed++
			r.logger.Info("reaped dead session", zap.Int("pid", pid))
			continue
		}

		if session.IdleFor(now) < r.gracePeriod {
			cancel()
			continue
		}

		cpu, err := r.procs.CPUPercent(probeCtx, pid)
		cancel()
		if err != nil {
			r.logger.Warn("sample session cpu", zap.Int("pid", pid), zap.Error(err))
			continue
		}

		if cpu >= r.idleCPUPercent {
			continue
		}

		// The idle verdict was reached outside the store lock. The delete
		// revalidates under it: a refresh that landed since the sweep
		// sampled this session keeps it.
		deleted, err := r.sessions.DeleteIfRefreshedBefore(ctx, session.ID, session.LastRefreshedAt)
		if err != nil {
			return removed, fmt.Errorf("remove idle session %d: %w", pid, err)
		}
		if !deleted {
			continue
		}
		removed++
		r.logger.Info("reaped idle session",
			zap.Int("pid", pid),
			zap.Float64("cpu", cpu),
			zap.Duration("idle_for", session.IdleFor(now)),
		)
	}

	return removed, nil
}
