package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charlontank/wakeguard/internal/domain"
	"github.com/charlontank/wakeguard/internal/ports"
	"go.uber.org/zap"
)

// Arbiter owns the single decision of this system: sleep prevention is on
// exactly when at least one session is registered and the safety latch is
// not tripped. Every state change funnels through Reconcile.
type Arbiter struct {
	sessions  ports.SessionRepository
	state     ports.ControllerStateRepository
	inhibitor ports.SleepInhibitor
	procs     ports.ProcessInspector
	clock     ports.Clock
	applyLock ports.ExclusionLock
	logger    *zap.Logger

	applyMu sync.Mutex
}

func NewArbiter(
	sessions ports.SessionRepository,
	state ports.ControllerStateRepository,
	inhibitor ports.SleepInhibitor,
	procs ports.ProcessInspector,
	clock ports.Clock,
	applyLock ports.ExclusionLock,
	logger *zap.Logger,
) *Arbiter {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Arbiter{
		sessions:  sessions,
		state:     state,
		inhibitor: inhibitor,
		procs:     procs,
		clock:     clock,
		applyLock: applyLock,
		logger:    logger,
	}
}

// Register records a session for pid and reconciles. Registering an already
// registered pid refreshes it. A registration also re-arms a tripped safety
// latch: new work is an explicit operator signal that the machine may keep
// awake again.
func (a *Arbiter) Register(ctx context.Context, pid int, origin string) error {
	now := a.clock.Now()
	session, err := a.sessions.Upsert(ctx, domain.Session{
		ID:              domain.SessionID(pid),
		Origin:          origin,
		RegisteredAt:    now,
		LastRefreshedAt: now,
	})
	if err != nil {
		return fmt.Errorf("register session %d: %w", pid, err)
	}

	if err := a.state.SetSafetyTripped(ctx, false); err != nil {
		return fmt.Errorf("re-arm safety latch: %w", err)
	}

	a.logger.Info("session registered",
		zap.Int("pid", int(session.ID)),
		zap.String("origin", session.Origin),
	)

	a.Reconcile(ctx)
	return nil
}

// Deregister removes the session for pid and reconciles. Unknown pids are
// not an error.
func (a *Arbiter) Deregister(ctx context.Context, pid int) error {
	if err := a.sessions.Delete(ctx, domain.SessionID(pid)); err != nil {
		return fmt.Errorf("deregister session %d: %w", pid, err)
	}

	a.logger.Info("session deregistered", zap.Int("pid", pid))

	a.Reconcile(ctx)
	return nil
}

// Reconcile drives the OS toward the desired sleep-prevention state. A
// failed toggle leaves the cached state untouched so the next pass retries.
func (a *Arbiter) Reconcile(ctx context.Context) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	if err := a.applyLock.Lock(); err != nil {
		a.logger.Warn("acquire reconcile lock", zap.Error(err))
		return
	}
	defer func() {
		_ = a.applyLock.Unlock()
	}()

	count, err := a.sessions.Count(ctx)
	if err != nil {
		a.logger.Warn("count sessions", zap.Error(err))
		return
	}

	state, err := a.state.ControllerState(ctx)
	if err != nil {
		a.logger.Warn("load controller state", zap.Error(err))
		return
	}

	desired := count > 0 && !state.SafetyTripped
	if desired == state.ResourceEnabled {
		return
	}

	if err := a.inhibitor.SetInhibited(ctx, desired); err != nil {
		a.logger.Error("toggle sleep prevention",
			zap.Bool("desired", desired),
			zap.Error(err),
		)
		return
	}

	if err := a.state.SetResourceEnabled(ctx, desired); err != nil {
		a.logger.Error("persist resource state", zap.Error(err))
		return
	}

	a.logger.Info("sleep prevention toggled",
		zap.Bool("enabled", desired),
		zap.Int("sessions", count),
	)
}

func (a *Arbiter) Status(ctx context.Context) (Status, error) {
	count, err := a.sessions.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count sessions: %w", err)
	}

	state, err := a.state.ControllerState(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load controller state: %w", err)
	}

	return Status{
		SessionCount:    count,
		ResourceEnabled: state.ResourceEnabled,
		SafetyState:     state.SafetyState(),
	}, nil
}

// List enriches registered sessions with live CPU samples and enumerates
// reporter processes that run without a registration. A failed CPU sample
// reports as zero rather than failing the whole listing.
func (a *Arbiter) List(ctx context.Context, reporterName string) (Listing, error) {
	sessions, err := a.sessions.List(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("list sessions: %w", err)
	}

	state, err := a.state.ControllerState(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("load controller state: %w", err)
	}

	now := a.clock.Now()
	active := make([]ActiveSession, 0, len(sessions))
	registered := make(map[int]struct{}, len(sessions))
	for _, session := range sessions {
		registered[int(session.ID)] = struct{}{}

		cpu, err := a.procs.CPUPercent(ctx, int(session.ID))
		if err != nil {
			cpu = 0
		}

		active = append(active, ActiveSession{
			ID:         int(session.ID),
			AgeSeconds: int64(session.Age(now).Seconds()),
			CPU:        cpu,
			Origin:     session.Origin,
		})
	}

	inactive := make([]int, 0)
	if reporterName != "" {
		pids, err := a.procs.ListPIDsByName(ctx, reporterName)
		if err != nil {
			a.logger.Warn("list reporter processes", zap.Error(err))
		}
		for _, pid := range pids {
			if _, ok := registered[pid]; !ok {
				inactive = append(inactive, pid)
			}
		}
		sort.Ints(inactive)
	}

	return Listing{
		Active:          active,
		Inactive:        inactive,
		ResourceEnabled: state.ResourceEnabled,
	}, nil
}

// Reset drops every session and reconciles, releasing sleep prevention.
func (a *Arbiter) Reset(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	a.logger.Info("session registry cleared")

	a.Reconcile(ctx)
	return nil
}

// ReleaseOnShutdown restores the OS default before the daemon exits. A
// machine must never stay sleepless because its guardian died.
func (a *Arbiter) ReleaseOnShutdown(ctx context.Context) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	if err := a.applyLock.Lock(); err != nil {
		a.logger.Warn("acquire reconcile lock", zap.Error(err))
		return
	}
	defer func() {
		_ = a.applyLock.Unlock()
	}()

	state, err := a.state.ControllerState(ctx)
	if err != nil {
		a.logger.Warn("load controller state", zap.Error(err))
		return
	}
	if !state.ResourceEnabled {
		return
	}

	if err := a.inhibitor.SetInhibited(ctx, false); err != nil {
		a.logger.Error("release sleep prevention on shutdown", zap.Error(err))
		return
	}

	if err := a.state.SetResourceEnabled(ctx, false); err != nil {
		a.logger.Error("persist resource state", zap.Error(err))
		return
	}

	a.logger.Info("sleep prevention released on shutdown")
}
