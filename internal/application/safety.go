package application

import (
	"context"
	"fmt"

	"github.com/charlontank/wakeguard/internal/ports"
	"go.uber.org/zap"
)

// SafetyMonitor trips a latch when the machine overheats. Tripping clears
// the session registry in one shot; sessions registered afterwards are kept
// and re-arm the latch. Callers reconcile after every Check.
type SafetyMonitor struct {
	sensor     ports.ThermalSensor
	sessions   ports.SessionRepository
	state      ports.ControllerStateRepository
	logger     *zap.Logger
	failClosed bool
}

func NewSafetyMonitor(
	sensor ports.ThermalSensor,
	sessions ports.SessionRepository,
	state ports.ControllerStateRepository,
	logger *zap.Logger,
	failClosed bool,
) *SafetyMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SafetyMonitor{
		sensor:     sensor,
		sessions:   sessions,
		state:      state,
		logger:     logger,
		failClosed: failClosed,
	}
}

// Check reads the thermal sensor and returns whether the latch is tripped
// afterwards. A sensor failure counts as overheating only when the monitor
// is configured to fail closed.
func (m *SafetyMonitor) Check(ctx context.Context) (bool, error) {
	state, err := m.state.ControllerState(ctx)
	if err != nil {
		return false, fmt.Errorf("load controller state: %w", err)
	}

	hot, err := m.sensor.Overheating(ctx)
	if err != nil {
		m.logger.Warn("read thermal sensor",
			zap.Bool("fail_closed", m.failClosed),
			zap.Error(err),
		)
		hot = m.failClosed
	}

	if !hot {
		return state.SafetyTripped, nil
	}

	if state.SafetyTripped {
		return true, nil
	}

	if err := m.sessions.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear sessions on thermal trip: %w", err)
	}
	if err := m.state.SetSafetyTripped(ctx, true); err != nil {
		return false, fmt.Errorf("trip safety latch: %w", err)
	}

	m.logger.Warn("thermal pressure detected, safety latch tripped")
	return true, nil
}
