package pmset

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charlontank/wakeguard/internal/ports"
)

// Sensor reads thermal pressure from `pmset -g therm`.
type Sensor struct {
	pmsetPath string
	run       func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ ports.ThermalSensor = (*Sensor)(nil)

func NewSensor(pmsetPath string) *Sensor {
	return &Sensor{
		pmsetPath: pmsetPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (s *Sensor) Overheating(ctx context.Context) (bool, error) {
	output, err := s.run(ctx, s.pmsetPath, "-g", "therm")
	if err != nil {
		return false, fmt.Errorf("read thermal state: %w", err)
	}

	return thermalWarning(string(output)), nil
}

// thermalWarning reports whether the output carries an active CPU scheduler
// limit or an explicit thermal warning. Lines of the form "No CPU ..." and
// "No thermal warning ..." negate the match.
func thermalWarning(output string) bool {
	if strings.Contains(output, "CPU_Scheduler_Limit") && !strings.Contains(output, "No CPU") {
		return true
	}

	return strings.Contains(output, "thermal warning level") && !strings.Contains(output, "No thermal warning")
}
