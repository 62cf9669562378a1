package pmset

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charlontank/wakeguard/internal/ports"
)

// Inhibitor toggles system sleep through `pmset -a disablesleep`. The setting
// is global, so callers serialize access through an exclusion lock.
type Inhibitor struct {
	pmsetPath string
	useSudo   bool
	run       func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ ports.SleepInhibitor = (*Inhibitor)(nil)

func NewInhibitor(pmsetPath string, useSudo bool) *Inhibitor {
	return &Inhibitor{
		pmsetPath: pmsetPath,
		useSudo:   useSudo,
		run:       runCombined,
	}
}

func (i *Inhibitor) SetInhibited(ctx context.Context, inhibited bool) error {
	value := "0"
	if inhibited {
		value = "1"
	}

	name := i.pmsetPath
	args := []string{"-a", "disablesleep", value}
	if i.useSudo {
		name = "sudo"
		args = append([]string{i.pmsetPath}, args...)
	}

	output, err := i.run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("set disablesleep=%s: %w: %s", value, err, strings.TrimSpace(string(output)))
	}

	return nil
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
