package ps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charlontank/wakeguard/internal/ports"
	"golang.org/x/sys/unix"
)

const maxAncestorHops = 10

// Inspector answers process questions by shelling out to ps, lsof, and git.
// Liveness checks use kill(2) with signal 0 instead of spawning a process.
type Inspector struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ ports.ProcessInspector = (*Inspector)(nil)

func NewInspector() *Inspector {
	return &Inspector{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (i *Inspector) Exists(_ context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func (i *Inspector) CPUPercent(ctx context.Context, pid int) (float64, error) {
	output, err := i.run(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "%cpu=")
	if err != nil {
		return 0, fmt.Errorf("sample cpu for pid %d: %w", pid, err)
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return 0, fmt.Errorf("sample cpu for pid %d: empty ps output", pid)
	}

	cpu, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("sample cpu for pid %d: parse %q: %w", pid, value, err)
	}

	return cpu, nil
}

func (i *Inspector) ListPIDsByName(ctx context.Context, name string) ([]int, error) {
	output, err := i.run(ctx, "ps", "-eo", "pid=,comm=")
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	return parsePIDTable(string(output), name), nil
}

// FindAncestor walks the parent chain of the current process. When no
// ancestor matches within maxAncestorHops, the direct parent pid is returned
// so a registration from an unrecognized shell still binds to a real process.
func (i *Inspector) FindAncestor(ctx context.Context, name string) (int, error) {
	pid := os.Getppid()
	for hop := 0; hop < maxAncestorHops && pid > 1; hop++ {
		parent, comm, err := i.parentOf(ctx, pid)
		if err != nil {
			break
		}
		if matchesName(comm, name) {
			return pid, nil
		}
		pid = parent
	}

	return os.Getppid(), nil
}

func (i *Inspector) Location(ctx context.Context, pid int) string {
	dir := i.workingDir(ctx, pid)
	if dir == "" {
		return "unknown"
	}

	base := filepath.Base(dir)
	if branch := i.gitBranch(ctx, dir); branch != "" {
		return fmt.Sprintf("%s git:(%s)", base, branch)
	}

	return base
}

func (i *Inspector) parentOf(ctx context.Context, pid int) (int, string, error) {
	output, err := i.run(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "ppid=,comm=")
	if err != nil {
		return 0, "", fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	fields := strings.Fields(strings.TrimSpace(string(output)))
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("inspect pid %d: short ps output %q", pid, string(output))
	}

	parent, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("inspect pid %d: parse ppid %q: %w", pid, fields[0], err)
	}

	return parent, strings.Join(fields[1:], " "), nil
}

func (i *Inspector) workingDir(ctx context.Context, pid int) string {
	output, err := i.run(ctx, "lsof", "-a", "-p", strconv.Itoa(pid), "-d", "cwd", "-Fn")
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "n") {
			return strings.TrimSpace(line[1:])
		}
	}

	return ""
}

func (i *Inspector) gitBranch(ctx context.Context, dir string) string {
	output, err := i.run(ctx, "git", "-C", dir, "branch", "--show-current")
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(output))
}

func parsePIDTable(output, name string) []int {
	pids := make([]int, 0, 4)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		if matchesName(strings.Join(fields[1:], " "), name) {
			pids = append(pids, pid)
		}
	}

	return pids
}

func matchesName(comm, name string) bool {
	return filepath.Base(strings.TrimSpace(comm)) == name
}
