package ports

import "context"

// ProcessInspector answers liveness and identity questions about OS
// processes.
type ProcessInspector interface {
	// Exists reports whether a process with the given pid is alive.
	Exists(ctx context.Context, pid int) bool

	// CPUPercent returns the instantaneous CPU usage of the process.
	CPUPercent(ctx context.Context, pid int) (float64, error)

	// ListPIDsByName returns the pids of every running process whose
	// executable name matches name.
	ListPIDsByName(ctx context.Context, name string) ([]int, error)

	// FindAncestor walks the parent chain of the current process looking for
	// a process named name and returns its pid.
	FindAncestor(ctx context.Context, name string) (int, error)

	// Location describes where the process is running, typically its working
	// directory and git branch. Returns "unknown" when it cannot tell.
	Location(ctx context.Context, pid int) string
}
