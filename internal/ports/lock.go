package ports

// ExclusionLock guards a critical section against other wakeguard processes.
// *flock.Flock satisfies it directly.
type ExclusionLock interface {
	Lock() error
	Unlock() error
}
