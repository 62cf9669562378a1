package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charlontank/wakeguard/internal/domain"
	"github.com/charlontank/wakeguard/internal/ports"
)

// fakeStore implements both repository ports in memory.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	state    domain.ControllerState

	countErr error
	clearErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[domain.SessionID]domain.Session{}}
}

var (
	_ ports.SessionRepository         = (*fakeStore)(nil)
	_ ports.ControllerStateRepository = (*fakeStore)(nil)
)

func (s *fakeStore) Upsert(_ context.Context, session domain.Session) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.ID]; ok {
		session.RegisteredAt = existing.RegisteredAt
		if session.Origin == "" {
			session.Origin = existing.Origin
		}
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *fakeStore) Delete(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *fakeStore) DeleteIfRefreshedBefore(_ context.Context, id domain.SessionID, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.LastRefreshedAt.After(cutoff) {
		return false, nil
	}
	delete(s.sessions, id)
	return true, nil
}

func (s *fakeStore) GetByID(_ context.Context, id domain.SessionID) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeStore) List(_ context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].LastActive().Equal(sessions[j].LastActive()) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].LastActive().After(sessions[j].LastActive())
	})
	return sessions, nil
}

func (s *fakeStore) Count(_ context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}

func (s *fakeStore) Clear(_ context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[domain.SessionID]domain.Session{}
	return nil
}

func (s *fakeStore) ControllerState(_ context.Context) (domain.ControllerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *fakeStore) SetResourceEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ResourceEnabled = enabled
	return nil
}

func (s *fakeStore) SetSafetyTripped(_ context.Context, tripped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SafetyTripped = tripped
	return nil
}

type fakeInhibitor struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (f *fakeInhibitor) SetInhibited(_ context.Context, inhibited bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, inhibited)
	return nil
}

func (f *fakeInhibitor) recorded() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

type fakeSensor struct {
	hot bool
	err error
}

func (f *fakeSensor) Overheating(context.Context) (bool, error) {
	return f.hot, f.err
}

type fakeInspector struct {
	alive   map[int]bool
	cpu     map[int]float64
	cpuErr  map[int]error
	byName  map[string][]int
	nameErr error
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{
		alive:  map[int]bool{},
		cpu:    map[int]float64{},
		cpuErr: map[int]error{},
		byName: map[string][]int{},
	}
}

func (f *fakeInspector) Exists(_ context.Context, pid int) bool {
	return f.alive[pid]
}

func (f *fakeInspector) CPUPercent(_ context.Context, pid int) (float64, error) {
	if err := f.cpuErr[pid]; err != nil {
		return 0, err
	}
	return f.cpu[pid], nil
}

func (f *fakeInspector) ListPIDsByName(_ context.Context, name string) ([]int, error) {
	if f.nameErr != nil {
		return nil, f.nameErr
	}
	return f.byName[name], nil
}

func (f *fakeInspector) FindAncestor(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeInspector) Location(context.Context, int) string {
	return "unknown"
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type noopLock struct{}

func (noopLock) Lock() error   { return nil }
func (noopLock) Unlock() error { return nil }
