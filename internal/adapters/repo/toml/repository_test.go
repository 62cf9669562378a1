package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charlontank/wakeguard/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, sessionsPath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("sessions.path", sessionsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	registered := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	first := domain.Session{ID: 101, Origin: "api git:(main)", RegisteredAt: registered, LastRefreshedAt: registered}
	second := domain.Session{ID: 202, Origin: "web git:(dev)", RegisteredAt: registered.Add(time.Minute), LastRefreshedAt: registered.Add(time.Minute)}

	_, err := repo.Upsert(context.Background(), first)
	require.NoError(t, err)
	_, err = repo.Upsert(context.Background(), second)
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Session{first, second}, sessions)
}

func TestRepositoryUpsertRefreshPreservesRegistrationAndOrigin(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	registered := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err := repo.Upsert(context.Background(), domain.Session{
		ID: 101, Origin: "api git:(main)", RegisteredAt: registered, LastRefreshedAt: registered,
	})
	require.NoError(t, err)

	refreshed := registered.Add(30 * time.Second)
	stored, err := repo.Upsert(context.Background(), domain.Session{
		ID: 101, RegisteredAt: refreshed, LastRefreshedAt: refreshed,
	})
	require.NoError(t, err)

	assert.Equal(t, registered, stored.RegisteredAt)
	assert.Equal(t, refreshed, stored.LastRefreshedAt)
	assert.Equal(t, "api git:(main)", stored.Origin)
}

func TestRepositoryListOrdersByMostRecentActivity(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i, id := range []domain.SessionID{101, 202, 303} {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Upsert(context.Background(), domain.Session{ID: id, RegisteredAt: at, LastRefreshedAt: at})
		require.NoError(t, err)
	}

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, domain.SessionID(303), sessions[0].ID)
	assert.Equal(t, domain.SessionID(101), sessions[2].ID)
}

func TestRepositoryDeleteAbsentSessionIsNoOp(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	require.NoError(t, repo.Delete(context.Background(), 999))

	_, err := repo.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRepositoryDeleteIfRefreshedBefore(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	registered := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err := repo.Upsert(context.Background(), domain.Session{
		ID: 101, RegisteredAt: registered, LastRefreshedAt: registered,
	})
	require.NoError(t, err)

	refreshed := registered.Add(30 * time.Second)
	_, err = repo.Upsert(context.Background(), domain.Session{
		ID: 101, RegisteredAt: refreshed, LastRefreshedAt: refreshed,
	})
	require.NoError(t, err)

	// The stored session was refreshed after this cutoff; it survives.
	deleted, err := repo.DeleteIfRefreshedBefore(context.Background(), 101, registered)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.GetByID(context.Background(), 101)
	require.NoError(t, err)

	deleted, err = repo.DeleteIfRefreshedBefore(context.Background(), 101, refreshed)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetByID(context.Background(), 101)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Absent session: no-op.
	deleted, err = repo.DeleteIfRefreshedBefore(context.Background(), 101, refreshed)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepositoryClearRemovesAllSessions(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for _, id := range []domain.SessionID{101, 202} {
		_, err := repo.Upsert(context.Background(), domain.Session{ID: id, RegisteredAt: now, LastRefreshedAt: now})
		require.NoError(t, err)
	}

	require.NoError(t, repo.Clear(context.Background()))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositoryControllerStatePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")

	repoA := newTestRepo(t, sessionsPath)
	require.NoError(t, repoA.SetResourceEnabled(context.Background(), true))
	require.NoError(t, repoA.SetSafetyTripped(context.Background(), true))

	repoB := newTestRepo(t, sessionsPath)
	state, err := repoB.ControllerState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.ResourceEnabled)
	assert.True(t, state.SafetyTripped)
	assert.Equal(t, domain.SafetyTripped, state.SafetyState())
}

func TestRepositoryCorruptFileRecoversAsEmpty(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte("sessions = ["), 0o600))

	repo := newTestRepo(t, sessionsPath)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err = repo.Upsert(context.Background(), domain.Session{ID: 101, RegisteredAt: now, LastRefreshedAt: now})
	require.NoError(t, err)

	data, err := os.ReadFile(sessionsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "missing", "sessions.toml"))

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = repo.GetByID(context.Background(), 101)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	state, err := repo.ControllerState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.ResourceEnabled)
	assert.False(t, state.SafetyTripped)
}

func TestRepositoryUpsertCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err = repo.Upsert(context.Background(), domain.Session{ID: 101, RegisteredAt: now, LastRefreshedAt: now})
	require.NoError(t, err)

	sessionsPath := filepath.Join(homeDir, ".wakeguard", "sessions.toml")
	info, err := os.Stat(sessionsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryUpsertCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t, filepath.Join(t.TempDir(), "sessions.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Upsert(ctx, domain.Session{ID: 101})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentUpsertsAcrossInstancesPreserveAllSessions(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	repoA := newTestRepo(t, sessionsPath)
	repoB := newTestRepo(t, sessionsPath)

	const perRepoWrites = 50
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			_, err := repoA.Upsert(context.Background(), domain.Session{ID: domain.SessionID(1000 + i), RegisteredAt: now, LastRefreshedAt: now})
			errCh <- err
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			_, err := repoB.Upsert(context.Background(), domain.Session{ID: domain.SessionID(2000 + i), RegisteredAt: now, LastRefreshedAt: now})
			errCh <- err
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	count, err := repoA.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, perRepoWrites*2, count)
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"sessions = []",
		"",
	}, "\n")), 0o600))

	repo := newTestRepo(t, sessionsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported sessions schema version")
}
