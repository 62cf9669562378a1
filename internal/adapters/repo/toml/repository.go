package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlontank/wakeguard/internal/domain"
	"github.com/charlontank/wakeguard/internal/ports"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName       = "config"
	configType       = "toml"
	sessionsPathKey  = "sessions.path"
	sessionsFileMode = 0o600
	sessionsDirMode  = 0o700
	configDirName    = ".wakeguard"
	sessionsFileName = "sessions.toml"
	tempFilePattern  = ".sessions-*.toml.tmp"
)

// Repository stores sessions and controller state in a single TOML file.
// Writes are atomic (temp file plus rename) and every operation holds both a
// process-local mutex and a sidecar flock, so concurrent daemon and one-shot
// invocations see a consistent file.
type Repository struct {
	sessionsPath string
	lock         *pathLock
}

type pathLock struct {
	mu       sync.Mutex
	fileLock *flock.Flock
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*pathLock{}
)

var (
	_ ports.SessionRepository         = (*Repository)(nil)
	_ ports.ControllerStateRepository = (*Repository)(nil)
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDirName, sessionsFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetDefault(sessionsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	sessionsPath := cfg.GetString(sessionsPathKey)
	if sessionsPath == "" {
		return nil, errors.New("sessions path is empty")
	}
	sessionsPath, err = normalizeSessionsPath(sessionsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{sessionsPath: sessionsPath, lock: lockForPath(sessionsPath)}, nil
}

func (r *Repository) Upsert(ctx context.Context, session domain.Session) (domain.Session, error) {
	var stored domain.Session
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		encoded := toSchema(session)
		for i := range file.Sessions {
			if file.Sessions[i].ID != encoded.ID {
				continue
			}

			// Refresh: the first registration time survives, and a blank
			// origin never erases a known one.
			encoded.RegisteredAt = file.Sessions[i].RegisteredAt
			if encoded.Origin == "" {
				encoded.Origin = file.Sessions[i].Origin
			}
			file.Sessions[i] = encoded
			stored = fromSchema(encoded)
			return true, nil
		}

		file.Sessions = append(file.Sessions, encoded)
		stored = fromSchema(encoded)
		return true, nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	return stored, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.SessionID) error {
	return r.withLock(ctx, func(file *fileSchema) (bool, error) {
		for i := range file.Sessions {
			if file.Sessions[i].ID == int(id) {
				file.Sessions = append(file.Sessions[:i], file.Sessions[i+1:]...)
				return true, nil
			}
		}

		return false, nil
	})
}

func (r *Repository) DeleteIfRefreshedBefore(ctx context.Context, id domain.SessionID, cutoff time.Time) (bool, error) {
	deleted := false
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		for i := range file.Sessions {
			if file.Sessions[i].ID != int(id) {
				continue
			}

			if parseTime(file.Sessions[i].LastRefreshedAt).After(cutoff) {
				return false, nil
			}

			file.Sessions = append(file.Sessions[:i], file.Sessions[i+1:]...)
			deleted = true
			return true, nil
		}

		return false, nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	var found domain.Session
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		for _, entry := range file.Sessions {
			if entry.ID == int(id) {
				found = fromSchema(entry)
				return false, nil
			}
		}

		return false, domain.ErrSessionNotFound
	})
	if err != nil {
		return domain.Session{}, err
	}

	return found, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		sessions = make([]domain.Session, 0, len(file.Sessions))
		for _, entry := range file.Sessions {
			sessions = append(sessions, fromSchema(entry))
		}

		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].LastActive().After(sessions[j].LastActive())
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		count = len(file.Sessions)
		return false, nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	return r.withLock(ctx, func(file *fileSchema) (bool, error) {
		if len(file.Sessions) == 0 {
			return false, nil
		}

		file.Sessions = nil
		return true, nil
	})
}

func (r *Repository) ControllerState(ctx context.Context) (domain.ControllerState, error) {
	var state domain.ControllerState
	err := r.withLock(ctx, func(file *fileSchema) (bool, error) {
		state = domain.ControllerState{
			ResourceEnabled: file.ResourceEnabled,
			SafetyTripped:   file.SafetyTripped,
		}
		return false, nil
	})
	if err != nil {
		return domain.ControllerState{}, err
	}

	return state, nil
}

func (r *Repository) SetResourceEnabled(ctx context.Context, enabled bool) error {
	return r.withLock(ctx, func(file *fileSchema) (bool, error) {
		if file.ResourceEnabled == enabled {
			return false, nil
		}

		file.ResourceEnabled = enabled
		return true, nil
	})
}

func (r *Repository) SetSafetyTripped(ctx context.Context, tripped bool) error {
	return r.withLock(ctx, func(file *fileSchema) (bool, error) {
		if file.SafetyTripped == tripped {
			return false, nil
		}

		file.SafetyTripped = tripped
		return true, nil
	})
}

// withLock runs fn with exclusive access to the schema. fn returns true when
// it mutated the schema and the file must be rewritten.
func (r *Repository) withLock(ctx context.Context, fn func(*fileSchema) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.mu.Lock()
	defer r.lock.mu.Unlock()

	if err := r.lock.fileLock.Lock(); err != nil {
		return fmt.Errorf("acquire sessions file lock: %w", err)
	}
	defer func() {
		_ = r.lock.fileLock.Unlock()
	}()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	dirty, err := fn(&file)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

// readSchema treats a missing or undecodable file as empty. The store must
// survive a crash or a partial write without wedging every later command.
func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, nil
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeSessionsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *pathLock {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if lock, ok := pathLockMap[path]; ok {
		return lock
	}

	lock := &pathLock{fileLock: flock.New(path + ".lock")}
	pathLockMap[path] = lock
	return lock
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.sessionsPath), sessionsDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}

	if err := tempFile.Chmod(sessionsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionsPath); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.sessionsPath, sessionsFileMode); err != nil {
		return fmt.Errorf("chmod sessions file: %w", err)
	}

	return nil
}
