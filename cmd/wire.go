package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	statusadapter "github.com/charlontank/wakeguard/internal/adapters/render/status"
	powerpmset "github.com/charlontank/wakeguard/internal/adapters/power/pmset"
	procps "github.com/charlontank/wakeguard/internal/adapters/proc/ps"
	tomlrepo "github.com/charlontank/wakeguard/internal/adapters/repo/toml"
	thermalpmset "github.com/charlontank/wakeguard/internal/adapters/thermal/pmset"
	"github.com/charlontank/wakeguard/internal/application"
	"github.com/charlontank/wakeguard/internal/ports"
	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	arbiter        *application.Arbiter
	reaper         *application.Reaper
	safety         *application.SafetyMonitor
	procs          ports.ProcessInspector
	statusRenderer func(application.Status, application.Listing) (string, error)
	cfg            appConfig
}

type appConfig struct {
	reporterName    string
	gracePeriod     time.Duration
	idleCPUPercent  float64
	daemonInterval  time.Duration
	thermalInterval time.Duration
	failClosed      bool
	daemonLockPath  string
}

func wireApp() (*app, error) {
	return wireAppWithLogger(zap.NewNop())
}

func wireAppWithLogger(logger *zap.Logger) (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".wakeguard")

	v := viper.New()
	v.SetDefault("reporter.process_name", "claude")
	v.SetDefault("reaper.grace_period", "10s")
	v.SetDefault("reaper.idle_cpu_percent", application.DefaultIdleCPUPercent)
	v.SetDefault("daemon.interval", "5s")
	v.SetDefault("daemon.thermal_interval", "30s")
	v.SetDefault("daemon.lock_path", filepath.Join(configDir, "daemon.lock"))
	v.SetDefault("reconcile.lock_path", filepath.Join(configDir, "reconcile.lock"))
	v.SetDefault("safety.fail_closed", false)

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	pmsetPath := envOrDefault("WAKEGUARD_PMSET", "pmset")
	useSudo := os.Getenv("WAKEGUARD_NO_SUDO") == ""

	inhibitor := powerpmset.NewInhibitor(pmsetPath, useSudo)
	sensor := thermalpmset.NewSensor(pmsetPath)
	procs := procps.NewInspector()
	clock := ports.SystemClock{}
	applyLock := flock.New(v.GetString("reconcile.lock_path"))

	cfg := appConfig{
		reporterName:    v.GetString("reporter.process_name"),
		gracePeriod:     v.GetDuration("reaper.grace_period"),
		idleCPUPercent:  v.GetFloat64("reaper.idle_cpu_percent"),
		daemonInterval:  v.GetDuration("daemon.interval"),
		thermalInterval: v.GetDuration("daemon.thermal_interval"),
		failClosed:      v.GetBool("safety.fail_closed"),
		daemonLockPath:  v.GetString("daemon.lock_path"),
	}

	arbiter := application.NewArbiter(repo, repo, inhibitor, procs, clock, applyLock, logger)
	reaper := application.NewReaper(repo, procs, clock, logger, cfg.gracePeriod, cfg.idleCPUPercent)
	safety := application.NewSafetyMonitor(sensor, repo, repo, logger, cfg.failClosed)

	return &app{
		arbiter:        arbiter,
		reaper:         reaper,
		safety:         safety,
		procs:          procs,
		statusRenderer: statusadapter.Render,
		cfg:            cfg,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
