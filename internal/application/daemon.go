package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDaemonInterval  = 5 * time.Second
	DefaultThermalInterval = 30 * time.Second
)

// Daemon runs the periodic reap/reconcile loop and the slower thermal
// check. It owns the lifetime of sleep prevention: on shutdown the OS
// default is always restored.
type Daemon struct {
	arbiter         *Arbiter
	reaper          *Reaper
	safety          *SafetyMonitor
	logger          *zap.Logger
	interval        time.Duration
	thermalInterval time.Duration
}

func NewDaemon(
	arbiter *Arbiter,
	reaper *Reaper,
	safety *SafetyMonitor,
	logger *zap.Logger,
	interval time.Duration,
	thermalInterval time.Duration,
) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultDaemonInterval
	}
	if thermalInterval <= 0 {
		thermalInterval = DefaultThermalInterval
	}

	return &Daemon{
		arbiter:         arbiter,
		reaper:          reaper,
		safety:          safety,
		logger:          logger,
		interval:        interval,
		thermalInterval: thermalInterval,
	}
}

// Run blocks until ctx is canceled. Both check kinds run once up front so a
// restart converges immediately instead of waiting a full tick.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon started",
		zap.Duration("interval", d.interval),
		zap.Duration("thermal_interval", d.thermalInterval),
	)

	d.safetyTick(ctx)
	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	thermalTicker := time.NewTicker(d.thermalInterval)
	defer thermalTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			d.arbiter.ReleaseOnShutdown(context.WithoutCancel(ctx))
			return nil
		case <-thermalTicker.C:
			d.safetyTick(ctx)
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) tick(ctx context.Context) {
	removed, err := d.reaper.Sweep(ctx)
	if err != nil {
		d.logger.Warn("sweep sessions", zap.Error(err))
	}
	if removed > 0 {
		d.logger.Info("swept stale sessions", zap.Int("removed", removed))
	}

	d.arbiter.Reconcile(ctx)
}

func (d *Daemon) safetyTick(ctx context.Context) {
	if _, err := d.safety.Check(ctx); err != nil {
		d.logger.Warn("thermal check", zap.Error(err))
	}

	d.arbiter.Reconcile(ctx)
}
