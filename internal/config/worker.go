// Package config defines queuectl's environment-derived defaults. The
// struct-tag loading follows internal/env.Load; the one variable a
// caller typically needs to set is the store path override, everything
// else here is an optional tuning knob with a sensible default.
package config

import (
	"fmt"
	"time"

	"github.com/vishnusrinivas00/queuectl/internal/env"
)

// WorkerConfig holds queuectl's environment-derived defaults. Cobra
// flags in cmd/queuectl take precedence over these when both are set;
// this struct only supplies the fallback.
type WorkerConfig struct {
	// StorePath overrides the default SQLite database location.
	StorePath string `env:"QUEUECTL_STORE_PATH"`

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// (e.g. ":9090"). Empty disables the metrics server.
	MetricsAddr string `env:"QUEUECTL_METRICS_ADDR"`

	// JobTimeout bounds a single job execution; 0 disables the timeout.
	JobTimeout time.Duration `env:"QUEUECTL_JOB_TIMEOUT"`

	// IdleInterval is how long a worker sleeps after finding no claimable
	// job before polling again.
	IdleInterval time.Duration `env:"QUEUECTL_IDLE_INTERVAL"`

	// InterJobInterval is how long a worker sleeps after finishing a job
	// before claiming the next one. Kept well below IdleInterval so a
	// busy queue drains quickly instead of polling at idle speed.
	InterJobInterval time.Duration `env:"QUEUECTL_INTER_JOB_INTERVAL"`

	// HeartbeatInterval is how often a worker updates its liveness row.
	HeartbeatInterval time.Duration `env:"QUEUECTL_HEARTBEAT_INTERVAL"`

	// ReconcileInterval is how often the orphan reconciler runs.
	ReconcileInterval time.Duration `env:"QUEUECTL_RECONCILE_INTERVAL"`

	// ReconcileThreshold is how stale a processing job's updated_at must
	// be before the reconciler reclaims it.
	ReconcileThreshold time.Duration `env:"QUEUECTL_RECONCILE_THRESHOLD"`
}

// defaultStorePath is used when QUEUECTL_STORE_PATH is unset.
const defaultStorePath = "queuectl.db"

// LoadWorkerConfig loads configuration from the environment and fills
// in defaults for anything left unset.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = defaultStorePath
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 500 * time.Millisecond
	}
	if cfg.InterJobInterval <= 0 {
		cfg.InterJobInterval = 100 * time.Millisecond
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = time.Minute
	}
	if cfg.ReconcileThreshold <= 0 {
		cfg.ReconcileThreshold = 5 * time.Minute
	}

	return cfg, nil
}
