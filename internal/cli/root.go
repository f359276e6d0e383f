// Package cli wires queuectl's cobra command tree to the admin API and
// the worker pool, with viper layering flags over environment
// variables over an optional config file. Command structure uses a
// flat, verb-first style for operational commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vishnusrinivas00/queuectl/internal/admin"
	"github.com/vishnusrinivas00/queuectl/internal/config"
	"github.com/vishnusrinivas00/queuectl/internal/domain"
	"github.com/vishnusrinivas00/queuectl/internal/metrics"
	"github.com/vishnusrinivas00/queuectl/internal/storage/sqlstore"
)

// usageError marks a failure that should exit with code 2 (bad input)
// instead of 1 (runtime failure).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func wrapUsage(err error) error {
	if err == nil {
		return nil
	}
	return usageError{err}
}

// IsUsageError reports whether err (or a wrapped error it contains)
// represents invalid caller input or a rejected request rather than a
// runtime/storage failure. Exit code 2 vs 1.
func IsUsageError(err error) bool {
	var ue usageError
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrDuplicateID) ||
		errors.Is(err, domain.ErrNotFound)
}

var v = viper.New()

// Execute builds and runs the root command.
func Execute() error {
	root := newRootCmd()
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Durable job queue: enqueue, run workers, inspect state.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("store", "", "path to the SQLite store (default from QUEUECTL_STORE_PATH or queuectl.db)")
	root.PersistentFlags().String("config", "", "path to an optional YAML config file")

	cobra.OnInitialize(func() {
		v.SetEnvPrefix("QUEUECTL")
		v.AutomaticEnv()
		_ = v.BindPFlag("store", root.PersistentFlags().Lookup("store"))

		if cfgFile, _ := root.PersistentFlags().GetString("config"); cfgFile != "" {
			v.SetConfigFile(cfgFile)
			_ = v.ReadInConfig()
		}
	})

	root.AddCommand(
		newEnqueueCmd(),
		newWorkerCmd(),
		newStatusCmd(),
		newListCmd(),
		newDLQCmd(),
		newConfigCmd(),
	)

	return root
}

// openAdmin opens the store for a single short-lived command and
// returns an admin.API plus a closer. The store path resolves flag >
// env > default, in that order (viper's own precedence).
func openAdmin(ctx context.Context) (*admin.API, func(), error) {
	store, closeFn, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return admin.New(store), closeFn, nil
}

func openStore(ctx context.Context) (*sqlstore.Store, func(), error) {
	path := v.GetString("store")
	if path == "" {
		cfg, err := config.LoadWorkerConfig()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.StorePath
	}

	store, err := sqlstore.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return store, func() { store.Close() }, nil
}

// maybeServeMetrics starts the Prometheus HTTP handler in the
// background if addr is non-empty, returning the registerer workers
// should record against.
func maybeServeMetrics(addr string) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if addr == "" {
		return reg
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	return reg
}
