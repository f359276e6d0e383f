package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vishnusrinivas00/queuectl/internal/config"
	"github.com/vishnusrinivas00/queuectl/internal/metrics"
	"github.com/vishnusrinivas00/queuectl/internal/queue"
	"github.com/vishnusrinivas00/queuectl/internal/runner"
)

func newWorkerCmd() *cobra.Command {
	worker := &cobra.Command{
		Use:   "worker",
		Short: "Run worker processes against the queue.",
	}
	worker.AddCommand(newWorkerStartCmd())
	return worker
}

func newWorkerStartCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start N concurrent workers in this process and block until a shutdown signal arrives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return runWorkers(ctx, count)
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of concurrent workers")
	return cmd
}

func runWorkers(ctx context.Context, count int) error {
	if count < 1 {
		count = 1
	}

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return err
	}

	store, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	reg := maybeServeMetrics(cfg.MetricsAddr)
	metricsReg := metrics.New(reg)

	workers := make([]*queue.JobWorker, 0, count)
	for i := 1; i <= count; i++ {
		workers = append(workers, queue.NewJobWorker(store, runner.New(), queue.WorkerConfig{
			ID:                i,
			IdleInterval:      cfg.IdleInterval,
			InterJobInterval:  cfg.InterJobInterval,
			HeartbeatInterval: cfg.HeartbeatInterval,
			JobTimeout:        cfg.JobTimeout,
			Metrics:           metricsReg,
		}))
	}

	reconciler := queue.NewReconciler(store)
	reconciler.Interval = cfg.ReconcileInterval
	reconciler.Threshold = cfg.ReconcileThreshold

	reconcilerCtx, cancelReconciler := context.WithCancel(ctx)
	defer cancelReconciler()
	go func() {
		if err := reconciler.Run(reconcilerCtx); err != nil {
			slog.ErrorContext(ctx, "reconciler stopped", "error", err)
		}
	}()

	supervisor := queue.NewSupervisor(workers)
	return supervisor.Run(ctx)
}
