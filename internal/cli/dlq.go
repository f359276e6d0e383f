package cli

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDLQCmd() *cobra.Command {
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and manage the dead-letter queue.",
	}
	dlq.AddCommand(newDLQListCmd(), newDLQRetryCmd())
	return dlq
}

func newDLQListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered jobs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := api.DLQList(ctx)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("ID", "Attempts", "Max Retries", "Failed At", "Last Error")
			for _, e := range entries {
				lastErr := ""
				if e.LastError != nil {
					lastErr = *e.LastError
				}
				_ = table.Append([]string{e.ID, itoa(e.Attempts), itoa(e.MaxRetries), e.FailedAt.Format("2006-01-02T15:04:05Z"), lastErr})
			}
			return table.Render()
		},
	}
}

func newDLQRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a dead-lettered job as pending, resetting its attempt count.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := api.DLQRetry(ctx, args[0])
			if err != nil {
				return err
			}

			cmd.Printf("requeued %s as pending\n", job.ID)
			return nil
		},
	}
}
