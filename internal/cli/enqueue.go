package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishnusrinivas00/queuectl/internal/domain"
)

// enqueueRequest is the wire shape accepted on the command line; it
// mirrors domain.JobSpec but keeps MaxRetries as a plain *int so the
// zero value for the flag-driven path stays distinguishable.
type enqueueRequest struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

func newEnqueueCmd() *cobra.Command {
	var maxRetries int
	var hasMaxRetries bool

	cmd := &cobra.Command{
		Use:   "enqueue <json>",
		Short: "Enqueue a job. Accepts a JSON object {\"id\":..,\"command\":..,\"max_retries\":..} or --id/--command flags.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req enqueueRequest

			if len(args) == 1 {
				if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
					return wrapUsage(fmt.Errorf("invalid job JSON: %w", err))
				}
			} else {
				id, _ := cmd.Flags().GetString("id")
				command, _ := cmd.Flags().GetString("command")
				req = enqueueRequest{ID: id, Command: command}
			}

			if hasMaxRetries {
				req.MaxRetries = &maxRetries
			}

			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := api.Enqueue(ctx, domain.JobSpec{ID: req.ID, Command: req.Command, MaxRetries: req.MaxRetries})
			if err != nil {
				return err
			}

			cmd.Printf("enqueued %s (max_retries=%d)\n", job.ID, job.MaxRetries)
			return nil
		},
	}

	cmd.Flags().String("id", "", "job id (when not passing a JSON argument)")
	cmd.Flags().String("command", "", "shell command (when not passing a JSON argument)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "override default_max_retries for this job")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		hasMaxRetries = cmd.Flags().Changed("max-retries")
		return nil
	}

	return cmd
}
