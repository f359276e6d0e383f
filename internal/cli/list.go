package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func itoa(n int) string { return strconv.Itoa(n) }

func newListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by --state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			jobs, err := api.List(ctx, state)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("ID", "State", "Attempts", "Max Retries", "Command")
			for _, j := range jobs {
				_ = table.Append([]string{j.ID, string(j.State), itoa(j.Attempts), itoa(j.MaxRetries), j.Command})
			}
			return table.Render()
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by job state (pending, processing, completed, failed)")
	return cmd
}
