package cli

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show aggregate counts across job states, the dead-letter queue, and workers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := api.Status(ctx)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("State", "Count")
			_ = table.Append([]string{"pending", itoa(status.Pending)})
			_ = table.Append([]string{"processing", itoa(status.Processing)})
			_ = table.Append([]string{"completed", itoa(status.Completed)})
			_ = table.Append([]string{"failed", itoa(status.Failed)})
			_ = table.Append([]string{"dead", itoa(status.Dead)})
			_ = table.Append([]string{"workers", itoa(status.Workers)})
			return table.Render()
		},
	}
}
