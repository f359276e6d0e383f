package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	config := &cobra.Command{
		Use:   "config",
		Short: "Get or set queue configuration (backoff_base, default_max_retries).",
	}
	config.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return config
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			value, ok, err := api.ConfigGet(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return wrapUsage(fmt.Errorf("config key %q is not set", args[0]))
			}

			cmd.Println(value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, closeFn, err := openAdmin(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := api.ConfigSet(ctx, args[0], args[1]); err != nil {
				return err
			}

			cmd.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
}
