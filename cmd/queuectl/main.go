// Command queuectl is the CLI front end for the job queue: enqueueing
// work, running worker processes, and inspecting queue/dead-letter
// state. Flags, environment variables, and an optional config file are
// layered via cobra and viper.
package main

import (
	"fmt"
	"os"

	"github.com/vishnusrinivas00/queuectl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if cli.IsUsageError(err) {
		return 2
	}
	return 1
}
