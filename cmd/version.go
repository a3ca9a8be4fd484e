package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// versionCheckTimeout bounds how long the version command waits to reach a
// running daemon before reporting it as not running.
const versionCheckTimeout = 3 * time.Second

// newVersionCmd prints the CLI's own version and, if a daemon is reachable
// over the facade socket, a line noting that it responded.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sysconfigd CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sysconfigd version %s\n", rootCmd.Version)

			socketPath := resolveSocketPath()
			ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
			defer cancel()

			client, err := dialFacade(ctx, socketPath)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon: (not running at %s)\n", socketPath)
				return
			}
			defer client.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "daemon: running at %s\n", socketPath)
		},
	}
}
