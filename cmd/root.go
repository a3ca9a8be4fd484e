package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"sysconfigd/internal/api"
)

// rootCmd is the base command for sysconfigd. Bare invocation with no
// subcommand prints usage; "serve" runs the daemon, the rest are thin
// Service Facade clients.
var rootCmd = &cobra.Command{
	Use:   "sysconfigd",
	Short: "Desired-state system configuration daemon and CLI",
	Long: `sysconfigd maintains a single authoritative configuration tree across a
set of plugins, each owning a disjoint set of dotted paths. "sysconfigd
serve" runs the daemon; the other subcommands talk to a running daemon
over its Service Facade socket.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, injected at build time
// from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the version previously set with SetVersion.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command, translating a returned error into the
// matching process exit code via api.ExitCodeFor.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sysconfigd version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(api.ExitCodeFor(err))
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newRegisterCmd())

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Service Facade socket path (default: platform-specific, see internal/config.DefaultSocketPath)")
}

// socketFlag overrides the facade socket path for every client subcommand
// (get, apply, watch, register, version) and for serve. Empty means
// config.DefaultSocketPath for the client subcommands, and the loaded
// config file's socket_path for serve.
var socketFlag string
