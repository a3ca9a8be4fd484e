package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"sysconfigd/internal/api"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream committed state changes until interrupted",
		Long: `Subscribes to the running daemon's change broadcast and prints each
committed StateChange as it arrives, until interrupted with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	socketPath := resolveSocketPath()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mcpClient, err := dialFacade(ctx, socketPath)
	if err != nil {
		return err
	}
	defer mcpClient.Close()

	mcpClient.OnNotification(func(notification mcp.JSONRPCNotification) {
		if notification.Method != "notifications/state_changed" {
			return
		}
		// Round-trip through the notification's own wire encoding rather than
		// its Go field names, since mcp.NotificationParams merges arbitrary
		// fields with "_meta" in ways that vary by mcp-go version.
		raw, err := json.Marshal(notification)
		if err != nil {
			return
		}
		var envelope struct {
			Params api.StateChange `json:"params"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", envelope.Params.Kind, envelope.Params.Path)
	})

	var resp struct {
		Success    bool `json:"success"`
		Subscribed bool `json:"subscribed"`
	}
	if err := callFacadeTool(ctx, mcpClient, toolWatchStateChanges, nil, &resp); err != nil {
		return err
	}
	if !resp.Subscribed {
		return fmt.Errorf("daemon did not confirm subscription")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "watching for state changes, press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}
