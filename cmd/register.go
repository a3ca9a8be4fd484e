package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	registerName         string
	registerDescription  string
	registerEndpoint     string
	registerManagedPaths []string
	registerPriority     int
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a plugin with the running daemon",
		Long: `Registers a plugin as the owner of one or more dotted configuration path
prefixes. Mainly useful for registering a long-running plugin process
out-of-band of its own startup, or for scripting test setups.`,
		Args: cobra.NoArgs,
		RunE: runRegister,
	}
	cmd.Flags().StringVar(&registerName, "name", "", "Plugin name (required)")
	cmd.Flags().StringVar(&registerDescription, "description", "", "Plugin description")
	cmd.Flags().StringVar(&registerEndpoint, "endpoint", "", "Transport endpoint: subprocess command line or http(s):// URL (required)")
	cmd.Flags().StringSliceVar(&registerManagedPaths, "managed-path", nil, "Dotted path prefix this plugin owns (repeatable, required)")
	cmd.Flags().IntVar(&registerPriority, "priority-class", 0, "Apply ordering class; lower runs earlier")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("endpoint")
	_ = cmd.MarkFlagRequired("managed-path")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	socketPath := resolveSocketPath()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mcpClient, err := dialFacade(ctx, socketPath)
	if err != nil {
		return err
	}
	defer mcpClient.Close()

	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Error   string `json:"error"`
	}
	callErr := callFacadeTool(ctx, mcpClient, toolRegisterPlugin, map[string]interface{}{
		"name":           registerName,
		"description":    registerDescription,
		"endpoint":       registerEndpoint,
		"managed_paths":  registerManagedPaths,
		"priority_class": registerPriority,
	}, &resp)
	if callErr != nil {
		return callErr
	}
	if !resp.Success {
		return fmt.Errorf("registration failed: %s", resp.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered plugin %s\n", resp.ID)
	return nil
}
