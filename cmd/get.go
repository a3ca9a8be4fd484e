package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the current value at a dotted configuration path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				Value interface{} `json:"value"`
			}
			if err := callFacadeTool(ctx, mcpClient, toolGetState, map[string]interface{}{"path": args[0]}, &resp); err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(resp.Value, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding value: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}
