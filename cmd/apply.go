package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sysconfigd/internal/api"
)

var applyDryRun bool

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Apply a desired configuration tree from a YAML or JSON file",
		Long: `Reads a desired configuration tree from file (or stdin, with "-") and
submits it to the running daemon's Service Facade, which splits it across
owning plugins in priority-class order and applies each owner's subtree.`,
		Args: cobra.ExactArgs(1),
		RunE: runApply,
	}
	cmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Compute and print changes without mutating any plugin's state")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	desired, err := loadDesiredTree(args[0])
	if err != nil {
		return err
	}

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
		Success        bool              `json:"success"`
		Changes        []api.StateChange `json:"changes"`
		DroppedPaths   []string          `json:"dropped_paths"`
		FailedPluginID string            `json:"failed_plugin_id"`
		Error          string            `json:"error"`
	}
	callErr := callFacadeTool(ctx, mcpClient, toolApplyState, map[string]interface{}{
		"state":   desired,
		"dry_run": applyDryRun,
	}, &resp)
	if callErr != nil {
		return callErr
	}

	for _, change := range resp.Changes {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", change.Kind, change.Path)
	}
	for _, path := range resp.DroppedPaths {
		fmt.Fprintf(cmd.OutOrStdout(), "UNOWNED %s\n", path)
	}

	if !resp.Success {
		if resp.FailedPluginID != "" {
			return &api.PluginRuntimeError{PluginID: resp.FailedPluginID, Op: "apply_state", Message: resp.Error}
		}
		return fmt.Errorf("apply failed: %s", resp.Error)
	}
	return nil
}

// loadDesiredTree reads path (or stdin when path is "-") and parses it as
// YAML, a superset of JSON, so both a hand-written config.yaml and a
// machine-generated JSON document work with the same flag.
func loadDesiredTree(path string) (api.Tree, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var tree api.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tree, nil
}
