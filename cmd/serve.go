package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sysconfigd/internal/api"
	"sysconfigd/internal/config"
	"sysconfigd/internal/facade"
	"sysconfigd/internal/orchestrator"
	"sysconfigd/internal/pluginproxy"
	"sysconfigd/internal/provisioning"
	"sysconfigd/internal/provisioning/sources"
	"sysconfigd/internal/registry"
	"sysconfigd/internal/statestore"
	"sysconfigd/pkg/logging"
)

// Conventional on-disk locations for the built-in metadata sources (spec
// §4.2). These are fixed discovery conventions, the same way cloud-init
// itself hardcodes its NoCloud seed directory, not per-deployment config.
const (
	defaultLocalConfigPath         = "/etc/sysconfig.yaml"
	defaultCloudInitMetaDataPath   = "/var/lib/cloud/seed/nocloud-net/meta-data"
	defaultCloudInitUserDataPath   = "/var/lib/cloud/seed/nocloud-net/user-data"
	defaultCloudInitNetworkCfgPath = "/var/lib/cloud/seed/nocloud-net/network-config"
)

var serveConfigPath string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sysconfigd daemon",
		Long: `Starts the plugin registry, state store, orchestrator, and Service
Facade, runs one provisioning cycle to seed the desired tree, then serves
the facade over its socket until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.yaml (default: /etc/sysconfigd/config.yaml)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelInfo, os.Stderr)

	configPath := serveConfigPath
	if configPath == "" {
		configPath = "/etc/sysconfigd/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return &api.FatalError{Reason: "loading configuration", Cause: err}
	}
	logging.InitForCLI(logging.ParseLogLevel(cfg.LogLevel), os.Stderr)

	if socketFlag != "" {
		cfg.SocketPath = socketFlag
	}

	reg := registry.New()
	store := statestore.New()
	proxyFactory := pluginproxy.NewFactory()
	orch := orchestrator.New(reg, store, proxyFactory, cfg.Timeouts.ToOrchestratorTimeouts())
	svcFacade := facade.New(orch, reg, store)
	server := facade.NewServer(svcFacade, cfg.SocketPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runInitialProvisioningCycle(ctx, cfg, store)

	watcher := config.NewWatcher(configPath, func(reloaded config.Config) {
		logging.InitForCLI(logging.ParseLogLevel(reloaded.LogLevel), os.Stderr)
		logging.Info("Serve", "applied reloaded configuration (log_level=%s)", reloaded.LogLevel)
	})
	if err := watcher.Start(); err != nil {
		logging.Warn("Serve", "config hot-reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	if err := server.Start(ctx); err != nil {
		return &api.FatalError{Reason: "starting facade server", Cause: err}
	}

	logging.Info("Serve", "sysconfigd serving on %s", cfg.SocketPath)
	<-ctx.Done()

	logging.Info("Serve", "shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("stopping facade server: %w", err)
	}
	return nil
}

// runInitialProvisioningCycle probes the configured metadata sources once
// at startup and sets the store's desired tree to the merged result, the way
// a freshly booted host discovers its own baseline configuration (spec
// §4.2/§4.3) before any plugin has applied anything. A provisioning
// failure here is logged, never fatal: the daemon still serves with
// whatever desired tree a caller later submits via apply_state.
func runInitialProvisioningCycle(ctx context.Context, cfg config.Config, store *statestore.Store) {
	probeSources := buildMetadataSources(cfg.Provisioning)
	if len(probeSources) == 0 {
		return
	}

	timeout := time.Duration(cfg.Provisioning.ProbeTimeoutSeconds) * time.Second
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	collector := provisioning.NewCollector(probeSources)
	merged, err := collector.Collect(probeCtx)
	if err != nil {
		logging.Warn("Serve", "initial provisioning cycle failed: %v", err)
		return
	}

	tree, err := provisioning.ToTree(merged)
	if err != nil {
		logging.Warn("Serve", "converting provisioning result to a tree: %v", err)
		return
	}
	store.SetDesired(tree)
}

// buildMetadataSources constructs one api.MetadataSource per enabled entry
// in cfg.Sources, at the conventional on-disk path for its kind.
func buildMetadataSources(cfg config.ProvisioningConfig) []api.MetadataSource {
	timeout := time.Duration(cfg.ProbeTimeoutSeconds) * time.Second

	var built []api.MetadataSource
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}
		switch sc.Kind {
		case api.SourceLocal:
			built = append(built, &sources.Local{Path: defaultLocalConfigPath, PriorityHint: sc.Priority})
		case api.SourceCloudInit:
			built = append(built, &sources.CloudInit{
				MetaDataPath:      defaultCloudInitMetaDataPath,
				UserDataPath:      defaultCloudInitUserDataPath,
				NetworkConfigPath: defaultCloudInitNetworkCfgPath,
				PriorityHint:      sc.Priority,
			})
		case api.SourceEC2:
			built = append(built, &sources.EC2{PriorityHint: sc.Priority, Timeout: timeout})
		case api.SourceGCP:
			built = append(built, &sources.GCP{PriorityHint: sc.Priority, Timeout: timeout})
		case api.SourceAzure:
			built = append(built, &sources.Azure{PriorityHint: sc.Priority, Timeout: timeout})
		case api.SourceOpenStack:
			built = append(built, &sources.OpenStack{PriorityHint: sc.Priority, Timeout: timeout})
		case api.SourceDigitalOcean:
			built = append(built, &sources.DigitalOcean{PriorityHint: sc.Priority, Timeout: timeout})
		case api.SourceSmartOS:
			built = append(built, &sources.SmartOS{PriorityHint: sc.Priority, Timeout: timeout})
		}
	}
	return built
}
