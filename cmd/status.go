package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"devup/internal/config"
	"devup/internal/orchestrator"
	"devup/internal/services"
	"devup/internal/summary"
	"devup/pkg/logging"
)

const statusProbeTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check which development services are reachable",
		Long: `Probes each configured service's local port or health endpoint once
and reports whether it is reachable. Services without a local port (the
Telegram bot) cannot be probed from outside and are shown as unknown.

This is a report, not a gate: the command exits 0 even when services are
down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logging.Init(level, cmd.ErrOrStderr())
			return runStatus(cmd)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	items := make([]summary.Item, 0, len(cfg.Services))
	for _, def := range cfg.Services {
		if !def.Enabled {
			continue
		}
		items = append(items, summary.Item{
			Definition: def,
			State:      probeService(ctx, def),
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Render(items))
	return nil
}

// probeService maps a one-shot reachability probe onto a service state.
// Services with no local surface cannot be probed and stay unknown.
func probeService(ctx context.Context, def config.ServiceDefinition) services.ServiceState {
	checker := orchestrator.NewHealthCheckerFor(def)
	if checker == nil {
		return services.StateUnknown
	}

	probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	if err := checker.CheckHealth(probeCtx); err != nil {
		logging.Debug("Status", "Service %s not reachable: %v", def.Name, err)
		return services.StateFailed
	}
	return services.StateRunning
}
