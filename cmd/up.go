package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devup/internal/config"
	"devup/internal/orchestrator"
	"devup/internal/pyenv"
	"devup/internal/services"
	"devup/internal/summary"
	"devup/pkg/logging"
)

// upOrchestrator is the slice of the orchestrator the up command drives.
type upOrchestrator interface {
	Up(ctx context.Context) error
	Down() error
	DetachAll()
	Watch(ctx context.Context)
	GetServiceRegistry() services.ServiceRegistry
}

// Collaborators are package-level so tests can substitute them.
var (
	loadConfig = config.LoadConfig
	newProber  = func(candidates []string) pyenv.Prober {
		return pyenv.NewExecProber(candidates)
	}
	newInstaller = func(rt pyenv.Runtime) pyenv.Installer {
		return pyenv.NewPipInstaller(rt)
	}
	newOrchestrator = func(cfg orchestrator.Config) upOrchestrator {
		return orchestrator.New(cfg)
	}
	notifySignals = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	}
)

type upOptions struct {
	watch       bool
	skipInstall bool
	logLevel    string
}

func newUpCmd() *cobra.Command {
	opts := &upOptions{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the local development services",
		Long: `Checks for a Python runtime, installs the project dependencies,
and starts the API server, the Telegram bot, and the static file server,
waiting for each service to become ready before starting the next.

By default the services keep running after devup exits: press Enter at the
prompt to detach and leave them in the background. With --watch, devup stays
in the foreground, restarts failed services, and stops everything on Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Stay attached, supervise services, and stop them on exit")
	cmd.Flags().BoolVar(&opts.skipInstall, "skip-install", false, "Skip the pip dependency installation step")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func runUp(cmd *cobra.Command, opts *upOptions) error {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newProber(cfg.Runtime.Candidates()).Detect(ctx)
	if err != nil {
		if errors.Is(err, pyenv.ErrRuntimeNotFound) {
			fmt.Fprintln(cmd.ErrOrStderr(), pyenv.RemediationHint)
		}
		return err
	}
	logging.Info("Up", "Using %s (%s)", rt.Path, rt.Version)

	if opts.skipInstall {
		logging.Info("Up", "Skipping dependency installation")
	} else if err := newInstaller(rt).Install(ctx, cfg.Dependencies); err != nil {
		// Dependencies may already be present, so a failed install is not
		// fatal. The services themselves will fail loudly if one is missing.
		logging.Warn("Up", "Dependency installation failed: %v", err)
	}

	orch := newOrchestrator(orchestrator.Config{
		RuntimePath: rt.Path,
		Services:    cfg.Services,
	})

	if err := orch.Up(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Render(summaryItems(cfg, orch.GetServiceRegistry())))

	if opts.watch {
		return watchServices(ctx, cmd, orch)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to exit. Services will keep running in the background.")
	waitForEnter(cmd.InOrStdin())
	orch.DetachAll()
	return nil
}

// watchServices supervises the services until an interrupt arrives, then
// stops everything in reverse order.
func watchServices(ctx context.Context, cmd *cobra.Command, orch upOrchestrator) error {
	sigCtx, stop := notifySignals(ctx)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching services. Press Ctrl+C to stop them and exit.")
	orch.Watch(sigCtx)

	logging.Info("Up", "Shutting down services")
	return orch.Down()
}

func summaryItems(cfg config.DevupConfig, registry services.ServiceRegistry) []summary.Item {
	items := make([]summary.Item, 0, len(cfg.Services))
	for _, def := range cfg.Services {
		if !def.Enabled {
			continue
		}
		state := services.StateUnknown
		if svc, ok := registry.Get(def.Name); ok {
			state = svc.GetState()
		}
		items = append(items, summary.Item{Definition: def, State: state})
	}
	return items
}

func waitForEnter(in io.Reader) {
	if in == nil {
		in = os.Stdin
	}
	reader := bufio.NewReader(in)
	_, _ = reader.ReadString('\n')
}
