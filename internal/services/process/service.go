package process

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"devup/internal/config"
	"devup/internal/services"
	"devup/internal/spawn"
	"devup/pkg/logging"
)

// ProcessService implements the Service interface for one interpreter-backed
// dev service (the API server, the bot, the static web server).
type ProcessService struct {
	*services.BaseService

	// Immutable configuration (no mutex needed)
	cfg     config.ServiceDefinition
	runtime string // Resolved interpreter path, always argv[0]

	// Swappable for tests so no real OS process is created
	spawner spawn.Spawner

	// Runtime state
	mu     sync.RWMutex
	handle *spawn.Handle
	wg     sync.WaitGroup
}

// NewProcessService creates a service for the given definition. The runtime
// path comes from the environment probe and is prepended to the args.
func NewProcessService(cfg config.ServiceDefinition, runtimePath string) *ProcessService {
	return &ProcessService{
		BaseService: services.NewBaseService(cfg.Name, services.TypeProcess, nil),
		cfg:         cfg,
		runtime:     runtimePath,
		spawner:     spawn.Start,
	}
}

// SetSpawner replaces the process spawner. Tests use this to observe spawn
// requests without touching the process table.
func (s *ProcessService) SetSpawner(spawner spawn.Spawner) {
	s.spawner = spawner
}

// Definition returns the service's configuration.
func (s *ProcessService) Definition() config.ServiceDefinition {
	return s.cfg
}

// PID returns the spawned process id, or 0 when not running.
func (s *ProcessService) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.PID
}

// Start spawns the service process.
func (s *ProcessService) Start(ctx context.Context) error {
	if s.GetState() == services.StateRunning {
		return nil
	}

	s.UpdateState(services.StateStarting, services.HealthUnknown, nil)
	logging.Debug("ProcessService", "Starting %s: %s %v", s.cfg.Name, s.runtime, s.cfg.Args)

	updateFn := func(update spawn.Update) {
		if update.OutputLog != "" {
			if update.IsError {
				logging.Warn("ProcessService", "%s", update.OutputLog)
			} else {
				logging.Info("ProcessService", "%s", update.OutputLog)
			}
		}

		switch update.Status {
		case "Running":
			s.UpdateState(services.StateRunning, services.HealthUnknown, nil)
		case "Stopped":
			s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
		case "Error":
			s.UpdateState(services.StateFailed, services.HealthUnhealthy, update.Err)
		}
	}

	s.wg.Add(1)
	handle, err := s.spawner(spawn.Spec{
		Label: s.cfg.Name,
		Path:  s.runtime,
		Args:  s.cfg.Args,
		Dir:   s.cfg.Dir,
		Env:   s.cfg.Env,
	}, updateFn, &s.wg)
	if err != nil {
		s.wg.Done()
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return fmt.Errorf("failed to start service %s: %w", s.cfg.Name, err)
	}

	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()

	logging.Info("ProcessService", "Started service process: %s (PID: %d)", s.cfg.Name, handle.PID)
	return nil
}

// Stop terminates the service process and waits for the manager goroutine.
func (s *ProcessService) Stop(ctx context.Context) error {
	s.UpdateState(services.StateStopping, s.GetHealth(), nil)

	s.mu.RLock()
	handle := s.handle
	s.mu.RUnlock()

	if handle != nil {
		handle.Stop()
	}

	// Wait for the management goroutine to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Clean shutdown
	case <-time.After(10 * time.Second):
		logging.Warn("ProcessService", "Timeout waiting for %s to stop", s.cfg.Name)
	}

	s.mu.Lock()
	s.handle = nil
	s.mu.Unlock()

	s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
	logging.Info("ProcessService", "Stopped service: %s", s.cfg.Name)
	return nil
}

// Restart restarts the service process.
func (s *ProcessService) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop service %s: %w", s.cfg.Name, err)
	}

	// Small delay before restarting
	select {
	case <-time.After(1 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.Start(ctx)
}

// Detach implements the Detacher interface: the launcher releases the process
// so it keeps running after the launcher exits.
func (s *ProcessService) Detach() {
	s.mu.RLock()
	handle := s.handle
	s.mu.RUnlock()

	if handle != nil {
		handle.Detach()
		logging.Debug("ProcessService", "Detached service %s (PID: %d)", s.cfg.Name, handle.PID)
	}
}

// CheckHealth implements the HealthChecker interface. Services with a health
// endpoint are probed over HTTP, port-only services get a TCP dial, and a
// service with no local surface keeps its last known health.
func (s *ProcessService) CheckHealth(ctx context.Context) (services.HealthStatus, error) {
	if s.GetState() != services.StateRunning {
		return services.HealthUnknown, nil
	}

	var err error
	switch {
	case s.cfg.HealthURL() != "":
		err = checkHTTP(ctx, s.cfg.HealthURL())
	case s.cfg.Port > 0:
		err = checkTCP(ctx, s.cfg.Port)
	default:
		// Nothing to probe (e.g., the long-polling bot)
		return s.GetHealth(), nil
	}

	if err != nil {
		s.UpdateHealth(services.HealthUnhealthy)
		return services.HealthUnhealthy, err
	}
	s.UpdateHealth(services.HealthHealthy)
	return services.HealthHealthy, nil
}

// GetHealthCheckInterval implements the HealthChecker interface
func (s *ProcessService) GetHealthCheckInterval() time.Duration {
	if s.cfg.HealthCheckInterval > 0 {
		return s.cfg.HealthCheckInterval
	}
	return 30 * time.Second
}

// checkHTTP probes an HTTP health endpoint.
func checkHTTP(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// checkTCP probes a local TCP port.
func checkTCP(ctx context.Context, port int) error {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	address := fmt.Sprintf("localhost:%d", port)
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()
	return nil
}
