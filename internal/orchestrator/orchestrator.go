package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"devup/internal/config"
	"devup/internal/services"
	"devup/internal/services/process"
	"devup/pkg/logging"
)

// StopReason tracks why a service was stopped.
// Watch mode uses it to distinguish user-initiated stops (which must not be
// auto-restarted) from failures (which should be).
type StopReason int

const (
	StopReasonManual  StopReason = iota // User explicitly stopped the service
	StopReasonFailure                   // Service stopped because its process failed
)

// Config holds configuration for the orchestrator.
type Config struct {
	RuntimePath string                     // Resolved interpreter path
	Services    []config.ServiceDefinition // Spawned in declaration order
}

// Orchestrator coordinates the lifecycle of all managed dev services: it
// registers them, brings them up in order with readiness gating between
// spawns, and in watch mode monitors their health and restarts failures.
type Orchestrator struct {
	registry services.ServiceRegistry
	cfg      Config

	// Swappable service constructor so tests can inject stub-spawner services
	serviceFactory func(config.ServiceDefinition, string) services.Service

	// Service tracking
	stopReasons    map[string]StopReason // Why each stopped service was stopped
	healthCheckers map[string]bool       // Which services already have a health-check goroutine

	// State change event subscribers
	stateChangeSubscribers []chan<- ServiceStateChangedEvent

	// Context for cancellation
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu sync.RWMutex // Protects concurrent access to the tracking maps
}

// ServiceStateChangedEvent represents a service state change event
type ServiceStateChangedEvent struct {
	Label    string
	OldState string
	NewState string
	Health   string
	Error    error
}

// New creates an orchestrator for the given configuration. No services are
// registered or started yet; call Up.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		registry: services.NewRegistry(),
		cfg:      cfg,
		serviceFactory: func(def config.ServiceDefinition, runtime string) services.Service {
			return process.NewProcessService(def, runtime)
		},
		stopReasons:            make(map[string]StopReason),
		healthCheckers:         make(map[string]bool),
		stateChangeSubscribers: make([]chan<- ServiceStateChangedEvent, 0),
	}
}

// SetServiceFactory replaces the service constructor (tests only).
func (o *Orchestrator) SetServiceFactory(factory func(config.ServiceDefinition, string) services.Service) {
	o.serviceFactory = factory
}

// Up registers all enabled services and starts them sequentially in
// declaration order. After each successful spawn the readiness gate runs
// before the next service is started, so dependents see a bound port instead
// of racing a fixed delay. Gate failures are logged and absorbed: bring-up is
// best-effort and always proceeds to the next service.
func (o *Orchestrator) Up(ctx context.Context) error {
	o.ctx, o.cancelFunc = context.WithCancel(ctx)

	if err := o.registerServices(); err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}

	for _, def := range o.cfg.Services {
		if !def.Enabled {
			continue
		}

		service, exists := o.registry.Get(def.Name)
		if !exists {
			continue
		}

		if err := service.Start(o.ctx); err != nil {
			logging.Error("Orchestrator", err, "Service %s failed to start, continuing with remaining services", def.Name)
			continue
		}

		if err := o.waitForReady(o.ctx, def); err != nil {
			logging.Warn("Orchestrator", "Service %s not confirmed ready: %v", def.Name, err)
		}
	}

	return nil
}

// Down stops all services in reverse registration order.
func (o *Orchestrator) Down() error {
	if o.cancelFunc != nil {
		o.cancelFunc()
	}

	all := o.registry.GetAll()
	var firstErr error
	for i := len(all) - 1; i >= 0; i-- {
		service := all[i]
		if service.GetState() != services.StateRunning && service.GetState() != services.StateStarting {
			continue
		}
		if err := service.Stop(context.Background()); err != nil {
			logging.Error("Orchestrator", err, "Failed to stop service %s", service.GetLabel())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DetachAll releases every running service process so the launcher can exit
// while the services keep running in their own process groups.
func (o *Orchestrator) DetachAll() {
	for _, service := range o.registry.GetAll() {
		if detacher, ok := service.(services.Detacher); ok {
			detacher.Detach()
		}
	}
}

// StartService starts a specific service by label.
func (o *Orchestrator) StartService(label string) error {
	service, exists := o.registry.Get(label)
	if !exists {
		return fmt.Errorf("service %s not found", label)
	}

	if err := service.Start(o.ctx); err != nil {
		return fmt.Errorf("failed to start service %s: %w", label, err)
	}

	// Remove from stop reasons to re-enable auto-recovery
	o.mu.Lock()
	delete(o.stopReasons, label)
	o.mu.Unlock()

	logging.Info("Orchestrator", "Started service: %s", label)
	return nil
}

// StopService stops a specific service by label. Manually stopped services
// are not auto-restarted in watch mode.
func (o *Orchestrator) StopService(label string) error {
	service, exists := o.registry.Get(label)
	if !exists {
		return fmt.Errorf("service %s not found", label)
	}

	o.mu.Lock()
	o.stopReasons[label] = StopReasonManual
	o.mu.Unlock()

	if err := service.Stop(o.ctx); err != nil {
		return fmt.Errorf("failed to stop service %s: %w", label, err)
	}

	logging.Info("Orchestrator", "Stopped service: %s", label)
	return nil
}

// RestartService restarts a specific service by label.
func (o *Orchestrator) RestartService(label string) error {
	service, exists := o.registry.Get(label)
	if !exists {
		return fmt.Errorf("service %s not found", label)
	}

	if err := service.Restart(o.ctx); err != nil {
		return fmt.Errorf("failed to restart service %s: %w", label, err)
	}

	logging.Info("Orchestrator", "Restarted service: %s", label)
	return nil
}

// GetServiceRegistry returns the service registry so other components (the
// summary printer, the status command) can query service state.
func (o *Orchestrator) GetServiceRegistry() services.ServiceRegistry {
	return o.registry
}

// SubscribeToStateChanges returns a channel for receiving service state change events.
func (o *Orchestrator) SubscribeToStateChanges() <-chan ServiceStateChangedEvent {
	eventChan := make(chan ServiceStateChangedEvent, 100)

	o.mu.Lock()
	o.stateChangeSubscribers = append(o.stateChangeSubscribers, eventChan)
	o.mu.Unlock()

	return eventChan
}

// registerServices creates and registers all enabled services with the state
// change callback wired up. Registration does not start anything.
func (o *Orchestrator) registerServices() error {
	for _, def := range o.cfg.Services {
		if !def.Enabled {
			logging.Debug("Orchestrator", "Service %s disabled, skipping", def.Name)
			continue
		}

		service := o.serviceFactory(def, o.cfg.RuntimePath)
		service.SetStateChangeCallback(o.handleStateChange)

		if err := o.registry.Register(service); err != nil {
			return err
		}
		logging.Debug("Orchestrator", "Registered service: %s", def.Name)
	}
	return nil
}

// handleStateChange broadcasts state changes to subscribers.
func (o *Orchestrator) handleStateChange(label string, oldState, newState services.ServiceState, health services.HealthStatus, err error) {
	event := ServiceStateChangedEvent{
		Label:    label,
		OldState: string(oldState),
		NewState: string(newState),
		Health:   string(health),
		Error:    err,
	}

	// Send to all subscribers (don't hold the lock while sending)
	o.mu.RLock()
	subscribers := make([]chan<- ServiceStateChangedEvent, len(o.stateChangeSubscribers))
	copy(subscribers, o.stateChangeSubscribers)
	o.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
			// Event sent successfully
		default:
			// Channel full, drop event
			logging.Warn("Orchestrator", "Dropped state change event for %s (subscriber channel full)", label)
		}
	}
}
