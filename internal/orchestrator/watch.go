package orchestrator

import (
	"context"
	"time"

	"devup/internal/services"
	"devup/pkg/logging"
)

// Watch supervises the running services until ctx is canceled. It starts a
// health-check goroutine per service and restarts any service whose process
// fails or whose health check reports unhealthy, unless the service was
// stopped manually.
func (o *Orchestrator) Watch(ctx context.Context) {
	events := o.SubscribeToStateChanges()
	o.startHealthCheckers(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if event.NewState == string(services.StateFailed) {
				logging.Warn("Orchestrator", "Service %s failed: %v", event.Label, event.Error)
				// Restart on a separate goroutine so the event loop keeps draining
				go o.maybeRestart(event.Label)
			}
		}
	}
}

// startHealthCheckers launches one health-check goroutine per service that
// supports health checking. Idempotent: a service never gets two checkers.
func (o *Orchestrator) startHealthCheckers(ctx context.Context) {
	for _, service := range o.registry.GetAll() {
		healthChecker, ok := service.(services.HealthChecker)
		if !ok {
			continue
		}

		label := service.GetLabel()
		o.mu.Lock()
		if o.healthCheckers[label] {
			o.mu.Unlock()
			continue
		}
		o.healthCheckers[label] = true
		o.mu.Unlock()

		go o.runHealthChecksForService(ctx, service, healthChecker)
	}
}

// runHealthChecksForService periodically checks one service's health.
func (o *Orchestrator) runHealthChecksForService(ctx context.Context, service services.Service, healthChecker services.HealthChecker) {
	interval := healthChecker.GetHealthCheckInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Debug("Orchestrator", "Health checker started for %s (interval: %s)", service.GetLabel(), interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if service.GetState() != services.StateRunning {
				continue
			}

			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			health, err := healthChecker.CheckHealth(checkCtx)
			cancel()

			if err != nil || health == services.HealthUnhealthy {
				logging.Warn("Orchestrator", "Service %s is unhealthy: %v", service.GetLabel(), err)
				o.maybeRestart(service.GetLabel())
			}
		}
	}
}

// maybeRestart restarts a service unless the user stopped it on purpose.
func (o *Orchestrator) maybeRestart(label string) {
	o.mu.RLock()
	reason, wasStopped := o.stopReasons[label]
	o.mu.RUnlock()

	if wasStopped && reason == StopReasonManual {
		logging.Debug("Orchestrator", "Service %s was stopped manually, not restarting", label)
		return
	}

	logging.Info("Orchestrator", "Auto-restarting service: %s", label)
	if err := o.RestartService(label); err != nil {
		logging.Error("Orchestrator", err, "Auto-restart of %s failed", label)
	}
}
