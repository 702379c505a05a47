package orchestrator

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"

	"devup/internal/config"
	"devup/pkg/logging"
)

// readinessPollInterval is the fixed delay between readiness probe attempts.
const readinessPollInterval = 500 * time.Millisecond

// waitForReady gates the next spawn on this service's readiness. Services
// with a listening surface are polled with bounded retries until they accept
// traffic or the readiness timeout elapses; services with no surface (the
// long-polling bot) get the fixed settle delay instead.
func (o *Orchestrator) waitForReady(ctx context.Context, def config.ServiceDefinition) error {
	if !def.HasProbeSurface() {
		delay := def.SettleDelay
		if delay <= 0 {
			delay = config.DefaultSettleDelay
		}
		logging.Debug("Orchestrator", "Service %s has no probe surface, settling for %s", def.Name, delay)
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	checker := NewHealthCheckerFor(def)

	timeout := def.ReadinessTimeout
	if timeout <= 0 {
		timeout = config.DefaultReadinessTimeout
	}
	attempts := uint(timeout / readinessPollInterval)
	if attempts == 0 {
		attempts = 1
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Debug("Orchestrator", "Waiting up to %s for service %s to become ready", timeout, def.Name)

	err := retry.Do(
		func() error {
			if err := probeCtx.Err(); err != nil {
				// Deadline or cancellation: stop retrying
				return retry.Unrecoverable(err)
			}
			return checker.CheckHealth(probeCtx)
		},
		retry.Attempts(attempts),
		retry.Delay(readinessPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}

	logging.Info("Orchestrator", "Service %s is ready", def.Name)
	return nil
}
