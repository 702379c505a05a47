package services

import (
	"sync"

	"devup/pkg/logging"
)

// BaseService provides the state, health, and callback plumbing shared by all
// service implementations. Concrete services embed it and drive transitions
// through UpdateState/UpdateHealth.
type BaseService struct {
	mu sync.RWMutex

	label        string
	serviceType  ServiceType
	dependencies []string

	state     ServiceState
	health    HealthStatus
	lastError error

	stateCallback StateChangeCallback

	// Notifications are delivered by a single dispatcher goroutine so
	// listeners observe transitions in the order they happened.
	notifications chan stateChangeNotification
}

type stateChangeNotification struct {
	callback StateChangeCallback
	oldState ServiceState
	newState ServiceState
	health   HealthStatus
	err      error
}

// NewBaseService creates the shared service core.
func NewBaseService(label string, serviceType ServiceType, dependencies []string) *BaseService {
	if dependencies == nil {
		dependencies = []string{}
	}
	b := &BaseService{
		label:         label,
		serviceType:   serviceType,
		dependencies:  dependencies,
		state:         StateUnknown,
		health:        HealthUnknown,
		notifications: make(chan stateChangeNotification, 32),
	}
	go b.dispatchNotifications()
	return b
}

// dispatchNotifications runs callbacks off the caller's goroutine (a listener
// may call back into the service without deadlocking) while keeping delivery
// in transition order, one at a time.
func (b *BaseService) dispatchNotifications() {
	for n := range b.notifications {
		n.callback(b.label, n.oldState, n.newState, n.health, n.err)
	}
}

// GetState implements the Service interface
func (b *BaseService) GetState() ServiceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// GetHealth implements the Service interface
func (b *BaseService) GetHealth() HealthStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.health
}

// GetLastError implements the Service interface
func (b *BaseService) GetLastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// GetLabel implements the Service interface
func (b *BaseService) GetLabel() string {
	return b.label
}

// GetType implements the Service interface
func (b *BaseService) GetType() ServiceType {
	return b.serviceType
}

// GetDependencies implements the Service interface
func (b *BaseService) GetDependencies() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	deps := make([]string, len(b.dependencies))
	copy(deps, b.dependencies)
	return deps
}

// SetStateChangeCallback implements the Service interface
func (b *BaseService) SetStateChangeCallback(callback StateChangeCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stateCallback = callback
}

// UpdateState transitions the service to a new state and health, firing the
// state change callback when either changed. Callbacks are handed to the
// dispatcher goroutine, so they arrive in transition order. The enqueue is
// done under the lock so two concurrent transitions cannot invert.
func (b *BaseService) UpdateState(newState ServiceState, newHealth HealthStatus, err error) {
	b.mu.Lock()
	oldState := b.state
	oldHealth := b.health
	b.state = newState
	b.health = newHealth
	b.lastError = err
	callback := b.stateCallback

	if callback != nil && (oldState != newState || oldHealth != newHealth) {
		select {
		case b.notifications <- stateChangeNotification{
			callback: callback,
			oldState: oldState,
			newState: newState,
			health:   newHealth,
			err:      err,
		}:
		default:
			logging.Warn("Service", "Dropped state change notification for %s (queue full)", b.label)
		}
	}
	b.mu.Unlock()

	logging.Debug("Service", "Service %s state changed: %s -> %s (health: %s -> %s)",
		b.label, oldState, newState, oldHealth, newHealth)
}

// UpdateHealth changes only the health status, keeping the current state.
func (b *BaseService) UpdateHealth(newHealth HealthStatus) {
	b.mu.Lock()
	state := b.state
	lastError := b.lastError
	b.mu.Unlock()
	b.UpdateState(state, newHealth, lastError)
}
