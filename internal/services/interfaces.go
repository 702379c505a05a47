package services

import (
	"context"
	"time"
)

// ServiceState represents the current state of a service
type ServiceState string

const (
	StateUnknown  ServiceState = "Unknown"
	StateWaiting  ServiceState = "Waiting"
	StateStarting ServiceState = "Starting"
	StateRunning  ServiceState = "Running"
	StateStopping ServiceState = "Stopping"
	StateStopped  ServiceState = "Stopped"
	StateFailed   ServiceState = "Failed"
)

// HealthStatus represents the health status of a service
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "Unknown"
	HealthHealthy   HealthStatus = "Healthy"
	HealthUnhealthy HealthStatus = "Unhealthy"
	HealthChecking  HealthStatus = "Checking"
)

// ServiceType represents the type of service
type ServiceType string

const (
	// TypeProcess is a service backed by a spawned interpreter process.
	TypeProcess ServiceType = "Process"
)

// Service is the core interface that all services must implement
type Service interface {
	// Lifecycle management
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// State management
	GetState() ServiceState
	GetHealth() HealthStatus
	GetLastError() error

	// Service metadata
	GetLabel() string
	GetType() ServiceType
	GetDependencies() []string

	// State change notifications
	// The service should call this callback when its state changes
	SetStateChangeCallback(callback StateChangeCallback)
}

// StateChangeCallback is called when a service's state changes
type StateChangeCallback func(label string, oldState, newState ServiceState, health HealthStatus, err error)

// HealthChecker is an optional interface for services that support health checking
type HealthChecker interface {
	// CheckHealth performs a health check and returns the current health status
	CheckHealth(ctx context.Context) (HealthStatus, error)

	// GetHealthCheckInterval returns the interval at which health checks should be performed
	GetHealthCheckInterval() time.Duration
}

// Detacher is an optional interface for services whose underlying process can
// outlive the launcher. Detach releases the process without stopping it.
type Detacher interface {
	Detach()
}

// ServiceRegistry manages all registered services
type ServiceRegistry interface {
	// Register adds a service to the registry
	Register(service Service) error

	// Unregister removes a service from the registry
	Unregister(label string) error

	// Get returns a service by label
	Get(label string) (Service, bool)

	// GetAll returns all registered services in registration order
	GetAll() []Service

	// GetByType returns all services of a specific type
	GetByType(serviceType ServiceType) []Service
}
