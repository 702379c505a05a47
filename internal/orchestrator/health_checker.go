package orchestrator

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"devup/internal/config"
	"devup/pkg/logging"
)

// ServiceHealthChecker defines the interface for checking service health
type ServiceHealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HTTPHealthChecker checks the health of a service by calling its health endpoint
type HTTPHealthChecker struct {
	url string
}

// NewHTTPHealthChecker creates a new HTTP health checker
func NewHTTPHealthChecker(url string) *HTTPHealthChecker {
	return &HTTPHealthChecker{url: url}
}

// CheckHealth checks if the service is healthy by requesting its health endpoint
func (h *HTTPHealthChecker) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Use a client with timeout
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint %s returned status %d", h.url, resp.StatusCode)
	}

	logging.Debug("HTTPHealthChecker", "Endpoint %s is healthy", h.url)
	return nil
}

// PortHealthChecker checks the health of a service by attempting to connect
// to its local TCP port
type PortHealthChecker struct {
	port int
}

// NewPortHealthChecker creates a new port health checker
func NewPortHealthChecker(port int) *PortHealthChecker {
	return &PortHealthChecker{port: port}
}

// CheckHealth checks if the service is healthy by attempting to connect to the local port
func (p *PortHealthChecker) CheckHealth(ctx context.Context) error {
	dialer := &net.Dialer{
		Timeout: 3 * time.Second,
	}

	address := fmt.Sprintf("localhost:%d", p.port)
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	logging.Debug("PortHealthChecker", "Port %d is accepting connections", p.port)
	return nil
}

// NewHealthCheckerFor builds the appropriate checker for the service's
// listening surface: HTTP when it documents a health endpoint, a raw TCP dial
// when it only has a port, nil when there is nothing to probe.
func NewHealthCheckerFor(def config.ServiceDefinition) ServiceHealthChecker {
	switch {
	case def.HealthURL() != "":
		return NewHTTPHealthChecker(def.HealthURL())
	case def.Port > 0:
		return NewPortHealthChecker(def.Port)
	default:
		return nil
	}
}
