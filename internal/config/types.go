package config

import (
	"fmt"
	"time"
)

// DevupConfig is the top-level configuration structure for devup.
type DevupConfig struct {
	Runtime      RuntimeSettings     `yaml:"runtime"`
	Dependencies []string            `yaml:"dependencies"`
	Services     []ServiceDefinition `yaml:"services"`
}

// RuntimeSettings describes the interpreter used to run the managed services.
type RuntimeSettings struct {
	Interpreter string   `yaml:"interpreter,omitempty"` // e.g., "python"
	Fallbacks   []string `yaml:"fallbacks,omitempty"`   // Tried in order when the interpreter is not on PATH, e.g., ["python3"]
}

// Candidates returns the interpreter names to probe, in order.
func (r RuntimeSettings) Candidates() []string {
	candidates := make([]string, 0, 1+len(r.Fallbacks))
	if r.Interpreter != "" {
		candidates = append(candidates, r.Interpreter)
	}
	candidates = append(candidates, r.Fallbacks...)
	return candidates
}

// ServiceDefinition defines one long-running service that devup brings up.
type ServiceDefinition struct {
	Name    string `yaml:"name"`             // Unique name for this service, e.g., "api", "bot", "web"
	Icon    string `yaml:"icon,omitempty"`   // Optional: an icon/emoji for the summary
	Enabled bool   `yaml:"enabledByDefault"` // Whether this service is started by default

	// Interpreter arguments; the resolved runtime is always the executable,
	// e.g., ["api_server.py"] or ["-m", "http.server", "8080"].
	Args []string          `yaml:"args"`
	Dir  string            `yaml:"dir,omitempty"` // Working directory (defaults to the launcher's)
	Env  map[string]string `yaml:"env,omitempty"` // Extra environment variables

	// Readiness surface. Port 0 means the service has no local listening
	// surface (e.g., a long-polling bot) and only the settle delay applies.
	Port       int    `yaml:"port,omitempty"`
	HealthPath string `yaml:"healthPath,omitempty"` // HTTP path probed on Port, e.g., "/health"

	SettleDelay         time.Duration `yaml:"settleDelay,omitempty"`         // Wait before the next spawn when no probe surface exists
	ReadinessTimeout    time.Duration `yaml:"readinessTimeout,omitempty"`    // Upper bound for the readiness gate
	HealthCheckInterval time.Duration `yaml:"healthCheckInterval,omitempty"` // Optional: custom health check interval in watch mode

	// Summary lines printed after bring-up.
	URL   string `yaml:"url,omitempty"`
	Entry string `yaml:"entry,omitempty"` // Document to open first, relative to this service's root
	Note  string `yaml:"note,omitempty"`
}

// HasProbeSurface reports whether the service exposes anything the readiness
// gate can poll.
func (s ServiceDefinition) HasProbeSurface() bool {
	return s.Port > 0
}

// HealthURL returns the HTTP health endpoint, or "" when the service only
// offers a raw TCP port (or nothing at all).
func (s ServiceDefinition) HealthURL() string {
	if s.Port == 0 || s.HealthPath == "" {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d%s", s.Port, s.HealthPath)
}
