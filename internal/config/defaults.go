package config

import (
	"time"
)

const (
	// DefaultSettleDelay is the wait applied between spawns when a service
	// offers nothing the readiness gate can poll.
	DefaultSettleDelay = 2 * time.Second

	// DefaultReadinessTimeout bounds the readiness gate for services that do
	// expose a port or health endpoint.
	DefaultReadinessTimeout = 30 * time.Second
)

// GetDefaultConfig returns the compiled-in configuration: the Python runtime,
// the fixed dependency set, and the three dev services in spawn order.
func GetDefaultConfig() DevupConfig {
	return DevupConfig{
		Runtime: RuntimeSettings{
			Interpreter: "python",
			Fallbacks:   []string{"python3"},
		},
		Dependencies: []string{
			"flask",
			"flask-cors",
			"python-telegram-bot",
		},
		Services: []ServiceDefinition{
			{
				Name:             "api",
				Icon:             "🌐",
				Enabled:          true,
				Args:             []string{"api_server.py"},
				Port:             5000,
				HealthPath:       "/health",
				SettleDelay:      DefaultSettleDelay,
				ReadinessTimeout: DefaultReadinessTimeout,
				URL:              "http://localhost:5000",
				Note:             "REST API",
			},
			{
				Name:        "bot",
				Icon:        "🤖",
				Enabled:     true,
				Args:        []string{"admin_balance_bot.py"},
				SettleDelay: DefaultSettleDelay,
				Note:        "Telegram bot (long polling, no local port)",
			},
			{
				Name:             "web",
				Icon:             "📄",
				Enabled:          true,
				Args:             []string{"-m", "http.server", "8080"},
				Port:             8080,
				SettleDelay:      DefaultSettleDelay,
				ReadinessTimeout: DefaultReadinessTimeout,
				URL:              "http://localhost:8080",
				Entry:            "index (27).html",
				Note:             "static files",
			},
		},
	}
}
