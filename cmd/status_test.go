package cmd

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"devup/internal/config"
)

func stubLoadConfig(t *testing.T, cfg config.DevupConfig) {
	t.Helper()
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })
	loadConfig = func() (config.DevupConfig, error) {
		return cfg, nil
	}
}

func TestRunStatus(t *testing.T) {
	// A live listener stands in for the web server; the api port is closed
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Failed to open listener: %v", err)
	}
	defer listener.Close()
	livePort := listener.Addr().(*net.TCPAddr).Port

	closed, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Failed to open listener: %v", err)
	}
	deadPort := closed.Addr().(*net.TCPAddr).Port
	closed.Close()

	stubLoadConfig(t, config.DevupConfig{
		Services: []config.ServiceDefinition{
			{Name: "web", Enabled: true, Port: livePort},
			{Name: "api", Enabled: true, Port: deadPort},
			{Name: "bot", Enabled: true},
			{Name: "extra", Enabled: false, Port: livePort},
		},
	})

	cmd := &cobra.Command{Use: "status"}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runStatus(cmd); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}

	output := out.String()
	for _, name := range []string{"web", "api", "bot"} {
		if !strings.Contains(output, name) {
			t.Errorf("Expected output to mention %s. Got: %q", name, output)
		}
	}
	if strings.Contains(output, "extra") {
		t.Errorf("Disabled services should not be reported. Got: %q", output)
	}
	if !strings.Contains(output, "✓") {
		t.Errorf("Expected a reachable marker for the live port. Got: %q", output)
	}
	if !strings.Contains(output, "✗") {
		t.Errorf("Expected an unreachable marker for the dead port. Got: %q", output)
	}
}
