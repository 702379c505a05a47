package orchestrator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devup/internal/config"
)

func TestWaitForReady_SettleDelayWithoutProbeSurface(t *testing.T) {
	o := New(Config{})
	def := config.ServiceDefinition{
		Name:        "bot",
		SettleDelay: 50 * time.Millisecond,
	}

	start := time.Now()
	err := o.waitForReady(context.Background(), def)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitForReady_SettleDelayCanceled(t *testing.T) {
	o := New(Config{})
	def := config.ServiceDefinition{
		Name:        "bot",
		SettleDelay: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := o.waitForReady(ctx, def)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForReady_PortBecomesReady(t *testing.T) {
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer listener.Close()

	o := New(Config{})
	def := config.ServiceDefinition{
		Name:             "web",
		Port:             listener.Addr().(*net.TCPAddr).Port,
		ReadinessTimeout: 5 * time.Second,
	}

	assert.NoError(t, o.waitForReady(context.Background(), def))
}

func TestWaitForReady_TimesOutOnDeadPort(t *testing.T) {
	// Grab a free port and close it so nothing is listening
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	o := New(Config{})
	def := config.ServiceDefinition{
		Name:             "web",
		Port:             port,
		ReadinessTimeout: 600 * time.Millisecond,
	}

	start := time.Now()
	err = o.waitForReady(context.Background(), def)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
