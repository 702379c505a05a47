package process

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devup/internal/config"
	"devup/internal/services"
	"devup/internal/spawn"
)

// stubSpawner records spawn requests and simulates the manager goroutine.
type stubSpawner struct {
	mu    sync.Mutex
	specs []spawn.Spec
	err   error
}

func (st *stubSpawner) spawn(spec spawn.Spec, updateFn spawn.UpdateFunc, wg *sync.WaitGroup) (*spawn.Handle, error) {
	st.mu.Lock()
	st.specs = append(st.specs, spec)
	st.mu.Unlock()

	if st.err != nil {
		return nil, st.err
	}

	handle := spawn.NewHandle(4242)
	if updateFn != nil {
		updateFn(spawn.Update{Label: spec.Label, PID: handle.PID, Status: "Running"})
	}
	// The real manager goroutine owns the WaitGroup slot; release it here so
	// Stop does not block.
	if wg != nil {
		wg.Done()
	}
	return handle, nil
}

func (st *stubSpawner) spawned() []spawn.Spec {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]spawn.Spec(nil), st.specs...)
}

func TestNewProcessService(t *testing.T) {
	cfg := config.ServiceDefinition{
		Name: "api",
		Args: []string{"api_server.py"},
		Port: 5000,
	}

	svc := NewProcessService(cfg, "/usr/bin/python")

	assert.Equal(t, "api", svc.GetLabel())
	assert.Equal(t, services.TypeProcess, svc.GetType())
	assert.Equal(t, services.StateUnknown, svc.GetState())
	assert.Equal(t, cfg, svc.Definition())
	assert.Equal(t, 0, svc.PID())
}

func TestProcessService_StartSpawnsInterpreter(t *testing.T) {
	stub := &stubSpawner{}
	svc := NewProcessService(config.ServiceDefinition{
		Name: "api",
		Args: []string{"api_server.py"},
		Env:  map[string]string{"FLASK_ENV": "development"},
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)

	err := svc.Start(context.Background())
	require.NoError(t, err)

	specs := stub.spawned()
	require.Len(t, specs, 1)
	assert.Equal(t, "/usr/bin/python", specs[0].Path)
	assert.Equal(t, []string{"api_server.py"}, specs[0].Args)
	assert.Equal(t, "development", specs[0].Env["FLASK_ENV"])

	assert.Equal(t, services.StateRunning, svc.GetState())
	assert.Equal(t, 4242, svc.PID())

	// Starting an already-running service is a no-op
	require.NoError(t, svc.Start(context.Background()))
	assert.Len(t, stub.spawned(), 1)
}

func TestProcessService_StartFailure(t *testing.T) {
	stub := &stubSpawner{err: errors.New("executable file not found")}
	svc := NewProcessService(config.ServiceDefinition{
		Name: "api",
		Args: []string{"api_server.py"},
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)

	err := svc.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, services.StateFailed, svc.GetState())
	assert.Equal(t, services.HealthUnhealthy, svc.GetHealth())
	assert.Error(t, svc.GetLastError())
}

func TestProcessService_StopAndRestart(t *testing.T) {
	stub := &stubSpawner{}
	svc := NewProcessService(config.ServiceDefinition{
		Name: "web",
		Args: []string{"-m", "http.server", "8080"},
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, services.StateStopped, svc.GetState())
	assert.Equal(t, 0, svc.PID())

	require.NoError(t, svc.Restart(context.Background()))
	assert.Equal(t, services.StateRunning, svc.GetState())
	assert.Len(t, stub.spawned(), 2)
}

func TestProcessService_CheckHealth_HTTP(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	port := portOf(t, server.URL)
	stub := &stubSpawner{}
	svc := NewProcessService(config.ServiceDefinition{
		Name:       "api",
		Args:       []string{"api_server.py"},
		Port:       port,
		HealthPath: "/health",
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)

	// Not running yet: health is unknown, no probe
	health, err := svc.CheckHealth(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, services.HealthUnknown, health)

	require.NoError(t, svc.Start(context.Background()))

	health, err = svc.CheckHealth(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, services.HealthHealthy, health)

	healthy = false
	health, err = svc.CheckHealth(context.Background())
	assert.Error(t, err)
	assert.Equal(t, services.HealthUnhealthy, health)
}

func TestProcessService_CheckHealth_TCP(t *testing.T) {
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	stub := &stubSpawner{}
	svc := NewProcessService(config.ServiceDefinition{
		Name: "web",
		Args: []string{"-m", "http.server", strconv.Itoa(port)},
		Port: port,
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)
	require.NoError(t, svc.Start(context.Background()))

	health, err := svc.CheckHealth(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, services.HealthHealthy, health)

	listener.Close()
	health, err = svc.CheckHealth(context.Background())
	assert.Error(t, err)
	assert.Equal(t, services.HealthUnhealthy, health)
}

func TestProcessService_CheckHealth_NoSurface(t *testing.T) {
	stub := &stubSpawner{}
	svc := NewProcessService(config.ServiceDefinition{
		Name: "bot",
		Args: []string{"admin_balance_bot.py"},
	}, "/usr/bin/python")
	svc.SetSpawner(stub.spawn)
	require.NoError(t, svc.Start(context.Background()))

	// No port and no health path: the probe keeps the last known health
	health, err := svc.CheckHealth(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, svc.GetHealth(), health)
}

func TestProcessService_GetHealthCheckInterval(t *testing.T) {
	svc := NewProcessService(config.ServiceDefinition{Name: "api"}, "/usr/bin/python")
	assert.Equal(t, 30*time.Second, svc.GetHealthCheckInterval())

	svc = NewProcessService(config.ServiceDefinition{
		Name:                "api",
		HealthCheckInterval: 5 * time.Second,
	}, "/usr/bin/python")
	assert.Equal(t, 5*time.Second, svc.GetHealthCheckInterval())
}

func portOf(t *testing.T, serverURL string) int {
	t.Helper()
	idx := strings.LastIndex(serverURL, ":")
	require.Greater(t, idx, 0)
	port, err := strconv.Atoi(serverURL[idx+1:])
	require.NoError(t, err)
	return port
}
