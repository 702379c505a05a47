package orchestrator

import (
	"context"
	"sync"
	"time"

	"devup/internal/config"
	"devup/internal/services"
)

// recorder collects lifecycle events across mock services so tests can
// assert on ordering.
type recorder struct {
	mu     sync.Mutex
	events []string
	times  map[string]time.Time
}

func newRecorder() *recorder {
	return &recorder{times: make(map[string]time.Time)}
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.times[event] = time.Now()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) timeOf(event string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.times[event]
	return ts, ok
}

// mockService is a controllable Service implementation.
type mockService struct {
	*services.BaseService

	rec      *recorder
	startErr error
	detached bool
	mu       sync.Mutex
}

func newMockService(label string, rec *recorder) *mockService {
	return &mockService{
		BaseService: services.NewBaseService(label, services.TypeProcess, nil),
		rec:         rec,
	}
}

func (m *mockService) Start(ctx context.Context) error {
	m.rec.record("start:" + m.GetLabel())
	if m.startErr != nil {
		m.UpdateState(services.StateFailed, services.HealthUnhealthy, m.startErr)
		return m.startErr
	}
	m.UpdateState(services.StateRunning, services.HealthUnknown, nil)
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	m.rec.record("stop:" + m.GetLabel())
	m.UpdateState(services.StateStopped, services.HealthUnknown, nil)
	return nil
}

func (m *mockService) Restart(ctx context.Context) error {
	m.rec.record("restart:" + m.GetLabel())
	m.UpdateState(services.StateRunning, services.HealthUnknown, nil)
	return nil
}

func (m *mockService) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detached = true
	m.rec.record("detach:" + m.GetLabel())
}

func (m *mockService) isDetached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detached
}

// mockFactory returns a service factory that hands out pre-built mocks.
func mockFactory(mocks map[string]*mockService) func(config.ServiceDefinition, string) services.Service {
	return func(def config.ServiceDefinition, runtime string) services.Service {
		return mocks[def.Name]
	}
}
