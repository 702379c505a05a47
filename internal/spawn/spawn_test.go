package spawn

import "testing"

func TestNewHandle(t *testing.T) {
	handle := NewHandle(4242)

	if handle.PID != 4242 {
		t.Errorf("Expected PID 4242, got %d", handle.PID)
	}

	// Stop and Detach must not panic, including repeat calls
	handle.Stop()
	handle.Stop()
	handle.Detach()
	handle.Detach()

	select {
	case <-handle.stopChan:
	default:
		t.Error("Expected stop channel to be closed after Stop")
	}
	select {
	case <-handle.detachChan:
	default:
		t.Error("Expected detach channel to be closed after Detach")
	}
}

func TestHandle_ZeroValueIsSafe(t *testing.T) {
	// A zero-value handle has nil channels; Stop and Detach must be no-ops,
	// not panics, so stubbed spawners cannot take the caller down.
	var handle Handle
	handle.Stop()
	handle.Detach()
}
