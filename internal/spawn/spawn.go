package spawn

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// Update carries a status or log line from a managed process.
type Update struct {
	Label     string
	PID       int
	Status    string // "Running", "Stopped", "Error" or "" for pure log lines
	OutputLog string
	IsError   bool
	Err       error
}

// UpdateFunc receives process updates.
type UpdateFunc func(Update)

// Spec describes one process to spawn.
type Spec struct {
	Label string
	Path  string // Executable (the resolved interpreter)
	Args  []string
	Dir   string            // Working directory; empty means inherit
	Env   map[string]string // Extra environment on top of os.Environ()
}

// Handle controls a spawned process.
type Handle struct {
	PID int

	stopChan   chan struct{}
	detachChan chan struct{}
	stopOnce   sync.Once
	detachOnce sync.Once
}

// NewHandle returns a handle whose Stop and Detach are safe to call. Start
// builds its handles this way; stub spawners in tests must do the same.
func NewHandle(pid int) *Handle {
	return &Handle{
		PID:        pid,
		stopChan:   make(chan struct{}),
		detachChan: make(chan struct{}),
	}
}

// Stop signals the manager goroutine to terminate the process. Safe to call
// more than once, and a no-op on a zero-value handle.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		if h.stopChan != nil {
			close(h.stopChan)
		}
	})
}

// Detach tells the manager goroutine to stand down without signaling the
// process. The process keeps running after the launcher exits; it is in its
// own process group, so it does not share the launcher's signal fate.
// Safe to call more than once, and a no-op on a zero-value handle.
func (h *Handle) Detach() {
	h.detachOnce.Do(func() {
		if h.detachChan != nil {
			close(h.detachChan)
		}
	})
}

// Spawner starts a process and returns a control handle. Declared as a type
// so services can swap in a stub for tests instead of creating OS processes.
type Spawner func(spec Spec, updateFn UpdateFunc, wg *sync.WaitGroup) (*Handle, error)

// Start prepares, starts, and manages a single service process.
// The process is placed in its own process group so it survives the launcher
// independently. Stdout and stderr are scanned line by line into updateFn so
// the developer sees service output in real time.
// If wg is non-nil it must have been incremented by the caller; the manager
// goroutine decrements it when the process is fully accounted for.
func Start(spec Spec, updateFn UpdateFunc, wg *sync.WaitGroup) (*Handle, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.SysProcAttr = detachAttr()
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ() // Inherit current environment
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdoutPipe, pipeErr := cmd.StdoutPipe()
	if pipeErr != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", spec.Label, pipeErr)
	}
	stderrPipe, pipeErr := cmd.StderrPipe()
	if pipeErr != nil {
		stdoutPipe.Close()
		return nil, fmt.Errorf("stderr pipe for %s: %w", spec.Label, pipeErr)
	}

	handle := NewHandle(0)

	if err := cmd.Start(); err != nil {
		stdoutPipe.Close()
		stderrPipe.Close()
		return nil, fmt.Errorf("failed to start %s (%s %v): %w", spec.Label, spec.Path, spec.Args, err)
	}

	handle.PID = cmd.Process.Pid
	pid := handle.PID

	if updateFn != nil {
		updateFn(Update{
			Label:     spec.Label,
			PID:       pid,
			Status:    "Running",
			OutputLog: fmt.Sprintf("%s (PID: %d) started: %s %v", spec.Label, pid, spec.Path, spec.Args),
		})
	}

	// Manager goroutine: owns the pipes and the process outcome.
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer stdoutPipe.Close()
		defer stderrPipe.Close()

		// Wait closes the pipes, so both scanners must drain to EOF before it
		// is called or trailing output from a short-lived process is lost.
		var scanners sync.WaitGroup
		scanners.Add(2)

		// Goroutine for stdout
		go func() {
			defer scanners.Done()
			scanner := bufio.NewScanner(stdoutPipe)
			for scanner.Scan() {
				logLine := scanner.Text()
				if updateFn != nil {
					updateFn(Update{Label: spec.Label, PID: pid, OutputLog: fmt.Sprintf("[%s] %s", spec.Label, logLine)})
				}
			}
		}()

		// Goroutine for stderr
		go func() {
			defer scanners.Done()
			scanner := bufio.NewScanner(stderrPipe)
			for scanner.Scan() {
				logLine := scanner.Text()
				if updateFn != nil {
					// Plain stderr log; the consumer decides whether it is an error condition.
					updateFn(Update{Label: spec.Label, PID: pid, OutputLog: fmt.Sprintf("[%s stderr] %s", spec.Label, logLine)})
				}
			}
		}()

		processDone := make(chan error, 1)
		go func() {
			scanners.Wait()
			processDone <- cmd.Wait()
		}()

		select {
		case err := <-processDone:
			status := "Stopped"
			logMsg := fmt.Sprintf("%s (PID: %d) exited.", spec.Label, pid)
			isErrFlag := false
			if err != nil {
				status = "Error"
				logMsg = fmt.Sprintf("%s (PID: %d) exited with error: %v", spec.Label, pid, err)
				isErrFlag = true
			}
			if updateFn != nil {
				updateFn(Update{Label: spec.Label, PID: pid, Status: status, OutputLog: logMsg, IsError: isErrFlag, Err: err})
			}

		case <-handle.detachChan:
			// Leave the process running. cmd.Wait is abandoned on purpose:
			// the launcher is about to exit and the child reparents.
			if updateFn != nil {
				updateFn(Update{Label: spec.Label, PID: pid, Status: "Running",
					OutputLog: fmt.Sprintf("%s (PID: %d) detached, left running.", spec.Label, pid)})
			}

		case <-handle.stopChan:
			if cmd.ProcessState == nil || !cmd.ProcessState.Exited() {
				if err := terminate(pid); err != nil {
					logMsg := fmt.Sprintf("Failed to kill %s (PID: %d): %v", spec.Label, pid, err)
					if updateFn != nil {
						updateFn(Update{Label: spec.Label, PID: pid, Status: "Error", OutputLog: logMsg, IsError: true, Err: err})
					}
				} else {
					if updateFn != nil {
						updateFn(Update{Label: spec.Label, PID: pid, Status: "Stopped",
							OutputLog: fmt.Sprintf("%s (PID: %d) stopped via signal.", spec.Label, pid)})
					}
				}
				<-processDone // Wait for the process to actually exit after kill
			} else {
				if updateFn != nil {
					updateFn(Update{Label: spec.Label, PID: pid, Status: "Stopped",
						OutputLog: fmt.Sprintf("%s (PID: %d) already exited before stop signal processing.", spec.Label, pid)})
				}
			}
		}
	}()

	return handle, nil
}
