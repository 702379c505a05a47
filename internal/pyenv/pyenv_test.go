package pyenv

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubLookPath(t *testing.T, fn func(string) (string, error)) {
	t.Helper()
	original := lookPath
	t.Cleanup(func() { lookPath = original })
	lookPath = fn
}

func stubRunVersion(t *testing.T, fn func(context.Context, string) (string, error)) {
	t.Helper()
	original := runVersion
	t.Cleanup(func() { runVersion = original })
	runVersion = fn
}

func TestExecProber_Detect(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		onPath     map[string]string // candidate -> resolved path
		versions   map[string]string // resolved path -> version output
		want       Runtime
		wantErr    error
	}{
		{
			name:       "first candidate resolves",
			candidates: []string{"python", "python3"},
			onPath:     map[string]string{"python": "/usr/bin/python"},
			versions:   map[string]string{"/usr/bin/python": "Python 3.12.1"},
			want:       Runtime{Path: "/usr/bin/python", Version: "Python 3.12.1"},
		},
		{
			name:       "falls back to python3",
			candidates: []string{"python", "python3"},
			onPath:     map[string]string{"python3": "/usr/bin/python3"},
			versions:   map[string]string{"/usr/bin/python3": "Python 3.11.8"},
			want:       Runtime{Path: "/usr/bin/python3", Version: "Python 3.11.8"},
		},
		{
			name:       "resolvable but version probe fails",
			candidates: []string{"python"},
			onPath:     map[string]string{"python": "/usr/bin/python"},
			versions:   map[string]string{},
			wantErr:    ErrRuntimeNotFound,
		},
		{
			name:       "nothing on PATH",
			candidates: []string{"python", "python3"},
			onPath:     map[string]string{},
			wantErr:    ErrRuntimeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubLookPath(t, func(name string) (string, error) {
				if path, ok := tt.onPath[name]; ok {
					return path, nil
				}
				return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
			})
			stubRunVersion(t, func(_ context.Context, path string) (string, error) {
				if version, ok := tt.versions[path]; ok {
					return version, nil
				}
				return "", errors.New("exit status 9009")
			})

			prober := NewExecProber(tt.candidates)
			got, err := prober.Detect(context.Background())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipInstaller_Install(t *testing.T) {
	var gotPath string
	var gotArgs []string
	installErr := errors.New("pip exited with status 1")

	tests := []struct {
		name     string
		packages []string
		runErr   error
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "installs the fixed set",
			packages: []string{"flask", "flask-cors", "python-telegram-bot"},
			wantArgs: []string{"-m", "pip", "install", "--quiet", "flask", "flask-cors", "python-telegram-bot"},
		},
		{
			name:     "install failure is returned to the caller",
			packages: []string{"flask"},
			runErr:   installErr,
			wantArgs: []string{"-m", "pip", "install", "--quiet", "flask"},
			wantErr:  true,
		},
		{
			name:     "empty package list is a no-op",
			packages: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath, gotArgs = "", nil
			original := runInstall
			t.Cleanup(func() { runInstall = original })
			runInstall = func(_ context.Context, path string, args []string) error {
				gotPath = path
				gotArgs = args
				return tt.runErr
			}

			installer := NewPipInstaller(Runtime{Path: "/usr/bin/python"})
			err := installer.Install(context.Background(), tt.packages)

			if tt.wantErr {
				assert.ErrorIs(t, err, installErr)
			} else {
				assert.NoError(t, err)
			}
			if len(tt.packages) == 0 {
				assert.Empty(t, gotPath, "no-op install must not invoke the runtime")
				return
			}
			assert.Equal(t, "/usr/bin/python", gotPath)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

// Re-running the install with everything already satisfied must behave the
// same as a fresh install from the caller's point of view.
func TestPipInstaller_Idempotent(t *testing.T) {
	calls := 0
	original := runInstall
	t.Cleanup(func() { runInstall = original })
	runInstall = func(context.Context, string, []string) error {
		calls++
		return nil
	}

	installer := NewPipInstaller(Runtime{Path: "/usr/bin/python"})
	assert.NoError(t, installer.Install(context.Background(), []string{"flask"}))
	assert.NoError(t, installer.Install(context.Background(), []string{"flask"}))
	assert.Equal(t, 2, calls)
}
