package pyenv

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"devup/pkg/logging"
)

// ErrRuntimeNotFound is returned when no interpreter candidate resolves on PATH.
// Callers translate it to the user-facing remediation message.
var ErrRuntimeNotFound = errors.New("no python interpreter found on PATH")

// RemediationHint tells the developer how to fix a missing runtime.
const RemediationHint = "Python was not found. Install it from https://www.python.org/downloads/ " +
	"(make sure it is added to PATH) and run devup again."

// Runtime describes a resolved interpreter.
type Runtime struct {
	Path    string // Absolute path to the interpreter binary
	Version string // Output of `<path> --version`, e.g., "Python 3.12.1"
}

// Prober locates a usable interpreter. Modeled as an interface so the
// launcher flow can be tested without touching the host's PATH.
type Prober interface {
	Detect(ctx context.Context) (Runtime, error)
}

// For mocking in tests
var lookPath = exec.LookPath
var runVersion = func(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// ExecProber resolves interpreter candidates via PATH lookup and verifies
// each one by running its version command. The first candidate that both
// resolves and reports a version wins.
type ExecProber struct {
	Candidates []string // Tried in order, e.g., ["python", "python3"]
}

// NewExecProber creates a prober for the given interpreter candidates.
func NewExecProber(candidates []string) *ExecProber {
	return &ExecProber{Candidates: candidates}
}

// Detect implements the Prober interface.
func (p *ExecProber) Detect(ctx context.Context) (Runtime, error) {
	for _, candidate := range p.Candidates {
		path, err := lookPath(candidate)
		if err != nil {
			logging.Debug("Prober", "Interpreter %q not on PATH: %v", candidate, err)
			continue
		}

		version, err := runVersion(ctx, path)
		if err != nil {
			// Resolvable but broken (e.g., a Windows Store stub). Keep probing.
			logging.Debug("Prober", "Interpreter %q failed version probe: %v", path, err)
			continue
		}

		logging.Info("Prober", "Using interpreter %s (%s)", path, version)
		return Runtime{Path: path, Version: version}, nil
	}

	return Runtime{}, ErrRuntimeNotFound
}
