package pyenv

import (
	"context"
	"io"
	"os/exec"

	"devup/pkg/logging"
)

// Installer ensures a set of packages is present in the runtime's environment.
// The launcher treats installation as best-effort: the returned error is
// logged but never aborts bring-up.
type Installer interface {
	Install(ctx context.Context, packages []string) error
}

// For mocking in tests
var runInstall = func(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	// The launcher contract discards installer output; failures surface only
	// through the exit status.
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

// PipInstaller installs packages with `<python> -m pip install`.
// Versions are not pinned; whatever pip resolves is accepted.
type PipInstaller struct {
	Runtime Runtime
}

// NewPipInstaller creates an installer bound to a resolved runtime.
func NewPipInstaller(rt Runtime) *PipInstaller {
	return &PipInstaller{Runtime: rt}
}

// Install implements the Installer interface.
func (i *PipInstaller) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	args := append([]string{"-m", "pip", "install", "--quiet"}, packages...)
	logging.Debug("Installer", "Running %s %v", i.Runtime.Path, args)

	if err := runInstall(ctx, i.Runtime.Path, args); err != nil {
		return err
	}

	logging.Info("Installer", "Installed %d packages", len(packages))
	return nil
}
