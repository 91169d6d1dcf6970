// Package hostproc spawns and supervises a backend subprocess on behalf
// of a frontend that was asked to own the core itself instead of
// connecting to an already-running backend.
package hostproc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// BackendSpec describes how to launch a backend subprocess.
type BackendSpec struct {
	// BinaryPath is the retrohost executable to re-exec; empty means
	// re-exec the currently running binary (os.Executable()).
	BinaryPath string
	CorePath   string
	Address    string
	LogLevel   string
}

// Backend supervises one spawned backend subprocess.
type Backend struct {
	log *slog.Logger
	cmd *exec.Cmd
}

// Spawn starts a backend subprocess with `backend --core <path> --address
// <addr>` and streams its stdout/stderr through the parent's, the way a
// supervised child process is normally wired up.
func Spawn(ctx context.Context, log *slog.Logger, spec BackendSpec) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	bin := spec.BinaryPath
	if bin == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("hostproc: resolve own executable: %w", err)
		}
		bin = self
	}

	args := []string{"backend", "--core", spec.CorePath, "--address", spec.Address}
	if spec.LogLevel != "" {
		args = append(args, "--log-level", spec.LogLevel)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("hostproc: start backend: %w", err)
	}
	log.Info("spawned backend process", "pid", cmd.Process.Pid, "core", spec.CorePath, "address", spec.Address)

	return &Backend{log: log, cmd: cmd}, nil
}

// Wait blocks until the backend process exits and returns its error, if
// any (including a non-zero exit code as *exec.ExitError).
func (b *Backend) Wait() error {
	err := b.cmd.Wait()
	if err != nil {
		b.log.Warn("backend process exited", "err", err)
	} else {
		b.log.Info("backend process exited cleanly")
	}
	return err
}

// PID returns the spawned process's id, for logging and diagnostics.
func (b *Backend) PID() int {
	if b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}
