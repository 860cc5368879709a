package python

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/feedback-insight/backend/pkg/logger"
)

var (
	// ErrRuntimeUnavailable is returned when no interpreter answered the
	// startup probe.
	ErrRuntimeUnavailable = errors.New("python runtime not available: install Python 3 and restart the server")
)

// ScriptError reports a missing collaborator script.
type ScriptError struct {
	Path string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("analysis script not found at %s: check the python.* paths in the configuration", e.Path)
}

// RunError carries the full diagnostics of a collaborator that started
// but exited non-zero.
type RunError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("script exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("script exited with code %d: %s", e.ExitCode, e.Stdout)
}

// Runner invokes collaborator scripts as `<runtime> <script> <args...>`,
// buffering both output streams in memory until the process exits.
type Runner struct {
	runtime *Runtime
}

func NewRunner(runtime *Runtime) *Runner {
	return &Runner{runtime: runtime}
}

// Run executes a script and returns its captured stdout on exit 0. The
// command inherits ctx, so a dropped request terminates the child; no
// other timeout is imposed.
func (r *Runner) Run(ctx context.Context, script string, args ...string) (string, error) {
	if r.runtime == nil {
		return "", ErrRuntimeUnavailable
	}
	if _, err := os.Stat(script); err != nil {
		return "", &ScriptError{Path: script}
	}

	cmdArgs := append([]string{script}, args...)
	cmd := exec.CommandContext(ctx, r.runtime.Command(), cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	logger.Debug("Script finished",
		zap.String("script", script),
		zap.Strings("args", args),
		zap.Duration("duration", duration),
		zap.Error(err),
	)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &RunError{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return "", fmt.Errorf("failed to start %s: %w", script, err)
	}

	return stdout.String(), nil
}

// Available reports whether a runtime was discovered.
func (r *Runner) Available() bool {
	return r.runtime != nil
}

// RuntimeVersion returns the probed interpreter version, or empty when
// unavailable.
func (r *Runner) RuntimeVersion() string {
	if r.runtime == nil {
		return ""
	}
	return r.runtime.Version()
}
