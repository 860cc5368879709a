package python

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feedback-insight/backend/pkg/logger"
)

// Runtime is the Python interpreter discovered at startup. It is probed
// once and cached; all collaborator scripts run through it.
type Runtime struct {
	command string
	version string
}

// Discover probes the candidate commands in order with a version flag
// and returns the first interpreter that answers. A nil Runtime with
// ok=false means no interpreter is installed; upload and analyze
// endpoints stay registered but report unavailability.
func Discover(candidates []string) (*Runtime, bool) {
	for _, candidate := range candidates {
		version, err := probe(candidate)
		if err != nil {
			logger.Debug("Python candidate not usable",
				zap.String("command", candidate),
				zap.Error(err),
			)
			continue
		}
		logger.Info("Python runtime discovered",
			zap.String("command", candidate),
			zap.String("version", version),
		)
		return &Runtime{command: candidate, version: version}, true
	}

	logger.Warn("No Python runtime found", zap.Strings("candidates", candidates))
	return nil, false
}

func probe(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, command, "--version").CombinedOutput()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Runtime) Command() string {
	return r.command
}

func (r *Runtime) Version() string {
	return r.version
}
