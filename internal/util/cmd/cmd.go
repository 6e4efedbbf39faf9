// Package cmd provides the exec seam used by every package that shells out
// to host tooling. System packages take a Runner so tests can substitute a
// recording fake.
package cmd

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/homereap/homereap/internal/logger"
)

// Runner executes a host command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger.FromContext(ctx).Debug("Running command",
		zap.String("command", name),
		zap.Strings("args", args))
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, errors.Wrapf(err, "running %s: %s", name, msg)
		}
		return out, errors.Wrapf(err, "running %s", name)
	}
	return out, nil
}

// ExitCode extracts the exit status from a Runner error. It returns -1 when
// the error does not carry an exit status (command not found, context
// cancelled).
func ExitCode(err error) int {
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

// exec.ExitError satisfies the ExitCode probe above.
var _ interface{ ExitCode() int } = (*exec.ExitError)(nil)
