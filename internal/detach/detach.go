// Package detach re-launches the current invocation as a background child
// with its combined output redirected into a fresh log file. This keeps the
// cron/timer foreground invocation instant while the pass runs detached.
package detach

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// Relaunch starts the current executable again with the same arguments plus
// the given sentinel token appended, detached from the invoking session,
// writing stdout and stderr to logPath. It returns the child pid.
func Relaunch(logPath, sentinel string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "resolving own executable")
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, errors.Wrapf(err, "opening log file %s", logPath)
	}
	defer logFile.Close()

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, errors.Wrap(err, "opening /dev/null")
	}
	defer devNull.Close()

	args := append(append([]string{}, os.Args[1:]...), sentinel)
	child := exec.Command(exe, args...)
	child.Stdin = devNull
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = detachedAttrs()

	if err := child.Start(); err != nil {
		return 0, errors.Wrap(err, "starting detached child")
	}
	pid := child.Process.Pid
	if err := child.Process.Release(); err != nil {
		return pid, errors.Wrap(err, "releasing detached child")
	}
	return pid, nil
}
