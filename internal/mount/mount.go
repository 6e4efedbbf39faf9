// Package mount wraps the system umount(8) command and the live mount table.
package mount

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	mountutils "k8s.io/mount-utils"

	cmdutil "github.com/homereap/homereap/internal/util/cmd"
)

const umountBin = "umount"

// Options select the umount variant to run.
type Options struct {
	// Recursive unmounts every mount below the target as well.
	Recursive bool
	// AllTargets unmounts all mountpoints of the same filesystem.
	AllTargets bool
	// Force unmounts even when the filesystem is busy or unreachable.
	Force bool
	// Lazy detaches the mountpoint from the namespace immediately and
	// cleans up once references drop.
	Lazy bool
}

// Unmounter runs umount against mountpoint paths.
type Unmounter struct {
	runner  cmdutil.Runner
	mounter mountutils.Interface
	log     *zap.Logger
}

// Option configures an Unmounter.
type Option func(*Unmounter)

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r cmdutil.Runner) Option {
	return func(u *Unmounter) {
		u.runner = r
	}
}

// New creates an Unmounter.
func New(log *zap.Logger, opts ...Option) *Unmounter {
	u := &Unmounter{
		runner:  cmdutil.NewRunner(),
		mounter: mountutils.New(""),
		log:     log,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Args returns the umount argument list for the given options and target.
func Args(target string, o Options) []string {
	var args []string
	if o.Recursive {
		args = append(args, "-R")
	}
	if o.AllTargets {
		args = append(args, "-A")
	}
	if o.Force {
		args = append(args, "-f")
	}
	if o.Lazy {
		args = append(args, "-l")
	}
	return append(args, target)
}

// Unmount invokes umount on the target with the requested options. When the
// umount binary itself cannot be executed and a force+lazy detach was
// requested, it falls back to the equivalent unmount syscall so the terminal
// ladder tier still makes progress on a degraded system.
func (u *Unmounter) Unmount(ctx context.Context, target string, o Options) error {
	_, err := u.runner.Run(ctx, umountBin, Args(target, o)...)
	if err == nil {
		return nil
	}
	if o.Force && o.Lazy && !o.Recursive && cmdutil.ExitCode(err) == -1 {
		u.log.Warn("umount did not execute, falling back to detach syscall",
			zap.String("target", target), zap.Error(err))
		if derr := u.detach(target); derr == nil {
			return nil
		}
	}
	return errors.Wrapf(err, "umount %s", target)
}

// IsMountPoint reports whether path is currently a mountpoint.
func (u *Unmounter) IsMountPoint(path string) (bool, error) {
	return u.mounter.IsMountPoint(path)
}
