package reclaim

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Engine drives one candidate's mountpoint from mounted to unmounted using
// the minimum necessary severity. Unmount failure is a reported terminal
// state, never an error: the engine only escalates or gives up.
type Engine struct {
	Inspector MountInspector
	Unmounter Unmounter
	Signaler  ProcessSignaler
	// Settle is the pause after each signal tier, giving signalled
	// processes time to exit and release handles before unmounting is
	// re-attempted.
	Settle time.Duration
	Logger *zap.Logger

	// Sleep substitutes the settle pause in tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

type ladderStep struct {
	name string
	run  func(ctx context.Context) error
}

// Reclaim runs the escalation ladder for one candidate and reports the final
// mount state. The ladder is fixed and monotone in severity: every unmount
// variant is exhausted before processes are signalled, graceful termination
// precedes kill, and the lazy detach runs only as the last resort.
func (e *Engine) Reclaim(ctx context.Context, c Candidate) bool {
	log := e.Logger.With(
		zap.String("dataset", c.Dataset),
		zap.String("mountpoint", c.Mountpoint),
		zap.String("owner", c.Owner),
	)

	// Already unmounted means nothing to do; the ladder is idempotent.
	if mounted, err := e.Inspector.IsMounted(ctx, c.Dataset); err == nil && !mounted {
		log.Info("Volume already unmounted")
		return true
	}

	if e.tryAllTheWays(ctx, log, c) {
		return true
	}

	log.Info("Plain and forced unmounts failed, terminating write holders")
	e.settle()
	if err := e.Signaler.Signal(ctx, c.Mountpoint, ScopeWrite, SeverityTerminate); err != nil {
		log.Warn("Terminate signal failed", zap.Error(err))
	}
	if e.tryAllTheWays(ctx, log, c) {
		return true
	}

	log.Info("Unmounts still failing, killing all holders")
	e.settle()
	if err := e.Signaler.Signal(ctx, c.Mountpoint, ScopeAny, SeverityKill); err != nil {
		log.Warn("Kill signal failed", zap.Error(err))
	}
	if e.tryAllTheWays(ctx, log, c) {
		return true
	}

	// Last resort: detach the mountpoint from the namespace even though
	// busy; it is reclaimed once references drop. If that invocation
	// itself does not execute, retry without recursion.
	log.Info("Escalation exhausted, detaching lazily")
	if err := e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Force: true, Lazy: true, Recursive: true}); err != nil {
		log.Warn("Lazy recursive detach failed", zap.Error(err))
		if err := e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Force: true, Lazy: true}); err != nil {
			log.Warn("Lazy detach failed", zap.Error(err))
		}
	}

	mounted, err := e.Inspector.IsMounted(ctx, c.Dataset)
	if err != nil {
		log.Warn("Could not read final mount state", zap.Error(err))
		return false
	}
	if mounted {
		log.Warn("Volume remains mounted after full escalation")
	} else {
		log.Info("Volume unmounted")
	}
	return !mounted
}

// tryAllTheWays attempts every unmount variant in order, from the native
// volume unmount through forced filesystem unmounts, re-checking the mount
// state after each attempt and stopping at the first success.
func (e *Engine) tryAllTheWays(ctx context.Context, log *zap.Logger, c Candidate) bool {
	steps := []ladderStep{
		{"zfs unmount", func(ctx context.Context) error {
			return e.Unmounter.UnmountDataset(ctx, c.Dataset, false)
		}},
		{"umount recursive", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Recursive: true})
		}},
		{"umount recursive all-targets", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Recursive: true, AllTargets: true})
		}},
		{"zfs unmount forced", func(ctx context.Context) error {
			return e.Unmounter.UnmountDataset(ctx, c.Dataset, true)
		}},
		{"umount recursive forced", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Recursive: true, Force: true})
		}},
		{"umount recursive all-targets forced", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Recursive: true, AllTargets: true, Force: true})
		}},
		{"umount", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{})
		}},
		{"umount forced", func(ctx context.Context) error {
			return e.Unmounter.UnmountPath(ctx, c.Mountpoint, UnmountOptions{Force: true})
		}},
	}

	var stepErrs error
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			// An individual failed attempt never aborts the ladder.
			log.Debug("Unmount attempt failed", zap.String("step", step.name), zap.Error(err))
			stepErrs = multierr.Append(stepErrs, err)
		}

		mounted, err := e.Inspector.IsMounted(ctx, c.Dataset)
		if err != nil {
			// Unknown state is treated as still mounted.
			log.Warn("Could not read mount state", zap.Error(err))
			continue
		}
		if !mounted {
			log.Info("Volume unmounted", zap.String("step", step.name))
			return true
		}
	}

	log.Info("All unmount variants left the volume mounted", zap.Error(stepErrs))
	return false
}

func (e *Engine) settle() {
	sleep := e.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(e.Settle)
}
