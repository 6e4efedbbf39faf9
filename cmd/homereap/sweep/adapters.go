package sweep

import (
	"context"

	"github.com/homereap/homereap/internal/mount"
	"github.com/homereap/homereap/internal/reaper"
	"github.com/homereap/homereap/internal/reclaim"
	"github.com/homereap/homereap/internal/zfs"
)

// mountChecker is the slice of the mount package the inspector needs.
type mountChecker interface {
	IsMountPoint(path string) (bool, error)
}

// inspectorAdapter exposes the zfs manager through the narrow interface the
// reclaim core consumes, cross-checking the live mount table where the
// dataset property alone can mislead.
type inspectorAdapter struct {
	z     *zfs.Manager
	paths mountChecker
}

func (a inspectorAdapter) ListMounted(ctx context.Context, namespace string) ([]reclaim.MountedVolume, error) {
	mounted, err := a.z.ListMounted(ctx, namespace)
	if err != nil {
		return nil, err
	}
	volumes := make([]reclaim.MountedVolume, 0, len(mounted))
	for _, m := range mounted {
		volumes = append(volumes, reclaim.MountedVolume{Dataset: m.Dataset, Mountpoint: m.Mountpoint})
	}
	return volumes, nil
}

func (a inspectorAdapter) Mountpoint(ctx context.Context, dataset string) (string, error) {
	return a.z.Mountpoint(ctx, dataset)
}

func (a inspectorAdapter) Encrypted(ctx context.Context, dataset string) (bool, error) {
	return a.z.Encrypted(ctx, dataset)
}

func (a inspectorAdapter) IsMounted(ctx context.Context, dataset string) (bool, error) {
	mounted, err := a.z.IsMounted(ctx, dataset)
	if err != nil || mounted {
		return mounted, err
	}
	// A lazily detached mountpoint can remain in the namespace after the
	// dataset property already reads unmounted; trust the mount table over
	// the property before declaring success.
	mountpoint, err := a.z.Mountpoint(ctx, dataset)
	if err != nil || mountpoint == "" {
		return false, nil
	}
	if still, err := a.paths.IsMountPoint(mountpoint); err == nil && still {
		return true, nil
	}
	return false, nil
}

// unmounterAdapter routes native volume unmounts to zfs and filesystem
// unmounts to umount.
type unmounterAdapter struct {
	datasets *zfs.Manager
	paths    *mount.Unmounter
}

func (a unmounterAdapter) UnmountDataset(ctx context.Context, dataset string, force bool) error {
	return a.datasets.Unmount(ctx, dataset, force)
}

func (a unmounterAdapter) UnmountPath(ctx context.Context, target string, opts reclaim.UnmountOptions) error {
	return a.paths.Unmount(ctx, target, mount.Options{
		Recursive:  opts.Recursive,
		AllTargets: opts.AllTargets,
		Force:      opts.Force,
		Lazy:       opts.Lazy,
	})
}

// signalerAdapter maps the core's scope/severity enums onto the reaper's.
type signalerAdapter struct {
	r *reaper.Reaper
}

func (a signalerAdapter) Signal(ctx context.Context, path string, scope reclaim.Scope, severity reclaim.Severity) error {
	reaperScope := reaper.ScopeAny
	if scope == reclaim.ScopeWrite {
		reaperScope = reaper.ScopeWrite
	}
	reaperSeverity := reaper.SeverityTerminate
	if severity == reclaim.SeverityKill {
		reaperSeverity = reaper.SeverityKill
	}
	return a.r.Signal(ctx, path, reaperScope, reaperSeverity)
}
