package reclaim

import (
	"context"

	"github.com/pkg/errors"
)

type fakeInspector struct {
	volumes     []MountedVolume
	mountpoints map[string]string
	encrypted   map[string]bool
	mounted     map[string]bool
	listErr     error
}

func (f *fakeInspector) ListMounted(ctx context.Context, namespace string) ([]MountedVolume, error) {
	return f.volumes, f.listErr
}

func (f *fakeInspector) Mountpoint(ctx context.Context, dataset string) (string, error) {
	return f.mountpoints[dataset], nil
}

func (f *fakeInspector) Encrypted(ctx context.Context, dataset string) (bool, error) {
	return f.encrypted[dataset], nil
}

func (f *fakeInspector) IsMounted(ctx context.Context, dataset string) (bool, error) {
	return f.mounted[dataset], nil
}

type fakeSessions struct {
	users map[string]struct{}
	err   error
}

func (f *fakeSessions) LoggedIn(ctx context.Context) (map[string]struct{}, error) {
	return f.users, f.err
}

type fakeOwners struct {
	owners map[string]string
}

func (f *fakeOwners) Owner(mountpoint string) (string, error) {
	return f.owners[mountpoint], nil
}

type unmountCall struct {
	dataset string
	target  string
	force   bool
	opts    UnmountOptions
}

// fakeUnmounter records every attempt and flips the inspector's mount state
// when succeedWhen approves a call. events, when shared with a fakeSignaler,
// captures the interleaving for ordering assertions.
type fakeUnmounter struct {
	insp        *fakeInspector
	dataset     string
	calls       []unmountCall
	succeedWhen func(call unmountCall, index int) bool
	events      *[]string
}

func (f *fakeUnmounter) note(call unmountCall) error {
	f.calls = append(f.calls, call)
	if f.events != nil {
		*f.events = append(*f.events, "unmount")
	}
	if f.succeedWhen != nil && f.succeedWhen(call, len(f.calls)) {
		f.insp.mounted[f.dataset] = false
		return nil
	}
	return errors.New("target is busy")
}

func (f *fakeUnmounter) UnmountDataset(ctx context.Context, dataset string, force bool) error {
	return f.note(unmountCall{dataset: dataset, force: force})
}

func (f *fakeUnmounter) UnmountPath(ctx context.Context, target string, opts UnmountOptions) error {
	return f.note(unmountCall{target: target, opts: opts})
}

type signalCall struct {
	path     string
	scope    Scope
	severity Severity
}

// fakeSignaler records signals and, when releaseOn matches the delivered
// severity, makes every later unmount attempt succeed, simulating holders
// exiting and releasing their handles.
type fakeSignaler struct {
	calls     []signalCall
	unmounter *fakeUnmounter
	releaseOn Severity
	events    *[]string
}

func (f *fakeSignaler) Signal(ctx context.Context, path string, scope Scope, severity Severity) error {
	f.calls = append(f.calls, signalCall{path: path, scope: scope, severity: severity})
	if f.events != nil {
		*f.events = append(*f.events, "signal:"+string(severity))
	}
	if f.unmounter != nil && f.releaseOn == severity {
		f.unmounter.succeedWhen = func(unmountCall, int) bool { return true }
	}
	return nil
}

func (f *fakeSignaler) terminates() int {
	n := 0
	for _, c := range f.calls {
		if c.severity == SeverityTerminate {
			n++
		}
	}
	return n
}

func (f *fakeSignaler) kills() int {
	n := 0
	for _, c := range f.calls {
		if c.severity == SeverityKill {
			n++
		}
	}
	return n
}

type fakeReporter struct {
	holderPaths   []string
	ownedAccounts []string
}

func (f *fakeReporter) ReportHolders(ctx context.Context, path string) {
	f.holderPaths = append(f.holderPaths, path)
}

func (f *fakeReporter) ReportOwnedBy(ctx context.Context, username string) {
	f.ownedAccounts = append(f.ownedAccounts, username)
}

type fakeKeys struct {
	unloaded []string
	errFor   map[string]error
}

func (f *fakeKeys) UnloadKey(ctx context.Context, dataset string) error {
	f.unloaded = append(f.unloaded, dataset)
	return f.errFor[dataset]
}
