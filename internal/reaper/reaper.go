// Package reaper discovers and signals processes holding a mountpoint open.
//
// Holder discovery runs two independent mechanisms, a /proc scan and lsof,
// because neither is fully reliable on its own; both are diagnostic and
// never fail a pass. Signalling goes through fuser, which matches processes
// against the mounted filesystem itself.
package reaper

import (
	"context"
	"os/user"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	cmdutil "github.com/homereap/homereap/internal/util/cmd"
)

const (
	fuserBin = "fuser"
	lsofBin  = "lsof"

	// fuser exits 1 when no process matched; for signalling that means
	// nothing is holding the path, which is success.
	fuserNoMatchExit = 1
)

// Scope selects which holders a signal applies to.
type Scope string

const (
	// ScopeWrite limits signalling to processes with write access.
	ScopeWrite Scope = "write"
	// ScopeAny signals every process with any access.
	ScopeAny Scope = "any"
)

// Severity selects the signal to deliver.
type Severity string

const (
	// SeverityTerminate requests a graceful exit (SIGTERM).
	SeverityTerminate Severity = "terminate"
	// SeverityKill forces an immediate exit (SIGKILL).
	SeverityKill Severity = "kill"
)

// Holder describes one process found holding a path open. Write is set
// when the holding file descriptor was opened with write access; a cwd
// hold is never a write hold.
type Holder struct {
	PID    int
	Comm   string
	Target string
	Write  bool
}

// Reaper enumerates and signals mountpoint holders.
type Reaper struct {
	runner   cmdutil.Runner
	procRoot string
	log      *zap.Logger
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r cmdutil.Runner) Option {
	return func(rp *Reaper) {
		rp.runner = r
	}
}

// WithProcRoot points the /proc scan at an alternate root, used by tests.
func WithProcRoot(root string) Option {
	return func(rp *Reaper) {
		rp.procRoot = root
	}
}

// New creates a Reaper.
func New(log *zap.Logger, opts ...Option) *Reaper {
	rp := &Reaper{
		runner:   cmdutil.NewRunner(),
		procRoot: procfs.DefaultMountPoint,
		log:      log,
	}
	for _, opt := range opts {
		opt(rp)
	}
	return rp
}

// SignalArgs returns the fuser argument list for the given path, scope, and
// severity.
func SignalArgs(path string, scope Scope, severity Severity) []string {
	args := []string{"-k"}
	if severity == SeverityKill {
		args = append(args, "-KILL")
	} else {
		args = append(args, "-TERM")
	}
	if scope == ScopeWrite {
		args = append(args, "-w")
	}
	return append(args, "-M", "-m", path)
}

// Signal sends the requested signal to processes holding the mounted
// filesystem at path. An empty match set is success, not an error.
func (rp *Reaper) Signal(ctx context.Context, path string, scope Scope, severity Severity) error {
	rp.log.Info("Signalling mountpoint holders",
		zap.String("mountpoint", path),
		zap.String("scope", string(scope)),
		zap.String("severity", string(severity)))

	_, err := rp.runner.Run(ctx, fuserBin, SignalArgs(path, scope, severity)...)
	if err != nil {
		if cmdutil.ExitCode(err) == fuserNoMatchExit {
			rp.log.Info("No processes matched", zap.String("mountpoint", path))
			return nil
		}
		return err
	}
	return nil
}

// ReportHolders logs the processes currently holding path open, using the
// /proc scan and lsof independently. Both are best-effort.
func (rp *Reaper) ReportHolders(ctx context.Context, path string) {
	holders, err := rp.procHolders(path)
	if err != nil {
		rp.log.Warn("Could not scan /proc for holders", zap.String("path", path), zap.Error(err))
	} else if len(holders) == 0 {
		rp.log.Info("No holders found in /proc scan", zap.String("path", path))
	}
	for _, h := range holders {
		rp.log.Info("Holder (proc scan)",
			zap.Int("pid", h.PID),
			zap.String("comm", h.Comm),
			zap.String("target", h.Target),
			zap.Bool("write", h.Write))
	}

	out, err := rp.runner.Run(ctx, lsofBin, "+f", "--", path)
	if err != nil {
		rp.log.Debug("lsof holder listing unavailable", zap.String("path", path), zap.Error(err))
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			rp.log.Info("Holder (lsof)", zap.String("line", line))
		}
	}
}

// ReportOwnedBy logs the processes still running under the given account,
// for post-reclamation diagnosis. Best-effort.
func (rp *Reaper) ReportOwnedBy(ctx context.Context, username string) {
	u, err := user.Lookup(username)
	if err != nil {
		rp.log.Debug("Could not resolve account for process report",
			zap.String("account", username), zap.Error(err))
		return
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 64)
	if err != nil {
		rp.log.Debug("Unparseable uid for process report",
			zap.String("account", username), zap.String("uid", u.Uid))
		return
	}

	fs, err := procfs.NewFS(rp.procRoot)
	if err != nil {
		rp.log.Debug("Could not open proc filesystem", zap.Error(err))
		return
	}
	procs, err := fs.AllProcs()
	if err != nil {
		rp.log.Debug("Could not list processes", zap.Error(err))
		return
	}

	remaining := 0
	for _, p := range procs {
		status, err := p.NewStatus()
		if err != nil || status.UIDs[0] != uid {
			continue
		}
		comm, _ := p.Comm()
		rp.log.Info("Process still owned by account",
			zap.String("account", username),
			zap.Int("pid", p.PID),
			zap.String("comm", comm))
		remaining++
	}
	if remaining == 0 {
		rp.log.Info("No processes remain for account", zap.String("account", username))
	}
}

func (rp *Reaper) procHolders(path string) ([]Holder, error) {
	fs, err := procfs.NewFS(rp.procRoot)
	if err != nil {
		return nil, err
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}

	var holders []Holder
	for _, p := range procs {
		h, ok := holderFor(p, path)
		if !ok {
			continue
		}
		h.Comm, _ = p.Comm()
		holders = append(holders, h)
	}
	return holders, nil
}

// holderFor returns the first open path of p under root.
// Inaccessible entries are skipped; a vanished process is not a holder.
func holderFor(p procfs.Proc, root string) (Holder, bool) {
	if cwd, err := p.Cwd(); err == nil && PathUnder(cwd, root) {
		return Holder{PID: p.PID, Target: cwd}, true
	}
	targets, err := p.FileDescriptorTargets()
	if err != nil {
		return Holder{}, false
	}
	// fdinfo is read separately and may race with fd churn; treat the
	// flags as advisory and fall back to a non-write hold.
	var infos []procfs.ProcFDInfo
	if fi, err := p.FileDescriptorsInfo(); err == nil {
		infos = fi
	}
	for i, t := range targets {
		if !PathUnder(t, root) {
			continue
		}
		h := Holder{PID: p.PID, Target: t}
		if i < len(infos) {
			h.Write = WriteAccess(infos[i].Flags)
		}
		return h, true
	}
	return Holder{}, false
}

// WriteAccess reports whether an octal fdinfo flags field carries an
// access mode of O_WRONLY or O_RDWR.
func WriteAccess(flags string) bool {
	parsed, err := strconv.ParseUint(flags, 8, 64)
	if err != nil {
		return false
	}
	return parsed&0x3 != 0
}

// PathUnder reports whether path is root itself or lies below it.
func PathUnder(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}
