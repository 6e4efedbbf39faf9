// Package sweep implements the one-pass reclamation subcommand.
package sweep

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/integrii/flaggy"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/homereap/homereap/internal/cli"
	"github.com/homereap/homereap/internal/config"
	"github.com/homereap/homereap/internal/detach"
	"github.com/homereap/homereap/internal/logger"
	"github.com/homereap/homereap/internal/mount"
	"github.com/homereap/homereap/internal/owner"
	"github.com/homereap/homereap/internal/reaper"
	"github.com/homereap/homereap/internal/reclaim"
	"github.com/homereap/homereap/internal/session"
	"github.com/homereap/homereap/internal/zfs"
)

// detachedSentinel marks the inner, already-backgrounded invocation. The
// outer invocation re-launches itself with this token appended and exits.
const detachedSentinel = "detached"

const sweepHelpText = `Examples:
  # Run one reclamation pass in the background (normal cron/timer posture)
  homereap sweep

  # Run in the foreground with output on stderr, for diagnosis
  homereap sweep --foreground

  # Override the settle interval between escalation tiers
  homereap sweep --foreground --settle 10s`

// NewCommand builds the sweep subcommand.
func NewCommand() cli.Command {
	s := &sweepCmd{}
	s.cmd = flaggy.NewSubcommand("sweep")
	s.cmd.Description = "Run one pass reclaiming encrypted home volumes of logged-out users"
	s.cmd.AdditionalHelpAppend = sweepHelpText
	s.cmd.String(&s.configPath, "c", "config", "Path to the YAML configuration file.")
	s.cmd.Bool(&s.foreground, "f", "foreground", "Run in the foreground instead of detaching into a background logged child.")
	s.cmd.String(&s.settle, "s", "settle", "Settle interval between escalation tiers (e.g. 5s, 30s). Overrides the configuration file.")
	s.cmd.AddPositionalValue(&s.mode, "mode", 1, false, "Internal re-entry sentinel; do not pass by hand.")
	return s
}

type sweepCmd struct {
	cmd        *flaggy.Subcommand
	configPath string
	foreground bool
	settle     string
	mode       string
}

func (s *sweepCmd) Flaggy() *flaggy.Subcommand {
	return s.cmd
}

func (s *sweepCmd) Run(log *zap.Logger, opts *cli.GlobalOptions) error {
	log.Info("Checking user is root...")
	root, err := cli.IsRunningAsRoot()
	if err != nil {
		return err
	} else if !root {
		return cli.ErrMustRunAsRoot
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if s.settle != "" {
		settle, err := time.ParseDuration(s.settle)
		if err != nil {
			return errors.Wrapf(err, "invalid settle interval %q", s.settle)
		}
		cfg.SettleInterval = settle
	}

	if s.mode != detachedSentinel && !s.foreground {
		return s.relaunchDetached(log, cfg)
	}

	return s.runPass(log, cfg)
}

// relaunchDetached hands the pass to a background child whose combined
// output lands in a fresh timestamped log file, then returns immediately.
func (s *sweepCmd) relaunchDetached(log *zap.Logger, cfg config.Config) error {
	if err := os.MkdirAll(cfg.LogDir, 0o750); err != nil {
		return errors.Wrapf(err, "creating log directory %s", cfg.LogDir)
	}
	logPath := logger.LogFileName(cfg.LogDir, time.Now())

	pid, err := detach.Relaunch(logPath, detachedSentinel)
	if err != nil {
		return errors.Wrap(err, "relaunching in background")
	}
	log.Info("Sweep continuing in background",
		zap.Int("pid", pid),
		zap.String("log", logPath))
	fmt.Println(logPath)
	return nil
}

func (s *sweepCmd) runPass(log *zap.Logger, cfg config.Config) error {
	runID := uuid.NewString()
	log.Info("Starting sweep pass",
		zap.String("runID", runID),
		zap.String("namespace", cfg.HomeNamespace),
		zap.Duration("settle", cfg.SettleInterval))

	operator, err := owner.OperatorIdentities()
	if err != nil {
		return err
	}
	log.Info("Operator identities excluded from reclamation", zap.Strings("operator", operator))

	uidFloor := cfg.SystemUIDFloor
	if uidFloor == 0 {
		uidFloor = owner.SystemUIDFloor(log)
	}

	datasets := zfs.NewManager(log)
	unmounter := mount.New(log)
	rp := reaper.New(log)

	coordinator := &reclaim.Coordinator{
		Selector: &reclaim.Selector{
			Inspector: inspectorAdapter{z: datasets, paths: unmounter},
			Sessions:  session.NewRegistry(log),
			Owners:    owner.NewResolver(log, uidFloor),
			Operator:  operator,
			Namespace: cfg.HomeNamespace,
			MountRoot: cfg.HomeMountRoot,
			Logger:    log,
		},
		Engine: &reclaim.Engine{
			Inspector: inspectorAdapter{z: datasets, paths: unmounter},
			Unmounter: unmounterAdapter{datasets: datasets, paths: unmounter},
			Signaler:  signalerAdapter{rp},
			Settle:    cfg.SettleInterval,
			Logger:    log,
		},
		Reporter: rp,
		Keys:     datasets,
		Logger:   log,
	}

	ctx := logger.NewContext(context.Background(), log)
	coordinator.Run(ctx)

	// Failures are reported per candidate in the log; a completed pass
	// always exits cleanly.
	return nil
}
