// Package zfs drives the zfs(8) command line for dataset enumeration,
// property lookup, unmounting, and encryption-key unload.
package zfs

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	cmdutil "github.com/homereap/homereap/internal/util/cmd"
)

const zfsBin = "zfs"

// MountedDataset pairs a dataset name with its current mountpoint.
type MountedDataset struct {
	Dataset    string
	Mountpoint string
}

// Manager runs zfs commands against the live pool.
type Manager struct {
	runner cmdutil.Runner
	log    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r cmdutil.Runner) Option {
	return func(m *Manager) {
		m.runner = r
	}
}

// NewManager creates a Manager.
func NewManager(log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		runner: cmdutil.NewRunner(),
		log:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListMounted enumerates the currently mounted datasets under namespace,
// excluding the namespace root itself, in zfs list order.
func (m *Manager) ListMounted(ctx context.Context, namespace string) ([]MountedDataset, error) {
	out, err := m.runner.Run(ctx, zfsBin, "list", "-H", "-o", "name,mountpoint,mounted", "-r", namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "listing datasets under %s", namespace)
	}

	var mounted []MountedDataset
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			m.log.Warn("Skipping unparseable zfs list line", zap.String("line", line))
			continue
		}
		name, mountpoint, state := fields[0], fields[1], fields[2]
		if name == namespace || state != "yes" {
			continue
		}
		mounted = append(mounted, MountedDataset{Dataset: name, Mountpoint: mountpoint})
	}
	return mounted, nil
}

// Property returns the value of a single dataset property.
func (m *Manager) Property(ctx context.Context, dataset, name string) (string, error) {
	out, err := m.runner.Run(ctx, zfsBin, "get", "-H", "-o", "value", name, dataset)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s of %s", name, dataset)
	}
	return strings.TrimSpace(string(out)), nil
}

// Mountpoint returns the dataset's mountpoint path, or "" when the dataset
// has no usable mountpoint (none, legacy, or unset).
func (m *Manager) Mountpoint(ctx context.Context, dataset string) (string, error) {
	value, err := m.Property(ctx, dataset, "mountpoint")
	if err != nil {
		return "", err
	}
	switch value {
	case "none", "legacy", "-", "":
		return "", nil
	}
	return value, nil
}

// Encrypted reports whether the dataset has encryption enabled.
func (m *Manager) Encrypted(ctx context.Context, dataset string) (bool, error) {
	value, err := m.Property(ctx, dataset, "encryption")
	if err != nil {
		return false, err
	}
	return value != "off" && value != "-" && value != "", nil
}

// IsMounted reports whether the dataset is currently mounted.
func (m *Manager) IsMounted(ctx context.Context, dataset string) (bool, error) {
	value, err := m.Property(ctx, dataset, "mounted")
	if err != nil {
		return false, err
	}
	return value == "yes", nil
}

// Unmount performs a native zfs unmount of the dataset.
func (m *Manager) Unmount(ctx context.Context, dataset string, force bool) error {
	args := []string{"unmount"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, dataset)
	if _, err := m.runner.Run(ctx, zfsBin, args...); err != nil {
		return errors.Wrapf(err, "zfs unmount %s", dataset)
	}
	return nil
}

// UnloadKey removes the dataset's encryption key from memory, surfacing the
// keystatus before and after for the run log.
func (m *Manager) UnloadKey(ctx context.Context, dataset string) error {
	if status, err := m.Property(ctx, dataset, "keystatus"); err == nil {
		m.log.Info("Key status before unload", zap.String("dataset", dataset), zap.String("keystatus", status))
	}

	if _, err := m.runner.Run(ctx, zfsBin, "unload-key", dataset); err != nil {
		return errors.Wrapf(err, "zfs unload-key %s", dataset)
	}

	if status, err := m.Property(ctx, dataset, "keystatus"); err == nil {
		m.log.Info("Key status after unload", zap.String("dataset", dataset), zap.String("keystatus", status))
	}
	return nil
}
