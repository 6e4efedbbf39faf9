// Package config loads the optional homereap configuration file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultPath is consulted when no --config flag is given.
const DefaultPath = "/etc/homereap/config.yaml"

const (
	defaultHomeNamespace  = "rpool/USERDATA"
	defaultHomeMountRoot  = "/home"
	defaultSettleInterval = 5 * time.Second
	defaultLogDir         = "/var/log/homereap"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// HomeNamespace is the dataset subtree that holds per-user home volumes.
	HomeNamespace string
	// HomeMountRoot is the directory under which home volumes mount.
	// Volumes mounted outside it are never candidates for reclamation.
	HomeMountRoot string
	// SettleInterval is the pause between signal tiers, giving signalled
	// processes time to exit and release handles.
	SettleInterval time.Duration
	// LogDir receives the per-run log files of detached invocations.
	LogDir string
	// SystemUIDFloor overrides the UID_MIN read from /etc/login.defs when
	// non-zero. Mountpoints owned by uids below the floor never resolve to
	// a reclaimable account.
	SystemUIDFloor int
}

type fileConfig struct {
	HomeNamespace  string `yaml:"homeNamespace"`
	HomeMountRoot  string `yaml:"homeMountRoot"`
	SettleInterval string `yaml:"settleInterval"`
	LogDir         string `yaml:"logDir"`
	SystemUIDFloor int    `yaml:"systemUIDFloor"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HomeNamespace:  defaultHomeNamespace,
		HomeMountRoot:  defaultHomeMountRoot,
		SettleInterval: defaultSettleInterval,
		LogDir:         defaultLogDir,
	}
}

// Load reads the configuration at path, falling back to defaults for any
// field the file leaves out. An empty path means DefaultPath, and a missing
// file at DefaultPath is not an error; an explicitly requested file must
// exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %s", path)
	}

	cfg := Default()
	if raw.HomeNamespace != "" {
		cfg.HomeNamespace = raw.HomeNamespace
	}
	if raw.HomeMountRoot != "" {
		cfg.HomeMountRoot = raw.HomeMountRoot
	}
	if raw.LogDir != "" {
		cfg.LogDir = raw.LogDir
	}
	if raw.SystemUIDFloor != 0 {
		cfg.SystemUIDFloor = raw.SystemUIDFloor
	}
	if raw.SettleInterval != "" {
		settle, err := time.ParseDuration(raw.SettleInterval)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid settleInterval %q in %s", raw.SettleInterval, path)
		}
		if settle < 0 {
			return Config{}, errors.Errorf("settleInterval %q in %s is negative", raw.SettleInterval, path)
		}
		cfg.SettleInterval = settle
	}
	return cfg, nil
}
