package owner

import (
	"github.com/go-ini/ini"
	"go.uber.org/zap"
)

const (
	loginDefsPath = "/etc/login.defs"

	// DefaultSystemUIDFloor is the conventional first regular-account uid,
	// used when /etc/login.defs is absent or unreadable.
	DefaultSystemUIDFloor = 1000
)

// SystemUIDFloor reads UID_MIN from /etc/login.defs, falling back to the
// conventional default when the file or key is missing.
func SystemUIDFloor(log *zap.Logger) int {
	return systemUIDFloor(log, loginDefsPath)
}

func systemUIDFloor(log *zap.Logger, path string) int {
	cfg, err := ini.LoadSources(ini.LoadOptions{KeyValueDelimiters: " \t"}, path)
	if err != nil {
		log.Debug("Could not read login.defs, using default UID floor",
			zap.String("path", path), zap.Error(err))
		return DefaultSystemUIDFloor
	}
	floor, err := cfg.Section("").Key("UID_MIN").Int()
	if err != nil || floor <= 0 {
		return DefaultSystemUIDFloor
	}
	return floor
}
