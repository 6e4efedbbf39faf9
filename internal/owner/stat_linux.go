//go:build linux

package owner

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func statUID(info os.FileInfo) (uint32, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, errors.Errorf("no uid in stat result for %s", info.Name())
	}
	return stat.Uid, nil
}
