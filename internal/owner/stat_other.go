//go:build !linux

package owner

import (
	"os"

	"github.com/pkg/errors"
)

func statUID(info os.FileInfo) (uint32, error) {
	return 0, errors.Errorf("owner resolution for %s is not supported on this platform", info.Name())
}
