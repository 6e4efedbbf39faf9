//go:build !linux

package mount

import "github.com/pkg/errors"

func (u *Unmounter) detach(target string) error {
	return errors.Errorf("detach of %s is not supported on this platform", target)
}
