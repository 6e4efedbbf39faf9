//go:build linux

package mount

import "syscall"

// detach force-detaches the mountpoint from the namespace without waiting
// for in-flight operations to clear.
func (u *Unmounter) detach(target string) error {
	return syscall.Unmount(target, syscall.MNT_FORCE|syscall.MNT_DETACH)
}
