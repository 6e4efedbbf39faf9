//go:build !linux

package detach

import "syscall"

func detachedAttrs() *syscall.SysProcAttr {
	return nil
}
