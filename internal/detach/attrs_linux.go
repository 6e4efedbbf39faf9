//go:build linux

package detach

import "syscall"

// detachedAttrs puts the child in its own session so it survives the parent
// and its controlling terminal.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
