package orchestrator

import (
	"errors"
	"syscall"
)

// ProcessChecker reports whether a pid refers to a running process.
type ProcessChecker interface {
	Alive(pid int) bool
}

// SignalChecker probes with signal 0. A process owned by another user
// (EPERM) still counts as alive.
type SignalChecker struct{}

// Alive implements ProcessChecker.
func (SignalChecker) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
