//go:build unix

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ProcessProber probes liveness with kill(pid, 0). EPERM means the process
// exists but belongs to someone else, so it counts as alive.
type ProcessProber struct{}

// Alive reports whether pid names a running process.
func (ProcessProber) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
