//go:build !unix

package lock

import "os"

// ProcessProber probes liveness by looking the process up.
type ProcessProber struct{}

// Alive reports whether pid names a running process.
func (ProcessProber) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}
