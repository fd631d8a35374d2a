// Package lock guards ledger mutation with a workspace-wide advisory lock.
//
// The lock is a marker file holding the decimal pid of the holder. A marker
// whose pid is dead or unparseable is stale and is removed on the next check.
// Acquisition never blocks or retries; a live holder fails immediately with
// E_WORKSPACE_LOCKED.
package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/mentu/internal/apperr"
)

// Prober reports whether a process is alive. Alternate backends (OS file
// locks, leases) substitute here without touching callers.
type Prober interface {
	Alive(pid int) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(pid int) bool

// Alive calls f(pid).
func (f ProberFunc) Alive(pid int) bool { return f(pid) }

// Manager owns one lock marker.
type Manager struct {
	path   string
	pid    int
	prober Prober
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithProber replaces the process liveness probe.
func WithProber(p Prober) Option {
	return func(m *Manager) { m.prober = p }
}

// WithPID overrides the pid written on acquire.
func WithPID(pid int) Option {
	return func(m *Manager) { m.pid = pid }
}

// WithLogger sets the logger used for stale-lock and release diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New returns a Manager for the marker at path.
func New(path string, opts ...Option) *Manager {
	m := &Manager{
		path:   path,
		pid:    os.Getpid(),
		prober: ProcessProber{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the marker path.
func (m *Manager) Path() string {
	return m.path
}

// HolderPID returns the pid recorded in the marker. ok is false when the
// marker is absent or unparseable.
func (m *Manager) HolderPID() (pid int, ok bool) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// IsLocked reports whether a live process holds the lock. A stale marker is
// removed as a side effect.
func (m *Manager) IsLocked() bool {
	if _, err := os.Stat(m.path); err != nil {
		return false
	}
	pid, ok := m.HolderPID()
	if ok && m.prober.Alive(pid) {
		return true
	}
	m.logger.Info("removing stale lock", "path", m.path, "pid", pid)
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("stale lock removal failed", "path", m.path, "error", err)
	}
	return false
}

// Acquire writes this process's pid to the marker. It fails with
// E_WORKSPACE_LOCKED when a live process already holds it.
func (m *Manager) Acquire() error {
	if m.IsLocked() {
		return m.lockedError()
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Lost a race with another acquirer between the check and the create.
			return m.lockedError()
		}
		return fmt.Errorf("create lock: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(m.pid)); err != nil {
		f.Close()
		os.Remove(m.path)
		return fmt.Errorf("write lock: %w", err)
	}
	return f.Close()
}

// Release removes the marker. Errors are logged and swallowed.
func (m *Manager) Release() {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Debug("lock release failed", "path", m.path, "error", err)
	}
}

// WithLock runs fn while holding the lock and always releases it afterwards,
// including when fn panics.
func (m *Manager) WithLock(fn func() error) error {
	if err := m.Acquire(); err != nil {
		return err
	}
	defer m.Release()
	return fn()
}

func (m *Manager) lockedError() error {
	e := apperr.New(apperr.CodeWorkspaceLocked, "workspace is locked by another process")
	if pid, ok := m.HolderPID(); ok {
		e = e.With("pid", pid)
		e.Message = fmt.Sprintf("workspace is locked by another process (pid %d)", pid)
	}
	return e
}
