// Package workspace ties the core packages to a directory on disk: it finds
// and initializes the .mentu directory, loads its configuration and applies
// operations under the workspace lock.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/genesis"
	"github.com/roach88/mentu/internal/ledger"
	"github.com/roach88/mentu/internal/lock"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/validate"
)

// File layout inside a workspace root.
const (
	DirName    = ".mentu"
	ConfigFile = "config.yaml"
	LedgerFile = "ledger.jsonl"
	LockFile   = ".lock"
)

// Workspace is an opened .mentu directory.
type Workspace struct {
	Root   string
	Config *Config

	logger *slog.Logger
	prober lock.Prober
	now    func() time.Time
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger used for side effects.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithProber overrides the lock liveness probe.
func WithProber(p lock.Prober) Option {
	return func(w *Workspace) { w.prober = p }
}

// WithClock overrides the time source used to stamp operations.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// Find walks up from start looking for a directory containing .mentu and
// returns it.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		if isDir(filepath.Join(dir, DirName)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", apperr.New(apperr.CodeNoWorkspace, `No .mentu/ found. Run "mentu init" first.`)
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Open finds the workspace containing start and loads its configuration.
func Open(start string, opts ...Option) (*Workspace, error) {
	root, err := Find(start)
	if err != nil {
		return nil, err
	}
	w := newWorkspace(root, opts)
	cfg, err := LoadConfig(w.ConfigPath())
	if err != nil {
		return nil, err
	}
	if cfg.Workspace == "" {
		cfg.Workspace = filepath.Base(root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", w.ConfigPath(), err)
	}
	w.Config = cfg
	return w, nil
}

func newWorkspace(root string, opts []Option) *Workspace {
	w := &Workspace{
		Root:   root,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the .mentu directory.
func (w *Workspace) Dir() string { return filepath.Join(w.Root, DirName) }

// ConfigPath returns the config file path.
func (w *Workspace) ConfigPath() string { return filepath.Join(w.Dir(), ConfigFile) }

// LedgerPath returns the ledger file path.
func (w *Workspace) LedgerPath() string { return filepath.Join(w.Dir(), LedgerFile) }

// GenesisPath returns the genesis key path.
func (w *Workspace) GenesisPath() string { return filepath.Join(w.Dir(), genesis.FileName) }

// LockPath returns the lock marker path.
func (w *Workspace) LockPath() string { return filepath.Join(w.Dir(), LockFile) }

// Name returns the configured workspace name.
func (w *Workspace) Name() string { return w.Config.Workspace }

// Logger returns the workspace logger.
func (w *Workspace) Logger() *slog.Logger { return w.logger }

// Now returns the current time from the workspace clock.
func (w *Workspace) Now() time.Time { return w.now() }

// Ledger returns the ledger store.
func (w *Workspace) Ledger() *ledger.Store { return ledger.New(w.LedgerPath()) }

// Lock returns the lock manager for this workspace.
func (w *Workspace) Lock() *lock.Manager {
	opts := []lock.Option{lock.WithLogger(w.logger)}
	if w.prober != nil {
		opts = append(opts, lock.WithProber(w.prober))
	}
	return lock.New(w.LockPath(), opts...)
}

// Genesis loads the genesis key, or nil when none exists.
func (w *Workspace) Genesis() (*genesis.Key, error) {
	return genesis.Load(w.GenesisPath())
}

// Validator returns a validator configured from the workspace config.
func (w *Workspace) Validator() *validate.Validator {
	return validate.New(w.Config.Validation.PathPrefixes...)
}

// ReadAll reads every operation in the ledger.
func (w *Workspace) ReadAll() ([]model.Operation, error) {
	return w.Ledger().ReadAll()
}

// InitOptions configures Init.
type InitOptions struct {
	Name      string
	Actor     string
	Force     bool
	Genesis   bool
	Gitignore bool
}

// InitResult reports what Init created.
type InitResult struct {
	Workspace        string   `json:"workspace"`
	ProjectRoot      string   `json:"project_root"`
	Created          []string `json:"created"`
	GitignoreUpdated bool     `json:"gitignore_updated"`
}

// Init creates a workspace in root. An existing .mentu directory is an
// error unless Force is set, in which case it is replaced.
func Init(root string, opts InitOptions, wopts ...Option) (*InitResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	w := newWorkspace(root, wopts)
	if isDir(w.Dir()) {
		if !opts.Force {
			return nil, apperr.New(apperr.CodeWorkspaceExists, ".mentu/ already exists. Use --force to overwrite.")
		}
		if err := os.RemoveAll(w.Dir()); err != nil {
			return nil, fmt.Errorf("removing existing workspace: %w", err)
		}
	}
	if err := os.MkdirAll(w.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", w.Dir(), err)
	}
	if err := os.WriteFile(w.LedgerPath(), nil, 0o644); err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	cfg := NewDefaultConfig()
	cfg.Workspace = opts.Name
	if cfg.Workspace == "" {
		cfg.Workspace = filepath.Base(root)
	}
	cfg.Created = model.Timestamp(w.now())
	cfg.DefaultActor = opts.Actor
	if err := SaveConfig(w.ConfigPath(), cfg); err != nil {
		return nil, err
	}
	res := &InitResult{
		Workspace:   w.Dir(),
		ProjectRoot: root,
		Created:     []string{LedgerFile, ConfigFile},
	}

	if opts.Genesis {
		owner := opts.Actor
		if owner == "" {
			owner = "user"
		}
		doc := genesis.Template(cfg.Workspace, owner, cfg.Created)
		if err := os.WriteFile(w.GenesisPath(), doc, 0o644); err != nil {
			return nil, fmt.Errorf("writing genesis key: %w", err)
		}
		res.Created = append(res.Created, genesis.FileName)
	}

	if opts.Gitignore {
		updated, err := ensureGitignore(root)
		if err != nil {
			return nil, err
		}
		res.GitignoreUpdated = updated
	}
	w.logger.Info("workspace initialized", "root", root, "name", cfg.Workspace)
	return res, nil
}

const gitignoreEntry = DirName + "/"

// ensureGitignore adds .mentu/ to the project's .gitignore and reports
// whether the file changed.
func ensureGitignore(root string) (bool, error) {
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}
	if strings.Contains(string(data), gitignoreEntry) {
		return false, nil
	}
	block := "# Mentu workspace\n" + gitignoreEntry + "\n"
	if len(data) > 0 {
		block = "\n" + block
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(block); err != nil {
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}
	return true, nil
}
