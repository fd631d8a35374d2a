package ledger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/mentu/internal/model"
)

// Handler receives operations appended after a watch started.
type Handler func(seq int, op model.Operation)

// Watch tails the ledger until ctx is cancelled. Operations beyond the first
// skip records are delivered to fn in ledger order with their 0-based
// sequence number. The ledger directory must exist.
func (s *Store) Watch(ctx context.Context, skip int, logger *slog.Logger, fn Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Debug("ledger watch: started", slog.String("path", s.path), slog.Int("skip", skip))

	seen := skip
	deliver := func() {
		ops, err := s.ReadAll()
		if err != nil {
			logger.Warn("ledger watch: read failed", slog.String("error", err.Error()))
			return
		}
		for ; seen < len(ops); seen++ {
			fn(seen, ops[seen])
		}
	}
	// Catch anything appended between the caller's read and the watch.
	deliver()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("ledger watch: stopped")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				deliver()
			}
		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("ledger watch: error", slog.String("error", watchErr.Error()))
		}
	}
}
