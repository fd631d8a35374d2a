package ledger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/model"
)

func TestWatch_DeliversAppendedOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mentu", "ledger.jsonl")
	s := New(path)
	require.NoError(t, s.Append(capture("mem_00000001", "before")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- s.Watch(ctx, 1, logger, func(seq int, op model.Operation) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, op.ID)
		})
	}()

	require.NoError(t, s.Append(capture("mem_00000002", "after")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "mem_00000002"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
