package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
)

func capture(id, body string) model.Operation {
	return model.Operation{
		ID: id, Op: model.KindCapture, TS: "2025-01-01T00:00:00.000Z",
		Actor: "alice", Workspace: "demo",
		Payload: &model.CapturePayload{Body: body},
	}
}

func TestReadAll_MissingLedgerIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), ".mentu", "ledger.jsonl"))

	ops, err := s.ReadAll()
	require.NoError(t, err)
	assert.NotNil(t, ops)
	assert.Empty(t, ops)
}

func TestAppend_CreatesDirAndPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mentu", "ledger.jsonl")
	s := New(path)

	require.NoError(t, s.Append(capture("mem_00000001", "first")))
	require.NoError(t, s.Append(capture("mem_00000002", "second")))

	ops, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "mem_00000001", ops[0].ID)
	assert.Equal(t, "mem_00000002", ops[1].ID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestAppend_NeverRewritesPriorBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	s := New(path)
	require.NoError(t, s.Append(capture("mem_00000001", "first")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Append(capture("mem_00000002", "second")))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)))
}

func TestReadAll_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	first, err := Encode(capture("mem_00000001", "a"))
	require.NoError(t, err)
	second, err := Encode(capture("mem_00000002", "b"))
	require.NoError(t, err)
	content := "\n" + string(first) + "   \n\t\n" + string(second) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ops, err := New(path).ReadAll()
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestReadAll_CorruptLineNamesLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	good, err := Encode(capture("mem_00000001", "a"))
	require.NoError(t, err)
	content := string(good) + "\n{not json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err = New(path).ReadAll()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeLedgerCorrupt))
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 3, ae.Detail("line"))
	assert.Contains(t, err.Error(), "line 3")
}

func TestExistenceChecks(t *testing.T) {
	ops := []model.Operation{capture("mem_00000001", "a"), capture("mem_00000002", "b")}
	ops[1].SourceKey = "gh:1"

	assert.True(t, IDExists(ops, "mem_00000002"))
	assert.False(t, IDExists(ops, "mem_00000003"))
	assert.True(t, SourceKeyExists(ops, "gh:1"))
	assert.False(t, SourceKeyExists(ops, "gh:2"))
	assert.False(t, SourceKeyExists(ops, ""))
	assert.Equal(t, []string{"mem_00000001", "mem_00000002"}, MemoryIDs(ops))
	assert.Empty(t, CommitmentIDs(ops))
}
