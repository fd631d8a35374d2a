package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mentu/internal/model"
)

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs()
	assert.Equal(t, "mem_00000001", g.New("mem"))
	assert.Equal(t, "cmt_00000002", g.New("cmt"))
	assert.True(t, model.ValidRef(g.New("op")))

	g.Reset()
	assert.Equal(t, "mem_00000001", g.New("mem"))
}

func TestLedgerBuilder(t *testing.T) {
	b := NewLedgerBuilder()
	mem := b.Capture("alice", "observation")
	cmt := b.Commit("alice", "fix it", mem, "bug")
	b.Claim("bob", cmt)

	ops := b.Ops()
	assert.Len(t, ops, 3)
	assert.Equal(t, "mem_00000001", mem)
	assert.Equal(t, "cmt_00000002", cmt)
	assert.Equal(t, model.KindClaim, ops[2].Op)
	assert.Equal(t, "op_00000003", ops[2].ID)
	assert.Equal(t, "2025-01-01T00:00:03.000Z", ops[2].TS)
	assert.Equal(t, "test", ops[2].Workspace)
}
