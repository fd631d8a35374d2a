package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID_MatchesGrammar(t *testing.T) {
	for _, prefix := range []string{PrefixMemory, PrefixCommitment, PrefixOperation} {
		id := NewID(prefix)
		assert.True(t, ValidRef(id), id)
		assert.Equal(t, prefix, PrefixOf(id))
	}
	assert.NotEqual(t, NewID(PrefixMemory), NewID(PrefixMemory))
}

func TestValidRef(t *testing.T) {
	assert.True(t, ValidRef("mem_deadbeef"))
	assert.False(t, ValidRef("mem_DEADBEEF"))
	assert.False(t, ValidRef("xyz_deadbeef"))
	assert.False(t, ValidRef("cmt_deadbee"))
	assert.Equal(t, "", PrefixOf("nounderscore"))
}

func TestIDPrefix(t *testing.T) {
	assert.Equal(t, "mem", IDPrefix(KindCapture))
	assert.Equal(t, "cmt", IDPrefix(KindCommit))
	assert.Equal(t, "op", IDPrefix(KindClaim))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.FixedZone("x", 3600))
	assert.Equal(t, "2025-03-04T04:06:07.008Z", Timestamp(ts))
}

func TestIsAutomated(t *testing.T) {
	assert.True(t, IsAutomated("agent:claude"))
	assert.True(t, IsAutomated("bot:ci"))
	assert.True(t, IsAutomated("service:sync"))
	assert.False(t, IsAutomated("alice@example.com"))
	assert.False(t, IsAutomated("agentsmith"))
}
