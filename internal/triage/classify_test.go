package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/model"
)

func TestExtractPaths(t *testing.T) {
	text := "Fix the bug in ./src/auth/login.go and `docs/guide.md`, also touch src/auth/** soon.\nsrc/auth/login.go"
	assert.Equal(t, []string{"src/auth/login.go", "docs/guide.md", "src/auth/**"}, ExtractPaths(text))
	assert.Empty(t, ExtractPaths("nothing to see here"))
}

func TestExtractTags(t *testing.T) {
	mem := &model.Memory{
		Body: "flaky #ci run, see #backend and #ci",
		Meta: map[string]any{"tags": []any{"urgent", "backend"}},
	}
	assert.Equal(t, []string{"urgent", "backend", "ci"}, ExtractTags(mem))
}

func TestIsActionable(t *testing.T) {
	assert.True(t, IsActionable("Please FIX the login flow"))
	assert.True(t, IsActionable("we should migrate to v2"))
	assert.False(t, IsActionable("prefix suffix fixture"))
	assert.False(t, IsActionable("just an observation"))
}

func TestClassifyMemory(t *testing.T) {
	m, err := NewMatcher([]Rule{
		{Pattern: "src/auth/**", Tier: "T1", Reason: "auth code"},
		{Tags: []string{"docs"}, Tier: "T3", Reason: "docs"},
	}, "T2")
	require.NoError(t, err)

	c := m.ClassifyMemory(&model.Memory{Body: "fix token refresh in src/auth/token.go", Actor: "alice"})
	assert.Equal(t, "T1", c.Tier)
	assert.Equal(t, ConfidenceHigh, c.Confidence)
	assert.True(t, c.Actionable)
	assert.Equal(t, []string{"src/auth/token.go"}, c.Paths)

	c = m.ClassifyMemory(&model.Memory{Body: "typo #docs", Actor: "alice"})
	assert.Equal(t, "T3", c.Tier)
	assert.Equal(t, ConfidenceMedium, c.Confidence)

	c = m.ClassifyMemory(&model.Memory{Body: "idle thought", Actor: "alice"})
	assert.Equal(t, "T2", c.Tier)
	assert.Equal(t, ConfidenceLow, c.Confidence)
	assert.False(t, c.Actionable)
}

func TestClassifyCommitment(t *testing.T) {
	m, err := NewMatcher([]Rule{{Tags: []string{"security"}, Actor: "agent:*", Tier: "T1"}}, "")
	require.NoError(t, err)

	c := m.ClassifyCommitment(&model.Commitment{Body: "rotate", Tags: []string{"security"}, Actor: "agent:x"})
	assert.Equal(t, "T1", c.Tier)
	assert.Equal(t, ConfidenceHigh, c.Confidence)
}
