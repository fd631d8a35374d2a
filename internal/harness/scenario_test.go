package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/model"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
steps:
  - op: capture
    as: note
    actor: alice
    body: "Cache misses spike at noon"
  - op: commit
    actor: alice
    body: "Investigate cache"
    source: $note
    tags: [perf]
assertions:
  - type: memory
    id: $note
    expect: {state: committed}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, model.KindCommit, scenario.Steps[1].Op)
	assert.Equal(t, []string{"perf"}, scenario.Steps[1].Tags)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, "committed", scenario.Assertions[0].Expect["state"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc:  "steps: [{op: capture, actor: a, body: x}]",
			want: "name is required",
		},
		{
			name: "no steps",
			doc:  "name: empty",
			want: "at least one step",
		},
		{
			name: "unknown field",
			doc:  "name: x\nsteps: [{op: capture, actor: a, body: x, colour: red}]",
			want: "failed to parse scenario YAML",
		},
		{
			name: "unknown op",
			doc:  "name: x\nsteps: [{op: merge, actor: a}]",
			want: `unknown op "merge"`,
		},
		{
			name: "missing actor",
			doc:  "name: x\nsteps: [{op: capture, body: x}]",
			want: "actor is required",
		},
		{
			name: "forward alias",
			doc:  "name: x\nsteps: [{op: commit, actor: a, body: x, source: $later}, {op: capture, as: later, actor: a, body: y}]",
			want: "$later refers to an unknown or later step",
		},
		{
			name: "duplicate alias",
			doc:  "name: x\nsteps: [{op: capture, as: m, actor: a, body: x}, {op: capture, as: m, actor: a, body: y}]",
			want: `alias "m" is already defined`,
		},
		{
			name: "unknown assertion",
			doc:  "name: x\nsteps: [{op: capture, actor: a, body: x}]\nassertions: [{type: final_state}]",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "assertion without id",
			doc:  "name: x\nsteps: [{op: capture, actor: a, body: x}]\nassertions: [{type: memory}]",
			want: "id is required for memory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStepRequest_ResolvesAliases(t *testing.T) {
	step := Step{
		Op:         model.KindClose,
		Actor:      "alice",
		Commitment: "$fix",
		Evidence:   "$proof",
	}
	req := step.request(map[string]string{"fix": "cmt_00000002", "proof": "mem_00000003"})
	assert.Equal(t, "cmt_00000002", req.Commitment)
	assert.Equal(t, model.IDList{"mem_00000003"}, req.Evidence)

	literal := Step{Op: model.KindClaim, Actor: "bob", Commitment: "cmt_0000000a"}
	assert.Equal(t, "cmt_0000000a", literal.request(nil).Commitment)
}
