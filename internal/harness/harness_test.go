package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/model"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "close_with_evidence.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Ledger, second.Ledger)
	assert.Equal(t, "2025-01-01T00:00:02.000Z", first.Ledger[0].TS)
	assert.Equal(t, "mem_00000001", first.Aliases["bug"])
}

func TestRun_ReportsUnexpectedOutcome(t *testing.T) {
	scenario := &Scenario{
		Name: "unexpected",
		Steps: []Step{
			{Op: model.KindCapture, As: "m", Actor: "alice", Body: "note"},
			{Op: model.KindDismiss, Actor: "alice", Memory: "$m"},
			{Op: model.KindCapture, Actor: "alice", Body: "fine", ExpectError: "E_EMPTY_BODY"},
		},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected accepted, got E_MISSING_FIELD")
	assert.Contains(t, result.Errors[1], "expected E_EMPTY_BODY, got accepted")
	assert.Len(t, result.Ledger, 2)
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name: "assertions",
		Steps: []Step{
			{Op: model.KindCapture, As: "m", Actor: "alice", Body: "note"},
			{Op: model.KindCommit, As: "c", Actor: "alice", Body: "act", Source: "$m"},
		},
		Assertions: []Assertion{
			{Type: AssertCommitment, ID: "$c", Expect: map[string]string{"state": "claimed", "source": "$m"}},
			{Type: AssertMemory, ID: "mem_deadbeef"},
			{Type: AssertLedgerLength, Count: 3},
			{Type: AssertCommitment, ID: "$c", Expect: map[string]string{"colour": "red"}},
			{Type: AssertReplayStable},
		},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `state="open" (want "claimed")`)
	assert.NotContains(t, result.Errors[0], "source=")
	assert.Contains(t, result.Errors[1], "not found")
	assert.Contains(t, result.Errors[2], "expected 3 operations, got 2 operations")
	assert.Contains(t, result.Errors[3], `unknown commitment field "colour"`)
}
