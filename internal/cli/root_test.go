package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mentu", cmd.Use)
	assert.Contains(t, cmd.Long, "ledger.jsonl")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"capture"}, {"commit"}, {"claim"}, {"release"}, {"close"},
		{"annotate"}, {"link"}, {"dismiss"}, {"triage"}, {"submit"}, {"approve"},
		{"reopen"}, {"status"}, {"show"}, {"list", "memories"}, {"list", "commitments"},
		{"log"}, {"validate"}, {"replay"}, {"classify"}, {"genesis", "check"},
		{"api-key", "create"}, {"api-key", "list"}, {"api-key", "revoke"},
		{"mirror"}, {"serve"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	wsFlag := cmd.PersistentFlags().Lookup("workspace")
	require.NotNil(t, wsFlag)
	assert.Equal(t, "C", wsFlag.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("actor"))
}

func TestCloseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	closeCmd, _, err := cmd.Find([]string{"close"})
	require.NoError(t, err)

	evidence := closeCmd.Flags().Lookup("evidence")
	require.NotNil(t, evidence)
	assert.Equal(t, "e", evidence.Shorthand)
	dup := closeCmd.Flags().Lookup("duplicate-of")
	require.NotNil(t, dup)
	assert.Equal(t, "d", dup.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "status"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
