package genesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLint_ValidDocument(t *testing.T) {
	doc := `
genesis:
  version: "1.0"
identity:
  workspace: demo
  owner: alice
permissions:
  actors:
    "agent:*": [capture]
  defaults:
    authenticated:
      operations: [capture, commit]
constraints:
  require_claim:
    - match: all
  require_human:
    - operation: close
      match: {tags: [security]}
triage:
  default_tier: T2
  tier_rules:
    - pattern: "src/**/*.go"
      tier: T1
      reason: code
`
	issues, err := Lint("genesis.key", []byte(doc))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_TemplateIsValid(t *testing.T) {
	issues, err := Lint("genesis.key", Template("demo", "alice", "2025-01-01T00:00:00.000Z"))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_ReportsUnknownOperation(t *testing.T) {
	doc := `
genesis:
  version: "1.0"
identity:
  workspace: demo
permissions:
  actors:
    "agent:*": [capture, teleport]
`
	issues, err := Lint("genesis.key", []byte(doc))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestLint_ReportsMissingVersion(t *testing.T) {
	issues, err := Lint("genesis.key", []byte("identity:\n  workspace: demo\ngenesis: {}\n"))
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestLint_NotYAML(t *testing.T) {
	_, err := Lint("genesis.key", []byte("genesis: [unclosed"))
	assert.Error(t, err)
}
