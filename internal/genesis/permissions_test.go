package genesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mentu/internal/model"
)

func mustParse(t *testing.T, doc string) *Key {
	t.Helper()
	key, err := Parse([]byte(doc))
	require.NoError(t, err)
	return key
}

func TestHasPermission_MostSpecificWildcardWins(t *testing.T) {
	key := mustParse(t, `
genesis: {version: "1.0"}
identity: {workspace: demo}
permissions:
  actors:
    "agent:*":
      operations: [capture]
    "agent:claude:*":
      operations: [capture, commit]
`)

	assert.True(t, key.HasPermission("agent:claude:code", model.KindCommit))
	assert.True(t, key.HasPermission("agent:claude:code", model.KindCapture))
	assert.False(t, key.HasPermission("agent:other", model.KindCommit))
	assert.True(t, key.HasPermission("agent:other", model.KindCapture))
	assert.False(t, key.HasPermission("alice", model.KindCapture), "no rule and no defaults denies")
}

func TestHasPermission_ExactOutranksWildcard(t *testing.T) {
	key := mustParse(t, `
genesis: {version: "1.0"}
identity: {workspace: demo}
permissions:
  actors:
    "agent:claude:*": [capture, commit, close]
    "agent:claude:code": [capture]
`)
	assert.False(t, key.HasPermission("agent:claude:code", model.KindClose))
	assert.True(t, key.HasPermission("agent:claude:web", model.KindClose))
}

func TestHasPermission_TiesKeepDeclarationOrder(t *testing.T) {
	key := mustParse(t, `
genesis: {version: "1.0"}
identity: {workspace: demo}
permissions:
  actors:
    "a*c": [capture]
    "ab*": [commit]
`)
	rule, ok := key.Permissions.ResolveActor("abc")
	require.True(t, ok)
	assert.Equal(t, "a*c", rule.Pattern)
}

func TestHasPermission_Defaults(t *testing.T) {
	key := mustParse(t, `
genesis: {version: "1.0"}
identity: {workspace: demo}
permissions:
  actors:
    "bot:*": [capture]
  defaults:
    authenticated:
      operations: [capture, commit, claim]
`)
	assert.True(t, key.HasPermission("alice", model.KindClaim))
	assert.False(t, key.HasPermission("alice", model.KindClose))
	assert.False(t, key.HasPermission("bot:ci", model.KindCommit), "matched rule is authoritative")
}

func TestHasPermission_FailOpen(t *testing.T) {
	var none *Key
	assert.True(t, none.HasPermission("anyone", model.KindClose))

	noPerms := mustParse(t, "genesis: {version: \"1.0\"}\nidentity: {workspace: demo}\n")
	assert.True(t, noPerms.HasPermission("anyone", model.KindClose))
}

func TestMatchActor(t *testing.T) {
	assert.True(t, MatchActor("agent:*", "agent:claude"))
	assert.True(t, MatchActor("*", "anything"))
	assert.True(t, MatchActor("a.b", "a.b"))
	assert.False(t, MatchActor("a.b", "axb"))
	assert.False(t, MatchActor("agent:*", "bot:x"))
	assert.True(t, MatchActor("*@example.com", "alice@example.com"))
}

func TestActorRules_RoundTripKeepsOrder(t *testing.T) {
	rules := ActorRules{
		{Pattern: "z*", Ops: OpList{Operations: []model.Kind{model.KindCapture}}},
		{Pattern: "a*", Ops: OpList{Operations: []model.Kind{model.KindCommit}}},
	}
	data, err := yaml.Marshal(rules)
	require.NoError(t, err)

	var back ActorRules
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, rules, back)
}

func TestTemplate_ParsesAndAllowsEverything(t *testing.T) {
	key, err := Parse(Template("demo", "alice", "2025-01-01T00:00:00.000Z"))
	require.NoError(t, err)
	assert.Equal(t, "demo", key.Identity.Workspace)
	assert.Equal(t, "T2", key.Triage.DefaultTier)
	for _, k := range model.Kinds {
		assert.True(t, key.HasPermission("someone", k))
	}
}
