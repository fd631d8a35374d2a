package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/genesis"
	"github.com/roach88/mentu/internal/lock"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
	"github.com/roach88/mentu/internal/testutil"
)

func fixedClock() func() time.Time {
	c := testutil.NewDeterministicClock()
	return c.Now
}

func initWorkspace(t *testing.T, opts InitOptions) *Workspace {
	t.Helper()
	root := t.TempDir()
	_, err := Init(root, opts, WithClock(fixedClock()))
	require.NoError(t, err)
	w, err := Open(root, WithClock(fixedClock()))
	require.NoError(t, err)
	return w
}

func TestInit_CreatesLayout(t *testing.T) {
	root := t.TempDir()
	res, err := Init(root, InitOptions{Name: "demo", Actor: "alice", Genesis: true, Gitignore: true}, WithClock(fixedClock()))
	require.NoError(t, err)

	assert.Equal(t, []string{LedgerFile, ConfigFile, genesis.FileName}, res.Created)
	assert.True(t, res.GitignoreUpdated)
	assert.FileExists(t, filepath.Join(root, DirName, LedgerFile))
	assert.FileExists(t, filepath.Join(root, DirName, genesis.FileName))

	gi, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gi), ".mentu/")

	w, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, "demo", w.Name())
	assert.Equal(t, "alice", w.Config.DefaultActor)
	assert.Equal(t, "2025-01-01T00:00:01.000Z", w.Config.Created)

	key, err := w.Genesis()
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "demo", key.Identity.Workspace)
	assert.Equal(t, "alice", key.Identity.Owner)
}

func TestInit_ExistingWorkspace(t *testing.T) {
	root := t.TempDir()
	_, err := Init(root, InitOptions{})
	require.NoError(t, err)

	_, err = Init(root, InitOptions{})
	assert.True(t, apperr.Is(err, apperr.CodeWorkspaceExists))

	_, err = Init(root, InitOptions{Force: true, Name: "again"})
	require.NoError(t, err)
	w, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, "again", w.Name())
}

func TestInit_GitignoreIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n.mentu/\n"), 0o644))
	res, err := Init(root, InitOptions{Gitignore: true})
	require.NoError(t, err)
	assert.False(t, res.GitignoreUpdated)
}

func TestFind_WalksUp(t *testing.T) {
	w := initWorkspace(t, InitOptions{})
	nested := filepath.Join(w.Root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, w.Root, root)
}

func TestFind_NoWorkspace(t *testing.T) {
	_, err := Find(t.TempDir())
	assert.True(t, apperr.Is(err, apperr.CodeNoWorkspace))
}

func TestOpen_EnvOverridesConfig(t *testing.T) {
	w := initWorkspace(t, InitOptions{Name: "demo"})
	assert.Equal(t, "127.0.0.1:3000", w.Config.Server.Listen)

	t.Setenv("MENTU_SERVER_LISTEN", ":9999")
	reopened, err := Open(w.Root)
	require.NoError(t, err)
	assert.Equal(t, ":9999", reopened.Config.Server.Listen)
	assert.Equal(t, []string{"docs/", ".claude/"}, reopened.Config.Validation.PathPrefixes)
}

func TestResolveActor_Precedence(t *testing.T) {
	orig := gitEmail
	t.Cleanup(func() { gitEmail = orig })
	gitEmail = func() string { return "git@example.com" }

	cfg := &Config{DefaultActor: "configured"}
	t.Setenv(ActorEnv, "from-env")
	assert.Equal(t, "flag", ResolveActor("flag", cfg))
	assert.Equal(t, "from-env", ResolveActor("", cfg))

	t.Setenv(ActorEnv, "")
	assert.Equal(t, "configured", ResolveActor("", cfg))
	assert.Equal(t, "git@example.com", ResolveActor("", nil))

	gitEmail = func() string { return "" }
	assert.Equal(t, DefaultActor, ResolveActor("", &Config{}))
}

func TestBuild(t *testing.T) {
	now := testutil.Epoch
	op, err := Build(Request{Op: model.KindCapture, Body: "note", SourceKey: "k1"}, "alice", "demo", now)
	require.NoError(t, err)
	assert.Regexp(t, `^mem_[a-f0-9]{8}$`, op.ID)
	assert.Equal(t, "k1", op.SourceKey)
	assert.Equal(t, "demo", op.Workspace)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", op.TS)

	op, err = Build(Request{Op: model.KindClose, Commitment: "cmt_00000001", Evidence: model.IDList{"mem_00000002"}}, "alice", "demo", now)
	require.NoError(t, err)
	assert.Regexp(t, `^op_[a-f0-9]{8}$`, op.ID)
	assert.Equal(t, &model.ClosePayload{Commitment: "cmt_00000001", Evidence: "mem_00000002"}, op.Payload)

	_, err = Build(Request{}, "alice", "demo", now)
	assert.True(t, apperr.Is(err, apperr.CodeMissingField))
	_, err = Build(Request{Op: "merge"}, "alice", "demo", now)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidOp))
}

func TestApply_AppendsAcceptedAndReturnsRejections(t *testing.T) {
	w := initWorkspace(t, InitOptions{Name: "demo"})
	ctx := context.Background()

	mem, err := w.Submit(ctx, Request{Op: model.KindCapture, Body: "flaky login"}, "alice")
	require.NoError(t, err)
	cmt, err := w.Submit(ctx, Request{Op: model.KindCommit, Body: "fix login", Source: mem.ID}, "alice")
	require.NoError(t, err)

	_, err = w.Submit(ctx, Request{Op: model.KindCommit, Body: "", Source: mem.ID}, "alice")
	assert.True(t, apperr.Is(err, apperr.CodeEmptyBody))

	_, err = w.Submit(ctx, Request{Op: model.KindClaim, Commitment: cmt.ID}, "alice")
	require.NoError(t, err)
	_, err = w.Submit(ctx, Request{Op: model.KindClaim, Commitment: cmt.ID}, "bob")
	assert.True(t, apperr.Is(err, apperr.CodeAlreadyClaimed))

	ops, err := w.ReadAll()
	require.NoError(t, err)
	assert.Len(t, ops, 3)
	assert.Equal(t, "alice", state.CommitmentStatus(ops, cmt.ID).Owner)
	assert.NoFileExists(t, w.LockPath())
}

func TestApply_EnforcesGenesis(t *testing.T) {
	w := initWorkspace(t, InitOptions{Name: "demo"})
	doc := `
genesis: {version: "1.0"}
identity: {workspace: demo}
permissions:
  actors:
    "agent:*": [capture]
`
	require.NoError(t, os.WriteFile(w.GenesisPath(), []byte(doc), 0o644))

	ctx := context.Background()
	mem, err := w.Submit(ctx, Request{Op: model.KindCapture, Body: "seen"}, "agent:bot")
	require.NoError(t, err)
	_, err = w.Submit(ctx, Request{Op: model.KindCommit, Body: "act", Source: mem.ID}, "agent:bot")
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
}

func TestApply_LockedWorkspace(t *testing.T) {
	root := t.TempDir()
	_, err := Init(root, InitOptions{})
	require.NoError(t, err)
	alive := lock.ProberFunc(func(int) bool { return true })
	w, err := Open(root, WithProber(alive))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(w.LockPath(), []byte("424242"), 0o644))
	_, err = w.Submit(context.Background(), Request{Op: model.KindCapture, Body: "x"}, "alice")
	require.True(t, apperr.Is(err, apperr.CodeWorkspaceLocked))
	ae, _ := apperr.As(err)
	assert.Equal(t, 424242, ae.Detail("pid"))

	// The marker belongs to the other holder and stays in place.
	assert.FileExists(t, w.LockPath())
}

func TestApply_CanceledContext(t *testing.T) {
	w := initWorkspace(t, InitOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Submit(ctx, Request{Op: model.KindCapture, Body: "x"}, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIKeys(t *testing.T) {
	w := initWorkspace(t, InitOptions{Name: "demo"})
	t.Setenv("MENTU_SERVER_LISTEN", ":1234")

	secret, key, err := w.CreateAPIKey("ci", "agent:ci")
	require.NoError(t, err)
	assert.Regexp(t, `^mentu_key_[a-f0-9]{48}$`, secret)
	assert.Equal(t, HashAPIKey(secret), key.KeyHash)
	assert.Equal(t, secret[:16], key.KeyPrefix)
	assert.True(t, key.Can(PermRead))
	assert.True(t, key.Can(PermWrite))

	reopened, err := Open(w.Root)
	require.NoError(t, err)
	found, ok := reopened.LookupAPIKey(secret)
	require.True(t, ok)
	assert.Equal(t, "agent:ci", found.Actor)
	_, ok = reopened.LookupAPIKey("mentu_key_wrong")
	assert.False(t, ok)

	raw, err := readConfigFile(w.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", raw.Server.Listen, "environment overrides are not persisted")
	assert.NotContains(t, mustRead(t, w.ConfigPath()), secret)

	require.NoError(t, reopened.RevokeAPIKey(key.ID))
	_, ok = reopened.LookupAPIKey(secret)
	assert.False(t, ok)
	assert.True(t, apperr.Is(reopened.RevokeAPIKey(key.ID), apperr.CodeNotFound))

	_, _, err = w.CreateAPIKey("x", "")
	assert.True(t, apperr.Is(err, apperr.CodeMissingField))
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Error(t, cfg.Validate(), "workspace name is required")

	cfg.Workspace = "demo"
	require.NoError(t, cfg.Validate())

	cfg.API.Keys = []APIKey{{ID: "key_1", KeyHash: "sha256:x", Actor: "a", Permissions: []string{"admin"}}}
	assert.Error(t, cfg.Validate())
}
