package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mentu/internal/apperr"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"id": "mem_00000001"}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"id": "mem_00000001"}, resp.Data)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("ignored", func(w io.Writer) {
		fmt.Fprintln(w, "Captured mem_00000001")
	}))
	assert.Equal(t, "Captured mem_00000001\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("plain", nil))
	assert.Equal(t, "plain\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf, Verbose: true}

	require.NoError(t, formatter.Error("E_NOT_OWNER", "not yours", map[string]any{"owner": "bob"}))
	assert.Equal(t, "Error [E_NOT_OWNER]: not yours\n", buf.String())
	assert.Contains(t, errBuf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{
			name:     "rejection",
			err:      apperr.New(apperr.CodeAlreadyClaimed, "Commitment already claimed by bob"),
			wantCode: ExitFailure,
			wantText: "Error [E_ALREADY_CLAIMED]: Commitment already claimed by bob\n",
		},
		{
			name:     "locked",
			err:      fmt.Errorf("apply: %w", apperr.New(apperr.CodeWorkspaceLocked, "Workspace locked by pid 7")),
			wantCode: ExitCommandError,
			wantText: "Error [E_WORKSPACE_LOCKED]: Workspace locked by pid 7\n",
		},
		{
			name:     "foreign",
			err:      errors.New("disk full"),
			wantCode: ExitCommandError,
			wantText: "Error [E_INTERNAL]: disk full\n",
		},
		{
			name:     "exit error",
			err:      WrapExitError(ExitCommandError, "failed to open mirror", errors.New("denied")),
			wantCode: ExitCommandError,
			wantText: "Error [E_INTERNAL]: failed to open mirror: denied\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf}
			err := formatter.Fail(tt.err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Equal(t, tt.wantText, buf.String())
		})
	}
}

func TestOutputFormatter_FailJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	_ = formatter.Fail(apperr.New(apperr.CodeNotOwner, "not yours").With("owner", "bob"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NOT_OWNER", resp.Error.Code)
	assert.Equal(t, "bob", resp.Error.Details["owner"])
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			formatter.VerboseLog("applying %s", "capture")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "applying capture")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag")))
}
