package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/genesis"
	"github.com/roach88/mentu/internal/state"
	"github.com/roach88/mentu/internal/triage"
	"github.com/roach88/mentu/internal/validate"
)

// ValidateResult is the output of the validate command.
type ValidateResult struct {
	Operations int                `json:"operations"`
	Findings   []validate.Finding `json:"findings"`
	Valid      bool               `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Audit the ledger against the validation rules",
		Long: `Replay the ledger, validating every operation against the ones before it
and the current genesis key.

Exit codes:
  0 - Every operation would be accepted today
  1 - At least one operation would be rejected
  2 - Command error (no workspace, unreadable ledger, etc.)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			key, err := ws.Genesis()
			if err != nil {
				return f.Fail(err)
			}
			findings := ws.Validator().ValidateLedger(ops, key)
			res := ValidateResult{Operations: len(ops), Findings: findings, Valid: len(findings) == 0}
			if res.Findings == nil {
				res.Findings = []validate.Finding{}
			}
			if err := f.Success(res, func(w io.Writer) {
				for _, fd := range findings {
					fmt.Fprintf(w, "line %d: %s %s: [%s] %s\n", fd.Line, fd.Op, fd.ID, fd.Rejection.Code, fd.Rejection.Message)
				}
				if res.Valid {
					fmt.Fprintf(w, "Ledger valid: %d operations\n", res.Operations)
				} else {
					fmt.Fprintf(w, "%d of %d operations rejected\n", len(findings), res.Operations)
				}
			}); err != nil {
				return err
			}
			if !res.Valid {
				return NewExitError(ExitFailure, "ledger has rejected operations")
			}
			return nil
		},
	}
}

// ReplayResult is the output of the replay command.
type ReplayResult struct {
	Operations    int    `json:"operations"`
	Fingerprint   string `json:"fingerprint"`
	Deterministic bool   `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay the ledger and verify determinism",
		Long: `Fold the ledger into memories and commitments twice and compare the
fingerprints of the two projections.

Exit codes:
  0 - Replay is deterministic
  1 - The two replays differ
  2 - Command error (no workspace, unreadable ledger, etc.)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			first, err := state.Fingerprint(ops)
			if err != nil {
				return f.Fail(err)
			}
			second, err := state.Fingerprint(ops)
			if err != nil {
				return f.Fail(err)
			}
			res := ReplayResult{Operations: len(ops), Fingerprint: first, Deterministic: first == second}
			f.VerboseLog("first=%s second=%s", first, second)
			if err := f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Replayed %d operations\n", res.Operations)
				fmt.Fprintf(w, "Fingerprint: %s\n", res.Fingerprint)
				if res.Deterministic {
					fmt.Fprintln(w, "Deterministic: yes")
				} else {
					fmt.Fprintln(w, "Deterministic: NO")
				}
			}); err != nil {
				return err
			}
			if !res.Deterministic {
				return NewExitError(ExitFailure, "replay is not deterministic")
			}
			return nil
		},
	}
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <id>",
		Short: "Assign a review tier to a memory or commitment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			ops, err := ws.ReadAll()
			if err != nil {
				return f.Fail(err)
			}
			key, err := ws.Genesis()
			if err != nil {
				return f.Fail(err)
			}
			m, err := triage.FromGenesis(key)
			if err != nil {
				return f.Fail(err)
			}

			id := args[0]
			var res triage.MemoryClassification
			if mem, ok := state.GetMemory(ops, id); ok {
				res = m.ClassifyMemory(&mem)
			} else if c, ok := state.GetCommitment(ops, id); ok {
				res = m.ClassifyCommitment(&c)
			} else {
				return f.Fail(apperr.Newf(apperr.CodeRefNotFound, "No memory or commitment with id %s", id).With("id", id))
			}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s (%s confidence)\n", id, res.Tier, res.Confidence)
				fmt.Fprintf(w, "  %s\n", res.Reason)
				if res.Actionable {
					fmt.Fprintln(w, "  actionable")
				}
			})
		},
	}
}

// NewGenesisCommand creates the genesis command group.
func NewGenesisCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Inspect the workspace genesis key",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Check a genesis key against its schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				ws, err := rootOpts.open(cmd)
				if err != nil {
					return f.Fail(err)
				}
				path = ws.GenesisPath()
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "failed to read genesis key", err))
			}
			issues, err := genesis.Lint(path, data)
			if err != nil {
				return f.Fail(apperr.New(apperr.CodeInvalidOp, err.Error()))
			}
			if len(issues) == 0 {
				if _, err := genesis.Parse(data); err != nil {
					return f.Fail(apperr.New(apperr.CodeInvalidOp, err.Error()))
				}
				issues = []genesis.LintIssue{}
			}
			if err := f.Success(issues, func(w io.Writer) {
				for _, is := range issues {
					fmt.Fprintln(w, is.String())
				}
				if len(issues) == 0 {
					fmt.Fprintf(w, "%s: ok\n", path)
				}
			}); err != nil {
				return err
			}
			if len(issues) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d schema issues", len(issues)))
			}
			return nil
		},
	})
	return cmd
}
