package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/testutil"
	"github.com/roach88/mentu/internal/workspace"
)

// Harness executes scenarios with a deterministic clock and id sequence.
type Harness struct {
	clock  *testutil.DeterministicClock
	ids    *testutil.SequentialIDs
	logger *slog.Logger
}

// Run executes a scenario in a fresh temporary workspace and returns the
// result. A returned error means the scenario could not be executed at all;
// unmet expectations are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "mentu-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("creating scenario workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewSequentialIDs(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(ctx, dir, scenario)
}

func (h *Harness) run(ctx context.Context, dir string, scenario *Scenario) (*Result, error) {
	ws, err := h.setup(dir, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i := range scenario.Steps {
		if err := h.step(ctx, ws, i, &scenario.Steps[i], result); err != nil {
			return nil, err
		}
	}

	ops, err := ws.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	result.Ledger = ops

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func (h *Harness) setup(dir string, scenario *Scenario) (*workspace.Workspace, error) {
	name := scenario.Workspace
	if name == "" {
		name = "scenario"
	}
	opts := []workspace.Option{
		workspace.WithClock(h.clock.Now),
		workspace.WithLogger(h.logger),
	}
	if _, err := workspace.Init(dir, workspace.InitOptions{Name: name}, opts...); err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}
	ws, err := workspace.Open(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}
	if scenario.Genesis != "" {
		if err := os.WriteFile(ws.GenesisPath(), []byte(scenario.Genesis), 0o644); err != nil {
			return nil, fmt.Errorf("writing genesis key: %w", err)
		}
	}
	return ws, nil
}

// step submits one operation under a sequential id and records the outcome.
func (h *Harness) step(ctx context.Context, ws *workspace.Workspace, i int, s *Step, result *Result) error {
	op, err := workspace.Build(s.request(result.Aliases), s.Actor, ws.Name(), ws.Now())
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	op.ID = h.ids.New(model.IDPrefix(op.Op))
	if s.As != "" {
		result.Aliases[s.As] = op.ID
	}

	outcome := OutcomeAccepted
	if _, err := ws.Apply(ctx, op); err != nil {
		ae, ok := apperr.As(err)
		if !ok {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		outcome = string(ae.Code)
	}
	result.Trace = append(result.Trace, TraceEvent{
		Seq:     i + 1,
		ID:      op.ID,
		Op:      op.Op,
		Actor:   op.Actor,
		Outcome: outcome,
	})

	expected := OutcomeAccepted
	if s.ExpectError != "" {
		expected = string(s.ExpectError)
	}
	if outcome != expected {
		result.AddError(fmt.Sprintf("steps[%d] %s by %s: expected %s, got %s", i, op.Op, op.Actor, expected, outcome))
	}
	h.logger.Debug("scenario step", "seq", i+1, "id", op.ID, "op", op.Op, "outcome", outcome)
	return nil
}
