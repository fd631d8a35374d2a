package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// Projection is the golden view of a scenario run: the step trace and the
// derived state of every entity.
type Projection struct {
	Scenario    string           `json:"scenario"`
	Trace       []TraceEvent     `json:"trace"`
	Memories    []MemoryView     `json:"memories"`
	Commitments []CommitmentView `json:"commitments"`
}

// MemoryView is the part of a memory projection kept in golden files.
type MemoryView struct {
	ID    string            `json:"id"`
	State model.MemoryState `json:"state"`
}

// CommitmentView is the part of a commitment projection kept in golden files.
type CommitmentView struct {
	ID          string                `json:"id"`
	State       model.CommitmentState `json:"state"`
	Source      string                `json:"source"`
	Owner       string                `json:"owner,omitempty"`
	Evidence    string                `json:"evidence,omitempty"`
	ClosedBy    string                `json:"closed_by,omitempty"`
	DuplicateOf string                `json:"duplicate_of,omitempty"`
}

// Project builds the golden projection of a result.
func Project(name string, result *Result) Projection {
	p := Projection{
		Scenario:    name,
		Trace:       result.Trace,
		Memories:    []MemoryView{},
		Commitments: []CommitmentView{},
	}
	for _, m := range state.Memories(result.Ledger) {
		p.Memories = append(p.Memories, MemoryView{ID: m.ID, State: m.State})
	}
	for _, c := range state.Commitments(result.Ledger) {
		p.Commitments = append(p.Commitments, CommitmentView{
			ID:          c.ID,
			State:       c.State,
			Source:      c.Source,
			Owner:       c.Owner,
			Evidence:    c.Evidence,
			ClosedBy:    c.ClosedBy,
			DuplicateOf: c.DuplicateOf,
		})
	}
	return p
}

// RunWithGolden executes a scenario and compares its canonical projection
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := model.MarshalCanonical(Project(name, result))
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
