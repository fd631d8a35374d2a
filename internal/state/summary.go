package state

import (
	"github.com/roach88/mentu/internal/model"
)

// Snapshot is the full derived view of a ledger.
type Snapshot struct {
	Memories    []model.Memory     `json:"memories"`
	Commitments []model.Commitment `json:"commitments"`
}

// Project folds ops into a Snapshot.
func Project(ops []model.Operation) Snapshot {
	commitments := Commitments(ops)
	if commitments == nil {
		commitments = []model.Commitment{}
	}
	return Snapshot{Memories: Memories(ops), Commitments: commitments}
}

// Fingerprint is the domain-separated digest of the canonical projection.
// Two replays of the same ledger always produce the same fingerprint.
func Fingerprint(ops []model.Operation) (string, error) {
	return model.Digest(model.DomainState, Project(ops))
}

// Summary counts entities by derived state.
type Summary struct {
	Operations  int                           `json:"operations"`
	Memories    int                           `json:"memories"`
	Commitments int                           `json:"commitments"`
	ByState     map[model.CommitmentState]int `json:"by_state"`
	ByTriage    map[model.MemoryState]int     `json:"by_triage"`
	LastTS      string                        `json:"last_ts,omitempty"`
}

// Summarize computes a Summary over ops.
func Summarize(ops []model.Operation) Summary {
	s := Summary{
		Operations: len(ops),
		ByState:    make(map[model.CommitmentState]int),
		ByTriage:   make(map[model.MemoryState]int),
	}
	for _, st := range model.CommitmentStates {
		s.ByState[st] = 0
	}
	for _, m := range Memories(ops) {
		s.Memories++
		s.ByTriage[m.State]++
	}
	for _, c := range Commitments(ops) {
		s.Commitments++
		s.ByState[c.State]++
	}
	if len(ops) > 0 {
		s.LastTS = ops[len(ops)-1].TS
	}
	return s
}

// Filter selects commitments for listing.
type Filter struct {
	State model.CommitmentState
	Owner string
	Tag   string
}

// Match reports whether c passes every set field of f.
func (f Filter) Match(c *model.Commitment) bool {
	if f.State != "" && c.State != f.State {
		return false
	}
	if f.Owner != "" && c.Owner != f.Owner {
		return false
	}
	if f.Tag != "" && !c.HasTag(f.Tag) {
		return false
	}
	return true
}

// FilterCommitments returns the commitments matching f, in commit order.
func FilterCommitments(ops []model.Operation, f Filter) []model.Commitment {
	out := []model.Commitment{}
	for _, c := range Commitments(ops) {
		if f.Match(&c) {
			out = append(out, c)
		}
	}
	return out
}
