package harness

import (
	"github.com/roach88/mentu/internal/model"
)

// Outcome recorded for an accepted step.
const OutcomeAccepted = "accepted"

// TraceEvent records one submitted step and how the workspace answered.
type TraceEvent struct {
	Seq     int        `json:"seq"`
	ID      string     `json:"id"`
	Op      model.Kind `json:"op"`
	Actor   string     `json:"actor"`
	Outcome string     `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Aliases maps each step alias to the id it was written under.
	Aliases map[string]string `json:"-"`

	// Ledger holds the accepted operations in order.
	Ledger []model.Operation `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Aliases: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// resolve maps a $alias to its id and returns other values unchanged.
func (r *Result) resolve(v string) string {
	if name, ok := aliasOf(v); ok {
		return r.Aliases[name]
	}
	return v
}
