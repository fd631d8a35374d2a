package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertCommitment:
		c, ok := state.GetCommitment(result.Ledger, result.resolve(a.ID))
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "commitment " + a.ID, Actual: "not found"}
		}
		return compareFields(a, result, commitmentFields(&c))
	case AssertMemory:
		m, ok := state.GetMemory(result.Ledger, result.resolve(a.ID))
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "memory " + a.ID, Actual: "not found"}
		}
		return compareFields(a, result, memoryFields(&m))
	case AssertLedgerLength:
		if len(result.Ledger) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d operations", a.Count),
				Actual:   fmt.Sprintf("%d operations", len(result.Ledger)),
			}
		}
		return nil
	case AssertReplayStable:
		first, err := state.Fingerprint(result.Ledger)
		if err != nil {
			return err
		}
		second, err := state.Fingerprint(result.Ledger)
		if err != nil {
			return err
		}
		if first != second {
			return &AssertionError{Type: a.Type, Expected: first, Actual: second}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// compareFields checks every expected field against actual. An empty
// expected value asserts the field is absent.
func compareFields(a Assertion, result *Result, actual map[string]string) error {
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		got, known := actual[k]
		if !known {
			return fmt.Errorf("unknown %s field %q", a.Type, k)
		}
		if want := result.resolve(a.Expect[k]); got != want {
			mismatches = append(mismatches, fmt.Sprintf("%s=%q (want %q)", k, got, want))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s to match", a.ID),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func commitmentFields(c *model.Commitment) map[string]string {
	return map[string]string{
		"state":        string(c.State),
		"source":       c.Source,
		"owner":        c.Owner,
		"evidence":     c.Evidence,
		"closed_by":    c.ClosedBy,
		"duplicate_of": c.DuplicateOf,
		"submitted_by": c.SubmittedBy,
		"body":         c.Body,
		"tags":         strings.Join(c.Tags, ","),
	}
}

func memoryFields(m *model.Memory) map[string]string {
	return map[string]string{
		"state": string(m.State),
		"body":  m.Body,
		"kind":  m.Kind,
		"actor": m.Actor,
	}
}
