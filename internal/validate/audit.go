package validate

import (
	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/genesis"
	"github.com/roach88/mentu/internal/model"
)

// Finding is one operation already in the ledger that would be rejected if
// it were appended today.
type Finding struct {
	Line      int           `json:"line"`
	ID        string        `json:"id"`
	Op        model.Kind    `json:"op"`
	Rejection *apperr.Error `json:"rejection"`
}

// ValidateLedger replays ops, validating each operation against the ones
// before it. Lines are 1-based positions among the decoded operations.
func (v *Validator) ValidateLedger(ops []model.Operation, key *genesis.Key) []Finding {
	var findings []Finding
	for i := range ops {
		if r := v.Validate(ops[i], ops[:i], key); !r.Accepted {
			findings = append(findings, Finding{
				Line:      i + 1,
				ID:        ops[i].ID,
				Op:        ops[i].Op,
				Rejection: r.Rejection,
			})
		}
	}
	return findings
}
