package state

import (
	"github.com/roach88/mentu/internal/model"
)

// apply folds one lifecycle operation into c. Operations that do not target
// c are ignored by the callers, not here.
func apply(c *model.Commitment, op *model.Operation) {
	switch p := op.Payload.(type) {
	case *model.ClaimPayload:
		c.State = model.StateClaimed
		c.Owner = op.Actor
	case *model.ReleasePayload:
		c.State = model.StateOpen
		c.Owner = ""
	case *model.SubmitPayload:
		c.State = model.StateInReview
		c.Owner = ""
		c.SubmittedBy = op.Actor
		c.SubmittedAt = op.TS
		if len(p.Evidence) > 0 {
			c.Evidence = p.Evidence[0]
		}
	case *model.ApprovePayload:
		c.State = model.StateClosed
		c.Owner = ""
		c.ClosedBy = op.Actor
		c.ApprovedAt = op.TS
	case *model.ReopenPayload:
		c.State = model.StateReopened
		c.Owner = ""
		c.Evidence = ""
		c.ClosedBy = ""
		c.DuplicateOf = ""
		c.ReopenedAt = op.TS
		c.ReopenReason = p.Reason
	case *model.ClosePayload:
		c.Owner = ""
		c.ClosedBy = op.Actor
		if p.DuplicateOf != "" {
			c.State = model.StateClosedDuplicate
			c.DuplicateOf = p.DuplicateOf
			c.Evidence = ""
		} else {
			c.State = model.StateClosed
			c.Evidence = p.Evidence
		}
	}
}

func newCommitment(op *model.Operation) *model.Commitment {
	p, _ := op.Payload.(*model.CommitPayload)
	if p == nil {
		p = &model.CommitPayload{}
	}
	return &model.Commitment{
		ID:          op.ID,
		Body:        p.Body,
		Source:      p.Source,
		State:       model.StateOpen,
		Actor:       op.Actor,
		TS:          op.TS,
		Tags:        p.Tags,
		Meta:        p.Meta,
		Annotations: []model.Annotation{},
	}
}

// CommitmentStatus replays every lifecycle operation targeting id and
// returns the resulting projection. The zero Commitment with State open is
// returned for ids that were never committed.
func CommitmentStatus(ops []model.Operation, id string) model.Commitment {
	c := model.Commitment{ID: id, State: model.StateOpen, Annotations: []model.Annotation{}}
	for i := range ops {
		op := &ops[i]
		if op.Op == model.KindCommit && op.ID == id {
			c = *newCommitment(op)
			continue
		}
		if op.CommitmentRef() == id {
			apply(&c, op)
		}
	}
	return c
}

// Commitments projects every commitment in commit order.
func Commitments(ops []model.Operation) []model.Commitment {
	byID := make(map[string]*model.Commitment)
	var order []string
	for i := range ops {
		op := &ops[i]
		switch {
		case op.Op == model.KindCommit:
			if _, dup := byID[op.ID]; dup {
				continue
			}
			byID[op.ID] = newCommitment(op)
			order = append(order, op.ID)
		case op.Op == model.KindAnnotate:
			if p, ok := op.Payload.(*model.AnnotatePayload); ok {
				if c, found := byID[p.Target]; found {
					c.Annotations = append(c.Annotations, annotationOf(op, p))
				}
			}
		default:
			if c, found := byID[op.CommitmentRef()]; found {
				apply(c, op)
			}
		}
	}
	out := make([]model.Commitment, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// GetCommitment returns the projection of one commitment.
func GetCommitment(ops []model.Operation, id string) (model.Commitment, bool) {
	if !CommitmentExists(ops, id) {
		return model.Commitment{}, false
	}
	c := CommitmentStatus(ops, id)
	c.Annotations = Annotations(ops, id)
	return c, true
}

// HasClaim reports whether any claim operation targets the commitment.
func HasClaim(ops []model.Operation, id string) bool {
	for i := range ops {
		if p, ok := ops[i].Payload.(*model.ClaimPayload); ok && p.Commitment == id {
			return true
		}
	}
	return false
}

// LinkedMemories lists memories linked to the commitment, in ledger order.
func LinkedMemories(ops []model.Operation, id string) []string {
	return linkedSources(ops, id, model.PrefixMemory)
}

// LinkedCommitments lists commitments linked to the commitment, in ledger order.
func LinkedCommitments(ops []model.Operation, id string) []string {
	return linkedSources(ops, id, model.PrefixCommitment)
}

func linkedSources(ops []model.Operation, target, prefix string) []string {
	var out []string
	for i := range ops {
		p, ok := ops[i].Payload.(*model.LinkPayload)
		if ok && p.Target == target && model.PrefixOf(p.Source) == prefix {
			out = append(out, p.Source)
		}
	}
	return out
}

// Duplicates lists commitments closed as duplicates of id.
func Duplicates(ops []model.Operation, id string) []string {
	var out []string
	for i := range ops {
		p, ok := ops[i].Payload.(*model.ClosePayload)
		if ok && p.DuplicateOf == id {
			out = append(out, p.Commitment)
		}
	}
	return out
}
