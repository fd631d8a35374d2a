package state

import (
	"github.com/roach88/mentu/internal/model"
)

func annotationOf(op *model.Operation, p *model.AnnotatePayload) model.Annotation {
	return model.Annotation{ID: op.ID, Body: p.Body, Kind: p.Kind, Actor: op.Actor, TS: op.TS}
}

func newMemory(op *model.Operation) model.Memory {
	p, _ := op.Payload.(*model.CapturePayload)
	if p == nil {
		p = &model.CapturePayload{}
	}
	return model.Memory{
		ID:          op.ID,
		Body:        p.Body,
		Kind:        p.Kind,
		Path:        p.Path,
		Actor:       op.Actor,
		TS:          op.TS,
		Refs:        p.Refs,
		Meta:        p.Meta,
		Annotations: []model.Annotation{},
	}
}

// Annotations lists annotations targeting id, in ledger order.
func Annotations(ops []model.Operation, id string) []model.Annotation {
	out := []model.Annotation{}
	for i := range ops {
		if p, ok := ops[i].Payload.(*model.AnnotatePayload); ok && p.Target == id {
			out = append(out, annotationOf(&ops[i], p))
		}
	}
	return out
}

// Memories projects every memory in capture order.
func Memories(ops []model.Operation) []model.Memory {
	var out []model.Memory
	index := make(map[string]int)
	committed := make(map[string]bool)
	linked := make(map[string]bool)
	dismissed := make(map[string]bool)

	for i := range ops {
		op := &ops[i]
		switch p := op.Payload.(type) {
		case *model.CapturePayload:
			if _, dup := index[op.ID]; dup {
				continue
			}
			index[op.ID] = len(out)
			out = append(out, newMemory(op))
		case *model.AnnotatePayload:
			if idx, ok := index[p.Target]; ok {
				out[idx].Annotations = append(out[idx].Annotations, annotationOf(op, p))
			}
		case *model.CommitPayload:
			committed[p.Source] = true
		case *model.LinkPayload:
			linked[p.Source] = true
		case *model.DismissPayload:
			dismissed[p.Memory] = true
		}
	}
	for i := range out {
		out[i].State = memoryState(committed[out[i].ID], linked[out[i].ID], dismissed[out[i].ID])
	}
	if out == nil {
		out = []model.Memory{}
	}
	return out
}

// GetMemory returns the projection of one memory.
func GetMemory(ops []model.Operation, id string) (model.Memory, bool) {
	for i := range ops {
		if ops[i].Op == model.KindCapture && ops[i].ID == id {
			m := newMemory(&ops[i])
			m.Annotations = Annotations(ops, id)
			m.State = MemoryStatus(ops, id)
			return m, true
		}
	}
	return model.Memory{}, false
}

// MemoryStatus derives the triage state of a memory. Committed outranks
// linked, which outranks dismissed.
func MemoryStatus(ops []model.Operation, id string) model.MemoryState {
	var committed, linked, dismissed bool
	for i := range ops {
		switch p := ops[i].Payload.(type) {
		case *model.CommitPayload:
			committed = committed || p.Source == id
		case *model.LinkPayload:
			linked = linked || p.Source == id
		case *model.DismissPayload:
			dismissed = dismissed || p.Memory == id
		}
	}
	return memoryState(committed, linked, dismissed)
}

func memoryState(committed, linked, dismissed bool) model.MemoryState {
	switch {
	case committed:
		return model.MemoryCommitted
	case linked:
		return model.MemoryLinked
	case dismissed:
		return model.MemoryDismissed
	default:
		return model.MemoryUntriaged
	}
}

// IsMemoryDismissed reports whether any dismiss targets the memory.
func IsMemoryDismissed(ops []model.Operation, id string) bool {
	for i := range ops {
		if p, ok := ops[i].Payload.(*model.DismissPayload); ok && p.Memory == id {
			return true
		}
	}
	return false
}

// IsMemorySourceOfCommitment reports whether any commit names the memory as
// its source.
func IsMemorySourceOfCommitment(ops []model.Operation, id string) bool {
	for i := range ops {
		if p, ok := ops[i].Payload.(*model.CommitPayload); ok && p.Source == id {
			return true
		}
	}
	return false
}

// MemoryExists reports whether a capture with id exists.
func MemoryExists(ops []model.Operation, id string) bool {
	return exists(ops, id, model.KindCapture)
}

// CommitmentExists reports whether a commit with id exists.
func CommitmentExists(ops []model.Operation, id string) bool {
	return exists(ops, id, model.KindCommit)
}

// RecordExists reports whether id names a memory or a commitment.
func RecordExists(ops []model.Operation, id string) bool {
	return MemoryExists(ops, id) || CommitmentExists(ops, id)
}

func exists(ops []model.Operation, id string, k model.Kind) bool {
	for i := range ops {
		if ops[i].Op == k && ops[i].ID == id {
			return true
		}
	}
	return false
}
