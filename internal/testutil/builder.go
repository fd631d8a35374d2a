package testutil

import (
	"github.com/roach88/mentu/internal/model"
)

// LedgerBuilder assembles operation sequences for tests with deterministic
// ids and timestamps. Builder methods append to the sequence and return the
// new operation's id.
type LedgerBuilder struct {
	Workspace string
	clock     *DeterministicClock
	ids       *SequentialIDs
	ops       []model.Operation
}

// NewLedgerBuilder creates an empty builder for workspace "test".
func NewLedgerBuilder() *LedgerBuilder {
	return &LedgerBuilder{
		Workspace: "test",
		clock:     NewDeterministicClock(),
		ids:       NewSequentialIDs(),
	}
}

// Ops returns a copy of the operations built so far.
func (b *LedgerBuilder) Ops() []model.Operation {
	out := make([]model.Operation, len(b.ops))
	copy(out, b.ops)
	return out
}

// Build returns a candidate operation without appending it.
func (b *LedgerBuilder) Build(actor string, payload model.Payload) model.Operation {
	kind := payload.Op()
	return model.Operation{
		ID:        b.ids.New(model.IDPrefix(kind)),
		Op:        kind,
		TS:        model.Timestamp(b.clock.Now()),
		Actor:     actor,
		Workspace: b.Workspace,
		Payload:   payload,
	}
}

// Add appends an operation built from payload and returns its id.
func (b *LedgerBuilder) Add(actor string, payload model.Payload) string {
	op := b.Build(actor, payload)
	b.ops = append(b.ops, op)
	return op.ID
}

// Append appends a prebuilt operation verbatim.
func (b *LedgerBuilder) Append(op model.Operation) {
	b.ops = append(b.ops, op)
}

// Capture appends a capture and returns the memory id.
func (b *LedgerBuilder) Capture(actor, body string) string {
	return b.Add(actor, &model.CapturePayload{Body: body})
}

// Commit appends a commit sourced from memory and returns the commitment id.
func (b *LedgerBuilder) Commit(actor, body, source string, tags ...string) string {
	return b.Add(actor, &model.CommitPayload{Body: body, Source: source, Tags: tags})
}

// Claim appends a claim.
func (b *LedgerBuilder) Claim(actor, commitment string) string {
	return b.Add(actor, &model.ClaimPayload{Commitment: commitment})
}

// Release appends a release.
func (b *LedgerBuilder) Release(actor, commitment string) string {
	return b.Add(actor, &model.ReleasePayload{Commitment: commitment})
}

// CloseWithEvidence appends an evidence close.
func (b *LedgerBuilder) CloseWithEvidence(actor, commitment, evidence string) string {
	return b.Add(actor, &model.ClosePayload{Commitment: commitment, Evidence: evidence})
}

// CloseAsDuplicate appends a duplicate close.
func (b *LedgerBuilder) CloseAsDuplicate(actor, commitment, duplicateOf string) string {
	return b.Add(actor, &model.ClosePayload{Commitment: commitment, DuplicateOf: duplicateOf})
}

// Submit appends a submit with the given evidence.
func (b *LedgerBuilder) Submit(actor, commitment string, evidence ...string) string {
	return b.Add(actor, &model.SubmitPayload{Commitment: commitment, Evidence: evidence})
}

// Approve appends an approve.
func (b *LedgerBuilder) Approve(actor, commitment string) string {
	return b.Add(actor, &model.ApprovePayload{Commitment: commitment})
}

// Reopen appends a reopen.
func (b *LedgerBuilder) Reopen(actor, commitment, reason string) string {
	return b.Add(actor, &model.ReopenPayload{Commitment: commitment, Reason: reason})
}

// Annotate appends an annotation.
func (b *LedgerBuilder) Annotate(actor, target, body string) string {
	return b.Add(actor, &model.AnnotatePayload{Target: target, Body: body})
}

// Link appends a link.
func (b *LedgerBuilder) Link(actor, source, target string, kind model.LinkKind) string {
	return b.Add(actor, &model.LinkPayload{Source: source, Target: target, Kind: kind})
}

// Dismiss appends a dismiss.
func (b *LedgerBuilder) Dismiss(actor, memory, reason string) string {
	return b.Add(actor, &model.DismissPayload{Memory: memory, Reason: reason})
}
