// Package validate decides whether a candidate operation may be appended to
// a ledger. Validation is a pure function of the candidate, the ledger so far
// and the optional genesis key: it performs no I/O and returns rejections as
// values.
//
// Checks run in a fixed order and the first failure wins:
//
//  1. envelope completeness (id, op, ts, actor)
//  2. id uniqueness
//  3. source key uniqueness
//  4. genesis permissions
//  5. kind-specific payload, reference and state checks
//  6. genesis constraints (close and approve only)
//
// An unrecognized kind is rejected with E_INVALID_OP.
package validate

import (
	"fmt"
	"strings"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/genesis"
	"github.com/roach88/mentu/internal/ledger"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// DefaultPathPrefixes are the workspace-relative prefixes a capture path may
// use when none are configured.
var DefaultPathPrefixes = []string{"docs/", ".claude/"}

// Result is the outcome of validating one operation.
type Result struct {
	Accepted  bool          `json:"accepted"`
	Rejection *apperr.Error `json:"rejection,omitempty"`
}

// Err returns the rejection as an error, or nil when accepted.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	return r.Rejection
}

func accept() Result { return Result{Accepted: true} }

func reject(err *apperr.Error) Result { return Result{Rejection: err} }

// Validator holds the settings validation depends on. The zero value is
// ready to use.
type Validator struct {
	// PathPrefixes restricts capture paths. Empty means DefaultPathPrefixes.
	PathPrefixes []string
}

// New returns a Validator restricting capture paths to prefixes.
func New(prefixes ...string) *Validator {
	return &Validator{PathPrefixes: prefixes}
}

// Validate checks op against ops (the ledger before op) and key (nil when the
// workspace has no genesis key).
func (v *Validator) Validate(op model.Operation, ops []model.Operation, key *genesis.Key) Result {
	if err := v.validate(&op, ops, key); err != nil {
		return reject(err)
	}
	return accept()
}

// Validate checks op with a zero Validator.
func Validate(op model.Operation, ops []model.Operation, key *genesis.Key) Result {
	var v Validator
	return v.Validate(op, ops, key)
}

func (v *Validator) validate(op *model.Operation, ops []model.Operation, key *genesis.Key) *apperr.Error {
	for _, f := range []struct{ name, value string }{
		{"id", op.ID},
		{"op", string(op.Op)},
		{"ts", op.TS},
		{"actor", op.Actor},
	} {
		if f.value == "" {
			return missing(f.name)
		}
	}
	if ledger.IDExists(ops, op.ID) {
		return apperr.Newf(apperr.CodeDuplicateID, "ID %s already exists", op.ID).
			With("id", op.ID)
	}
	if op.SourceKey != "" && ledger.SourceKeyExists(ops, op.SourceKey) {
		return apperr.Newf(apperr.CodeDuplicateSourceKey, "Source key %s already exists", op.SourceKey).
			With("source_key", op.SourceKey)
	}
	if !key.HasPermission(op.Actor, op.Op) {
		return apperr.Newf(apperr.CodePermissionDenied, "Actor %s is not permitted to perform %s", op.Actor, op.Op).
			With("actor", op.Actor).
			With("operation", string(op.Op))
	}

	payload := op.Payload
	if payload == nil {
		payload = model.NewPayload(op.Op)
	}
	if payload != nil && payload.Op() != op.Op {
		return apperr.Newf(apperr.CodeInvalidOp, "Payload for %s does not match operation %s", payload.Op(), op.Op).
			With("field", "payload")
	}

	switch p := payload.(type) {
	case *model.CapturePayload:
		return v.capture(p)
	case *model.CommitPayload:
		return commit(p, ops)
	case *model.ClaimPayload:
		return claim(op.Actor, p, ops)
	case *model.ReleasePayload:
		return release(op.Actor, p, ops)
	case *model.ClosePayload:
		return closeCommitment(op.Actor, p, ops, key)
	case *model.AnnotatePayload:
		return annotate(p, ops)
	case *model.LinkPayload:
		return link(p, ops)
	case *model.DismissPayload:
		return dismiss(p, ops)
	case *model.TriagePayload:
		return triage(p, ops)
	case *model.SubmitPayload:
		return submit(op.Actor, p, ops)
	case *model.ApprovePayload:
		return approve(op.Actor, p, ops, key)
	case *model.ReopenPayload:
		return reopen(p, ops)
	default:
		return apperr.Newf(apperr.CodeInvalidOp, "Unknown operation type: %s", op.Op).
			With("op", string(op.Op))
	}
}

func missing(field string) *apperr.Error {
	return apperr.Newf(apperr.CodeMissingField, "Missing field: %s", field).With("field", field)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func emptyBody() *apperr.Error {
	return apperr.New(apperr.CodeEmptyBody, "Body cannot be empty").With("field", "body")
}

func refNotFound(field, value, format string) *apperr.Error {
	return apperr.Newf(apperr.CodeRefNotFound, format, value).
		With("field", field).
		With("value", value)
}

func (v *Validator) prefixes() []string {
	if len(v.PathPrefixes) == 0 {
		return DefaultPathPrefixes
	}
	return v.PathPrefixes
}

// ValidPath reports whether path is workspace-relative and under one of the
// allowed prefixes.
func (v *Validator) ValidPath(path string) bool {
	if strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return false
	}
	for _, p := range v.prefixes() {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (v *Validator) capture(p *model.CapturePayload) *apperr.Error {
	if blank(p.Body) {
		return emptyBody()
	}
	if p.Path != "" && !v.ValidPath(p.Path) {
		return apperr.Newf(apperr.CodeInvalidOp, "Path must be relative and start with %s", strings.Join(v.prefixes(), " or ")).
			With("field", "path").
			With("value", p.Path)
	}
	for _, ref := range p.Refs {
		if !model.ValidRef(ref) {
			return apperr.Newf(apperr.CodeInvalidOp, "Invalid ref format: %s", ref).
				With("field", "refs").
				With("value", ref)
		}
	}
	return nil
}

func commit(p *model.CommitPayload, ops []model.Operation) *apperr.Error {
	if blank(p.Body) {
		return emptyBody()
	}
	if p.Source == "" {
		return missing("source")
	}
	if !state.MemoryExists(ops, p.Source) {
		return refNotFound("source", p.Source, "Source memory %s does not exist")
	}
	return nil
}

// lookup resolves the target commitment of a lifecycle operation.
func lookup(id string, ops []model.Operation) (model.Commitment, *apperr.Error) {
	if id == "" {
		return model.Commitment{}, missing("commitment")
	}
	if !state.CommitmentExists(ops, id) {
		return model.Commitment{}, refNotFound("commitment", id, "Commitment %s does not exist")
	}
	return state.CommitmentStatus(ops, id), nil
}

// active rejects closed and in-review commitments for claim, release and
// close.
func active(c *model.Commitment) *apperr.Error {
	if c.State.Closed() {
		return apperr.Newf(apperr.CodeAlreadyClosed, "Commitment %s is closed", c.ID).
			With("commitment", c.ID).
			With("state", string(c.State))
	}
	if c.State == model.StateInReview {
		return apperr.Newf(apperr.CodeInvalidOp, "Commitment %s is in review", c.ID).
			With("commitment", c.ID).
			With("state", string(c.State))
	}
	return nil
}

func claim(actor string, p *model.ClaimPayload, ops []model.Operation) *apperr.Error {
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if err := active(&c); err != nil {
		return err
	}
	if c.Owner != "" && c.Owner != actor {
		return apperr.Newf(apperr.CodeAlreadyClaimed, "Commitment %s is claimed by %s", c.ID, c.Owner).
			With("commitment", c.ID).
			With("owner", c.Owner)
	}
	return nil
}

func release(actor string, p *model.ReleasePayload, ops []model.Operation) *apperr.Error {
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if err := active(&c); err != nil {
		return err
	}
	if c.Owner != actor {
		return apperr.Newf(apperr.CodeNotOwner, "Actor %s is not the owner of commitment %s", actor, c.ID).
			With("commitment", c.ID).
			With("owner", c.Owner).
			With("actor", actor)
	}
	return nil
}

func closeCommitment(actor string, p *model.ClosePayload, ops []model.Operation, key *genesis.Key) *apperr.Error {
	if p.Commitment == "" {
		return missing("commitment")
	}
	hasEvidence, hasDuplicate := p.Evidence != "", p.DuplicateOf != ""
	switch {
	case !hasEvidence && !hasDuplicate:
		return apperr.New(apperr.CodeMissingField, "Missing field: evidence or duplicate_of").
			With("field", "evidence")
	case hasEvidence && hasDuplicate:
		return apperr.New(apperr.CodeInvalidOp, "Cannot specify both evidence and duplicate_of")
	}
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if err := active(&c); err != nil {
		return err
	}
	if hasEvidence && !state.MemoryExists(ops, p.Evidence) {
		return refNotFound("evidence", p.Evidence, "Evidence memory %s does not exist")
	}
	if hasDuplicate {
		if !state.CommitmentExists(ops, p.DuplicateOf) {
			return refNotFound("duplicate_of", p.DuplicateOf, "Duplicate target commitment %s does not exist")
		}
		if p.DuplicateOf == p.Commitment {
			return apperr.New(apperr.CodeInvalidOp, "Cannot close a commitment as a duplicate of itself").
				With("field", "duplicate_of")
		}
		if c.Owner != "" && c.Owner != actor {
			return apperr.Newf(apperr.CodeNotOwner, "Cannot close as duplicate: commitment is claimed by %s", c.Owner).
				With("commitment", c.ID).
				With("owner", c.Owner)
		}
	}
	return constraint(key.CheckConstraints(&c, actor, ops))
}

func constraint(v *genesis.Violation) *apperr.Error {
	if v == nil {
		return nil
	}
	return apperr.New(apperr.CodeConstraintViolated, v.Message).With("constraint", v.Constraint)
}

func annotate(p *model.AnnotatePayload, ops []model.Operation) *apperr.Error {
	if p.Target == "" {
		return missing("target")
	}
	if blank(p.Body) {
		return emptyBody()
	}
	if !state.RecordExists(ops, p.Target) {
		return refNotFound("target", p.Target, "Target %s does not exist")
	}
	return nil
}

func link(p *model.LinkPayload, ops []model.Operation) *apperr.Error {
	if p.Source == "" {
		return missing("source")
	}
	if p.Target == "" {
		return missing("target")
	}
	if !state.RecordExists(ops, p.Source) {
		return refNotFound("source", p.Source, "Source %s does not exist")
	}
	if !state.CommitmentExists(ops, p.Target) {
		return refNotFound("target", p.Target, "Target commitment %s does not exist")
	}
	if p.Source == p.Target {
		return apperr.New(apperr.CodeInvalidOp, "Cannot link to self")
	}
	if p.Kind != "" && !p.Kind.Valid() {
		return apperr.Newf(apperr.CodeInvalidOp, "Invalid link kind: %s. Valid kinds: %s", p.Kind, linkKindList()).
			With("field", "kind").
			With("value", string(p.Kind))
	}
	return nil
}

func linkKindList() string {
	names := make([]string, len(model.LinkKinds))
	for i, k := range model.LinkKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func dismiss(p *model.DismissPayload, ops []model.Operation) *apperr.Error {
	if p.Memory == "" {
		return missing("memory")
	}
	if blank(p.Reason) {
		return apperr.New(apperr.CodeMissingField, "Dismiss requires a reason").With("field", "reason")
	}
	if !state.MemoryExists(ops, p.Memory) {
		return refNotFound("memory", p.Memory, "Memory %s does not exist")
	}
	if state.IsMemorySourceOfCommitment(ops, p.Memory) {
		return apperr.Newf(apperr.CodeConstraintViolated, "Cannot dismiss %s: it is the source of a commitment", p.Memory).
			With("memory", p.Memory)
	}
	return nil
}

func triage(p *model.TriagePayload, ops []model.Operation) *apperr.Error {
	if len(p.Reviewed) == 0 {
		return missing("reviewed")
	}
	if blank(p.Summary) {
		return missing("summary")
	}
	for _, id := range p.Reviewed {
		if !state.MemoryExists(ops, id) {
			return refNotFound("reviewed", id, "Reviewed memory %s does not exist")
		}
	}
	for i, d := range p.Decisions {
		if !d.Action.Valid() {
			return apperr.Newf(apperr.CodeInvalidOp, "Invalid triage action: %s", d.Action).
				With("field", fmt.Sprintf("decisions[%d].action", i)).
				With("value", string(d.Action))
		}
	}
	return nil
}

func submit(actor string, p *model.SubmitPayload, ops []model.Operation) *apperr.Error {
	if p.Commitment == "" {
		return missing("commitment")
	}
	if len(p.Evidence) == 0 {
		return missing("evidence")
	}
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if c.State != model.StateClaimed {
		return apperr.Newf(apperr.CodeInvalidOp, "Commitment must be claimed to submit (current: %s)", c.State).
			With("commitment", c.ID).
			With("state", string(c.State))
	}
	if c.Owner != actor {
		return apperr.Newf(apperr.CodeNotOwner, "Only owner %s can submit", c.Owner).
			With("commitment", c.ID).
			With("owner", c.Owner).
			With("actor", actor)
	}
	for _, id := range p.Evidence {
		if !state.MemoryExists(ops, id) {
			return refNotFound("evidence", id, "Evidence %s not found")
		}
	}
	return nil
}

func approve(actor string, p *model.ApprovePayload, ops []model.Operation, key *genesis.Key) *apperr.Error {
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if c.State != model.StateInReview {
		return apperr.Newf(apperr.CodeInvalidOp, "Commitment must be in_review to approve (current: %s)", c.State).
			With("commitment", c.ID).
			With("state", string(c.State))
	}
	return constraint(key.CheckHuman(model.KindApprove, &c, actor, ops))
}

func reopen(p *model.ReopenPayload, ops []model.Operation) *apperr.Error {
	if p.Commitment == "" {
		return missing("commitment")
	}
	if blank(p.Reason) {
		return missing("reason")
	}
	c, err := lookup(p.Commitment, ops)
	if err != nil {
		return err
	}
	if c.State != model.StateInReview && !c.State.Closed() {
		return apperr.Newf(apperr.CodeInvalidOp, "Commitment must be in_review or closed to reopen (current: %s)", c.State).
			With("commitment", c.ID).
			With("state", string(c.State))
	}
	return nil
}
