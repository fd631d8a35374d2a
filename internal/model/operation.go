package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation is the only persisted unit of the ledger: a fixed envelope plus a
// kind-specific payload. Operations are immutable once appended.
type Operation struct {
	ID        string  `json:"id"`
	Op        Kind    `json:"op"`
	TS        string  `json:"ts"`
	Actor     string  `json:"actor"`
	Workspace string  `json:"workspace"`
	SourceKey string  `json:"source_key,omitempty"`
	Payload   Payload `json:"payload"`
}

// Payload is implemented by the twelve payload variants and by RawPayload.
type Payload interface {
	Op() Kind
}

// CapturePayload records a new memory.
type CapturePayload struct {
	Body string         `json:"body"`
	Kind string         `json:"kind,omitempty"`
	Path string         `json:"path,omitempty"`
	Refs []string       `json:"refs,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// CommitPayload records a new commitment derived from a memory.
type CommitPayload struct {
	Body   string         `json:"body"`
	Source string         `json:"source"`
	Tags   []string       `json:"tags,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ClaimPayload takes ownership of a commitment.
type ClaimPayload struct {
	Commitment string `json:"commitment"`
}

// ReleasePayload gives up ownership of a commitment.
type ReleasePayload struct {
	Commitment string `json:"commitment"`
	Reason     string `json:"reason,omitempty"`
}

// ClosePayload closes a commitment with evidence or as a duplicate.
// Exactly one of Evidence and DuplicateOf must be set.
type ClosePayload struct {
	Commitment  string `json:"commitment"`
	Evidence    string `json:"evidence,omitempty"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// AnnotatePayload attaches a note to a memory or commitment.
type AnnotatePayload struct {
	Target string         `json:"target"`
	Body   string         `json:"body"`
	Kind   string         `json:"kind,omitempty"`
	Refs   []string       `json:"refs,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// LinkPayload relates a memory or commitment to a commitment.
type LinkPayload struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"kind,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// LinkKindOrDefault returns the link kind, defaulting to related.
func (p *LinkPayload) LinkKindOrDefault() LinkKind {
	if p.Kind == "" {
		return LinkRelated
	}
	return p.Kind
}

// DismissPayload marks a memory as not worth acting on.
type DismissPayload struct {
	Memory string   `json:"memory"`
	Reason string   `json:"reason"`
	Tags   []string `json:"tags,omitempty"`
}

// TriageDecision is the outcome for one reviewed memory.
type TriageDecision struct {
	Memory string       `json:"memory"`
	Action TriageAction `json:"action"`
	Target string       `json:"target,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// TriagePayload records a reviewed batch of memories.
type TriagePayload struct {
	Reviewed  []string         `json:"reviewed"`
	Summary   string           `json:"summary"`
	Decisions []TriageDecision `json:"decisions,omitempty"`
}

// CheckResult is one named validation outcome carried by a submit.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// SubmitPayload moves a claimed commitment into review.
type SubmitPayload struct {
	Commitment string                 `json:"commitment"`
	Evidence   IDList                 `json:"evidence"`
	Summary    string                 `json:"summary,omitempty"`
	Tier       string                 `json:"tier,omitempty"`
	Validation map[string]CheckResult `json:"validation,omitempty"`
}

// ApprovePayload closes a commitment that is in review.
type ApprovePayload struct {
	Commitment string `json:"commitment"`
	Comment    string `json:"comment,omitempty"`
	Auto       bool   `json:"auto,omitempty"`
	Tier       string `json:"tier,omitempty"`
}

// ReopenPayload disputes a reviewed or closed commitment.
type ReopenPayload struct {
	Commitment string          `json:"commitment"`
	Reason     string          `json:"reason"`
	FromState  CommitmentState `json:"from_state,omitempty"`
}

// RawPayload holds the payload of an operation whose kind is not recognized.
// It survives a read/write round trip so the validator can reject it by kind.
type RawPayload struct {
	Kind Kind
	Data json.RawMessage
}

func (*CapturePayload) Op() Kind  { return KindCapture }
func (*CommitPayload) Op() Kind   { return KindCommit }
func (*ClaimPayload) Op() Kind    { return KindClaim }
func (*ReleasePayload) Op() Kind  { return KindRelease }
func (*ClosePayload) Op() Kind    { return KindClose }
func (*AnnotatePayload) Op() Kind { return KindAnnotate }
func (*LinkPayload) Op() Kind     { return KindLink }
func (*DismissPayload) Op() Kind  { return KindDismiss }
func (*TriagePayload) Op() Kind   { return KindTriage }
func (*SubmitPayload) Op() Kind   { return KindSubmit }
func (*ApprovePayload) Op() Kind  { return KindApprove }
func (*ReopenPayload) Op() Kind   { return KindReopen }
func (p *RawPayload) Op() Kind    { return p.Kind }

// MarshalJSON writes the raw payload unchanged.
func (p *RawPayload) MarshalJSON() ([]byte, error) {
	if len(p.Data) == 0 {
		return []byte("{}"), nil
	}
	return p.Data, nil
}

// NewPayload returns an empty payload for k, or nil if k is not recognized.
func NewPayload(k Kind) Payload {
	switch k {
	case KindCapture:
		return &CapturePayload{}
	case KindCommit:
		return &CommitPayload{}
	case KindClaim:
		return &ClaimPayload{}
	case KindRelease:
		return &ReleasePayload{}
	case KindClose:
		return &ClosePayload{}
	case KindAnnotate:
		return &AnnotatePayload{}
	case KindLink:
		return &LinkPayload{}
	case KindDismiss:
		return &DismissPayload{}
	case KindTriage:
		return &TriagePayload{}
	case KindSubmit:
		return &SubmitPayload{}
	case KindApprove:
		return &ApprovePayload{}
	case KindReopen:
		return &ReopenPayload{}
	default:
		return nil
	}
}

// UnmarshalJSON decodes the envelope, then the payload variant named by "op".
// A missing payload decodes to the empty variant; an unknown op keeps the raw
// payload bytes.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type envelope Operation
	var aux struct {
		envelope
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = Operation(aux.envelope)

	payload := NewPayload(o.Op)
	if payload == nil {
		o.Payload = &RawPayload{Kind: o.Op, Data: aux.Payload}
		return nil
	}
	if len(aux.Payload) > 0 && !bytes.Equal(aux.Payload, []byte("null")) {
		if err := json.Unmarshal(aux.Payload, payload); err != nil {
			return fmt.Errorf("%s payload: %w", o.Op, err)
		}
	}
	o.Payload = payload
	return nil
}

// CommitmentRef returns the commitment an operation transitions, or "" for
// kinds that do not target a commitment's lifecycle.
func (o *Operation) CommitmentRef() string {
	switch p := o.Payload.(type) {
	case *ClaimPayload:
		return p.Commitment
	case *ReleasePayload:
		return p.Commitment
	case *ClosePayload:
		return p.Commitment
	case *SubmitPayload:
		return p.Commitment
	case *ApprovePayload:
		return p.Commitment
	case *ReopenPayload:
		return p.Commitment
	default:
		return ""
	}
}

// IDList is a list of ids that also accepts a single string on decode.
type IDList []string

// UnmarshalJSON accepts either "id" or ["id", ...].
func (l *IDList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = IDList{s}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}
