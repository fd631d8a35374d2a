package workspace

import (
	"time"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
)

// Request is the flat description of an operation accepted by the HTTP API
// and built by CLI commands. Only the fields relevant to Op are used.
type Request struct {
	Op          model.Kind                   `json:"op"`
	SourceKey   string                       `json:"source_key,omitempty"`
	Body        string                       `json:"body,omitempty"`
	Kind        string                       `json:"kind,omitempty"`
	Path        string                       `json:"path,omitempty"`
	Refs        []string                     `json:"refs,omitempty"`
	Meta        map[string]any               `json:"meta,omitempty"`
	Source      string                       `json:"source,omitempty"`
	Tags        []string                     `json:"tags,omitempty"`
	Commitment  string                       `json:"commitment,omitempty"`
	Evidence    model.IDList                 `json:"evidence,omitempty"`
	DuplicateOf string                       `json:"duplicate_of,omitempty"`
	Target      string                       `json:"target,omitempty"`
	Reason      string                       `json:"reason,omitempty"`
	Memory      string                       `json:"memory,omitempty"`
	Reviewed    []string                     `json:"reviewed,omitempty"`
	Summary     string                       `json:"summary,omitempty"`
	Decisions   []model.TriageDecision       `json:"decisions,omitempty"`
	Validation  map[string]model.CheckResult `json:"validation,omitempty"`
	Tier        string                       `json:"tier,omitempty"`
	Comment     string                       `json:"comment,omitempty"`
	Auto        bool                         `json:"auto,omitempty"`
	FromState   model.CommitmentState        `json:"from_state,omitempty"`
}

// Build turns a request into an operation with a fresh id and timestamp.
// The actor is supplied by the caller, never by the request. Build does not
// validate beyond recognizing the kind.
func Build(req Request, actor, workspace string, now time.Time) (model.Operation, error) {
	if req.Op == "" {
		return model.Operation{}, apperr.New(apperr.CodeMissingField, "Missing field: op").With("field", "op")
	}
	payload, err := payloadOf(&req)
	if err != nil {
		return model.Operation{}, err
	}
	op := model.Operation{
		ID:        model.NewID(model.IDPrefix(req.Op)),
		Op:        req.Op,
		TS:        model.Timestamp(now),
		Actor:     actor,
		Workspace: workspace,
		Payload:   payload,
	}
	if req.Op == model.KindCapture {
		op.SourceKey = req.SourceKey
	}
	return op, nil
}

func payloadOf(req *Request) (model.Payload, error) {
	switch req.Op {
	case model.KindCapture:
		return &model.CapturePayload{Body: req.Body, Kind: req.Kind, Path: req.Path, Refs: req.Refs, Meta: req.Meta}, nil
	case model.KindCommit:
		return &model.CommitPayload{Body: req.Body, Source: req.Source, Tags: req.Tags, Meta: req.Meta}, nil
	case model.KindClaim:
		return &model.ClaimPayload{Commitment: req.Commitment}, nil
	case model.KindRelease:
		return &model.ReleasePayload{Commitment: req.Commitment, Reason: req.Reason}, nil
	case model.KindClose:
		p := &model.ClosePayload{Commitment: req.Commitment, DuplicateOf: req.DuplicateOf}
		if len(req.Evidence) > 0 {
			p.Evidence = req.Evidence[0]
		}
		return p, nil
	case model.KindAnnotate:
		return &model.AnnotatePayload{Target: req.Target, Body: req.Body, Kind: req.Kind, Refs: req.Refs, Meta: req.Meta}, nil
	case model.KindLink:
		return &model.LinkPayload{Source: req.Source, Target: req.Target, Kind: model.LinkKind(req.Kind), Reason: req.Reason}, nil
	case model.KindDismiss:
		return &model.DismissPayload{Memory: req.Memory, Reason: req.Reason, Tags: req.Tags}, nil
	case model.KindTriage:
		return &model.TriagePayload{Reviewed: req.Reviewed, Summary: req.Summary, Decisions: req.Decisions}, nil
	case model.KindSubmit:
		return &model.SubmitPayload{Commitment: req.Commitment, Evidence: req.Evidence, Summary: req.Summary, Tier: req.Tier, Validation: req.Validation}, nil
	case model.KindApprove:
		return &model.ApprovePayload{Commitment: req.Commitment, Comment: req.Comment, Auto: req.Auto, Tier: req.Tier}, nil
	case model.KindReopen:
		return &model.ReopenPayload{Commitment: req.Commitment, Reason: req.Reason, FromState: req.FromState}, nil
	default:
		return nil, apperr.Newf(apperr.CodeInvalidOp, "Unknown operation type: %s", req.Op).With("op", string(req.Op))
	}
}
