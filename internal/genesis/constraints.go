package genesis

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// Constraint names reported in violations.
const (
	ConstraintRequireClaim      = "require_claim"
	ConstraintRequireValidation = "require_validation"
	ConstraintRequireHuman      = "require_human"
)

// Constraints gate closing (and, for require_human, approving) commitments.
type Constraints struct {
	RequireClaim      []ClaimRule      `yaml:"require_claim,omitempty"`
	RequireValidation []ValidationRule `yaml:"require_validation,omitempty"`
	RequireHuman      []HumanRule      `yaml:"require_human,omitempty"`
}

// ClaimRule requires a prior claim on matching commitments.
type ClaimRule struct {
	Match Match `yaml:"match"`
}

// ValidationRule requires an approved validation record for matching
// commitments, optionally authored by an actor matching Validator.
type ValidationRule struct {
	Match     Match  `yaml:"match"`
	Validator string `yaml:"validator,omitempty"`
}

// HumanRule forbids automated actors from performing Operation on matching
// commitments.
type HumanRule struct {
	Operation model.Kind `yaml:"operation"`
	Match     Match      `yaml:"match"`
}

// Match gates a rule. The scalar "all" always applies. A mapping applies
// when every present field holds; a mapping with no recognized field never
// applies, so a malformed rule cannot enforce itself on everything.
type Match struct {
	All        bool
	Tags       []string
	Actor      string
	SourceKind string
}

// UnmarshalYAML decodes "all" or a {tags, actor, source_kind} mapping. Any
// other scalar decodes to a match that never applies.
func (m *Match) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*m = Match{All: n.Value == "all"}
		return nil
	case yaml.MappingNode:
		var fields struct {
			Tags       []string `yaml:"tags"`
			Actor      string   `yaml:"actor"`
			SourceKind string   `yaml:"source_kind"`
		}
		if err := n.Decode(&fields); err != nil {
			return err
		}
		*m = Match{Tags: fields.Tags, Actor: fields.Actor, SourceKind: fields.SourceKind}
		return nil
	default:
		return fmt.Errorf("line %d: match must be \"all\" or a mapping", n.Line)
	}
}

// MarshalYAML writes the match in its document form.
func (m Match) MarshalYAML() (any, error) {
	if m.All {
		return "all", nil
	}
	out := map[string]any{}
	if len(m.Tags) > 0 {
		out["tags"] = m.Tags
	}
	if m.Actor != "" {
		out["actor"] = m.Actor
	}
	if m.SourceKind != "" {
		out["source_kind"] = m.SourceKind
	}
	return out, nil
}

// empty reports whether no recognized field is present.
func (m Match) empty() bool {
	return !m.All && len(m.Tags) == 0 && m.Actor == "" && m.SourceKind == ""
}

// Applies reports whether the rule gated by m covers c.
func (m Match) Applies(c *model.Commitment, ops []model.Operation) bool {
	if m.All {
		return true
	}
	if m.empty() {
		return false
	}
	for _, tag := range m.Tags {
		if !c.HasTag(tag) {
			return false
		}
	}
	if m.Actor != "" && !MatchActor(m.Actor, c.Actor) {
		return false
	}
	if m.SourceKind != "" {
		src, ok := state.GetMemory(ops, c.Source)
		if !ok || src.Kind != m.SourceKind {
			return false
		}
	}
	return true
}

// Violation names the constraint that failed.
type Violation struct {
	Constraint string
	Message    string
}

// CheckConstraints evaluates every close constraint for c, in the order
// require_claim, require_validation, require_human. It returns nil when all
// applicable constraints are satisfied.
func (k *Key) CheckConstraints(c *model.Commitment, actor string, ops []model.Operation) *Violation {
	if k == nil || k.Constraints == nil {
		return nil
	}
	for _, rule := range k.Constraints.RequireClaim {
		if rule.Match.Applies(c, ops) && !state.HasClaim(ops, c.ID) {
			return &Violation{
				Constraint: ConstraintRequireClaim,
				Message:    "Must claim commitment before closing",
			}
		}
	}
	for _, rule := range k.Constraints.RequireValidation {
		if rule.Match.Applies(c, ops) && !hasValidation(c.ID, rule.Validator, ops) {
			return &Violation{
				Constraint: ConstraintRequireValidation,
				Message:    "Commitment requires validation before close",
			}
		}
	}
	return k.CheckHuman(model.KindClose, c, actor, ops)
}

// CheckHuman evaluates require_human rules configured for kind.
func (k *Key) CheckHuman(kind model.Kind, c *model.Commitment, actor string, ops []model.Operation) *Violation {
	if k == nil || k.Constraints == nil || !model.IsAutomated(actor) {
		return nil
	}
	for _, rule := range k.Constraints.RequireHuman {
		if rule.Operation == kind && rule.Match.Applies(c, ops) {
			return &Violation{
				Constraint: ConstraintRequireHuman,
				Message:    fmt.Sprintf("%s commitments require a human to %s", subjectOf(c), kind),
			}
		}
	}
	return nil
}

func subjectOf(c *model.Commitment) string {
	if len(c.Tags) == 0 || c.Tags[0] == "" {
		return "These"
	}
	tag := c.Tags[0]
	return strings.ToUpper(tag[:1]) + tag[1:]
}

// hasValidation looks for an approved validation record for id: a capture of
// kind "validation" that references id (refs or meta.validates), or an
// annotation of kind "validation" on id, carrying meta.approved or
// meta.passed set to true.
func hasValidation(id, validator string, ops []model.Operation) bool {
	if validator == "" {
		validator = "*"
	}
	for i := range ops {
		op := &ops[i]
		if !MatchActor(validator, op.Actor) {
			continue
		}
		switch p := op.Payload.(type) {
		case *model.CapturePayload:
			if p.Kind != "validation" {
				continue
			}
			if (contains(p.Refs, id) || p.Meta["validates"] == id) && approved(p.Meta) {
				return true
			}
		case *model.AnnotatePayload:
			if p.Kind == "validation" && p.Target == id && approved(p.Meta) {
				return true
			}
		}
	}
	return false
}

func approved(meta map[string]any) bool {
	return meta["approved"] == true || meta["passed"] == true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
