package genesis

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mentu/internal/model"
)

// Permissions maps actors to the operation kinds they may perform.
type Permissions struct {
	Actors   ActorRules `yaml:"actors,omitempty"`
	Defaults *Defaults  `yaml:"defaults,omitempty"`
}

// Defaults are the fallback allow-lists.
type Defaults struct {
	Authenticated *OpList `yaml:"authenticated,omitempty"`
	Anonymous     *OpList `yaml:"anonymous,omitempty"`
}

// OpList is an allow-list of operation kinds. It decodes from either
// {operations: [...]} or a bare sequence.
type OpList struct {
	Operations []model.Kind `yaml:"operations"`
}

// UnmarshalYAML accepts both list forms.
func (l *OpList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		return n.Decode(&l.Operations)
	}
	type plain OpList
	return n.Decode((*plain)(l))
}

// Allows reports whether kind is in the list. A nil list allows nothing.
func (l *OpList) Allows(kind model.Kind) bool {
	if l == nil {
		return false
	}
	for _, k := range l.Operations {
		if k == kind {
			return true
		}
	}
	return false
}

// ActorRule grants an allow-list to actors matching Pattern.
type ActorRule struct {
	Pattern string
	Ops     OpList
}

// ActorRules keeps actor rules in declaration order.
type ActorRules []ActorRule

// UnmarshalYAML decodes a mapping of pattern to allow-list, preserving order.
func (r *ActorRules) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: permissions.actors must be a mapping", n.Line)
	}
	rules := make(ActorRules, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var rule ActorRule
		rule.Pattern = n.Content[i].Value
		if err := n.Content[i+1].Decode(&rule.Ops); err != nil {
			return fmt.Errorf("actor %q: %w", rule.Pattern, err)
		}
		rules = append(rules, rule)
	}
	*r = rules
	return nil
}

// MarshalYAML writes the rules back as an ordered mapping.
func (r ActorRules) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, rule := range r {
		var val yaml.Node
		if err := val.Encode(rule.Ops); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: rule.Pattern}, &val)
	}
	return n, nil
}

// MatchActor reports whether actor matches pattern, where * matches any run
// of characters. A pattern without * must equal actor.
func MatchActor(pattern, actor string) bool {
	if pattern == actor {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(actor)
}

// literalChars counts the non-wildcard characters of a pattern.
func literalChars(pattern string) int {
	return len(pattern) - strings.Count(pattern, "*")
}

// ResolveActor returns the allow-list governing actor: an exact pattern
// first, else the matching wildcard pattern with the most literal
// characters (first declared wins ties). ok is false when no rule matches.
func (p *Permissions) ResolveActor(actor string) (rule ActorRule, ok bool) {
	if p == nil {
		return ActorRule{}, false
	}
	for _, r := range p.Actors {
		if r.Pattern == actor {
			return r, true
		}
	}
	best := -1
	for _, r := range p.Actors {
		if !strings.Contains(r.Pattern, "*") || !MatchActor(r.Pattern, actor) {
			continue
		}
		if score := literalChars(r.Pattern); score > best {
			best = score
			rule = r
		}
	}
	return rule, best >= 0
}

// HasPermission reports whether actor may perform kind. Without a policy, or
// with a policy that has no permissions section, everything is allowed.
// Otherwise the most specific actor rule decides, then the authenticated
// defaults, and anything else is denied.
func (k *Key) HasPermission(actor string, kind model.Kind) bool {
	if k == nil || k.Permissions == nil {
		return true
	}
	if rule, ok := k.Permissions.ResolveActor(actor); ok {
		return rule.Ops.Allows(kind)
	}
	if d := k.Permissions.Defaults; d != nil && d.Authenticated != nil {
		return d.Authenticated.Allows(kind)
	}
	return false
}
