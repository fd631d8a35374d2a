// Package triage classifies work into tiers by matching file paths, tags and
// actors against ordered rules, ranked by a specificity score.
package triage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/mentu/internal/genesis"
)

// DefaultTier is used when no rule matches and none is configured.
const DefaultTier = "T2"

// Dimension boosts applied in MatchCombined.
const (
	pathBoost     = 100
	tagBoost      = 50
	actorBoost    = 0
	combinedBonus = 75
)

// Rule assigns Tier to work matching Pattern (a path glob) or Tags and Actor.
type Rule struct {
	Pattern string   `json:"pattern,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Actor   string   `json:"actor,omitempty"`
	Tier    string   `json:"tier"`
	Reason  string   `json:"reason,omitempty"`
}

// GlobToRegexp converts a path glob to an anchored expression: ** crosses
// directories, * stays within one segment and ? matches one non-separator
// character.
func GlobToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Specificity scores how narrowly a rule matches. Path: 10 per segment, +50
// for a literal final segment, -5 per **, -2 per lone *. Tags: 15 each.
// Actor: 20 exact, 5 wildcard.
func (r *Rule) Specificity() int {
	score := 0
	if r.Pattern != "" {
		var parts []string
		for _, p := range strings.Split(r.Pattern, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		score += len(parts) * 10
		last := ""
		if len(parts) > 0 {
			last = parts[len(parts)-1]
		}
		if !strings.ContainsAny(last, "*?") {
			score += 50
		}
		doubles, singles := countStars(r.Pattern)
		score -= doubles * 5
		score -= singles * 2
	}
	score += len(r.Tags) * 15
	if r.Actor != "" {
		score += actorScore(r.Actor)
	}
	return score
}

func actorScore(pattern string) int {
	if strings.Contains(pattern, "*") {
		return 5
	}
	return 20
}

// countStars counts ** pairs and lone * characters.
func countStars(s string) (doubles, singles int) {
	for i := 0; i < len(s); {
		if s[i] != '*' {
			i++
			continue
		}
		run := 0
		for i < len(s) && s[i] == '*' {
			run++
			i++
		}
		doubles += run / 2
		if run == 1 {
			singles++
		}
	}
	return doubles, singles
}

// Result is the best rule found by a match.
type Result struct {
	Matched     bool  `json:"matched"`
	Rule        *Rule `json:"rule,omitempty"`
	Specificity int   `json:"specificity"`
}

var noMatch = Result{Specificity: -1}

// Matcher holds rules in declaration order with their compiled globs.
type Matcher struct {
	rules       []Rule
	globs       []*regexp.Regexp
	defaultTier string
}

// NewMatcher compiles rules. An empty defaultTier falls back to DefaultTier.
func NewMatcher(rules []Rule, defaultTier string) (*Matcher, error) {
	if defaultTier == "" {
		defaultTier = DefaultTier
	}
	m := &Matcher{rules: rules, globs: make([]*regexp.Regexp, len(rules)), defaultTier: defaultTier}
	for i := range rules {
		if rules[i].Pattern == "" {
			continue
		}
		re, err := GlobToRegexp(rules[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d pattern %q: %w", i, rules[i].Pattern, err)
		}
		m.globs[i] = re
	}
	return m, nil
}

// FromGenesis builds a Matcher from triage.tier_rules followed by
// requires_approval. A nil key yields a matcher with no rules.
func FromGenesis(key *genesis.Key) (*Matcher, error) {
	if key == nil {
		return NewMatcher(nil, "")
	}
	var rules []Rule
	defaultTier := ""
	if key.Triage != nil {
		defaultTier = key.Triage.DefaultTier
		rules = append(rules, rulesOf(key.Triage.TierRules)...)
	}
	rules = append(rules, rulesOf(key.RequiresApproval)...)
	return NewMatcher(rules, defaultTier)
}

func rulesOf(in []genesis.TierRule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, tr := range in {
		r := Rule{Pattern: tr.Pattern, Tier: tr.Tier, Reason: tr.Reason}
		if r.Tier == "" {
			r.Tier = DefaultTier
		}
		if tr.Match != nil {
			r.Tags = tr.Match.Tags
			r.Actor = tr.Match.Actor
		}
		out = append(out, r)
	}
	return out
}

// Rules returns the rules in declaration order.
func (m *Matcher) Rules() []Rule {
	return m.rules
}

// MatchPath returns the most specific rule whose glob matches path.
func (m *Matcher) MatchPath(path string) Result {
	best := noMatch
	for i := range m.rules {
		if m.globs[i] == nil || !m.globs[i].MatchString(path) {
			continue
		}
		if s := m.rules[i].Specificity(); s > best.Specificity {
			best = Result{Matched: true, Rule: &m.rules[i], Specificity: s}
		}
	}
	return best
}

// MatchTags returns the most specific rule whose tags are all present.
func (m *Matcher) MatchTags(tags []string) Result {
	best := noMatch
	for i := range m.rules {
		if len(m.rules[i].Tags) == 0 || !containsAll(tags, m.rules[i].Tags) {
			continue
		}
		if s := m.rules[i].Specificity(); s > best.Specificity {
			best = Result{Matched: true, Rule: &m.rules[i], Specificity: s}
		}
	}
	return best
}

// MatchActor returns the most specific rule whose actor pattern matches.
func (m *Matcher) MatchActor(actor string) Result {
	best := noMatch
	for i := range m.rules {
		if m.rules[i].Actor == "" || !genesis.MatchActor(m.rules[i].Actor, actor) {
			continue
		}
		if s := m.rules[i].Specificity(); s > best.Specificity {
			best = Result{Matched: true, Rule: &m.rules[i], Specificity: s}
		}
	}
	return best
}

// Context is the work item being classified.
type Context struct {
	Paths []string `json:"paths"`
	Tags  []string `json:"tags"`
	Actor string   `json:"actor"`
}

// MatchCombined matches every dimension and returns the overall winner. Each
// dimension's best result is boosted (path +100, tags +50, actor +0), and a
// rule naming both tags and an actor that match both earns a flat +75 over
// its tag and actor scores. Ties keep the first result found.
func (m *Matcher) MatchCombined(ctx Context) Result {
	var results []Result
	for _, p := range ctx.Paths {
		if r := m.MatchPath(p); r.Matched {
			r.Specificity += pathBoost
			results = append(results, r)
		}
	}
	if len(ctx.Tags) > 0 {
		if r := m.MatchTags(ctx.Tags); r.Matched {
			r.Specificity += tagBoost
			results = append(results, r)
		}
	}
	if ctx.Actor != "" {
		if r := m.MatchActor(ctx.Actor); r.Matched {
			r.Specificity += actorBoost
			results = append(results, r)
		}
	}
	for i := range m.rules {
		rule := &m.rules[i]
		if len(rule.Tags) == 0 || rule.Actor == "" {
			continue
		}
		if !containsAll(ctx.Tags, rule.Tags) || !genesis.MatchActor(rule.Actor, ctx.Actor) {
			continue
		}
		results = append(results, Result{
			Matched:     true,
			Rule:        rule,
			Specificity: len(rule.Tags)*15 + actorScore(rule.Actor) + combinedBonus,
		})
	}

	best := noMatch
	for _, r := range results {
		if r.Specificity > best.Specificity {
			best = r
		}
	}
	return best
}

// Classification is the tier assigned to a work item.
type Classification struct {
	Tier        string `json:"tier"`
	Reason      string `json:"reason"`
	Matched     bool   `json:"matched"`
	Specificity int    `json:"specificity"`
	Rule        *Rule  `json:"rule,omitempty"`
}

// Classify assigns a tier, falling back to the default tier.
func (m *Matcher) Classify(ctx Context) Classification {
	return m.classification(m.MatchCombined(ctx))
}

func (m *Matcher) classification(r Result) Classification {
	if !r.Matched {
		return Classification{
			Tier:        m.defaultTier,
			Reason:      "No matching pattern, using default tier",
			Specificity: -1,
		}
	}
	return Classification{
		Tier:        r.Rule.Tier,
		Reason:      r.Rule.Reason,
		Matched:     true,
		Specificity: r.Specificity,
		Rule:        r.Rule,
	}
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
