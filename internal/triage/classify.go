package triage

import (
	"regexp"
	"strings"

	"github.com/roach88/mentu/internal/model"
)

// Confidence levels reported by ClassifyMemory.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// highConfidenceAbove is the specificity above which a match is "high".
const highConfidenceAbove = 80

var (
	filePathRe = regexp.MustCompile("(?m)(?:^|[\\s`\"'(])([a-zA-Z0-9_./-]+\\.[a-zA-Z0-9]+)(?:[\\s`\"'),:;]|$)")
	dirGlobRe  = regexp.MustCompile("(?m)(?:^|[\\s`\"'(])([a-zA-Z0-9_/-]+/\\*{1,2})(?:[\\s`\"'),:;]|$)")
	hashtagRe  = regexp.MustCompile(`#([a-zA-Z0-9_-]+)`)
	actionRe   = regexp.MustCompile(`(?i)\b(fix|add|update|implement|create|modify|refactor|remove|delete|change|build|write|configure|setup|enable|disable|migrate|upgrade|downgrade|deploy)\b`)
)

// ExtractPaths finds file paths (with an extension) and directory globs in
// free text, without a leading "./", deduplicated in order of appearance.
func ExtractPaths(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, m := range filePathRe.FindAllStringSubmatch(text, -1) {
		add(strings.TrimPrefix(m[1], "./"))
	}
	for _, m := range dirGlobRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

// ExtractTags collects meta.tags and #hashtags from a memory, deduplicated.
func ExtractTags(mem *model.Memory) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if raw, ok := mem.Meta["tags"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}
	if raw, ok := mem.Meta["tags"].([]string); ok {
		for _, s := range raw {
			add(s)
		}
	}
	for _, m := range hashtagRe.FindAllStringSubmatch(mem.Body, -1) {
		add(m[1])
	}
	return out
}

// IsActionable reports whether text describes work (contains an action verb).
func IsActionable(text string) bool {
	return actionRe.MatchString(text)
}

// MemoryClassification is a tier classification plus the evidence used.
type MemoryClassification struct {
	Classification
	Confidence string   `json:"confidence"`
	Paths      []string `json:"paths,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Actionable bool     `json:"actionable"`
}

// ClassifyMemory classifies a memory from the paths and tags in its body and
// metadata and from its author.
func (m *Matcher) ClassifyMemory(mem *model.Memory) MemoryClassification {
	ctx := Context{Paths: ExtractPaths(mem.Body), Tags: ExtractTags(mem), Actor: mem.Actor}
	return m.classifyContext(ctx, mem.Body)
}

// ClassifyCommitment classifies a commitment from its body paths, tags and
// author.
func (m *Matcher) ClassifyCommitment(c *model.Commitment) MemoryClassification {
	ctx := Context{Paths: ExtractPaths(c.Body), Tags: c.Tags, Actor: c.Actor}
	return m.classifyContext(ctx, c.Body)
}

func (m *Matcher) classifyContext(ctx Context, body string) MemoryClassification {
	r := m.MatchCombined(ctx)
	return MemoryClassification{
		Classification: m.classification(r),
		Confidence:     confidenceOf(r),
		Paths:          ctx.Paths,
		Tags:           ctx.Tags,
		Actionable:     IsActionable(body),
	}
}

func confidenceOf(r Result) string {
	switch {
	case !r.Matched:
		return ConfidenceLow
	case r.Specificity > highConfidenceAbove:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}
