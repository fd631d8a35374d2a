package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/workspace"
)

// Scenario represents a ledger scenario loaded from YAML.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Workspace   string      `yaml:"workspace,omitempty"`
	Genesis     string      `yaml:"genesis,omitempty"`
	Steps       []Step      `yaml:"steps"`
	Assertions  []Assertion `yaml:"assertions"`
}

// Step is one operation submitted by the scenario.
type Step struct {
	Op          model.Kind  `yaml:"op"`
	As          string      `yaml:"as,omitempty"`
	Actor       string      `yaml:"actor"`
	SourceKey   string      `yaml:"source_key,omitempty"`
	Body        string      `yaml:"body,omitempty"`
	Kind        string      `yaml:"kind,omitempty"`
	Path        string      `yaml:"path,omitempty"`
	Source      string      `yaml:"source,omitempty"`
	Tags        []string    `yaml:"tags,omitempty"`
	Commitment  string      `yaml:"commitment,omitempty"`
	Evidence    string      `yaml:"evidence,omitempty"`
	DuplicateOf string      `yaml:"duplicate_of,omitempty"`
	Target      string      `yaml:"target,omitempty"`
	Memory      string      `yaml:"memory,omitempty"`
	Reason      string      `yaml:"reason,omitempty"`
	Reviewed    []string    `yaml:"reviewed,omitempty"`
	Summary     string      `yaml:"summary,omitempty"`
	ExpectError apperr.Code `yaml:"expect_error,omitempty"`
}

// Assertion checks the state left behind by a scenario.
type Assertion struct {
	Type   string            `yaml:"type"`
	ID     string            `yaml:"id,omitempty"`
	Count  int               `yaml:"count,omitempty"`
	Expect map[string]string `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertCommitment   = "commitment"
	AssertMemory       = "memory"
	AssertLedgerLength = "ledger_length"
	AssertReplayStable = "replay_stable"
)

// LoadScenario reads and validates a scenario file. Unknown keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	aliases := make(map[string]bool)
	for i, step := range s.Steps {
		if !step.Op.Valid() {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Actor == "" {
			return fmt.Errorf("steps[%d]: actor is required", i)
		}
		for _, ref := range step.refs() {
			if name, ok := aliasOf(ref); ok && !aliases[name] {
				return fmt.Errorf("steps[%d]: %s refers to an unknown or later step", i, ref)
			}
		}
		if step.As != "" {
			if aliases[step.As] {
				return fmt.Errorf("steps[%d]: alias %q is already defined", i, step.As)
			}
			aliases[step.As] = true
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertCommitment, AssertMemory:
			if a.ID == "" {
				return fmt.Errorf("assertions[%d]: id is required for %s", i, a.Type)
			}
			if name, ok := aliasOf(a.ID); ok && !aliases[name] {
				return fmt.Errorf("assertions[%d]: unknown alias %s", i, a.ID)
			}
		case AssertLedgerLength, AssertReplayStable:
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}

// refs returns every field that may hold an alias.
func (s *Step) refs() []string {
	out := []string{s.Source, s.Commitment, s.Evidence, s.DuplicateOf, s.Target, s.Memory}
	return append(out, s.Reviewed...)
}

func aliasOf(ref string) (string, bool) {
	if !strings.HasPrefix(ref, "$") {
		return "", false
	}
	return ref[1:], true
}

// request converts the step to a workspace request, resolving aliases.
func (s *Step) request(ids map[string]string) workspace.Request {
	resolve := func(v string) string {
		if name, ok := aliasOf(v); ok {
			return ids[name]
		}
		return v
	}
	req := workspace.Request{
		Op:          s.Op,
		SourceKey:   s.SourceKey,
		Body:        s.Body,
		Kind:        s.Kind,
		Path:        s.Path,
		Source:      resolve(s.Source),
		Tags:        s.Tags,
		Commitment:  resolve(s.Commitment),
		DuplicateOf: resolve(s.DuplicateOf),
		Target:      resolve(s.Target),
		Memory:      resolve(s.Memory),
		Reason:      s.Reason,
		Summary:     s.Summary,
	}
	if s.Evidence != "" {
		req.Evidence = model.IDList{resolve(s.Evidence)}
	}
	for _, id := range s.Reviewed {
		req.Reviewed = append(req.Reviewed, resolve(id))
	}
	return req
}
