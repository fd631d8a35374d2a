package genesis

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// LintIssue is one schema violation in a policy document.
type LintIssue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (i LintIssue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Lint checks a policy document against the embedded CUE schema. It returns
// the violations found; err is reserved for documents that are not YAML.
func Lint(filename string, data []byte) ([]LintIssue, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("genesis-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile genesis schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("build %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return issuesOf(err, filename), nil
	}
	return nil, nil
}

// issuesOf flattens CUE errors, keeping the first position inside the
// document being linted.
func issuesOf(err error, filename string) []LintIssue {
	var issues []LintIssue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := LintIssue{Message: fmt.Sprintf(format, args...)}
		if path := e.Path(); len(path) > 0 {
			issue.Path = strings.Join(path, ".")
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.IsValid() && pos.Filename() == filename {
				issue.Line = pos.Line()
				break
			}
		}
		issues = append(issues, issue)
	}
	return issues
}
