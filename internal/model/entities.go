package model

// Annotation is a note attached to a memory or commitment.
type Annotation struct {
	ID    string `json:"id"`
	Body  string `json:"body"`
	Kind  string `json:"kind,omitempty"`
	Actor string `json:"actor"`
	TS    string `json:"ts"`
}

// Memory is the projection of one capture plus its annotations.
type Memory struct {
	ID          string         `json:"id"`
	Body        string         `json:"body"`
	Kind        string         `json:"kind,omitempty"`
	Path        string         `json:"path,omitempty"`
	Actor       string         `json:"actor"`
	TS          string         `json:"ts"`
	Refs        []string       `json:"refs,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	State       MemoryState    `json:"state"`
	Annotations []Annotation   `json:"annotations"`
}

// Commitment is the projection of one commit plus every later operation that
// references it. Empty strings stand for absent (null) values.
type Commitment struct {
	ID          string          `json:"id"`
	Body        string          `json:"body"`
	Source      string          `json:"source"`
	State       CommitmentState `json:"state"`
	Owner       string          `json:"owner,omitempty"`
	Evidence    string          `json:"evidence,omitempty"`
	ClosedBy    string          `json:"closed_by,omitempty"`
	DuplicateOf string          `json:"duplicate_of,omitempty"`
	SubmittedBy string          `json:"submitted_by,omitempty"`
	Actor       string          `json:"actor"`
	TS          string          `json:"ts"`
	Tags        []string        `json:"tags,omitempty"`
	Meta        map[string]any  `json:"meta,omitempty"`
	Annotations []Annotation    `json:"annotations"`

	SubmittedAt  string `json:"submitted_at,omitempty"`
	ApprovedAt   string `json:"approved_at,omitempty"`
	ReopenedAt   string `json:"reopened_at,omitempty"`
	ReopenReason string `json:"reopen_reason,omitempty"`
}

// HasTag reports whether the commitment carries tag.
func (c *Commitment) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
