package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/mentu/internal/model"
)

// Operations returns mirrored operations after position since, in ledger
// order. Returns an empty slice (not nil) when there are none.
func (s *Store) Operations(ctx context.Context, since int) ([]model.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raw FROM operations
		WHERE seq > ?
		ORDER BY seq ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []model.Operation{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		var op model.Operation
		if err := json.Unmarshal([]byte(raw), &op); err != nil {
			return nil, fmt.Errorf("decode operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// Head returns the highest mirrored position and its digest. seq is 0 for
// an empty mirror.
func (s *Store) Head(ctx context.Context) (seq int, digest string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT seq, digest FROM operations ORDER BY seq DESC LIMIT 1
	`).Scan(&seq, &digest)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("query head: %w", err)
	}
	return seq, digest, nil
}

// CommitmentRow is a mirrored commitment projection.
type CommitmentRow struct {
	ID          string                `json:"id"`
	Body        string                `json:"body"`
	Source      string                `json:"source"`
	State       model.CommitmentState `json:"state"`
	Owner       string                `json:"owner,omitempty"`
	Evidence    string                `json:"evidence,omitempty"`
	DuplicateOf string                `json:"duplicate_of,omitempty"`
	ClosedBy    string                `json:"closed_by,omitempty"`
}

// Commitments returns mirrored commitments, optionally restricted to one
// state, ordered by id.
func (s *Store) Commitments(ctx context.Context, st model.CommitmentState) ([]CommitmentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, source, state, owner, evidence, duplicate_of, closed_by
		FROM commitments
		WHERE ? = '' OR state = ?
		ORDER BY id COLLATE BINARY ASC
	`, string(st), string(st))
	if err != nil {
		return nil, fmt.Errorf("query commitments: %w", err)
	}
	defer rows.Close()

	out := []CommitmentRow{}
	for rows.Next() {
		var r CommitmentRow
		var owner, evidence, dup, closedBy sql.NullString
		if err := rows.Scan(&r.ID, &r.Body, &r.Source, &r.State, &owner, &evidence, &dup, &closedBy); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		r.Owner, r.Evidence, r.DuplicateOf, r.ClosedBy = owner.String, evidence.String, dup.String, closedBy.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}
