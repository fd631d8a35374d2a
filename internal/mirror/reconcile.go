package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
)

// Report summarizes one Reconcile run.
type Report struct {
	Pushed   int   `json:"pushed"`
	Skipped  int   `json:"skipped"`
	Diverged []int `json:"diverged,omitempty"`
}

// WriteOperation stores op at ledger position seq. Writing the same
// position twice is a no-op.
func (s *Store) WriteOperation(ctx context.Context, seq int, op model.Operation) error {
	return writeOperation(ctx, s.db, seq, op)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeOperation(ctx context.Context, db execer, seq int, op model.Operation) error {
	raw, err := model.MarshalCanonical(op)
	if err != nil {
		return fmt.Errorf("write operation %s: %w", op.ID, err)
	}
	digest, err := model.OperationDigest(op)
	if err != nil {
		return fmt.Errorf("write operation %s: %w", op.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO operations
		(seq, id, op, ts, actor, workspace, source_key, raw, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		seq,
		op.ID,
		string(op.Op),
		op.TS,
		op.Actor,
		op.Workspace,
		nullable(op.SourceKey),
		string(raw),
		digest,
	)
	if err != nil {
		return fmt.Errorf("write operation %s: %w", op.ID, err)
	}
	return nil
}

// Reconcile pushes every ledger operation the mirror does not have yet and
// rebuilds the projection tables. A mirrored position whose digest differs
// from the ledger's, or a mirror longer than the ledger, is reported as
// divergence and fails with E_LEDGER_CORRUPT after the rest is pushed.
func (s *Store) Reconcile(ctx context.Context, ops []model.Operation) (Report, error) {
	var rep Report
	known, err := s.digests(ctx)
	if err != nil {
		return rep, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rep, fmt.Errorf("reconcile: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, op := range ops {
		seq := i + 1
		mirrored, ok := known[seq]
		if !ok {
			if err := writeOperation(ctx, tx, seq, op); err != nil {
				return rep, err
			}
			rep.Pushed++
			continue
		}
		digest, err := model.OperationDigest(op)
		if err != nil {
			return rep, fmt.Errorf("reconcile: %w", err)
		}
		if digest != mirrored {
			rep.Diverged = append(rep.Diverged, seq)
			continue
		}
		rep.Skipped++
	}
	for seq := range known {
		if seq > len(ops) {
			rep.Diverged = append(rep.Diverged, seq)
		}
	}

	if err := rebuildProjections(ctx, tx, ops); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, fmt.Errorf("reconcile: commit: %w", err)
	}

	s.logger.Info("mirror reconciled",
		"pushed", rep.Pushed, "skipped", rep.Skipped, "diverged", len(rep.Diverged))
	if len(rep.Diverged) > 0 {
		slices.Sort(rep.Diverged)
		return rep, apperr.Newf(apperr.CodeLedgerCorrupt,
			"mirror diverges from ledger at %d position(s)", len(rep.Diverged)).
			With("positions", rep.Diverged)
	}
	return rep, nil
}

func (s *Store) digests(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, digest FROM operations`)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()
	out := make(map[int]string)
	for rows.Next() {
		var seq int
		var digest string
		if err := rows.Scan(&seq, &digest); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		out[seq] = digest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digests: %w", err)
	}
	return out, nil
}

func rebuildProjections(ctx context.Context, tx *sql.Tx, ops []model.Operation) error {
	for _, stmt := range []string{`DELETE FROM memories`, `DELETE FROM commitments`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear projections: %w", err)
		}
	}
	for _, m := range state.Memories(ops) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO memories (id, body, kind, actor, ts, state)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, m.Body, nullable(m.Kind), m.Actor, m.TS, string(m.State))
		if err != nil {
			return fmt.Errorf("project memory %s: %w", m.ID, err)
		}
	}
	for _, c := range state.Commitments(ops) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commitments
			(id, body, source, state, owner, evidence, duplicate_of, closed_by, actor, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.Body, c.Source, string(c.State), nullable(c.Owner), nullable(c.Evidence),
			nullable(c.DuplicateOf), nullable(c.ClosedBy), c.Actor, c.TS)
		if err != nil {
			return fmt.Errorf("project commitment %s: %w", c.ID, err)
		}
	}
	return nil
}
