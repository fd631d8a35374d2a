package workspace

import (
	"context"

	"github.com/roach88/mentu/internal/model"
)

// Apply validates op against the current ledger and appends it, all while
// holding the workspace lock. A rejection is returned as an *apperr.Error.
func (w *Workspace) Apply(ctx context.Context, op model.Operation) (model.Operation, error) {
	if err := ctx.Err(); err != nil {
		return model.Operation{}, err
	}
	err := w.Lock().WithLock(func() error {
		store := w.Ledger()
		ops, err := store.ReadAll()
		if err != nil {
			return err
		}
		key, err := w.Genesis()
		if err != nil {
			return err
		}
		if r := w.Validator().Validate(op, ops, key); !r.Accepted {
			w.logger.Debug("operation rejected",
				"id", op.ID, "op", op.Op, "actor", op.Actor, "code", r.Rejection.Code)
			return r.Err()
		}
		return store.Append(op)
	})
	if err != nil {
		return model.Operation{}, err
	}
	w.logger.Info("operation appended", "id", op.ID, "op", op.Op, "actor", op.Actor)
	return op, nil
}

// Submit builds an operation from req for actor and applies it.
func (w *Workspace) Submit(ctx context.Context, req Request, actor string) (model.Operation, error) {
	op, err := Build(req, actor, w.Name(), w.now())
	if err != nil {
		return model.Operation{}, err
	}
	return w.Apply(ctx, op)
}
