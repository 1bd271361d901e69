package application

import (
	"context"
	"fmt"
)

// UnitOfWork is the transaction boundary use cases see. repositories called
// with the context returned by Begin run inside that transaction, and a Begin
// inside an open transaction joins it.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	// Rollback must be a no-op once the transaction committed.
	Rollback(ctx context.Context) error
}

// RunInTransaction commits when fn succeeds and rolls back otherwise.
// a nil uow runs fn on the plain context.
func RunInTransaction(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	if uow == nil {
		return fn(ctx)
	}

	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback(txCtx) //nolint:errcheck

	if err := fn(txCtx); err != nil {
		return err
	}
	if err := uow.Commit(txCtx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
