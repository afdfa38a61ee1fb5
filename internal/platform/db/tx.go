package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a single database transaction. The transaction is
// opened on the tenant-scoped connection when one is present in ctx (so it
// inherits the tenant search_path) and on the pool otherwise. The transaction
// handle is placed in the derived context; repositories route their queries
// through it via TxFromContext. fn returning an error rolls everything back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if conn := ConnFromContext(ctx); conn != nil {
		tx, err = conn.Begin(ctx)
	} else {
		tx, err = pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxFromContext retrieves the in-flight transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}
