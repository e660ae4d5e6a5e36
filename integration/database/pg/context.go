package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type txContextKey struct{}

// WithTx attaches tx to the context so storage methods further down the
// call chain run inside the same transaction. A nil tx leaves the
// context unchanged.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction attached by WithTx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}
