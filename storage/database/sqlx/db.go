// Package sqlxrepos implements the repositories on postgres through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

type txKey struct{}

type transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*transactor)(nil)

func NewTransactor(db *sqlx.DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// getExec returns the transaction carried by ctx, or db outside of a transaction.
func getExec(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgerrcode.UniqueViolation && pqErr.Constraint == constraint
}

// getOne runs a single-row query and maps no rows to notFound.
func getOne(ctx context.Context, q sqlx.QueryerContext, dest interface{}, notFound error, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return notFound
		}
		return err
	}
	return nil
}

// execAffecting runs query and returns notFound when no row was affected.
func execAffecting(ctx context.Context, ex sqlx.ExecerContext, notFound error, query string, args ...interface{}) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
