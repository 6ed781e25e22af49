package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

type txKey struct{}

// executor is the query surface shared by *sql.DB and *sql.Tx. Repositories
// resolve it from the context so the same code runs inside and outside a
// transaction.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func executorFrom(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager implements domain.TxManager on PostgreSQL. One WithinTx call is
// one unit of work: every repository write made through the returned context
// commits or rolls back together.
type TxManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTxManager creates a transaction manager over the connection pool
func NewTxManager(db *sql.DB, logger *slog.Logger) *TxManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{db: db, logger: logger}
}

// WithinTx runs fn inside a database transaction. Nested calls join the
// transaction already carried by the context.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// A failed commit leaves no partial state behind; surface it as a
		// state conflict per the error taxonomy.
		return fmt.Errorf("commit failed: %v: %w", err, domain.ErrConflict)
	}
	return nil
}

var _ domain.TxManager = (*TxManager)(nil)
