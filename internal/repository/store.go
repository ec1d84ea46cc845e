// Package repository is the MySQL implementation of engine.Store.
//
// Every mutating engine operation runs through WithTx, which carries the
// *sql.Tx in the context so the individual queries below join it.  Rows
// read with the ForUpdate variants are locked with SELECT ... FOR UPDATE
// until the transaction ends.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// querier is the part of *sql.DB and *sql.Tx the repository uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// defaultAttempts bounds how often a transaction that lost a deadlock or
// lock wait is replayed.
const defaultAttempts = 3

// Store reads and writes rooms, showings and reservations in MySQL.
type Store struct {
	db       *sql.DB
	attempts int
	backoff  time.Duration
}

// New returns a Store bound to db.
func New(db *sql.DB) *Store {
	return &Store{db: db, attempts: defaultAttempts, backoff: 20 * time.Millisecond}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a transaction and commits when fn returns nil.
// Nested calls join the outer transaction.  When MySQL aborts the
// transaction because of a deadlock or lock wait timeout the whole of fn
// is replayed, so fn must not have effects outside the database.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// q returns the transaction carried by ctx, or the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
