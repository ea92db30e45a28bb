package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the connection pool. Its embedded Ledger runs
// statements outside any transaction; InTx scopes one to a transaction.
type SQLiteRepository struct {
	Ledger
	db *sql.DB
}

// DSN builds the modernc.org/sqlite connection string. _txlock=immediate makes
// every transaction take the write lock on BEGIN, so read-check-write
// sequences inside InTx are serialized across connections.
func DSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + dbPath + "?" + q.Encode()
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewRepository(db), nil
}

// NewRepository wraps an already opened and migrated database.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		Ledger: NewLedger(db),
		db:     db,
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a single transaction. fn's error rolls everything back
// and is returned unchanged.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(Ledger) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(NewLedger(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
