// Package sqlitekv implements the kv.Keyspace contract on top of a
// local SQLite database, for single-process deployments that need
// durability across restarts without a separate database server.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/prn-tf/castore/internal/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	partition TEXT NOT NULL,
	key       BLOB NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (partition, key)
);
`

type partition struct {
	name string
}

func (p *partition) partitionName() string { return p.name }

// Keyspace is a kv.Keyspace backed by a SQLite database file.
type Keyspace struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures its schema exists.
func Open(ctx context.Context, path string) (*Keyspace, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn.

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitekv: create schema: %w", err)
	}

	return &Keyspace{db: db}, nil
}

func (ks *Keyspace) Partition(_ context.Context, name string) (kv.Partition, error) {
	return &partition{name: name}, nil
}

func (ks *Keyspace) ReadTx(ctx context.Context) (kv.ReadTx, error) {
	tx, err := ks.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: begin read tx: %w", err)
	}
	return &readTx{tx: tx}, nil
}

func (ks *Keyspace) WriteTx(ctx context.Context) (kv.WriteTx, error) {
	tx, err := ks.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: begin write tx: %w", err)
	}
	return &writeTx{tx: tx}, nil
}

func (ks *Keyspace) Close() error { return ks.db.Close() }

type readTx struct {
	tx   *sql.Tx
	done bool
}

func (r *readTx) Get(ctx context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	var value []byte
	err := r.tx.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE partition = ? AND key = ?`,
		p.(*partition).name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitekv: get: %w", err)
	}
	return value, true, nil
}

func (r *readTx) Discard() error {
	if r.done {
		return nil
	}
	r.done = true
	return r.tx.Rollback()
}

type writeTx struct {
	tx   *sql.Tx
	done bool
}

func (w *writeTx) ContainsKey(ctx context.Context, p kv.Partition, key []byte) (bool, error) {
	var exists int
	err := w.tx.QueryRowContext(ctx,
		`SELECT 1 FROM kv_entries WHERE partition = ? AND key = ?`,
		p.(*partition).name, key,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlitekv: contains key: %w", err)
	}
	return true, nil
}

func (w *writeTx) Get(ctx context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	var value []byte
	err := w.tx.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE partition = ? AND key = ?`,
		p.(*partition).name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitekv: get: %w", err)
	}
	return value, true, nil
}

func (w *writeTx) Insert(ctx context.Context, p kv.Partition, key []byte, value []byte) error {
	_, err := w.tx.ExecContext(ctx,
		`INSERT INTO kv_entries (partition, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value`,
		p.(*partition).name, key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: insert: %w", err)
	}
	return nil
}

func (w *writeTx) Commit(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("sqlitekv: commit: %w", err)
	}
	return nil
}

func (w *writeTx) Rollback(_ context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback()
}
