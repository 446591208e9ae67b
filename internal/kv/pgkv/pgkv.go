// Package pgkv implements the kv.Keyspace contract on top of
// PostgreSQL, for multi-process deployments that need a shared,
// durable keyspace.
package pgkv

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prn-tf/castore/internal/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	partition TEXT NOT NULL,
	key       BYTEA NOT NULL,
	value     BYTEA NOT NULL,
	PRIMARY KEY (partition, key)
);
`

type partition struct {
	name string
}

func (p *partition) partitionName() string { return p.name }

// Keyspace is a kv.Keyspace backed by a PostgreSQL connection pool.
type Keyspace struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the keyspace's schema exists.
func Open(ctx context.Context, dsn string) (*Keyspace, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgkv: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgkv: create schema: %w", err)
	}
	return &Keyspace{pool: pool}, nil
}

func (ks *Keyspace) Partition(_ context.Context, name string) (kv.Partition, error) {
	return &partition{name: name}, nil
}

func (ks *Keyspace) ReadTx(ctx context.Context) (kv.ReadTx, error) {
	tx, err := ks.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("pgkv: begin read tx: %w", err)
	}
	return &readTx{ctx: ctx, tx: tx}, nil
}

func (ks *Keyspace) WriteTx(ctx context.Context) (kv.WriteTx, error) {
	tx, err := ks.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("pgkv: begin write tx: %w", err)
	}
	return &writeTx{tx: tx}, nil
}

func (ks *Keyspace) Close() error {
	ks.pool.Close()
	return nil
}

type readTx struct {
	ctx  context.Context
	tx   pgx.Tx
	done bool
}

func (r *readTx) Get(ctx context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	var value []byte
	err := r.tx.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE partition = $1 AND key = $2`,
		p.(*partition).name, key,
	).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgkv: get: %w", err)
	}
	return value, true, nil
}

func (r *readTx) Discard() error {
	if r.done {
		return nil
	}
	r.done = true
	return r.tx.Rollback(r.ctx)
}

type writeTx struct {
	tx   pgx.Tx
	done bool
}

func (w *writeTx) ContainsKey(ctx context.Context, p kv.Partition, key []byte) (bool, error) {
	var exists bool
	err := w.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM kv_entries WHERE partition = $1 AND key = $2)`,
		p.(*partition).name, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgkv: contains key: %w", err)
	}
	return exists, nil
}

func (w *writeTx) Get(ctx context.Context, p kv.Partition, key []byte) ([]byte, bool, error) {
	var value []byte
	err := w.tx.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE partition = $1 AND key = $2`,
		p.(*partition).name, key,
	).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgkv: get: %w", err)
	}
	return value, true, nil
}

func (w *writeTx) Insert(ctx context.Context, p kv.Partition, key []byte, value []byte) error {
	_, err := w.tx.Exec(ctx,
		`INSERT INTO kv_entries (partition, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value`,
		p.(*partition).name, key, value,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pgkv: insert: constraint %s violated: %w", getPgErrorConstraint(err), err)
		}
		return fmt.Errorf("pgkv: insert: %w", err)
	}
	return nil
}

func (w *writeTx) Commit(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgkv: commit: %w", err)
	}
	return nil
}

func (w *writeTx) Rollback(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback(ctx)
}
