// Package kv defines the transactional key-value contract the store
// is built on and the deterministic key/value encoding used to
// address it. The contract is modeled directly on
// fjall's TransactionalKeyspace/TransactionalPartitionHandle: a
// keyspace exposes named partitions, reads take a lock-free snapshot,
// writes are serialized through a single write transaction that must
// be committed to take effect.
//
// This package treats the KV store as an external dependency: callers
// bring their own implementation (memkv, sqlitekv, pgkv) and the rest
// of the store only depends on this contract.
package kv

import "context"

// Partition is an opaque handle to a named region of the keyspace,
// obtained from Keyspace.Partition. Implementations may back a
// partition with a table, a column family, or a key prefix; callers
// never need to know which.
type Partition interface {
	partitionName() string
}

// Keyspace is a transactional key-value store partitioned into named
// regions. Implementations must guarantee that a committed WriteTx is
// immediately visible to subsequently-started read and write
// transactions (read-committed is sufficient; the store never relies
// on multi-statement write isolation beyond a single WriteTx).
type Keyspace interface {
	// Partition returns the named partition, creating it if the
	// implementation requires explicit creation.
	Partition(ctx context.Context, name string) (Partition, error)

	// ReadTx starts a snapshot read transaction.
	ReadTx(ctx context.Context) (ReadTx, error)

	// WriteTx starts a serializable write transaction. The
	// transaction must be committed or rolled back by the caller.
	WriteTx(ctx context.Context) (WriteTx, error)

	// Close releases resources held by the keyspace.
	Close() error
}

// ReadTx is a snapshot read over the keyspace as of the moment it was
// started. It sees no writes made after it started, including its own
// implementation's concurrent write transactions.
type ReadTx interface {
	// Get returns the value at key in partition, or (nil, false) if
	// absent.
	Get(ctx context.Context, p Partition, key []byte) ([]byte, bool, error)

	// Discard releases the transaction's resources. Safe to call
	// after the transaction is no longer needed; a ReadTx never
	// mutates state so there is nothing to roll back.
	Discard() error
}

// WriteTx is a single serializable write transaction. All inserts
// staged in it become visible atomically on Commit, and not at all if
// Commit is never called.
type WriteTx interface {
	// ContainsKey reports whether key exists in partition, consistent
	// with this transaction's own uncommitted writes.
	ContainsKey(ctx context.Context, p Partition, key []byte) (bool, error)

	// Get returns the value at key in partition, or (nil, false) if
	// absent.
	Get(ctx context.Context, p Partition, key []byte) ([]byte, bool, error)

	// Insert stages key/value for writing in partition. Last write
	// wins within a transaction.
	Insert(ctx context.Context, p Partition, key []byte, value []byte) error

	// Commit makes every staged insert in this transaction visible
	// atomically. A transaction that is never committed has no
	// effect.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's staged writes. Calling it
	// after Commit is a no-op.
	Rollback(ctx context.Context) error
}
