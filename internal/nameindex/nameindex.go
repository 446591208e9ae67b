// Package nameindex implements the named-file index: the per-namespace
// map from a human-readable path string to a file id, with
// last-writer-wins binding semantics.
package nameindex

import (
	"context"
	"fmt"

	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
)

const partitionName = "named_files"

// Index is the named-file index.
type Index struct {
	partition kv.Partition
}

// Open binds an Index to a keyspace, creating the named_files
// partition if needed.
func Open(ctx context.Context, ks kv.Keyspace) (*Index, error) {
	p, err := ks.Partition(ctx, partitionName)
	if err != nil {
		return nil, fmt.Errorf("nameindex: open partition: %w", err)
	}
	return &Index{partition: p}, nil
}

// Bind associates name with fileId in namespace ns within tx,
// overwriting whatever fileId name was previously bound to
// (last-writer-wins).
func (idx *Index) Bind(ctx context.Context, tx kv.WriteTx, ns kv.Namespace, name string, fileId hashid.FileId) error {
	key := kv.NamedFileKey(ns, name)
	hb := fileId.Hash().Bytes()
	if err := tx.Insert(ctx, idx.partition, key, hb[:]); err != nil {
		return fmt.Errorf("nameindex: bind %q: %w", name, err)
	}
	return nil
}

// Resolve returns the file id currently bound to name in namespace ns.
func (idx *Index) Resolve(ctx context.Context, rtx kv.ReadTx, ns kv.Namespace, name string) (hashid.FileId, error) {
	key := kv.NamedFileKey(ns, name)
	raw, ok, err := rtx.Get(ctx, idx.partition, key)
	if err != nil {
		return hashid.FileId{}, fmt.Errorf("nameindex: resolve %q: %w", name, err)
	}
	if !ok {
		return hashid.FileId{}, fmt.Errorf("nameindex: %w: %q", ErrNotFound, name)
	}
	if len(raw) != hashid.Size {
		return hashid.FileId{}, fmt.Errorf("nameindex: bound file id record has wrong length: %d", len(raw))
	}
	var hb [hashid.Size]byte
	copy(hb[:], raw)
	hash, err := hashid.Decode(hb)
	if err != nil {
		return hashid.FileId{}, fmt.Errorf("nameindex: decode bound file id: %w", err)
	}
	return hashid.NewFileIdFromHash(hash), nil
}
