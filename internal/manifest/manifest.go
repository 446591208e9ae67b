// Package manifest implements the per-file manifest store: the map
// from file id to either its inline bytes or the ordered list of
// chunks that reassemble it.
package manifest

import (
	"context"
	"fmt"

	"github.com/prn-tf/castore/internal/chunkindex"
	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
)

const partitionName = "files"

// Chunk is one entry of a Chunked manifest: the chunk's size (as
// uploaded, before any compression) and its id.
type Chunk struct {
	Size    uint32
	ChunkId hashid.ChunkId
}

// Manifest describes how a file's bytes are stored. Exactly one of
// Inline or Chunks is meaningful, selected by Chunked.
type Manifest struct {
	Size    uint64
	Chunked bool
	Inline  []byte
	Chunks  []Chunk
}

// Store is the per-file manifest index, backed by the files
// partition, layered over the chunk index for the Chunked case.
type Store struct {
	ks        kv.Keyspace
	partition kv.Partition
	chunks    *chunkindex.Index
}

// Open binds a manifest Store to a keyspace and the chunk index that
// backs Chunked manifests.
func Open(ctx context.Context, ks kv.Keyspace, chunks *chunkindex.Index) (*Store, error) {
	p, err := ks.Partition(ctx, partitionName)
	if err != nil {
		return nil, fmt.Errorf("manifest: open partition: %w", err)
	}
	return &Store{ks: ks, partition: p, chunks: chunks}, nil
}

// UploadFile stores contents as a file within tx, splitting it across
// chunks when it exceeds inlineSize and chunking it into blocks of
// chunkSize. Files at or under inlineSize are stored inline with no
// chunk-index entries at all.
//
// The returned FileId is deterministic: uploading identical contents
// twice in the same namespace returns the same id and, for the
// Chunked path, creates zero new chunk-index rows the second time.
func (s *Store) UploadFile(ctx context.Context, tx kv.WriteTx, ns kv.Namespace, contents []byte, inlineSize, chunkSize uint64) (hashid.FileId, error) {
	id := hashid.NewFileId(contents)

	var m Manifest
	m.Size = uint64(len(contents))

	if m.Size <= inlineSize {
		m.Chunked = false
		m.Inline = append([]byte(nil), contents...)
	} else {
		if chunkSize == 0 {
			return hashid.FileId{}, fmt.Errorf("manifest: chunk size must be positive when file exceeds inline_size")
		}
		m.Chunked = true
		for offset := uint64(0); offset < m.Size; offset += chunkSize {
			end := offset + chunkSize
			if end > m.Size {
				end = m.Size
			}
			block := contents[offset:end]
			chunkId, err := s.chunks.Upsert(ctx, tx, ns, block)
			if err != nil {
				return hashid.FileId{}, fmt.Errorf("manifest: upsert chunk: %w", err)
			}
			m.Chunks = append(m.Chunks, Chunk{Size: uint32(len(block)), ChunkId: chunkId})
		}
	}

	key := kv.FileKey(ns, id)
	if err := tx.Insert(ctx, s.partition, key, encodeManifest(m)); err != nil {
		return hashid.FileId{}, fmt.Errorf("manifest: insert manifest: %w", err)
	}

	return id, nil
}

// ReadFile resolves a file's manifest and reassembles its bytes.
// Chunked manifests are read chunk-by-chunk, in order, from the chunk
// index.
func (s *Store) ReadFile(ctx context.Context, rtx kv.ReadTx, ns kv.Namespace, id hashid.FileId) ([]byte, error) {
	key := kv.FileKey(ns, id)
	raw, ok, err := rtx.Get(ctx, s.partition, key)
	if err != nil {
		return nil, fmt.Errorf("manifest: read manifest: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("manifest: %w: %s", ErrNotFound, id)
	}

	m, err := decodeManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest: decode manifest: %w", err)
	}

	if !m.Chunked {
		return m.Inline, nil
	}

	out := make([]byte, 0, m.Size)
	for _, c := range m.Chunks {
		data, err := s.chunks.Lookup(ctx, rtx, ns, c.ChunkId)
		if err != nil {
			return nil, fmt.Errorf("manifest: read chunk: %w", err)
		}
		out = append(out, data...)
	}
	return out, nil
}
