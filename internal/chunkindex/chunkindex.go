// Package chunkindex implements the per-namespace chunk index: the
// map from (namespace, chunk_id) to the metadata needed to locate a
// chunk's bytes inside a packed segment, with content-addressed
// deduplication.
package chunkindex

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/prn-tf/castore/internal/cache"
	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
	"github.com/prn-tf/castore/internal/metrics"
	"github.com/prn-tf/castore/internal/segment"
)

const partitionName = "chunks"

// Compression identifies how a chunk's bytes are encoded at rest.
// Only None is ever written by this codebase; Zstd is read-path only,
// reserved for a future writer.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// Metadata is the per-chunk record stored in the chunks partition.
type Metadata struct {
	Size           uint32
	Compression    Compression
	CompressedSize uint32
	SegmentId      segment.Id
	OffsetInSegment uint32
}

// Index is the transactional, content-addressed, deduplicating chunk
// store. One Index is shared by every namespace; isolation between
// namespaces comes entirely from the namespace prefix baked into
// every key (kv.ChunkKey), not from separate Index instances.
type Index struct {
	ks        kv.Keyspace
	partition kv.Partition
	packer    *segment.Packer
	metrics   *metrics.Metrics
	cache     *cache.ChunkCache
}

// WithMetrics attaches a Metrics instance that Upsert reports
// dedup/write counts and byte totals to. A nil Index.metrics (the
// default, if WithMetrics is never called) disables instrumentation
// entirely rather than recording into an unregistered collector.
func (idx *Index) WithMetrics(m *metrics.Metrics) *Index {
	idx.metrics = m
	return idx
}

// WithCache attaches a read-through ChunkCache that Lookup consults
// before touching the segment store. A nil Index.cache (the default)
// disables it entirely; Lookup falls straight through to the packer.
func (idx *Index) WithCache(c *cache.ChunkCache) *Index {
	idx.cache = c
	return idx
}

// Open binds an Index to a keyspace and the segment packer backing
// it. The keyspace's "chunks" partition is created if it does not
// already exist.
func Open(ctx context.Context, ks kv.Keyspace, packer *segment.Packer) (*Index, error) {
	p, err := ks.Partition(ctx, partitionName)
	if err != nil {
		return nil, fmt.Errorf("chunkindex: open partition: %w", err)
	}
	return &Index{ks: ks, partition: p, packer: packer}, nil
}

// Upsert stores bytes under their content hash within tx, unless a
// chunk with that hash already exists in namespace ns, in which case
// it is a no-op (a dedup hit). Either way, the chunk's id is returned.
//
// Upsert must be called within an active kv.WriteTx so the
// exists-check and the metadata insert are atomic with whatever else
// the caller stages in the same transaction.
func (idx *Index) Upsert(ctx context.Context, tx kv.WriteTx, ns kv.Namespace, contents []byte) (hashid.ChunkId, error) {
	id := hashid.NewChunkId(contents)
	key := kv.ChunkKey(ns, id)

	exists, err := tx.ContainsKey(ctx, idx.partition, key)
	if err != nil {
		return hashid.ChunkId{}, fmt.Errorf("chunkindex: check existing chunk: %w", err)
	}
	if exists {
		if idx.metrics != nil {
			idx.metrics.ChunksDeduped.Inc()
		}
		return id, nil
	}

	loc, err := idx.packer.Append(contents)
	if err != nil {
		return hashid.ChunkId{}, fmt.Errorf("chunkindex: append to segment: %w", err)
	}

	meta := Metadata{
		Size:            uint32(len(contents)),
		Compression:     CompressionNone,
		CompressedSize:  uint32(len(contents)),
		SegmentId:       loc.SegmentId,
		OffsetInSegment: loc.Offset,
	}

	if err := tx.Insert(ctx, idx.partition, key, encodeMetadata(meta)); err != nil {
		return hashid.ChunkId{}, fmt.Errorf("chunkindex: insert metadata: %w", err)
	}

	if idx.metrics != nil {
		idx.metrics.ChunksWritten.Inc()
		idx.metrics.BytesStored.Add(float64(len(contents)))
	}

	return id, nil
}

// Lookup reads a snapshot of chunk metadata and returns the chunk's
// decoded bytes. Chunks compressed with Zstd are transparently
// inflated; since Upsert never produces compressed chunks, this path
// only exercises for data migrated in by an external writer.
//
// When a cache is attached (WithCache), Lookup checks it before
// touching the segment store and populates it with decoded bytes on
// a miss, so repeated reads of the same hot chunk skip the segment
// read entirely.
func (idx *Index) Lookup(ctx context.Context, rtx kv.ReadTx, ns kv.Namespace, id hashid.ChunkId) ([]byte, error) {
	if idx.cache != nil {
		if data, err := idx.cache.Get(ctx, ns, id); err == nil {
			return data, nil
		}
	}

	data, err := idx.lookupFromStore(ctx, rtx, ns, id)
	if err != nil {
		return nil, err
	}

	if idx.cache != nil {
		idx.cache.Set(ctx, ns, id, data)
	}
	return data, nil
}

// lookupFromStore is Lookup's uncached path: read chunk metadata from
// the partition and the chunk's bytes from the segment store.
func (idx *Index) lookupFromStore(ctx context.Context, rtx kv.ReadTx, ns kv.Namespace, id hashid.ChunkId) ([]byte, error) {
	key := kv.ChunkKey(ns, id)
	raw, ok, err := rtx.Get(ctx, idx.partition, key)
	if err != nil {
		return nil, fmt.Errorf("chunkindex: read metadata: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("chunkindex: %w: %s", ErrNotFound, id)
	}

	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("chunkindex: decode metadata: %w", err)
	}

	stored, err := idx.packer.Read(segment.Location{
		SegmentId: meta.SegmentId,
		Offset:    meta.OffsetInSegment,
		Size:      meta.CompressedSize,
	})
	if err != nil {
		return nil, fmt.Errorf("chunkindex: read segment bytes: %w", err)
	}

	switch meta.Compression {
	case CompressionNone:
		return stored, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("chunkindex: init zstd decoder: %w", err)
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(stored, make([]byte, 0, meta.Size))
		if err != nil {
			return nil, fmt.Errorf("chunkindex: zstd decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("chunkindex: unknown compression tag %d", meta.Compression)
	}
}
