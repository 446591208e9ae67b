package manifest

import (
	"context"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
)

// StoreFile runs r through chunker, upserting each chunk as it is
// produced, and hashes the whole stream incrementally with BLAKE3 to
// derive the file id once r is exhausted. Unlike UploadFile, the
// result is always a Chunked manifest, even when the stream yields
// exactly one chunk: a streaming caller does not know in advance
// whether the input is small enough to inline.
//
// Every chunk produced by chunker is upserted within tx, so the
// caller must commit tx for the upload to take effect, same as
// UploadFile.
func (s *Store) StoreFile(ctx context.Context, tx kv.WriteTx, ns kv.Namespace, r io.Reader, chunker *chunk.Chunker) (hashid.FileId, error) {
	hasher := blake3.New()
	tee := io.TeeReader(r, hasher)

	chunkCh, errCh := chunker.Stream(ctx, tee)

	var m Manifest
	for c := range chunkCh {
		chunkId, err := s.chunks.Upsert(ctx, tx, ns, c.Data)
		if err != nil {
			return hashid.FileId{}, fmt.Errorf("manifest: upsert streamed chunk: %w", err)
		}
		m.Chunks = append(m.Chunks, Chunk{Size: uint32(len(c.Data)), ChunkId: chunkId})
		m.Size += uint64(len(c.Data))
	}
	if err := <-errCh; err != nil {
		return hashid.FileId{}, fmt.Errorf("manifest: stream chunks: %w", err)
	}
	m.Chunked = true

	digest := hasher.Sum(nil)
	fileHash, err := hashid.FromDigest(hashid.BLAKE3, digest)
	if err != nil {
		return hashid.FileId{}, fmt.Errorf("manifest: derive streamed file id: %w", err)
	}
	id := hashid.NewFileIdFromHash(fileHash)

	key := kv.FileKey(ns, id)
	if err := tx.Insert(ctx, s.partition, key, encodeManifest(m)); err != nil {
		return hashid.FileId{}, fmt.Errorf("manifest: insert streamed manifest: %w", err)
	}

	return id, nil
}
