// Package filestore is the top-level façade that orchestrates the
// chunk index, manifest store and name index behind the store's
// operations: a process-wide Store shared by every namespace, and
// lightweight per-namespace Session values borrowed from it.
package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prn-tf/castore/internal/cache"
	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/chunkindex"
	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
	"github.com/prn-tf/castore/internal/manifest"
	"github.com/prn-tf/castore/internal/metrics"
	"github.com/prn-tf/castore/internal/nameindex"
	"github.com/prn-tf/castore/internal/segment"
)

// Store is the process-wide filestore: one keyspace, one segment
// packer, and the three indexes layered over them. It owns no
// per-namespace state; namespace isolation lives entirely in the key
// encoding (kv.Namespace prefixes).
type Store struct {
	ks        kv.Keyspace
	packer    *segment.Packer
	chunks    *chunkindex.Index
	manifests *manifest.Store
	names     *nameindex.Index
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// WithMetrics attaches m to the store, its chunk index and its segment
// packer, so uploads, reads, dedup counts and segment seals all report
// through it.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	s.chunks.WithMetrics(m)
	s.packer.WithMetrics(m)
	return s
}

// WithCache attaches a read-through ChunkCache to the store's chunk
// index, so repeated reads of the same hot chunk skip the segment
// store entirely once warm.
func (s *Store) WithCache(c *cache.ChunkCache) *Store {
	s.chunks.WithCache(c)
	return s
}

// Open wires a Store onto ks, creating a segment packer that seals
// segments at segmentSize bytes. Byte storage (the packer) is shared
// across every namespace that uses this Store; only the chunk-index
// keys are namespace-prefixed, so segment bytes may be shared across
// namespaces.
func Open(ctx context.Context, ks kv.Keyspace, segmentSize uint64, logger zerolog.Logger) (*Store, error) {
	packer := segment.NewPacker(segmentSize)

	chunks, err := chunkindex.Open(ctx, ks, packer)
	if err != nil {
		return nil, fmt.Errorf("filestore: open chunk index: %w", err)
	}
	manifests, err := manifest.Open(ctx, ks, chunks)
	if err != nil {
		return nil, fmt.Errorf("filestore: open manifest store: %w", err)
	}
	names, err := nameindex.Open(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("filestore: open name index: %w", err)
	}

	return &Store{
		ks:        ks,
		packer:    packer,
		chunks:    chunks,
		manifests: manifests,
		names:     names,
		logger:    logger.With().Str("component", "filestore").Logger(),
	}, nil
}

// WithNamespace returns a Session scoped to ns, using DefaultConfig.
// The Session borrows s; it holds no mutable state of its own beyond
// its configuration and no locks, so it is safe to create as many as
// needed and discard them freely.
func (s *Store) WithNamespace(ns kv.Namespace) Session {
	return Session{
		store:  s,
		ns:     ns,
		config: DefaultConfig(),
	}
}

// Session is a namespaced, value-typed handle onto a Store. It is
// cheap to copy and carries no exclusive resources of its own.
type Session struct {
	store  *Store
	ns     kv.Namespace
	config Config
}

// WithConfig returns a copy of the session with cfg overlaid onto its
// current configuration.
func (sess Session) WithConfig(cfg Config) Session {
	sess.config = sess.config.WithConfig(cfg)
	return sess
}

// timeUpload and timeRead return a stop function that records the
// elapsed time against the store's upload/read latency histograms
// under the given kind label. When the store has no metrics attached
// they return a no-op, so callers can always `defer sess.timeX(...)()`
// unconditionally.
func (sess Session) timeUpload(kind string) func() {
	if sess.store.metrics == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(sess.store.metrics.UploadDuration.WithLabelValues(kind))
	return func() { timer.ObserveDuration() }
}

func (sess Session) timeRead(kind string) func() {
	if sess.store.metrics == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(sess.store.metrics.ReadDuration.WithLabelValues(kind))
	return func() { timer.ObserveDuration() }
}

// UploadChunk stores contents as a single chunk, deduplicating against
// any existing chunk with the same content hash in this namespace.
func (sess Session) UploadChunk(ctx context.Context, contents []byte) (hashid.ChunkId, error) {
	defer sess.timeUpload("upload_chunk")()

	tx, err := sess.store.ks.WriteTx(ctx)
	if err != nil {
		return hashid.ChunkId{}, fmt.Errorf("filestore: begin write tx: %w", err)
	}
	id, err := sess.store.chunks.Upsert(ctx, tx, sess.ns, contents)
	if err != nil {
		_ = tx.Rollback(ctx)
		return hashid.ChunkId{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return hashid.ChunkId{}, fmt.Errorf("filestore: commit chunk upload: %w", err)
	}
	sess.store.logger.Debug().Uint64("namespace", uint64(sess.ns)).Str("chunk_id", id.String()).Msg("chunk uploaded")
	return id, nil
}

// UploadFile stores contents as a file, inlining it or splitting it
// into fixed-size chunks per the session's Config.
func (sess Session) UploadFile(ctx context.Context, contents []byte) (hashid.FileId, error) {
	defer sess.timeUpload("upload_file")()

	tx, err := sess.store.ks.WriteTx(ctx)
	if err != nil {
		return hashid.FileId{}, fmt.Errorf("filestore: begin write tx: %w", err)
	}
	id, err := sess.store.manifests.UploadFile(ctx, tx, sess.ns, contents, sess.config.InlineSize, sess.config.ChunkSize)
	if err != nil {
		_ = tx.Rollback(ctx)
		return hashid.FileId{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return hashid.FileId{}, fmt.Errorf("filestore: commit file upload: %w", err)
	}
	sess.store.logger.Info().Uint64("namespace", uint64(sess.ns)).Str("file_id", id.String()).Int("bytes", len(contents)).Msg("file uploaded")
	return id, nil
}

// StoreFile streams r through the given chunker, producing a Chunked
// manifest regardless of size. Segment appends made while splitting r
// are not rolled back if the caller's context is cancelled mid-stream
// or the final commit fails: the chunk metadata is discarded with the
// transaction, but the segment packer keeps bytes that no committed
// record ever points at. Nothing reclaims such orphaned bytes.
func (sess Session) StoreFile(ctx context.Context, r io.Reader, chunker *chunk.Chunker) (hashid.FileId, error) {
	defer sess.timeUpload("store_file")()

	tx, err := sess.store.ks.WriteTx(ctx)
	if err != nil {
		return hashid.FileId{}, fmt.Errorf("filestore: begin write tx: %w", err)
	}
	id, err := sess.store.manifests.StoreFile(ctx, tx, sess.ns, r, chunker)
	if err != nil {
		_ = tx.Rollback(ctx)
		return hashid.FileId{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return hashid.FileId{}, fmt.Errorf("filestore: commit streamed file: %w", err)
	}
	sess.store.logger.Info().Uint64("namespace", uint64(sess.ns)).Str("file_id", id.String()).Msg("file streamed")
	return id, nil
}

// ReadChunk returns a chunk's bytes.
func (sess Session) ReadChunk(ctx context.Context, id hashid.ChunkId) ([]byte, error) {
	defer sess.timeRead("read_chunk")()

	rtx, err := sess.store.ks.ReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("filestore: begin read tx: %w", err)
	}
	defer rtx.Discard()
	return sess.store.chunks.Lookup(ctx, rtx, sess.ns, id)
}

// ReadFile reassembles and returns a file's bytes.
func (sess Session) ReadFile(ctx context.Context, id hashid.FileId) ([]byte, error) {
	defer sess.timeRead("read_file")()

	rtx, err := sess.store.ks.ReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("filestore: begin read tx: %w", err)
	}
	defer rtx.Discard()
	return sess.store.manifests.ReadFile(ctx, rtx, sess.ns, id)
}

// AssociateFilename binds name to fileId, last-writer-wins.
func (sess Session) AssociateFilename(ctx context.Context, name string, fileId hashid.FileId) error {
	tx, err := sess.store.ks.WriteTx(ctx)
	if err != nil {
		return fmt.Errorf("filestore: begin write tx: %w", err)
	}
	if err := sess.store.names.Bind(ctx, tx, sess.ns, name, fileId); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("filestore: commit filename association: %w", err)
	}
	sess.store.logger.Debug().Uint64("namespace", uint64(sess.ns)).Str("name", name).Msg("filename bound")
	return nil
}

// ReadNamedFile resolves name to a file id and reads its bytes.
func (sess Session) ReadNamedFile(ctx context.Context, name string) ([]byte, error) {
	defer sess.timeRead("read_named_file")()

	rtx, err := sess.store.ks.ReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("filestore: begin read tx: %w", err)
	}
	defer rtx.Discard()
	id, err := sess.store.names.Resolve(ctx, rtx, sess.ns, name)
	if err != nil {
		return nil, err
	}
	return sess.store.manifests.ReadFile(ctx, rtx, sess.ns, id)
}
