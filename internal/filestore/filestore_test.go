package filestore

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/kv/memkv"
	"github.com/prn-tf/castore/internal/metrics"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ks := memkv.New()
	s, err := Open(context.Background(), ks, DefaultConfig().SegmentSize, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestFileStore_InlineFileRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := s.WithNamespace(0)

	id, err := sess.UploadFile(ctx, []byte("inlined file"))
	require.NoError(t, err)

	out, err := sess.ReadFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("inlined file"), out)
}

func TestFileStore_ReuploadDedupsAndPreservesFileId(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := metrics.New(prometheus.NewRegistry())
	s.WithMetrics(m)
	sess := s.WithNamespace(1).WithConfig(Config{InlineSize: 4, ChunkSize: 16, SegmentSize: 32})

	contents := []byte("chunked, and deduped file contents...")

	firstId, err := sess.UploadFile(ctx, contents)
	require.NoError(t, err)
	out, err := sess.ReadFile(ctx, firstId)
	require.NoError(t, err)
	assert.Equal(t, contents, out)
	writtenAfterFirst := testutil.ToFloat64(m.ChunksWritten)

	secondId, err := sess.UploadFile(ctx, contents)
	require.NoError(t, err)
	out, err = sess.ReadFile(ctx, secondId)
	require.NoError(t, err)
	assert.Equal(t, contents, out)

	assert.Equal(t, firstId, secondId)
	assert.Equal(t, writtenAfterFirst, testutil.ToFloat64(m.ChunksWritten), "re-uploading identical contents must write no new chunk")
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ChunksDeduped), "all three 16-byte-or-shorter chunks must be dedup hits the second time")
}

func TestFileStore_UploadChunkTwiceReturnsSameIdAndDedups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := metrics.New(prometheus.NewRegistry())
	s.WithMetrics(m)
	sess := s.WithNamespace(7)

	id1, err := sess.UploadChunk(ctx, []byte("abc"))
	require.NoError(t, err)
	id2, err := sess.UploadChunk(ctx, []byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksWritten))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksDeduped))

	data, err := sess.ReadChunk(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestFileStore_AssociateAndReadNamedFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := s.WithNamespace(0)

	id, err := sess.UploadFile(ctx, []byte("named contents"))
	require.NoError(t, err)
	require.NoError(t, sess.AssociateFilename(ctx, "dir/file.txt", id))

	out, err := sess.ReadNamedFile(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("named contents"), out)
}

func TestFileStore_SameContentsDistinctNamespacesBothReadBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	contents := []byte("shared across namespaces")

	ns0 := s.WithNamespace(0)
	ns1 := s.WithNamespace(1)

	id0, err := ns0.UploadFile(ctx, contents)
	require.NoError(t, err)
	id1, err := ns1.UploadFile(ctx, contents)
	require.NoError(t, err)

	assert.Equal(t, id0, id1, "file ids are content hashes, independent of namespace")

	out0, err := ns0.ReadFile(ctx, id0)
	require.NoError(t, err)
	out1, err := ns1.ReadFile(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, contents, out0)
	assert.Equal(t, contents, out1)
}

func TestFileStore_CdcLargeFileRoundTripsAndProducesMultipleChunks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := metrics.New(prometheus.NewRegistry())
	s.WithMetrics(m)
	sess := s.WithNamespace(0)

	contents := make([]byte, 10<<20)
	rand.New(rand.NewSource(1)).Read(contents)

	chunker := chunk.New(chunk.DefaultCdc())

	before := testutil.ToFloat64(m.ChunksWritten)
	id, err := sess.StoreFile(ctx, bytes.NewReader(contents), chunker)
	require.NoError(t, err)
	after := testutil.ToFloat64(m.ChunksWritten)

	assert.GreaterOrEqual(t, after-before, float64(2), "10 MiB of random input must split into at least two content-defined chunks")

	out, err := sess.ReadFile(ctx, id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(contents, out), "round-tripped file must match the original bytes exactly")
}

func TestFileStore_RebindingNameIsLastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := s.WithNamespace(0)

	firstId, err := sess.UploadFile(ctx, []byte("first version"))
	require.NoError(t, err)
	secondId, err := sess.UploadFile(ctx, []byte("second version"))
	require.NoError(t, err)

	require.NoError(t, sess.AssociateFilename(ctx, "report.txt", firstId))
	require.NoError(t, sess.AssociateFilename(ctx, "report.txt", secondId))

	out, err := sess.ReadNamedFile(ctx, "report.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("second version"), out)
}
