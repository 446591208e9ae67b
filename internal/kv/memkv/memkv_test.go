package memkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTx_InsertIsInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	ks := New()
	p, err := ks.Partition(ctx, "chunks")
	require.NoError(t, err)

	wtx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.Insert(ctx, p, []byte("k"), []byte("v")))

	ok, err := wtx.ContainsKey(ctx, p, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok, "transaction must see its own uncommitted writes")

	require.NoError(t, wtx.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	v, ok, err := rtx.Get(ctx, p, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestWriteTx_RollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	ks := New()
	p, err := ks.Partition(ctx, "chunks")
	require.NoError(t, err)

	wtx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.Insert(ctx, p, []byte("k"), []byte("v")))
	require.NoError(t, wtx.Rollback(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	_, ok, err := rtx.Get(ctx, p, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPartitions_AreIsolated(t *testing.T) {
	ctx := context.Background()
	ks := New()
	chunks, err := ks.Partition(ctx, "chunks")
	require.NoError(t, err)
	files, err := ks.Partition(ctx, "files")
	require.NoError(t, err)

	wtx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.Insert(ctx, chunks, []byte("k"), []byte("chunk-value")))
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	_, ok, err := rtx.Get(ctx, files, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok, "key in one partition must not leak into another")
}
