package nameindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv/memkv"
)

func TestBindThenResolve(t *testing.T) {
	ctx := context.Background()
	ks := memkv.New()
	idx, err := Open(ctx, ks)
	require.NoError(t, err)

	fileId := hashid.NewFileId([]byte("contents"))

	tx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Bind(ctx, tx, 0, "path/to/file.txt", fileId))
	require.NoError(t, tx.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	resolved, err := idx.Resolve(ctx, rtx, 0, "path/to/file.txt")
	require.NoError(t, err)
	assert.Equal(t, fileId, resolved)
}

func TestBind_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	ks := memkv.New()
	idx, err := Open(ctx, ks)
	require.NoError(t, err)

	first := hashid.NewFileId([]byte("first"))
	second := hashid.NewFileId([]byte("second"))

	tx1, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Bind(ctx, tx1, 0, "name", first))
	require.NoError(t, tx1.Commit(ctx))

	tx2, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Bind(ctx, tx2, 0, "name", second))
	require.NoError(t, tx2.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	resolved, err := idx.Resolve(ctx, rtx, 0, "name")
	require.NoError(t, err)
	assert.Equal(t, second, resolved)
}

func TestResolve_UnboundNameReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	ks := memkv.New()
	idx, err := Open(ctx, ks)
	require.NoError(t, err)

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	_, err = idx.Resolve(ctx, rtx, 0, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBind_SameNameDifferentNamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	ks := memkv.New()
	idx, err := Open(ctx, ks)
	require.NoError(t, err)

	a := hashid.NewFileId([]byte("namespace a"))
	b := hashid.NewFileId([]byte("namespace b"))

	tx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Bind(ctx, tx, 0, "shared-name", a))
	require.NoError(t, idx.Bind(ctx, tx, 1, "shared-name", b))
	require.NoError(t, tx.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	resolvedA, err := idx.Resolve(ctx, rtx, 0, "shared-name")
	require.NoError(t, err)
	resolvedB, err := idx.Resolve(ctx, rtx, 1, "shared-name")
	require.NoError(t, err)
	assert.Equal(t, a, resolvedA)
	assert.Equal(t, b, resolvedB)
}
