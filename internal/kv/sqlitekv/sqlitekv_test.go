package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyspace_InsertCommitThenRead(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ks, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer ks.Close()

	p, err := ks.Partition(ctx, "chunks")
	require.NoError(t, err)

	wtx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.Insert(ctx, p, []byte("k"), []byte("v")))
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	v, ok, err := rtx.Get(ctx, p, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestKeyspace_UninsertedKeyIsAbsent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ks, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer ks.Close()

	p, err := ks.Partition(ctx, "chunks")
	require.NoError(t, err)

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	_, ok, err := rtx.Get(ctx, p, []byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyspace_InsertIsUpsertOnConflict(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ks, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer ks.Close()

	p, err := ks.Partition(ctx, "named_files")
	require.NoError(t, err)

	tx1, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx1.Insert(ctx, p, []byte("name"), []byte("first")))
	require.NoError(t, tx1.Commit(ctx))

	tx2, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Insert(ctx, p, []byte("name"), []byte("second")))
	require.NoError(t, tx2.Commit(ctx))

	rtx, err := ks.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	v, ok, err := rtx.Get(ctx, p, []byte("name"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
}

func TestKeyspace_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ks, err := Open(ctx, dbPath)
	require.NoError(t, err)
	p, err := ks.Partition(ctx, "files")
	require.NoError(t, err)
	tx, err := ks.WriteTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, p, []byte("durable"), []byte("value")))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, ks.Close())

	reopened, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	p2, err := reopened.Partition(ctx, "files")
	require.NoError(t, err)
	rtx, err := reopened.ReadTx(ctx)
	require.NoError(t, err)
	defer rtx.Discard()
	v, ok, err := rtx.Get(ctx, p2, []byte("durable"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), v)
}
