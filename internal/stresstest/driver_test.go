package stresstest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/kv/memkv"
)

func TestDriver_RunProducesOpsWithinDuration(t *testing.T) {
	store, err := filestore.Open(context.Background(), memkv.New(), 1<<20, zerolog.Nop())
	require.NoError(t, err)
	sess := store.WithNamespace(0)
	chunker := chunk.New(chunk.Fixed(64))
	target := NewSessionTarget(sess, chunker, "driver-test")

	workload := NewWorkload(WorkloadConfig{
		Name:        "w",
		Concurrency: 4,
		Seed:        99,
		P50Size:     256,
		P99Size:     4096,
		WriteWeight: 2,
		ReadWeight:  1,
	})

	driver := NewDriver(target, workload)
	report := driver.Run(context.Background(), 200*time.Millisecond)

	require.Greater(t, report.Ops, 0)
	require.Equal(t, 0, report.Errors)
	require.Equal(t, "w", report.WorkloadName)
}

func TestDriver_RunRespectsContextCancellation(t *testing.T) {
	store, err := filestore.Open(context.Background(), memkv.New(), 1<<20, zerolog.Nop())
	require.NoError(t, err)
	sess := store.WithNamespace(0)
	target := NewSessionTarget(sess, chunk.New(chunk.Fixed(64)), "cancel-test")

	workload := NewWorkload(WorkloadConfig{
		Name:        "w",
		Concurrency: 2,
		Seed:        1,
		P50Size:     64,
		P99Size:     128,
		WriteWeight: 1,
		ReadWeight:  0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := NewDriver(target, workload)
	report := driver.Run(ctx, time.Second)
	require.Equal(t, 0, report.Ops)
}
