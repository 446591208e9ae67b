package stresstest

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkload_FirstActionIsAlwaysWrite(t *testing.T) {
	w := NewWorkload(WorkloadConfig{
		Name:        "t",
		Concurrency: 1,
		Seed:        1,
		P50Size:     100,
		P99Size:     1000,
		WriteWeight: 1,
		ReadWeight:  1,
	})

	action, payload, seed, _ := w.NextAction()
	assert.Equal(t, ActionWrite, action)
	assert.NotNil(t, payload)
	assert.NotZero(t, seed)
}

func TestWorkload_ReadSamplesAPushedFile(t *testing.T) {
	w := NewWorkload(WorkloadConfig{
		Name:        "t",
		Concurrency: 1,
		Seed:        7,
		P50Size:     100,
		P99Size:     1000,
		WriteWeight: 0,
		ReadWeight:  1,
	})
	w.PushFile(42, "file-42")

	action, _, seed, existing := w.NextAction()
	require.Equal(t, ActionRead, action)
	assert.Equal(t, int64(42), seed)
	assert.Equal(t, "file-42", existing.externalID)
}

func TestWorkload_ReadRemovesFileFromExisting(t *testing.T) {
	w := NewWorkload(WorkloadConfig{
		Name:        "t",
		Concurrency: 1,
		Seed:        3,
		P50Size:     100,
		P99Size:     1000,
		WriteWeight: 0,
		ReadWeight:  1,
	})
	w.PushFile(1, "a")

	_, _, _, _ = w.NextAction()
	assert.Empty(t, w.existing)
}

func TestRandReader_IsDeterministicForSameSeed(t *testing.T) {
	a := newRandReader(123, 256)
	b := newRandReader(123, 256)

	dataA, err := io.ReadAll(a)
	require.NoError(t, err)
	dataB, err := io.ReadAll(b)
	require.NoError(t, err)

	assert.Equal(t, dataA, dataB)
	assert.Len(t, dataA, 256)
}

func TestRandReader_DifferentSeedsDiffer(t *testing.T) {
	a := newRandReader(1, 256)
	b := newRandReader(2, 256)

	dataA, _ := io.ReadAll(a)
	dataB, _ := io.ReadAll(b)

	assert.NotEqual(t, dataA, dataB)
}
