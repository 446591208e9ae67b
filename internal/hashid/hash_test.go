package hashid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToBlake3(t *testing.T) {
	h := New([]byte("abc"))
	assert.Equal(t, BLAKE3, h.Algorithm())
}

func TestNewWithAlgorithm_SHA1PadsRemainingBytesZero(t *testing.T) {
	h := NewWithAlgorithm(SHA1, []byte("abc"))
	b := h.Bytes()
	assert.Equal(t, byte(SHA1), b[0])
	for _, pad := range b[1:4] {
		assert.Equal(t, byte(0), pad)
	}
	// SHA1 digest is 20 bytes; the trailing 8 bytes of the 28-byte hash
	// field must be zero.
	for _, z := range b[24:32] {
		assert.Equal(t, byte(0), z)
	}
}

func TestSHA1AndBlake3OfSameBytesAreUnequal(t *testing.T) {
	sha := NewWithAlgorithm(SHA1, []byte("same bytes"))
	b3 := NewWithAlgorithm(BLAKE3, []byte("same bytes"))
	assert.NotEqual(t, sha, b3)
}

func TestDecode_RoundTrip(t *testing.T) {
	h := New([]byte("round trip me"))
	decoded, err := Decode(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestDecode_RejectsNonZeroPadding(t *testing.T) {
	h := New([]byte("x"))
	b := h.Bytes()
	b[1] = 1
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrNonZeroPadding)
}

func TestDecode_RejectsUnknownAlgorithm(t *testing.T) {
	h := New([]byte("x"))
	b := h.Bytes()
	b[0] = 0xFF
	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestString_Format(t *testing.T) {
	h := NewWithAlgorithm(BLAKE3, []byte("abc"))
	s := h.String()
	assert.Regexp(t, `^BLAKE3:[0-9a-f]{56}$`, s)
}

func TestChunkIdAndFileIdDeterministic(t *testing.T) {
	c1 := NewChunkId([]byte("payload"))
	c2 := NewChunkId([]byte("payload"))
	assert.Equal(t, c1, c2)

	f1 := NewFileId([]byte("payload"))
	assert.Equal(t, c1.Hash(), f1.Hash())
}
