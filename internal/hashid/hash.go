// Package hashid implements the fixed-layout content-hash identifiers
// used throughout the store: ContentHash, and the ChunkId/FileId
// new-types over it.
package hashid

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// Algorithm identifies which hash function produced a ContentHash.
type Algorithm uint8

const (
	// SHA1 truncates the 20-byte digest into the 28-byte hash field,
	// leaving the remaining 8 bytes zero.
	SHA1 Algorithm = 0
	// BLAKE3 truncates the 32-byte digest to 28 bytes. This is the
	// default algorithm for new content.
	BLAKE3 Algorithm = 1
)

func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "SHA1"
	case BLAKE3:
		return "BLAKE3"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Size is the fixed on-disk/in-memory layout of a ContentHash: 1 tag
// byte, 3 reserved padding bytes, 28 bytes of hash material.
const Size = 32

// ErrNonZeroPadding is returned when decoding a ContentHash whose
// reserved padding bytes are not all zero.
var ErrNonZeroPadding = errors.New("hashid: non-zero padding in content hash")

// ErrUnknownAlgorithm is returned for an unrecognized algorithm tag.
var ErrUnknownAlgorithm = errors.New("hashid: unknown hash algorithm")

// ContentHash is a fixed 32-byte content identifier. Equality and
// hashing are over the full 32 bytes, including the algorithm tag: a
// SHA1 hash and a BLAKE3 hash of identical bytes compare unequal. This
// is intentional — switching hash algorithms must never collide two
// otherwise-unrelated chunks.
type ContentHash struct {
	algo  Algorithm
	bytes [28]byte
}

// New computes a ContentHash of contents using the default algorithm
// (BLAKE3). Implementations MUST default to BLAKE3 for new content.
func New(contents []byte) ContentHash {
	return NewWithAlgorithm(BLAKE3, contents)
}

// NewWithAlgorithm computes a ContentHash of contents using algo.
func NewWithAlgorithm(algo Algorithm, contents []byte) ContentHash {
	var out [28]byte
	switch algo {
	case SHA1:
		sum := sha1.Sum(contents)
		copy(out[:20], sum[:])
	case BLAKE3:
		sum := blake3.Sum256(contents)
		copy(out[:], sum[:28])
	default:
		panic(fmt.Sprintf("hashid: unsupported algorithm %v", algo))
	}
	return ContentHash{algo: algo, bytes: out}
}

// FromDigest builds a ContentHash from an already-computed digest
// (e.g. one accumulated incrementally over a streamed upload, rather
// than computed in one call via New). digest must be at least 28
// bytes for BLAKE3 or at least 20 bytes for SHA1; only the leading
// bytes needed to fill the 28-byte hash field are used.
func FromDigest(algo Algorithm, digest []byte) (ContentHash, error) {
	var out [28]byte
	switch algo {
	case SHA1:
		if len(digest) < 20 {
			return ContentHash{}, fmt.Errorf("hashid: SHA1 digest too short: %d bytes", len(digest))
		}
		copy(out[:20], digest[:20])
	case BLAKE3:
		if len(digest) < 28 {
			return ContentHash{}, fmt.Errorf("hashid: BLAKE3 digest too short: %d bytes", len(digest))
		}
		copy(out[:], digest[:28])
	default:
		return ContentHash{}, ErrUnknownAlgorithm
	}
	return ContentHash{algo: algo, bytes: out}, nil
}

// Algorithm returns which hash function produced h.
func (h ContentHash) Algorithm() Algorithm { return h.algo }

// Bytes returns the full 32-byte encoding: tag, 3 zero padding bytes,
// 28 bytes of hash material.
func (h ContentHash) Bytes() [Size]byte {
	var out [Size]byte
	out[0] = byte(h.algo)
	// out[1:4] left zero: reserved padding.
	copy(out[4:], h.bytes[:])
	return out
}

// Decode parses the fixed 32-byte encoding produced by Bytes. It
// rejects non-zero padding and unrecognized algorithm tags, per spec
// §4.1 ("implementations MUST reject hashes with non-zero padding on
// read").
func Decode(b [Size]byte) (ContentHash, error) {
	algo := Algorithm(b[0])
	if algo != SHA1 && algo != BLAKE3 {
		return ContentHash{}, ErrUnknownAlgorithm
	}
	if b[1] != 0 || b[2] != 0 || b[3] != 0 {
		return ContentHash{}, ErrNonZeroPadding
	}
	var out [28]byte
	copy(out[:], b[4:])
	return ContentHash{algo: algo, bytes: out}, nil
}

// String renders the debug form "BLAKE3:<hex>" / "SHA1:<hex>", hex of
// the full 28-byte hash field regardless of algorithm.
func (h ContentHash) String() string {
	return fmt.Sprintf("%s:%s", h.algo, hex.EncodeToString(h.bytes[:]))
}
