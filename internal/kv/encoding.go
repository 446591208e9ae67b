package kv

import (
	"encoding/binary"
	"fmt"

	"github.com/prn-tf/castore/internal/hashid"
)

// Namespace is a 64-bit tenant identifier. All keys in every partition
// are namespace-prefixed; deduplication and last-writer-wins semantics
// are scoped per namespace.
type Namespace uint64

// ChunkKey encodes the chunks partition key: (namespace, chunk_id).
func ChunkKey(ns Namespace, id hashid.ChunkId) []byte {
	return namespacedHashKey(ns, id.Hash())
}

// FileKey encodes the files partition key: (namespace, file_id).
func FileKey(ns Namespace, id hashid.FileId) []byte {
	return namespacedHashKey(ns, id.Hash())
}

// NamedFileKey encodes the named_files partition key:
// (namespace, name) with name as a length-prefixed UTF-8 string.
func NamedFileKey(ns Namespace, name string) []byte {
	nameBytes := []byte(name)
	key := make([]byte, 8+4+len(nameBytes))
	binary.BigEndian.PutUint64(key[0:8], uint64(ns))
	binary.BigEndian.PutUint32(key[8:12], uint32(len(nameBytes)))
	copy(key[12:], nameBytes)
	return key
}

func namespacedHashKey(ns Namespace, h hashid.ContentHash) []byte {
	hb := h.Bytes()
	key := make([]byte, 8+len(hb))
	binary.BigEndian.PutUint64(key[0:8], uint64(ns))
	copy(key[8:], hb[:])
	return key
}

// DecodeNamedFileKey reverses NamedFileKey, recovering the namespace
// and name. Used by tooling that iterates the named_files partition
// directly; the hot path never needs to decode its own keys.
func DecodeNamedFileKey(key []byte) (Namespace, string, error) {
	if len(key) < 12 {
		return 0, "", fmt.Errorf("kv: named file key too short: %d bytes", len(key))
	}
	ns := Namespace(binary.BigEndian.Uint64(key[0:8]))
	n := binary.BigEndian.Uint32(key[8:12])
	if len(key) != 12+int(n) {
		return 0, "", fmt.Errorf("kv: named file key length mismatch: want %d, got %d", 12+n, len(key))
	}
	return ns, string(key[12:]), nil
}
