package manifest

import (
	"encoding/binary"
	"fmt"

	"github.com/prn-tf/castore/internal/hashid"
)

// On-disk layout (big-endian, length-prefixed where needed - the same
// compact deterministic scheme as the rest of the store's records):
//
//	size    uint64
//	chunked uint8 (0 or 1)
//	if !chunked: inlineLen uint32, inline []byte
//	if chunked:  chunkCount uint32, then chunkCount * (size uint32, chunkId [32]byte)
func encodeManifest(m Manifest) []byte {
	if !m.Chunked {
		buf := make([]byte, 8+1+4+len(m.Inline))
		binary.BigEndian.PutUint64(buf[0:8], m.Size)
		buf[8] = 0
		binary.BigEndian.PutUint32(buf[9:13], uint32(len(m.Inline)))
		copy(buf[13:], m.Inline)
		return buf
	}

	buf := make([]byte, 8+1+4+len(m.Chunks)*(4+hashid.Size))
	binary.BigEndian.PutUint64(buf[0:8], m.Size)
	buf[8] = 1
	binary.BigEndian.PutUint32(buf[9:13], uint32(len(m.Chunks)))
	off := 13
	for _, c := range m.Chunks {
		binary.BigEndian.PutUint32(buf[off:off+4], c.Size)
		off += 4
		hb := c.ChunkId.Hash().Bytes()
		copy(buf[off:off+hashid.Size], hb[:])
		off += hashid.Size
	}
	return buf
}

func decodeManifest(b []byte) (Manifest, error) {
	if len(b) < 13 {
		return Manifest{}, fmt.Errorf("manifest: record too short: %d bytes", len(b))
	}
	m := Manifest{Size: binary.BigEndian.Uint64(b[0:8])}
	switch b[8] {
	case 0:
		m.Chunked = false
		n := binary.BigEndian.Uint32(b[9:13])
		if len(b) != 13+int(n) {
			return Manifest{}, fmt.Errorf("manifest: inline length mismatch: want %d, got %d", 13+n, len(b))
		}
		m.Inline = append([]byte(nil), b[13:]...)
	case 1:
		m.Chunked = true
		count := binary.BigEndian.Uint32(b[9:13])
		off := 13
		entrySize := 4 + hashid.Size
		if len(b) != off+int(count)*entrySize {
			return Manifest{}, fmt.Errorf("manifest: chunk list length mismatch for %d entries", count)
		}
		m.Chunks = make([]Chunk, 0, count)
		for i := uint32(0); i < count; i++ {
			size := binary.BigEndian.Uint32(b[off : off+4])
			off += 4
			var hb [hashid.Size]byte
			copy(hb[:], b[off:off+hashid.Size])
			off += hashid.Size
			hash, err := hashid.Decode(hb)
			if err != nil {
				return Manifest{}, fmt.Errorf("manifest: decode chunk hash: %w", err)
			}
			m.Chunks = append(m.Chunks, Chunk{Size: size, ChunkId: hashid.NewChunkIdFromHash(hash)})
		}
	default:
		return Manifest{}, fmt.Errorf("manifest: unknown manifest tag %d", b[8])
	}
	return m, nil
}
