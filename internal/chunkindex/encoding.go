package chunkindex

import (
	"encoding/binary"
	"fmt"

	"github.com/prn-tf/castore/internal/segment"
)

// metadata on-disk layout: fixed-width, big-endian, chosen to be a
// direct, unambiguous binary encoding equivalent to the Postcard-style
// scheme the rest of the store's keys use. There is no variable-length
// field here so no length prefix is needed.
//
//	size            uint32
//	compression     uint8
//	compressedSize  uint32
//	segmentId       [16]byte
//	offsetInSegment uint32
const metadataSize = 4 + 1 + 4 + 16 + 4

func encodeMetadata(m Metadata) []byte {
	buf := make([]byte, metadataSize)
	binary.BigEndian.PutUint32(buf[0:4], m.Size)
	buf[4] = byte(m.Compression)
	binary.BigEndian.PutUint32(buf[5:9], m.CompressedSize)
	segBytes := m.SegmentId.Bytes()
	copy(buf[9:25], segBytes[:])
	binary.BigEndian.PutUint32(buf[25:29], m.OffsetInSegment)
	return buf
}

func decodeMetadata(b []byte) (Metadata, error) {
	if len(b) != metadataSize {
		return Metadata{}, fmt.Errorf("chunkindex: metadata record has wrong length: want %d, got %d", metadataSize, len(b))
	}
	var segId [16]byte
	copy(segId[:], b[9:25])
	return Metadata{
		Size:            binary.BigEndian.Uint32(b[0:4]),
		Compression:     Compression(b[4]),
		CompressedSize:  binary.BigEndian.Uint32(b[5:9]),
		SegmentId:       segment.IdFromBytes(segId),
		OffsetInSegment: binary.BigEndian.Uint32(b[25:29]),
	}, nil
}
