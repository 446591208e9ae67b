// Package segment implements the append-only byte segments that back
// chunk storage. A Packer owns a single open segment at a time;
// chunks written through it land at the next free offset of whatever
// segment is currently open, and the segment seals (a fresh one opens
// for the next write) once it reaches its configured size.
package segment

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/prn-tf/castore/internal/metrics"
)

// Id identifies a segment. It wraps a UUIDv4 rather than reusing
// hashid.ContentHash: segments are not content-addressed, two segments
// can hold identical bytes, so identity here is allocation order, not
// content.
type Id struct {
	uuid uuid.UUID
}

// NewId allocates a fresh random segment id.
func NewId() Id {
	return Id{uuid: uuid.New()}
}

// Bytes returns the 16-byte UUID encoding.
func (id Id) Bytes() [16]byte {
	var out [16]byte
	copy(out[:], id.uuid[:])
	return out
}

// IdFromBytes decodes a 16-byte UUID encoding produced by Bytes.
func IdFromBytes(b [16]byte) Id {
	return Id{uuid: uuid.UUID(b)}
}

func (id Id) String() string { return id.uuid.String() }

// Segment is an append-only buffer of bytes. The zero value is an
// empty segment ready for appends.
type Segment struct {
	data []byte
}

// Len returns the number of bytes currently appended.
func (s *Segment) Len() int { return len(s.data) }

// Append writes contents to the end of the segment and returns the
// offset at which they were written.
func (s *Segment) Append(contents []byte) (offset uint32, err error) {
	offset = uint32(len(s.data))
	if uint64(len(s.data))+uint64(len(contents)) > 1<<32 {
		return 0, fmt.Errorf("segment: append would exceed uint32 offset range")
	}
	s.data = append(s.data, contents...)
	return offset, nil
}

// Slice returns the bytes in [offset, offset+size). It does not copy;
// callers that retain the result beyond the scope of a read lock must
// copy it first.
func (s *Segment) Slice(offset uint32, size uint32) ([]byte, error) {
	start := int(offset)
	end := start + int(size)
	if start < 0 || end > len(s.data) || start > end {
		return nil, fmt.Errorf("segment: slice [%d:%d] out of bounds for segment of length %d", start, end, len(s.data))
	}
	return s.data[start:end], nil
}

func (s *Segment) String() string {
	n := len(s.data)
	if n > 64 {
		n = 64
	}
	suffix := ""
	if n < len(s.data) {
		suffix = "..."
	}
	return fmt.Sprintf("Segment(%q%s)", s.data[:n], suffix)
}

// Location pinpoints where a chunk's bytes live: which segment, and
// the byte range within it.
type Location struct {
	SegmentId Id
	Offset    uint32
	Size      uint32
}

// Packer allocates append-only storage for chunk bytes across a
// rotating sequence of segments. It holds at most one segment open for
// writes at a time; once that segment reaches SegmentSize it is
// sealed and a new one is allocated on the next Append.
//
// Packer is safe for concurrent use. The lock is held only for the
// duration of the in-memory slice append and the bookkeeping around
// it, never across I/O to an external store.
type Packer struct {
	mu          sync.Mutex
	segmentSize uint64
	segments    map[Id]*Segment
	current     *Id
	metrics     *metrics.Metrics
}

// NewPacker returns a Packer that seals segments once they reach
// segmentSize bytes.
func NewPacker(segmentSize uint64) *Packer {
	return &Packer{
		segmentSize: segmentSize,
		segments:    make(map[Id]*Segment),
	}
}

// WithMetrics attaches m so sealed segments are counted.
func (p *Packer) WithMetrics(m *metrics.Metrics) *Packer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
	return p
}

// Append writes contents into whichever segment is currently open,
// allocating one if none is, and returns its Location. If the segment
// reaches segmentSize afterward, it is sealed: the next Append opens a
// new segment.
func (p *Packer) Append(contents []byte) (Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		id := NewId()
		p.segments[id] = &Segment{}
		p.current = &id
	}

	id := *p.current
	seg := p.segments[id]
	offset, err := seg.Append(contents)
	if err != nil {
		return Location{}, err
	}

	if uint64(seg.Len()) >= p.segmentSize {
		p.current = nil
		if p.metrics != nil {
			p.metrics.SegmentsSealed.Inc()
		}
	}

	return Location{SegmentId: id, Offset: offset, Size: uint32(len(contents))}, nil
}

// Read returns a copy of the bytes at loc.
func (p *Packer) Read(loc Location) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.segments[loc.SegmentId]
	if !ok {
		return nil, fmt.Errorf("segment: unknown segment %s", loc.SegmentId)
	}
	data, err := seg.Slice(loc.Offset, loc.Size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// SegmentCount reports how many segments (sealed and open) the packer
// currently holds. Exposed for tests and metrics, not part of the
// read/write hot path.
func (p *Packer) SegmentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.segments)
}
