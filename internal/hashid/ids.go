package hashid

// ChunkId identifies a chunk by the content hash of its bytes. It is a
// distinct type from FileId and ContentHash at the type level even
// though it shares the same 32-byte encoding.
type ChunkId struct {
	hash ContentHash
}

// NewChunkId derives a ChunkId deterministically from chunk bytes.
func NewChunkId(contents []byte) ChunkId {
	return ChunkId{hash: New(contents)}
}

// NewChunkIdFromHash wraps a precomputed ContentHash, e.g. one
// decoded back off disk, as a ChunkId.
func NewChunkIdFromHash(h ContentHash) ChunkId {
	return ChunkId{hash: h}
}

// Hash returns the underlying ContentHash.
func (c ChunkId) Hash() ContentHash { return c.hash }

func (c ChunkId) String() string { return "ChunkId(" + c.hash.String() + ")" }

// FileId identifies a file by the content hash of its bytes.
type FileId struct {
	hash ContentHash
}

// NewFileId derives a FileId deterministically from file bytes.
func NewFileId(contents []byte) FileId {
	return FileId{hash: New(contents)}
}

// NewFileIdFromHash wraps a precomputed ContentHash (e.g. an
// incrementally accumulated BLAKE3 hash from a streaming upload) as a
// FileId.
func NewFileIdFromHash(h ContentHash) FileId {
	return FileId{hash: h}
}

// Hash returns the underlying ContentHash.
func (f FileId) Hash() ContentHash { return f.hash }

func (f FileId) String() string { return "FileId(" + f.hash.String() + ")" }
