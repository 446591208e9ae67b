package chunkindex

import "errors"

// ErrNotFound is returned (wrapped) by Lookup when the requested
// chunk id has no record in the given namespace.
var ErrNotFound = errors.New("chunk not found")
