package manifest

import "errors"

// ErrNotFound is returned (wrapped) by ReadFile when the requested
// file id has no manifest in the given namespace.
var ErrNotFound = errors.New("file not found")
