package nameindex

import "errors"

// ErrNotFound is returned (wrapped) by Resolve when no file id is
// bound to the requested name in the given namespace.
var ErrNotFound = errors.New("name not bound")
