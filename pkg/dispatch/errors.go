package dispatch

import (
	"errors"
	"fmt"
)

// errNullResult stands in for the native table's bare "result is null"
// case, where no underlying error exists to wrap.
var errNullResult = errors.New("resolved to null")

// InitError reports which link in the chain failed to resolve. Index is
// that link's zero-based position in declaration order, counting both
// module and symbol entries, so the first link reports 0; failure
// itself is signalled by Init returning a non-nil error.
type InitError struct {
	Index int
	Name  string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("dispatch: link %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
