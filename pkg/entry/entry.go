// Package entry is the Go analogue of spec.md §4.5's generated _entry
// routine and assembly cleanup tail: Run resolves the dispatch table
// (Init), invokes the caller's body, tears it down (Destroy), and
// Cleanup optionally frees the pages backing it afterward. There is no
// real assembly trampoline here — cmd/scrun already owns the memory a
// Go process runs in — but the sequencing (init, body, destroy, then
// maybe free) is carried over exactly as the native control flow runs
// it, since that ordering is the one place this package must match the
// spec bit-for-bit rather than just in spirit.
package entry

import (
	"fmt"

	"github.com/voidwalk/picforge/pkg/dispatch"
)

// Pager is the cleanup primitive a Mode back end provides: freeing the
// pages the table's resolved handles and slots live in. pkg/platform's
// UserMode.FreePages and KernelMode.FreePages both satisfy it.
type Pager interface {
	FreePages(base uintptr, size uintptr) error
}

// Body is the author's entry(argument1, argument2) from spec.md §6.
type Body func(table *dispatch.Table, arg1, arg2 uintptr) error

// Run performs the init/body/destroy sequence spec.md §2's "Control
// flow" paragraph describes. It does not free anything; call Cleanup
// afterward if the blob is meant to free itself.
func Run(table *dispatch.Table, arg1, arg2 uintptr, body Body) error {
	defer table.Destroy()

	if err := table.Init(); err != nil {
		return fmt.Errorf("entry: init failed: %w", err)
	}

	if err := body(table, arg1, arg2); err != nil {
		return fmt.Errorf("entry: body failed: %w", err)
	}
	return nil
}
