package entry

import "fmt"

// Cleanup frees the blob's own pages, the Go equivalent of the
// assembly cleanup tail that reads slot 0 (cleanup) then slot 1 (free)
// and tail-calls through them (spec.md §4.5). After Cleanup returns,
// base/size must never be touched again — ownership has transferred to
// the platform free primitive, matching spec.md §5's "Shared resources"
// paragraph.
func Cleanup(pager Pager, base, size uintptr) error {
	if pager == nil {
		return fmt.Errorf("entry: cleanup requested with no pager configured")
	}
	if err := pager.FreePages(base, size); err != nil {
		return fmt.Errorf("entry: cleanup failed: %w", err)
	}
	return nil
}
