// Package dispatch builds dispatch tables — the ordered chain of module
// and symbol slots that a generated or hand-built table's Init/Destroy
// walk. This is the runtime half of the BEGIN/MODULE/SYMBOL/END
// declaration grammar: cmd/picgen emits code shaped like what this
// package's Builder produces by hand, so a table can be built either
// way and the two stay semantically identical by construction.
package dispatch

import "fmt"

// Flags controls how a module or symbol link resolves and tears down,
// mirroring the per-entry bitwise flags of the declaration grammar.
type Flags uint8

const (
	// DynamicResolve looks a symbol up through the platform's dynamic
	// resolver (GetProcAddress in user-mode) instead of the walker,
	// and implies the name is used as a string.
	DynamicResolve Flags = 1 << iota
	// DynamicLoad obtains a module via the platform's loader
	// (LoadLibraryA) instead of the walker. User-mode only, module
	// entries only.
	DynamicLoad
	// DynamicUnload releases a dynamically-loaded module on Destroy.
	// Requires DynamicLoad.
	DynamicUnload
	// StringModule matches a module by case-insensitive string
	// comparison instead of FNV-1a hash.
	StringModule
	// StringSymbol matches a symbol by case-insensitive string
	// comparison instead of FNV-1a hash.
	StringSymbol
)

// Has reports whether bit is set, exported so tooling outside this
// package (cmd/picgen's code generator, chiefly) can inspect a link's
// effective flags without duplicating the bit layout.
func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// validateModule enforces the ill-formedness rules spec.md §4.3 states
// for module entries: DynamicUnload requires DynamicLoad, and in
// kernel mode none of the Dynamic* flags may appear at all.
func validateModule(f Flags, kernelMode bool) error {
	if f.Has(DynamicUnload) && !f.Has(DynamicLoad) {
		return fmt.Errorf("dispatch: DynamicUnload without DynamicLoad is ill-formed")
	}
	if kernelMode && (f.Has(DynamicLoad) || f.Has(DynamicUnload) || f.Has(DynamicResolve)) {
		return fmt.Errorf("dispatch: DynamicLoad/DynamicUnload/DynamicResolve are ill-formed in kernel mode")
	}
	return nil
}

// validateSymbol enforces the symbol-entry half of the same rules:
// DynamicLoad, DynamicUnload, and StringModule are module-only flags
// and may never appear on a symbol's own flag set (inherited flags
// from the enclosing module are a separate, later computation).
func validateSymbol(f Flags, kernelMode bool) error {
	if f.Has(DynamicLoad) || f.Has(DynamicUnload) || f.Has(StringModule) {
		return fmt.Errorf("dispatch: DynamicLoad/DynamicUnload/StringModule are ill-formed on a symbol entry")
	}
	if kernelMode && f.Has(DynamicResolve) {
		return fmt.Errorf("dispatch: DynamicResolve is ill-formed in kernel mode")
	}
	return nil
}
