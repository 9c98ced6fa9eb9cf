// Package walker resolves modules and exported symbols directly from a
// PE image already mapped into the current address space, the way a
// loaded shellcode stub must: no LoadLibrary/GetProcAddress calls, just
// header and export-directory arithmetic against raw memory. Grounded
// on the teacher's pkg/pe/pe.go export routines and pkg/pe/peb.go's
// PEB/LDR walk, generalized to take either a literal name or a
// precomputed prim.Hash so a generated dispatch table never needs to
// carry plaintext strings.
package walker

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/voidwalk/picforge/internal/winapi"
	"github.com/voidwalk/picforge/pkg/prim"
)

// Selector names the symbol or module a lookup is after, either as a
// literal string (cheap to read, easy to signature) or as a
// precomputed FNV-1a hash (what a STRING_SYMBOL-less table carries).
type Selector struct {
	Name string
	Hash uint32
	// ByHash is true when Hash should be compared directly rather than
	// derived from Name at lookup time (Name may be empty in that case).
	ByHash bool
}

// ByName builds a Selector that matches a literal, case-insensitive name.
func ByName(name string) Selector { return Selector{Name: name} }

// ByHash builds a Selector that matches only a precomputed hash, for
// tables built with STRING_SYMBOL/STRING_MODULE disabled.
func ByHash(hash uint32) Selector { return Selector{Hash: hash, ByHash: true} }

func (s Selector) hash() uint32 {
	if s.ByHash {
		return s.Hash
	}
	return prim.Hash(s.Name)
}

func (s Selector) String() string {
	if s.ByHash {
		return fmt.Sprintf("#%08x", s.Hash)
	}
	return s.Name
}

// ForwarderEnabled gates forwarder resolution in FindExport (spec.md
// §6's enable-find-module-forwarder build option). Off by default,
// matching every build-time option in spec.md §6 defaulting off: a
// module/symbol pair that resolves to a forwarder entry then fails
// Init with a plain lookup error instead of being silently followed.
var ForwarderEnabled bool

// Export describes one resolved entry from a module's export directory.
type Export struct {
	Name    string
	Ordinal uint16
	RVA     uint32
	Addr    uintptr
}

// dosAndNT validates the MZ/PE headers at base and returns the parsed
// NT headers, following pkg/pe/pe.go's isForwardedExport header checks.
func dosAndNT(base uintptr) (*winapi.ImageNtHeaders64, error) {
	if base == 0 {
		return nil, fmt.Errorf("walker: nil module base")
	}
	dos := (*winapi.ImageDosHeader)(unsafe.Pointer(base))
	if dos.EMagic != 0x5A4D {
		return nil, fmt.Errorf("walker: missing MZ signature at %#x", base)
	}
	nt := (*winapi.ImageNtHeaders64)(unsafe.Pointer(base + uintptr(dos.ELfanew)))
	if nt.Signature != 0x4550 {
		return nil, fmt.Errorf("walker: missing PE signature at %#x", base)
	}
	return nt, nil
}

// exportDirectory locates a module's IMAGE_EXPORT_DIRECTORY and the RVA
// range it occupies (used to detect forwarder strings, which live
// inside that same range rather than pointing at executable code).
func exportDirectory(base uintptr) (*winapi.ImageExportDirectory, uint32, uint32, error) {
	nt, err := dosAndNT(base)
	if err != nil {
		return nil, 0, 0, err
	}
	dir := nt.OptionalHeader.DataDirectory[winapi.DirectoryEntryExport]
	if dir.VirtualAddress == 0 {
		return nil, 0, 0, fmt.Errorf("walker: module at %#x has no export directory", base)
	}
	exp := (*winapi.ImageExportDirectory)(unsafe.Pointer(base + uintptr(dir.VirtualAddress)))
	return exp, dir.VirtualAddress, dir.Size, nil
}

func cstringAt(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	var b []byte
	for {
		c := *(*byte)(unsafe.Pointer(addr))
		if c == 0 {
			break
		}
		b = append(b, c)
		addr++
	}
	return string(b)
}

// FindExport walks a module's export directory looking for sel, comparing
// the hash of each exported name against sel's hash (computed from the
// name when sel carries one); there is no lookup by ordinal. Forwarder
// strings (entries whose RVA lands back inside the export directory
// range, e.g. "NTDLL.RtlAllocateHeap") are followed only when
// ForwarderEnabled is set; otherwise a forwarder entry is a lookup
// failure.
func FindExport(moduleBase uintptr, sel Selector) (Export, error) {
	wantHash := sel.hash()
	if cached, ok := cacheGetExport(moduleBase, wantHash); ok {
		return cached, nil
	}

	exp, dirRVA, dirSize, err := exportDirectory(moduleBase)
	if err != nil {
		return Export{}, err
	}

	names := (*[1 << 20]uint32)(unsafe.Pointer(moduleBase + uintptr(exp.AddressOfNames)))
	ordinals := (*[1 << 20]uint16)(unsafe.Pointer(moduleBase + uintptr(exp.AddressOfNameOrdinals)))
	funcs := (*[1 << 20]uint32)(unsafe.Pointer(moduleBase + uintptr(exp.AddressOfFunctions)))

	// Descending from NumberOfNames-1, per spec.md §4.2 step 2 — the
	// names array is sorted ascending by the loader, so this buys
	// nothing for a unique name, but a module exporting the same name
	// twice under different ordinals (rare, but not forbidden) resolves
	// to the last such entry rather than the first.
	for i := int64(exp.NumberOfNames) - 1; i >= 0; i-- {
		nameAddr := moduleBase + uintptr(names[i])
		name := cstringAt(nameAddr)
		if prim.Hash(name) != wantHash {
			continue
		}
		ord := ordinals[i]
		funcRVA := funcs[ord]
		addr := moduleBase + uintptr(funcRVA)

		if funcRVA >= dirRVA && funcRVA < dirRVA+dirSize {
			if !ForwarderEnabled {
				return Export{}, fmt.Errorf("walker: %s is a forwarder and forwarder resolution is disabled", sel)
			}
			resolved, ferr := ResolveForwarder(cstringAt(addr))
			if ferr != nil {
				return Export{}, fmt.Errorf("walker: resolving forwarder for %s: %w", sel, ferr)
			}
			addr = resolved
		}

		result := Export{Name: name, Ordinal: ord, RVA: funcRVA, Addr: addr}
		cacheSetExport(moduleBase, wantHash, result)
		return result, nil
	}

	return Export{}, fmt.Errorf("walker: symbol %s not found", sel)
}

// ResolveForwarder resolves an export-forwarder string of the form
// "MODULE.FUNCTION" to a live address (an ordinal forwarder,
// "MODULE.#ordinal", is rejected with an error), recursing
// through FindModule/FindExport exactly as a normal lookup would, per
// spec.md §2's description of forwarder entries and pkg/pe/pe.go's
// resolveForwardedExport.
func ResolveForwarder(forwarder string) (uintptr, error) {
	parts := strings.SplitN(forwarder, ".", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("walker: malformed forwarder string %q", forwarder)
	}
	targetDLL := parts[0]
	targetFunc := parts[1]
	if !strings.HasSuffix(strings.ToLower(targetDLL), ".dll") {
		targetDLL += ".dll"
	}
	targetDLL = ResolveAPISet(targetDLL)

	base, err := FindModuleUser(ByName(targetDLL))
	if err != nil {
		return 0, fmt.Errorf("walker: forwarder target module %s: %w", targetDLL, err)
	}

	// spec.md §4.2 step 4: "ordinal forwarders beginning with # are
	// unsupported" — unlike a name forwarder, resolving one would
	// require an ordinal-indexed lookup this walker deliberately
	// doesn't provide, so it surfaces as a plain resolution failure
	// rather than silently guessing at the target export.
	if strings.HasPrefix(targetFunc, "#") {
		return 0, fmt.Errorf("walker: ordinal forwarder %q is unsupported", forwarder)
	}

	export, ferr := FindExport(base, ByName(targetFunc))
	if ferr != nil {
		return 0, ferr
	}
	return export.Addr, nil
}
