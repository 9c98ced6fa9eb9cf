package walker

import (
	"strings"
	"unsafe"
)

// apiSetNamespace mirrors ntdll's API_SET_NAMESPACE header, present on
// every supported Windows version since 8.1. Grounded on
// carved4-go-wincall/resolve.go's API_SET_NAMESPACE/API_SET_NAMESPACE_ENTRY,
// which is the only place in the retrieval pack that implements this
// redirection table; this module's version adds nothing beyond a
// Go-idiomatic rewrite against this package's own types.
type apiSetNamespace struct {
	Version     uint32
	Size        uint32
	Flags       uint32
	Count       uint32
	EntryOffset uint32
	HashOffset  uint32
	HashFactor  uint32
}

type apiSetNamespaceEntry struct {
	Flags        uint32
	NameOffset   uint32
	NameLength   uint32
	HashedLength uint32
	ValueOffset  uint32
	ValueCount   uint32
}

type apiSetValueEntry struct {
	Flags       uint32
	NameOffset  uint32
	NameLength  uint32
	ValueOffset uint32
	ValueLength uint32
}

func utf16At(base uintptr, byteLen uint32) string {
	n := int(byteLen / 2)
	if n <= 0 || n > 512 {
		return ""
	}
	units := (*[512]uint16)(unsafe.Pointer(base))
	out := make([]uint16, n)
	copy(out, units[:n])
	for i, u := range out {
		if u == 0 {
			out = out[:i]
			break
		}
	}
	return string(utf16Decode(out))
}

func utf16Decode(units []uint16) []rune {
	out := make([]rune, 0, len(units))
	for _, u := range units {
		out = append(out, rune(u))
	}
	return out
}

// ResolveAPISet rewrites an api-ms-win-*.dll style virtual DLL name to
// the concrete DLL that currently backs it, by reading the PEB's
// ApiSetMap. Names that aren't API Set DLLs, or that can't be resolved,
// are returned unchanged so callers can fall through to a direct
// FindModuleUser lookup.
func ResolveAPISet(dllName string) string {
	lower := strings.ToLower(dllName)
	if !strings.HasPrefix(lower, "api-ms-") && !strings.HasPrefix(lower, "ext-ms-") {
		return dllName
	}

	peb := currentPEB()
	if peb == nil || peb.ApiSetMap == 0 {
		return dllName
	}
	ns := (*apiSetNamespace)(unsafe.Pointer(peb.ApiSetMap))
	if ns.Count == 0 {
		return dllName
	}

	search := strings.TrimSuffix(lower, ".dll")
	entryBase := peb.ApiSetMap + uintptr(ns.EntryOffset)

	for i := uint32(0); i < ns.Count; i++ {
		entry := (*apiSetNamespaceEntry)(unsafe.Pointer(entryBase + uintptr(i)*unsafe.Sizeof(apiSetNamespaceEntry{})))
		name := strings.ToLower(utf16At(peb.ApiSetMap+uintptr(entry.NameOffset), entry.NameLength))
		if name != search {
			continue
		}
		if entry.ValueCount == 0 {
			continue
		}
		valuesBase := peb.ApiSetMap + uintptr(entry.ValueOffset)
		best := ""
		for k := uint32(0); k < entry.ValueCount; k++ {
			ve := (*apiSetValueEntry)(unsafe.Pointer(valuesBase + uintptr(k)*unsafe.Sizeof(apiSetValueEntry{})))
			real := utf16At(peb.ApiSetMap+uintptr(ve.ValueOffset), ve.ValueLength)
			if real == "" {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(real), ".dll") {
				real += ".dll"
			}
			if ve.NameLength > 0 {
				return real
			}
			if best == "" {
				best = real
			}
		}
		if best != "" {
			return best
		}
	}

	return dllName
}
