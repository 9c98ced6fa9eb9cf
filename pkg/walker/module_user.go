package walker

import (
	"fmt"
	"unsafe"

	"github.com/voidwalk/picforge/internal/winapi"
	"github.com/voidwalk/picforge/pkg/prim"
)

// wellKnownHashes names the two module-list positions FindModuleUser's
// fast path targets: the core module two links from the head, and the
// system API module three links from the head (spec.md §4.2's "Module
// fast path"). kernelbase.dll is included as a second acceptable match
// at the API-module hop, since on modern Windows kernel32.dll's exports
// are frequently forwarders into kernelbase.dll and some hosts load the
// latter at that position instead.
var wellKnownHashes = map[int]map[uint32]bool{
	2: {prim.Hash("ntdll.dll"): true},
	3: {prim.Hash("kernel32.dll"): true, prim.Hash("kernelbase.dll"): true},
}

// FullModuleSearch disables the fast path above (spec.md §6's
// enable-full-module-search build option), forcing every lookup
// through the general walk. Off by default, matching every
// build-time option in spec.md §6 defaulting off.
var FullModuleSearch bool

// readUnicodeString decodes a kernel UNICODE_STRING in place, following
// pkg/pe/peb.go's ReadUnicodeString.
func readUnicodeString(us winapi.UnicodeString) string {
	if us.Buffer == 0 || us.Length == 0 {
		return ""
	}
	n := int(us.Length / 2)
	if n > 520 {
		n = 520
	}
	units := (*[520]uint16)(unsafe.Pointer(us.Buffer))
	out := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		if units[i] == 0 {
			break
		}
		out = append(out, rune(units[i]))
	}
	return string(out)
}

// currentPEB reads the thread's PEB pointer through getPEBAddr, which
// peb.go points at this package's own getPEBAddrAsm routine
// (gs:[0x60] / fs:[0x30]); it shares no code with pkg/prim's SelfAddr
// even though both live in .s files.
func currentPEB() *winapi.Peb {
	addr := getPEBAddr()
	if addr == 0 {
		return nil
	}
	return (*winapi.Peb)(unsafe.Pointer(addr))
}

// FindModuleUser walks the current process's PEB.Ldr.InLoadOrderModuleList
// looking for sel, matching BaseDllName by hash so no plaintext module
// name ever needs to be compared. Grounded on pkg/pe/peb.go's
// GetCurrentProcessPEB/ReadModuleName pair and resolve.go's
// GetModuleBase loop.
func FindModuleUser(sel Selector) (uintptr, error) {
	wantHash := sel.hash()

	if base, ok := cacheGetModule(wantHash); ok {
		return base, nil
	}

	peb := currentPEB()
	if peb == nil || peb.Ldr == nil {
		return 0, fmt.Errorf("walker: PEB or loader data unavailable")
	}

	head := &peb.Ldr.InLoadOrderModuleList

	if !FullModuleSearch {
		if base, ok := fastPathModule(head, wantHash); ok {
			cacheSetModule(wantHash, base)
			return base, nil
		}
	}

	cur := head.Flink
	for cur != 0 && cur != uintptr(unsafe.Pointer(head)) {
		entry := (*winapi.LdrDataTableEntry)(unsafe.Pointer(cur))
		name := readUnicodeString(entry.BaseDllName)
		if prim.Hash(name) == wantHash {
			cacheSetModule(wantHash, entry.DllBase)
			return entry.DllBase, nil
		}
		cur = entry.InLoadOrderLinks.Flink
	}

	return 0, fmt.Errorf("walker: module %s not found in loader list", sel)
}

// fastPathModule hops directly to the fixed list positions
// wellKnownHashes names instead of scanning, then verifies the landed
// entry's name hash before trusting it — a real freestanding stub
// trusts the hop unconditionally (there's no room for a fallback), but
// a hosted resolver that might run under an emulator with a perturbed
// load order (spec.md §4.2's own caveat for disabling this path)
// should not silently return the wrong module's base.
func fastPathModule(head *winapi.ListEntry, wantHash uint32) (uintptr, bool) {
	var wantHops []int
	for hops, byHash := range wellKnownHashes {
		if byHash[wantHash] {
			wantHops = append(wantHops, hops)
		}
	}
	if len(wantHops) == 0 {
		return 0, false
	}

	for _, hops := range wantHops {
		cur := head.Flink
		ok := true
		for i := 1; i < hops; i++ {
			if cur == 0 || cur == uintptr(unsafe.Pointer(head)) {
				ok = false
				break
			}
			entry := (*winapi.LdrDataTableEntry)(unsafe.Pointer(cur))
			cur = entry.InLoadOrderLinks.Flink
		}
		if !ok || cur == 0 || cur == uintptr(unsafe.Pointer(head)) {
			continue
		}
		entry := (*winapi.LdrDataTableEntry)(unsafe.Pointer(cur))
		if prim.Hash(readUnicodeString(entry.BaseDllName)) == wantHash {
			return entry.DllBase, true
		}
	}
	return 0, false
}

// getPEBAddr is the indirection point swapped out by tests; production
// wiring happens in peb.go's init, which assigns getPEBAddrAsm
// (implemented in peb_amd64.s / peb_386.s).
var getPEBAddr = func() uintptr { return 0 }
