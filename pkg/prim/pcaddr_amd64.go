package prim

// fixup is the identity on amd64: RIP-relative addressing already
// resolves globals and function pointers after the blob moves, so no
// delta computation is needed (spec.md §4.1, "on x64 it is identity").
func fixup(addr uintptr) uintptr {
	return addr
}
