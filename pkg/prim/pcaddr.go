package prim

// SelfAddr returns a runtime code address that Fixup compares with
// linkAddr, implemented in assembly per architecture — the same
// "declare in Go, define in .s" split the teacher uses for
// GetPEB/WalkLDR (pkg/pe/peb.go). On amd64 it returns SelfAddr's own
// entry address through a RIP-relative load;
// on 386 it is the classic call/pop/sub trick.
//
//go:noescape
func SelfAddr() uintptr

// linkAddr holds the link-time address SelfAddr resolves to, as
// recorded by SetLinkAddr; Fixup uses the
// delta between that and the live SelfAddr() to relocate a pointer. In
// ordinary (non-blob) use linkAddr stays zero and Fixup is the identity,
// which is correct on amd64 always (RIP-relative addressing already
// resolves) and harmless on 386 when the caller never relocates.
var linkAddr uintptr

// SetLinkAddr records the link-time value SelfAddr() should have
// produced, enabling Fixup to compute real deltas. Nothing in this
// module calls it outside the tests, so linkAddr otherwise stays zero.
func SetLinkAddr(addr uintptr) {
	linkAddr = addr
}

// Fixup computes the run-time address corresponding to a compile-time
// (link-time) pointer addr, following pic(addr) = pc() - &pc + addr.
// On amd64 this always returns addr unchanged.
func Fixup(addr uintptr) uintptr {
	return fixup(addr)
}
