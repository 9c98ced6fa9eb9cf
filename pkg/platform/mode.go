// Package platform implements the two back ends a dispatch.Table can
// run against: user-mode (LoadLibrary/FreeLibrary/GetProcAddress,
// VirtualFree cleanup) and kernel-mode (no dynamic load; a passed-in
// kernel image base stands in for self-discovery; ExFreePool cleanup).
// Grounded on spec.md §4.4's back-end comparison table and on the
// teacher's pkg/pe/dll.go for the user-mode loader calls it already
// wraps via golang.org/x/sys/windows in place of the teacher's
// unfetchable carved4/go-wincall syscall layer.
package platform

// Mode distinguishes the two dispatch.Resolver implementations this
// package provides.
type Mode int

const (
	ModeUser Mode = iota
	ModeKernel
)

func (m Mode) String() string {
	if m == ModeKernel {
		return "kernel"
	}
	return "user"
}
