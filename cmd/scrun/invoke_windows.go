//go:build windows

package main

import "syscall"

// invoke casts base to a function pointer and calls it with the entry
// ABI's two fastcall arguments (spec.md §6). syscall.Syscall is the
// standard Go trick for jumping through an arbitrary code pointer: it
// is meant for real syscalls, but its calling convention is exactly
// the Windows x64 fastcall convention this blob's entry point expects.
func invoke(base, arg1, arg2 uintptr) {
	syscall.Syscall(base, 2, arg1, arg2, 0)
}
