// Package inject ports the teacher's self/remote shellcode injection
// routines (pkg/sh/sh.go, pkg/process/process.go) from their original
// go-wincall/gorecycle syscall-gate plumbing — unfetchable outside the
// teacher's own module graph — onto golang.org/x/sys/windows, which
// Gr-1m-ShellcodeInjecterGo uses for the same Toolhelp32/VirtualAllocEx
// family of calls. This package is cmd/scrun's -pid path, not part of
// the blob itself: a blob never injects anything, it only runs once it
// is already resident.
package inject

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FindProcessByName enumerates running processes via a Toolhelp32
// snapshot and returns the PID of the first case-insensitive match,
// following pkg/sh/sh.go's findProcessByName.
func FindProcessByName(name string) (uint32, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("inject: CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	target := strings.ToLower(name)

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return 0, fmt.Errorf("inject: Process32First: %w", err)
	}
	for {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if strings.ToLower(exe) == target {
			return entry.ProcessID, nil
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}

	return 0, fmt.Errorf("inject: process %q not found", name)
}
