package walker

import (
	"fmt"
	"unsafe"

	"github.com/voidwalk/picforge/internal/winapi"
	"github.com/voidwalk/picforge/pkg/prim"
	"golang.org/x/sys/windows"
)

// querySystemInformation is swapped out by tests; production wiring
// calls ntdll's NtQuerySystemInformation. There's no pack example of
// this call (the nearest mention, rxid09672-ditto's syscall_detection.go,
// only names the function), so this follows the retry-on-status-mismatch
// allocation loop pkg/pe/pe.go already uses for NtAllocateVirtualMemory
// and the Open Question recorded for kernel-mode walking: any status
// other than STATUS_SUCCESS/STATUS_INFO_LENGTH_MISMATCH aborts the walk.
var querySystemInformation = func(class uint32, buf []byte) (returnLen uint32, status uintptr) {
	ntdll := windows.NewLazySystemDLL("ntdll.dll")
	proc := ntdll.NewProc("NtQuerySystemInformation")
	var retLen uint32
	var bufPtr uintptr
	if len(buf) > 0 {
		bufPtr = uintptr(unsafe.Pointer(&buf[0]))
	}
	r1, _, _ := proc.Call(
		uintptr(class),
		bufPtr,
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&retLen)),
	)
	return retLen, r1
}

// FindModuleKernel resolves a driver's base address from the kernel
// module list, for kernel-mode back ends (platform.KernelMode) that have no PEB to
// walk. It queries SystemModuleInformation, growing its buffer on
// STATUS_INFO_LENGTH_MISMATCH the way a well-behaved NtQuerySystemInformation
// caller always must, per spec.md §4.2.
func FindModuleKernel(sel Selector) (uintptr, error) {
	wantHash := sel.hash()
	if base, ok := cacheGetModule(wantHash); ok {
		return base, nil
	}

	size := uint32(1 << 16)
	var buf []byte
	for attempt := 0; attempt < 8; attempt++ {
		buf = make([]byte, size)
		retLen, status := querySystemInformation(winapi.SystemModuleInformation, buf)
		switch status {
		case winapi.StatusSuccess:
			return findInModuleBuffer(buf, wantHash, sel)
		case winapi.StatusInfoLengthMismatch:
			if retLen > size {
				size = retLen + 4096
			} else {
				size *= 2
			}
			continue
		default:
			return 0, fmt.Errorf("walker: NtQuerySystemInformation failed with status 0x%x", status)
		}
	}

	return 0, fmt.Errorf("walker: SystemModuleInformation buffer never converged")
}

func findInModuleBuffer(buf []byte, wantHash uint32, sel Selector) (uintptr, error) {
	if len(buf) < 8 {
		return 0, fmt.Errorf("walker: module buffer too small")
	}
	count := *(*uint32)(unsafe.Pointer(&buf[0]))
	entries := uintptr(unsafe.Pointer(&buf[0])) + 8 // NumberOfModules, then padding to array

	for i := uint32(0); i < count; i++ {
		entry := (*winapi.RtlProcessModuleInformation)(unsafe.Pointer(entries + uintptr(i)*winapi.SizeOfRtlProcessModuleInformation))
		name := cstringFromFixed(entry.FullPathName[entry.OffsetToFileName:])
		if prim.Hash(name) == wantHash {
			cacheSetModule(wantHash, entry.ImageBase)
			return entry.ImageBase, nil
		}
	}
	return 0, fmt.Errorf("walker: kernel module %s not found", sel)
}

func cstringFromFixed(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
