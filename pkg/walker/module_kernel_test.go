package walker

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/voidwalk/picforge/internal/winapi"
)

// buildFakeModuleBuffer lays out a SYSTEM_MODULE_INFORMATION-shaped
// buffer with len(names) entries, mirroring what NtQuerySystemInformation
// returns for SystemModuleInformation. Deliberately builds at least two
// entries by default in callers, since a stride bug only shows up past
// index 0.
func buildFakeModuleBuffer(names []string) []byte {
	stride := winapi.SizeOfRtlProcessModuleInformation
	buf := make([]byte, 8+uintptr(len(names))*stride)

	*(*uint32)(unsafe.Pointer(&buf[0])) = uint32(len(names))
	entries := uintptr(unsafe.Pointer(&buf[0])) + 8

	for i, name := range names {
		entry := (*winapi.RtlProcessModuleInformation)(unsafe.Pointer(entries + uintptr(i)*stride))
		entry.ImageBase = uintptr(0x1000 * (i + 1))
		copy(entry.FullPathName[:], name)
		entry.OffsetToFileName = 0
	}

	return buf
}

func TestFindModuleKernelMatchesSecondEntry(t *testing.T) {
	ClearCaches()
	names := []string{"ntoskrnl.exe", "ksecdd.sys"}
	buf := buildFakeModuleBuffer(names)

	old := querySystemInformation
	querySystemInformation = func(class uint32, dst []byte) (uint32, uintptr) {
		n := copy(dst, buf)
		return uint32(n), winapi.StatusSuccess
	}
	defer func() { querySystemInformation = old }()

	base, err := FindModuleKernel(ByName("ksecdd.sys"))
	require.NoError(t, err)
	require.Equal(t, uintptr(0x2000), base)
}

func TestFindModuleKernelMatchesThirdEntry(t *testing.T) {
	ClearCaches()
	names := []string{"ntoskrnl.exe", "ksecdd.sys", "win32k.sys"}
	buf := buildFakeModuleBuffer(names)

	old := querySystemInformation
	querySystemInformation = func(class uint32, dst []byte) (uint32, uintptr) {
		n := copy(dst, buf)
		return uint32(n), winapi.StatusSuccess
	}
	defer func() { querySystemInformation = old }()

	base, err := FindModuleKernel(ByName("win32k.sys"))
	require.NoError(t, err)
	require.Equal(t, uintptr(0x3000), base)
}

func TestFindModuleKernelGrowsBufferOnMismatch(t *testing.T) {
	ClearCaches()
	names := []string{"ntoskrnl.exe", "ksecdd.sys"}
	buf := buildFakeModuleBuffer(names)

	// Report a required size above FindModuleKernel's 64 KiB first
	// attempt, so the first call always mismatches.
	const need = 1 << 17
	calls := 0
	old := querySystemInformation
	querySystemInformation = func(class uint32, dst []byte) (uint32, uintptr) {
		calls++
		if len(dst) < need {
			return need, winapi.StatusInfoLengthMismatch
		}
		n := copy(dst, buf)
		return uint32(n), winapi.StatusSuccess
	}
	defer func() { querySystemInformation = old }()

	base, err := FindModuleKernel(ByName("ksecdd.sys"))
	require.NoError(t, err)
	require.Equal(t, uintptr(0x2000), base)
	require.GreaterOrEqual(t, calls, 2)
}

func TestFindModuleKernelUnexpectedStatusFails(t *testing.T) {
	ClearCaches()
	old := querySystemInformation
	querySystemInformation = func(class uint32, dst []byte) (uint32, uintptr) {
		return 0, 0xC0000022 // STATUS_ACCESS_DENIED
	}
	defer func() { querySystemInformation = old }()

	_, err := FindModuleKernel(ByName("ntoskrnl.exe"))
	require.Error(t, err)
}

func TestFindModuleKernelNotFound(t *testing.T) {
	ClearCaches()
	buf := buildFakeModuleBuffer([]string{"ntoskrnl.exe"})

	old := querySystemInformation
	querySystemInformation = func(class uint32, dst []byte) (uint32, uintptr) {
		n := copy(dst, buf)
		return uint32(n), winapi.StatusSuccess
	}
	defer func() { querySystemInformation = old }()

	_, err := FindModuleKernel(ByName("notreal.sys"))
	require.Error(t, err)
}
