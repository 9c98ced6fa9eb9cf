package walker

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/voidwalk/picforge/internal/winapi"
	"github.com/voidwalk/picforge/pkg/prim"
)

// buildFakeModule lays out a minimal MZ/PE/export-directory image in a
// plain Go byte slice so FindExport can be exercised without a real
// loaded DLL. The layout only fills in what FindExport actually reads.
func buildFakeModule(t *testing.T, exports map[string]uint32) (uintptr, func()) {
	t.Helper()

	const (
		dosSize   = 0x40
		ntOff     = 0x80
		expDirOff = 0x200
		namesOff  = 0x300
		ordsOff   = 0x340
		funcsOff  = 0x380
		strOff    = 0x400
	)

	buf := make([]byte, 0x1000)
	base := uintptr(unsafe.Pointer(&buf[0]))

	dos := (*winapi.ImageDosHeader)(unsafe.Pointer(base))
	dos.EMagic = 0x5A4D
	dos.ELfanew = ntOff

	nt := (*winapi.ImageNtHeaders64)(unsafe.Pointer(base + ntOff))
	nt.Signature = 0x4550
	nt.OptionalHeader.DataDirectory[winapi.DirectoryEntryExport] = winapi.ImageDataDirectory{
		VirtualAddress: expDirOff,
		Size:           0x200,
	}

	exp := (*winapi.ImageExportDirectory)(unsafe.Pointer(base + expDirOff))
	exp.Base = 1
	exp.NumberOfNames = uint32(len(exports))
	exp.NumberOfFunctions = uint32(len(exports))
	exp.AddressOfNames = namesOff
	exp.AddressOfNameOrdinals = ordsOff
	exp.AddressOfFunctions = funcsOff

	names := (*[16]uint32)(unsafe.Pointer(base + namesOff))
	ords := (*[16]uint16)(unsafe.Pointer(base + ordsOff))
	funcs := (*[16]uint32)(unsafe.Pointer(base + funcsOff))

	strCursor := uint32(strOff)
	i := 0
	for name, rva := range exports {
		nameBytes := append([]byte(name), 0)
		copy(buf[strCursor:], nameBytes)
		names[i] = strCursor
		ords[i] = uint16(i)
		funcs[i] = rva
		strCursor += uint32(len(nameBytes))
		i++
	}

	// keep buf alive for the duration of the test via a closure
	keepAlive := func() { _ = buf[len(buf)-1] }
	return base, keepAlive
}

func TestFindExportByName(t *testing.T) {
	base, keep := buildFakeModule(t, map[string]uint32{
		"ExportedFunc": 0x1234,
	})
	defer keep()

	e, err := FindExport(base, ByName("ExportedFunc"))
	require.NoError(t, err)
	require.Equal(t, uint32(0x1234), e.RVA)
	require.Equal(t, base+0x1234, e.Addr)
}

func TestFindExportByHash(t *testing.T) {
	base, keep := buildFakeModule(t, map[string]uint32{
		"HashedFunc": 0x4321,
	})
	defer keep()

	ClearCaches()
	e, err := FindExport(base, ByHash(prim.Hash("HashedFunc")))
	require.NoError(t, err)
	require.Equal(t, uint32(0x4321), e.RVA)
}

func TestFindExportNotFound(t *testing.T) {
	base, keep := buildFakeModule(t, map[string]uint32{
		"Something": 0x10,
	})
	defer keep()

	_, err := FindExport(base, ByName("DoesNotExist"))
	require.Error(t, err)
}

func TestSelectorString(t *testing.T) {
	require.Equal(t, "Foo", ByName("Foo").String())
	require.Contains(t, ByHash(0xdeadbeef).String(), "deadbeef")
}

// buildFakeModuleWithForwarder is buildFakeModule plus one entry whose
// RVA lands inside the export directory's own RVA range, the marker
// FindExport uses to recognize a forwarder string rather than code.
func buildFakeModuleWithForwarder(t *testing.T, forwarderName, forwardsTo string) uintptr {
	t.Helper()
	base, keep := buildFakeModule(t, map[string]uint32{forwarderName: 0})
	t.Cleanup(keep)

	const forwarderStrOff = 0x240 // inside the [0x200, 0x400) export directory range, past its 0x28-byte header
	buf := unsafe.Slice((*byte)(unsafe.Pointer(base)), 0x1000)
	copy(buf[forwarderStrOff:], append([]byte(forwardsTo), 0))

	exp := (*winapi.ImageExportDirectory)(unsafe.Pointer(base + 0x200))
	funcs := (*[16]uint32)(unsafe.Pointer(base + uintptr(exp.AddressOfFunctions)))
	funcs[0] = forwarderStrOff
	return base
}

func TestFindExportForwarderDisabledByDefault(t *testing.T) {
	require.False(t, ForwarderEnabled)

	base := buildFakeModuleWithForwarder(t, "ForwardedFunc", "TARGET.dll.RealFunc")
	ClearCaches()
	_, err := FindExport(base, ByName("ForwardedFunc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "forwarder")
}

func TestFindExportForwarderEnabledFollowsForwarder(t *testing.T) {
	base := buildFakeModuleWithForwarder(t, "ForwardedFunc", "TARGET.dll.RealFunc")
	ClearCaches()

	ForwarderEnabled = true
	defer func() { ForwarderEnabled = false }()

	// TARGET.dll isn't a real loaded module in this test process, so
	// resolution still fails — but it must fail inside ResolveForwarder
	// (module lookup), not with the "forwarder resolution is disabled"
	// error the gate raises when off.
	_, err := FindExport(base, ByName("ForwardedFunc"))
	require.Error(t, err)
	require.NotContains(t, err.Error(), "disabled")
}
