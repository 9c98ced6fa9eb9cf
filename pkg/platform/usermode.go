package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/voidwalk/picforge/pkg/walker"
)

// UserMode implements dispatch.Resolver against the real Windows
// loader. Its module/symbol lookups go through pkg/walker (no
// GetProcAddress call unless DynamicResolve asks for one explicitly);
// LoadModule/UnloadModule/ResolveDynamic are the three loader APIs
// spec.md §4.4 says are "resolved during base-init against the system
// API module" — here resolved once, lazily, via x/sys/windows rather
// than hand-rolled syscall stubs, since the teacher's own loader calls
// wrap an unfetchable internal package.
type UserMode struct{}

// NewUserMode constructs the user-mode Resolver.
func NewUserMode() *UserMode { return &UserMode{} }

func (UserMode) KernelMode() bool { return false }

func (UserMode) FindModule(sel walker.Selector) (uintptr, error) {
	return walker.FindModuleUser(sel)
}

func (UserMode) FindSymbol(moduleHandle uintptr, sel walker.Selector) (uintptr, error) {
	exp, err := walker.FindExport(moduleHandle, sel)
	if err != nil {
		return 0, err
	}
	return exp.Addr, nil
}

func (UserMode) LoadModule(name string) (uintptr, error) {
	h, err := windows.LoadLibrary(name)
	if err != nil {
		return 0, fmt.Errorf("platform: LoadLibrary(%s): %w", name, err)
	}
	return uintptr(h), nil
}

func (UserMode) UnloadModule(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

func (UserMode) ResolveDynamic(moduleHandle uintptr, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(moduleHandle), name)
	if err != nil {
		return 0, fmt.Errorf("platform: GetProcAddress(%s): %w", name, err)
	}
	return addr, nil
}

// FreePages is the cleanup primitive spec.md §3's base slot 2 names:
// VirtualFree over the blob's own pages, called by pkg/entry's cleanup
// tail after destroy returns.
func (UserMode) FreePages(base uintptr, size uintptr) error {
	return windows.VirtualFree(base, size, windows.MEM_RELEASE)
}

// VirtualAllocExecute allocates RWX memory for a blob about to be run,
// the user-mode half of cmd/scrun's loader path.
func (UserMode) VirtualAllocExecute(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("platform: VirtualAlloc: %w", err)
	}
	return addr, nil
}

// WriteBlob copies a raw blob into previously allocated memory.
func (UserMode) WriteBlob(dst uintptr, blob []byte) {
	if len(blob) == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(blob))
	copy(dstSlice, blob)
}

// ProbeAccessible reports whether the page at addr is still committed,
// the VirtualQuery-based check spec.md §6 describes cmd/scrun performing
// after the entry routine returns ("probes whether the pages are still
// accessible and reports whether cleanup occurred"). Grounded on
// pjongy-dll_memory_scanner's virtualQuery.Call usage, adapted to
// x/sys/windows's typed wrapper rather than a raw kernel32 NewProc call.
func (UserMode) ProbeAccessible(addr uintptr) (bool, error) {
	var mbi windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi))
	if err != nil {
		return false, fmt.Errorf("platform: VirtualQuery: %w", err)
	}
	return mbi.State != windows.MEM_FREE, nil
}
