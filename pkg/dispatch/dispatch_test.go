package dispatch

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/voidwalk/picforge/pkg/prim"
	"github.com/voidwalk/picforge/pkg/walker"
)

// fakeResolver lets tests drive Init/Destroy without any real PE
// images or Windows APIs, keyed by the names the chain declares.
type fakeResolver struct {
	modules   map[string]uintptr
	symbols   map[string]uintptr
	loaded    map[string]uintptr
	unloaded  []uintptr
	kernel    bool
	failOn    string
}

func (f *fakeResolver) FindModule(sel walker.Selector) (uintptr, error) {
	return f.lookupModule(sel)
}
func (f *fakeResolver) FindSymbol(_ uintptr, sel walker.Selector) (uintptr, error) {
	return f.lookupSymbol(sel)
}
func (f *fakeResolver) LoadModule(name string) (uintptr, error) {
	if name == f.failOn {
		return 0, errors.New("load failed")
	}
	h := f.loaded[name]
	if h == 0 {
		h = uintptr(len(f.loaded) + 1)
		f.loaded[name] = h
	}
	return h, nil
}
func (f *fakeResolver) UnloadModule(handle uintptr) error {
	f.unloaded = append(f.unloaded, handle)
	return nil
}
func (f *fakeResolver) ResolveDynamic(_ uintptr, name string) (uintptr, error) {
	if name == f.failOn {
		return 0, nil
	}
	return f.symbols[name], nil
}
func (f *fakeResolver) KernelMode() bool { return f.kernel }

func (f *fakeResolver) lookupModule(sel walker.Selector) (uintptr, error) {
	for name, handle := range f.modules {
		if matches(sel, name) {
			if name == f.failOn {
				return 0, nil
			}
			return handle, nil
		}
	}
	return 0, nil
}

func (f *fakeResolver) lookupSymbol(sel walker.Selector) (uintptr, error) {
	for name, addr := range f.symbols {
		if matches(sel, name) {
			if name == f.failOn {
				return 0, nil
			}
			return addr, nil
		}
	}
	return 0, nil
}

func matches(sel walker.Selector, name string) bool {
	if sel.ByHash {
		return sel.Hash == prim.Hash(name)
	}
	return sel.Name == name
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		modules: map[string]uintptr{"kernel32.dll": 0x1000, "user32.dll": 0x2000},
		symbols: map[string]uintptr{"WriteConsoleA": 0x1100, "MessageBoxA": 0x2100},
		loaded:  map[string]uintptr{},
	}
}

func TestBuildTrivial(t *testing.T) {
	chain, err := New(false).
		Module("kernel32.dll", 0).
		Symbol("WriteConsoleA", 0).
		Build()
	require.NoError(t, err)
	require.Len(t, chain.links, 2)
}

func TestSymbolBeforeModuleIsIllFormed(t *testing.T) {
	_, err := New(false).Symbol("WriteConsoleA", 0).Build()
	require.Error(t, err)
}

func TestUnloadWithoutLoadIsIllFormed(t *testing.T) {
	_, err := New(false).Module("kernel32.dll", DynamicUnload).Build()
	require.Error(t, err)
}

func TestDynamicFlagsRejectedInKernelMode(t *testing.T) {
	_, err := New(true).Module("ntoskrnl.exe", DynamicLoad).Build()
	require.Error(t, err)
}

func TestDynamicResolveRejectedOnKernelSymbol(t *testing.T) {
	_, err := New(true).
		Module("ntoskrnl.exe", 0).
		Symbol("DbgPrintEx", DynamicResolve).
		Build()
	require.Error(t, err)
}

func TestDynamicFlagsRejectedOnSymbol(t *testing.T) {
	_, err := New(false).
		Module("kernel32.dll", 0).
		Symbol("WriteConsoleA", DynamicLoad).
		Build()
	require.Error(t, err)
}

func TestInitResolvesModuleAndSymbol(t *testing.T) {
	chain, err := New(false).
		Module("kernel32.dll", 0).
		Symbol("WriteConsoleA", 0).
		Build()
	require.NoError(t, err)

	r := newFakeResolver()
	tbl := NewTable(chain, r, 0)
	require.NoError(t, tbl.Init())
	require.Equal(t, uintptr(0x1000), tbl.ModuleHandle("kernel32.dll"))
	require.Equal(t, uintptr(0x1100), tbl.SymbolAddr("WriteConsoleA"))
}

func TestInitFailureReportsLinkIndex(t *testing.T) {
	chain, err := New(false).
		Module("kernel32.dll", 0).
		Symbol("WriteConsoleA", 0).
		Build()
	require.NoError(t, err)

	r := newFakeResolver()
	r.failOn = "kernel32.dll"
	tbl := NewTable(chain, r, 0)
	err = tbl.Init()
	require.Error(t, err)
	spew.Dump(chain, tbl)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	require.Equal(t, 0, initErr.Index)
}

func TestDynamicLoadAndUnload(t *testing.T) {
	chain, err := New(false).
		Module("user32.dll", DynamicLoad|DynamicUnload).
		Symbol("MessageBoxA", 0).
		Build()
	require.NoError(t, err)

	r := newFakeResolver()
	tbl := NewTable(chain, r, 0)
	require.NoError(t, tbl.Init())
	handle := tbl.ModuleHandle("user32.dll")
	require.NotZero(t, handle)

	tbl.Destroy()
	require.Contains(t, r.unloaded, handle)
}

func TestDestroyWithoutUnloadFlagDoesNotUnload(t *testing.T) {
	chain, err := New(false).
		Module("user32.dll", DynamicLoad).
		Build()
	require.NoError(t, err)

	r := newFakeResolver()
	tbl := NewTable(chain, r, 0)
	require.NoError(t, tbl.Init())
	tbl.Destroy()
	require.Empty(t, r.unloaded)
}

func TestEmptyChainRejected(t *testing.T) {
	_, err := New(false).Build()
	require.Error(t, err)
}

func TestHashOnlyEntriesResolveWithoutName(t *testing.T) {
	chain, err := New(false).
		ModuleHash(prim.Hash("kernel32.dll"), 0).
		SymbolHash(prim.Hash("WriteConsoleA"), 0).
		Build()
	require.NoError(t, err)

	r := newFakeResolver()
	tbl := NewTable(chain, r, 0)
	require.NoError(t, tbl.Init())
	require.Equal(t, uintptr(0x1000), tbl.ModuleHandleAt(0))
	require.Equal(t, uintptr(0x1100), tbl.SymbolAddrAt(1))

	links := chain.Links()
	require.Len(t, links, 2)
	require.False(t, links[0].HasName)
	require.False(t, links[1].HasName)
	require.Empty(t, links[0].Name)
	require.Empty(t, links[1].Name)
}

func TestModuleHashRejectsStringModule(t *testing.T) {
	_, err := New(false).ModuleHash(prim.Hash("kernel32.dll"), StringModule).Build()
	require.Error(t, err)
}

func TestModuleHashRejectsDynamicLoad(t *testing.T) {
	_, err := New(false).ModuleHash(prim.Hash("user32.dll"), DynamicLoad).Build()
	require.Error(t, err)
}

func TestSymbolHashRejectsStringSymbol(t *testing.T) {
	_, err := New(false).
		ModuleHash(prim.Hash("kernel32.dll"), 0).
		SymbolHash(prim.Hash("WriteConsoleA"), StringSymbol).
		Build()
	require.Error(t, err)
}

func TestSymbolHashRejectsDynamicResolve(t *testing.T) {
	_, err := New(false).
		ModuleHash(prim.Hash("kernel32.dll"), 0).
		SymbolHash(prim.Hash("WriteConsoleA"), DynamicResolve).
		Build()
	require.Error(t, err)
}

func TestSymbolHashAcceptsInheritedStringModule(t *testing.T) {
	_, err := New(false).
		Module("kernel32.dll", StringModule).
		SymbolHash(prim.Hash("WriteConsoleA"), 0).
		Build()
	require.NoError(t, err) // StringModule never cascades into symbol effective flags
}

func TestLinksReflectsEffectiveFlags(t *testing.T) {
	chain, err := New(false).
		Module("user32.dll", DynamicLoad|DynamicUnload).
		Symbol("MessageBoxA", 0).
		Build()
	require.NoError(t, err)

	links := chain.Links()
	require.True(t, links[0].IsModule)
	require.True(t, links[0].HasName)
	require.Equal(t, "user32.dll", links[0].Name)
	require.Equal(t, DynamicLoad|DynamicUnload, links[0].Flags)
	require.False(t, links[1].IsModule)
	require.True(t, links[1].HasName)
	require.Equal(t, 0, links[1].ModuleIndex)
	require.Equal(t, Flags(0), links[1].Flags) // DynamicLoad/DynamicUnload never cascade to symbols
}
