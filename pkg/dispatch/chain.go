package dispatch

import (
	"fmt"

	"github.com/voidwalk/picforge/pkg/prim"
	"github.com/voidwalk/picforge/pkg/walker"
)

// Resolver is the set of operations a platform back end (pkg/platform)
// must provide for a chain to Init/Destroy itself. It stands in for
// the base slots spec.md §3 requires at fixed offsets in the native
// table layout (load_module, unload_module, lookup_symbol, and the
// walker's find_module): a Go dispatch table has no assembly stub
// reading those offsets directly, so they become an interface instead
// of raw function-pointer fields.
type Resolver interface {
	// FindModule resolves a module by the walker (PEB walk in
	// user-mode, SystemModuleInformation query in kernel-mode).
	FindModule(sel walker.Selector) (uintptr, error)
	// FindSymbol resolves a symbol from an already-resolved module
	// handle via the walker's export-directory search.
	FindSymbol(moduleHandle uintptr, sel walker.Selector) (uintptr, error)
	// LoadModule obtains a module via the platform's dynamic loader.
	// User-mode only; Builder (validateModule) rejects DynamicLoad on a
	// kernel-mode chain.
	LoadModule(name string) (uintptr, error)
	// UnloadModule releases a dynamically-loaded module.
	UnloadModule(handle uintptr) error
	// ResolveDynamic looks a symbol up via the platform's dynamic
	// resolver (GetProcAddress) rather than the walker.
	ResolveDynamic(moduleHandle uintptr, name string) (uintptr, error)
	// KernelMode reports whether this Resolver backs a kernel-mode
	// table. Build does not consult it: a chain's mode is the
	// kernelMode argument given to New.
	KernelMode() bool
}

type moduleLink struct {
	name    string // empty when the link was declared via ModuleHash
	hasName bool
	hash    uint32
	flags   Flags
	handle  uintptr
}

type symbolLink struct {
	name        string // empty when the link was declared via SymbolHash
	hasName     bool
	hash        uint32
	flags       Flags // this symbol's own flags, before inheritance
	effective   Flags // own flags OR nearest preceding module's
	moduleIndex int    // index into chain of the nearest preceding module
	addr        uintptr
}

// LinkInfo is a read-only view of one link in a built Chain, exposed so
// cmd/picgen's code generator can decide, per entry, whether the
// generated source may emit the literal name or must fall back to the
// precomputed hash — without duplicating Builder's flag-inheritance
// arithmetic.
type LinkInfo struct {
	IsModule    bool
	Name        string // "" if HasName is false
	HasName     bool
	Hash        uint32
	Flags       Flags // effective flags for symbols, own flags for modules
	ModuleIndex int   // meaningful for symbol links only
}

// Links returns every link in declaration order.
func (c *Chain) Links() []LinkInfo {
	out := make([]LinkInfo, len(c.links))
	for i, l := range c.links {
		switch l.kind {
		case kindModule:
			out[i] = LinkInfo{IsModule: true, Name: l.module.name, HasName: l.module.hasName, Hash: l.module.hash, Flags: l.module.flags}
		case kindSymbol:
			out[i] = LinkInfo{Name: l.symbol.name, HasName: l.symbol.hasName, Hash: l.symbol.hash, Flags: l.symbol.effective, ModuleIndex: l.symbol.moduleIndex}
		}
	}
	return out
}

type linkKind int

const (
	kindModule linkKind = iota
	kindSymbol
)

type link struct {
	kind   linkKind
	module moduleLink
	symbol symbolLink
}

// Chain is the built entry chain: a flat, ordered sequence of module
// and symbol links, each carrying its compile-time-computed effective
// flags. The set of links is fixed once Build returns, but Table.Init
// and Table.Destroy store each link's resolved handle/addr in the Chain
// itself, so Tables built over the same Chain share that state.
type Chain struct {
	links      []link
	byName     map[string]int
	kernelMode bool
}

// Builder assembles a Chain by replaying MODULE/SYMBOL declarations in
// source order, exactly as BEGIN...END does in the native grammar.
type Builder struct {
	kernelMode bool
	links      []link
	byName     map[string]int
	lastModule int // index of nearest preceding module link, -1 if none
	err        error
}

// New starts a Builder. kernelMode gates the ill-formedness rules that
// forbid Dynamic* flags on a kernel-mode table.
func New(kernelMode bool) *Builder {
	return &Builder{kernelMode: kernelMode, byName: make(map[string]int), lastModule: -1}
}

// Module appends a module-decl link. flags are validated immediately so
// a malformed declaration fails at the call site that introduced it,
// the closest Go equivalent to the native grammar's compile-time reject.
func (b *Builder) Module(name string, flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	if err := validateModule(flags, b.kernelMode); err != nil {
		b.err = fmt.Errorf("dispatch: module %q: %w", name, err)
		return b
	}
	idx := len(b.links)
	b.links = append(b.links, link{kind: kindModule, module: moduleLink{name: name, hasName: true, hash: prim.Hash(name), flags: flags}})
	b.byName[name] = idx
	b.lastModule = idx
	return b
}

// ModuleHash appends a module-decl link carrying only a precomputed
// FNV-1a hash, never the literal name. It exists for cmd/picgen's
// generated code: when a declaration needs neither StringModule nor
// DynamicLoad, the name has no reason to survive into the compiled
// artifact, and this is the entry point that keeps it out. Declaring
// either flag here is ill-formed, since both require the string at
// Init time.
func (b *Builder) ModuleHash(hash uint32, flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	if flags.Has(StringModule) || flags.Has(DynamicLoad) {
		b.err = fmt.Errorf("dispatch: module hash 0x%08x: StringModule/DynamicLoad require ModuleName, not ModuleHash", hash)
		return b
	}
	if err := validateModule(flags, b.kernelMode); err != nil {
		b.err = fmt.Errorf("dispatch: module hash 0x%08x: %w", hash, err)
		return b
	}
	idx := len(b.links)
	b.links = append(b.links, link{kind: kindModule, module: moduleLink{hash: hash, flags: flags}})
	b.lastModule = idx
	return b
}

// Symbol appends a symbol-decl link under the most recently declared
// module. It is ill-formed (spec.md §3: "a symbol entry is ill-formed
// if no module precedes it") to call Symbol before any Module.
func (b *Builder) Symbol(name string, flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	if b.lastModule < 0 {
		b.err = fmt.Errorf("dispatch: symbol %q declared with no preceding module", name)
		return b
	}
	if err := validateSymbol(flags, b.kernelMode); err != nil {
		b.err = fmt.Errorf("dispatch: symbol %q: %w", name, err)
		return b
	}
	moduleFlags := b.links[b.lastModule].module.flags
	effective := flags | (moduleFlags &^ (DynamicLoad | DynamicUnload | StringModule))
	idx := len(b.links)
	b.links = append(b.links, link{kind: kindSymbol, symbol: symbolLink{
		name:        name,
		hasName:     true,
		hash:        prim.Hash(name),
		flags:       flags,
		effective:   effective,
		moduleIndex: b.lastModule,
	}})
	b.byName[name] = idx
	return b
}

// SymbolHash appends a symbol-decl link carrying only a precomputed
// hash, mirroring ModuleHash. DynamicResolve and StringSymbol are
// rejected here for the same reason: both require the literal name at
// Init time, so a caller that sets either belongs on Symbol instead.
// StringSymbol or DynamicResolve inherited from the enclosing module's
// own flags is likewise rejected, since that inheritance also forces
// the string. StringModule is never inherited, so a StringModule
// module may still be followed by SymbolHash entries.
func (b *Builder) SymbolHash(hash uint32, flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	if b.lastModule < 0 {
		b.err = fmt.Errorf("dispatch: symbol hash 0x%08x declared with no preceding module", hash)
		return b
	}
	if flags.Has(StringSymbol) || flags.Has(DynamicResolve) {
		b.err = fmt.Errorf("dispatch: symbol hash 0x%08x: StringSymbol/DynamicResolve require SymbolName, not SymbolHash", hash)
		return b
	}
	if err := validateSymbol(flags, b.kernelMode); err != nil {
		b.err = fmt.Errorf("dispatch: symbol hash 0x%08x: %w", hash, err)
		return b
	}
	moduleFlags := b.links[b.lastModule].module.flags
	effective := flags | (moduleFlags &^ (DynamicLoad | DynamicUnload | StringModule))
	if effective.Has(StringSymbol) || effective.Has(DynamicResolve) {
		b.err = fmt.Errorf("dispatch: symbol hash 0x%08x: inherited StringSymbol/DynamicResolve requires SymbolName, not SymbolHash", hash)
		return b
	}
	b.links = append(b.links, link{kind: kindSymbol, symbol: symbolLink{
		hash:        hash,
		flags:       flags,
		effective:   effective,
		moduleIndex: b.lastModule,
	}})
	return b
}

// Build seals the chain. Any error recorded by a prior Module/Symbol
// call surfaces here, matching END sealing a malformed declaration
// block in the native grammar.
func (b *Builder) Build() (*Chain, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.links) == 0 {
		return nil, fmt.Errorf("dispatch: empty declaration block")
	}
	return &Chain{links: b.links, byName: b.byName, kernelMode: b.kernelMode}, nil
}

func (c *Chain) moduleSelector(m moduleLink) walker.Selector {
	if m.hasName && m.flags.Has(StringModule) {
		return walker.ByName(m.name)
	}
	return walker.ByHash(m.hash)
}

func (c *Chain) symbolSelector(s symbolLink) walker.Selector {
	if s.hasName && s.effective.Has(StringSymbol) {
		return walker.ByName(s.name)
	}
	return walker.ByHash(s.hash)
}
