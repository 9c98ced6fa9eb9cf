package dispatch

// Table is the populated dispatch table: a Chain plus the resolved
// handle/address for every link, populated by Init and read by call
// proxies for the program's lifetime (spec.md §3, "Lifecycle").
// Base-slot concerns outside the chain (cleanup, mode state) live on
// Table directly rather than as leading slots, since nothing in this
// Go rendition reads the struct by raw offset the way the assembly
// stub reads the native layout.
type Table struct {
	chain      *Chain
	resolver   Resolver
	ModeState  uintptr // kernel image base in kernel-mode, 0 otherwise
	initialized bool
}

// NewTable binds a built Chain to the Resolver that will service its
// Init/Destroy walk. modeState is the kernel image base in kernel-mode
// (spec.md §4.2: "passed into init as the first argument... there is
// no reliable self-discovery mechanism in kernel-mode") and is unused
// in user-mode.
func NewTable(chain *Chain, resolver Resolver, modeState uintptr) *Table {
	return &Table{chain: chain, resolver: resolver, ModeState: modeState}
}

// Init walks the chain base-first (spec.md §4.3's "Init protocol"),
// resolving each module and symbol link in declaration order and
// short-circuiting on the first failure. The returned error, if any,
// is always an *InitError naming the failing link's zero-based index.
func (t *Table) Init() error {
	for i := range t.chain.links {
		l := &t.chain.links[i]
		switch l.kind {
		case kindModule:
			if err := t.initModule(i, &l.module); err != nil {
				return &InitError{Index: i, Name: l.module.name, Err: err}
			}
		case kindSymbol:
			if err := t.initSymbol(i, &l.symbol); err != nil {
				return &InitError{Index: i, Name: l.symbol.name, Err: err}
			}
		}
	}
	t.initialized = true
	return nil
}

func (t *Table) initModule(_ int, m *moduleLink) error {
	switch {
	case m.flags.Has(DynamicLoad):
		handle, err := t.resolver.LoadModule(m.name)
		if err != nil || handle == 0 {
			return firstNonNil(err, errNullResult)
		}
		m.handle = handle
	default:
		handle, err := t.resolver.FindModule(t.chain.moduleSelector(*m))
		if err != nil || handle == 0 {
			return firstNonNil(err, errNullResult)
		}
		m.handle = handle
	}
	return nil
}

func (t *Table) initSymbol(_ int, s *symbolLink) error {
	moduleHandle := t.chain.links[s.moduleIndex].module.handle

	if s.effective.Has(DynamicResolve) {
		addr, err := t.resolver.ResolveDynamic(moduleHandle, s.name)
		if err != nil || addr == 0 {
			return firstNonNil(err, errNullResult)
		}
		s.addr = addr
		return nil
	}

	addr, err := t.resolver.FindSymbol(moduleHandle, t.chain.symbolSelector(*s))
	if err != nil || addr == 0 {
		return firstNonNil(err, errNullResult)
	}
	s.addr = addr
	return nil
}

// Destroy walks the chain end-first (spec.md §4.3's "Destroy
// protocol"). Symbol links do nothing; module links unload iff both
// DynamicLoad and DynamicUnload are set and the handle resolved.
func (t *Table) Destroy() {
	for i := len(t.chain.links) - 1; i >= 0; i-- {
		l := &t.chain.links[i]
		if l.kind != kindModule {
			continue
		}
		m := &l.module
		if m.flags.Has(DynamicLoad) && m.flags.Has(DynamicUnload) && m.handle != 0 {
			_ = t.resolver.UnloadModule(m.handle)
			m.handle = 0
		}
	}
	t.initialized = false
}

// ModuleHandle returns the resolved handle for the module declared
// under name, or 0 if name was never declared or Init hasn't run.
func (t *Table) ModuleHandle(name string) uintptr {
	idx, ok := t.chain.byName[name]
	if !ok || t.chain.links[idx].kind != kindModule {
		return 0
	}
	return t.chain.links[idx].module.handle
}

// SymbolAddr returns the resolved address for the symbol declared
// under name, or 0 if name was never declared or Init hasn't run.
// Generated call proxies (cmd/picgen's output) read SymbolAddrAt
// instead and return the address as a uintptr.
func (t *Table) SymbolAddr(name string) uintptr {
	idx, ok := t.chain.byName[name]
	if !ok || t.chain.links[idx].kind != kindSymbol {
		return 0
	}
	return t.chain.links[idx].symbol.addr
}

// ModuleHandleAt returns the resolved handle for the module link at
// idx, or 0 if idx is out of range, isn't a module link, or Init
// hasn't run. It is the by-index counterpart to ModuleHandle, for
// links declared via ModuleHash, which have no entry in the by-name
// index.
func (t *Table) ModuleHandleAt(idx int) uintptr {
	if idx < 0 || idx >= len(t.chain.links) || t.chain.links[idx].kind != kindModule {
		return 0
	}
	return t.chain.links[idx].module.handle
}

// SymbolAddrAt is the index-based counterpart to SymbolAddr, used by
// generated call proxies for symbols declared via SymbolHash.
func (t *Table) SymbolAddrAt(idx int) uintptr {
	if idx < 0 || idx >= len(t.chain.links) || t.chain.links[idx].kind != kindSymbol {
		return 0
	}
	return t.chain.links[idx].symbol.addr
}

func firstNonNil(err error, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}
