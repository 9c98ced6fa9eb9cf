package main

import (
	"fmt"
	"strings"

	"github.com/voidwalk/picforge/pkg/config"
	"github.com/voidwalk/picforge/pkg/dispatch"
	"github.com/voidwalk/picforge/pkg/prim"
)

// flagExprs renders a Flags value as the OR'd constant expression
// generated source should carry, so the emitted file is self-contained
// and never needs to re-parse the original declaration file.
func flagExprs(names []string) string {
	if len(names) == 0 {
		return "0"
	}
	for i, n := range names {
		names[i] = "dispatch." + n
	}
	return strings.Join(names, " | ")
}

// orderedFlagNames keeps generated output deterministic; map iteration
// order would otherwise make picgen non-reproducible across runs.
var orderedFlagNames = []string{
	"DYNAMIC_RESOLVE", "DYNAMIC_LOAD", "DYNAMIC_UNLOAD", "STRING_MODULE", "STRING_SYMBOL",
}

func flagConstNamesFromFlags(f dispatch.Flags) []string {
	var out []string
	for _, name := range orderedFlagNames {
		if f&flagNames[name] != 0 {
			out = append(out, flagConstGoName(name))
		}
	}
	return out
}

// needsModuleName reports whether a module link's flags force the
// literal name to survive into generated source: StringModule matches
// by name, and DynamicLoad hands the name straight to LoadLibraryA.
// Neither has a hash-only equivalent, mirroring the original library's
// own if-constexpr priority (dynamic load always wins over hashing).
// f is the link's effective flags, which already carry StringModule if
// -init-modules-by-string forced it on at build() time.
func needsModuleName(f dispatch.Flags) bool {
	return f.Has(dispatch.StringModule) || f.Has(dispatch.DynamicLoad)
}

// needsSymbolName is the symbol-link counterpart: StringSymbol and
// DynamicResolve (GetProcAddress) both require the string, and both
// may arrive here either declared directly or inherited from an
// enclosing module, since LinkInfo.Flags is already the effective set
// (and already carries StringSymbol if -init-symbols-by-string forced
// it on).
func needsSymbolName(f dispatch.Flags) bool {
	return f.Has(dispatch.StringSymbol) || f.Has(dispatch.DynamicResolve)
}

// nameLiteral renders name as a Go expression suitable as a b.Module/
// b.Symbol argument: a plain string literal, or, under -xor-string, an
// inline decode of an XOR-encoded byte slice so the name never appears
// as a contiguous string constant in the compiled binary. idx stands
// in for the native library's __LINE__-derived key source, since picgen
// generates the whole file at once rather than expanding one macro
// invocation per source line.
func nameLiteral(name string, idx int, xor bool) string {
	if !xor {
		return fmt.Sprintf("%q", name)
	}
	enc := prim.NewXORString(name, idx)
	return fmt.Sprintf("(&prim.XORString{Key: 0x%02x, Bytes: %s}).String()", enc.Key, byteSliceLiteral(enc.Bytes))
}

func byteSliceLiteral(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("0x%02x", c)
	}
	return "[]byte{" + strings.Join(parts, ", ") + "}"
}

func flagConstGoName(declName string) string {
	switch declName {
	case "DYNAMIC_RESOLVE":
		return "DynamicResolve"
	case "DYNAMIC_LOAD":
		return "DynamicLoad"
	case "DYNAMIC_UNLOAD":
		return "DynamicUnload"
	case "STRING_MODULE":
		return "StringModule"
	case "STRING_SYMBOL":
		return "StringSymbol"
	}
	return declName
}

// generate emits a Go source file building the chain via pkg/dispatch's
// runtime Builder (the same calls a hand-written caller would make)
// plus one call-proxy function per declared symbol, the nullary
// "zero-size object" spec.md §4.3 describes translated to Go's nearest
// equivalent: a function that reads the resolved slot from the table.
func (df *declFile) generate(pkgName string, chain *dispatch.Chain, opts *config.GenOptions) (string, error) {
	var b strings.Builder
	links := chain.Links()
	if len(links) != len(df.entries) {
		return "", fmt.Errorf("picgen: internal error: %d links for %d declaration entries", len(links), len(df.entries))
	}

	needsWalker := opts.FullModuleSearch || opts.FindModuleForwarder
	needsPrim := opts.XorString

	fmt.Fprintf(&b, "// Code generated by picgen from a declaration file. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkgName)
	fmt.Fprintf(&b, "import (\n\t\"github.com/voidwalk/picforge/pkg/dispatch\"\n")
	if needsWalker {
		fmt.Fprintf(&b, "\t\"github.com/voidwalk/picforge/pkg/walker\"\n")
	}
	if needsPrim {
		fmt.Fprintf(&b, "\t\"github.com/voidwalk/picforge/pkg/prim\"\n")
	}
	fmt.Fprintf(&b, ")\n\n")

	if needsWalker {
		fmt.Fprintf(&b, "// init applies this file's build-time options to pkg/walker's runtime\n")
		fmt.Fprintf(&b, "// gates. Both are decided once, here, at generation time — there is no\n")
		fmt.Fprintf(&b, "// flag to flip them back on after this file is compiled in.\n")
		fmt.Fprintf(&b, "func init() {\n")
		if opts.FullModuleSearch {
			fmt.Fprintf(&b, "\twalker.FullModuleSearch = true\n")
		}
		if opts.FindModuleForwarder {
			fmt.Fprintf(&b, "\twalker.ForwarderEnabled = true\n")
		}
		fmt.Fprintf(&b, "}\n\n")
	}

	kernelLit := "false"
	if df.kernelMode {
		kernelLit = "true"
	}

	fmt.Fprintf(&b, "// BuildChain replays this file's MODULE/SYMBOL declarations through\n")
	fmt.Fprintf(&b, "// dispatch.Builder, validating the same ill-formedness rules a\n")
	fmt.Fprintf(&b, "// hand-written call chain would. Entries that need neither a string\n")
	fmt.Fprintf(&b, "// match nor a dynamic loader/resolver call are emitted with only their\n")
	fmt.Fprintf(&b, "// precomputed hash: no string literal carries their name. A symbol's\n")
	fmt.Fprintf(&b, "// name still appears as the name of its call proxy function below.\n")
	fmt.Fprintf(&b, "func BuildChain() (*dispatch.Chain, error) {\n")
	fmt.Fprintf(&b, "\tb := dispatch.New(%s)\n", kernelLit)
	for i, e := range df.entries {
		li := links[i]
		flags := flagExprs(flagConstNamesFromFlags(li.Flags))
		if e.isModule {
			if needsModuleName(li.Flags) {
				fmt.Fprintf(&b, "\tb.Module(%s, %s)\n", nameLiteral(e.name, i, opts.XorString), flags)
			} else {
				// hash-only entry: the source name is deliberately not
				// echoed here, even in a comment, so no build artifact
				// derived from this file carries it as a substring.
				fmt.Fprintf(&b, "\tb.ModuleHash(0x%08x, %s)\n", li.Hash, flags)
			}
		} else {
			if needsSymbolName(li.Flags) {
				fmt.Fprintf(&b, "\tb.Symbol(%s, %s)\n", nameLiteral(e.name, i, opts.XorString), flags)
			} else {
				fmt.Fprintf(&b, "\tb.SymbolHash(0x%08x, %s)\n", li.Hash, flags)
			}
		}
	}
	fmt.Fprintf(&b, "\treturn b.Build()\n}\n\n")

	fmt.Fprintf(&b, "// NewTable binds a freshly built chain to resolver, ready for Init.\n")
	fmt.Fprintf(&b, "func NewTable(resolver dispatch.Resolver, modeState uintptr) (*dispatch.Table, error) {\n")
	fmt.Fprintf(&b, "\tchain, err := BuildChain()\n\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(&b, "\treturn dispatch.NewTable(chain, resolver, modeState), nil\n}\n\n")

	if opts.Cleanup {
		fmt.Fprintf(&b, "// Destroy tears the table down in declaration-reverse order. Only\n")
		fmt.Fprintf(&b, "// emitted because -cleanup was set at generation time; a table built\n")
		fmt.Fprintf(&b, "// without it is never meant to unwind.\n")
		fmt.Fprintf(&b, "func Destroy(tbl *dispatch.Table) {\n\ttbl.Destroy()\n}\n\n")
	}

	for i, e := range df.entries {
		if e.isModule {
			continue
		}
		fmt.Fprintf(&b, "// %s is the call proxy for the symbol declared at chain index %d:\n", exportedName(e.name), i)
		fmt.Fprintf(&b, "// it reads the resolved address out of tbl rather than a static\n")
		fmt.Fprintf(&b, "// import, since none exists.\n")
		fmt.Fprintf(&b, "func %s(tbl *dispatch.Table) uintptr {\n\treturn tbl.SymbolAddrAt(%d)\n}\n\n", exportedName(e.name), i)
	}

	return b.String(), nil
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
