// picgen turns a declaration file written in the BEGIN/MODULE/SYMBOL/END
// grammar (spec.md §4.3) into generated Go source wrapping
// pkg/dispatch, the closest a language without compile-time templates
// can get to the native framework's link-time table construction
// (spec.md's own Design Notes name exactly this fallback: a builder API
// plus an optional code generator). It can also package an
// already-extracted blob for delivery (-blob), optionally lzss-compressed
// and AES-GCM encrypted.
package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/voidwalk/picforge/pkg/config"
	"github.com/voidwalk/picforge/pkg/dispatch"
)

// declEntry is one parsed MODULE or SYMBOL line.
type declEntry struct {
	isModule bool
	name     string
	flags    dispatch.Flags
}

// declFile is a fully parsed declaration block.
type declFile struct {
	kernelMode    bool
	modeDeclared  bool // true if BEGIN explicitly named KERNEL
	entries       []declEntry
}

var flagNames = map[string]dispatch.Flags{
	"DYNAMIC_RESOLVE": dispatch.DynamicResolve,
	"DYNAMIC_LOAD":    dispatch.DynamicLoad,
	"DYNAMIC_UNLOAD":  dispatch.DynamicUnload,
	"STRING_MODULE":   dispatch.StringModule,
	"STRING_SYMBOL":   dispatch.StringSymbol,
}

// parseDecl reads a declaration file of the form:
//
//	BEGIN [KERNEL]
//	MODULE kernel32.dll
//	SYMBOL WriteConsoleA
//	MODULE user32.dll DYNAMIC_LOAD DYNAMIC_UNLOAD
//	SYMBOL MessageBoxA
//	END
//
// blank lines and lines starting with # are ignored.
func parseDecl(r io.Reader) (*declFile, error) {
	scanner := bufio.NewScanner(r)
	var df declFile
	seenBegin, seenEnd := false, false

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		keyword := strings.ToUpper(fields[0])

		switch keyword {
		case "BEGIN":
			if seenBegin {
				return nil, fmt.Errorf("picgen: line %d: duplicate BEGIN", lineNo)
			}
			seenBegin = true
			for _, mod := range fields[1:] {
				if strings.ToUpper(mod) == "KERNEL" {
					df.kernelMode = true
					df.modeDeclared = true
				}
			}
		case "END":
			if !seenBegin {
				return nil, fmt.Errorf("picgen: line %d: END without BEGIN", lineNo)
			}
			seenEnd = true
		case "MODULE":
			if !seenBegin {
				return nil, fmt.Errorf("picgen: line %d: MODULE before BEGIN", lineNo)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("picgen: line %d: MODULE requires a name", lineNo)
			}
			flags, err := parseFlags(fields[2:])
			if err != nil {
				return nil, fmt.Errorf("picgen: line %d: %w", lineNo, err)
			}
			df.entries = append(df.entries, declEntry{isModule: true, name: fields[1], flags: flags})
		case "SYMBOL":
			if len(fields) < 2 {
				return nil, fmt.Errorf("picgen: line %d: SYMBOL requires a name", lineNo)
			}
			flags, err := parseFlags(fields[2:])
			if err != nil {
				return nil, fmt.Errorf("picgen: line %d: %w", lineNo, err)
			}
			df.entries = append(df.entries, declEntry{isModule: false, name: fields[1], flags: flags})
		default:
			return nil, fmt.Errorf("picgen: line %d: unknown keyword %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("picgen: reading declaration file: %w", err)
	}
	if !seenBegin || !seenEnd {
		return nil, fmt.Errorf("picgen: declaration file missing BEGIN/END")
	}
	return &df, nil
}

func parseFlags(tokens []string) (dispatch.Flags, error) {
	var f dispatch.Flags
	for _, tok := range tokens {
		bit, ok := flagNames[strings.ToUpper(tok)]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", tok)
		}
		f |= bit
	}
	return f, nil
}

// build replays a parsed declFile through a dispatch.Builder, the same
// validation a hand-written BEGIN/MODULE/SYMBOL/END call chain goes
// through, so a malformed declaration file fails exactly where a
// malformed Go call chain would. opts applies spec.md §6's build-time
// options: -mode can override (or must agree with) the file's own
// BEGIN [KERNEL], -load-module/-unload-module/-lookup-symbol gate
// whether the corresponding Dynamic* flags are permitted at all (an
// entry using one without the matching option is ill-formed, the same
// way using it without the native library's SCFW_ENABLE_* define would
// fail to compile), and -init-modules-by-string/-init-symbols-by-string
// force every entry to resolve by name regardless of its own flags.
// build mutates df.kernelMode to the resolved value so generate can
// read it back without repeating this logic.
func (df *declFile) build(opts *config.GenOptions) (*dispatch.Chain, error) {
	if opts.Mode != "" {
		wantKernel := opts.Mode == "kernel"
		if opts.Mode != "user" && opts.Mode != "kernel" {
			return nil, fmt.Errorf("picgen: -mode must be \"user\" or \"kernel\", got %q", opts.Mode)
		}
		if df.modeDeclared && wantKernel != df.kernelMode {
			return nil, fmt.Errorf("picgen: -mode=%s conflicts with BEGIN [KERNEL] in the declaration file", opts.Mode)
		}
		df.kernelMode = wantKernel
	}

	b := dispatch.New(df.kernelMode)
	for _, e := range df.entries {
		flags := e.flags
		if e.isModule {
			if flags.Has(dispatch.DynamicLoad) && !opts.LoadModule {
				return nil, fmt.Errorf("picgen: module %q uses DYNAMIC_LOAD but -load-module was not set", e.name)
			}
			if flags.Has(dispatch.DynamicUnload) && !opts.UnloadModule {
				return nil, fmt.Errorf("picgen: module %q uses DYNAMIC_UNLOAD but -unload-module was not set", e.name)
			}
			if opts.InitModulesByString {
				flags |= dispatch.StringModule
			}
			b.Module(e.name, flags)
		} else {
			if flags.Has(dispatch.DynamicResolve) && !opts.LookupSymbol {
				return nil, fmt.Errorf("picgen: symbol %q uses DYNAMIC_RESOLVE but -lookup-symbol was not set", e.name)
			}
			if opts.InitSymbolsByString {
				flags |= dispatch.StringSymbol
			}
			b.Symbol(e.name, flags)
		}
	}
	return b.Build()
}
