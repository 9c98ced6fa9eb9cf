// Package config centralizes the flag- and environment-driven options
// that this module's cmd/ tools accept, following the teacher's
// cmd/main.go pattern of a handful of top-level flag.* calls rather than
// a configuration file format.
package config

import (
	"flag"
	"os"
	"strconv"
)

// RunOptions are the options of the loader-side tool (cmd/scrun):
// where the blob comes from, whether it is encrypted, and
// which process to run it in.
type RunOptions struct {
	BlobPath  string
	PID       int
	Encrypted bool
	KeyHex    string
	Arg1      uint64
	Arg2      uint64
	Verbose   bool
}

// RegisterRunFlags wires RunOptions onto fs, mirroring the flag names
// the teacher's cmd/main.go already used for the decrypt/inject path
// (-encrypted, -key) and adding the blob/pid/args this module needs.
func RegisterRunFlags(fs *flag.FlagSet) *RunOptions {
	opts := &RunOptions{}
	fs.StringVar(&opts.BlobPath, "blob", "", "path to the raw position-independent blob")
	fs.IntVar(&opts.PID, "pid", 0, "target process id; 0 runs in this process")
	fs.BoolVar(&opts.Encrypted, "encrypted", false, "blob is AES-GCM encrypted with a trailing key")
	fs.StringVar(&opts.KeyHex, "key", "", "hex-encoded AES-GCM key for -encrypted mode; the blob then carries no trailing key")
	fs.Uint64Var(&opts.Arg1, "arg1", 0, "first entry trampoline argument")
	fs.Uint64Var(&opts.Arg2, "arg2", 0, "second entry trampoline argument")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	return opts
}

// LoadEnv overrides fields left at their flag defaults with values found
// in the process environment, so CI and injected-launcher use cases
// don't need to thread command-line arguments through.
func (o *RunOptions) LoadEnv() {
	if o.BlobPath == "" {
		if v := os.Getenv("PICFORGE_BLOB"); v != "" {
			o.BlobPath = v
		}
	}
	if o.PID == 0 {
		if v := os.Getenv("PICFORGE_PID"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				o.PID = n
			}
		}
	}
	if !o.Encrypted {
		o.Encrypted = os.Getenv("PICFORGE_ENCRYPTED") == "1"
	}
	if o.KeyHex == "" {
		o.KeyHex = os.Getenv("PICFORGE_KEY")
	}
}

// GenOptions are the options cmd/picgen accepts for turning a
// declaration file into generated Go source or a raw blob. Beyond the
// -in/-out/-pkg/-blob/-compress group, these mirror spec.md §6's
// SCFW_ENABLE_* build-time options: each one is a decision picgen bakes
// into the generated source once, at generation time, the same moment
// the native library's preprocessor would have resolved the matching
// #ifdef — there is no runtime switch to flip afterward.
type GenOptions struct {
	InputPath   string
	OutputPath  string
	PackageName string
	Blob        bool
	Compress    bool

	Mode string // "user" or "kernel"; overrides the decl file's BEGIN [KERNEL] when set

	Cleanup              bool // emit a Destroy wrapper at all
	LoadModule           bool // permit DYNAMIC_LOAD entries
	UnloadModule         bool // permit DYNAMIC_UNLOAD entries
	LookupSymbol         bool // permit DYNAMIC_RESOLVE entries
	XorString            bool // XOR-encode any literal name the generated source must retain
	FullModuleSearch     bool // disable FindModuleUser's fast path in the generated binary
	FindModuleForwarder  bool // allow forwarder resolution in the generated binary
	InitModulesByString  bool // force every module to resolve by name, never by hash
	InitSymbolsByString  bool // force every symbol to resolve by name, never by hash
}

// RegisterGenFlags wires GenOptions onto fs.
func RegisterGenFlags(fs *flag.FlagSet) *GenOptions {
	opts := &GenOptions{}
	fs.StringVar(&opts.InputPath, "in", "", "path to the dispatch declaration file")
	fs.StringVar(&opts.OutputPath, "out", "", "output path; defaults to stdout")
	fs.StringVar(&opts.PackageName, "pkg", "main", "package name for generated Go source")
	fs.BoolVar(&opts.Blob, "blob", false, "package the -in file as an already-extracted blob instead of generating Go source")
	fs.BoolVar(&opts.Compress, "compress", false, "lzss-compress the emitted blob")
	fs.StringVar(&opts.Mode, "mode", "", "user or kernel; overrides BEGIN [KERNEL] in the declaration file")
	fs.BoolVar(&opts.Cleanup, "cleanup", false, "emit a Destroy wrapper for the generated table")
	fs.BoolVar(&opts.LoadModule, "load-module", false, "permit DYNAMIC_LOAD module entries")
	fs.BoolVar(&opts.UnloadModule, "unload-module", false, "permit DYNAMIC_UNLOAD module entries")
	fs.BoolVar(&opts.LookupSymbol, "lookup-symbol", false, "permit DYNAMIC_RESOLVE symbol entries")
	fs.BoolVar(&opts.XorString, "xor-string", false, "XOR-encode any literal name the generated source must retain")
	fs.BoolVar(&opts.FullModuleSearch, "full-module-search", false, "disable the module fast path in the generated binary")
	fs.BoolVar(&opts.FindModuleForwarder, "find-module-forwarder", false, "allow forwarder resolution in the generated binary")
	fs.BoolVar(&opts.InitModulesByString, "init-modules-by-string", false, "force every module to resolve by name instead of by hash")
	fs.BoolVar(&opts.InitSymbolsByString, "init-symbols-by-string", false, "force every symbol to resolve by name instead of by hash")
	return opts
}
