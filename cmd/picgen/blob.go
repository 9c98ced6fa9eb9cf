package main

import (
	"fmt"
	"os"

	"github.com/bovarysme/lzss"

	"github.com/voidwalk/picforge/pkg/decrypt"
)

// packBlob reads an already-extracted .text blob (produced externally
// by building the generated package and running it through picverify)
// and optionally compresses and/or encrypts it before writing outPath.
// picgen itself never assembles machine code; its blob mode is the
// packaging step spec.md §6 calls the "extraction artifact" pipeline's
// last leg.
func packBlob(inPath, outPath string, compress, encrypt bool) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("picgen: reading %s: %w", inPath, err)
	}

	payload := raw
	if compress {
		payload = lzss.Compress(payload)
	}
	if encrypt {
		payload, err = decrypt.Encrypt(payload)
		if err != nil {
			return fmt.Errorf("picgen: encrypting blob: %w", err)
		}
	}

	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("picgen: writing %s: %w", outPath, err)
	}
	return nil
}
