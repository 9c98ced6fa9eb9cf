// picverify checks that a freshly linked PE obeys spec.md §6's
// extraction-artifact rule before its .text section is ever pulled out
// as a raw blob: exactly one section named .text, or two where the
// second is named .rdata. Only section count and names are checked; the
// contents of .rdata are not inspected. Grounded on the
// teacher's pkg/pe/pe.go, which already imports Binject/debug/pe for
// section-table access (CopySections); this tool reuses the same
// dependency for the opposite purpose, inspection rather than copying.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/Binject/debug/pe"

	"github.com/voidwalk/picforge/pkg/logging"
)

func main() {
	var path string
	flag.StringVar(&path, "pe", "", "path to the linked PE to verify")
	flag.Parse()

	log := logging.Default()

	if path == "" {
		log.Error("missing -pe")
		os.Exit(2)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error("reading %s: %v", path, err)
		os.Exit(1)
	}

	if err := Verify(raw); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("%s satisfies the single-.text extraction layout", path)
}

// Verify enforces the section-count rule independent of main's flag
// parsing, so tests can drive it directly against in-memory PE bytes.
func Verify(raw []byte) error {
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("picverify: parsing PE: %w", err)
	}

	switch len(f.Sections) {
	case 1:
		if f.Sections[0].Name != ".text" {
			return fmt.Errorf("picverify: single section must be named .text, got %q", f.Sections[0].Name)
		}
		return nil
	case 2:
		if f.Sections[0].Name != ".text" {
			return fmt.Errorf("picverify: first of two sections must be .text, got %q", f.Sections[0].Name)
		}
		if f.Sections[1].Name != ".rdata" {
			return fmt.Errorf("picverify: second section must be named .rdata, got %q", f.Sections[1].Name)
		}
		return nil
	default:
		return fmt.Errorf("picverify: expected 1 or 2 sections, got %d", len(f.Sections))
	}
}
