// Package prim holds the freestanding primitives every other package in
// this module builds on: a case-folded FNV-1a hash for name-free symbol
// matching, a lazily-decoded XOR string record, and the pc/pic
// self-location primitives used to make globals survive being copied to
// an address the linker never anticipated.
package prim

const (
	fnvOffset32 = 0x811C9DC5
	fnvPrime32  = 0x01000193
)

// Hash computes a case-folded FNV-1a hash over s, one byte at a time.
// The fold is intentionally one-sided (subtract 0x20 when b >= 'a') so
// that both comparison sides hash identically regardless of case, and so
// the loop stays branch-light enough to inline at every lookup site.
func Hash(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 'a' {
			b -= 0x20
		}
		h ^= uint32(b)
		h *= fnvPrime32
	}
	return h
}

// HashBytes is Hash over a byte slice, for callers already holding raw
// export-table name bytes instead of a Go string.
func HashBytes(b []byte) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c >= 'a' {
			c -= 0x20
		}
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// HashWide hashes a UTF-16 code-unit slice by taking the low byte of
// each unit, matching Hash's case fold. Used for module base names,
// which the loader stores as UTF-16.
func HashWide(units []uint16) uint32 {
	h := uint32(fnvOffset32)
	for _, u := range units {
		c := byte(u)
		if c >= 'a' {
			c -= 0x20
		}
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}
