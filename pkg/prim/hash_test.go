package prim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashCaseInsensitive(t *testing.T) {
	cases := []string{"WriteConsoleA", "kernel32.dll", "NtAllocateVirtualMemory"}
	for _, s := range cases {
		require.Equal(t, Hash(s), Hash(strings.ToUpper(s)), "upper-cased %q should hash equal", s)
		require.Equal(t, Hash(s), Hash(strings.ToLower(s)), "lower-cased %q should hash equal", s)
	}
}

func TestHashDiffersOnContent(t *testing.T) {
	require.NotEqual(t, Hash("WriteConsoleA"), Hash("WriteConsoleW"))
}

func TestHashWideMatchesHashForASCII(t *testing.T) {
	s := "ntdll.dll"
	units := make([]uint16, len(s))
	for i, c := range []byte(s) {
		units[i] = uint16(c)
	}
	require.Equal(t, Hash(s), HashWide(units))
}
