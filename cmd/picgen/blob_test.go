package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackBlobPlainCopy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")

	require.NoError(t, os.WriteFile(in, []byte{0x90, 0x90, 0xC3}, 0o644))
	require.NoError(t, packBlob(in, out, false, false))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, []byte{0x90, 0x90, 0xC3}, got)
}

func TestPackBlobEncrypted(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")

	require.NoError(t, os.WriteFile(in, []byte("shellcode bytes here"), 0o644))
	require.NoError(t, packBlob(in, out, false, true))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotEqual(t, "shellcode bytes here", string(got))
}
