package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyRejectsGarbage(t *testing.T) {
	err := Verify([]byte("not a PE file"))
	require.Error(t, err)
}

func TestVerifyRejectsEmpty(t *testing.T) {
	err := Verify(nil)
	require.Error(t, err)
}
