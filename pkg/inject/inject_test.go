package inject

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelfRejectsEmptyBlob(t *testing.T) {
	_, err := Self(nil)
	require.Error(t, err)
}

func TestRemoteRejectsEmptyBlob(t *testing.T) {
	err := Remote(nil, 1234)
	require.Error(t, err)
}
