package prim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXORStringRoundTrip(t *testing.T) {
	xs := NewXORString("Hi", 42)
	require.NotEqual(t, byte(0), xs.Key)
	require.NotEqual(t, "Hi", string(xs.Bytes))

	decoded := string(xs.Decode())
	require.Equal(t, "Hi", decoded)
	require.Equal(t, byte(0), xs.Key)
}

func TestXORStringDecodeIsIdempotent(t *testing.T) {
	xs := NewXORString("kernel32.dll", 7)
	first := append([]byte(nil), xs.Decode()...)
	second := xs.Decode()
	require.Equal(t, first, second)
}

func TestXORStringKeyNeverZero(t *testing.T) {
	for line := -5; line < 2000; line++ {
		xs := NewXORString("x", line)
		require.NotEqual(t, byte(0), xs.Key, "line %d produced a zero key", line)
	}
}
