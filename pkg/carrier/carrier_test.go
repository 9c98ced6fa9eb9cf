package carrier

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	host := blankPNG(t, 64, 64)
	blob := []byte("a small test payload")

	var embedded bytes.Buffer
	require.NoError(t, Embed(bytes.NewReader(host), blob, &embedded))

	extracted, err := Extract(bytes.NewReader(embedded.Bytes()))
	require.NoError(t, err)
	require.Equal(t, blob, extracted)
}

func TestEmbedRejectsTooSmallImage(t *testing.T) {
	host := blankPNG(t, 2, 2)
	blob := bytes.Repeat([]byte{0xAA}, 1024)

	var embedded bytes.Buffer
	err := Embed(bytes.NewReader(host), blob, &embedded)
	require.Error(t, err)
}

func TestExtractRejectsUnembeddedImage(t *testing.T) {
	host := blankPNG(t, 32, 32)
	_, err := Extract(bytes.NewReader(host))
	require.Error(t, err)
}
