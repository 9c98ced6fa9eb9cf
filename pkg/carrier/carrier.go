// Package carrier hides a blob inside the least-significant bits of a
// PNG's pixel channels, for delivery scenarios where the raw blob file
// itself would be a conspicuous artifact. Adapted from the teacher's
// generator/generator.go (embedPEInImage), trimmed to PNG only: that
// function's JPEG path re-encodes with lossy compression, which
// silently corrupts an LSB payload on re-save, so this rewrite doesn't
// carry that mode forward (see DESIGN.md for the MP3/PDF carriers
// dropped along with it).
package carrier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
)

// magicHeader tags an embedded payload so Extract can refuse to
// produce garbage from a PNG that never had a blob embedded in it.
var magicHeader = [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE, 0xBA, 0xBE}

// Embed reads a PNG from r and writes a copy with blob hidden across
// the low bit of each RGB channel to w.
func Embed(r io.Reader, blob []byte, w io.Writer) error {
	img, err := png.Decode(r)
	if err != nil {
		return fmt.Errorf("carrier: decoding PNG: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y

	canvas := image.NewRGBA(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			canvas.Set(x, y, img.At(x, y))
		}
	}

	var payload bytes.Buffer
	payload.Write(magicHeader[:])
	var sizeBytes [4]byte
	binary.LittleEndian.PutUint32(sizeBytes[:], uint32(len(blob)))
	payload.Write(sizeBytes[:])
	payload.Write(blob)

	data := payload.Bytes()
	totalPixels := width * height
	if len(data)*8 > totalPixels*3 {
		return fmt.Errorf("carrier: image too small: need %d pixels, have %d", (len(data)*8+2)/3, totalPixels)
	}

	dataIndex, bitIndex := 0, 0
	for y := 0; y < height && dataIndex < len(data); y++ {
		for x := 0; x < width && dataIndex < len(data); x++ {
			px := canvas.RGBAAt(x, y)
			channels := []*uint8{&px.R, &px.G, &px.B}
			for _, ch := range channels {
				if dataIndex >= len(data) {
					break
				}
				bit := (data[dataIndex] >> (7 - bitIndex)) & 1
				*ch = (*ch &^ 1) | bit
				bitIndex++
				if bitIndex == 8 {
					bitIndex = 0
					dataIndex++
				}
			}
			canvas.SetRGBA(x, y, px)
		}
	}

	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("carrier: encoding PNG: %w", err)
	}
	return nil
}

// Extract reverses Embed: it reads a PNG from r and returns the blob
// hidden in its pixel data, or an error if the magic header is absent.
func Extract(r io.Reader) ([]byte, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("carrier: decoding PNG: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y

	headerLen := len(magicHeader) + 4
	header := make([]byte, 0, headerLen)
	bitIndex := 0
	var cur byte

	read := func(n int) []byte {
		out := make([]byte, 0, n)
		for y := 0; y < height && len(out) < n; y++ {
			for x := 0; x < width && len(out) < n; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				for _, c := range []uint32{r, g, b} {
					bit := byte(c>>8) & 1
					cur = (cur << 1) | bit
					bitIndex++
					if bitIndex == 8 {
						out = append(out, cur)
						cur = 0
						bitIndex = 0
						if len(out) >= n {
							return out
						}
					}
				}
			}
		}
		return out
	}

	header = read(headerLen)
	if len(header) < headerLen {
		return nil, fmt.Errorf("carrier: image too small to hold a header")
	}
	for i := range magicHeader {
		if header[i] != magicHeader[i] {
			return nil, fmt.Errorf("carrier: no embedded blob found (magic header mismatch)")
		}
	}
	size := binary.LittleEndian.Uint32(header[len(magicHeader):])

	// read restarts bit position tracking; extracting the payload body
	// requires continuing the same bit stream rather than restarting,
	// so the body is read by a second pass that skips the header bits.
	return extractBody(img, bounds, headerLen, int(size))
}

func extractBody(img image.Image, bounds image.Rectangle, skipBytes, n int) ([]byte, error) {
	width, height := bounds.Max.X, bounds.Max.Y
	skipBits := skipBytes * 8
	needBits := n * 8

	out := make([]byte, 0, n)
	var cur byte
	bitCount := 0
	seen := 0

	for y := 0; y < height && len(out) < n; y++ {
		for x := 0; x < width && len(out) < n; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			for _, c := range []uint32{r, g, b} {
				if seen < skipBits {
					seen++
					continue
				}
				bit := byte(c>>8) & 1
				cur = (cur << 1) | bit
				bitCount++
				if bitCount == 8 {
					out = append(out, cur)
					cur = 0
					bitCount = 0
				}
				seen++
				if seen-skipBits >= needBits {
					return out, nil
				}
			}
		}
	}
	if len(out) < n {
		return nil, fmt.Errorf("carrier: truncated payload: got %d of %d bytes", len(out), n)
	}
	return out, nil
}
