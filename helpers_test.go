package gifplay

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"
)

var (
	red   = color.RGBA{0xff, 0x00, 0x00, 0xff}
	green = color.RGBA{0x00, 0xff, 0x00, 0xff}
	blue  = color.RGBA{0x00, 0x00, 0xff, 0xff}

	testPalette = color.Palette{red, green, blue}
)

// solidFrame returns a paletted frame over r filled with palette index c.
func solidFrame(r image.Rectangle, c uint8) *image.Paletted {
	m := image.NewPaletted(r, testPalette)
	for i := range m.Pix {
		m.Pix[i] = c
	}
	return m
}

// encodeGIF builds a GIF of 4x4 solid frames, one per delay (1/100 sec).
func encodeGIF(t *testing.T, delays ...int) []byte {
	t.Helper()
	g := &gif.GIF{}
	for i, d := range delays {
		g.Image = append(g.Image, solidFrame(image.Rect(0, 0, 4, 4), uint8(i%len(testPalette))))
		g.Delay = append(g.Delay, d)
	}
	return encodeAll(t, g)
}

func encodeAll(t *testing.T, g *gif.GIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// withAppExtension inserts an application extension right after the header
// of a GIF that has no global color table.
func withAppExtension(t *testing.T, data []byte, id string, payload []byte) []byte {
	t.Helper()
	if len(id) != 11 {
		t.Fatalf("application id must be 11 bytes, got %q", id)
	}
	ext := []byte{0x21, 0xff, 11}
	ext = append(ext, id...)
	for len(payload) > 0 {
		n := len(payload)
		if n > 255 {
			n = 255
		}
		ext = append(ext, byte(n))
		ext = append(ext, payload[:n]...)
		payload = payload[n:]
	}
	ext = append(ext, 0)
	return insertAfterHeader(t, data, ext)
}

// insertAfterHeader puts raw blocks between the logical screen descriptor
// and the first frame of a GIF that has no global color table.
func insertAfterHeader(t *testing.T, data []byte, blocks ...[]byte) []byte {
	t.Helper()
	if data[10]&0x80 != 0 {
		t.Fatal("test GIF has a global color table")
	}
	out := append([]byte{}, data[:13]...)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return append(out, data[13:]...)
}
