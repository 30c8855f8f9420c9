package main

import (
	"bufio"
	"fmt"
	"image"
	"io"

	"golang.org/x/image/draw"
)

// terminal renders frames as 24-bit color half blocks, two pixel rows per
// text row.
type terminal struct {
	out *bufio.Writer
	buf *image.RGBA
}

func newTerminal(w io.Writer, cols, width, height int) *terminal {
	if cols < 1 {
		cols = 1
	}
	rows := 2
	if width > 0 {
		rows = (cols*height/width + 1) &^ 1
	}
	if rows < 2 {
		rows = 2
	}
	return &terminal{
		out: bufio.NewWriter(w),
		buf: image.NewRGBA(image.Rect(0, 0, cols, rows)),
	}
}

// begin hides the cursor and clears the screen.
func (t *terminal) begin() {
	fmt.Fprint(t.out, "\x1b[?25l\x1b[2J")
	t.out.Flush()
}

// end restores the cursor.
func (t *terminal) end() {
	fmt.Fprint(t.out, "\x1b[0m\x1b[?25h\n")
	t.out.Flush()
}

func (t *terminal) render(img image.Image) {
	if img == nil {
		fmt.Fprint(t.out, "\x1b[0m\x1b[2J")
		t.out.Flush()
		return
	}
	draw.ApproxBiLinear.Scale(t.buf, t.buf.Bounds(), img, img.Bounds(), draw.Src, nil)

	fmt.Fprint(t.out, "\x1b[H")
	b := t.buf.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := t.buf.RGBAAt(x, y)
			bot := t.buf.RGBAAt(x, y+1)
			fmt.Fprintf(t.out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		fmt.Fprint(t.out, "\x1b[0m\n")
	}
	t.out.Flush()
}
