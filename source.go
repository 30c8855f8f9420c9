package gifplay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"time"
)

// Property keys of the per-frame metadata map.
const (
	// PropertyUnclampedDelayTime is the delay as written in the file, in seconds.
	PropertyUnclampedDelayTime = "UnclampedDelayTime"
	// PropertyDelayTime is the delay in seconds after clamping very short
	// delays up, the way browsers do.
	PropertyDelayTime = "DelayTime"

	PropertyDisposalMethod   = "DisposalMethod"
	PropertyTransparentIndex = "TransparentIndex"
)

// Properties is the metadata map of one frame.
type Properties map[string]any

// Float returns the named property as a float64. Missing and non-numeric
// values report false.
func (p Properties) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint16:
		return float64(v), true
	}
	return 0, false
}

// ImageSource is an encoded multi-frame image opened for reading.
type ImageSource interface {
	FrameCount() int
	// Frame returns the fully composited picture shown at frame i.
	Frame(i int) (image.Image, error)
	Properties(i int) Properties
}

// gifSource is the ImageSource over GIF bytes.
type gifSource struct {
	info *gifInfo
	g    *gif.GIF
	opts Options

	canvas *image.RGBA
	prev   *image.RGBA
	bg     color.Color
	next   int // index of the next frame to composite
	frames []image.Image
}

var _ ImageSource = (*gifSource)(nil)

// newGIFSource scans and decodes data. Decoding the LZW data happens here,
// compositing happens lazily in Frame.
func newGIFSource(data []byte, opts Options) (src *gifSource, err error) {
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), opts.MaxBytes)
	}

	info, err := scanGIF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w, h := screenSize(info)
	if opts.MaxPixels > 0 && int64(w)*int64(h) > int64(opts.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d pixels, limit %d", ErrTooLarge, w, h, opts.MaxPixels)
	}
	// every frame becomes a full-screen copy
	total := int64(w) * int64(h) * int64(len(info.Frames))
	if opts.MaxTotalPixels > 0 && total > opts.MaxTotalPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels in %d frames, limit %d total",
			ErrTooLarge, w, h, len(info.Frames), opts.MaxTotalPixels)
	}

	// image/gif panics on some broken files found in the wild
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("gifplay: recovered from gif decoder panic", "panic", r)
			src, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrFrameDecode, r)
		}
	}()

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(g.Image) != len(info.Frames) {
		return nil, fmt.Errorf("%w: %d images decoded, %d descriptors scanned", ErrFrameDecode, len(g.Image), len(info.Frames))
	}

	width, height := g.Config.Width, g.Config.Height
	if width <= 0 || height <= 0 {
		var b image.Rectangle
		for _, m := range g.Image {
			b = b.Union(m.Bounds())
		}
		width, height = b.Max.X, b.Max.Y
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	return &gifSource{
		info:   info,
		g:      g,
		opts:   opts,
		canvas: canvas,
		prev:   image.NewRGBA(canvas.Bounds()),
		bg:     backgroundColor(g),
		frames: make([]image.Image, len(g.Image)),
	}, nil
}

// screenSize is the logical screen, or the extent of the frames when the
// header leaves it empty.
func screenSize(info *gifInfo) (int, int) {
	if info.Width > 0 && info.Height > 0 {
		return info.Width, info.Height
	}
	var b image.Rectangle
	for _, f := range info.Frames {
		b = b.Union(f.Bounds)
	}
	return b.Max.X, b.Max.Y
}

func (s *gifSource) FrameCount() int {
	return len(s.info.Frames)
}

func (s *gifSource) Properties(i int) Properties {
	if i < 0 || i >= len(s.info.Frames) {
		return nil
	}
	f := s.info.Frames[i]
	p := Properties{
		PropertyDisposalMethod:   f.Disposal,
		PropertyTransparentIndex: f.TransparentIndex,
	}
	if !f.HasControl {
		return p
	}
	raw := float64(f.Delay) / 100
	clamped := raw
	if time.Duration(f.Delay)*10*time.Millisecond <= s.opts.ClampThreshold {
		clamped = s.opts.ClampedDelay.Seconds()
	}
	p[PropertyUnclampedDelayTime] = raw
	p[PropertyDelayTime] = clamped
	return p
}

// Frame composites frames in order up to i. Frames are immutable once
// produced.
func (s *gifSource) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(s.frames) {
		return nil, fmt.Errorf("%w: frame %d out of range", ErrFrameDecode, i)
	}
	for s.next <= i {
		if err := s.composite(s.next); err != nil {
			return nil, err
		}
		s.next++
	}
	return s.frames[i], nil
}

func (s *gifSource) composite(i int) error {
	m := s.g.Image[i]
	if m == nil {
		return fmt.Errorf("%w: frame %d is empty", ErrFrameDecode, i)
	}
	b := m.Bounds()
	if !b.In(s.canvas.Bounds()) {
		return fmt.Errorf("%w: frame %d bounds %v outside %v", ErrFrameDecode, i, b, s.canvas.Bounds())
	}

	disposal := s.info.Frames[i].Disposal
	if disposal == DisposalPrevious {
		copy(s.prev.Pix, s.canvas.Pix)
	}

	draw.Draw(s.canvas, b, m, b.Min, draw.Over)
	out := image.NewRGBA(s.canvas.Bounds())
	copy(out.Pix, s.canvas.Pix)
	s.frames[i] = out

	switch disposal {
	case DisposalBackground:
		draw.Draw(s.canvas, b, &image.Uniform{C: s.bg}, image.Point{}, draw.Src)
	case DisposalPrevious:
		copy(s.canvas.Pix, s.prev.Pix)
	}
	return nil
}

// backgroundColor is the fill for DisposalBackground. Without a global
// palette the area becomes transparent.
func backgroundColor(g *gif.GIF) color.Color {
	pal, ok := g.Config.ColorModel.(color.Palette)
	if !ok || len(pal) == 0 {
		return color.Transparent
	}
	idx := int(g.BackgroundIndex)
	if idx >= len(pal) {
		return color.Transparent
	}
	return pal[idx]
}
