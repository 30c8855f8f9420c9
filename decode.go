//
// decode an animated GIF into frames of one uniform duration
//

// Package gifplay decodes animated GIFs for players that can show every
// frame for only one fixed duration. Frames are repeated so that variable
// GIF delays are reproduced exactly at the greatest common tick.
package gifplay

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"
	"time"
)

var (
	ErrNoFrames    = errors.New("gifplay: image has no frames")
	ErrFrameDecode = errors.New("gifplay: frame decode failed")
	ErrTooLarge    = errors.New("gifplay: image too large")
)

// Sequence is a decoded animation ready for a player that supports only one
// duration for every frame. Frames holds each original frame repeated so
// that every entry lasts exactly Tick.
type Sequence struct {
	Frames   []image.Image
	Duration time.Duration
	Tick     time.Duration

	// Delays and Counts are indexed by original frame: the resolved delay
	// and how many entries of Frames the frame expanded to.
	Delays []time.Duration
	Counts []int

	// LoopCount is how many times the file asks to be played: 1 without a
	// loop extension, RepeatForever for an infinite loop.
	LoopCount int

	Width, Height int
	ICCProfile    []byte
}

// Seconds returns the total duration in seconds.
func (s *Sequence) Seconds() float64 {
	return s.Duration.Seconds()
}

// Decoder turns encoded GIF data into a Sequence.
type Decoder struct {
	opts Options
}

// NewDecoder returns a decoder. Zero fields of opts take the defaults.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts.withDefaults()}
}

var defaultDecoder = NewDecoder(Options{})

// Decode decodes data with the default options. See Decoder.Decode.
func Decode(data []byte) *Sequence {
	return defaultDecoder.Decode(data)
}

// DecodeResource decodes <name>.gif from fsys with the default options.
func DecodeResource(fsys fs.FS, name string) *Sequence {
	return defaultDecoder.DecodeResource(fsys, name)
}

// Decode returns the animation encoded in data, or nil if data is not a
// decodable GIF. It never panics on malformed input.
func (d *Decoder) Decode(data []byte) *Sequence {
	seq, err := d.decode(data)
	if err != nil {
		Logger().Debug("gifplay: decode failed", "bytes", len(data), "err", err)
		return nil
	}
	return seq
}

// DecodeResource looks up <name>.gif in fsys and decodes it. A missing or
// unreadable resource yields nil.
func (d *Decoder) DecodeResource(fsys fs.FS, name string) *Sequence {
	if fsys == nil {
		return nil
	}
	file := resourceFile(name)
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		Logger().Debug("gifplay: resource lookup failed", "name", file, "err", err)
		return nil
	}
	return d.Decode(data)
}

// DecodeSource builds a Sequence from an already opened source. It is
// the second half of Decode and works with any ImageSource.
func (d *Decoder) DecodeSource(src ImageSource) *Sequence {
	seq, err := d.schedule(src)
	if err != nil {
		Logger().Debug("gifplay: decode failed", "err", err)
		return nil
	}
	return seq
}

func (d *Decoder) decode(data []byte) (*Sequence, error) {
	src, err := newGIFSource(data, d.opts)
	if err != nil {
		return nil, err
	}
	seq, err := d.schedule(src)
	if err != nil {
		return nil, err
	}

	seq.Width, seq.Height = src.canvas.Rect.Dx(), src.canvas.Rect.Dy()
	seq.ICCProfile = src.info.ICCProfile
	switch {
	case !src.info.HasLoop:
		seq.LoopCount = 1
	case src.info.LoopCount == 0:
		seq.LoopCount = RepeatForever
	default:
		seq.LoopCount = src.info.LoopCount + 1
	}
	return seq, nil
}

// schedule resolves delays, reduces them to one tick and expands the frames.
func (d *Decoder) schedule(src ImageSource) (*Sequence, error) {
	n := src.FrameCount()
	if n <= 0 {
		return nil, ErrNoFrames
	}

	delays := make([]int, n)
	total := 0
	for i := range delays {
		delays[i] = frameDelayMillis(src.Properties(i), d.opts)
		total += delays[i]
	}
	tick := tickMillis(delays, d.opts.MinTick)

	counts := make([]int, n)
	expanded := 0
	for i, ms := range delays {
		counts[i] = ms / tick
		expanded += counts[i]
	}
	if d.opts.MaxFrames > 0 && expanded > d.opts.MaxFrames {
		return nil, fmt.Errorf("%w: %d expanded frames at %dms tick, limit %d", ErrTooLarge, expanded, tick, d.opts.MaxFrames)
	}

	frames := make([]image.Image, 0, expanded)
	for i := 0; i < n; i++ {
		img, err := src.Frame(i)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if img == nil {
			return nil, fmt.Errorf("%w: frame %d is nil", ErrFrameDecode, i)
		}
		for j := 0; j < counts[i]; j++ {
			frames = append(frames, img)
		}
	}

	seq := &Sequence{
		Frames:    frames,
		Duration:  time.Duration(total) * time.Millisecond,
		Tick:      time.Duration(tick) * time.Millisecond,
		Delays:    make([]time.Duration, n),
		Counts:    counts,
		LoopCount: 1,
	}
	for i, ms := range delays {
		seq.Delays[i] = time.Duration(ms) * time.Millisecond
	}
	if len(frames) > 0 {
		b := frames[0].Bounds()
		seq.Width, seq.Height = b.Dx(), b.Dy()
	}

	Logger().Debug("gifplay: decoded",
		"frames", n, "expanded", expanded, "tick", seq.Tick, "duration", seq.Duration)
	return seq, nil
}

func resourceFile(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if !strings.EqualFold(path.Ext(name), ".gif") {
		name += ".gif"
	}
	return name
}
