package gifplay

import (
	"context"
	"math"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// RepeatForever is the repeat count that loops an animation indefinitely.
const RepeatForever = math.MaxInt

const (
	// DefaultFrameDelay is used for frames without usable delay metadata.
	DefaultFrameDelay = time.Second

	// DefaultClampThreshold is the largest raw GIF delay that gets clamped.
	DefaultClampThreshold = 10 * time.Millisecond

	// DefaultClampedDelay replaces delays at or below the clamp threshold.
	DefaultClampedDelay = 100 * time.Millisecond

	// DefaultMinTick is the tick used when every delay reduces to zero.
	DefaultMinTick = time.Millisecond

	DefaultMaxBytes       = 64 << 20
	DefaultMaxPixels      = 30_000_000
	DefaultMaxTotalPixels = 50_000_000
)

// Options holds the decoder's fallback values and limits. Zero fields take
// the package defaults; negative limits disable the limit.
type Options struct {
	DefaultDelay   time.Duration `env:"GIFPLAY_DEFAULT_DELAY"`
	ClampThreshold time.Duration `env:"GIFPLAY_CLAMP_THRESHOLD"`
	ClampedDelay   time.Duration `env:"GIFPLAY_CLAMPED_DELAY"`
	MinTick        time.Duration `env:"GIFPLAY_MIN_TICK"`

	// MaxBytes caps the size of the encoded input.
	MaxBytes int64 `env:"GIFPLAY_MAX_BYTES"`

	// MaxPixels caps the logical screen area.
	MaxPixels int `env:"GIFPLAY_MAX_PIXELS"`

	// MaxTotalPixels caps the logical screen area times the frame count,
	// the pixels held by the composited frames of one decode.
	MaxTotalPixels int64 `env:"GIFPLAY_MAX_TOTAL_PIXELS"`

	// MaxFrames caps the number of expanded entries. 0 means no limit.
	MaxFrames int `env:"GIFPLAY_MAX_FRAMES"`
}

// DefaultOptions returns the options used by the package-level functions.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// LoadOptions reads GIFPLAY_* environment variables on top of the defaults.
func LoadOptions(ctx context.Context) (Options, error) {
	var o Options
	if err := envconfig.Process(ctx, &o); err != nil {
		return Options{}, err
	}
	return o.withDefaults(), nil
}

func (o Options) withDefaults() Options {
	if o.DefaultDelay <= 0 {
		o.DefaultDelay = DefaultFrameDelay
	}
	if o.ClampThreshold == 0 {
		o.ClampThreshold = DefaultClampThreshold
	}
	if o.ClampedDelay <= 0 {
		o.ClampedDelay = DefaultClampedDelay
	}
	if o.MinTick < time.Millisecond {
		o.MinTick = DefaultMinTick
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxPixels == 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	if o.MaxTotalPixels == 0 {
		o.MaxTotalPixels = DefaultMaxTotalPixels
	}
	return o
}
