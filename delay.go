package gifplay

import (
	"math"
	"time"
)

// frameDelayMillis resolves the display time of one frame in whole
// milliseconds. The unclamped delay wins unless it is missing or zero, then
// the clamped delay, then the default. The result is always positive.
func frameDelayMillis(p Properties, opts Options) int {
	seconds, ok := p.Float(PropertyUnclampedDelayTime)
	if !ok || seconds == 0 {
		seconds, ok = p.Float(PropertyDelayTime)
	}
	if !ok || seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = opts.DefaultDelay.Seconds()
	}

	ms := truncMillis(seconds)
	if ms <= 0 {
		ms = truncMillis(opts.DefaultDelay.Seconds())
	}
	return ms
}

// truncMillis truncates seconds to milliseconds. Values within a nanosecond
// below a millisecond boundary are float noise (0.29*1000 = 289.99999999999997)
// and land on the boundary.
func truncMillis(seconds float64) int {
	ms := seconds * 1000
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(ms + 1e-6))
}

// gcd is Euclid's algorithm over absolute values, gcd(a, 0) = |a|.
func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// tickMillis reduces delays to their greatest common divisor. A reduction
// that ends at zero returns minTick instead, so callers can always divide.
func tickMillis(delays []int, minTick time.Duration) int {
	tick := 0
	for _, d := range delays {
		tick = gcd(tick, d)
		if tick == 1 {
			break
		}
	}
	if tick == 0 {
		tick = int(minTick / time.Millisecond)
		if tick <= 0 {
			tick = 1
		}
	}
	return tick
}
