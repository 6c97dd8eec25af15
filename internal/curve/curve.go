// Package curve implements the velocity transfer functions referenced by
// event.VelocityCurve. Every function here is monotonic non-decreasing on
// [0,127] -> [0,127] for any intensity in [0,1] (spec.md §8).
package curve

import (
	"math"

	"github.com/conductor-hq/conductord/internal/event"
)

// Apply transforms an input velocity (0..127) through the named curve at
// the given intensity, clamping the result back to [0,127].
func Apply(c *event.VelocityCurve, velocity int) int {
	if c == nil {
		return clamp(velocity)
	}
	v := clamp(velocity)
	x := float64(v) / 127.0
	intensity := c.Intensity
	if intensity < 0 {
		intensity = 0
	} else if intensity > 1 {
		intensity = 1
	}

	var y float64
	switch c.Type {
	case event.CurveExponential:
		y = exponential(x, intensity)
	case event.CurveLogarithmic:
		y = logarithmic(x, intensity)
	case event.CurveSCurve:
		y = sCurve(x, intensity)
	default: // Linear
		y = x
	}

	return clamp(int(math.Round(y * 127.0)))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}

// exponential interpolates between the identity line (intensity 0) and a
// convex curve x^k (intensity 1, k up to 4) -- always monotonic since both
// endpoints and every convex combination of monotonic functions on [0,1]
// is itself monotonic.
func exponential(x, intensity float64) float64 {
	k := 1.0 + intensity*3.0 // k in [1,4]
	return (1-intensity)*x + intensity*math.Pow(x, k)
}

// logarithmic interpolates toward a concave curve x^(1/k) (k up to 4),
// the mirror image of exponential.
func logarithmic(x, intensity float64) float64 {
	if x <= 0 {
		return 0
	}
	k := 1.0 + intensity*3.0
	concave := math.Pow(x, 1.0/k)
	return (1-intensity)*x + intensity*concave
}

// sCurve interpolates toward a smoothstep-family curve; smoothstep and its
// higher-order generalizations are monotonic non-decreasing on [0,1], and
// so is any convex combination with the identity line.
func sCurve(x, intensity float64) float64 {
	smooth := x * x * (3 - 2*x)
	return (1-intensity)*x + intensity*smooth
}
