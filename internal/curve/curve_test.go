package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conductor-hq/conductord/internal/event"
)

func TestApplyNilCurveClamps(t *testing.T) {
	assert.Equal(t, 127, Apply(nil, 200))
	assert.Equal(t, 0, Apply(nil, -5))
	assert.Equal(t, 64, Apply(nil, 64))
}

func TestApplyEndpointsHoldForEveryType(t *testing.T) {
	for _, ct := range []event.CurveType{event.CurveLinear, event.CurveExponential, event.CurveLogarithmic, event.CurveSCurve} {
		for _, intensity := range []float64{0, 0.25, 0.5, 0.75, 1} {
			c := &event.VelocityCurve{Type: ct, Intensity: intensity}
			assert.Equal(t, 0, Apply(c, 0), "type=%s intensity=%v", ct, intensity)
			assert.Equal(t, 127, Apply(c, 127), "type=%s intensity=%v", ct, intensity)
		}
	}
}

func TestApplyIsMonotonicNonDecreasing(t *testing.T) {
	for _, ct := range []event.CurveType{event.CurveLinear, event.CurveExponential, event.CurveLogarithmic, event.CurveSCurve} {
		for _, intensity := range []float64{0, 0.1, 0.5, 0.9, 1} {
			c := &event.VelocityCurve{Type: ct, Intensity: intensity}
			prev := -1
			for v := 0; v <= 127; v++ {
				out := Apply(c, v)
				assert.GreaterOrEqual(t, out, prev, "type=%s intensity=%v velocity=%d regressed", ct, intensity, v)
				prev = out
			}
		}
	}
}

func TestApplyClampsOutOfRangeIntensity(t *testing.T) {
	c := &event.VelocityCurve{Type: event.CurveExponential, Intensity: 5}
	assert.Equal(t, 127, Apply(c, 127))
	c2 := &event.VelocityCurve{Type: event.CurveExponential, Intensity: -5}
	assert.Equal(t, 0, Apply(c2, 0))
}

func TestApplyLinearIsIdentity(t *testing.T) {
	c := &event.VelocityCurve{Type: event.CurveLinear, Intensity: 1}
	for _, v := range []int{0, 1, 63, 64, 100, 127} {
		assert.Equal(t, v, Apply(c, v))
	}
}
