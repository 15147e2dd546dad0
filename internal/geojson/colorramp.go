package geojson

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// A ColorRamp maps values linearly to colors blended in the CIE L*a*b* space.
type ColorRamp struct {
	min  float64
	max  float64
	from colorful.Color
	to   colorful.Color
}

// NewColorRamp returns a new ColorRamp from the hex color from at minValue to
// the hex color to at maxValue.
func NewColorRamp(minValue, maxValue float64, from, to string) (*ColorRamp, error) {
	if !(minValue <= maxValue) {
		return nil, eris.Errorf("geojson: invalid color ramp range [%g, %g]", minValue, maxValue)
	}
	fromColor, err := colorful.Hex(from)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: color %q", from)
	}
	toColor, err := colorful.Hex(to)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: color %q", to)
	}
	return &ColorRamp{
		min:  minValue,
		max:  maxValue,
		from: fromColor,
		to:   toColor,
	}, nil
}

// Color returns the hex color of value. Values outside the ramp's range are
// clamped.
func (r *ColorRamp) Color(value float64) string {
	t := 0.0
	if r.max > r.min {
		t = (value - r.min) / (r.max - r.min)
	}
	if math.IsNaN(t) {
		t = 0
	}
	t = max(0, min(1, t))
	return r.from.BlendLab(r.to, t).Clamped().Hex()
}
