package color

import "github.com/lucasb-eyer/go-colorful"

// Scale is the factor applied to normalized channels before measuring distance.
const Scale = 255

// MaxDistance is the distance between black and white.
var MaxDistance = Distance(Color{}, Color{R: 1, G: 1, B: 1})

// Distance returns the Euclidean distance between a and b with each channel
// scaled to [0, 255]. It is zero only when the channels are identical.
func Distance(a, b Color) float64 {
	ca := colorful.Color{R: a.R, G: a.G, B: a.B}
	cb := colorful.Color{R: b.R, G: b.G, B: b.B}
	return Scale * ca.DistanceRgb(cb)
}
