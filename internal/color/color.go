package color

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColorKey is returned when a string is not a 6 hex digit color key.
var ErrInvalidColorKey = errors.New("invalid color key")

// Color represents an RGB color with each channel normalized to [0, 1].
// Float precision is kept as the host reported it; Key quantizes it.
type Color struct {
	R, G, B float64
}

// RGB returns a Color from normalized channel values.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b}
}

// Key returns the canonical 6 digit uppercase hex key, e.g. "EB6F92".
// Channels are scaled by 255, rounded half away from zero and clamped to [0, 255].
func (c Color) Key() string {
	cc := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped()
	return fmt.Sprintf("%02X%02X%02X", channel(cc.R), channel(cc.G), channel(cc.B))
}

// Hex returns the key with a leading #, e.g. "#EB6F92".
func (c Color) Hex() string {
	return "#" + c.Key()
}

// Bytes returns the quantized 8-bit channels.
func (c Color) Bytes() (r, g, b uint8) {
	cc := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped()
	return channel(cc.R), channel(cc.G), channel(cc.B)
}

// Exact reports whether the color survives a Key round trip without loss.
func (c Color) Exact() bool {
	back, err := ParseKey(c.Key())
	return err == nil && back == c
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%g, %g, %g)", c.R, c.G, c.B)
}

func channel(v float64) uint8 {
	// NaN would survive Clamped; treat it as black.
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(v * 255))
}

// ParseKey parses a 6 hex digit key like "EB6F92" (a leading # is accepted)
// into a Color. Each byte is divided by 255.
func ParseKey(s string) (Color, error) {
	key := strings.TrimPrefix(s, "#")
	if len(key) != 6 {
		return Color{}, fmt.Errorf("%w %q: must be 6 hex digits", ErrInvalidColorKey, s)
	}
	for _, ch := range key {
		if !isHexDigit(ch) {
			return Color{}, fmt.Errorf("%w %q: %q is not a hex digit", ErrInvalidColorKey, s, ch)
		}
	}
	v, err := strconv.ParseUint(key, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w %q: %v", ErrInvalidColorKey, s, err)
	}
	return Color{
		R: float64((v>>16)&0xff) / 255,
		G: float64((v>>8)&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
