package document

import (
	"fmt"

	"github.com/jsvensson/colormerge/internal/color"
)

// PaintType tags the kind of a paint entry.
type PaintType string

const (
	Solid          PaintType = "SOLID"
	GradientLinear PaintType = "GRADIENT_LINEAR"
	GradientRadial PaintType = "GRADIENT_RADIAL"
	Image          PaintType = "IMAGE"
)

// Paint is one entry of a fill or stroke list. Color is only meaningful for
// solid paints. A nil Visible means the host did not mark the paint either way.
type Paint struct {
	Type      PaintType
	Color     color.Color
	Opacity   float64
	BlendMode string
	Visible   *bool
}

// SolidPaint returns a visible, fully opaque solid paint.
func SolidPaint(c color.Color) Paint {
	return Paint{Type: Solid, Color: c, Opacity: 1, BlendMode: "NORMAL"}
}

// IsSolid reports whether the paint holds a single flat color.
func (p Paint) IsSolid() bool {
	return p.Type == Solid
}

// IsVisible reports whether the paint is not explicitly hidden.
func (p Paint) IsVisible() bool {
	return p.Visible == nil || *p.Visible
}

// PaintList is a node's fills or strokes. Mixed is the host sentinel for a
// list whose value is indeterminate; Paints is empty in that case.
type PaintList struct {
	Paints []Paint
	Mixed  bool
}

// MixedPaints returns the mixed sentinel.
func MixedPaints() PaintList {
	return PaintList{Mixed: true}
}

// Clone returns a deep copy of the list.
func (l PaintList) Clone() PaintList {
	out := PaintList{Mixed: l.Mixed}
	if l.Paints != nil {
		out.Paints = make([]Paint, len(l.Paints))
		for i, p := range l.Paints {
			if p.Visible != nil {
				v := *p.Visible
				p.Visible = &v
			}
			out.Paints[i] = p
		}
	}
	return out
}

// SlotKind selects the fill or stroke list of a node.
type SlotKind int

const (
	Fill SlotKind = iota
	Stroke
)

func (k SlotKind) String() string {
	switch k {
	case Fill:
		return "fill"
	case Stroke:
		return "stroke"
	default:
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
}

func (k SlotKind) MarshalText() ([]byte, error) {
	switch k {
	case Fill, Stroke:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown slot kind %d", int(k))
}

func (k *SlotKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "fill":
		*k = Fill
	case "stroke":
		*k = Stroke
	default:
		return fmt.Errorf("unknown slot kind %q (valid: fill, stroke)", b)
	}
	return nil
}
