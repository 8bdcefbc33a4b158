package parser

import (
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Meta holds document metadata.
type Meta struct {
	Name string `hcl:"name,optional"`
}

// SwatchBlock wraps the swatches block for gohcl decoding.
type SwatchBlock struct {
	Entries hcl.Body `hcl:",remain"`
}

// RawDocument captures the blocks that need no evaluation context.
type RawDocument struct {
	Meta     *Meta        `hcl:"document,block"`
	Swatches *SwatchBlock `hcl:"swatches,block"`
	Remain   hcl.Body     `hcl:",remain"`
}

var (
	nodeAttrs  = []string{"name", "kind", "locked", "read_only", "fills_mixed", "strokes_mixed"}
	paintAttrs = []string{"type", "color", "opacity", "visible", "blend_mode"}
	styleAttrs = []string{"id"}
)

// Parse reads an HCL design document from path.
func Parse(path string) (*document.Memory, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return ParseSource(src, path)
}

// ParseSource parses an HCL design document held in memory.
func ParseSource(src []byte, filename string) (*document.Memory, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL: %s", diags.Error())
	}

	// First pass: metadata and swatches (literal values and rgb() only)
	var raw RawDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding document: %s", diags.Error())
	}

	swatches := make(map[string]cty.Value)
	if raw.Swatches != nil {
		var err error
		swatches, err = parseSwatches(raw.Swatches.Entries)
		if err != nil {
			return nil, fmt.Errorf("parsing swatches: %w", err)
		}
	}
	ctx := buildEvalContext(swatches)

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("document body is not an hclsyntax.Body")
	}
	if len(body.Attributes) > 0 {
		names := make([]string, 0, len(body.Attributes))
		for name := range body.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unexpected top-level attributes: %s", strings.Join(names, ", "))
	}

	var roots []*document.Element
	var styles []document.PaintStyle
	for _, block := range body.Blocks {
		switch block.Type {
		case "document", "swatches":
			continue
		case "node":
			e, err := parseNode(block, ctx)
			if err != nil {
				return nil, err
			}
			roots = append(roots, e)
		case "style":
			s, err := parseStyle(block, ctx)
			if err != nil {
				return nil, err
			}
			styles = append(styles, s)
		default:
			return nil, fmt.Errorf("%s: unknown block %q (valid: document, swatches, node, style)", block.DefRange(), block.Type)
		}
	}

	name := ""
	if raw.Meta != nil {
		name = raw.Meta.Name
	}
	doc, err := document.NewMemory(name, roots...)
	if err != nil {
		return nil, fmt.Errorf("building document: %w", err)
	}
	for _, s := range styles {
		doc.AddStyle(s)
	}
	return doc, nil
}

// parseSwatches evaluates each swatch to a color and keeps its cty value for
// references from nodes.
func parseSwatches(body hcl.Body) (map[string]cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("getting attributes: %s", diags.Error())
	}
	ctx := buildEvalContext(nil)
	out := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(ctx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating %s: %s", name, diags.Error())
		}
		if _, err := colorFromValue(val); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

func buildEvalContext(swatches map[string]cty.Value) *hcl.EvalContext {
	ctx := &hcl.EvalContext{
		Functions: map[string]function.Function{
			"rgb": makeRGBFunc(),
		},
	}
	if swatches != nil {
		// Sort keys for deterministic output
		keys := make([]string, 0, len(swatches))
		for k := range swatches {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make(map[string]cty.Value, len(keys))
		for _, k := range keys {
			vals[k] = swatches[k]
		}
		ctx.Variables = map[string]cty.Value{
			"swatch": cty.ObjectVal(vals),
		}
	}
	return ctx
}

var rgbType = cty.Object(map[string]cty.Type{
	"r": cty.Number,
	"g": cty.Number,
	"b": cty.Number,
})

// makeRGBFunc creates an HCL function describing a color by normalized channels.
// Usage: rgb(0.5, 0.25, 1)
func makeRGBFunc() function.Function {
	return function.New(&function.Spec{
		Description: "Describes a color by normalized red, green and blue channels (0.0 to 1.0)",
		Params: []function.Parameter{
			{Name: "r", Type: cty.Number},
			{Name: "g", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		Type: function.StaticReturnType(rgbType),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			for i, a := range args {
				f, _ := a.AsBigFloat().Float64()
				if math.IsInf(f, 0) || f < 0 || f > 1 {
					return cty.NilVal, function.NewArgErrorf(i, "channel must be between 0 and 1, got %v", f)
				}
			}
			return cty.ObjectVal(map[string]cty.Value{
				"r": args[0],
				"g": args[1],
				"b": args[2],
			}), nil
		},
	})
}

// colorFromValue accepts a hex string or an rgb() object.
func colorFromValue(val cty.Value) (color.Color, error) {
	if val.IsNull() || !val.IsKnown() {
		return color.Color{}, fmt.Errorf("color is null")
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return color.ParseKey(val.AsString())
	case ty.IsObjectType():
		var ch struct {
			R float64 `cty:"r"`
			G float64 `cty:"g"`
			B float64 `cty:"b"`
		}
		if err := gocty.FromCtyValue(val, &ch); err != nil {
			return color.Color{}, fmt.Errorf("color object: %w", err)
		}
		return color.RGB(ch.R, ch.G, ch.B), nil
	default:
		return color.Color{}, fmt.Errorf("color must be a hex string or rgb(), got %s", ty.FriendlyName())
	}
}

// checkAttrs rejects attributes outside known (catches typos).
func checkAttrs(body *hclsyntax.Body, known []string) error {
	for _, name := range slices.Sorted(maps.Keys(body.Attributes)) {
		if !slices.Contains(known, name) {
			return fmt.Errorf("%s: unknown attribute %q (valid: %s)", body.Attributes[name].SrcRange, name, strings.Join(known, ", "))
		}
	}
	return nil
}

// decodeAttr evaluates an optional attribute into target. It reports whether
// the attribute was present.
func decodeAttr(body *hclsyntax.Body, name string, ctx *hcl.EvalContext, target any) (bool, error) {
	attr, ok := body.Attributes[name]
	if !ok {
		return false, nil
	}
	val, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return true, fmt.Errorf("evaluating %s: %s", name, diags.Error())
	}
	if err := gocty.FromCtyValue(val, target); err != nil {
		return true, fmt.Errorf("%s: %s: %w", attr.SrcRange, name, err)
	}
	return true, nil
}

func parseNode(block *hclsyntax.Block, ctx *hcl.EvalContext) (*document.Element, error) {
	if len(block.Labels) != 1 {
		return nil, fmt.Errorf("%s: node block needs exactly one label (its id)", block.DefRange())
	}
	id := block.Labels[0]
	body := block.Body
	if err := checkAttrs(body, nodeAttrs); err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}

	kind := document.KindFrame
	if _, err := decodeAttr(body, "kind", ctx, &kind); err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}
	kind = strings.ToUpper(kind)
	e := document.NewElement(id, kind)

	var fillsMixed, strokesMixed bool
	for _, attr := range []struct {
		name   string
		target any
	}{
		{"name", &e.Name},
		{"locked", &e.Locked},
		{"read_only", &e.ReadOnly},
		{"fills_mixed", &fillsMixed},
		{"strokes_mixed", &strokesMixed},
	} {
		if _, err := decodeAttr(body, attr.name, ctx, attr.target); err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
	}

	var fills, strokes []document.Paint
	for _, child := range body.Blocks {
		switch child.Type {
		case "fill", "stroke":
			p, err := parsePaint(child, ctx)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", id, err)
			}
			if child.Type == "fill" {
				fills = append(fills, p)
			} else {
				strokes = append(strokes, p)
			}
		case "node":
			c, err := parseNode(child, ctx)
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, c)
		default:
			return nil, fmt.Errorf("%s: node %q: unknown block %q (valid: fill, stroke, node)", child.DefRange(), id, child.Type)
		}
	}

	if !document.KindHasPaints(kind) {
		if len(fills) > 0 || len(strokes) > 0 || fillsMixed || strokesMixed {
			return nil, fmt.Errorf("%s: node %q: %s nodes have no fills or strokes", block.DefRange(), id, kind)
		}
		return e, nil
	}

	if err := setList(e.Fills, fills, fillsMixed); err != nil {
		return nil, fmt.Errorf("node %q: fills: %w", id, err)
	}
	if err := setList(e.Strokes, strokes, strokesMixed); err != nil {
		return nil, fmt.Errorf("node %q: strokes: %w", id, err)
	}
	return e, nil
}

func setList(list *document.PaintList, paints []document.Paint, mixed bool) error {
	if mixed && len(paints) > 0 {
		return fmt.Errorf("a mixed list cannot also declare paints")
	}
	list.Paints = paints
	list.Mixed = mixed
	return nil
}

func parsePaint(block *hclsyntax.Block, ctx *hcl.EvalContext) (document.Paint, error) {
	body := block.Body
	if err := checkAttrs(body, paintAttrs); err != nil {
		return document.Paint{}, fmt.Errorf("%s: %w", block.Type, err)
	}

	p := document.Paint{Type: document.Solid, Opacity: 1, BlendMode: "NORMAL"}

	var typ string
	if ok, err := decodeAttr(body, "type", ctx, &typ); err != nil {
		return document.Paint{}, fmt.Errorf("%s: %w", block.Type, err)
	} else if ok {
		p.Type = document.PaintType(strings.ToUpper(typ))
	}

	if attr, ok := body.Attributes["color"]; ok {
		val, diags := attr.Expr.Value(ctx)
		if diags.HasErrors() {
			return document.Paint{}, fmt.Errorf("%s: evaluating color: %s", block.Type, diags.Error())
		}
		c, err := colorFromValue(val)
		if err != nil {
			return document.Paint{}, fmt.Errorf("%s: %s: %w", attr.SrcRange, block.Type, err)
		}
		p.Color = c
	} else if p.IsSolid() {
		return document.Paint{}, fmt.Errorf("%s: solid %s is missing required 'color' attribute", block.DefRange(), block.Type)
	}

	if _, err := decodeAttr(body, "opacity", ctx, &p.Opacity); err != nil {
		return document.Paint{}, fmt.Errorf("%s: %w", block.Type, err)
	}
	if _, err := decodeAttr(body, "blend_mode", ctx, &p.BlendMode); err != nil {
		return document.Paint{}, fmt.Errorf("%s: %w", block.Type, err)
	}
	var visible bool
	if ok, err := decodeAttr(body, "visible", ctx, &visible); err != nil {
		return document.Paint{}, fmt.Errorf("%s: %w", block.Type, err)
	} else if ok {
		p.Visible = &visible
	}
	return p, nil
}

func parseStyle(block *hclsyntax.Block, ctx *hcl.EvalContext) (document.PaintStyle, error) {
	if len(block.Labels) != 1 {
		return document.PaintStyle{}, fmt.Errorf("%s: style block needs exactly one label (its name)", block.DefRange())
	}
	s := document.PaintStyle{Name: block.Labels[0]}
	if err := checkAttrs(block.Body, styleAttrs); err != nil {
		return document.PaintStyle{}, fmt.Errorf("style %q: %w", s.Name, err)
	}
	if _, err := decodeAttr(block.Body, "id", ctx, &s.ID); err != nil {
		return document.PaintStyle{}, fmt.Errorf("style %q: %w", s.Name, err)
	}
	for _, child := range block.Body.Blocks {
		if child.Type != "paint" {
			return document.PaintStyle{}, fmt.Errorf("%s: style %q: unknown block %q (valid: paint)", child.DefRange(), s.Name, child.Type)
		}
		p, err := parsePaint(child, ctx)
		if err != nil {
			return document.PaintStyle{}, fmt.Errorf("style %q: %w", s.Name, err)
		}
		s.Paints = append(s.Paints, p)
	}
	return s, nil
}
