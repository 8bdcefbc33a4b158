package format

import (
	"regexp"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/jsvensson/colormerge/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

var multipleBlankLines = regexp.MustCompile(`\n{3,}`)
var blankLineAfterOpenBrace = regexp.MustCompile(`\{\n\s*\n`)
var blankLineBeforeCloseBrace = regexp.MustCompile(`\n\s*\n(\s*\})`)

// Format takes HCL source content and returns it formatted according to
// HCL canonical style rules. It uses hclwrite.Format which handles
// indentation, spacing, and newline normalization.
//
// The formatter works even on partial/invalid HCL, so it cannot fail.
func Format(content string) string {
	formatted := hclwrite.Format([]byte(content))
	// Collapse multiple consecutive blank lines into a single blank line.
	collapsed := multipleBlankLines.ReplaceAllString(string(formatted), "\n\n")
	// Remove blank lines immediately after opening braces.
	collapsed = blankLineAfterOpenBrace.ReplaceAllString(collapsed, "{\n")
	// Remove blank lines immediately before closing braces.
	collapsed = blankLineBeforeCloseBrace.ReplaceAllString(collapsed, "\n${1}")
	return collapsed
}

// Source validates src as a design document and returns it formatted. Content
// the parser rejects is returned as an error instead of being rewritten.
func Source(src []byte, filename string) ([]byte, error) {
	if _, err := parser.ParseSource(src, filename); err != nil {
		return nil, err
	}
	return []byte(Format(string(src))), nil
}

// Write renders doc as HCL that the parser reads back into the same document.
// Swatch references are not kept; every color is written out. Attributes at
// their default value are omitted.
func Write(doc *document.Memory) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	if name := doc.Name(); name != "" {
		meta := body.AppendNewBlock("document", nil)
		meta.Body().SetAttributeValue("name", cty.StringVal(name))
		body.AppendNewline()
	}

	for _, e := range doc.Roots() {
		writeNode(body, e)
		body.AppendNewline()
	}

	for _, s := range doc.Styles() {
		block := body.AppendNewBlock("style", []string{s.Name})
		sb := block.Body()
		sb.SetAttributeValue("id", cty.StringVal(s.ID))
		for _, p := range s.Paints {
			writePaint(sb, "paint", p)
		}
		body.AppendNewline()
	}

	return []byte(Format(string(f.Bytes())))
}

func writeNode(parent *hclwrite.Body, e *document.Element) {
	block := parent.AppendNewBlock("node", []string{e.ID})
	body := block.Body()

	if e.Name != e.ID {
		body.SetAttributeValue("name", cty.StringVal(e.Name))
	}
	if e.Kind != document.KindFrame {
		body.SetAttributeValue("kind", cty.StringVal(e.Kind))
	}
	if e.Locked {
		body.SetAttributeValue("locked", cty.True)
	}
	if e.ReadOnly {
		body.SetAttributeValue("read_only", cty.True)
	}
	if e.Fills != nil && e.Fills.Mixed {
		body.SetAttributeValue("fills_mixed", cty.True)
	}
	if e.Strokes != nil && e.Strokes.Mixed {
		body.SetAttributeValue("strokes_mixed", cty.True)
	}

	if e.Fills != nil {
		for _, p := range e.Fills.Paints {
			writePaint(body, "fill", p)
		}
	}
	if e.Strokes != nil {
		for _, p := range e.Strokes.Paints {
			writePaint(body, "stroke", p)
		}
	}
	for _, c := range e.Children {
		writeNode(body, c)
	}
}

func writePaint(parent *hclwrite.Body, blockType string, p document.Paint) {
	body := parent.AppendNewBlock(blockType, nil).Body()

	if !p.IsSolid() {
		body.SetAttributeValue("type", cty.StringVal(string(p.Type)))
	}
	if p.IsSolid() || p.Color != (color.Color{}) {
		body.SetAttributeRaw("color", colorTokens(p.Color))
	}
	if p.Opacity != 1 {
		body.SetAttributeValue("opacity", cty.NumberFloatVal(p.Opacity))
	}
	if p.BlendMode != "" && p.BlendMode != "NORMAL" {
		body.SetAttributeValue("blend_mode", cty.StringVal(p.BlendMode))
	}
	if p.Visible != nil {
		body.SetAttributeValue("visible", cty.BoolVal(*p.Visible))
	}
}

// colorTokens writes a hex string when the color is exactly a byte triple and
// an rgb() call otherwise.
func colorTokens(c color.Color) hclwrite.Tokens {
	if c.Exact() {
		return hclwrite.TokensForValue(cty.StringVal(c.Hex()))
	}
	return hclwrite.TokensForFunctionCall("rgb",
		hclwrite.TokensForValue(cty.NumberFloatVal(c.R)),
		hclwrite.TokensForValue(cty.NumberFloatVal(c.G)),
		hclwrite.TokensForValue(cty.NumberFloatVal(c.B)),
	)
}
