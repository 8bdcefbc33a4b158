// Package report renders session responses for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/config"
	"github.com/jsvensson/colormerge/internal/message"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

const defaultTemplates = `
{{- define "scan-result" -}}
{{- if not .Groups -}}
No solid colors found.
{{ else -}}
{{ len .Groups }} group(s) at threshold {{ .Threshold }}
{{ range $i, $g := .Groups }}
[{{ $i }}] {{ swatch $g.Representative }}#{{ $g.Representative }}  {{ $g.TotalCount }} use(s)
{{ range $g.Members }}    {{ swatch .Hex }}#{{ .Hex }} {{ pad .Count 5 }}
{{ end -}}
{{ end -}}
{{ end -}}
{{ end -}}

{{- define "merge-done" -}}
Changed {{ .Changed }} slot(s)
{{- if .StyleCreated }}, created style {{ printf "%q" .StyleName }}{{ end }}
{{ end -}}

{{- define "error" -}}
error: {{ .Message }}
{{ end -}}
`

// Renderer writes responses in one of the config formats.
type Renderer struct {
	Format string
	// TemplateFile optionally redefines the text templates "scan-result",
	// "merge-done" and "error".
	TemplateFile string
	// NoColor drops the color swatches from text output even on a terminal.
	NoColor bool
	// Profile overrides the color profile detected from the output writer.
	Profile *termenv.Profile
}

// Render writes resp to w.
func (r *Renderer) Render(w io.Writer, resp message.Response) error {
	switch r.Format {
	case config.FormatJSON:
		return renderJSON(w, resp)
	case config.FormatYAML:
		return renderYAML(w, resp)
	case config.FormatText, "":
		return r.renderText(w, resp)
	default:
		return fmt.Errorf("unsupported format %q (valid: %s)", r.Format, strings.Join(config.Formats, ", "))
	}
}

func renderJSON(w io.Writer, resp message.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// yaml.v3 inlines embedded structs but not embedded pointers, so each body
// gets its own wrapper.
type (
	yamlScanResult struct {
		Type               string `yaml:"type"`
		message.ScanResult `yaml:",inline"`
	}
	yamlMergeDone struct {
		Type              string `yaml:"type"`
		message.MergeDone `yaml:",inline"`
	}
	yamlError struct {
		Type          string `yaml:"type"`
		message.Error `yaml:",inline"`
	}
)

func yamlBody(resp message.Response) (any, error) {
	switch {
	case resp.ScanResult != nil:
		return yamlScanResult{Type: resp.Type, ScanResult: *resp.ScanResult}, nil
	case resp.MergeDone != nil:
		return yamlMergeDone{Type: resp.Type, MergeDone: *resp.MergeDone}, nil
	case resp.Error != nil:
		return yamlError{Type: resp.Type, Error: *resp.Error}, nil
	}
	return nil, fmt.Errorf("response %q has no body", resp.Type)
}

func renderYAML(w io.Writer, resp message.Response) error {
	body, err := yamlBody(resp)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(body); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

func (r *Renderer) renderText(w io.Writer, resp message.Response) error {
	tmpl, err := template.New("report").Funcs(r.funcMap(r.styles(w))).Parse(defaultTemplates)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	if r.TemplateFile != "" {
		if tmpl, err = tmpl.ParseFiles(r.TemplateFile); err != nil {
			return fmt.Errorf("parsing template %s: %w", r.TemplateFile, err)
		}
	}

	var data any
	switch {
	case resp.ScanResult != nil:
		data = resp.ScanResult
	case resp.MergeDone != nil:
		data = resp.MergeDone
	case resp.Error != nil:
		data = resp.Error
	default:
		return fmt.Errorf("response %q has no body", resp.Type)
	}

	if err := tmpl.ExecuteTemplate(w, resp.Type, data); err != nil {
		return fmt.Errorf("executing template %s: %w", resp.Type, err)
	}
	return nil
}

// styles returns a lipgloss renderer for w. Writers that are not a color
// terminal get the Ascii profile, which renders no swatches.
func (r *Renderer) styles(w io.Writer) *lipgloss.Renderer {
	lr := lipgloss.NewRenderer(w)
	switch {
	case r.NoColor:
		lr.SetColorProfile(termenv.Ascii)
	case r.Profile != nil:
		lr.SetColorProfile(*r.Profile)
	}
	return lr
}

func (r *Renderer) funcMap(lr *lipgloss.Renderer) template.FuncMap {
	return template.FuncMap{
		"swatch": func(hex string) string {
			return Swatch(lr, hex)
		},
		"pad": func(v any, width int) string {
			return fmt.Sprintf("%*v", width, v)
		},
	}
}

// Swatch returns a two-cell block in the given color followed by a space.
// It is empty for invalid keys and when lr has no color profile.
func Swatch(lr *lipgloss.Renderer, hex string) string {
	if lr.ColorProfile() == termenv.Ascii {
		return ""
	}
	c, err := color.ParseKey(hex)
	if err != nil {
		return ""
	}
	return lr.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ") + " "
}
