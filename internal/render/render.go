// Package render turns Records back into document text. Compat mode
// emits the classic heading-and-sections layout understood by historical
// tooling; structured mode emits a YAML metadata block followed by the
// body sections. Rendered link lines use placeholder titles so that the
// line survives target renames; the parser reads the target number from
// the brackets, not the path.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

// compatTemplate is the default document layout for compat mode.
const compatTemplate = `# {{.Number}}. {{.Title}}
{{if .Date}}
Date: {{.Date}}
{{end}}
## Status

{{.Status}}
{{range .Links}}
{{.}}
{{end}}
## Context

{{.Context}}

## Decision

{{.Decision}}

## Consequences

{{.Consequences}}
`

// Engine renders records. The zero value is not usable; construct with
// New.
type Engine struct {
	compat *template.Template
}

// New returns an engine using the built-in compat layout.
func New() *Engine {
	return &Engine{
		compat: template.Must(template.New("compat").Parse(compatTemplate)),
	}
}

// LoadTemplate replaces the compat layout with a custom template file.
func (e *Engine) LoadTemplate(path string) error {
	t, err := template.ParseFiles(path)
	if err != nil {
		return fmt.Errorf("render: load template %s: %w", path, err)
	}
	e.compat = t
	return nil
}

// Render produces document text in the requested serialization mode.
func (e *Engine) Render(rec *models.Record, structured bool) (string, error) {
	if structured {
		return e.Structured(rec)
	}
	return e.Compat(rec)
}

// Compat renders the legacy heading-and-sections layout.
func (e *Engine) Compat(rec *models.Record) (string, error) {
	links := make([]string, len(rec.Links))
	for i, l := range rec.Links {
		links[i] = LinkLine(l)
	}
	data := struct {
		Number       int
		Title        string
		Date         string
		Status       string
		Links        []string
		Context      string
		Decision     string
		Consequences string
	}{
		Number:       rec.Number,
		Title:        rec.Title,
		Date:         models.FormatDate(rec.Date),
		Status:       rec.Status.String(),
		Links:        links,
		Context:      rec.Context,
		Decision:     rec.Decision,
		Consequences: rec.Consequences,
	}
	var b strings.Builder
	if err := e.compat.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return b.String(), nil
}

// Structured renders the metadata block plus body sections.
func (e *Engine) Structured(rec *models.Record) (string, error) {
	type fmLink struct {
		Target      int    `yaml:"target"`
		Kind        string `yaml:"kind"`
		Description string `yaml:"description,omitempty"`
	}
	meta := struct {
		Number int      `yaml:"number"`
		Title  string   `yaml:"title"`
		Date   string   `yaml:"date,omitempty"`
		Status string   `yaml:"status"`
		Links  []fmLink `yaml:"links,omitempty"`
	}{
		Number: rec.Number,
		Title:  rec.Title,
		Date:   models.FormatDate(rec.Date),
		Status: statusText(rec.Status),
	}
	for _, l := range rec.Links {
		meta.Links = append(meta.Links, fmLink{
			Target:      l.Target,
			Kind:        kindText(l.Kind),
			Description: l.Description,
		})
	}

	block, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("render: metadata block: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(block)
	b.WriteString("---\n")
	for _, s := range []struct{ name, text string }{
		{"Context", rec.Context},
		{"Decision", rec.Decision},
		{"Consequences", rec.Consequences},
	} {
		b.WriteString("\n## ")
		b.WriteString(s.name)
		b.WriteString("\n\n")
		b.WriteString(s.text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// LinkLine renders one status-section link line, e.g.
// "Supersedes [1. ...](0001-....md)".
func LinkLine(l models.Link) string {
	return fmt.Sprintf("%s [%d. ...](%04d-....md)", l.Kind, l.Target, l.Target)
}

// statusText is the metadata-block spelling: lower-case for canonical
// statuses, verbatim for custom ones.
func statusText(s models.Status) string {
	if s.IsCustom() {
		return s.Custom()
	}
	return strings.ToLower(s.String())
}

// kindText is the metadata-block spelling of a link kind.
func kindText(k models.LinkKind) string {
	if k.IsCustom() {
		return k.String()
	}
	return strings.ToLower(strings.ReplaceAll(k.String(), " ", "-"))
}
