// Package parser turns raw decision-record documents into Records. Two
// serialization conventions are supported: structured documents that
// open with a YAML metadata block, and legacy heading-and-sections
// documents compatible with historical tooling. The two pipelines share
// nothing but the output type.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

const delim = "---"

var (
	// linkLineRe matches legacy status-section link lines such as
	// "Supersedes [1. Use MySQL](0001-use-mysql.md)". The bracketed
	// number is the link target; the path digits are not authoritative.
	linkLineRe = regexp.MustCompile(`^([\w\s]+?)\s+\[(\d+)\.\s+[^\]]+\]\((\d{4,})-[^)]+\.md\)$`)

	// fileNumberRe extracts the record number from a filename prefix.
	fileNumberRe = regexp.MustCompile(`^(\d{4,})-.*\.(?:md|markdown)$`)
)

// statusWords are the first words of a plain line that set the status in
// a legacy Status section. "superceded" is a misspelling found in real
// historical collections; "draft" and "rejected" come from other tools
// and stay custom.
var statusWords = map[string]bool{
	"proposed":   true,
	"accepted":   true,
	"deprecated": true,
	"superseded": true,
	"superceded": true,
	"draft":      true,
	"rejected":   true,
}

// Parse converts document text into a Record. Documents beginning with
// the metadata delimiter parse in structured mode, everything else in
// legacy mode. A record number may legitimately be absent here; callers
// that need one use ParseFile or fail at the point of use.
func Parse(data []byte) (*models.Record, error) {
	content := string(data)
	if strings.HasPrefix(content, delim+"\n") || strings.HasPrefix(content, delim+"\r\n") {
		return parseStructured(content)
	}
	return parseLegacy(content), nil
}

// ParseFile reads and parses a document, filling the record number from
// the filename prefix when the content did not establish one.
func ParseFile(path string) (*models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", path, err)
	}
	if rec.Number == 0 {
		n, err := NumberFromFilename(filepath.Base(path))
		if err != nil {
			return nil, err
		}
		rec.Number = n
	}
	rec.Path = path
	return rec, nil
}

// NumberFromFilename extracts the record number from a "NNNN-slug.md"
// style name.
func NumberFromFilename(name string) (int, error) {
	m := fileNumberRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("parser: no record number in filename %q: %w", name, apperr.ErrFormat)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("parser: bad record number in filename %q: %w", name, apperr.ErrFormat)
	}
	return n, nil
}

// parseStructured deserializes the metadata block, then scans the body
// for the three well-known sections.
func parseStructured(content string) (*models.Record, error) {
	rest := content[strings.Index(content, "\n")+1:]
	block, body, ok := splitMetadataBlock(rest)
	if !ok {
		return nil, fmt.Errorf("parser: metadata block not closed: %w", apperr.ErrFormat)
	}

	var meta struct {
		Number int    `yaml:"number"`
		Title  string `yaml:"title"`
		Date   string `yaml:"date"`
		Status string `yaml:"status"`
		Links  []struct {
			Target      int    `yaml:"target"`
			Kind        string `yaml:"kind"`
			Description string `yaml:"description"`
		} `yaml:"links"`
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, fmt.Errorf("parser: metadata block: %v: %w", err, apperr.ErrFormat)
	}

	rec := &models.Record{
		Number: meta.Number,
		Title:  meta.Title,
		Status: models.ParseStatus(meta.Status),
	}
	if meta.Date != "" {
		d, err := time.Parse("2006-01-02", meta.Date)
		if err != nil {
			return nil, fmt.Errorf("parser: bad date %q: %w", meta.Date, apperr.ErrFormat)
		}
		rec.Date = d
	}
	for _, l := range meta.Links {
		rec.AddLink(models.Link{
			Target:      l.Target,
			Kind:        models.ParseLinkKind(l.Kind),
			Description: l.Description,
		})
	}

	for name, text := range sections(body) {
		applyBodySection(rec, name, text)
	}
	return rec, nil
}

// splitMetadataBlock separates the YAML block from the body at the
// closing delimiter line. ok is false when the block is never closed.
func splitMetadataBlock(rest string) (block, body string, ok bool) {
	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == delim {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return "", "", false
}

// parseLegacy handles heading-and-sections documents. It is marker-based
// rather than a markdown walk: the historical corpus is not guaranteed
// to be clean markdown.
func parseLegacy(content string) *models.Record {
	rec := &models.Record{Status: models.StatusProposed, Date: models.Today()}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			title := strings.TrimSpace(strings.TrimPrefix(line, "# "))
			if n, rest, ok := splitNumberedTitle(title); ok {
				rec.Number = n
				rec.Title = rest
			} else {
				rec.Title = title
			}
			break
		}
	}

	if d, ok := legacyDateLine(content); ok {
		rec.Date = d
	}

	for name, text := range sections(content) {
		if name == "status" {
			applyStatusSection(rec, text)
		} else {
			applyBodySection(rec, name, text)
		}
	}
	return rec
}

// sections splits text into second-level-heading sections by the literal
// "## " marker. Names are lowercased; bodies are trimmed.
func sections(text string) map[string]string {
	out := make(map[string]string)
	var name string
	var body strings.Builder

	flush := func() {
		if name != "" {
			out[name] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			continue
		}
		if name != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return out
}

func applyBodySection(rec *models.Record, name, text string) {
	switch name {
	case "context":
		rec.Context = text
	case "decision":
		rec.Decision = text
	case "consequences":
		rec.Consequences = text
	}
}

// applyStatusSection interprets a legacy Status section line by line.
// A link line yields only a link; it never sets the status. A plain line
// whose first word is a recognized status word sets the status. All
// other lines are ignored.
func applyStatusSection(rec *models.Record, text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := linkLineRe.FindStringSubmatch(line); m != nil {
			target, err := strconv.Atoi(m[2])
			if err != nil || target <= 0 {
				continue
			}
			rec.AddLink(models.Link{
				Target: target,
				Kind:   models.ParseLinkKind(strings.TrimSpace(m[1])),
			})
			continue
		}
		if strings.ContainsAny(line, "[]") {
			continue
		}
		word := line
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			word = line[:i]
		}
		if statusWords[strings.ToLower(word)] {
			rec.Status = models.ParseStatus(word)
		}
	}
}

// splitNumberedTitle parses "7. Use Postgres" into (7, "Use Postgres").
func splitNumberedTitle(title string) (int, string, bool) {
	num, rest, found := strings.Cut(title, ". ")
	if !found {
		return 0, "", false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, "", false
	}
	return n, rest, true
}

// legacyDateLine finds a "Date: YYYY-MM-DD" line before the first
// section heading. Unparseable dates are ignored.
func legacyDateLine(content string) (time.Time, bool) {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "Date:"); ok {
			if d, err := time.Parse("2006-01-02", strings.TrimSpace(rest)); err == nil {
				return d, true
			}
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}
