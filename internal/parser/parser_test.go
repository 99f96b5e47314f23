package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

const legacyDoc = `# 1. Use Rust

Date: 2024-01-15

## Status

Accepted

## Context

We need a systems programming language.

## Decision

We will use Rust.

## Consequences

We get memory safety without garbage collection.
`

func TestParse_Legacy(t *testing.T) {
	rec, err := Parse([]byte(legacyDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Number != 1 {
		t.Errorf("number = %d, want 1", rec.Number)
	}
	if rec.Title != "Use Rust" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Status != models.StatusAccepted {
		t.Errorf("status = %v", rec.Status)
	}
	if models.FormatDate(rec.Date) != "2024-01-15" {
		t.Errorf("date = %v", rec.Date)
	}
	if rec.Context != "We need a systems programming language." {
		t.Errorf("context = %q", rec.Context)
	}
	if rec.Decision != "We will use Rust." {
		t.Errorf("decision = %q", rec.Decision)
	}
}

func TestParse_LegacyTitleWithoutNumber(t *testing.T) {
	rec, err := Parse([]byte("# Use Rust\n\n## Status\n\nProposed\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Number != 0 {
		t.Errorf("number = %d, want 0", rec.Number)
	}
	if rec.Title != "Use Rust" {
		t.Errorf("title = %q", rec.Title)
	}
}

func TestParse_LegacyStatusLinks(t *testing.T) {
	doc := `# 5. Combined Decision

## Status

Accepted

Supersedes [1. First](0001-first.md)
Supersedes [2. Second](0002-second.md)
Amends [3. Third](0003-third.md)
Clarifies [4. Fourth](0004-fourth.md)

## Context

Context.
`
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Status != models.StatusAccepted {
		t.Errorf("status = %v", rec.Status)
	}
	if len(rec.Links) != 4 {
		t.Fatalf("len(links) = %d, want 4", len(rec.Links))
	}
	want := []struct {
		target int
		kind   models.LinkKind
	}{
		{1, models.KindSupersedes},
		{2, models.KindSupersedes},
		{3, models.KindAmends},
		{4, models.CustomKind("Clarifies")},
	}
	for i, w := range want {
		if rec.Links[i].Target != w.target || rec.Links[i].Kind != w.kind {
			t.Errorf("links[%d] = %+v, want %+v", i, rec.Links[i], w)
		}
	}
}

func TestParse_LegacyLinkLineDoesNotSetStatus(t *testing.T) {
	doc := `# 1. Old Decision

## Status

Superseded by [2. X](0002-x.md)

## Context

Context.
`
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// A pure link line adds only the link; status keeps its default.
	if rec.Status != models.StatusProposed {
		t.Errorf("status = %v, want default Proposed", rec.Status)
	}
	if len(rec.Links) != 1 || rec.Links[0].Target != 2 || rec.Links[0].Kind != models.KindSupersededBy {
		t.Errorf("links = %+v", rec.Links)
	}
}

func TestParse_LegacyLinkTargetFromBrackets(t *testing.T) {
	// The bracketed number wins even when the path digits disagree.
	doc := "# 3. X\n\n## Status\n\nSupersedes [7. Y](0009-y.md)\n"
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Links) != 1 || rec.Links[0].Target != 7 {
		t.Errorf("links = %+v, want target 7", rec.Links)
	}
}

func TestParse_LegacyMisspelledStatus(t *testing.T) {
	rec, err := Parse([]byte("# 1. X\n\n## Status\n\nSuperceded\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Status != models.StatusSuperseded {
		t.Errorf("status = %v, want canonical Superseded", rec.Status)
	}
	if rec.Status.String() != "Superseded" {
		t.Errorf("status renders %q", rec.Status.String())
	}
}

func TestParse_LegacyCustomStatusWord(t *testing.T) {
	rec, err := Parse([]byte("# 1. X\n\n## Status\n\nDraft\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.Status.IsCustom() || rec.Status.String() != "Draft" {
		t.Errorf("status = %v, want verbatim Draft", rec.Status)
	}
}

func TestParse_LegacyIgnoresProse(t *testing.T) {
	doc := `# 1. X

## Status

Accepted

This line is commentary and changes nothing.
Pending review by the platform group.
`
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Status != models.StatusAccepted {
		t.Errorf("status = %v", rec.Status)
	}
	if len(rec.Links) != 0 {
		t.Errorf("links = %+v", rec.Links)
	}
}

func TestParse_LegacyCaseInsensitiveSections(t *testing.T) {
	doc := "# 1. X\n\n## STATUS\n\nAccepted\n\n## CONTEXT\n\nCtx.\n"
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Status != models.StatusAccepted || rec.Context != "Ctx." {
		t.Errorf("status = %v, context = %q", rec.Status, rec.Context)
	}
}

func TestParse_Empty(t *testing.T) {
	rec, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Number != 0 || rec.Title != "" {
		t.Errorf("rec = %+v", rec)
	}
}

const structuredDoc = `---
number: 2
title: Use PostgreSQL
date: 2024-01-15
status: accepted
links:
  - target: 1
    kind: supersedes
---

## Context

We need a database.

## Decision

We will use PostgreSQL.

## Consequences

We get ACID compliance.
`

func TestParse_Structured(t *testing.T) {
	rec, err := Parse([]byte(structuredDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Number != 2 || rec.Title != "Use PostgreSQL" {
		t.Errorf("rec = %+v", rec)
	}
	if rec.Status != models.StatusAccepted {
		t.Errorf("status = %v", rec.Status)
	}
	if models.FormatDate(rec.Date) != "2024-01-15" {
		t.Errorf("date = %v", rec.Date)
	}
	if len(rec.Links) != 1 || rec.Links[0].Target != 1 || rec.Links[0].Kind != models.KindSupersedes {
		t.Errorf("links = %+v", rec.Links)
	}
	if rec.Context != "We need a database." {
		t.Errorf("context = %q", rec.Context)
	}
	if rec.Consequences != "We get ACID compliance." {
		t.Errorf("consequences = %q", rec.Consequences)
	}
}

func TestParse_StructuredUnclosedBlock(t *testing.T) {
	_, err := Parse([]byte("---\nnumber: 1\ntitle: X\n"))
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestParse_StructuredBadYAML(t *testing.T) {
	_, err := Parse([]byte("---\n: bad: yaml: {{{\n---\nbody\n"))
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestParse_StructuredCustomStatusVerbatim(t *testing.T) {
	doc := "---\nnumber: 1\ntitle: X\nstatus: Under Review\n---\n"
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.Status.IsCustom() || rec.Status.String() != "Under Review" {
		t.Errorf("status = %v", rec.Status)
	}
}

func TestParseFile_NumberFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0042-some-decision.md")
	doc := "# Some Decision\n\n## Status\n\nProposed\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if rec.Number != 42 {
		t.Errorf("number = %d, want 42", rec.Number)
	}
	if rec.Path != path {
		t.Errorf("path = %q", rec.Path)
	}
}

func TestParseFile_HeadingNumberWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0042-renamed.md")
	if err := os.WriteFile(path, []byte("# 7. Real Number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if rec.Number != 7 {
		t.Errorf("number = %d, want 7 from heading", rec.Number)
	}
}

func TestParseFile_NoNumberAnywhere(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# No Number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(path)
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestNumberFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"0001-use-rust.md", 1, true},
		{"0042-complex-decision.md", 42, true},
		{"9999-max.md", 9999, true},
		{"12345-wide.md", 12345, true},
		{"not-a-record.md", 0, false},
		{"1-too-few-digits.md", 0, false},
	}
	for _, c := range cases {
		n, err := NumberFromFilename(c.name)
		if c.ok && (err != nil || n != c.want) {
			t.Errorf("NumberFromFilename(%q) = %d, %v; want %d", c.name, n, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("NumberFromFilename(%q) succeeded, want error", c.name)
		}
	}
}
