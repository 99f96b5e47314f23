// Package testutil provides shared test helpers for setting up record
// collections.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/config"
	"github.com/starford/raido/internal/repo"
)

// TempCollection creates an empty collection directory in a temp root
// and returns a repository over it.
func TempCollection(t *testing.T) *repo.Repository {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "doc", "adr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return repo.Open(&config.Resolved{
		Settings: config.Settings{Dir: "doc/adr", Mode: config.ModeCompat},
		Root:     root,
		Source:   config.SourceDefaults,
	})
}

// WriteDoc drops a raw document into the collection directory.
func WriteDoc(t *testing.T, r *repo.Repository, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(r.Dir(), name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// LegacyDoc builds a minimal legacy document body.
func LegacyDoc(title, status string) string {
	return "# " + title + "\n\n## Status\n\n" + status +
		"\n\n## Context\n\nContext.\n\n## Decision\n\nDecision.\n\n## Consequences\n\nConsequences.\n"
}
