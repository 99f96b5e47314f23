package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// noGlobal keeps the host's real global settings out of tests.
func noGlobal(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent", "config.toml")
}

func TestResolve_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ProjectFile), "dir = \"decisions\"\nmode = \"structured\"\n")

	res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceProjectFile {
		t.Errorf("source = %v", res.Source)
	}
	if res.Dir != "decisions" || res.Mode != ModeStructured {
		t.Errorf("settings = %+v", res.Settings)
	}
	if res.Path() != filepath.Join(dir, "decisions") {
		t.Errorf("path = %q", res.Path())
	}
}

func TestResolve_LegacyFile(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, LegacyFile), "docs/adr\n")

	res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceLegacyFile {
		t.Errorf("source = %v", res.Source)
	}
	if res.Dir != "docs/adr" || res.Mode != ModeCompat {
		t.Errorf("settings = %+v", res.Settings)
	}
}

func TestResolve_ProjectFileBeatsLegacy(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ProjectFile), "dir = \"a\"\n")
	write(t, filepath.Join(dir, LegacyFile), "b\n")

	res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceProjectFile || res.Dir != "a" {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_DefaultDirDetection(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, DefaultDir), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceDefaultDir || res.Dir != DefaultDir {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_WalksUpward(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, LegacyFile), "decisions\n")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(Options{StartDir: nested, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceLegacyFile {
		t.Errorf("source = %v", res.Source)
	}
	if res.Root != root {
		t.Errorf("root = %q, want %q", res.Root, root)
	}
}

func TestResolve_StopsAtVCSRoot(t *testing.T) {
	outer := t.TempDir()
	write(t, filepath.Join(outer, LegacyFile), "outer-decisions\n")
	repo := filepath.Join(outer, "repo")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(repo, "src")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(Options{StartDir: nested, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The settings above the repository root must not leak in.
	if res.Source != SourceDefaults {
		t.Errorf("source = %v, want defaults", res.Source)
	}
}

func TestResolve_GlobalFallback(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(t.TempDir(), "config.toml")
	write(t, global, "dir = \"global-decisions\"\nmode = \"structured\"\n")

	res, err := Resolve(Options{StartDir: dir, GlobalFile: global})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceGlobalFile || res.Dir != "global-decisions" {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_Defaults(t *testing.T) {
	res, err := Resolve(Options{StartDir: t.TempDir(), GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceDefaults || res.Dir != DefaultDir || res.Mode != ModeCompat {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_FileOverrideShortCircuits(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, LegacyFile), "ignored\n")
	override := filepath.Join(t.TempDir(), "special.toml")
	write(t, override, "dir = \"special\"\nmode = \"structured\"\n")

	res, err := Resolve(Options{StartDir: dir, FileOverride: override, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceOverrideFile || res.Dir != "special" {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_DirOverrideWinsLast(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ProjectFile), "dir = \"from-file\"\n")

	res, err := Resolve(Options{StartDir: dir, DirOverride: "forced", GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Dir != "forced" {
		t.Errorf("dir = %q, want override", res.Dir)
	}
	if res.Source != SourceProjectFile {
		t.Errorf("source = %v, want original source tag", res.Source)
	}
}

func TestResolve_MalformedTOML(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ProjectFile), "dir = [not toml")

	_, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestResolve_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ProjectFile), "dir = \"x\"\nmode = \"yaml\"\n")

	_, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestResolve_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RAIDO_TEST_DIR", "from-env")
	write(t, filepath.Join(dir, ProjectFile), "dir = \"${RAIDO_TEST_DIR}\"\n")

	res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Dir != "from-env" {
		t.Errorf("dir = %q", res.Dir)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Run("compat", func(t *testing.T) {
		dir := t.TempDir()
		if err := Save(dir, Settings{Dir: "my/adrs", Mode: ModeCompat}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, LegacyFile))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "my/adrs\n" {
			t.Errorf("legacy file = %q", data)
		}
	})

	t.Run("structured", func(t *testing.T) {
		dir := t.TempDir()
		if err := Save(dir, Settings{Dir: "decisions", Mode: ModeStructured}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		res, err := Resolve(Options{StartDir: dir, GlobalFile: noGlobal(t)})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Dir != "decisions" || res.Mode != ModeStructured {
			t.Errorf("settings = %+v", res.Settings)
		}
	})
}
