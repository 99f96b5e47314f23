// Package config locates the record collection and its settings.
//
// Project settings are found by walking from a start directory toward
// the filesystem root, checking each level for a structured settings
// file, then the legacy single-line file, then the conventional default
// directory. The walk stops at a version-control root. With no project
// settings, a user-global file and finally hard defaults apply. Explicit
// overrides short-circuit or post-process the search.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
)

const (
	// DefaultDir is the conventional collection directory.
	DefaultDir = "doc/adr"

	// ProjectFile is the structured settings file name.
	ProjectFile = "raido.toml"

	// LegacyFile is the single-line settings file kept for
	// compatibility with older tooling. Its content is the collection
	// directory, relative to the file's location.
	LegacyFile = ".adr-dir"

	// vcsMarker stops the upward search.
	vcsMarker = ".git"
)

// Mode selects the serialization convention for newly written records.
type Mode string

const (
	// ModeCompat writes legacy heading-and-sections documents.
	ModeCompat Mode = "compat"

	// ModeStructured writes documents with a metadata block.
	ModeStructured Mode = "structured"
)

// Settings is the resolved {directory, serialization mode} pair the
// core consumes.
type Settings struct {
	Dir  string `toml:"dir"`
	Mode Mode   `toml:"mode"`
}

// Validate checks the settings after resolution.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Dir, validation.Required),
		validation.Field(&s.Mode, validation.Required,
			validation.In(ModeCompat, ModeStructured)),
	)
}

// Source tags where the resolved settings came from. It is surfaced in
// user-facing diagnostics only; the core does not branch on it.
type Source string

const (
	SourceOverrideFile Source = "override-file"
	SourceProjectFile  Source = "project-file"
	SourceLegacyFile   Source = "legacy-file"
	SourceDefaultDir   Source = "default-dir"
	SourceGlobalFile   Source = "global-file"
	SourceDefaults     Source = "defaults"
)

// Resolved carries the settings, the directory they anchor to (relative
// Dir values resolve against it), and the source tag.
type Resolved struct {
	Settings
	Root   string
	Source Source
}

// Path returns the absolute collection directory.
func (r *Resolved) Path() string {
	if filepath.IsAbs(r.Dir) {
		return filepath.Clean(r.Dir)
	}
	return filepath.Join(r.Root, r.Dir)
}

// Options controls resolution.
type Options struct {
	// StartDir is where the upward search begins. Empty means the
	// current working directory.
	StartDir string

	// FileOverride points directly at a settings file and
	// short-circuits the search entirely.
	FileOverride string

	// DirOverride replaces the collection directory after resolution.
	// It always wins.
	DirOverride string

	// GlobalFile replaces the default user-global settings path.
	// Used by tests.
	GlobalFile string
}

// Resolve locates the collection settings per the search order.
func Resolve(opts Options) (*Resolved, error) {
	start := opts.StartDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: getwd: %w", err)
		}
		start = wd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("config: resolve start dir: %w", err)
	}

	res, err := resolve(start, opts)
	if err != nil {
		return nil, err
	}

	if opts.DirOverride != "" {
		res.Dir = opts.DirOverride
	}
	if res.Mode == "" {
		res.Mode = ModeCompat
	}
	if err := res.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("config: %v: %w", err, apperr.ErrConfig)
	}
	return res, nil
}

func resolve(start string, opts Options) (*Resolved, error) {
	if opts.FileOverride != "" {
		s, err := loadTOML(opts.FileOverride)
		if err != nil {
			return nil, err
		}
		return &Resolved{
			Settings: *s,
			Root:     filepath.Dir(opts.FileOverride),
			Source:   SourceOverrideFile,
		}, nil
	}

	for dir := start; ; dir = filepath.Dir(dir) {
		if res, err := probe(dir); err != nil || res != nil {
			return res, err
		}
		if _, err := os.Stat(filepath.Join(dir, vcsMarker)); err == nil {
			break
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}

	global := opts.GlobalFile
	if global == "" {
		global = defaultGlobalFile()
	}
	if global != "" {
		if _, err := os.Stat(global); err == nil {
			s, err := loadTOML(global)
			if err != nil {
				return nil, err
			}
			return &Resolved{Settings: *s, Root: start, Source: SourceGlobalFile}, nil
		}
	}

	return &Resolved{
		Settings: Settings{Dir: DefaultDir, Mode: ModeCompat},
		Root:     start,
		Source:   SourceDefaults,
	}, nil
}

// probe checks one directory level for project settings.
func probe(dir string) (*Resolved, error) {
	project := filepath.Join(dir, ProjectFile)
	if _, err := os.Stat(project); err == nil {
		s, err := loadTOML(project)
		if err != nil {
			return nil, err
		}
		return &Resolved{Settings: *s, Root: dir, Source: SourceProjectFile}, nil
	}

	legacy := filepath.Join(dir, LegacyFile)
	if data, err := os.ReadFile(legacy); err == nil {
		line := strings.TrimSpace(string(data))
		if line == "" {
			return nil, fmt.Errorf("config: %s is empty: %w", legacy, apperr.ErrConfig)
		}
		return &Resolved{
			Settings: Settings{Dir: line, Mode: ModeCompat},
			Root:     dir,
			Source:   SourceLegacyFile,
		}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", legacy, err)
	}

	if info, err := os.Stat(filepath.Join(dir, DefaultDir)); err == nil && info.IsDir() {
		return &Resolved{
			Settings: Settings{Dir: DefaultDir, Mode: ModeCompat},
			Root:     dir,
			Source:   SourceDefaultDir,
		}, nil
	}

	return nil, nil
}

// loadTOML reads a settings file with environment variable expansion.
func loadTOML(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var s Settings
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %v: %w", path, err, apperr.ErrConfig)
	}
	if s.Dir == "" {
		s.Dir = DefaultDir
	}
	if s.Mode == "" {
		s.Mode = ModeCompat
	}
	return &s, nil
}

// defaultGlobalFile is the user-global settings path, empty when the
// user config dir cannot be determined.
func defaultGlobalFile() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "raido", "config.toml")
}

// Save writes settings next to root: the legacy single-line file in
// compat mode, the structured file otherwise.
func Save(root string, s Settings) error {
	if s.Mode == ModeStructured {
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(s); err != nil {
			return fmt.Errorf("config: encode settings: %w", err)
		}
		path := filepath.Join(root, ProjectFile)
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("config: write %s: %w", path, err)
		}
		return nil
	}
	path := filepath.Join(root, LegacyFile)
	if err := os.WriteFile(path, []byte(s.Dir+"\n"), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
