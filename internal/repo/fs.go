package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWrite writes content via a temp file in the target directory:
// write, fsync, close, rename. A rename over an existing file replaces
// it, which is exactly the last-write-wins policy for record files.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("repo: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("repo: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("repo: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repo: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("repo: rename: %w", err)
	}
	success = true
	return nil
}

// isRecordName reports whether a directory entry looks like a record
// file: starts with an ASCII digit and carries a recognized extension.
func isRecordName(name string) bool {
	if name == "" || name[0] < '0' || name[0] > '9' {
		return false
	}
	switch filepath.Ext(name) {
	case ".md", ".markdown":
		return true
	}
	return false
}
