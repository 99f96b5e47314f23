// Package apperr defines the sentinel errors shared across the toolkit.
package apperr

import "errors"

var (
	// ErrNotFound indicates a record or number absent from the collection.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous indicates a fuzzy query matched several records without
	// a clear winner.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrFormat indicates a document that cannot be parsed: an unclosed
	// metadata block, or no record number derivable from content or path.
	ErrFormat = errors.New("invalid format")

	// ErrConfig indicates a malformed or unreadable settings file.
	ErrConfig = errors.New("invalid configuration")

	// ErrExists indicates a collection that is already initialized.
	ErrExists = errors.New("already exists")
)
