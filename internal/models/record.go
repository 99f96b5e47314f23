// Package models defines the domain types for Raido: decision records,
// typed links between them, and the filename convention that anchors a
// record to its file.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Extension is the file extension for rendered records.
const Extension = ".md"

// Record represents one architectural decision record.
type Record struct {
	// Number identifies the record within its collection and anchors
	// the filename. Zero means "not yet assigned".
	Number int

	// Title is the free-form decision title, without the number prefix.
	Title string

	// Date is the decision date. The zero value means no date was set.
	Date time.Time

	// Status is the current lifecycle status.
	Status Status

	// Links are typed references to other records, in insertion order.
	// The model does not deduplicate; that is a doctor concern.
	Links []Link

	Context      string
	Decision     string
	Consequences string

	// Path is the file the record was loaded from, empty for records
	// not yet persisted. It is a weak reference: deleting the file does
	// not invalidate the in-memory record.
	Path string
}

// New constructs a record with defaulted fields: today's date and
// Proposed status.
func New(number int, title string) *Record {
	return &Record{
		Number: number,
		Title:  title,
		Date:   Today(),
		Status: StatusProposed,
	}
}

// Filename returns the canonical file name for this record,
// e.g. "0007-use-postgresql.md".
func (r *Record) Filename() string {
	return Filename(r.Number, r.Title)
}

// FullTitle returns the numbered display title, e.g. "7. Use PostgreSQL".
func (r *Record) FullTitle() string {
	return fmt.Sprintf("%d. %s", r.Number, r.Title)
}

// AddLink appends a link; duplicates are allowed.
func (r *Record) AddLink(l Link) {
	r.Links = append(r.Links, l)
}

// HasLink reports whether an identical link (target and kind) is
// already present.
func (r *Record) HasLink(target int, kind LinkKind) bool {
	for _, l := range r.Links {
		if l.Target == target && l.Kind == kind {
			return true
		}
	}
	return false
}

// Link is a directed, typed relationship to another record by number.
// The target is not checked for existence at construction time.
type Link struct {
	Target      int
	Kind        LinkKind
	Description string
}

// Status is a record lifecycle status: one of the canonical values or a
// verbatim custom string for historical vocabularies.
type Status struct {
	canonical statusKind
	custom    string
}

type statusKind int

const (
	statusCustom statusKind = iota
	statusProposed
	statusAccepted
	statusDeprecated
	statusSuperseded
)

// Canonical statuses.
var (
	StatusProposed   = Status{canonical: statusProposed}
	StatusAccepted   = Status{canonical: statusAccepted}
	StatusDeprecated = Status{canonical: statusDeprecated}
	StatusSuperseded = Status{canonical: statusSuperseded}
)

// CustomStatus wraps a non-canonical status string verbatim.
func CustomStatus(s string) Status {
	return Status{canonical: statusCustom, custom: s}
}

// ParseStatus maps text to a status. Canonical names match
// case-insensitively; "superceded" (a common historical misspelling) is
// folded into Superseded. Anything else becomes a Custom status carrying
// the input verbatim. ParseStatus never fails.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proposed":
		return StatusProposed
	case "accepted":
		return StatusAccepted
	case "deprecated":
		return StatusDeprecated
	case "superseded", "superceded":
		return StatusSuperseded
	default:
		return CustomStatus(s)
	}
}

// IsCustom reports whether the status is a non-canonical value.
func (s Status) IsCustom() bool { return s.canonical == statusCustom }

// Custom returns the verbatim text of a custom status, empty otherwise.
func (s Status) Custom() string { return s.custom }

// IsZero reports whether the status is blank: the unset zero value or a
// custom status with no visible text.
func (s Status) IsZero() bool {
	return s.canonical == statusCustom && strings.TrimSpace(s.custom) == ""
}

func (s Status) String() string {
	switch s.canonical {
	case statusProposed:
		return "Proposed"
	case statusAccepted:
		return "Accepted"
	case statusDeprecated:
		return "Deprecated"
	case statusSuperseded:
		return "Superseded"
	default:
		return s.custom
	}
}

// LinkKind is a link relationship type: canonical or custom verbatim.
type LinkKind struct {
	canonical linkKindKind
	custom    string
}

type linkKindKind int

const (
	linkCustom linkKindKind = iota
	linkSupersedes
	linkSupersededBy
	linkAmends
	linkAmendedBy
	linkRelatesTo
)

// Canonical link kinds.
var (
	KindSupersedes   = LinkKind{canonical: linkSupersedes}
	KindSupersededBy = LinkKind{canonical: linkSupersededBy}
	KindAmends       = LinkKind{canonical: linkAmends}
	KindAmendedBy    = LinkKind{canonical: linkAmendedBy}
	KindRelatesTo    = LinkKind{canonical: linkRelatesTo}
)

// CustomKind wraps a non-canonical link kind verbatim.
func CustomKind(s string) LinkKind {
	return LinkKind{canonical: linkCustom, custom: s}
}

// ParseLinkKind maps text to a link kind, case-insensitively, accepting
// both spaced and hyphenated spellings. Unknown verbs become Custom.
// ParseLinkKind never fails.
func ParseLinkKind(s string) LinkKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supersedes":
		return KindSupersedes
	case "superseded by", "superseded-by", "supersededby":
		return KindSupersededBy
	case "amends":
		return KindAmends
	case "amended by", "amended-by", "amendedby":
		return KindAmendedBy
	case "relates to", "relates-to", "relatesto":
		return KindRelatesTo
	default:
		return CustomKind(s)
	}
}

// IsCustom reports whether the kind is a non-canonical value.
func (k LinkKind) IsCustom() bool { return k.canonical == linkCustom }

func (k LinkKind) String() string {
	switch k.canonical {
	case linkSupersedes:
		return "Supersedes"
	case linkSupersededBy:
		return "Superseded by"
	case linkAmends:
		return "Amends"
	case linkAmendedBy:
		return "Amended by"
	case linkRelatesTo:
		return "Relates to"
	default:
		return k.custom
	}
}

// Filename derives the canonical file name for a number and title:
// the number zero-padded to at least 4 digits, a dash, and the slug.
// Numbers above 9999 simply widen the field.
func Filename(number int, title string) string {
	return fmt.Sprintf("%04d-%s%s", number, Slug(title), Extension)
}

// Slug lowercases the title and maps every non-ASCII-alphanumeric rune
// to a dash, collapsing runs and trimming the ends. It is total and
// locale-independent: the same title always yields the same slug.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	prevDash := true // suppress a leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Today returns the current calendar date in UTC, truncated to midnight.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD, or empty for the zero value.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
