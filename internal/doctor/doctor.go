// Package doctor runs consistency checks over a record collection and
// produces a severity-ordered report.
package doctor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/repo"
)

// Severity classifies a diagnostic. Ordering matters: reports sort
// errors first.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Check names for diagnostics, stable for machine consumption.
const (
	CheckDuplicateNumbers = "duplicate-numbers"
	CheckFileNaming       = "file-naming"
	CheckMissingStatus    = "missing-status"
	CheckBrokenLinks      = "broken-links"
	CheckNumberingGaps    = "numbering-gaps"
	CheckSupersededLinks  = "superseded-links"
	CheckSkippedFiles     = "skipped-files"
)

// Diagnostic is one finding. Number is zero for collection-level
// findings.
type Diagnostic struct {
	Severity Severity
	Check    string
	Message  string
	Path     string
	Number   int
}

// Report collects diagnostics for one run.
type Report struct {
	Diagnostics []Diagnostic
}

func (r *Report) add(d Diagnostic) { r.Diagnostics = append(r.Diagnostics, d) }

// Healthy reports whether the run produced no findings at all.
func (r *Report) Healthy() bool { return len(r.Diagnostics) == 0 }

// HasErrors reports whether any finding is error-severity.
func (r *Report) HasErrors() bool {
	return r.CountBySeverity(Error) > 0
}

// HasWarnings reports whether any finding is warning-severity.
func (r *Report) HasWarnings() bool {
	return r.CountBySeverity(Warning) > 0
}

// CountBySeverity returns how many diagnostics carry the given
// severity.
func (r *Report) CountBySeverity(s Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Check scans the collection once and runs every rule over the result.
// Diagnostics come back sorted errors-first; within a severity the rule
// emission order is preserved.
func Check(r *repo.Repository) (*Report, error) {
	recs, skipped, err := r.ListDetailed()
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	checkDuplicateNumbers(rep, recs)
	checkBrokenLinks(rep, recs)
	checkFileNaming(rep, recs)
	checkMissingStatus(rep, recs)
	checkSupersededLinks(rep, recs)
	checkNumberingGaps(rep, recs)
	checkSkippedFiles(rep, skipped)

	sort.SliceStable(rep.Diagnostics, func(i, j int) bool {
		return rep.Diagnostics[i].Severity > rep.Diagnostics[j].Severity
	})
	return rep, nil
}

// checkDuplicateNumbers emits one error per duplicated number, naming
// every file that claims it.
func checkDuplicateNumbers(rep *Report, recs []*models.Record) {
	byNumber := make(map[int][]string)
	for _, rec := range recs {
		byNumber[rec.Number] = append(byNumber[rec.Number], filepath.Base(rec.Path))
	}

	var numbers []int
	for n, files := range byNumber {
		if len(files) > 1 {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		rep.add(Diagnostic{
			Severity: Error,
			Check:    CheckDuplicateNumbers,
			Message: fmt.Sprintf("number %d is used by %d files: %s",
				n, len(byNumber[n]), strings.Join(byNumber[n], ", ")),
			Number: n,
		})
	}
}

// checkBrokenLinks emits one error per link whose target number does
// not exist in the collection.
func checkBrokenLinks(rep *Report, recs []*models.Record) {
	known := make(map[int]bool, len(recs))
	for _, rec := range recs {
		known[rec.Number] = true
	}

	for _, rec := range recs {
		for _, l := range rec.Links {
			if known[l.Target] {
				continue
			}
			rep.add(Diagnostic{
				Severity: Error,
				Check:    CheckBrokenLinks,
				Message: fmt.Sprintf("record %d links to %d, which does not exist",
					rec.Number, l.Target),
				Path:   rec.Path,
				Number: rec.Number,
			})
		}
	}
}

// checkFileNaming warns when a record file does not start with the
// zero-padded number prefix its record claims.
func checkFileNaming(rep *Report, recs []*models.Record) {
	for _, rec := range recs {
		base := filepath.Base(rec.Path)
		prefix := fmt.Sprintf("%04d-", rec.Number)
		if strings.HasPrefix(base, prefix) {
			continue
		}
		rep.add(Diagnostic{
			Severity: Warning,
			Check:    CheckFileNaming,
			Message: fmt.Sprintf("file %s does not match the expected %s prefix for record %d",
				base, prefix, rec.Number),
			Path:   rec.Path,
			Number: rec.Number,
		})
	}
}

// checkMissingStatus warns on records whose status is blank.
func checkMissingStatus(rep *Report, recs []*models.Record) {
	for _, rec := range recs {
		if !rec.Status.IsZero() {
			continue
		}
		rep.add(Diagnostic{
			Severity: Warning,
			Check:    CheckMissingStatus,
			Message:  fmt.Sprintf("record %d has no status", rec.Number),
			Path:     rec.Path,
			Number:   rec.Number,
		})
	}
}

// checkSupersededLinks warns on records marked superseded that carry no
// link to a superseding record.
func checkSupersededLinks(rep *Report, recs []*models.Record) {
	for _, rec := range recs {
		if rec.Status != models.StatusSuperseded {
			continue
		}
		hasLink := false
		for _, l := range rec.Links {
			if l.Kind == models.KindSupersededBy {
				hasLink = true
				break
			}
		}
		if hasLink {
			continue
		}
		rep.add(Diagnostic{
			Severity: Warning,
			Check:    CheckSupersededLinks,
			Message:  fmt.Sprintf("record %d is superseded but has no superseded-by link", rec.Number),
			Path:     rec.Path,
			Number:   rec.Number,
		})
	}
}

// checkNumberingGaps emits a single informational diagnostic listing
// missing numbers between the lowest and highest in use. Long lists are
// abbreviated to the first three.
func checkNumberingGaps(rep *Report, recs []*models.Record) {
	if len(recs) == 0 {
		return
	}
	present := make(map[int]bool, len(recs))
	min, max := recs[0].Number, recs[0].Number
	for _, rec := range recs {
		present[rec.Number] = true
		if rec.Number < min {
			min = rec.Number
		}
		if rec.Number > max {
			max = rec.Number
		}
	}

	var missing []int
	for n := min; n <= max; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return
	}

	var msg string
	if len(missing) > 5 {
		msg = fmt.Sprintf("numbering has %d gaps, first are %s",
			len(missing), joinInts(missing[:3]))
	} else {
		msg = fmt.Sprintf("numbering gaps: %s", joinInts(missing))
	}
	rep.add(Diagnostic{
		Severity: Info,
		Check:    CheckNumberingGaps,
		Message:  msg,
	})
}

// checkSkippedFiles surfaces files the scan dropped because they did
// not parse.
func checkSkippedFiles(rep *Report, skipped int) {
	if skipped == 0 {
		return
	}
	rep.add(Diagnostic{
		Severity: Info,
		Check:    CheckSkippedFiles,
		Message:  fmt.Sprintf("%d file(s) could not be parsed and were skipped", skipped),
	})
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
