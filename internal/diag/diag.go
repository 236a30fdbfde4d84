// Package diag defines the diagnostic model shared by every pipeline phase
// (spec §7): discovery, include, parse, symbol-conflict, type-rule, and
// resource errors all funnel through Diagnostic and Diagnostics.
package diag

import (
	"fmt"
	"strings"
)

// Severity distinguishes a fatal Diagnostic from one that is merely reported.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Stable diagnostic codes named in spec §7.
const (
	CodeDiscoveryNotFound   = "E0101"
	CodeIncludeUnresolved   = "E0201"
	CodeParseFailure        = "E0301"
	CodeSymbolConflict      = "E0401"
	CodeNarrowingAssign     = "E0381"
	CodeSignChange          = "E0382"
	CodeOversizeShift       = "E0503"
	CodeOutOfRangeLiteral   = "E0504"
	CodeNonBooleanCondition = "E0701"
	CodeNestedTernary       = "E0702"
	CodeSwitchCoverage      = "E0424"
	CodeCallbackMismatch    = "E0425"
	CodeConstWrite          = "E0426"
	CodeSizeofSideEffect    = "E0427"
	CodeUnresolvedName      = "E0601"
	CodeCriticalEarlyExit   = "E0801"
	CodeResourceNotWritable = "E0901"
	CodeInternal            = "E0999"
)

// Diagnostic carries everything spec §4.7.8 / §7 requires: a stable code,
// a human message, an optional fix hint, and a source location.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	Hint     string
	File     string
	Line     int
	Column   int
}

func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", d.File, d.Line, d.Column)
	}
	fmt.Fprintf(&b, "%s: %s", d.Code, d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&b, " (%s)", d.Hint)
	}
	return b.String()
}

// IsError reports whether this diagnostic should fail its file or run.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Diagnostics accumulates diagnostics for one file or one run (spec §4.7.8:
// "the generator collects multiple diagnostics per file").
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(diagnostic Diagnostic) {
	d.items = append(d.items, diagnostic)
}

// Error adds an error diagnostic with the given code/message/location.
func (d *Diagnostics) Error(code, file string, line, col int, format string, args ...interface{}) {
	d.Add(Diagnostic{
		Code: code, Severity: SeverityError, File: file, Line: line, Column: col,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warn adds a warning diagnostic with the given code/message/location.
func (d *Diagnostics) Warn(code, file string, line, col int, format string, args ...interface{}) {
	d.Add(Diagnostic{
		Code: code, Severity: SeverityWarning, File: file, Line: line, Column: col,
		Message: fmt.Sprintf(format, args...),
	})
}

// WithHint attaches a fix hint to the most recently added diagnostic.
func (d *Diagnostics) WithHint(hint string) {
	if len(d.items) == 0 {
		return
	}
	d.items[len(d.items)-1].Hint = hint
}

// All returns every diagnostic added so far, in order.
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Errors returns only the error-severity diagnostics.
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, it := range d.items {
		if it.IsError() {
			out = append(out, it)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (d *Diagnostics) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, it := range d.items {
		if !it.IsError() {
			out = append(out, it)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.IsError() {
			return true
		}
	}
	return false
}

// Len reports the total number of diagnostics recorded.
func (d *Diagnostics) Len() int {
	return len(d.items)
}

// Merge appends another Diagnostics' items onto d, used when the driver
// folds per-file generator diagnostics into the run-level result (spec §6).
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}
