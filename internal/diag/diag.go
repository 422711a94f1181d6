// Package diag defines the structured diagnostics the analysis emits.
// Every failure is a compile-time diagnostic surfaced to the caller;
// nothing is caught and retried internally.
package diag

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a diagnostic category.
type Kind string

const (
	// Declaration-consistency errors. These abort the run: later
	// passes assume a consistent registry.
	DuplicateSignature Kind = "duplicate-signature"
	UndeclaredMethod   Kind = "undeclared-method"

	// UnknownMethod is a failed registry lookup (absent name referenced
	// by a signature, alias, or check site).
	UnknownMethod Kind = "unknown-method"

	// AmbiguousMethodReference aborts only the affected class's
	// inference; independent classes proceed.
	AmbiguousMethodReference Kind = "ambiguous-method-reference"

	// Satisfaction errors. Collected program-wide without aborting so
	// the user sees every mismatch in one run.
	IncompleteInterface Kind = "incomplete-interface"
	TypeMismatch        Kind = "type-mismatch"
)

// Fatal reports whether this kind invalidates the registry and must
// abort the whole run before the check pass starts.
func (k Kind) Fatal() bool {
	switch k {
	case DuplicateSignature, UndeclaredMethod, UnknownMethod:
		return true
	}
	return false
}

// Site is a source location reference handed in by the front-end.
type Site struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
	Col  int    `json:"col" yaml:"col"`
}

// ParseSite parses "file:line:col" (line and col optional).
func ParseSite(s string) Site {
	site := Site{File: s}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return site
	}
	// Trailing numeric segments are line[:col]; everything before is
	// the file name (which may itself contain no colons in practice).
	if col, err := strconv.Atoi(parts[len(parts)-1]); err == nil && len(parts) >= 3 {
		if line, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
			site.File = strings.Join(parts[:len(parts)-2], ":")
			site.Line = line
			site.Col = col
			return site
		}
	}
	if line, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
		site.File = strings.Join(parts[:len(parts)-1], ":")
		site.Line = line
	}
	return site
}

func (s Site) String() string {
	if s.Line == 0 {
		return s.File
	}
	if s.Col == 0 {
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Diagnostic is one structured failure. Missing is the exact
// missing-name set for type-mismatch and incomplete-interface kinds.
type Diagnostic struct {
	Kind    Kind     `json:"kind"`
	Site    Site     `json:"site"`
	Subject string   `json:"subject,omitempty"` // class or method the diagnostic is about
	Method  string   `json:"method,omitempty"`  // offending method name, when one exists
	Missing []string `json:"missing,omitempty"` // sorted
	Message string   `json:"message"`
	Hint    string   `json:"hint,omitempty"` // optional "did you mean" annotation
}

// Error makes a Diagnostic usable as an error value.
func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.Site.File != "" {
		b.WriteString(d.Site.String())
		b.WriteString(": ")
	}
	b.WriteString(string(d.Kind))
	b.WriteString(": ")
	b.WriteString(d.Message)
	if len(d.Missing) > 0 {
		b.WriteString(" (missing: ")
		b.WriteString(strings.Join(d.Missing, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Sort orders diagnostics by (site, kind, subject, message) so the
// verdict set is identical across runs regardless of worker
// interleaving during the parallel passes.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Site.File != b.Site.File {
			return a.Site.File < b.Site.File
		}
		if a.Site.Line != b.Site.Line {
			return a.Site.Line < b.Site.Line
		}
		if a.Site.Col != b.Site.Col {
			return a.Site.Col < b.Site.Col
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Message < b.Message
	})
}

// HasFatal reports whether any collected diagnostic is run-aborting.
func (l List) HasFatal() bool {
	for _, d := range l {
		if d.Kind.Fatal() {
			return true
		}
	}
	return false
}

// ByKind returns the diagnostics of the given kind, in order.
func (l List) ByKind(kind Kind) List {
	var out List
	for _, d := range l {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
