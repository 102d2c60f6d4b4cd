// Package diag collects the warnings and fatal errors raised while building
// a statute. A Reporter replaces process-wide counters: callers choose strict
// or lenient behavior per build and read back every diagnostic afterwards.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// NoLocation is reported when no enclosing node resolves an address.
const NoLocation = "no location"

// maxLocatorDepth bounds the parent walk in Locate.
const maxLocatorDepth = 256

// Severity distinguishes recoverable warnings from fatal errors.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

// String returns "warning" or "fatal".
func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "warning"
}

// Locator is implemented by anything a diagnostic can be attached to.
// Location returns the node's own address when it has one; LocationParent
// returns the enclosing locator, or nil at the root.
type Locator interface {
	Location() (string, bool)
	LocationParent() Locator
}

// Locate walks from loc towards the root and returns the first address found.
func Locate(loc Locator) string {
	for depth := 0; loc != nil && depth < maxLocatorDepth; depth++ {
		if where, ok := loc.Location(); ok {
			return where
		}
		loc = loc.LocationParent()
	}
	return NoLocation
}

// At is a fixed-location Locator, useful for diagnostics raised outside the
// document tree.
type At string

// Location returns the fixed location.
func (a At) Location() (string, bool) { return string(a), a != "" }

// LocationParent always returns nil.
func (a At) LocationParent() Locator { return nil }

// Diagnostic is one recorded condition.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
	Message  string   `json:"message"`
}

// String formats the diagnostic for terminal output.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s]: %s", strings.ToUpper(d.Severity.String()), d.Location, d.Message)
}

// Error is returned when a diagnostic aborts the build: every fatal
// diagnostic, and every warning in strict mode.
type Error struct {
	Diagnostic Diagnostic
}

func (e *Error) Error() string { return e.Diagnostic.String() }

// IsFatal reports whether err carries a fatal diagnostic (as opposed to a
// warning escalated by strict mode).
func IsFatal(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Diagnostic.Severity == SeverityFatal
}

// Reporter records diagnostics and applies the strictness policy.
type Reporter struct {
	mu          sync.Mutex
	strict      bool
	logger      *slog.Logger
	warnings    int
	diagnostics []Diagnostic
}

// NewReporter returns a Reporter. In strict mode the first warning is
// returned as an error. A nil logger discards log output.
func NewReporter(strict bool, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{strict: strict, logger: logger}
}

// Strict reports whether warnings abort the build.
func (r *Reporter) Strict() bool { return r.strict }

// Warn records a warning. It returns a non-nil *Error only in strict mode;
// otherwise the caller continues with a local fallback.
func (r *Reporter) Warn(loc Locator, format string, args ...any) error {
	d := r.record(SeverityWarning, loc, format, args...)
	if r.strict {
		return &Error{Diagnostic: d}
	}
	return nil
}

// Fatal records a fatal diagnostic and always returns it as an error.
func (r *Reporter) Fatal(loc Locator, format string, args ...any) error {
	d := r.record(SeverityFatal, loc, format, args...)
	return &Error{Diagnostic: d}
}

func (r *Reporter) record(sev Severity, loc Locator, format string, args ...any) Diagnostic {
	d := Diagnostic{
		Severity: sev,
		Location: Locate(loc),
		Message:  fmt.Sprintf(format, args...),
	}

	r.mu.Lock()
	if sev == SeverityWarning {
		r.warnings++
	}
	r.diagnostics = append(r.diagnostics, d)
	r.mu.Unlock()

	level := slog.LevelWarn
	if sev == SeverityFatal {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, d.Message, "location", d.Location, "severity", sev.String())
	return d
}

// Count returns the number of warnings recorded.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warnings
}

// Diagnostics returns a copy of every recorded diagnostic, in order.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diagnostics...)
}

// Summary returns a short human-readable tally.
func (r *Reporter) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	fatal := len(r.diagnostics) - r.warnings
	return fmt.Sprintf("%d warnings, %d fatal", r.warnings, fatal)
}
