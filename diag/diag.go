package diag

import "fmt"

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	// SeverityWarning indicates a suspicious construct that does not prevent
	// compilation.
	SeverityWarning Severity = iota
	// SeverityError indicates a violation that blocks the next pipeline stage.
	SeverityError
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Stage identifies the pipeline stage that produced a diagnostic.
// Diagnostics are ordered by stage first, then by source position, so the
// global order over a full pipeline run is stable.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageValidate
	StageCompile
)

// String returns a human-readable representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StageValidate:
		return "validate"
	case StageCompile:
		return "compile"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range [Start, End) into a source file.
type Span struct {
	Start uint32
	End   uint32
}

// S is a shorthand constructor for a span.
func S(start, end uint32) Span {
	return Span{Start: start, End: end}
}

// Len returns the byte length of the span.
func (sp Span) Len() int {
	return int(sp.End) - int(sp.Start)
}

// Contains reports whether byte offset pos lies within the span.
func (sp Span) Contains(pos uint32) bool {
	return pos >= sp.Start && pos < sp.End
}

// Cover returns the smallest span containing both sp and other.
func (sp Span) Cover(other Span) Span {
	s := sp
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

func (sp Span) String() string {
	return fmt.Sprintf("%d..%d", sp.Start, sp.End)
}

// Label attaches a message to a secondary span, e.g. pointing at a previous
// declaration in a redeclaration error.
type Label struct {
	Span    Span
	File    string
	Message string
}

// Diagnostic is a span-anchored, severity-tagged message. File identifies the
// source the span indexes into: the empty string for the main compilation
// source, or a resolved include path. Labels are optional secondary spans.
type Diagnostic struct {
	Severity Severity
	Stage    Stage
	Span     Span
	File     string
	Message  string
	Labels   []Label
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.File != "" {
		return fmt.Sprintf("[%s] %s %s:%s: %s", d.Severity, d.Stage, d.File, d.Span, d.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Stage, d.Span, d.Message)
}

// IsError reports whether the diagnostic has error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Collector accumulates diagnostics for one pipeline run. Insertion order is
// preserved within a stage; no diagnostic is ever dropped.
type Collector struct {
	diags []Diagnostic
	stage Stage
}

// NewCollector returns a collector recording diagnostics for the given stage.
func NewCollector(stage Stage) *Collector {
	return &Collector{stage: stage}
}

// SetStage switches the stage tag for subsequently added diagnostics.
func (c *Collector) SetStage(stage Stage) {
	c.stage = stage
}

// Error records an error diagnostic at span.
func (c *Collector) Error(span Span, message string, labels ...Label) {
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityError,
		Stage:    c.stage,
		Span:     span,
		Message:  message,
		Labels:   labels,
	})
}

// Errorf records an error diagnostic with a formatted message.
func (c *Collector) Errorf(span Span, format string, args ...any) {
	c.Error(span, fmt.Sprintf(format, args...))
}

// Warn records a warning diagnostic at span.
func (c *Collector) Warn(span Span, message string, labels ...Label) {
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityWarning,
		Stage:    c.stage,
		Span:     span,
		Message:  message,
		Labels:   labels,
	})
}

// Warnf records a warning diagnostic with a formatted message.
func (c *Collector) Warnf(span Span, format string, args ...any) {
	c.Warn(span, fmt.Sprintf(format, args...))
}

// InFile records an error diagnostic located in an included file.
func (c *Collector) InFile(file string, span Span, message string, labels ...Label) {
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityError,
		Stage:    c.stage,
		Span:     span,
		File:     file,
		Message:  message,
		Labels:   labels,
	})
}

// Add records a fully specified diagnostic, overriding its stage tag.
func (c *Collector) Add(d Diagnostic) {
	d.Stage = c.stage
	c.diags = append(c.diags, d)
}

// Extend appends all diagnostics from another collector, keeping their stage
// tags intact.
func (c *Collector) Extend(other *Collector) {
	if other == nil {
		return
	}
	c.diags = append(c.diags, other.diags...)
}

// All returns the collected diagnostics in insertion order.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diags
}

// HasErrors reports whether any error-severity diagnostic has been recorded.
func (c *Collector) HasErrors() bool {
	if c == nil {
		return false
	}
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns all error-severity diagnostics.
func (c *Collector) Errors() []Diagnostic {
	errors := make([]Diagnostic, 0)
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			errors = append(errors, d)
		}
	}
	return errors
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.diags)
}
