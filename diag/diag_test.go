package diag

import (
	"strings"
	"testing"
)

func TestSeverityAndStageStrings(t *testing.T) {
	if SeverityError.String() != "ERROR" || SeverityWarning.String() != "WARNING" {
		t.Errorf("severity strings broken")
	}
	if StageParse.String() != "parse" || StageCompile.String() != "compile" {
		t.Errorf("stage strings broken")
	}
}

func TestSpanBasics(t *testing.T) {
	span := S(3, 9)
	if span.Len() != 6 {
		t.Errorf("wrong span length %d", span.Len())
	}
	if !span.Contains(3) || span.Contains(9) {
		t.Errorf("span containment is half-open [start, end)")
	}
	cover := span.Cover(S(1, 5))
	if cover != S(1, 9) {
		t.Errorf("wrong cover %v", cover)
	}
}

func TestCollectorPreservesOrder(t *testing.T) {
	c := NewCollector(StageParse)
	c.Error(S(10, 12), "first")
	c.Warn(S(0, 2), "second")
	c.Errorf(S(20, 22), "third %d", 3)
	diags := c.All()
	if len(diags) != 3 {
		t.Fatalf("expected 3 diagnostics, have %d", len(diags))
	}
	if diags[0].Message != "first" || diags[1].Message != "second" || diags[2].Message != "third 3" {
		t.Errorf("insertion order not preserved: %v", diags)
	}
	for _, d := range diags {
		if d.Stage != StageParse {
			t.Errorf("stage tag missing on %v", d)
		}
	}
}

func TestCollectorHasErrors(t *testing.T) {
	c := NewCollector(StageValidate)
	if c.HasErrors() {
		t.Errorf("empty collector claims errors")
	}
	c.Warn(S(0, 1), "just a warning")
	if c.HasErrors() {
		t.Errorf("warnings are not errors")
	}
	c.Error(S(0, 1), "an error")
	if !c.HasErrors() {
		t.Errorf("error not detected")
	}
	if len(c.Errors()) != 1 {
		t.Errorf("wrong error count")
	}
}

func TestCollectorExtendKeepsStages(t *testing.T) {
	lex := NewCollector(StageLex)
	lex.Error(S(0, 1), "bad byte")
	parse := NewCollector(StageParse)
	parse.Error(S(5, 6), "bad token")
	parse.Extend(lex)
	diags := parse.All()
	if diags[0].Stage != StageParse || diags[1].Stage != StageLex {
		t.Errorf("stages not preserved across Extend: %v", diags)
	}
}

func TestDiagnosticErrorString(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Stage:    StageValidate,
		Span:     S(4, 7),
		Message:  "unknown glyph",
	}
	text := d.Error()
	for _, fragment := range []string{"ERROR", "validate", "4..7", "unknown glyph"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("error string misses %q: %s", fragment, text)
		}
	}
	d.File = "inc.fea"
	if !strings.Contains(d.Error(), "inc.fea") {
		t.Errorf("file identity missing from %s", d.Error())
	}
}

func TestLabels(t *testing.T) {
	c := NewCollector(StageValidate)
	c.Error(S(10, 12), "redeclared", Label{Span: S(0, 2), Message: "first declared here"})
	d := c.All()[0]
	if len(d.Labels) != 1 || d.Labels[0].Message != "first declared here" {
		t.Errorf("secondary labels lost: %v", d)
	}
}
