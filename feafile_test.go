package feafile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/fontmap"
	"github.com/npillmayer/feafile/otl"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(basePath, includePath string) (string, string, error) {
	src, ok := m[includePath]
	if !ok {
		return "", "", fmt.Errorf("no such file %q", includePath)
	}
	return includePath, src, nil
}

type tableSink struct {
	tags   []otl.Tag
	tables map[otl.Tag]any
}

func newTableSink() *tableSink {
	return &tableSink{tables: make(map[otl.Tag]any)}
}

func (s *tableSink) AddTable(tag otl.Tag, table any) {
	s.tags = append(s.tags, tag)
	s.tables[tag] = table
}

func TestParseAndCompilePipeline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "f", "i", "f_i", "A", "V"})
	src := "languagesystem DFLT dflt;\n" +
		"feature liga { sub f i by f_i; } liga;\n" +
		"feature kern { pos A V -120; } kern;\n"
	sink := newTableSink()
	diags := ParseAndCompile(src, nil, glyphs, sink)
	if hasErrors(diags) {
		t.Fatalf("pipeline reported errors: %v", diags)
	}
	if _, ok := sink.tables[otl.T("GSUB")]; !ok {
		t.Errorf("no GSUB emitted")
	}
	if _, ok := sink.tables[otl.T("GPOS")]; !ok {
		t.Errorf("no GPOS emitted")
	}
}

func TestPipelineBlocksOnValidationErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "f", "fq"})
	src := "feature liga { sub f q by fq; } liga;"
	sink := newTableSink()
	diags := ParseAndCompile(src, nil, glyphs, sink)
	if !hasErrors(diags) {
		t.Fatalf("unknown glyph must be an error")
	}
	if len(sink.tags) != 0 {
		t.Errorf("no tables may be emitted after validation errors, have %v", sink.tags)
	}
	// the span of the unknown-glyph error must point at q
	found := false
	for _, d := range diags {
		if d.IsError() && strings.Contains(d.Message, `"q"`) {
			found = true
			if src[d.Span.Start:d.Span.End] != "q" {
				t.Errorf("span %v does not point at q", d.Span)
			}
		}
	}
	if !found {
		t.Errorf("missing unknown-glyph diagnostic: %v", diags)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "b"})
	// parse error: stray tokens; validation would also have things to say,
	// but must not run
	src := "feature test { sub a by b; } test; ???"
	sink := newTableSink()
	diags := ParseAndCompile(src, nil, glyphs, sink)
	if !hasErrors(diags) {
		t.Fatalf("expected parse errors")
	}
	for _, d := range diags {
		if d.Stage == diag.StageValidate || d.Stage == diag.StageCompile {
			t.Errorf("later stages must not run after parse errors: %v", d)
		}
	}
	if len(sink.tags) != 0 {
		t.Errorf("no tables may be emitted after parse errors")
	}
}

func TestPipelineWithIncludes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "b", "a.sc", "b.sc"})
	resolver := mapResolver{
		"classes.fea": "@lc = [a b];\n@sc = [a.sc b.sc];\n",
	}
	src := "languagesystem DFLT dflt;\n" +
		"include (classes.fea);\n" +
		"feature smcp { sub @lc by @sc; } smcp;\n"
	sink := newTableSink()
	diags := ParseAndCompile(src, resolver, glyphs, sink)
	if hasErrors(diags) {
		t.Fatalf("pipeline reported errors: %v", diags)
	}
	gsub, ok := sink.tables[otl.T("GSUB")].(*otl.GSubTable)
	if !ok || len(gsub.Lookups) != 1 {
		t.Fatalf("expected one GSUB lookup from included classes")
	}
	sub := gsub.Lookups[0].Subtables[0].(*otl.SingleSubst)
	if len(sub.Coverage) != 2 || sub.Substitutes[0] != 3 || sub.Substitutes[1] != 4 {
		t.Errorf("class-to-class substitution wrong: %v -> %v", sub.Coverage, sub.Substitutes)
	}
}

func TestIncludeCycleEndToEnd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	resolver := mapResolver{
		"b.fea": "include (a.fea);\n",
		"a.fea": "include (b.fea);\n",
	}
	_, diags := Parse("include (b.fea);", resolver)
	cycles := 0
	for _, d := range diags {
		if d.IsError() && strings.Contains(d.Message, "include cycle") {
			cycles++
		}
	}
	if cycles != 1 {
		t.Fatalf("expected one include-cycle diagnostic, have %d: %v", cycles, diags)
	}
}
