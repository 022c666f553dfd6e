package feasyn

import (
	"fmt"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/feafile/diag"
)

// mapResolver serves includes from a map of path → source.
type mapResolver map[string]string

func (m mapResolver) Resolve(basePath, includePath string) (string, string, error) {
	src, ok := m[includePath]
	if !ok {
		return "", "", fmt.Errorf("no such file %q", includePath)
	}
	return includePath, src, nil
}

// leafText re-concatenates all leaves of a tree, excluding spliced include
// content (which belongs to other files).
func leafText(n Node) string {
	var sb strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		for el := range n.Children() {
			if el.IsToken() {
				sb.WriteString(el.TokenText())
			} else {
				walk(el.AsNode())
			}
		}
	}
	walk(n)
	return sb.String()
}

func assertRoundTrip(t *testing.T, src string) Node {
	t.Helper()
	tree, _ := Parse(src, nil)
	if text := leafText(tree); text != src {
		t.Fatalf("parse round trip failed:\nwant %q\nhave %q", src, text)
	}
	return tree
}

func errorCount(diags []diag.Diagnostic) int {
	count := 0
	for _, d := range diags {
		if d.IsError() {
			count++
		}
	}
	return count
}

func TestParseRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	sources := []string{
		"languagesystem DFLT dflt;\nfeature liga { sub f i by f_i; } liga;\n",
		"@UC = [A - Z];\n@lc = [a - z];\nfeature smcp { sub @lc by @UC; } smcp;",
		"feature kern {\n  pos A V -120;\n  enum pos @A [V W] -80;\n} kern;",
		"markClass [acute grave] <anchor 150 -10> @TOP_MARKS;\n" +
			"feature mark { pos base [a e o] <anchor 250 450> mark @TOP_MARKS; } mark;",
		"lookup HI { sub a by b; } HI;\nfeature test { lookup HI; } test;",
		"feature test { lookupflag IgnoreMarks; sub a by b; lookupflag 0; } test;",
		"table GDEF { GlyphClassDef @BASE, @LIGS, @MARKS, ; } GDEF;",
		"table name { nameid 9 \"Designer\"; nameid 9 1 \"Designer Mac\"; } name;",
		"table BASE {\n HorizAxis.BaseTagList ideo romn;\n" +
			" HorizAxis.BaseScriptList latn romn -120 0, grek romn -120 0;\n} BASE;",
		"feature size {\n parameters 10.0 3 80 139;\n sizemenuname \"Caption\";\n} size;",
		"feature cv01 { cvParameters { FeatUILabelNameID { name \"alt a\"; }; Character 0x61; }; sub a by a.alt; } cv01;",
		"feature calt { ignore sub a b' c; sub b' by b.alt; } calt;",
		"feature vert { sub \\1 by \\2; } vert;",
		"feature test { subtable; } test;",
		"anchorDef 300 0 A1;\nvalueRecordDef <0 0 -100 0> KERN_N;\nfeature kern { pos A <KERN_N> V; } kern;",
	}
	for i, src := range sources {
		tree := assertRoundTrip(t, src)
		assertWellFormed(t, tree, fmt.Sprintf("source %d", i))
	}
}

// assertWellFormed checks that child spans tile the parent span exactly.
func assertWellFormed(t *testing.T, n Node, label string) {
	t.Helper()
	span := n.Span()
	pos := span.Start
	for el := range n.Children() {
		var childSpan diag.Span
		if el.IsToken() {
			childSpan = el.Token().Span
		} else {
			childSpan = el.AsNode().Span()
		}
		if childSpan.Start != pos {
			t.Fatalf("%s: child span %v does not start at %d under %s",
				label, childSpan, pos, n.Kind())
		}
		pos = childSpan.End
		if !el.IsToken() {
			assertWellFormed(t, el.AsNode(), label)
		}
	}
	if pos != span.End {
		t.Fatalf("%s: children of %s end at %d, node ends at %d", label, n.Kind(), pos, span.End)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := "feature liga { sub ; sub f i by f_i; } liga;"
	tree, diags := Parse(src, nil)
	if text := leafText(tree); text != src {
		t.Fatalf("round trip failed under error recovery: %q", text)
	}
	if count := errorCount(diags); count != 1 {
		t.Fatalf("expected exactly one parse error, have %d: %v", count, diags)
	}
	// the second sub statement must still be a well-formed rule node
	feature, ok := Root(tree.Green()).FirstChildOfKind(NodeFeatureBlock)
	if !ok {
		t.Fatalf("no feature block in recovered tree")
	}
	subs := 0
	for child := range feature.ChildNodes() {
		if child.Kind() == NodeSubRule {
			subs++
		}
	}
	if subs != 2 {
		t.Fatalf("expected both sub statements as rule nodes, have %d", subs)
	}
}

func TestParseTopLevelRecovery(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := "???;\nlanguagesystem DFLT dflt;"
	tree, diags := Parse(src, nil)
	if leafText(tree) != src {
		t.Fatalf("round trip failed")
	}
	if errorCount(diags) == 0 {
		t.Fatalf("expected diagnostics for garbage input")
	}
	if _, ok := tree.FirstChildOfKind(NodeLanguageSystem); !ok {
		t.Fatalf("parser did not recover to the languagesystem item")
	}
}

func TestParseInclude(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	resolver := mapResolver{
		"classes.fea": "@lc = [a b c];\n",
	}
	src := "include (classes.fea);\nfeature smcp { sub @lc by @lc; } smcp;"
	tree, diags := Parse(src, resolver)
	if count := errorCount(diags); count != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if leafText(tree) != src {
		t.Fatalf("include must not disturb the host file round trip")
	}
	inc, ok := tree.FirstChildOfKind(NodeInclude)
	if !ok {
		t.Fatalf("no include node in tree")
	}
	inner, path, ok := inc.InnerTree()
	if !ok {
		t.Fatalf("include was not spliced")
	}
	if path != "classes.fea" {
		t.Fatalf("wrong resolved path %q", path)
	}
	if inner.Kind() != NodeFile {
		t.Fatalf("spliced include is not a file node")
	}
	if _, ok := inner.FirstChildOfKind(NodeGlyphClassDef); !ok {
		t.Fatalf("spliced include misses the class definition")
	}
	if inner.File() != "classes.fea" {
		t.Fatalf("inner nodes must carry the include's file identity")
	}
}

func TestParseIncludeCycle(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	resolver := mapResolver{
		"a.fea": "include (b.fea);\n",
		"b.fea": "include (a.fea);\n",
	}
	_, diags := ParseFile(resolver["a.fea"], "a.fea", resolver)
	cycles := 0
	for _, d := range diags {
		if d.IsError() && strings.Contains(d.Message, "include cycle") {
			cycles++
			if d.File != "b.fea" {
				t.Errorf("cycle diagnostic should point into the inner include, points at %q", d.File)
			}
		}
	}
	if cycles != 1 {
		t.Fatalf("expected exactly one include-cycle error, have %d: %v", cycles, diags)
	}
}

func TestParseIncludeMissing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	_, diags := Parse("include (nowhere.fea);", mapResolver{})
	if errorCount(diags) != 1 {
		t.Fatalf("expected one error for unresolvable include, have %v", diags)
	}
}

func TestDiagnosticSpansAreValid(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := "feature liga { sub ; pos ; ??? } liga;"
	_, diags := Parse(src, nil)
	for _, d := range diags {
		if d.Span.Start > d.Span.End || int(d.Span.End) > len(src) {
			t.Errorf("invalid span %v for %q", d.Span, d.Message)
		}
	}
}
