package feaast

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/feafile/feasyn"
)

func parseFile(t *testing.T, src string) File {
	t.Helper()
	tree, _ := feasyn.Parse(src, nil)
	file, ok := AsFile(tree)
	if !ok {
		t.Fatalf("parse did not produce a file node")
	}
	return file
}

func TestFileItems(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "languagesystem DFLT dflt;\n@a = [x y];\nfeature liga { sub f i by f_i; } liga;")
	var kinds []feasyn.NodeKind
	for item := range file.Items() {
		kinds = append(kinds, item.Kind())
	}
	want := []feasyn.NodeKind{feasyn.NodeLanguageSystem, feasyn.NodeGlyphClassDef, feasyn.NodeFeatureBlock}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d items, have %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("item %d: expected %s, have %s", i, want[i], kinds[i])
		}
	}
}

func TestLanguageSystemView(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "languagesystem latn TRK;")
	for item := range file.Items() {
		ls, ok := AsLanguageSystem(item)
		if !ok {
			t.Fatalf("expected languagesystem view")
		}
		script, _ := ls.Script()
		lang, _ := ls.Language()
		if script.Text() != "latn" || lang.Text() != "TRK" {
			t.Fatalf("wrong tags: %q %q", script.Text(), lang.Text())
		}
	}
}

func TestCastsAreTotal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "languagesystem DFLT dflt;")
	for item := range file.Items() {
		if _, ok := AsFeatureBlock(item); ok {
			t.Errorf("languagesystem must not cast to feature block")
		}
		if _, ok := AsLanguageSystem(item); !ok {
			t.Errorf("languagesystem must cast to its own view")
		}
	}
}

func TestSubRuleView(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "feature liga { sub f f i by f_f_i; } liga;")
	var rule SubRule
	found := false
	for item := range file.Items() {
		block, ok := AsFeatureBlock(item)
		if !ok {
			continue
		}
		tag, _ := block.Tag()
		if tag.Text() != "liga" {
			t.Fatalf("wrong feature tag %q", tag.Text())
		}
		for stmt := range block.Statements() {
			if r, ok := AsSubRule(stmt); ok {
				rule = r
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("no sub rule found")
	}
	if len(rule.Input()) != 3 {
		t.Fatalf("expected 3 input elements, have %d", len(rule.Input()))
	}
	if len(rule.Replacement()) != 1 {
		t.Fatalf("expected 1 replacement element, have %d", len(rule.Replacement()))
	}
	if rule.IsReverse() || rule.HasFrom() {
		t.Errorf("plain ligature rule misclassified")
	}
	expr, ok := rule.Replacement()[0].Glyphs()
	if !ok || expr.Name() != "f_f_i" {
		t.Errorf("wrong replacement glyph %q", expr.Name())
	}
}

func TestMarkedElements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "feature calt { sub a b' c by b.alt; } calt;")
	for item := range file.Items() {
		block, ok := AsFeatureBlock(item)
		if !ok {
			continue
		}
		for stmt := range block.Statements() {
			rule, ok := AsSubRule(stmt)
			if !ok {
				continue
			}
			input := rule.Input()
			if len(input) != 3 {
				t.Fatalf("expected 3 elements, have %d", len(input))
			}
			if input[0].IsMarked() || !input[1].IsMarked() || input[2].IsMarked() {
				t.Fatalf("wrong mark placement")
			}
		}
	}
}

func TestPosRuleParts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "feature mark { pos base [a e] <anchor 250 450> mark @TOP; } mark;")
	for item := range file.Items() {
		block, ok := AsFeatureBlock(item)
		if !ok {
			continue
		}
		for stmt := range block.Statements() {
			rule, ok := AsPosRule(stmt)
			if !ok {
				continue
			}
			if rule.AttachKind() != "base" {
				t.Fatalf("expected base attachment, have %q", rule.AttachKind())
			}
			var kinds []PosPartKind
			for part := range rule.Parts() {
				kinds = append(kinds, part.Kind)
			}
			want := []PosPartKind{PosPartElement, PosPartAnchor, PosPartMark, PosPartElement}
			if len(kinds) != len(want) {
				t.Fatalf("expected %d parts, have %d: %v", len(want), len(kinds), kinds)
			}
			for i := range want {
				if kinds[i] != want[i] {
					t.Errorf("part %d: expected %d, have %d", i, want[i], kinds[i])
				}
			}
		}
	}
}

func TestValueRecordForms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "feature kern { pos A V -120; pos T <1 2 3 4> o; } kern;")
	var records []ValueRecord
	for item := range file.Items() {
		block, _ := AsFeatureBlock(item)
		for stmt := range block.Statements() {
			rule, ok := AsPosRule(stmt)
			if !ok {
				continue
			}
			for part := range rule.Parts() {
				if part.Kind == PosPartElement {
					if v, ok := part.Element.Value(); ok {
						records = append(records, v)
					}
				}
			}
		}
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 value records, have %d", len(records))
	}
	if v := records[0].Values(); len(v) != 1 || v[0] != -120 {
		t.Errorf("wrong bare value %v", v)
	}
	if v := records[1].Values(); len(v) != 4 || v[2] != 3 {
		t.Errorf("wrong 4-tuple %v", v)
	}
}

func TestGlyphRangeView(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	file := parseFile(t, "@uc = [A - Z one];")
	for item := range file.Items() {
		def, ok := AsGlyphClassDef(item)
		if !ok {
			continue
		}
		name, _ := def.Name()
		if name != "uc" {
			t.Fatalf("wrong class name %q", name)
		}
		expr, _ := def.Value()
		if expr.Kind() != GlyphExprLiteral {
			t.Fatalf("expected class literal")
		}
		var kinds []GlyphExprKind
		for m := range expr.Members() {
			kinds = append(kinds, m.Kind())
		}
		if len(kinds) != 2 || kinds[0] != GlyphExprRange || kinds[1] != GlyphExprName {
			t.Fatalf("wrong member kinds %v", kinds)
		}
	}
}
