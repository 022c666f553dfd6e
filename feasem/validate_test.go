package feasem

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/fontmap"
	"github.com/npillmayer/feafile/otl"
)

func testGlyphs() otl.GlyphMap {
	return fontmap.NewOrdered([]string{
		".notdef", "f", "i", "f_i", "f_f_i", "A", "V", "a", "b", "c",
		"a.alt", "b.alt", "acute", "grave", "e", "o", "one", "two",
	})
}

func validateSource(t *testing.T, src string) (*SymbolTable, []diag.Diagnostic) {
	t.Helper()
	tree, pdiags := feasyn.Parse(src, nil)
	for _, d := range pdiags {
		if d.IsError() {
			t.Fatalf("unexpected parse error in test source: %v", d)
		}
	}
	return Validate(tree, testGlyphs())
}

func errorMessages(diags []diag.Diagnostic) []string {
	var messages []string
	for _, d := range diags {
		if d.IsError() {
			messages = append(messages, d.Message)
		}
	}
	return messages
}

func TestValidateCleanSource(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t,
		"languagesystem DFLT dflt;\nfeature liga { sub f i by f_i; } liga;")
	assert.Empty(t, errorMessages(diags))
}

func TestValidateUnknownGlyph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	src := "feature liga { sub f q by f_i; } liga;"
	tree, _ := feasyn.Parse(src, nil)
	_, diags := Validate(tree, testGlyphs())
	var hits []diag.Diagnostic
	for _, d := range diags {
		if d.IsError() && strings.Contains(d.Message, `"q"`) {
			hits = append(hits, d)
		}
	}
	if len(hits) != 1 {
		t.Fatalf("expected one unknown-glyph error, have %v", diags)
	}
	// the span must point at q in the source
	span := hits[0].Span
	if src[span.Start:span.End] != "q" {
		t.Errorf("error span %v points at %q, not at q", span, src[span.Start:span.End])
	}
}

func TestValidateDeclareBeforeUse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t,
		"feature smcp { sub @lc by @UC; } smcp;\n@lc = [a b];\n@UC = [A V];")
	messages := errorMessages(diags)
	assert.Len(t, messages, 2) // both classes are used before declaration
	for _, m := range messages {
		assert.Contains(t, m, "not declared at this point")
	}
}

func TestValidateClassRedeclaration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	// append via self-reference is legal
	st, diags := validateSource(t, "@C = [a b];\n@C = [@C c];")
	assert.Empty(t, errorMessages(diags))
	set, ok := st.GlyphClass("C")
	if !ok {
		t.Fatalf("class C missing from symbol table")
	}
	assert.Len(t, set, 3)

	// plain rebinding is an error with a secondary label
	_, diags = validateSource(t, "@C = [a b];\n@C = [c];")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "already declared")
	}
	for _, d := range diags {
		if d.IsError() && len(d.Labels) == 0 {
			t.Errorf("redeclaration error should carry a label pointing at the first declaration")
		}
	}
}

func TestValidateCIDBounds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t, `feature test { sub \5 by \40000; } test;`)
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "out of range")
	}
}

func TestValidateSubInGDEF(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t, "table GDEF { sub a by b; } GDEF;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "forbidden in table GDEF")
	}
}

func TestValidateAttachOutsideGDEF(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t, "table hhea { Attach a 1; } hhea;")
	assert.NotEmpty(t, errorMessages(diags))
}

func TestValidateAlternateArity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	// alternate replacement must be a class
	_, diags := validateSource(t, "feature aalt { sub a from b; } aalt;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "must be a glyph class")
	}
	// an empty alternate set is rejected
	_, diags = validateSource(t, "feature aalt { sub a from []; } aalt;")
	found := false
	for _, m := range errorMessages(diags) {
		if strings.Contains(m, "empty") {
			found = true
		}
	}
	assert.True(t, found, "empty alternate set must be an error, have %v", diags)
}

func TestValidateSingleClassSizeMismatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t,
		"@three = [a b c];\n@two = [e o];\nfeature test { sub @three by @two; } test;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "differ in size")
	}
}

func TestValidateLookupForwardReference(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t,
		"feature test { lookup LATER; } test;\nlookup LATER { sub a by b; } LATER;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "not defined at this point")
	}
}

func TestValidateLookupFlagRecording(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	src := "feature test {\n" +
		"  lookupflag IgnoreMarks;\n" +
		"  sub a by b;\n" +
		"  lookupflag 0;\n" +
		"  sub b by c;\n" +
		"} test;"
	tree, _ := feasyn.Parse(src, nil)
	st, diags := Validate(tree, testGlyphs())
	assert.Empty(t, errorMessages(diags))
	var flags []otl.LookupFlag
	var walk func(n feasyn.Node)
	walk = func(n feasyn.Node) {
		if n.Kind() == feasyn.NodeSubRule {
			flags = append(flags, st.FlagFor(n).Flag)
		}
		for child := range n.ChildNodes() {
			walk(child)
		}
	}
	walk(tree)
	if len(flags) != 2 {
		t.Fatalf("expected flag records for both rules, have %d", len(flags))
	}
	assert.Equal(t, otl.LOOKUP_FLAG_IGNORE_MARKS, flags[0])
	assert.Equal(t, otl.LookupFlag(0), flags[1])
}

func TestValidateMarkClassCoherence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	src := "markClass acute <anchor 0 0> @TOP;\n" +
		"markClass acute <anchor 0 100> @BOTTOM;\n" +
		"feature mark {\n" +
		"  pos base a <anchor 1 1> mark @TOP <anchor 2 2> mark @BOTTOM;\n" +
		"} mark;"
	tree, _ := feasyn.Parse(src, nil)
	_, diags := Validate(tree, testGlyphs())
	found := false
	for _, m := range errorMessages(diags) {
		if strings.Contains(m, "mark classes") {
			found = true
		}
	}
	assert.True(t, found, "expected a mark-class coherence error, have %v", diags)
}

func TestValidateMonotonicity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	// adding an unrelated declaration must not remove later errors
	base := "feature liga { sub f q by f_i; } liga;"
	_, diags1 := validateSource(t, base)
	_, diags2 := validateSource(t, "@extra = [a b];\n"+base)
	assert.Equal(t, len(errorMessages(diags1)), len(errorMessages(diags2)))
}

func TestValidateScriptTag(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t, "languagesystem toolong dflt;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "four characters")
	}
}

func TestValidateLanguagesystemOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.sem")
	defer teardown()
	_, diags := validateSource(t,
		"feature liga { sub f i by f_i; } liga;\nlanguagesystem DFLT dflt;")
	messages := errorMessages(diags)
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "precede")
	}
}
