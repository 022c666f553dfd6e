package feacomp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/fontmap"
	"github.com/npillmayer/feafile/otl"
)

// tableSink collects emitted tables in order.
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

func (s *tableSink) gsub() *otl.GSubTable {
	t, _ := s.tables[otl.T("GSUB")].(*otl.GSubTable)
	return t
}

func (s *tableSink) gpos() *otl.GPosTable {
	t, _ := s.tables[otl.T("GPOS")].(*otl.GPosTable)
	return t
}

func compileSource(t *testing.T, src string, glyphs otl.GlyphMap) (*tableSink, []diag.Diagnostic) {
	t.Helper()
	tree, pdiags := feasyn.Parse(src, nil)
	for _, d := range pdiags {
		if d.IsError() {
			t.Fatalf("parse error in test source: %v", d)
		}
	}
	symbols, vdiags := feasem.Validate(tree, glyphs)
	for _, d := range vdiags {
		if d.IsError() {
			t.Fatalf("validation error in test source: %v", d)
		}
	}
	sink := newTableSink()
	cdiags := Compile(tree, symbols, glyphs, sink)
	return sink, cdiags
}

func ligaGlyphs() otl.GlyphMap {
	return fontmap.NewOrdered([]string{".notdef", "f", "i", "f_i", "f_f_i"})
}

func TestCompileSingleSubstitution(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	src := "languagesystem DFLT dflt; feature liga { sub f by f_i; } liga;"
	sink, diags := compileSource(t, src, ligaGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	if gsub == nil {
		t.Fatalf("no GSUB table emitted")
	}
	if len(gsub.Lookups) != 1 {
		t.Fatalf("expected one lookup, have %d", len(gsub.Lookups))
	}
	lookup := gsub.Lookups[0]
	if lookup.Type != otl.GSubLookupTypeSingle {
		t.Fatalf("expected type-1 lookup, have %d", lookup.Type)
	}
	sub := lookup.Subtables[0].(*otl.SingleSubst)
	if diff := cmp.Diff(otl.Coverage{1}, sub.Coverage); diff != "" {
		t.Errorf("coverage mismatch (-want +have):\n%s", diff)
	}
	if diff := cmp.Diff([]otl.GlyphIndex{3}, sub.Substitutes); diff != "" {
		t.Errorf("substitutes mismatch (-want +have):\n%s", diff)
	}
	wantRecord := otl.FeatureRecord{
		Script: otl.DFLT, Language: otl.DfltLang, Feature: otl.T("liga"),
		Lookups: []uint16{0},
	}
	if diff := cmp.Diff([]otl.FeatureRecord{wantRecord}, gsub.Features); diff != "" {
		t.Errorf("feature records mismatch (-want +have):\n%s", diff)
	}
}

func TestCompileLigature(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	src := "languagesystem DFLT dflt; feature liga { sub f f i by f_f_i; } liga;"
	sink, diags := compileSource(t, src, ligaGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	if gsub == nil || len(gsub.Lookups) != 1 {
		t.Fatalf("expected one GSUB lookup")
	}
	lookup := gsub.Lookups[0]
	if lookup.Type != otl.GSubLookupTypeLigature {
		t.Fatalf("expected type-4 lookup, have %d", lookup.Type)
	}
	sub := lookup.Subtables[0].(*otl.LigatureSubst)
	if diff := cmp.Diff(otl.Coverage{1}, sub.Coverage); diff != "" {
		t.Errorf("first-glyph coverage mismatch:\n%s", diff)
	}
	want := []otl.Ligature{{Components: []otl.GlyphIndex{1, 2}, Ligature: 4}}
	if diff := cmp.Diff(want, sub.LigatureSets[0]); diff != "" {
		t.Errorf("ligature set mismatch:\n%s", diff)
	}
}

func kernGlyphs() otl.GlyphMap {
	return fontmap.NewOrdered([]string{".notdef", "one", "two", "three", "four", "A", "V", "W", "T", "o"})
}

func TestCompileKernPair(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	src := "languagesystem DFLT dflt; feature kern { pos A V -120; } kern;"
	sink, diags := compileSource(t, src, kernGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gpos := sink.gpos()
	if gpos == nil || len(gpos.Lookups) != 1 {
		t.Fatalf("expected one GPOS lookup")
	}
	lookup := gpos.Lookups[0]
	if lookup.Type != otl.GPosLookupTypePair {
		t.Fatalf("expected type-2 lookup, have %d", lookup.Type)
	}
	sub, ok := lookup.Subtables[0].(*otl.PairPos)
	if !ok {
		t.Fatalf("expected a format-1 pair subtable, have %T", lookup.Subtables[0])
	}
	if diff := cmp.Diff(otl.Coverage{5}, sub.Coverage); diff != "" {
		t.Errorf("coverage mismatch:\n%s", diff)
	}
	want := []otl.PairValue{{Second: 6, V1: otl.XAdvanceRecord(-120)}}
	if diff := cmp.Diff(want, sub.PairSets[0]); diff != "" {
		t.Errorf("pair set mismatch:\n%s", diff)
	}
}

func TestCompileMixedSingleAndLigature(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	// mixed kinds in one feature must become separate lookups in source order
	src := "languagesystem DFLT dflt;\n" +
		"feature test { sub f by f_i; sub f f i by f_f_i; sub i by f; } test;"
	sink, diags := compileSource(t, src, ligaGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	if len(gsub.Lookups) != 3 {
		t.Fatalf("expected three lookups for alternating rule kinds, have %d", len(gsub.Lookups))
	}
	types := []otl.LookupType{
		gsub.Lookups[0].Type, gsub.Lookups[1].Type, gsub.Lookups[2].Type,
	}
	want := []otl.LookupType{
		otl.GSubLookupTypeSingle, otl.GSubLookupTypeLigature, otl.GSubLookupTypeSingle,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("lookup order mismatch:\n%s", diff)
	}
	if len(gsub.Features) != 1 {
		t.Fatalf("expected one feature record, have %d", len(gsub.Features))
	}
	if diff := cmp.Diff([]uint16{0, 1, 2}, gsub.Features[0].Lookups); diff != "" {
		t.Errorf("lookup indices must preserve source order:\n%s", diff)
	}
}

func TestCompileSubtableBreak(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	src := "languagesystem DFLT dflt;\n" +
		"feature test { sub f by f_i; subtable; sub i by f_f_i; } test;"
	sink, diags := compileSource(t, src, ligaGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	if len(gsub.Lookups) != 1 {
		t.Fatalf("a forced split stays within one lookup, have %d lookups", len(gsub.Lookups))
	}
	if len(gsub.Lookups[0].Subtables) != 2 {
		t.Fatalf("expected two subtables after forced split, have %d",
			len(gsub.Lookups[0].Subtables))
	}
}

func TestCompileLanguageSystemFanOut(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	src := "languagesystem DFLT dflt;\n" +
		"languagesystem latn dflt;\n" +
		"languagesystem latn TRK;\n" +
		"feature liga {\n" +
		"  sub f by f_i;\n" +
		"  script latn;\n" +
		"  language TRK exclude_dflt;\n" +
		"  sub i by f;\n" +
		"} liga;"
	sink, diags := compileSource(t, src, ligaGlyphs())
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	byPair := make(map[[2]otl.Tag][]uint16)
	for _, rec := range gsub.Features {
		byPair[[2]otl.Tag{rec.Script, rec.Language}] = rec.Lookups
	}
	// the unguarded rule reaches all declared systems
	if diff := cmp.Diff([]uint16{0}, byPair[[2]otl.Tag{otl.DFLT, otl.DfltLang}]); diff != "" {
		t.Errorf("DFLT/dflt lookups mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]uint16{0}, byPair[[2]otl.Tag{otl.T("latn"), otl.DfltLang}]); diff != "" {
		t.Errorf("latn/dflt lookups mismatch:\n%s", diff)
	}
	// exclude_dflt drops the default lookups for latn/TRK
	if diff := cmp.Diff([]uint16{1}, byPair[[2]otl.Tag{otl.T("latn"), otl.T("TRK")}]); diff != "" {
		t.Errorf("latn/TRK lookups mismatch:\n%s", diff)
	}
}

func TestCompileAaltSynthesis(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "a.alt1", "a.alt2", "b", "b.swash"})
	src := "languagesystem DFLT dflt;\n" +
		"feature aalt { feature salt; feature swsh; } aalt;\n" +
		"feature salt { sub a from [a.alt1 a.alt2]; } salt;\n" +
		"feature swsh { sub b by b.swash; } swsh;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	var aaltLookups []uint16
	for _, rec := range gsub.Features {
		if rec.Feature == otl.T("aalt") {
			aaltLookups = rec.Lookups
		}
	}
	if len(aaltLookups) != 1 {
		t.Fatalf("expected one aalt lookup, have %v", aaltLookups)
	}
	lookup := gsub.Lookups[aaltLookups[0]]
	if lookup.Type != otl.GSubLookupTypeAlternate {
		t.Fatalf("aalt must synthesize an alternate lookup, have type %d", lookup.Type)
	}
	sub := lookup.Subtables[0].(*otl.AlternateSubst)
	if diff := cmp.Diff(otl.Coverage{1, 4}, sub.Coverage); diff != "" {
		t.Errorf("aalt coverage mismatch:\n%s", diff)
	}
	// a → its salt alternates, b → its swash form
	if diff := cmp.Diff([]otl.GlyphIndex{2, 3}, sub.Alternates[0]); diff != "" {
		t.Errorf("aggregated alternates for a mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]otl.GlyphIndex{5}, sub.Alternates[1]); diff != "" {
		t.Errorf("aggregated alternates for b mismatch:\n%s", diff)
	}
}

func TestCompileDeterminism(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{
		".notdef", "f", "i", "f_i", "f_f_i", "A", "V", "W", "T", "o",
	})
	src := "languagesystem DFLT dflt;\n" +
		"@caps = [A V W T];\n" +
		"feature liga { sub f f i by f_f_i; sub f i by f_i; } liga;\n" +
		"feature kern { pos A V -120; pos A W -100; pos T o -40; } kern;"
	run := func() ([]otl.FeatureRecord, [][]otl.Subtable, []otl.FeatureRecord) {
		sink, diags := compileSource(t, src, glyphs)
		for _, d := range diags {
			if d.IsError() {
				t.Fatalf("compile error: %v", d)
			}
		}
		var gsubSubs [][]otl.Subtable
		for _, l := range sink.gsub().Lookups {
			gsubSubs = append(gsubSubs, l.Subtables)
		}
		return sink.gsub().Features, gsubSubs, sink.gpos().Features
	}
	f1, s1, p1 := run()
	f2, s2, p2 := run()
	if diff := cmp.Diff(f1, f2); diff != "" {
		t.Errorf("GSUB feature records differ across runs:\n%s", diff)
	}
	if diff := cmp.Diff(s1, s2); diff != "" {
		t.Errorf("GSUB subtables differ across runs:\n%s", diff)
	}
	if diff := cmp.Diff(p1, p2); diff != "" {
		t.Errorf("GPOS feature records differ across runs:\n%s", diff)
	}
}

func TestCompileGDefSynthesis(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "e", "acute", "grave", "f", "i", "f_i"})
	src := "languagesystem DFLT dflt;\n" +
		"markClass [acute grave] <anchor 150 -10> @TOP;\n" +
		"feature liga { sub f i by f_i; } liga;\n" +
		"feature mark { pos base [a e] <anchor 250 450> mark @TOP; } mark;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gdef, ok := sink.tables[otl.T("GDEF")].(*otl.GDefTable)
	if !ok {
		t.Fatalf("no GDEF table synthesized")
	}
	cdef := gdef.GlyphClassDef
	if cdef.Class(3) != int(otl.MarkGlyph) || cdef.Class(4) != int(otl.MarkGlyph) {
		t.Errorf("mark glyphs misclassified")
	}
	if cdef.Class(7) != int(otl.LigatureGlyph) {
		t.Errorf("ligature output misclassified: class %d", cdef.Class(7))
	}
	if cdef.Class(1) != int(otl.BaseGlyph) || cdef.Class(2) != int(otl.BaseGlyph) {
		t.Errorf("attachment bases misclassified")
	}
}

func TestCompileEmissionOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "f", "i", "f_i", "A", "V"})
	src := "languagesystem DFLT dflt;\n" +
		"feature liga { sub f by f_i; } liga;\n" +
		"feature kern { pos A V -50; } kern;\n" +
		"table OS/2 { TypoAscender 800; } OS/2;\n" +
		"table hhea { Ascender 800; } hhea;\n" +
		"table name { nameid 9 \"Designer\"; } name;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	var order []string
	for _, tag := range sink.tags {
		order = append(order, tag.String())
	}
	want := []string{"GSUB", "GPOS", "name", "OS/2", "hhea"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("emission order mismatch:\n%s", diff)
	}
}

func TestCompileMarkToBase(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "e", "acute", "grave"})
	src := "languagesystem DFLT dflt;\n" +
		"markClass [acute grave] <anchor 150 -10> @TOP;\n" +
		"feature mark { pos base [a e] <anchor 250 450> mark @TOP; } mark;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gpos := sink.gpos()
	if gpos == nil || len(gpos.Lookups) != 1 {
		t.Fatalf("expected one GPOS lookup")
	}
	sub, ok := gpos.Lookups[0].Subtables[0].(*otl.MarkAttachPos)
	if !ok {
		t.Fatalf("expected mark attachment subtable, have %T", gpos.Lookups[0].Subtables[0])
	}
	if diff := cmp.Diff(otl.Coverage{3, 4}, sub.MarkCoverage); diff != "" {
		t.Errorf("mark coverage mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(otl.Coverage{1, 2}, sub.BaseCoverage); diff != "" {
		t.Errorf("base coverage mismatch:\n%s", diff)
	}
	if sub.MarkRecords[0].Anchor == nil || sub.MarkRecords[0].Anchor.X != 150 {
		t.Errorf("mark anchor lost")
	}
	if sub.BaseAnchors[0][0] == nil || sub.BaseAnchors[0][0].Y != 450 {
		t.Errorf("base anchor lost")
	}
}

func TestCompileChainContext(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "a", "b", "c", "b.alt"})
	src := "languagesystem DFLT dflt;\n" +
		"feature calt { sub a b' c by b.alt; } calt;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gsub := sink.gsub()
	// one anonymous single lookup plus the chaining lookup
	if len(gsub.Lookups) != 2 {
		t.Fatalf("expected two lookups (action + chain), have %d", len(gsub.Lookups))
	}
	if gsub.Lookups[0].Type != otl.GSubLookupTypeSingle {
		t.Errorf("anonymous action should be a single substitution")
	}
	chain := gsub.Lookups[1]
	if chain.Type != otl.GSubLookupTypeChainingContext {
		t.Fatalf("expected chaining context lookup, have type %d", chain.Type)
	}
	sub := chain.Subtables[0].(*otl.ChainedContextSubst)
	if len(sub.Backtrack) != 1 || len(sub.Input) != 1 || len(sub.Lookahead) != 1 {
		t.Fatalf("wrong context shape: %d/%d/%d",
			len(sub.Backtrack), len(sub.Input), len(sub.Lookahead))
	}
	if len(sub.Records) != 1 || sub.Records[0].LookupIndex != 0 {
		t.Errorf("chain must reference the anonymous action lookup: %v", sub.Records)
	}
	// the feature must reference only the chaining lookup
	if len(gsub.Features) != 1 {
		t.Fatalf("expected one feature record")
	}
	if diff := cmp.Diff([]uint16{1}, gsub.Features[0].Lookups); diff != "" {
		t.Errorf("feature should attach the chain lookup only:\n%s", diff)
	}
}

func TestCompileClassKernFormat2(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "A", "V", "W", "Y", "o", "e"})
	src := "languagesystem DFLT dflt;\n" +
		"@caps = [V W Y];\n" +
		"@round = [o e];\n" +
		"feature kern { pos @caps @round -60; } kern;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gpos := sink.gpos()
	if gpos == nil || len(gpos.Lookups) != 1 {
		t.Fatalf("expected one GPOS lookup")
	}
	sub, ok := gpos.Lookups[0].Subtables[0].(*otl.ClassPairPos)
	if !ok {
		t.Fatalf("class-based kerning must compile to a class-pair subtable, have %T",
			gpos.Lookups[0].Subtables[0])
	}
	if diff := cmp.Diff(otl.Coverage{2, 3, 4}, sub.Coverage); diff != "" {
		t.Errorf("first-glyph coverage mismatch:\n%s", diff)
	}
	if sub.ClassDef1.Class(2) != 1 || sub.ClassDef2.Class(5) != 1 {
		t.Errorf("class assignments wrong: %d %d",
			sub.ClassDef1.Class(2), sub.ClassDef2.Class(5))
	}
	cell := sub.Matrix[1][1]
	if cell[0].XAdvance != -60 {
		t.Errorf("class pair value lost: %v", cell)
	}
}

func TestCompileEnumPosExpandsToGlyphPairs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	glyphs := fontmap.NewOrdered([]string{".notdef", "A", "V", "W"})
	src := "languagesystem DFLT dflt;\n" +
		"feature kern { enum pos A [V W] -50; } kern;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("compile error: %v", d)
		}
	}
	gpos := sink.gpos()
	sub, ok := gpos.Lookups[0].Subtables[0].(*otl.PairPos)
	if !ok {
		t.Fatalf("enumerated kerning must yield glyph pairs, have %T",
			gpos.Lookups[0].Subtables[0])
	}
	if len(sub.PairSets[0]) != 2 {
		t.Errorf("expected two expanded pairs, have %d", len(sub.PairSets[0]))
	}
}

func TestCompileOversizeLigatureSet(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	// 90x90 component combinations behind one first glyph form a single
	// LigatureSet of ~80k bytes. Ligatures sharing a first glyph cannot be
	// split across subtables, so no split can bring this under the 16-bit
	// offset budget and the compiler must say so.
	names := []string{".notdef", "a", "lig"}
	for i := 0; i < 90; i++ {
		names = append(names, fmt.Sprintf("g%d", i))
	}
	glyphs := fontmap.NewOrdered(names)
	src := "languagesystem DFLT dflt;\n" +
		"@b = [g0 - g89];\n" +
		"feature liga { sub a @b @b by lig; } liga;"
	sink, diags := compileSource(t, src, glyphs)
	found := 0
	for _, d := range diags {
		if d.IsError() && strings.Contains(d.Message, "lookup too large even with extension") {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("expected exactly one oversize diagnostic, have %d: %v", found, diags)
	}
	if len(sink.tags) != 0 {
		t.Errorf("no tables may be emitted after a compile error, have %v", sink.tags)
	}
}

func TestCompileLargeSingleSubSplits(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.compile")
	defer teardown()
	// the same volume of data in a splittable lookup type must compile
	// cleanly into multiple subtables instead
	names := []string{".notdef"}
	for i := 0; i < 24000; i++ {
		names = append(names, fmt.Sprintf("u%d", i))
	}
	for i := 0; i < 24000; i++ {
		names = append(names, fmt.Sprintf("v%d", i))
	}
	glyphs := fontmap.NewOrdered(names)
	src := "languagesystem DFLT dflt;\n" +
		"@in = [u0 - u23999];\n" +
		"@out = [v0 - v23999];\n" +
		"feature ss01 { sub @in by @out; } ss01;"
	sink, diags := compileSource(t, src, glyphs)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("splittable data must not error: %v", d)
		}
	}
	gsub := sink.gsub()
	if gsub == nil || len(gsub.Lookups) != 1 {
		t.Fatalf("expected one lookup")
	}
	lookup := gsub.Lookups[0]
	if len(lookup.Subtables) < 2 {
		t.Fatalf("expected the mapping to split into multiple subtables, have %d",
			len(lookup.Subtables))
	}
	for _, sub := range lookup.Subtables {
		if sub.EstimatedSize() > otl.SubtableBudget {
			t.Errorf("split left an over-budget subtable of %d bytes", sub.EstimatedSize())
		}
	}
	if !lookup.UseExtension {
		t.Errorf("combined subtable data over the budget must promote the lookup to extension form")
	}
}
