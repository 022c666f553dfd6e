package otl

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTagString(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	if T("liga").String() != "liga" {
		t.Errorf("tag round trip failed: %q", T("liga").String())
	}
	if T("cv1").String() != "cv1 " {
		t.Errorf("short tags must pad with spaces: %q", T("cv1").String())
	}
	if DFLT.String() != "DFLT" {
		t.Errorf("DFLT tag mangled: %q", DFLT.String())
	}
}

func TestCoverageCanonicity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	cov := CoverageOf(7, 3, 7, 1, 3, 90)
	want := Coverage{1, 3, 7, 90}
	if len(cov) != len(want) {
		t.Fatalf("coverage not deduplicated: %v", cov)
	}
	for i := range want {
		if cov[i] != want[i] {
			t.Fatalf("coverage not sorted: %v", cov)
		}
	}
	if i, ok := cov.Match(7); !ok || i != 2 {
		t.Errorf("wrong coverage index for glyph 7: %d", i)
	}
	if cov.Contains(4) {
		t.Errorf("coverage claims absent glyph")
	}
}

func TestClassDef(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	cdef := NewClassDef()
	cdef.SetClass(10, 2)
	cdef.SetClass(11, 1)
	cdef.SetClass(12, 2)
	if cdef.Class(10) != 2 || cdef.Class(11) != 1 {
		t.Errorf("class lookup broken")
	}
	if cdef.Class(99) != 0 {
		t.Errorf("unclassified glyph must be class 0")
	}
	if cdef.ClassCount() != 3 {
		t.Errorf("expected 3 classes including class 0, have %d", cdef.ClassCount())
	}
	glyphs := cdef.GlyphsOfClass(2)
	if len(glyphs) != 2 || glyphs[0] != 10 || glyphs[1] != 12 {
		t.Errorf("wrong glyphs of class 2: %v", glyphs)
	}
}

func TestSingleSubstCanonical(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	sub := NewSingleSubst(map[GlyphIndex]GlyphIndex{9: 20, 3: 14, 5: 16})
	wantCov := Coverage{3, 5, 9}
	for i := range wantCov {
		if sub.Coverage[i] != wantCov[i] {
			t.Fatalf("coverage not canonical: %v", sub.Coverage)
		}
	}
	if sub.Substitutes[0] != 14 || sub.Substitutes[2] != 20 {
		t.Fatalf("substitutes not parallel to coverage: %v", sub.Substitutes)
	}
	if delta, uniform := sub.IsUniformDelta(); !uniform || delta != 11 {
		t.Errorf("expected uniform delta 11, have %d (%v)", delta, uniform)
	}
}

func TestLigatureSubstOrdering(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	sub := NewLigatureSubst(map[GlyphIndex][]Ligature{
		1: {
			{Components: []GlyphIndex{2}, Ligature: 10},
			{Components: []GlyphIndex{2, 3}, Ligature: 11},
		},
	})
	set := sub.LigatureSets[0]
	if len(set[0].Components) != 2 {
		t.Errorf("longer component sequences must precede shorter ones: %v", set)
	}
}

func TestValueRecordFormat(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	v := XAdvanceRecord(-120)
	if v.Format() != ValueFormatXAdvance {
		t.Errorf("wrong format bits 0x%x", v.Format())
	}
	full := ValueRecord{XPlacement: 1, YPlacement: 2, XAdvance: 3, YAdvance: 4}
	want := ValueFormatXPlacement | ValueFormatYPlacement | ValueFormatXAdvance | ValueFormatYAdvance
	if full.Format() != want {
		t.Errorf("wrong format bits 0x%x", full.Format())
	}
	if (ValueRecord{}).Format() != 0 {
		t.Errorf("zero record must have empty format")
	}
}

func TestLookupFlagMarkAttachment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	flag := LOOKUP_FLAG_IGNORE_LIGATURES.WithMarkAttachmentType(3)
	if flag.MarkAttachmentType() != 3 {
		t.Errorf("mark attachment class lost: 0x%x", flag)
	}
	if flag&LOOKUP_FLAG_IGNORE_LIGATURES == 0 {
		t.Errorf("flag bits lost when setting attachment class")
	}
}

func TestNameRecordEncoding(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	rec := WindowsNameRecord(9, "Ab")
	if rec.PlatformID != PlatformWindows || rec.EncodingID != WindowsUnicodeBMP {
		t.Fatalf("wrong platform defaults: %v", rec)
	}
	want := []byte{0, 'A', 0, 'b'}
	if len(rec.Encoded) != len(want) {
		t.Fatalf("UTF-16BE encoding wrong length: %v", rec.Encoded)
	}
	for i := range want {
		if rec.Encoded[i] != want[i] {
			t.Fatalf("UTF-16BE encoding mismatch: %v", rec.Encoded)
		}
	}
	mac := NewNameRecord(9, PlatformMacintosh, MacRomanEncoding, MacEnglishLanguage, "Ab")
	if string(mac.Encoded) != "Ab" {
		t.Errorf("Macintosh strings keep their bytes: %v", mac.Encoded)
	}
}

func TestNameTableSortAndReservedIDs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	nt := &NameTable{}
	nt.Add(WindowsNameRecord(300, "later"))
	nt.Add(NewNameRecord(9, PlatformMacintosh, 0, 0, "mac"))
	nt.Add(WindowsNameRecord(1, "family"))
	nt.Sort()
	if nt.Records[0].PlatformID != PlatformMacintosh {
		t.Errorf("platform 1 must sort first")
	}
	if next := nt.NextReservedNameID(); next != 301 {
		t.Errorf("expected next reserved id 301, have %d", next)
	}
}

func TestOptionBasics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.otl")
	defer teardown()
	some := Some(int16(800))
	if some.IsNone() || some.Or(0) != 800 {
		t.Errorf("Some misbehaves")
	}
	none := None[int16]()
	if none.IsSome() || none.Or(7) != 7 {
		t.Errorf("None misbehaves")
	}
}
