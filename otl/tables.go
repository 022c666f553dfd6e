package otl

import (
	"sort"

	"golang.org/x/text/encoding/unicode"
)

// --- GDEF table -------------------------------------------------------------

// AttachPoints lists the attachment contour points for one glyph.
type AttachPoints struct {
	Glyph  GlyphIndex
	Points []uint16
}

// CaretValue is one ligature caret: either a coordinate or a contour point
// index.
type CaretValue struct {
	Coordinate int16
	PointIndex uint16
	ByIndex    bool
}

// LigCarets lists the caret values for one ligature glyph.
type LigCarets struct {
	Glyph  GlyphIndex
	Carets []CaretValue
}

// GDefTable is the builder-side model of a Glyph Definition (GDEF) table:
// glyph classes, attachment points, ligature carets, mark attachment
// classes and mark glyph sets.
type GDefTable struct {
	GlyphClassDef          *ClassDef
	AttachmentPoints       []AttachPoints
	LigatureCarets         []LigCarets
	MarkAttachmentClassDef *ClassDef
	MarkGlyphSets          []Coverage
}

// IsEmpty reports whether the table carries no definitions at all.
func (t *GDefTable) IsEmpty() bool {
	return t == nil ||
		(t.GlyphClassDef.Len() == 0 && len(t.AttachmentPoints) == 0 &&
			len(t.LigatureCarets) == 0 && t.MarkAttachmentClassDef.Len() == 0 &&
			len(t.MarkGlyphSets) == 0)
}

// SortLists brings the attachment point and caret lists into canonical GID
// order.
func (t *GDefTable) SortLists() {
	sort.Slice(t.AttachmentPoints, func(i, j int) bool {
		return t.AttachmentPoints[i].Glyph < t.AttachmentPoints[j].Glyph
	})
	sort.Slice(t.LigatureCarets, func(i, j int) bool {
		return t.LigatureCarets[i].Glyph < t.LigatureCarets[j].Glyph
	})
}

// AddMarkGlyphSet registers a mark glyph set and returns its index, reusing
// an existing identical set.
func (t *GDefTable) AddMarkGlyphSet(cov Coverage) uint16 {
	for i, existing := range t.MarkGlyphSets {
		if coverageEqual(existing, cov) {
			return uint16(i)
		}
	}
	t.MarkGlyphSets = append(t.MarkGlyphSets, cov)
	return uint16(len(t.MarkGlyphSets) - 1)
}

func coverageEqual(a, b Coverage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- BASE table -------------------------------------------------------------

// BaseScript gives the baseline values of one script on one BASE axis: the
// default baseline tag plus one coordinate per baseline tag of the axis.
type BaseScript struct {
	Script          Tag
	DefaultBaseline Tag
	Coords          []int16 // parallel to the axis baseline tag list
}

// BaseAxis is one axis (horizontal or vertical) of a BASE table.
type BaseAxis struct {
	BaselineTags []Tag
	Scripts      []BaseScript
}

// IsEmpty reports whether the axis carries no data.
func (a *BaseAxis) IsEmpty() bool {
	return a == nil || (len(a.BaselineTags) == 0 && len(a.Scripts) == 0)
}

// BaseTable is the builder-side model of a Baseline (BASE) table.
type BaseTable struct {
	Horizontal BaseAxis
	Vertical   BaseAxis
}

// IsEmpty reports whether both axes are empty.
func (t *BaseTable) IsEmpty() bool {
	return t == nil || (t.Horizontal.IsEmpty() && t.Vertical.IsEmpty())
}

// --- name table -------------------------------------------------------------

// Name table platform and encoding constants used by feature files.
const (
	PlatformMacintosh uint16 = 1
	PlatformWindows   uint16 = 3

	MacRomanEncoding   uint16 = 0
	WindowsUnicodeBMP  uint16 = 1
	MacEnglishLanguage uint16 = 0
	WindowsEnglishUS   uint16 = 0x0409
)

// NameRecord is one entry of the naming table. Value holds the decoded
// string; Encoded holds the platform-specific byte encoding (UTF-16BE for
// Windows, MacRoman-compatible bytes for Macintosh).
type NameRecord struct {
	PlatformID uint16
	EncodingID uint16
	LanguageID uint16
	NameID     uint16
	Value      string
	Encoded    []byte
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()

// NewNameRecord builds a name record, filling in platform defaults and the
// platform-specific encoding. Platform 3 (Windows) strings are encoded as
// UTF-16BE; platform 1 (Macintosh) strings keep their bytes as written.
func NewNameRecord(nameID, platformID, encodingID, languageID uint16, value string) NameRecord {
	rec := NameRecord{
		PlatformID: platformID,
		EncodingID: encodingID,
		LanguageID: languageID,
		NameID:     nameID,
		Value:      value,
	}
	if platformID == PlatformWindows {
		if encoded, err := utf16be.Bytes([]byte(value)); err == nil {
			rec.Encoded = encoded
		} else {
			tracer().Errorf("cannot encode name record %d as UTF-16: %v", nameID, err)
			rec.Encoded = []byte(value)
		}
	} else {
		rec.Encoded = []byte(value)
	}
	return rec
}

// WindowsNameRecord builds a Windows-platform name record with default
// encoding and language ids.
func WindowsNameRecord(nameID uint16, value string) NameRecord {
	return NewNameRecord(nameID, PlatformWindows, WindowsUnicodeBMP, WindowsEnglishUS, value)
}

// NameTable is the builder-side model of a naming table.
type NameTable struct {
	Records []NameRecord
}

// IsEmpty reports whether the table carries no records.
func (t *NameTable) IsEmpty() bool {
	return t == nil || len(t.Records) == 0
}

// Add appends a record.
func (t *NameTable) Add(rec NameRecord) {
	t.Records = append(t.Records, rec)
}

// Sort brings the records into the canonical order required by the spec:
// platform, encoding, language, then name id.
func (t *NameTable) Sort() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		a, b := t.Records[i], t.Records[j]
		if a.PlatformID != b.PlatformID {
			return a.PlatformID < b.PlatformID
		}
		if a.EncodingID != b.EncodingID {
			return a.EncodingID < b.EncodingID
		}
		if a.LanguageID != b.LanguageID {
			return a.LanguageID < b.LanguageID
		}
		return a.NameID < b.NameID
	})
}

// NextReservedNameID returns the next free name id in the font-specific
// range (256…32767), above any id already present.
func (t *NameTable) NextReservedNameID() uint16 {
	next := uint16(256)
	for _, rec := range t.Records {
		if rec.NameID >= next {
			next = rec.NameID + 1
		}
	}
	return next
}

// --- OS/2 table -------------------------------------------------------------

// OS2Table carries the OS/2 fields a feature file can override. Absent
// options leave the font's own values untouched.
type OS2Table struct {
	FSType         Option[uint16]
	TypoAscender   Option[int16]
	TypoDescender  Option[int16]
	TypoLineGap    Option[int16]
	WinAscent      Option[uint16]
	WinDescent     Option[uint16]
	XHeight        Option[int16]
	CapHeight      Option[int16]
	WeightClass    Option[uint16]
	WidthClass     Option[uint16]
	LowerOpSize    Option[uint16]
	UpperOpSize    Option[uint16]
	Panose         Option[[10]uint8]
	UnicodeRanges  []uint8 // bit indices into ulUnicodeRange1..4
	CodePageRanges []uint16
	Vendor         Option[string]
	FamilyClass    Option[int16]
}

// IsEmpty reports whether no field is set.
func (t *OS2Table) IsEmpty() bool {
	return t == nil || (t.FSType.IsNone() && t.TypoAscender.IsNone() &&
		t.TypoDescender.IsNone() && t.TypoLineGap.IsNone() &&
		t.WinAscent.IsNone() && t.WinDescent.IsNone() &&
		t.XHeight.IsNone() && t.CapHeight.IsNone() &&
		t.WeightClass.IsNone() && t.WidthClass.IsNone() &&
		t.LowerOpSize.IsNone() && t.UpperOpSize.IsNone() &&
		t.Panose.IsNone() && len(t.UnicodeRanges) == 0 &&
		len(t.CodePageRanges) == 0 && t.Vendor.IsNone() &&
		t.FamilyClass.IsNone())
}

// --- head, hhea, vhea -------------------------------------------------------

// HeadTable carries the single head field a feature file can set.
type HeadTable struct {
	FontRevision Option[float64]
}

// IsEmpty reports whether no field is set.
func (t *HeadTable) IsEmpty() bool {
	return t == nil || t.FontRevision.IsNone()
}

// HHeaTable carries the hhea fields a feature file can override.
type HHeaTable struct {
	CaretOffset Option[int16]
	Ascender    Option[int16]
	Descender   Option[int16]
	LineGap     Option[int16]
}

// IsEmpty reports whether no field is set.
func (t *HHeaTable) IsEmpty() bool {
	return t == nil || (t.CaretOffset.IsNone() && t.Ascender.IsNone() &&
		t.Descender.IsNone() && t.LineGap.IsNone())
}

// VHeaTable carries the vhea fields a feature file can override.
type VHeaTable struct {
	VertTypoAscender  Option[int16]
	VertTypoDescender Option[int16]
	VertTypoLineGap   Option[int16]
}

// IsEmpty reports whether no field is set.
func (t *VHeaTable) IsEmpty() bool {
	return t == nil || (t.VertTypoAscender.IsNone() &&
		t.VertTypoDescender.IsNone() && t.VertTypoLineGap.IsNone())
}

// --- STAT table -------------------------------------------------------------

// StatDesignAxis is one design axis of a STAT table.
type StatDesignAxis struct {
	Tag        Tag
	OrderIndex uint16
	Names      []NameRecord
}

// STAT axis value flags.
const (
	StatOlderSiblingFontAttribute uint16 = 0x0001
	StatElidableAxisValueName     uint16 = 0x0002
)

// StatAxisLocation fixes one axis at a value, optionally with a range
// (format 2) or a linked value (format 3).
type StatAxisLocation struct {
	Axis   Tag
	Value  float64
	Min    Option[float64]
	Max    Option[float64]
	Linked Option[float64]
}

// StatAxisValue is one axis-value record of a STAT table.
type StatAxisValue struct {
	Locations []StatAxisLocation
	Flags     uint16
	Names     []NameRecord
}

// StatTable is the builder-side model of a STAT table.
type StatTable struct {
	ElidedFallbackName   []NameRecord
	ElidedFallbackNameID Option[uint16]
	DesignAxes           []StatDesignAxis
	AxisValues           []StatAxisValue
}

// IsEmpty reports whether the table carries no data.
func (t *StatTable) IsEmpty() bool {
	return t == nil || (len(t.ElidedFallbackName) == 0 &&
		t.ElidedFallbackNameID.IsNone() && len(t.DesignAxes) == 0 &&
		len(t.AxisValues) == 0)
}

// --- vmtx table -------------------------------------------------------------

// VmtxOverride adjusts the vertical metrics of one glyph.
type VmtxOverride struct {
	Glyph        GlyphIndex
	VertOriginY  Option[int16]
	VertAdvanceY Option[int16]
}

// VmtxTable carries per-glyph vertical metric overrides.
type VmtxTable struct {
	Overrides []VmtxOverride
}

// IsEmpty reports whether the table carries no overrides.
func (t *VmtxTable) IsEmpty() bool {
	return t == nil || len(t.Overrides) == 0
}

// Override returns the override entry for a glyph, creating it if needed.
func (t *VmtxTable) Override(g GlyphIndex) *VmtxOverride {
	for i := range t.Overrides {
		if t.Overrides[i].Glyph == g {
			return &t.Overrides[i]
		}
	}
	t.Overrides = append(t.Overrides, VmtxOverride{Glyph: g})
	return &t.Overrides[len(t.Overrides)-1]
}

// Sort brings the overrides into canonical GID order.
func (t *VmtxTable) Sort() {
	sort.Slice(t.Overrides, func(i, j int) bool {
		return t.Overrides[i].Glyph < t.Overrides[j].Glyph
	})
}
