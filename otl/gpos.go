package otl

import "sort"

// Device is a device table: per-ppem-size delta adjustments for one value.
type Device struct {
	Adjustments map[uint16]int8 // ppem size → delta
}

// IsEmpty reports whether the device carries no adjustments.
func (d *Device) IsEmpty() bool {
	return d == nil || len(d.Adjustments) == 0
}

// Value record format bits.
const (
	ValueFormatXPlacement uint16 = 0x0001
	ValueFormatYPlacement uint16 = 0x0002
	ValueFormatXAdvance   uint16 = 0x0004
	ValueFormatYAdvance   uint16 = 0x0008
	ValueFormatXPlaDevice uint16 = 0x0010
	ValueFormatYPlaDevice uint16 = 0x0020
	ValueFormatXAdvDevice uint16 = 0x0040
	ValueFormatYAdvDevice uint16 = 0x0080
)

// ValueRecord describes a positioning adjustment: placement and advance
// deltas in design units for both axes, plus optional device tables.
type ValueRecord struct {
	XPlacement int16
	YPlacement int16
	XAdvance   int16
	YAdvance   int16
	XPlaDevice *Device
	YPlaDevice *Device
	XAdvDevice *Device
	YAdvDevice *Device
}

// XAdvanceRecord returns a value record adjusting only the horizontal
// advance, the common form of kerning values.
func XAdvanceRecord(adv int16) ValueRecord {
	return ValueRecord{XAdvance: adv}
}

// IsZero reports whether the record adjusts nothing.
func (v ValueRecord) IsZero() bool {
	return v.XPlacement == 0 && v.YPlacement == 0 &&
		v.XAdvance == 0 && v.YAdvance == 0 &&
		v.XPlaDevice.IsEmpty() && v.YPlaDevice.IsEmpty() &&
		v.XAdvDevice.IsEmpty() && v.YAdvDevice.IsEmpty()
}

// Format computes the value-format bits describing which fields are present
// when serialized.
func (v ValueRecord) Format() uint16 {
	var format uint16
	if v.XPlacement != 0 {
		format |= ValueFormatXPlacement
	}
	if v.YPlacement != 0 {
		format |= ValueFormatYPlacement
	}
	if v.XAdvance != 0 {
		format |= ValueFormatXAdvance
	}
	if v.YAdvance != 0 {
		format |= ValueFormatYAdvance
	}
	if !v.XPlaDevice.IsEmpty() {
		format |= ValueFormatXPlaDevice
	}
	if !v.YPlaDevice.IsEmpty() {
		format |= ValueFormatYPlaDevice
	}
	if !v.XAdvDevice.IsEmpty() {
		format |= ValueFormatXAdvDevice
	}
	if !v.YAdvDevice.IsEmpty() {
		format |= ValueFormatYAdvDevice
	}
	return format
}

// serializedSize returns the byte size of the record under format bits.
func (v ValueRecord) serializedSize(format uint16) int {
	size := 0
	for bit := uint16(1); bit <= 0x80; bit <<= 1 {
		if format&bit != 0 {
			size += 2
		}
	}
	return size
}

// Anchor is an attachment point: a signed coordinate pair in design units,
// with an optional contour point index and optional device tables.
type Anchor struct {
	X            int16
	Y            int16
	ContourPoint Option[uint16]
	XDevice      *Device
	YDevice      *Device
}

// AnchorAt returns a plain format-1 anchor.
func AnchorAt(x, y int16) *Anchor {
	return &Anchor{X: x, Y: y}
}

func (a *Anchor) estimatedSize() int {
	if a == nil {
		return 0
	}
	if a.ContourPoint.IsSome() {
		return 8
	}
	if !a.XDevice.IsEmpty() || !a.YDevice.IsEmpty() {
		return 10 + 6 + 6
	}
	return 6
}

// --- GPOS subtables ---------------------------------------------------------

// GPOS LookupType 1: Single Adjustment Positioning Subtable.
// Values is parallel to Coverage.
type SinglePos struct {
	Coverage Coverage
	Values   []ValueRecord
}

// NewSinglePos builds a canonical single-positioning subtable.
func NewSinglePos(mapping map[GlyphIndex]ValueRecord) *SinglePos {
	cov := make(Coverage, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	values := make([]ValueRecord, len(cov))
	for i, g := range cov {
		values[i] = mapping[g]
	}
	return &SinglePos{Coverage: cov, Values: values}
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *SinglePos) LookupType() LookupType { return GPosLookupTypeSingle }

// CommonFormat returns the union of the value formats of all records.
func (s *SinglePos) CommonFormat() uint16 {
	var format uint16
	for _, v := range s.Values {
		format |= v.Format()
	}
	return format
}

// EstimatedSize approximates the serialized subtable size.
func (s *SinglePos) EstimatedSize() int {
	format := s.CommonFormat()
	var probe ValueRecord
	return 8 + len(s.Values)*probe.serializedSize(format) + 4 + 2*len(s.Coverage)
}

// PairValue is one glyph-pair adjustment of a format-1 pair subtable.
type PairValue struct {
	Second GlyphIndex
	V1     ValueRecord // applies to the first glyph
	V2     ValueRecord // applies to the second glyph
}

// GPOS LookupType 2 format 1: Pair Adjustment over pair sets.
// PairSets is parallel to Coverage (first glyphs); each set is ordered by
// second GID.
type PairPos struct {
	Coverage Coverage
	PairSets [][]PairValue
}

// NewPairPos builds a canonical pair-positioning subtable from per-first
// pair sets.
func NewPairPos(pairs map[GlyphIndex][]PairValue) *PairPos {
	cov := make(Coverage, 0, len(pairs))
	for g := range pairs {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	sets := make([][]PairValue, len(cov))
	for i, g := range cov {
		set := append([]PairValue(nil), pairs[g]...)
		sort.SliceStable(set, func(a, b int) bool { return set[a].Second < set[b].Second })
		sets[i] = set
	}
	return &PairPos{Coverage: cov, PairSets: sets}
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *PairPos) LookupType() LookupType { return GPosLookupTypePair }

func (s *PairPos) valueFormats() (uint16, uint16) {
	var f1, f2 uint16
	for _, set := range s.PairSets {
		for _, pv := range set {
			f1 |= pv.V1.Format()
			f2 |= pv.V2.Format()
		}
	}
	return f1, f2
}

// EstimatedSize approximates the serialized subtable size.
func (s *PairPos) EstimatedSize() int {
	f1, f2 := s.valueFormats()
	var probe ValueRecord
	recSize := 2 + probe.serializedSize(f1) + probe.serializedSize(f2)
	size := 10 + 2*len(s.PairSets) + 4 + 2*len(s.Coverage)
	for _, set := range s.PairSets {
		size += 2 + recSize*len(set)
	}
	return size
}

// ClassPairPos is GPOS LookupType 2 format 2: Pair Adjustment over class
// pairs. Matrix is indexed [class1][class2]; class 0 of ClassDef1 covers
// "any other covered glyph".
type ClassPairPos struct {
	Coverage  Coverage // all first glyphs
	ClassDef1 *ClassDef
	ClassDef2 *ClassDef
	Matrix    [][][2]ValueRecord
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *ClassPairPos) LookupType() LookupType { return GPosLookupTypePair }

// EstimatedSize approximates the serialized subtable size.
func (s *ClassPairPos) EstimatedSize() int {
	var f1, f2 uint16
	for _, row := range s.Matrix {
		for _, cell := range row {
			f1 |= cell[0].Format()
			f2 |= cell[1].Format()
		}
	}
	var probe ValueRecord
	cellSize := probe.serializedSize(f1) + probe.serializedSize(f2)
	c1 := s.ClassDef1.ClassCount()
	c2 := s.ClassDef2.ClassCount()
	return 16 + c1*c2*cellSize +
		6 + 2*s.ClassDef1.Len() + 6 + 2*s.ClassDef2.Len() +
		4 + 2*len(s.Coverage)
}

// EntryExit is one cursive attachment record.
type EntryExit struct {
	Entry *Anchor
	Exit  *Anchor
}

// GPOS LookupType 3: Cursive Attachment Positioning Subtable.
// Records is parallel to Coverage.
type CursivePos struct {
	Coverage Coverage
	Records  []EntryExit
}

// NewCursivePos builds a canonical cursive-attachment subtable.
func NewCursivePos(mapping map[GlyphIndex]EntryExit) *CursivePos {
	cov := make(Coverage, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	records := make([]EntryExit, len(cov))
	for i, g := range cov {
		records[i] = mapping[g]
	}
	return &CursivePos{Coverage: cov, Records: records}
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *CursivePos) LookupType() LookupType { return GPosLookupTypeCursive }

// EstimatedSize approximates the serialized subtable size.
func (s *CursivePos) EstimatedSize() int {
	size := 6 + 4*len(s.Records) + 4 + 2*len(s.Coverage)
	for _, r := range s.Records {
		size += r.Entry.estimatedSize() + r.Exit.estimatedSize()
	}
	return size
}

// MarkRecord classifies one mark glyph and gives its attachment anchor.
type MarkRecord struct {
	Class  uint16
	Anchor *Anchor
}

// MarkAttachPos is the shared shape of GPOS LookupTypes 4 (mark-to-base)
// and 6 (mark-to-mark): marks with class+anchor records attach to base
// glyphs carrying one anchor per mark class. BaseAnchors is parallel to
// BaseCoverage; each row has one entry per mark class (nil = no anchor).
type MarkAttachPos struct {
	MarkCoverage Coverage
	BaseCoverage Coverage
	MarkRecords  []MarkRecord // parallel to MarkCoverage
	BaseAnchors  [][]*Anchor  // [base][markClass]
	ToMark       bool         // true for mark-to-mark attachment
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *MarkAttachPos) LookupType() LookupType {
	if s.ToMark {
		return GPosLookupTypeMarkToMark
	}
	return GPosLookupTypeMarkToBase
}

// ClassCount returns the number of mark classes in this subtable.
func (s *MarkAttachPos) ClassCount() int {
	count := 0
	for _, rec := range s.MarkRecords {
		if int(rec.Class)+1 > count {
			count = int(rec.Class) + 1
		}
	}
	return count
}

// EstimatedSize approximates the serialized subtable size.
func (s *MarkAttachPos) EstimatedSize() int {
	size := 12 + 4 + 2*len(s.MarkCoverage) + 4 + 2*len(s.BaseCoverage)
	for _, rec := range s.MarkRecords {
		size += 4 + rec.Anchor.estimatedSize()
	}
	for _, row := range s.BaseAnchors {
		for _, a := range row {
			size += 2 + a.estimatedSize()
		}
	}
	return size
}

// MarkLigPos is GPOS LookupType 5: Mark-to-Ligature Attachment. Ligature
// attach rows are indexed [ligature][component][markClass].
type MarkLigPos struct {
	MarkCoverage     Coverage
	LigatureCoverage Coverage
	MarkRecords      []MarkRecord // parallel to MarkCoverage
	LigatureAnchors  [][][]*Anchor
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *MarkLigPos) LookupType() LookupType { return GPosLookupTypeMarkToLigature }

// EstimatedSize approximates the serialized subtable size.
func (s *MarkLigPos) EstimatedSize() int {
	size := 12 + 4 + 2*len(s.MarkCoverage) + 4 + 2*len(s.LigatureCoverage)
	for _, rec := range s.MarkRecords {
		size += 4 + rec.Anchor.estimatedSize()
	}
	for _, lig := range s.LigatureAnchors {
		size += 4
		for _, comp := range lig {
			for _, a := range comp {
				size += 2 + a.estimatedSize()
			}
		}
	}
	return size
}

// ContextPos is GPOS LookupType 7: Contextual Positioning (format 3).
type ContextPos struct {
	SequenceContext
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *ContextPos) LookupType() LookupType { return GPosLookupTypeContext }

// EstimatedSize approximates the serialized subtable size.
func (s *ContextPos) EstimatedSize() int { return s.estimatedSize() }

// ChainedContextPos is GPOS LookupType 8: Chained Contextual Positioning
// (format 3).
type ChainedContextPos struct {
	SequenceContext
}

// LookupType returns the GPOS lookup type of this subtable.
func (s *ChainedContextPos) LookupType() LookupType { return GPosLookupTypeChainingContext }

// EstimatedSize approximates the serialized subtable size.
func (s *ChainedContextPos) EstimatedSize() int { return s.estimatedSize() }
