package otl

import "sort"

// GSUB LookupType 1: Single Substitution Subtable.
//
// Single substitution subtables tell a client to replace a single glyph with
// another glyph. The builder-side form stores the mapping with its coverage
// in canonical (GID-sorted) order; Substitutes is parallel to Coverage.
type SingleSubst struct {
	Coverage    Coverage
	Substitutes []GlyphIndex
}

// NewSingleSubst builds a canonical single-substitution subtable from a
// mapping.
func NewSingleSubst(mapping map[GlyphIndex]GlyphIndex) *SingleSubst {
	cov := make(Coverage, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	subst := make([]GlyphIndex, len(cov))
	for i, g := range cov {
		subst[i] = mapping[g]
	}
	return &SingleSubst{Coverage: cov, Substitutes: subst}
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *SingleSubst) LookupType() LookupType { return GSubLookupTypeSingle }

// IsUniformDelta reports whether all substitutions share one GID delta, in
// which case the subtable can serialize as format 1.
func (s *SingleSubst) IsUniformDelta() (int16, bool) {
	if len(s.Coverage) == 0 {
		return 0, false
	}
	delta := int32(s.Substitutes[0]) - int32(s.Coverage[0])
	for i := range s.Coverage {
		if int32(s.Substitutes[i])-int32(s.Coverage[i]) != delta {
			return 0, false
		}
	}
	return int16(delta), true
}

// EstimatedSize approximates the serialized subtable size.
func (s *SingleSubst) EstimatedSize() int {
	if _, uniform := s.IsUniformDelta(); uniform {
		return 6 + 4 + 2*len(s.Coverage)
	}
	return 6 + 2*len(s.Substitutes) + 4 + 2*len(s.Coverage)
}

// GSUB LookupType 2: Multiple Substitution Subtable.
//
// Replaces one glyph with a sequence of glyphs. Sequences is parallel to
// Coverage; an empty sequence deletes the glyph (the compiler builds one
// for "sub ... by NULL").
type MultipleSubst struct {
	Coverage  Coverage
	Sequences [][]GlyphIndex
}

// NewMultipleSubst builds a canonical multiple-substitution subtable.
func NewMultipleSubst(mapping map[GlyphIndex][]GlyphIndex) *MultipleSubst {
	cov := make(Coverage, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	seqs := make([][]GlyphIndex, len(cov))
	for i, g := range cov {
		seqs[i] = mapping[g]
	}
	return &MultipleSubst{Coverage: cov, Sequences: seqs}
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *MultipleSubst) LookupType() LookupType { return GSubLookupTypeMultiple }

// EstimatedSize approximates the serialized subtable size.
func (s *MultipleSubst) EstimatedSize() int {
	size := 6 + 2*len(s.Sequences) + 4 + 2*len(s.Coverage)
	for _, seq := range s.Sequences {
		size += 2 + 2*len(seq)
	}
	return size
}

// GSUB LookupType 3: Alternate Substitution Subtable.
//
// Provides the shaping engine with alternate glyph choices for covered
// glyphs. Alternates is parallel to Coverage.
type AlternateSubst struct {
	Coverage   Coverage
	Alternates [][]GlyphIndex
}

// NewAlternateSubst builds a canonical alternate-substitution subtable.
func NewAlternateSubst(mapping map[GlyphIndex][]GlyphIndex) *AlternateSubst {
	cov := make(Coverage, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	alts := make([][]GlyphIndex, len(cov))
	for i, g := range cov {
		alts[i] = mapping[g]
	}
	return &AlternateSubst{Coverage: cov, Alternates: alts}
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *AlternateSubst) LookupType() LookupType { return GSubLookupTypeAlternate }

// EstimatedSize approximates the serialized subtable size.
func (s *AlternateSubst) EstimatedSize() int {
	size := 6 + 2*len(s.Alternates) + 4 + 2*len(s.Coverage)
	for _, alt := range s.Alternates {
		size += 2 + 2*len(alt)
	}
	return size
}

// Ligature is one ligature in a ligature set: the components following the
// first glyph, plus the resulting ligature glyph.
type Ligature struct {
	Components []GlyphIndex // components after the first, in sequence order
	Ligature   GlyphIndex
}

// GSUB LookupType 4: Ligature Substitution Subtable.
//
// Replaces a sequence of glyphs with one ligature glyph. Coverage holds the
// first glyph of each sequence; LigatureSets is parallel to Coverage, each
// set ordered so that longer component sequences precede shorter ones (the
// OpenType requirement for correct preference).
type LigatureSubst struct {
	Coverage     Coverage
	LigatureSets [][]Ligature
}

// NewLigatureSubst builds a canonical ligature-substitution subtable. Within
// each set, source order is preserved for equal-length sequences and longer
// sequences are moved ahead of shorter ones.
func NewLigatureSubst(sets map[GlyphIndex][]Ligature) *LigatureSubst {
	cov := make(Coverage, 0, len(sets))
	for g := range sets {
		cov = append(cov, g)
	}
	sort.Slice(cov, func(i, j int) bool { return cov[i] < cov[j] })
	ligSets := make([][]Ligature, len(cov))
	for i, g := range cov {
		set := append([]Ligature(nil), sets[g]...)
		sort.SliceStable(set, func(a, b int) bool {
			return len(set[a].Components) > len(set[b].Components)
		})
		ligSets[i] = set
	}
	return &LigatureSubst{Coverage: cov, LigatureSets: ligSets}
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *LigatureSubst) LookupType() LookupType { return GSubLookupTypeLigature }

// EstimatedSize approximates the serialized subtable size.
func (s *LigatureSubst) EstimatedSize() int {
	size := 6 + 2*len(s.LigatureSets) + 4 + 2*len(s.Coverage)
	for _, set := range s.LigatureSets {
		size += 2 + 2*len(set)
		for _, lig := range set {
			size += 4 + 2*len(lig.Components)
		}
	}
	return size
}

// GSUB LookupType 5: Contextual Substitution Subtable (format 3).
type ContextSubst struct {
	SequenceContext
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *ContextSubst) LookupType() LookupType { return GSubLookupTypeContext }

// EstimatedSize approximates the serialized subtable size.
func (s *ContextSubst) EstimatedSize() int { return s.estimatedSize() }

// GSUB LookupType 6: Chained Contextual Substitution Subtable (format 3).
type ChainedContextSubst struct {
	SequenceContext
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *ChainedContextSubst) LookupType() LookupType { return GSubLookupTypeChainingContext }

// EstimatedSize approximates the serialized subtable size.
func (s *ChainedContextSubst) EstimatedSize() int { return s.estimatedSize() }

// GSUB LookupType 8: Reverse Chaining Single Substitution Subtable.
//
// Applied in reverse text order, replacing covered glyphs one at a time.
// Substitutes is parallel to Coverage.
type ReverseChainSubst struct {
	Backtrack   []Coverage
	Coverage    Coverage
	Lookahead   []Coverage
	Substitutes []GlyphIndex
}

// NewReverseChainSubst builds a canonical reverse-chaining subtable.
func NewReverseChainSubst(mapping map[GlyphIndex]GlyphIndex, backtrack, lookahead []Coverage) *ReverseChainSubst {
	single := NewSingleSubst(mapping)
	return &ReverseChainSubst{
		Backtrack:   backtrack,
		Coverage:    single.Coverage,
		Lookahead:   lookahead,
		Substitutes: single.Substitutes,
	}
}

// LookupType returns the GSUB lookup type of this subtable.
func (s *ReverseChainSubst) LookupType() LookupType { return GSubLookupTypeReverseChaining }

// EstimatedSize approximates the serialized subtable size.
func (s *ReverseChainSubst) EstimatedSize() int {
	size := 10 + 2*len(s.Substitutes) + 4 + 2*len(s.Coverage)
	for _, c := range s.Backtrack {
		size += 2 + 4 + 2*c.Len()
	}
	for _, c := range s.Lookahead {
		size += 2 + 4 + 2*c.Len()
	}
	return size
}
