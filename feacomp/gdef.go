package feacomp

import (
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/otl"
)

// gdefUsage tracks glyph roles observed while compiling rules, for GDEF
// glyph-class synthesis when the source provides no explicit definitions.
type gdefUsage struct {
	bases     map[otl.GlyphIndex]bool
	ligatures map[otl.GlyphIndex]bool
	marks     map[otl.GlyphIndex]bool
}

// lowerGDef lowers an explicit table GDEF block. Explicit class definitions
// switch off synthesis; attachment points and ligature carets lower
// unconditionally.
func (c *compiler) lowerGDef(block feaast.TableBlock) {
	for stmt := range block.Statements() {
		if s, ok := feaast.AsGlyphClassDefStmt(stmt); ok {
			c.gdefExplicit = true
			cdef := otl.NewClassDef()
			for slot, expr := range s.Classes() {
				if expr == nil {
					continue
				}
				class := uint16(slot + 1) // base, ligature, mark, component
				for _, g := range c.st.ExprSetOf(*expr) {
					cdef.SetClass(g, class)
				}
			}
			c.gdef.GlyphClassDef = cdef
			continue
		}
		if s, ok := feaast.AsAttachStmt(stmt); ok {
			expr, ok := s.Glyphs()
			if !ok {
				continue
			}
			points := make([]uint16, 0, len(s.Points()))
			for _, p := range s.Points() {
				points = append(points, uint16(p))
			}
			for _, g := range c.st.ExprSetOf(expr) {
				c.gdef.AttachmentPoints = append(c.gdef.AttachmentPoints, otl.AttachPoints{
					Glyph: g, Points: points,
				})
			}
			continue
		}
		if s, ok := feaast.AsLigCaret(stmt); ok {
			expr, ok := s.Glyphs()
			if !ok {
				continue
			}
			carets := make([]otl.CaretValue, 0, len(s.Values()))
			for _, value := range s.Values() {
				if s.ByIndex() {
					carets = append(carets, otl.CaretValue{PointIndex: uint16(value), ByIndex: true})
				} else {
					carets = append(carets, otl.CaretValue{Coordinate: int16(value)})
				}
			}
			for _, g := range c.st.ExprSetOf(expr) {
				c.gdef.LigatureCarets = append(c.gdef.LigatureCarets, otl.LigCarets{
					Glyph: g, Carets: carets,
				})
			}
		}
	}
}

// synthesizeGDef infers a GDEF glyph-class definition from rule usage:
// mark-class membership wins over ligature formation, which wins over base
// attachment.
func (c *compiler) synthesizeGDef() {
	cdef := otl.NewClassDef()
	for _, g := range sortedGlyphs(c.usage.bases) {
		cdef.SetClass(g, uint16(otl.BaseGlyph))
	}
	for _, g := range sortedGlyphs(c.usage.ligatures) {
		cdef.SetClass(g, uint16(otl.LigatureGlyph))
	}
	for mc := range c.st.MarkClasses() {
		for _, g := range mc.AllGlyphs() {
			cdef.SetClass(g, uint16(otl.MarkGlyph))
		}
	}
	for _, g := range sortedGlyphs(c.usage.marks) {
		cdef.SetClass(g, uint16(otl.MarkGlyph))
	}
	if cdef.Len() > 0 {
		c.gdef.GlyphClassDef = cdef
	}
}

func sortedGlyphs(set map[otl.GlyphIndex]bool) []otl.GlyphIndex {
	cb := otl.NewCoverageBuilder()
	for g := range set {
		cb.Add(g)
	}
	return cb.Coverage()
}
