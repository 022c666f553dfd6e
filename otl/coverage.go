package otl

import (
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
)

// Coverage denotes an indexed set of glyphs.
// Each lookup subtable references a coverage specifying all the glyphs
// affected by the substitution or positioning operation described in the
// subtable. Coverage order assigns each covered glyph its coverage index.
//
// Coverages built by this package are canonical: GID-sorted and
// duplicate-free.
type Coverage []GlyphIndex

// Match returns the coverage index for a glyph, and true if present.
func (c Coverage) Match(g GlyphIndex) (int, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i] >= g })
	if i < len(c) && c[i] == g {
		return i, true
	}
	return 0, false
}

// Contains reports whether a glyph is present in the coverage.
func (c Coverage) Contains(g GlyphIndex) bool {
	_, ok := c.Match(g)
	return ok
}

// Len returns the number of covered glyphs.
func (c Coverage) Len() int {
	return len(c)
}

// glyphIndexComparator orders GlyphIndex values for the backing tree set.
func glyphIndexComparator(a, b interface{}) int {
	ga := a.(GlyphIndex)
	gb := b.(GlyphIndex)
	switch {
	case ga < gb:
		return -1
	case ga > gb:
		return 1
	}
	return 0
}

// CoverageBuilder accumulates glyphs and produces a canonical coverage.
// Duplicates collapse silently; the builder may be reused after Coverage.
type CoverageBuilder struct {
	set *treeset.Set
}

// NewCoverageBuilder returns an empty coverage builder.
func NewCoverageBuilder() *CoverageBuilder {
	return &CoverageBuilder{set: treeset.NewWith(glyphIndexComparator)}
}

// Add inserts glyphs into the coverage under construction.
func (cb *CoverageBuilder) Add(glyphs ...GlyphIndex) *CoverageBuilder {
	for _, g := range glyphs {
		cb.set.Add(g)
	}
	return cb
}

// Len returns the number of distinct glyphs added so far.
func (cb *CoverageBuilder) Len() int {
	return cb.set.Size()
}

// Coverage returns the accumulated glyphs as a canonical coverage.
func (cb *CoverageBuilder) Coverage() Coverage {
	values := cb.set.Values()
	cov := make(Coverage, len(values))
	for i, v := range values {
		cov[i] = v.(GlyphIndex)
	}
	return cov
}

// CoverageOf builds a canonical coverage from the given glyphs.
func CoverageOf(glyphs ...GlyphIndex) Coverage {
	return NewCoverageBuilder().Add(glyphs...).Coverage()
}

// --- Class definitions -----------------------------------------------------

// ClassDef groups glyphs into classes, denoted as integer values. Class 0
// is implicit and means "any glyph not otherwise classified"; glyphs are
// never stored for class 0.
type ClassDef struct {
	classes map[GlyphIndex]uint16
	count   uint16 // highest class value assigned
}

// NewClassDef returns an empty class definition.
func NewClassDef() *ClassDef {
	return &ClassDef{classes: make(map[GlyphIndex]uint16)}
}

// SetClass assigns a glyph to a class. Assigning class 0 removes the glyph
// from the definition.
func (cdef *ClassDef) SetClass(g GlyphIndex, class uint16) {
	if class == 0 {
		delete(cdef.classes, g)
		return
	}
	cdef.classes[g] = class
	if class > cdef.count {
		cdef.count = class
	}
}

// Class returns the class defined for a glyph, or 0 (= default class).
func (cdef *ClassDef) Class(g GlyphIndex) int {
	if cdef == nil {
		return 0
	}
	return int(cdef.classes[g])
}

// ClassCount returns the number of classes including the implicit class 0.
func (cdef *ClassDef) ClassCount() int {
	if cdef == nil {
		return 1
	}
	return int(cdef.count) + 1
}

// Len returns the number of explicitly classified glyphs.
func (cdef *ClassDef) Len() int {
	if cdef == nil {
		return 0
	}
	return len(cdef.classes)
}

// Glyphs returns all explicitly classified glyphs in GID order.
func (cdef *ClassDef) Glyphs() []GlyphIndex {
	if cdef == nil {
		return nil
	}
	cb := NewCoverageBuilder()
	for g := range cdef.classes {
		cb.Add(g)
	}
	return cb.Coverage()
}

// GlyphsOfClass returns the glyphs assigned to one class, in GID order.
func (cdef *ClassDef) GlyphsOfClass(class uint16) []GlyphIndex {
	if cdef == nil {
		return nil
	}
	cb := NewCoverageBuilder()
	for g, c := range cdef.classes {
		if c == class {
			cb.Add(g)
		}
	}
	return cb.Coverage()
}
