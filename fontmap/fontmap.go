/*
Package fontmap provides a GlyphMap implementation for the feature-file
compiler: an in-memory map built from an ordered glyph name list, either
given directly or read from a font parsed by golang.org/x/image/font/sfnt.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package fontmap

import (
	"fmt"
	"iter"

	"golang.org/x/image/font/sfnt"

	"github.com/npillmayer/feafile/otl"
)

// Ordered is a GlyphMap over an ordered glyph name list: the position of a
// name is its glyph index, and CIDs map to glyph indices directly.
type Ordered struct {
	names []string
	gids  map[string]otl.GlyphIndex
}

// NewOrdered builds a glyph map from names in GID order. Glyph 0 should be
// the font's .notdef glyph, following OpenType convention, but this is not
// enforced.
func NewOrdered(names []string) *Ordered {
	m := &Ordered{
		names: names,
		gids:  make(map[string]otl.GlyphIndex, len(names)),
	}
	for i, name := range names {
		if _, exists := m.gids[name]; !exists {
			m.gids[name] = otl.GlyphIndex(i)
		}
	}
	return m
}

// NumGlyphs returns the total glyph count.
func (m *Ordered) NumGlyphs() int {
	return len(m.names)
}

// Contains reports whether a glyph with the given name exists.
func (m *Ordered) Contains(name string) bool {
	_, ok := m.gids[name]
	return ok
}

// GidFor resolves a glyph name to its glyph index.
func (m *Ordered) GidFor(name string) (otl.GlyphIndex, bool) {
	gid, ok := m.gids[name]
	return gid, ok
}

// GidForCID resolves a CID to its glyph index. In an ordered map CIDs are
// glyph indices.
func (m *Ordered) GidForCID(cid int) (otl.GlyphIndex, bool) {
	if cid < 0 || cid >= len(m.names) {
		return 0, false
	}
	return otl.GlyphIndex(cid), true
}

// NameFor returns the glyph name for a glyph index.
func (m *Ordered) NameFor(gid otl.GlyphIndex) (string, bool) {
	if int(gid) >= len(m.names) {
		return "", false
	}
	return m.names[gid], true
}

// Glyphs iterates all glyphs in GID order.
func (m *Ordered) Glyphs() iter.Seq2[otl.GlyphIndex, string] {
	return func(yield func(otl.GlyphIndex, string) bool) {
		for i, name := range m.names {
			if !yield(otl.GlyphIndex(i), name) {
				return
			}
		}
	}
}

// FromSFNT builds a glyph map from a font parsed by
// golang.org/x/image/font/sfnt, reading glyph names from the font's post
// table. Fonts without post-table names (CFF-based CID fonts, post format
// 3) yield empty names; such fonts are addressed by CID in feature files.
func FromSFNT(f *sfnt.Font) (*Ordered, error) {
	if f == nil {
		return nil, fmt.Errorf("fontmap: nil font")
	}
	var buf sfnt.Buffer
	count := f.NumGlyphs()
	names := make([]string, count)
	for i := 0; i < count; i++ {
		name, err := f.GlyphName(&buf, sfnt.GlyphIndex(i))
		if err != nil {
			return nil, fmt.Errorf("fontmap: cannot read glyph name %d: %w", i, err)
		}
		names[i] = name
	}
	return NewOrdered(names), nil
}
