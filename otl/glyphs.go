package otl

import "iter"

// GlyphMap is a total, ordered mapping from glyph names and CIDs to glyph
// indices. Implementations are provided by callers (package fontmap has a
// ready-made one); the compiler core only consumes the interface.
type GlyphMap interface {
	// NumGlyphs returns the total glyph count of the font.
	NumGlyphs() int
	// Contains reports whether a glyph with the given name exists.
	Contains(name string) bool
	// GidFor resolves a glyph name to its glyph index.
	GidFor(name string) (GlyphIndex, bool)
	// GidForCID resolves a CID to its glyph index.
	GidForCID(cid int) (GlyphIndex, bool)
	// NameFor returns the glyph name for a glyph index.
	NameFor(gid GlyphIndex) (string, bool)
	// Glyphs iterates all glyphs in GID order.
	Glyphs() iter.Seq2[GlyphIndex, string]
}
