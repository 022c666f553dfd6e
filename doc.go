/*
Package feafile compiles Adobe OpenType feature files (FEA) into OpenType
layout tables.

FEA is a domain-specific language describing glyph substitution and
positioning rules used for shaping text: ligatures, kerning, contextual
alternates, language-specific forms. This module parses UTF-8 feature
source referring to glyphs by name or CID and produces in-memory table
structures (GSUB, GPOS, GDEF, BASE, name, OS/2, head, hhea, vhea, STAT,
vmtx) ready for assembly into a font.

The pipeline has three stages, each usable on its own:

▪︎ Parse produces a lossless, error-recovering concrete syntax tree that
retains every byte of the input, including whitespace, comments and
malformed regions (package feasyn, typed views in package feaast).

▪︎ Validate walks the tree, building an order-sensitive symbol table while
enforcing name resolution against a GlyphMap, block-context rules and
statement well-formedness; it keeps going past errors and accumulates
span-anchored diagnostics (package feasem).

▪︎ Compile lowers the validated tree into lookups, coverage tables, class
definitions and feature records, fanning features out over the declared
language systems (packages feacomp and otl).

The module performs no I/O and no byte serialization: include files come
through a FileResolver, glyph identities through a GlyphMap, and finished
tables leave through a TableBuilder sink. Command-line drivers, diagnostic
rendering and font assembly are the business of other modules.

The accepted dialect is the Adobe OpenType Feature File specification
v1.25 plus the commonly encountered extensions featureNames, cvParameters,
sizemenuname and useExtension.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feafile

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fea.compile'
func tracer() tracing.Trace {
	return tracing.Select("fea.compile")
}
