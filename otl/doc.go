/*
Package otl models OpenType layout tables from the builder's side.

Where a font parser navigates binary table data, this package holds the
fully decoded structures a feature compiler produces: coverage sets, class
definitions, value records, anchors, lookups with their subtables, feature
records, and the non-layout tables a feature file can populate (GDEF, BASE,
name, OS/2, head, hhea, vhea, STAT, vmtx). Serialization to bytes is not
part of this package; finished tables are handed to a TableBuilder sink as
structured values.

Canonical orderings are enforced at construction time: coverage sets are
GID-sorted and duplicate-free, class definitions expose their glyphs in GID
order, and lookup indices are stable once assigned.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package otl

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fea.otl'
func tracer() tracing.Trace {
	return tracing.Select("fea.otl")
}
