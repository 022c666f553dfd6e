/*
Package feacomp lowers validated feature-file syntax trees into OpenType
layout tables.

Lowering proceeds feature by feature, then language-system by
language-system. Rules are grouped into lookups of the narrowest OpenType
lookup type that expresses them, subtables split when they would exceed the
16-bit offset budget, and lookups promote to extension form when their
combined subtable data exceeds that budget; a single subtable that stays
over budget after splitting is reported as an error. Feature records fan lookups out over the declared
language systems; 'aalt' aggregates alternates from its referenced
features, and a GDEF table is synthesized from rule usage when the source
does not provide one.

Finished tables leave through the TableBuilder sink in a fixed order:
GDEF, GSUB, GPOS, BASE, name, OS/2, head, hhea, vhea, STAT, vmtx.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feacomp

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fea.compile'
func tracer() tracing.Trace {
	return tracing.Select("fea.compile")
}
