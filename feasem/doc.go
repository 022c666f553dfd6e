/*
Package feasem validates feature-file syntax trees.

The validator makes a single forward pass over the typed AST, building a
declaration-ordered symbol table (glyph classes, mark classes, named
anchors and value records, lookup labels) while checking name resolution
against the font's glyph map, statement legality per enclosing block,
substitution and positioning arity, mark-class coherence and lookup-flag
scoping. Feature files are order-sensitive: every name must be declared
before its first use, so resolution never looks ahead.

Validation continues past errors by substituting placeholder bindings for
unresolved names, so one mistake does not silence diagnostics for the rest
of the file. Compilation only proceeds when validation produced no
error-severity diagnostics.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feasem

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fea.sem'
func tracer() tracing.Trace {
	return tracing.Select("fea.sem")
}
