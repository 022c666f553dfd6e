/*
Package feasyn lexes and parses OpenType feature-file source into a lossless
concrete syntax tree.

The tree is "green": immutable, untyped, and full-fidelity. Every byte of the
input, including whitespace, comments and malformed regions, belongs to
exactly one token, and concatenating the leaves of a parse reproduces the
input byte for byte. Error recovery keeps the tree well-formed in the
presence of arbitrary syntax errors; skipped tokens collect under ERROR
nodes and diagnostics record what went wrong.

Typed views over the green tree live in the sister package feaast.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feasyn

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fea.syntax'
func tracer() tracing.Trace {
	return tracing.Select("fea.syntax")
}
