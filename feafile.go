package feafile

import (
	"sort"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feacomp"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// GlyphMap gives glyph-name and CID resolution plus the total glyph count.
// Package fontmap provides ready-made implementations.
type GlyphMap = otl.GlyphMap

// FileResolver resolves include directives to canonical paths and source
// text. Include cycles are detected by the parser via canonical-path
// identity.
type FileResolver = feasyn.Resolver

// TableBuilder receives finished OpenType tables as structured values.
type TableBuilder = otl.TableBuilder

// Tree is the result of a parse: a positioned handle over the lossless
// concrete syntax tree.
type Tree = feasyn.Node

// SymbolTable is the validator's output.
type SymbolTable = feasem.SymbolTable

// Parse parses feature-file source into a lossless syntax tree. The
// resolver serves include directives and may be nil when the source is
// known to be self-contained. The tree is well-formed even in the presence
// of errors; all lex and parse diagnostics are returned alongside.
func Parse(source string, resolver FileResolver) (Tree, []diag.Diagnostic) {
	return feasyn.Parse(source, resolver)
}

// Validate checks a parse tree against the glyph map, returning the symbol
// table and validation diagnostics. Validation continues past errors; the
// symbol table is usable for compilation only when no diagnostic has error
// severity.
func Validate(tree Tree, glyphs GlyphMap) (*SymbolTable, []diag.Diagnostic) {
	return feasem.Validate(tree, glyphs)
}

// Compile lowers a validated tree into OpenType tables, emitting them
// through the builder sink. The symbols must stem from an error-free
// validation of the same tree.
func Compile(tree Tree, symbols *SymbolTable, glyphs GlyphMap, builder TableBuilder) []diag.Diagnostic {
	return feacomp.Compile(tree, symbols, glyphs, builder)
}

// ParseAndCompile runs the full pipeline: parse, validate, compile. Each
// stage runs only when the previous one produced no error-severity
// diagnostics; the diagnostics of all completed stages are returned
// together, ordered by stage and source position.
func ParseAndCompile(source string, resolver FileResolver, glyphs GlyphMap, builder TableBuilder) []diag.Diagnostic {
	tree, diags := Parse(source, resolver)
	if hasErrors(diags) {
		return inOrder(diags)
	}
	symbols, vdiags := Validate(tree, glyphs)
	diags = append(diags, vdiags...)
	if hasErrors(vdiags) {
		return inOrder(diags)
	}
	cdiags := Compile(tree, symbols, glyphs, builder)
	return inOrder(append(diags, cdiags...))
}

// inOrder sorts diagnostics by stage, then by span start, keeping the
// reported order of diagnostics that start at the same offset.
func inOrder(diags []diag.Diagnostic) []diag.Diagnostic {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Stage != diags[j].Stage {
			return diags[i].Stage < diags[j].Stage
		}
		return diags[i].Span.Start < diags[j].Span.Start
	})
	return diags
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}
