package feaast

import (
	"iter"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feasyn"
)

// --- Name entries -----------------------------------------------------------

// NameEntry is a view over a name-table entry: a 'nameid' statement in a
// name table block, or a 'name' statement inside featureNames and
// cvParameters blocks.
type NameEntry struct {
	n feasyn.Node
}

// AsNameEntry casts a node to a NameEntry view.
func AsNameEntry(n feasyn.Node) (NameEntry, bool) {
	if n.Kind() != feasyn.NodeNameEntry {
		return NameEntry{}, false
	}
	return NameEntry{n: n}, true
}

// Node returns the underlying syntax node.
func (e NameEntry) Node() feasyn.Node { return e.n }

// Span returns the entry's source span.
func (e NameEntry) Span() diag.Span { return e.n.Span() }

// IDs returns the leading numeric ids. For a 'nameid' entry the first id is
// the name id, optionally followed by platform, encoding and language ids;
// for a 'name' entry the ids start with the optional platform id.
func (e NameEntry) IDs() []int {
	ints, _ := numbers(e.n)
	return ints
}

// Value returns the entry's string value.
func (e NameEntry) Value() (string, bool) { return stringValue(e.n) }

// nameEntries iterates the NameEntry children of a node.
func nameEntries(n feasyn.Node) iter.Seq[NameEntry] {
	return func(yield func(NameEntry) bool) {
		for child := range n.ChildNodes() {
			if entry, ok := AsNameEntry(child); ok {
				if !yield(entry) {
					return
				}
			}
		}
	}
}

// FeatureNames is a view over a featureNames block.
type FeatureNames struct {
	n feasyn.Node
}

// AsFeatureNames casts a node to a FeatureNames view.
func AsFeatureNames(n feasyn.Node) (FeatureNames, bool) {
	if n.Kind() != feasyn.NodeFeatureNames {
		return FeatureNames{}, false
	}
	return FeatureNames{n: n}, true
}

// Node returns the underlying syntax node.
func (f FeatureNames) Node() feasyn.Node { return f.n }

// Entries iterates the block's name entries.
func (f FeatureNames) Entries() iter.Seq[NameEntry] { return nameEntries(f.n) }

// CVParameters is a view over a cvParameters block.
type CVParameters struct {
	n feasyn.Node
}

// AsCVParameters casts a node to a CVParameters view.
func AsCVParameters(n feasyn.Node) (CVParameters, bool) {
	if n.Kind() != feasyn.NodeCVParameters {
		return CVParameters{}, false
	}
	return CVParameters{n: n}, true
}

// Node returns the underlying syntax node.
func (c CVParameters) Node() feasyn.Node { return c.n }

// Fields iterates the block's named fields (FeatUILabelNameID, Character,
// and friends).
func (c CVParameters) Fields() iter.Seq[TableField] {
	return func(yield func(TableField) bool) {
		for child := range c.n.ChildNodes() {
			if f, ok := AsTableField(child); ok {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// --- Table statements -------------------------------------------------------

// TableField is a view over a generic table field statement: a field name
// followed by values, possibly with a nested block of name entries or
// sub-fields (STAT).
type TableField struct {
	n feasyn.Node
}

// AsTableField casts a node to a TableField view.
func AsTableField(n feasyn.Node) (TableField, bool) {
	if n.Kind() != feasyn.NodeTableField {
		return TableField{}, false
	}
	return TableField{n: n}, true
}

// Node returns the underlying syntax node.
func (f TableField) Node() feasyn.Node { return f.n }

// Span returns the field's source span.
func (f TableField) Span() diag.Span { return f.n.Span() }

// Name returns the field name.
func (f TableField) Name() string {
	for el := range f.n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenName {
			return el.TokenText()
		}
	}
	return ""
}

// Values returns the field's numeric values.
func (f TableField) Values() []int {
	ints, _ := numbers(f.n)
	return ints
}

// FloatValues returns the field's numeric values with fractions preserved
// (head FontRevision, STAT axis locations).
func (f TableField) FloatValues() []float64 {
	_, floats := numbers(f.n)
	return floats
}

// StringValue returns the field's string value, if present.
func (f TableField) StringValue() (string, bool) { return stringValue(f.n) }

// Words returns the field's bare name tokens after the field name, in
// order: tags in BASE tag lists, flag names in STAT AxisValue blocks.
func (f TableField) Words() []string {
	var words []string
	first := true
	for el := range f.n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenName {
			if first {
				first = false
				continue
			}
			words = append(words, el.TokenText())
		}
	}
	return words
}

// NameEntries iterates name entries in the field's nested block.
func (f TableField) NameEntries() iter.Seq[NameEntry] { return nameEntries(f.n) }

// SubFields iterates nested sub-fields (STAT AxisValue's location lines).
func (f TableField) SubFields() iter.Seq[TableField] {
	return func(yield func(TableField) bool) {
		for child := range f.n.ChildNodes() {
			if sub, ok := AsTableField(child); ok {
				if !yield(sub) {
					return
				}
			}
		}
	}
}

// GlyphClasses returns glyph expressions appearing among the field values
// (vmtx overrides, BASE script lists do not use these, but GDEF-adjacent
// fields may).
func (f TableField) GlyphClasses() []GlyphExpr {
	var exprs []GlyphExpr
	for child := range f.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			exprs = append(exprs, expr)
		}
	}
	return exprs
}

// GlyphClassDefStmt is a view over a GDEF GlyphClassDef statement.
type GlyphClassDefStmt struct {
	n feasyn.Node
}

// AsGlyphClassDefStmt casts a node to a GlyphClassDefStmt view.
func AsGlyphClassDefStmt(n feasyn.Node) (GlyphClassDefStmt, bool) {
	if n.Kind() != feasyn.NodeGlyphClassDefStmt {
		return GlyphClassDefStmt{}, false
	}
	return GlyphClassDefStmt{n: n}, true
}

// Node returns the underlying syntax node.
func (s GlyphClassDefStmt) Node() feasyn.Node { return s.n }

// Span returns the statement's source span.
func (s GlyphClassDefStmt) Span() diag.Span { return s.n.Span() }

// Classes returns the four glyph class slots (base, ligature, mark,
// component) in order. Empty slots are absent views.
func (s GlyphClassDefStmt) Classes() [4]*GlyphExpr {
	var classes [4]*GlyphExpr
	slot := 0
	for el := range s.n.Children() {
		if el.IsToken() {
			if el.Token().Kind == feasyn.TokenComma {
				slot++
			}
			continue
		}
		if expr, ok := AsGlyphExpr(el.AsNode()); ok && slot < 4 {
			e := expr
			classes[slot] = &e
		}
	}
	return classes
}

// AttachStmt is a view over a GDEF Attach statement.
type AttachStmt struct {
	n feasyn.Node
}

// AsAttachStmt casts a node to an AttachStmt view.
func AsAttachStmt(n feasyn.Node) (AttachStmt, bool) {
	if n.Kind() != feasyn.NodeAttachStmt {
		return AttachStmt{}, false
	}
	return AttachStmt{n: n}, true
}

// Node returns the underlying syntax node.
func (s AttachStmt) Node() feasyn.Node { return s.n }

// Span returns the statement's source span.
func (s AttachStmt) Span() diag.Span { return s.n.Span() }

// Glyphs returns the glyphs the attachment points apply to.
func (s AttachStmt) Glyphs() (GlyphExpr, bool) {
	for child := range s.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			return expr, true
		}
	}
	return GlyphExpr{}, false
}

// Points returns the contour point indices.
func (s AttachStmt) Points() []int {
	ints, _ := numbers(s.n)
	return ints
}

// LigCaret is a view over a LigatureCaretByPos or LigatureCaretByIndex
// statement.
type LigCaret struct {
	n feasyn.Node
}

// AsLigCaret casts a node to a LigCaret view.
func AsLigCaret(n feasyn.Node) (LigCaret, bool) {
	if n.Kind() != feasyn.NodeLigCaretPos && n.Kind() != feasyn.NodeLigCaretIndex {
		return LigCaret{}, false
	}
	return LigCaret{n: n}, true
}

// Node returns the underlying syntax node.
func (s LigCaret) Node() feasyn.Node { return s.n }

// Span returns the statement's source span.
func (s LigCaret) Span() diag.Span { return s.n.Span() }

// ByIndex reports whether carets are given as contour point indices rather
// than coordinates.
func (s LigCaret) ByIndex() bool { return s.n.Kind() == feasyn.NodeLigCaretIndex }

// Glyphs returns the ligature glyphs the carets apply to.
func (s LigCaret) Glyphs() (GlyphExpr, bool) {
	for child := range s.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			return expr, true
		}
	}
	return GlyphExpr{}, false
}

// Values returns the caret positions or indices.
func (s LigCaret) Values() []int {
	ints, _ := numbers(s.n)
	return ints
}
