package feaast

import (
	"iter"
	"strconv"
	"strings"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feasyn"
)

// --- Shared helpers ---------------------------------------------------------

// numbers collects the signed numeric values directly below a node, pairing
// a hyphen token with the numeric token that follows it. Hexadecimal values
// are decoded with base 16; decimal values may carry a fractional part,
// which is truncated for the integer slice and preserved in the float slice.
func numbers(n feasyn.Node) (ints []int, floats []float64) {
	neg := false
	for el := range n.Children() {
		if !el.IsToken() {
			continue
		}
		switch el.Token().Kind {
		case feasyn.TokenHyphen:
			neg = true
		case feasyn.TokenNumber:
			f, err := strconv.ParseFloat(el.TokenText(), 64)
			if err != nil {
				neg = false
				continue
			}
			if neg {
				f = -f
			}
			ints = append(ints, int(f))
			floats = append(floats, f)
			neg = false
		case feasyn.TokenHexNumber:
			v, err := strconv.ParseUint(strings.TrimPrefix(el.TokenText(), "0x"), 16, 64)
			if err != nil {
				v, err = strconv.ParseUint(strings.TrimPrefix(el.TokenText(), "0X"), 16, 64)
			}
			if err != nil {
				neg = false
				continue
			}
			i := int(v)
			if neg {
				i = -i
			}
			ints = append(ints, i)
			floats = append(floats, float64(i))
			neg = false
		default:
			neg = false
		}
	}
	return ints, floats
}

// stringValue returns the unquoted text of the first string token below n.
func stringValue(n feasyn.Node) (string, bool) {
	if _, text, ok := n.FirstTokenOfKind(feasyn.TokenString); ok {
		return strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`), true
	}
	return "", false
}

// hasKeyword reports whether a keyword token with the given text appears
// directly below n.
func hasKeyword(n feasyn.Node, text string) bool {
	for el := range n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenKeyword && el.TokenText() == text {
			return true
		}
	}
	return false
}

// firstName returns the first NAME token's text and span below n.
func firstName(n feasyn.Node) (string, diag.Span, bool) {
	if tok, text, ok := n.FirstTokenOfKind(feasyn.TokenName); ok {
		return text, tok.Span, true
	}
	return "", diag.Span{}, false
}

// --- Tags -------------------------------------------------------------------

// Tag is a view over a NodeTag.
type Tag struct {
	n feasyn.Node
}

// AsTag casts a node to a Tag view.
func AsTag(n feasyn.Node) (Tag, bool) {
	if n.Kind() != feasyn.NodeTag {
		return Tag{}, false
	}
	return Tag{n: n}, true
}

// Node returns the underlying syntax node.
func (t Tag) Node() feasyn.Node { return t.n }

// Span returns the tag's source span.
func (t Tag) Span() diag.Span { return t.n.Span() }

// Text returns the tag text as written, without padding.
func (t Tag) Text() string {
	for el := range t.n.Children() {
		if el.IsToken() && !el.Token().Kind.IsTrivia() {
			return el.TokenText()
		}
	}
	return ""
}

// tagAt returns the i-th Tag child view of n (0-based).
func tagAt(n feasyn.Node, i int) (Tag, bool) {
	for child := range n.ChildNodes() {
		if child.Kind() == feasyn.NodeTag {
			if i == 0 {
				return Tag{n: child}, true
			}
			i--
		}
	}
	return Tag{}, false
}

// --- File and items ---------------------------------------------------------

// File is a view over the root node of a parse.
type File struct {
	n feasyn.Node
}

// AsFile casts a node to a File view.
func AsFile(n feasyn.Node) (File, bool) {
	if n.Kind() != feasyn.NodeFile {
		return File{}, false
	}
	return File{n: n}, true
}

// Node returns the underlying syntax node.
func (f File) Node() feasyn.Node { return f.n }

// Items iterates the file's top-level item nodes in source order, skipping
// trivia and error regions.
func (f File) Items() iter.Seq[feasyn.Node] {
	return func(yield func(feasyn.Node) bool) {
		for child := range f.n.ChildNodes() {
			if child.Kind() == feasyn.NodeError {
				continue
			}
			if !yield(child) {
				return
			}
		}
	}
}

// Include is a view over an include directive with its spliced file.
type Include struct {
	n feasyn.Node
}

// AsInclude casts a node to an Include view.
func AsInclude(n feasyn.Node) (Include, bool) {
	if n.Kind() != feasyn.NodeInclude {
		return Include{}, false
	}
	return Include{n: n}, true
}

// Node returns the underlying syntax node.
func (inc Include) Node() feasyn.Node { return inc.n }

// Inner returns the included file's parse as a File view plus its resolved
// path. ok is false when the include could not be resolved.
func (inc Include) Inner() (File, string, bool) {
	inner, path, ok := inc.n.InnerTree()
	if !ok {
		return File{}, "", false
	}
	f, ok := AsFile(inner)
	return f, path, ok
}

// LanguageSystem is a view over a languagesystem statement.
type LanguageSystem struct {
	n feasyn.Node
}

// AsLanguageSystem casts a node to a LanguageSystem view.
func AsLanguageSystem(n feasyn.Node) (LanguageSystem, bool) {
	if n.Kind() != feasyn.NodeLanguageSystem {
		return LanguageSystem{}, false
	}
	return LanguageSystem{n: n}, true
}

// Node returns the underlying syntax node.
func (ls LanguageSystem) Node() feasyn.Node { return ls.n }

// Script returns the script tag view.
func (ls LanguageSystem) Script() (Tag, bool) { return tagAt(ls.n, 0) }

// Language returns the language tag view.
func (ls LanguageSystem) Language() (Tag, bool) { return tagAt(ls.n, 1) }

// GlyphClassDef is a view over a named glyph class assignment (@C = [...];).
type GlyphClassDef struct {
	n feasyn.Node
}

// AsGlyphClassDef casts a node to a GlyphClassDef view.
func AsGlyphClassDef(n feasyn.Node) (GlyphClassDef, bool) {
	if n.Kind() != feasyn.NodeGlyphClassDef {
		return GlyphClassDef{}, false
	}
	return GlyphClassDef{n: n}, true
}

// Node returns the underlying syntax node.
func (d GlyphClassDef) Node() feasyn.Node { return d.n }

// Name returns the class name without the '@' sigil, plus its span.
func (d GlyphClassDef) Name() (string, diag.Span) {
	if tok, text, ok := d.n.FirstTokenOfKind(feasyn.TokenClassName); ok {
		return strings.TrimPrefix(text, "@"), tok.Span
	}
	return "", d.n.Span()
}

// Value returns the glyph expression on the right-hand side.
func (d GlyphClassDef) Value() (GlyphExpr, bool) {
	for child := range d.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			return expr, true
		}
	}
	return GlyphExpr{}, false
}

// MarkClassDef is a view over a markClass statement.
type MarkClassDef struct {
	n feasyn.Node
}

// AsMarkClassDef casts a node to a MarkClassDef view.
func AsMarkClassDef(n feasyn.Node) (MarkClassDef, bool) {
	if n.Kind() != feasyn.NodeMarkClassDef {
		return MarkClassDef{}, false
	}
	return MarkClassDef{n: n}, true
}

// Node returns the underlying syntax node.
func (d MarkClassDef) Node() feasyn.Node { return d.n }

// Glyphs returns the mark glyphs being classified.
func (d MarkClassDef) Glyphs() (GlyphExpr, bool) {
	for child := range d.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			return expr, true
		}
	}
	return GlyphExpr{}, false
}

// Anchor returns the shared attachment anchor.
func (d MarkClassDef) Anchor() (Anchor, bool) {
	if child, ok := d.n.FirstChildOfKind(feasyn.NodeAnchor); ok {
		return Anchor{n: child}, true
	}
	return Anchor{}, false
}

// Name returns the mark class name without the '@' sigil, plus its span.
func (d MarkClassDef) Name() (string, diag.Span) {
	if tok, text, ok := d.n.FirstTokenOfKind(feasyn.TokenClassName); ok {
		return strings.TrimPrefix(text, "@"), tok.Span
	}
	return "", d.n.Span()
}

// AnchorDef is a view over an anchorDef statement.
type AnchorDef struct {
	n feasyn.Node
}

// AsAnchorDef casts a node to an AnchorDef view.
func AsAnchorDef(n feasyn.Node) (AnchorDef, bool) {
	if n.Kind() != feasyn.NodeAnchorDef {
		return AnchorDef{}, false
	}
	return AnchorDef{n: n}, true
}

// Node returns the underlying syntax node.
func (d AnchorDef) Node() feasyn.Node { return d.n }

// Coords returns the anchor coordinates.
func (d AnchorDef) Coords() (x, y int, ok bool) {
	ints, _ := numbers(d.n)
	if len(ints) < 2 {
		return 0, 0, false
	}
	return ints[0], ints[1], true
}

// ContourPoint returns the optional contour point index.
func (d AnchorDef) ContourPoint() (int, bool) {
	if !hasKeyword(d.n, "contourpoint") {
		return 0, false
	}
	ints, _ := numbers(d.n)
	if len(ints) < 3 {
		return 0, false
	}
	return ints[2], true
}

// Name returns the defined anchor name and its span.
func (d AnchorDef) Name() (string, diag.Span, bool) {
	return firstName(d.n)
}

// ValueRecordDef is a view over a valueRecordDef statement.
type ValueRecordDef struct {
	n feasyn.Node
}

// AsValueRecordDef casts a node to a ValueRecordDef view.
func AsValueRecordDef(n feasyn.Node) (ValueRecordDef, bool) {
	if n.Kind() != feasyn.NodeValueRecordDef {
		return ValueRecordDef{}, false
	}
	return ValueRecordDef{n: n}, true
}

// Node returns the underlying syntax node.
func (d ValueRecordDef) Node() feasyn.Node { return d.n }

// Record returns the defined value record.
func (d ValueRecordDef) Record() (ValueRecord, bool) {
	if child, ok := d.n.FirstChildOfKind(feasyn.NodeValueRecord); ok {
		return ValueRecord{n: child}, true
	}
	return ValueRecord{}, false
}

// Name returns the defined record name and its span.
func (d ValueRecordDef) Name() (string, diag.Span, bool) {
	return firstName(d.n)
}

// --- Blocks -----------------------------------------------------------------

// FeatureBlock is a view over a feature block.
type FeatureBlock struct {
	n feasyn.Node
}

// AsFeatureBlock casts a node to a FeatureBlock view.
func AsFeatureBlock(n feasyn.Node) (FeatureBlock, bool) {
	if n.Kind() != feasyn.NodeFeatureBlock {
		return FeatureBlock{}, false
	}
	return FeatureBlock{n: n}, true
}

// Node returns the underlying syntax node.
func (b FeatureBlock) Node() feasyn.Node { return b.n }

// Tag returns the feature tag view (the opening one).
func (b FeatureBlock) Tag() (Tag, bool) { return tagAt(b.n, 0) }

// ClosingTag returns the closing feature tag view.
func (b FeatureBlock) ClosingTag() (Tag, bool) { return tagAt(b.n, 1) }

// UseExtension reports whether the block requests extension lookups.
func (b FeatureBlock) UseExtension() bool { return hasKeyword(b.n, "useExtension") }

// Statements iterates the block's statement nodes.
func (b FeatureBlock) Statements() iter.Seq[feasyn.Node] { return blockStatements(b.n) }

// LookupBlock is a view over a named lookup block.
type LookupBlock struct {
	n feasyn.Node
}

// AsLookupBlock casts a node to a LookupBlock view.
func AsLookupBlock(n feasyn.Node) (LookupBlock, bool) {
	if n.Kind() != feasyn.NodeLookupBlock {
		return LookupBlock{}, false
	}
	return LookupBlock{n: n}, true
}

// Node returns the underlying syntax node.
func (b LookupBlock) Node() feasyn.Node { return b.n }

// Label returns the lookup label and its span.
func (b LookupBlock) Label() (string, diag.Span, bool) {
	return firstName(b.n)
}

// UseExtension reports whether the block requests extension lookups.
func (b LookupBlock) UseExtension() bool { return hasKeyword(b.n, "useExtension") }

// Statements iterates the block's statement nodes.
func (b LookupBlock) Statements() iter.Seq[feasyn.Node] { return blockStatements(b.n) }

// TableBlock is a view over a table block.
type TableBlock struct {
	n feasyn.Node
}

// AsTableBlock casts a node to a TableBlock view.
func AsTableBlock(n feasyn.Node) (TableBlock, bool) {
	if n.Kind() != feasyn.NodeTableBlock {
		return TableBlock{}, false
	}
	return TableBlock{n: n}, true
}

// Node returns the underlying syntax node.
func (b TableBlock) Node() feasyn.Node { return b.n }

// Tag returns the table tag view.
func (b TableBlock) Tag() (Tag, bool) { return tagAt(b.n, 0) }

// Statements iterates the block's statement nodes.
func (b TableBlock) Statements() iter.Seq[feasyn.Node] { return blockStatements(b.n) }

// blockStatements iterates the statement nodes between the braces of a
// block node, skipping trivia, tags and error regions.
func blockStatements(n feasyn.Node) iter.Seq[feasyn.Node] {
	return func(yield func(feasyn.Node) bool) {
		inside := false
		for el := range n.Children() {
			if el.IsToken() {
				switch el.Token().Kind {
				case feasyn.TokenLBrace:
					inside = true
				case feasyn.TokenRBrace:
					inside = false
				}
				continue
			}
			child := el.AsNode()
			if !inside || child.Kind() == feasyn.NodeError || child.Kind() == feasyn.NodeTag {
				continue
			}
			if !yield(child) {
				return
			}
		}
	}
}

// LookupRef is a view over a lookup reference statement or a contextual
// inline lookup reference.
type LookupRef struct {
	n feasyn.Node
}

// AsLookupRef casts a node to a LookupRef view.
func AsLookupRef(n feasyn.Node) (LookupRef, bool) {
	if n.Kind() != feasyn.NodeLookupRef {
		return LookupRef{}, false
	}
	return LookupRef{n: n}, true
}

// Node returns the underlying syntax node.
func (r LookupRef) Node() feasyn.Node { return r.n }

// Label returns the referenced lookup label and its span.
func (r LookupRef) Label() (string, diag.Span, bool) {
	return firstName(r.n)
}
