package feaast

import (
	"iter"
	"strconv"
	"strings"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feasyn"
)

// --- Glyph expressions ------------------------------------------------------

// GlyphExprKind discriminates the forms a glyph expression can take.
type GlyphExprKind int

const (
	GlyphExprName GlyphExprKind = iota
	GlyphExprCID
	GlyphExprClassRef
	GlyphExprLiteral
	GlyphExprRange
)

// GlyphExpr is a view over any glyph-denoting node: a glyph name, a CID, a
// class reference, a bracketed class literal, or a range inside a literal.
type GlyphExpr struct {
	n feasyn.Node
}

// AsGlyphExpr casts a node to a GlyphExpr view.
func AsGlyphExpr(n feasyn.Node) (GlyphExpr, bool) {
	switch n.Kind() {
	case feasyn.NodeGlyphName, feasyn.NodeGlyphCID, feasyn.NodeClassRef,
		feasyn.NodeGlyphClass, feasyn.NodeGlyphRange:
		return GlyphExpr{n: n}, true
	}
	return GlyphExpr{}, false
}

// Node returns the underlying syntax node.
func (g GlyphExpr) Node() feasyn.Node { return g.n }

// Span returns the expression's source span.
func (g GlyphExpr) Span() diag.Span { return g.n.Span() }

// Kind returns the expression's form.
func (g GlyphExpr) Kind() GlyphExprKind {
	switch g.n.Kind() {
	case feasyn.NodeGlyphCID:
		return GlyphExprCID
	case feasyn.NodeClassRef:
		return GlyphExprClassRef
	case feasyn.NodeGlyphClass:
		return GlyphExprLiteral
	case feasyn.NodeGlyphRange:
		return GlyphExprRange
	}
	return GlyphExprName
}

// Name returns the glyph name of a GlyphExprName view.
func (g GlyphExpr) Name() string {
	for el := range g.n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenName {
			return el.TokenText()
		}
	}
	return ""
}

// ClassName returns the referenced class name of a GlyphExprClassRef view,
// without the '@' sigil.
func (g GlyphExpr) ClassName() string {
	for el := range g.n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenClassName {
			return strings.TrimPrefix(el.TokenText(), "@")
		}
	}
	return ""
}

// CID returns the glyph CID of a GlyphExprCID view.
func (g GlyphExpr) CID() (int, bool) {
	for el := range g.n.Children() {
		if el.IsToken() && el.Token().Kind == feasyn.TokenCID {
			v, err := strconv.Atoi(strings.TrimPrefix(el.TokenText(), `\`))
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

// Members iterates the members of a class literal, each itself a GlyphExpr
// (name, CID, class reference or range).
func (g GlyphExpr) Members() iter.Seq[GlyphExpr] {
	return func(yield func(GlyphExpr) bool) {
		for child := range g.n.ChildNodes() {
			if m, ok := AsGlyphExpr(child); ok {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// RangeEnds returns the first and last glyph of a range expression.
func (g GlyphExpr) RangeEnds() (first, last GlyphExpr, ok bool) {
	var ends []GlyphExpr
	for child := range g.n.ChildNodes() {
		if m, mok := AsGlyphExpr(child); mok {
			ends = append(ends, m)
		}
	}
	if len(ends) != 2 {
		return GlyphExpr{}, GlyphExpr{}, false
	}
	return ends[0], ends[1], true
}

// --- Sequence elements ------------------------------------------------------

// SequenceElement is one slot of a rule context: a glyph expression,
// possibly marked with ' and possibly carrying an attached value record or
// contextual lookup references.
type SequenceElement struct {
	n feasyn.Node
}

// AsSequenceElement casts a node to a SequenceElement view.
func AsSequenceElement(n feasyn.Node) (SequenceElement, bool) {
	if n.Kind() != feasyn.NodeSequenceElement {
		return SequenceElement{}, false
	}
	return SequenceElement{n: n}, true
}

// Node returns the underlying syntax node.
func (e SequenceElement) Node() feasyn.Node { return e.n }

// Span returns the element's source span.
func (e SequenceElement) Span() diag.Span { return e.n.Span() }

// Glyphs returns the element's glyph expression.
func (e SequenceElement) Glyphs() (GlyphExpr, bool) {
	for child := range e.n.ChildNodes() {
		if expr, ok := AsGlyphExpr(child); ok {
			return expr, true
		}
	}
	return GlyphExpr{}, false
}

// IsMarked reports whether the element carries a ' contextual marker.
func (e SequenceElement) IsMarked() bool {
	_, _, ok := e.n.FirstTokenOfKind(feasyn.TokenQuote)
	return ok
}

// LookupRefs returns contextual lookup references attached to the element.
func (e SequenceElement) LookupRefs() []LookupRef {
	var refs []LookupRef
	for child := range e.n.ChildNodes() {
		if r, ok := AsLookupRef(child); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// Value returns a value record attached directly to the element.
func (e SequenceElement) Value() (ValueRecord, bool) {
	if child, ok := e.n.FirstChildOfKind(feasyn.NodeValueRecord); ok {
		return ValueRecord{n: child}, true
	}
	return ValueRecord{}, false
}

// --- Substitution rules -----------------------------------------------------

// SubRule is a view over a substitution rule.
type SubRule struct {
	n feasyn.Node
}

// AsSubRule casts a node to a SubRule view.
func AsSubRule(n feasyn.Node) (SubRule, bool) {
	if n.Kind() != feasyn.NodeSubRule {
		return SubRule{}, false
	}
	return SubRule{n: n}, true
}

// Node returns the underlying syntax node.
func (r SubRule) Node() feasyn.Node { return r.n }

// Span returns the rule's source span.
func (r SubRule) Span() diag.Span { return r.n.Span() }

// IsReverse reports whether the rule is a reverse chaining substitution
// (rsub / reversesub).
func (r SubRule) IsReverse() bool {
	return hasKeyword(r.n, "rsub") || hasKeyword(r.n, "reversesub")
}

// HasFrom reports whether the replacement uses 'from' (alternate sets).
func (r SubRule) HasFrom() bool { return hasKeyword(r.n, "from") }

// ReplacesWithNull reports whether the replacement is the NULL keyword.
func (r SubRule) ReplacesWithNull() bool { return hasKeyword(r.n, "NULL") }

// Input returns the sequence elements before 'by'/'from'.
func (r SubRule) Input() []SequenceElement {
	before, _ := r.splitElements()
	return before
}

// Replacement returns the sequence elements after 'by'/'from'.
func (r SubRule) Replacement() []SequenceElement {
	_, after := r.splitElements()
	return after
}

func (r SubRule) splitElements() (before, after []SequenceElement) {
	seenBy := false
	for el := range r.n.Children() {
		if el.IsToken() {
			if el.Token().Kind == feasyn.TokenKeyword &&
				(el.TokenText() == "by" || el.TokenText() == "from") {
				seenBy = true
			}
			continue
		}
		if e, ok := AsSequenceElement(el.AsNode()); ok {
			if seenBy {
				after = append(after, e)
			} else {
				before = append(before, e)
			}
		}
	}
	return before, after
}

// --- Positioning rules ------------------------------------------------------

// PosPartKind discriminates the constituents of a positioning rule body.
type PosPartKind int

const (
	PosPartElement PosPartKind = iota
	PosPartAnchor
	PosPartValue
	PosPartMark         // the 'mark' keyword introducing a mark class
	PosPartLigComponent // the 'ligComponent' separator
)

// PosPart is one constituent of a positioning rule body in source order.
type PosPart struct {
	Kind    PosPartKind
	Element SequenceElement // valid for PosPartElement
	Anchor  Anchor          // valid for PosPartAnchor
	Value   ValueRecord     // valid for PosPartValue
	Span    diag.Span
}

// PosRule is a view over a positioning rule. The concrete positioning
// flavour is derived from AttachKind, the presence of contextual markers,
// and the shape of Parts.
type PosRule struct {
	n feasyn.Node
}

// AsPosRule casts a node to a PosRule view.
func AsPosRule(n feasyn.Node) (PosRule, bool) {
	if n.Kind() != feasyn.NodePosRule {
		return PosRule{}, false
	}
	return PosRule{n: n}, true
}

// Node returns the underlying syntax node.
func (r PosRule) Node() feasyn.Node { return r.n }

// Span returns the rule's source span.
func (r PosRule) Span() diag.Span { return r.n.Span() }

// IsEnum reports whether the rule is an enumerated pair positioning.
func (r PosRule) IsEnum() bool {
	return hasKeyword(r.n, "enum") || hasKeyword(r.n, "enumerate")
}

// AttachKind returns "cursive", "base", "ligature" or "mark" for attachment
// rules, and the empty string for single/pair/contextual rules.
func (r PosRule) AttachKind() string {
	afterPos := false
	for el := range r.n.Children() {
		if !el.IsToken() || el.Token().Kind != feasyn.TokenKeyword {
			if !el.IsToken() {
				return "" // rule body started without an attachment keyword
			}
			continue
		}
		switch el.TokenText() {
		case "pos", "position":
			afterPos = true
		case "cursive", "base", "ligature", "mark":
			if afterPos {
				return el.TokenText()
			}
		}
	}
	return ""
}

// Parts iterates the rule body's constituents in source order, excluding
// the leading keywords and the attachment-kind keyword.
func (r PosRule) Parts() iter.Seq[PosPart] {
	return func(yield func(PosPart) bool) {
		bodyStarted := false
		for el := range r.n.Children() {
			if el.IsToken() {
				if el.Token().Kind != feasyn.TokenKeyword {
					continue
				}
				switch el.TokenText() {
				case "mark":
					if bodyStarted {
						if !yield(PosPart{Kind: PosPartMark, Span: el.Token().Span}) {
							return
						}
					}
				case "ligComponent":
					if !yield(PosPart{Kind: PosPartLigComponent, Span: el.Token().Span}) {
						return
					}
				}
				continue
			}
			child := el.AsNode()
			var part PosPart
			switch child.Kind() {
			case feasyn.NodeSequenceElement:
				bodyStarted = true
				part = PosPart{Kind: PosPartElement, Element: SequenceElement{n: child}, Span: child.Span()}
			case feasyn.NodeAnchor:
				bodyStarted = true
				part = PosPart{Kind: PosPartAnchor, Anchor: Anchor{n: child}, Span: child.Span()}
			case feasyn.NodeValueRecord:
				bodyStarted = true
				part = PosPart{Kind: PosPartValue, Value: ValueRecord{n: child}, Span: child.Span()}
			default:
				continue
			}
			if !yield(part) {
				return
			}
		}
	}
}

// --- Ignore rules -----------------------------------------------------------

// IgnoreRule is a view over an 'ignore sub' or 'ignore pos' rule.
type IgnoreRule struct {
	n feasyn.Node
}

// AsIgnoreRule casts a node to an IgnoreRule view.
func AsIgnoreRule(n feasyn.Node) (IgnoreRule, bool) {
	if n.Kind() != feasyn.NodeIgnoreRule {
		return IgnoreRule{}, false
	}
	return IgnoreRule{n: n}, true
}

// Node returns the underlying syntax node.
func (r IgnoreRule) Node() feasyn.Node { return r.n }

// Span returns the rule's source span.
func (r IgnoreRule) Span() diag.Span { return r.n.Span() }

// IsSub reports whether the rule ignores substitutions (vs positionings).
func (r IgnoreRule) IsSub() bool {
	return hasKeyword(r.n, "sub") || hasKeyword(r.n, "substitute")
}

// Contexts returns the comma-separated context sequences.
func (r IgnoreRule) Contexts() [][]SequenceElement {
	var contexts [][]SequenceElement
	var current []SequenceElement
	for el := range r.n.Children() {
		if el.IsToken() {
			if el.Token().Kind == feasyn.TokenComma {
				contexts = append(contexts, current)
				current = nil
			}
			continue
		}
		if e, ok := AsSequenceElement(el.AsNode()); ok {
			current = append(current, e)
		}
	}
	if len(current) > 0 || len(contexts) > 0 {
		contexts = append(contexts, current)
	}
	return contexts
}

// --- Anchors, value records, devices ----------------------------------------

// Anchor is a view over an <anchor ...> form.
type Anchor struct {
	n feasyn.Node
}

// AsAnchor casts a node to an Anchor view.
func AsAnchor(n feasyn.Node) (Anchor, bool) {
	if n.Kind() != feasyn.NodeAnchor {
		return Anchor{}, false
	}
	return Anchor{n: n}, true
}

// Node returns the underlying syntax node.
func (a Anchor) Node() feasyn.Node { return a.n }

// Span returns the anchor's source span.
func (a Anchor) Span() diag.Span { return a.n.Span() }

// IsNull reports whether the anchor is <anchor NULL>.
func (a Anchor) IsNull() bool { return hasKeyword(a.n, "NULL") }

// Name returns the referenced anchorDef name, if the anchor is named.
func (a Anchor) Name() (string, bool) {
	name, _, ok := firstName(a.n)
	return name, ok
}

// Coords returns the anchor coordinates of a literal anchor.
func (a Anchor) Coords() (x, y int, ok bool) {
	if a.IsNull() {
		return 0, 0, false
	}
	ints, _ := numbers(a.n)
	if len(ints) < 2 {
		return 0, 0, false
	}
	return ints[0], ints[1], true
}

// ContourPoint returns the optional contour point index.
func (a Anchor) ContourPoint() (int, bool) {
	if !hasKeyword(a.n, "contourpoint") {
		return 0, false
	}
	ints, _ := numbers(a.n)
	if len(ints) < 3 {
		return 0, false
	}
	return ints[2], true
}

// Devices returns the anchor's device tables, if present.
func (a Anchor) Devices() []Device {
	var devices []Device
	for child := range a.n.ChildNodes() {
		if child.Kind() == feasyn.NodeDevice {
			devices = append(devices, Device{n: child})
		}
	}
	return devices
}

// ValueRecord is a view over a value record in any of its source forms.
type ValueRecord struct {
	n feasyn.Node
}

// AsValueRecord casts a node to a ValueRecord view.
func AsValueRecord(n feasyn.Node) (ValueRecord, bool) {
	if n.Kind() != feasyn.NodeValueRecord {
		return ValueRecord{}, false
	}
	return ValueRecord{n: n}, true
}

// Node returns the underlying syntax node.
func (v ValueRecord) Node() feasyn.Node { return v.n }

// Span returns the record's source span.
func (v ValueRecord) Span() diag.Span { return v.n.Span() }

// IsNull reports whether the record is <NULL>.
func (v ValueRecord) IsNull() bool { return hasKeyword(v.n, "NULL") }

// Name returns the referenced valueRecordDef name, if the record is named.
func (v ValueRecord) Name() (string, bool) {
	name, _, ok := firstName(v.n)
	return name, ok
}

// Values returns the record's literal numbers: either one (an advance) or
// four (placement and advance for both axes).
func (v ValueRecord) Values() []int {
	ints, _ := numbers(v.n)
	return ints
}

// Devices returns the record's device tables, if present.
func (v ValueRecord) Devices() []Device {
	var devices []Device
	for child := range v.n.ChildNodes() {
		if child.Kind() == feasyn.NodeDevice {
			devices = append(devices, Device{n: child})
		}
	}
	return devices
}

// Device is a view over a <device ...> form.
type Device struct {
	n feasyn.Node
}

// AsDevice casts a node to a Device view.
func AsDevice(n feasyn.Node) (Device, bool) {
	if n.Kind() != feasyn.NodeDevice {
		return Device{}, false
	}
	return Device{n: n}, true
}

// Node returns the underlying syntax node.
func (d Device) Node() feasyn.Node { return d.n }

// IsNull reports whether the device is <device NULL>.
func (d Device) IsNull() bool { return hasKeyword(d.n, "NULL") }

// Adjustments returns (ppem size, delta) pairs.
func (d Device) Adjustments() [][2]int {
	ints, _ := numbers(d.n)
	var pairs [][2]int
	for i := 0; i+1 < len(ints); i += 2 {
		pairs = append(pairs, [2]int{ints[i], ints[i+1]})
	}
	return pairs
}

// --- Simple statements ------------------------------------------------------

// LookupFlagStmt is a view over a lookupflag statement.
type LookupFlagStmt struct {
	n feasyn.Node
}

// AsLookupFlagStmt casts a node to a LookupFlagStmt view.
func AsLookupFlagStmt(n feasyn.Node) (LookupFlagStmt, bool) {
	if n.Kind() != feasyn.NodeLookupFlag {
		return LookupFlagStmt{}, false
	}
	return LookupFlagStmt{n: n}, true
}

// Node returns the underlying syntax node.
func (s LookupFlagStmt) Node() feasyn.Node { return s.n }

// Span returns the statement's source span.
func (s LookupFlagStmt) Span() diag.Span { return s.n.Span() }

// RawValue returns the numeric flag value of the 'lookupflag 0;' form.
func (s LookupFlagStmt) RawValue() (int, bool) {
	ints, _ := numbers(s.n)
	if len(ints) == 0 {
		return 0, false
	}
	return ints[0], true
}

// HasFlag reports whether the named flag keyword is present.
func (s LookupFlagStmt) HasFlag(name string) bool { return hasKeyword(s.n, name) }

// MarkAttachmentClass returns the glyph expression following
// MarkAttachmentType, in source order relative to UseMarkFilteringSet.
func (s LookupFlagStmt) MarkAttachmentClass() (GlyphExpr, bool) {
	return s.classAfter("MarkAttachmentType")
}

// MarkFilteringSet returns the glyph expression following
// UseMarkFilteringSet.
func (s LookupFlagStmt) MarkFilteringSet() (GlyphExpr, bool) {
	return s.classAfter("UseMarkFilteringSet")
}

func (s LookupFlagStmt) classAfter(keyword string) (GlyphExpr, bool) {
	seen := false
	for el := range s.n.Children() {
		if el.IsToken() {
			if el.Token().Kind == feasyn.TokenKeyword {
				seen = el.TokenText() == keyword
			}
			continue
		}
		if expr, ok := AsGlyphExpr(el.AsNode()); ok {
			if seen {
				return expr, true
			}
			seen = false
		}
	}
	return GlyphExpr{}, false
}

// ScriptStmt is a view over a script statement.
type ScriptStmt struct {
	n feasyn.Node
}

// AsScriptStmt casts a node to a ScriptStmt view.
func AsScriptStmt(n feasyn.Node) (ScriptStmt, bool) {
	if n.Kind() != feasyn.NodeScriptStmt {
		return ScriptStmt{}, false
	}
	return ScriptStmt{n: n}, true
}

// Node returns the underlying syntax node.
func (s ScriptStmt) Node() feasyn.Node { return s.n }

// Tag returns the script tag.
func (s ScriptStmt) Tag() (Tag, bool) { return tagAt(s.n, 0) }

// LanguageStmt is a view over a language statement.
type LanguageStmt struct {
	n feasyn.Node
}

// AsLanguageStmt casts a node to a LanguageStmt view.
func AsLanguageStmt(n feasyn.Node) (LanguageStmt, bool) {
	if n.Kind() != feasyn.NodeLanguageStmt {
		return LanguageStmt{}, false
	}
	return LanguageStmt{n: n}, true
}

// Node returns the underlying syntax node.
func (s LanguageStmt) Node() feasyn.Node { return s.n }

// Tag returns the language tag.
func (s LanguageStmt) Tag() (Tag, bool) { return tagAt(s.n, 0) }

// ExcludesDefault reports whether default lookups are excluded.
func (s LanguageStmt) ExcludesDefault() bool {
	return hasKeyword(s.n, "exclude_dflt") || hasKeyword(s.n, "excludeDFLT")
}

// Required reports whether the language system marks the feature required.
func (s LanguageStmt) Required() bool { return hasKeyword(s.n, "required") }

// FeatureRef is a view over a feature cross-reference statement.
type FeatureRef struct {
	n feasyn.Node
}

// AsFeatureRef casts a node to a FeatureRef view.
func AsFeatureRef(n feasyn.Node) (FeatureRef, bool) {
	if n.Kind() != feasyn.NodeFeatureRef {
		return FeatureRef{}, false
	}
	return FeatureRef{n: n}, true
}

// Node returns the underlying syntax node.
func (r FeatureRef) Node() feasyn.Node { return r.n }

// Tag returns the referenced feature tag.
func (r FeatureRef) Tag() (Tag, bool) { return tagAt(r.n, 0) }

// Parameters is a view over a parameters statement.
type Parameters struct {
	n feasyn.Node
}

// AsParameters casts a node to a Parameters view.
func AsParameters(n feasyn.Node) (Parameters, bool) {
	if n.Kind() != feasyn.NodeParameters {
		return Parameters{}, false
	}
	return Parameters{n: n}, true
}

// Node returns the underlying syntax node.
func (p Parameters) Node() feasyn.Node { return p.n }

// Values returns the parameter values; the first may carry a fraction
// (a design size in decipoints).
func (p Parameters) Values() []float64 {
	_, floats := numbers(p.n)
	return floats
}

// SizeMenuName is a view over a sizemenuname statement.
type SizeMenuName struct {
	n feasyn.Node
}

// AsSizeMenuName casts a node to a SizeMenuName view.
func AsSizeMenuName(n feasyn.Node) (SizeMenuName, bool) {
	if n.Kind() != feasyn.NodeSizeMenuName {
		return SizeMenuName{}, false
	}
	return SizeMenuName{n: n}, true
}

// Node returns the underlying syntax node.
func (s SizeMenuName) Node() feasyn.Node { return s.n }

// IDs returns the optional platform/encoding/language id triple prefix.
func (s SizeMenuName) IDs() []int {
	ints, _ := numbers(s.n)
	return ints
}

// Value returns the menu name string.
func (s SizeMenuName) Value() (string, bool) { return stringValue(s.n) }
