package feasem

import (
	"iter"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// GlyphSet is an ordered sequence of glyph indices. Order is declaration
// order; uniqueness is enforced at point of use (coverage construction),
// not here, because alternate sets are order-sensitive.
type GlyphSet []otl.GlyphIndex

// Contains reports whether the set contains a glyph.
func (gs GlyphSet) Contains(g otl.GlyphIndex) bool {
	for _, m := range gs {
		if m == g {
			return true
		}
	}
	return false
}

// AnchorValue is a resolved anchor: coordinates, an optional contour point,
// and a null marker for <anchor NULL>.
type AnchorValue struct {
	X            int16
	Y            int16
	ContourPoint otl.Option[uint16]
	XDevice      *otl.Device
	YDevice      *otl.Device
	Null         bool
}

// ToAnchor converts the value to the table model's anchor form, or nil for
// a null anchor.
func (av AnchorValue) ToAnchor() *otl.Anchor {
	if av.Null {
		return nil
	}
	return &otl.Anchor{
		X: av.X, Y: av.Y,
		ContourPoint: av.ContourPoint,
		XDevice:      av.XDevice,
		YDevice:      av.YDevice,
	}
}

// MarkMember is one markClass statement's contribution to a mark class: a
// glyph set sharing one anchor.
type MarkMember struct {
	Glyphs GlyphSet
	Anchor AnchorValue
}

// MarkClass collects the members of one named mark class. A class may be
// assembled by several markClass statements, each contributing glyphs with
// their shared anchor.
type MarkClass struct {
	Name    string
	Members []MarkMember
	Span    diag.Span // span of the first declaration
}

// AllGlyphs returns the union of all member glyph sets in declaration
// order.
func (mc *MarkClass) AllGlyphs() GlyphSet {
	var all GlyphSet
	for _, m := range mc.Members {
		all = append(all, m.Glyphs...)
	}
	return all
}

// AnchorFor returns the anchor associated with a glyph of this mark class.
func (mc *MarkClass) AnchorFor(g otl.GlyphIndex) (AnchorValue, bool) {
	for _, m := range mc.Members {
		if m.Glyphs.Contains(g) {
			return m.Anchor, true
		}
	}
	return AnchorValue{}, false
}

// LookupDef records a named lookup block for later reference.
type LookupDef struct {
	Label string
	Block feaast.LookupBlock
	Span  diag.Span
}

// FlagState is the effective lookup flag at one point of the source,
// including the resolved filtering sets.
type FlagState struct {
	Flag            otl.LookupFlag
	MarkAttachClass GlyphSet
	MarkFilterSet   GlyphSet
}

// SymbolTable is the validator's output: declaration-ordered maps of glyph
// classes, mark classes and lookup labels, plus per-node annotations the
// compiler reuses (resolved glyph expressions, effective lookup flags).
// The table is mutated only during validation and read-only afterwards.
type SymbolTable struct {
	glyphClasses *linkedhashmap.Map // name → GlyphSet
	markClasses  *linkedhashmap.Map // name → *MarkClass
	lookups      *linkedhashmap.Map // label → *LookupDef
	classSpans   map[string]diag.Span
	anchors      map[string]AnchorValue
	valueRecords map[string]otl.ValueRecord

	// Resolutions maps glyph-expression nodes to their resolved glyph sets.
	Resolutions map[*feasyn.GreenNode]GlyphSet
	// RuleFlags maps rule nodes to the lookup flag in effect for them.
	RuleFlags map[*feasyn.GreenNode]FlagState
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		glyphClasses: linkedhashmap.New(),
		markClasses:  linkedhashmap.New(),
		lookups:      linkedhashmap.New(),
		classSpans:   make(map[string]diag.Span),
		anchors:      make(map[string]AnchorValue),
		valueRecords: make(map[string]otl.ValueRecord),
		Resolutions:  make(map[*feasyn.GreenNode]GlyphSet),
		RuleFlags:    make(map[*feasyn.GreenNode]FlagState),
	}
}

// GlyphClass returns a declared glyph class by name.
func (st *SymbolTable) GlyphClass(name string) (GlyphSet, bool) {
	v, ok := st.glyphClasses.Get(name)
	if !ok {
		return nil, false
	}
	return v.(GlyphSet), true
}

// DefineGlyphClass binds a glyph class name, replacing any previous
// binding. The validator enforces the append-only redeclaration rule
// before calling this.
func (st *SymbolTable) DefineGlyphClass(name string, glyphs GlyphSet, span diag.Span) {
	st.glyphClasses.Put(name, glyphs)
	st.classSpans[name] = span
}

// GlyphClassSpan returns the declaration span of a glyph class.
func (st *SymbolTable) GlyphClassSpan(name string) (diag.Span, bool) {
	span, ok := st.classSpans[name]
	return span, ok
}

// GlyphClasses iterates the declared glyph classes in declaration order.
func (st *SymbolTable) GlyphClasses() iter.Seq2[string, GlyphSet] {
	return func(yield func(string, GlyphSet) bool) {
		it := st.glyphClasses.Iterator()
		for it.Next() {
			if !yield(it.Key().(string), it.Value().(GlyphSet)) {
				return
			}
		}
	}
}

// MarkClass returns a declared mark class by name.
func (st *SymbolTable) MarkClass(name string) (*MarkClass, bool) {
	v, ok := st.markClasses.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*MarkClass), true
}

// DefineMarkClass returns the mark class with the given name, creating it
// on first use.
func (st *SymbolTable) DefineMarkClass(name string, span diag.Span) *MarkClass {
	if mc, ok := st.MarkClass(name); ok {
		return mc
	}
	mc := &MarkClass{Name: name, Span: span}
	st.markClasses.Put(name, mc)
	return mc
}

// MarkClasses iterates the declared mark classes in declaration order.
func (st *SymbolTable) MarkClasses() iter.Seq[*MarkClass] {
	return func(yield func(*MarkClass) bool) {
		it := st.markClasses.Iterator()
		for it.Next() {
			if !yield(it.Value().(*MarkClass)) {
				return
			}
		}
	}
}

// Lookup returns a declared lookup definition by label.
func (st *SymbolTable) Lookup(label string) (*LookupDef, bool) {
	v, ok := st.lookups.Get(label)
	if !ok {
		return nil, false
	}
	return v.(*LookupDef), true
}

// DefineLookup records a named lookup block.
func (st *SymbolTable) DefineLookup(def *LookupDef) {
	st.lookups.Put(def.Label, def)
}

// Lookups iterates the declared lookups in declaration order.
func (st *SymbolTable) Lookups() iter.Seq[*LookupDef] {
	return func(yield func(*LookupDef) bool) {
		it := st.lookups.Iterator()
		for it.Next() {
			if !yield(it.Value().(*LookupDef)) {
				return
			}
		}
	}
}

// Anchor returns a named anchor from anchorDef.
func (st *SymbolTable) Anchor(name string) (AnchorValue, bool) {
	av, ok := st.anchors[name]
	return av, ok
}

// DefineAnchor binds a named anchor.
func (st *SymbolTable) DefineAnchor(name string, av AnchorValue) {
	st.anchors[name] = av
}

// ValueRecord returns a named value record from valueRecordDef.
func (st *SymbolTable) ValueRecord(name string) (otl.ValueRecord, bool) {
	vr, ok := st.valueRecords[name]
	return vr, ok
}

// DefineValueRecord binds a named value record.
func (st *SymbolTable) DefineValueRecord(name string, vr otl.ValueRecord) {
	st.valueRecords[name] = vr
}

// ResolutionFor returns the resolved glyph set of a glyph expression node.
func (st *SymbolTable) ResolutionFor(n feasyn.Node) (GlyphSet, bool) {
	gs, ok := st.Resolutions[n.Green()]
	return gs, ok
}

// FlagFor returns the effective lookup flag recorded for a rule node.
func (st *SymbolTable) FlagFor(n feasyn.Node) FlagState {
	return st.RuleFlags[n.Green()]
}
