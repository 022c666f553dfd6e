package feasem

import (
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/otl"
)

// The helpers below re-resolve views against the frozen symbol table for
// the compiler's benefit. They never report diagnostics: the validator has
// already checked everything, so failures simply yield zero values.

// SetOf returns the resolved glyph set of a sequence element.
func (st *SymbolTable) SetOf(e feaast.SequenceElement) GlyphSet {
	expr, ok := e.Glyphs()
	if !ok {
		return nil
	}
	return st.ExprSetOf(expr)
}

// ExprSetOf returns the memoized resolution of a glyph expression.
func (st *SymbolTable) ExprSetOf(expr feaast.GlyphExpr) GlyphSet {
	if set, ok := st.Resolutions[expr.Node().Green()]; ok {
		return set
	}
	return nil
}

// ValueOf resolves a value record view against the table.
func (st *SymbolTable) ValueOf(rec feaast.ValueRecord) otl.ValueRecord {
	if rec.IsNull() {
		return otl.ValueRecord{}
	}
	if name, ok := rec.Name(); ok {
		vr, _ := st.ValueRecord(name)
		return vr
	}
	values := rec.Values()
	var vr otl.ValueRecord
	switch len(values) {
	case 1:
		vr.XAdvance = int16(values[0])
	case 4:
		vr.XPlacement = int16(values[0])
		vr.YPlacement = int16(values[1])
		vr.XAdvance = int16(values[2])
		vr.YAdvance = int16(values[3])
	}
	devices := rec.Devices()
	if len(devices) == 4 {
		vr.XPlaDevice = deviceValue(devices[0])
		vr.YPlaDevice = deviceValue(devices[1])
		vr.XAdvDevice = deviceValue(devices[2])
		vr.YAdvDevice = deviceValue(devices[3])
	}
	return vr
}

// AnchorOf resolves an anchor view against the table.
func (st *SymbolTable) AnchorOf(a feaast.Anchor) AnchorValue {
	if a.IsNull() {
		return AnchorValue{Null: true}
	}
	if name, ok := a.Name(); ok {
		av, _ := st.Anchor(name)
		return av
	}
	x, y, _ := a.Coords()
	av := AnchorValue{X: int16(x), Y: int16(y)}
	if cp, ok := a.ContourPoint(); ok {
		av.ContourPoint = otl.Some(uint16(cp))
	}
	devices := a.Devices()
	if len(devices) == 2 {
		av.XDevice = deviceValue(devices[0])
		av.YDevice = deviceValue(devices[1])
	}
	return av
}
