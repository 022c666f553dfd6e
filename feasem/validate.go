package feasem

import (
	"fmt"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// Validate walks a parse tree, builds the symbol table and checks the
// spec-level constraints of the feature-file language. It continues past
// errors by substituting placeholder bindings for unresolved names, so the
// returned diagnostics cover as much of the input as is structurally
// reachable. Compilation must only proceed when no diagnostic has error
// severity.
func Validate(tree feasyn.Node, glyphs otl.GlyphMap) (*SymbolTable, []diag.Diagnostic) {
	v := &validator{
		st:     NewSymbolTable(),
		glyphs: glyphs,
		diags:  diag.NewCollector(diag.StageValidate),
	}
	file, ok := feaast.AsFile(tree)
	if !ok {
		v.diags.Error(tree.Span(), "validator input is not a parsed feature file")
		return v.st, v.diags.All()
	}
	v.walkFile(file)
	tracer().Debugf("validation finished with %d diagnostics", v.diags.Len())
	return v.st, v.diags.All()
}

type blockContext int

const (
	inTopLevel blockContext = iota
	inFeature
	inLookup
	inTable
)

type validator struct {
	st     *SymbolTable
	glyphs otl.GlyphMap
	diags  *diag.Collector

	flag        FlagState
	featureTag  string // tag of the enclosing feature block, if any
	sawFeature  bool
	markSeen   map[otl.GlyphIndex]string // mark class per glyph, per lookup scope
}

func (v *validator) errorAt(n feasyn.Node, format string, args ...any) {
	v.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityError,
		Span:     n.Span(),
		File:     n.File(),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (v *validator) errorSpan(file string, span diag.Span, message string, labels ...diag.Label) {
	v.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityError,
		Span:     span,
		File:     file,
		Message:  message,
		Labels:   labels,
	})
}

func (v *validator) warnAt(n feasyn.Node, format string, args ...any) {
	v.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Span:     n.Span(),
		File:     n.File(),
		Message:  fmt.Sprintf(format, args...),
	})
}

// --- File walk --------------------------------------------------------------

func (v *validator) walkFile(file feaast.File) {
	for item := range file.Items() {
		v.walkItem(item)
	}
}

func (v *validator) walkItem(n feasyn.Node) {
	switch n.Kind() {
	case feasyn.NodeLanguageSystem:
		v.checkLanguageSystem(n)
	case feasyn.NodeInclude:
		if inc, ok := feaast.AsInclude(n); ok {
			if inner, _, ok := inc.Inner(); ok {
				v.walkFile(inner)
			}
		}
	case feasyn.NodeGlyphClassDef:
		v.checkGlyphClassDef(n)
	case feasyn.NodeMarkClassDef:
		v.checkMarkClassDef(n)
	case feasyn.NodeAnchorDef:
		v.checkAnchorDef(n)
	case feasyn.NodeValueRecordDef:
		v.checkValueRecordDef(n)
	case feasyn.NodeFeatureBlock:
		v.sawFeature = true
		v.checkFeatureBlock(n)
	case feasyn.NodeLookupBlock:
		v.sawFeature = true
		v.checkLookupBlock(n, inTopLevel)
	case feasyn.NodeTableBlock:
		v.sawFeature = true
		v.checkTableBlock(n)
	}
}

func (v *validator) checkLanguageSystem(n feasyn.Node) {
	ls, _ := feaast.AsLanguageSystem(n)
	if v.sawFeature {
		v.errorAt(n, "languagesystem statements must precede all feature blocks")
	}
	if script, ok := ls.Script(); ok {
		v.checkTag(script, "script")
	} else {
		v.errorAt(n, "languagesystem is missing its script tag")
	}
	if lang, ok := ls.Language(); ok {
		v.checkTag(lang, "language")
	} else {
		v.errorAt(n, "languagesystem is missing its language tag")
	}
}

// checkTag enforces the 4-byte tag limit (shorter tags are space-padded).
func (v *validator) checkTag(tag feaast.Tag, what string) bool {
	text := tag.Text()
	if text == "" || len(text) > 4 {
		v.errorSpan(tag.Node().File(), tag.Span(),
			fmt.Sprintf("invalid %s tag %q: tags are at most four characters", what, text))
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < 0x20 || text[i] > 0x7E {
			v.errorSpan(tag.Node().File(), tag.Span(),
				fmt.Sprintf("invalid %s tag %q: tags are printable ASCII", what, text))
			return false
		}
	}
	return true
}

// --- Declarations -----------------------------------------------------------

func (v *validator) checkGlyphClassDef(n feasyn.Node) {
	def, _ := feaast.AsGlyphClassDef(n)
	name, nameSpan := def.Name()
	expr, ok := def.Value()
	if !ok {
		v.errorAt(n, "glyph class @%s has no value", name)
		v.st.DefineGlyphClass(name, nil, nameSpan)
		return
	}
	if _, exists := v.st.GlyphClass(name); exists {
		// FEA allows redeclaration only as an append: the right-hand side
		// must reference the class itself, as in @C = [@C A B];
		if !referencesClass(expr, name) {
			prevSpan, _ := v.st.GlyphClassSpan(name)
			v.errorSpan(n.File(), nameSpan,
				fmt.Sprintf("glyph class @%s is already declared; redeclaration must append via [@%s ...]", name, name),
				diag.Label{Span: prevSpan, File: n.File(), Message: "first declared here"})
			return
		}
	}
	glyphs := v.resolveGlyphExpr(expr)
	if len(glyphs) == 0 {
		v.warnAt(n, "glyph class @%s is empty", name)
	}
	if _, isMark := v.st.MarkClass(name); isMark {
		v.warnAt(n, "glyph class @%s shadows a mark class of the same name", name)
	}
	v.st.DefineGlyphClass(name, glyphs, nameSpan)
}

// referencesClass reports whether a glyph expression mentions @name.
func referencesClass(expr feaast.GlyphExpr, name string) bool {
	if expr.Kind() == feaast.GlyphExprClassRef {
		return expr.ClassName() == name
	}
	if expr.Kind() == feaast.GlyphExprLiteral {
		for m := range expr.Members() {
			if referencesClass(m, name) {
				return true
			}
		}
	}
	return false
}

func (v *validator) checkMarkClassDef(n feasyn.Node) {
	def, _ := feaast.AsMarkClassDef(n)
	name, nameSpan := def.Name()
	mc := v.st.DefineMarkClass(name, nameSpan)
	expr, ok := def.Glyphs()
	if !ok {
		v.errorAt(n, "markClass statement has no glyphs")
		return
	}
	glyphs := v.resolveGlyphExpr(expr)
	anchorView, ok := def.Anchor()
	if !ok {
		v.errorAt(n, "markClass statement has no anchor")
		return
	}
	anchor := v.resolveAnchor(anchorView)
	for _, existing := range mc.Members {
		for _, g := range glyphs {
			if existing.Glyphs.Contains(g) {
				name, _ := v.glyphs.NameFor(g)
				v.errorAt(n, "glyph %s is already a member of mark class @%s", name, mc.Name)
			}
		}
	}
	mc.Members = append(mc.Members, MarkMember{Glyphs: glyphs, Anchor: anchor})
}

func (v *validator) checkAnchorDef(n feasyn.Node) {
	def, _ := feaast.AsAnchorDef(n)
	name, _, ok := def.Name()
	if !ok {
		v.errorAt(n, "anchorDef is missing its name")
		return
	}
	x, y, ok := def.Coords()
	if !ok {
		v.errorAt(n, "anchorDef %s is missing coordinates", name)
	}
	av := AnchorValue{X: int16(x), Y: int16(y)}
	if cp, ok := def.ContourPoint(); ok {
		av.ContourPoint = otl.Some(uint16(cp))
	}
	v.st.DefineAnchor(name, av)
}

func (v *validator) checkValueRecordDef(n feasyn.Node) {
	def, _ := feaast.AsValueRecordDef(n)
	name, _, ok := def.Name()
	if !ok {
		v.errorAt(n, "valueRecordDef is missing its name")
		return
	}
	rec, ok := def.Record()
	if !ok {
		v.errorAt(n, "valueRecordDef %s has no value record", name)
		return
	}
	v.st.DefineValueRecord(name, v.resolveValueRecord(rec))
}

// --- Name resolution --------------------------------------------------------

// resolveGlyphExpr resolves a glyph expression to an ordered glyph set,
// reporting unknown names and out-of-range CIDs. Resolution failures yield
// placeholder (empty) contributions so validation can continue. The result
// is memoized in the symbol table for the compiler.
func (v *validator) resolveGlyphExpr(expr feaast.GlyphExpr) GlyphSet {
	set := v.resolveGlyphExprUncached(expr)
	v.st.Resolutions[expr.Node().Green()] = set
	return set
}

func (v *validator) resolveGlyphExprUncached(expr feaast.GlyphExpr) GlyphSet {
	switch expr.Kind() {
	case feaast.GlyphExprName:
		name := expr.Name()
		if gid, ok := v.glyphs.GidFor(name); ok {
			return GlyphSet{gid}
		}
		v.errorSpan(expr.Node().File(), expr.Span(), fmt.Sprintf("unknown glyph %q", name))
		return nil
	case feaast.GlyphExprCID:
		cid, ok := expr.CID()
		if !ok {
			v.errorSpan(expr.Node().File(), expr.Span(), "malformed CID")
			return nil
		}
		if cid < 0 || cid >= v.glyphs.NumGlyphs() {
			v.errorSpan(expr.Node().File(), expr.Span(),
				fmt.Sprintf(`CID \%d is out of range: font has %d glyphs`, cid, v.glyphs.NumGlyphs()))
			return nil
		}
		if gid, ok := v.glyphs.GidForCID(cid); ok {
			return GlyphSet{gid}
		}
		v.errorSpan(expr.Node().File(), expr.Span(), fmt.Sprintf(`CID \%d is not mapped`, cid))
		return nil
	case feaast.GlyphExprClassRef:
		name := expr.ClassName()
		if set, ok := v.st.GlyphClass(name); ok {
			return set
		}
		if mc, ok := v.st.MarkClass(name); ok {
			return mc.AllGlyphs()
		}
		v.errorSpan(expr.Node().File(), expr.Span(),
			fmt.Sprintf("glyph class @%s is not declared at this point", name))
		return nil
	case feaast.GlyphExprLiteral:
		var set GlyphSet
		for m := range expr.Members() {
			set = append(set, v.resolveGlyphExpr(m)...)
		}
		return set
	case feaast.GlyphExprRange:
		return v.resolveRange(expr)
	}
	return nil
}

// resolveRange expands a glyph range by GID order: every glyph between the
// endpoints (inclusive) belongs to the range.
func (v *validator) resolveRange(expr feaast.GlyphExpr) GlyphSet {
	first, last, ok := expr.RangeEnds()
	if !ok {
		v.errorSpan(expr.Node().File(), expr.Span(), "malformed glyph range")
		return nil
	}
	fromSet := v.resolveGlyphExpr(first)
	toSet := v.resolveGlyphExpr(last)
	if len(fromSet) != 1 || len(toSet) != 1 {
		return nil // endpoint errors already reported
	}
	from, to := fromSet[0], toSet[0]
	if from > to {
		v.errorSpan(expr.Node().File(), expr.Span(),
			fmt.Sprintf("glyph range ends precede its start (GID %d > %d)", from, to))
		return nil
	}
	set := make(GlyphSet, 0, int(to-from)+1)
	for g := from; ; g++ {
		set = append(set, g)
		if g == to {
			break
		}
	}
	return set
}

// resolveAnchor resolves an anchor view, following named anchors.
func (v *validator) resolveAnchor(a feaast.Anchor) AnchorValue {
	if a.IsNull() {
		return AnchorValue{Null: true}
	}
	if name, ok := a.Name(); ok {
		if av, found := v.st.Anchor(name); found {
			return av
		}
		v.errorSpan(a.Node().File(), a.Span(), fmt.Sprintf("anchor %q is not defined", name))
		return AnchorValue{}
	}
	x, y, ok := a.Coords()
	if !ok {
		v.errorSpan(a.Node().File(), a.Span(), "anchor is missing coordinates")
	}
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

func deviceValue(d feaast.Device) *otl.Device {
	if d.IsNull() {
		return nil
	}
	adjustments := d.Adjustments()
	if len(adjustments) == 0 {
		return nil
	}
	dev := &otl.Device{Adjustments: make(map[uint16]int8, len(adjustments))}
	for _, pair := range adjustments {
		dev.Adjustments[uint16(pair[0])] = int8(pair[1])
	}
	return dev
}

// resolveValueRecord resolves a value record view, following named records.
// A bare number is a horizontal advance adjustment.
func (v *validator) resolveValueRecord(rec feaast.ValueRecord) otl.ValueRecord {
	if rec.IsNull() {
		return otl.ValueRecord{}
	}
	if name, ok := rec.Name(); ok {
		if vr, found := v.st.ValueRecord(name); found {
			return vr
		}
		v.errorSpan(rec.Node().File(), rec.Span(), fmt.Sprintf("value record %q is not defined", name))
		return otl.ValueRecord{}
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
	default:
		v.errorSpan(rec.Node().File(), rec.Span(),
			fmt.Sprintf("value record must have 1 or 4 values, has %d", len(values)))
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
