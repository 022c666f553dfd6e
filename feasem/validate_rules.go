package feasem

import (
	"fmt"

	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// resolveElement resolves a sequence element's glyph expression, memoizing
// the glyph set for the compiler. An attached value record is not resolved
// here.
func (v *validator) resolveElement(e feaast.SequenceElement) GlyphSet {
	expr, ok := e.Glyphs()
	if !ok {
		v.errorAt(e.Node(), "sequence element has no glyphs")
		return nil
	}
	return v.resolveGlyphExpr(expr)
}

func (v *validator) checkSubRule(n feasyn.Node, ctx stmtContext) {
	rule, _ := feaast.AsSubRule(n)
	v.st.RuleFlags[n.Green()] = v.flag
	kind := ClassifySubRule(rule)

	input := rule.Input()
	replacement := rule.Replacement()
	inSets := make([]GlyphSet, len(input))
	for i, e := range input {
		inSets[i] = v.resolveElement(e)
		for _, ref := range e.LookupRefs() {
			v.checkLookupRef(ref.Node())
		}
	}
	outSets := make([]GlyphSet, len(replacement))
	for i, e := range replacement {
		outSets[i] = v.resolveElement(e)
	}

	if ctx.feature == "aalt" && kind != SubSingle && kind != SubAlternate {
		v.errorAt(n, "feature aalt only allows single and alternate substitutions")
		return
	}

	switch kind {
	case SubInvalid:
		v.errorAt(n, "substitution rule shape is not recognized")
	case SubSingle:
		if len(replacement) != 1 {
			return
		}
		if exprKindOf(replacement[0]) == feaast.GlyphExprName ||
			exprKindOf(replacement[0]) == feaast.GlyphExprCID {
			return // many → one glyph is legal
		}
		if len(inSets[0]) != len(outSets[0]) {
			v.errorAt(n, "single substitution classes differ in size: %d input, %d replacement glyphs",
				len(inSets[0]), len(outSets[0]))
		}
	case SubMultiple:
		for i, e := range replacement {
			k := exprKindOf(e)
			if k != feaast.GlyphExprName && k != feaast.GlyphExprCID {
				v.errorAt(e.Node(), "multiple substitution replacement %d must be a single glyph", i+1)
			}
		}
	case SubAlternate:
		if len(input) != 1 || len(inSets[0]) != 1 {
			v.errorAt(n, "alternate substitution takes exactly one input glyph")
		}
		if len(replacement) != 1 {
			v.errorAt(n, "alternate substitution takes exactly one replacement class")
			return
		}
		k := exprKindOf(replacement[0])
		if k != feaast.GlyphExprLiteral && k != feaast.GlyphExprClassRef {
			v.errorAt(replacement[0].Node(), "alternate substitution replacement must be a glyph class")
			return
		}
		// an empty alternate set has no defined meaning; reject it
		if len(outSets[0]) == 0 {
			v.errorAt(replacement[0].Node(), "alternate substitution set is empty")
		}
	case SubLigature:
		if len(replacement) != 1 {
			return
		}
		k := exprKindOf(replacement[0])
		if k != feaast.GlyphExprName && k != feaast.GlyphExprCID {
			v.errorAt(replacement[0].Node(), "ligature substitution replacement must be a single glyph")
		}
	case SubContext:
		v.checkContextMarks(input, n)
	case SubReverse:
		marked := 0
		for _, e := range input {
			if e.IsMarked() {
				marked++
			}
		}
		if marked != 1 {
			v.errorAt(n, "reverse chaining substitution needs exactly one marked glyph position")
		}
		if len(replacement) > 1 {
			v.errorAt(n, "reverse chaining substitution replaces exactly one position")
		}
	}
}

func exprKindOf(e feaast.SequenceElement) feaast.GlyphExprKind {
	if expr, ok := e.Glyphs(); ok {
		return expr.Kind()
	}
	return feaast.GlyphExprName
}

// checkContextMarks verifies that marked positions form one contiguous run.
func (v *validator) checkContextMarks(elements []feaast.SequenceElement, n feasyn.Node) {
	state := 0 // 0 = backtrack, 1 = input run, 2 = lookahead
	for _, e := range elements {
		if e.IsMarked() {
			switch state {
			case 0:
				state = 1
			case 2:
				v.errorAt(n, "contextual marks must form one contiguous run")
				return
			}
		} else if state == 1 {
			state = 2
		}
	}
}

func (v *validator) checkPosRule(n feasyn.Node, ctx stmtContext) {
	rule, _ := feaast.AsPosRule(n)
	v.st.RuleFlags[n.Green()] = v.flag
	kind := ClassifyPosRule(rule)

	// resolve all constituents first, so later statements still validate
	var elements []feaast.SequenceElement
	var anchors []feaast.Anchor
	var parts []feaast.PosPart
	var values []otl.ValueRecord
	for part := range rule.Parts() {
		parts = append(parts, part)
		switch part.Kind {
		case feaast.PosPartElement:
			v.resolveElement(part.Element)
			elements = append(elements, part.Element)
			if val, ok := part.Element.Value(); ok {
				values = append(values, v.resolveValueRecord(val))
			}
			for _, ref := range part.Element.LookupRefs() {
				v.checkLookupRef(ref.Node())
			}
		case feaast.PosPartAnchor:
			v.resolveAnchor(part.Anchor)
			anchors = append(anchors, part.Anchor)
		case feaast.PosPartValue:
			values = append(values, v.resolveValueRecord(part.Value))
		}
	}
	if (kind == PosSingle || kind == PosPair) && len(values) > 0 {
		allZero := true
		for _, value := range values {
			if !value.IsZero() {
				allZero = false
			}
		}
		if allZero {
			v.warnAt(n, "positioning rule adjusts nothing")
		}
	}

	if ctx.feature == "aalt" {
		v.errorAt(n, "positioning rules are not allowed in feature aalt")
		return
	}

	switch kind {
	case PosInvalid:
		v.errorAt(n, "positioning rule shape is not recognized")
	case PosSingle:
		if _, ok := elements[0].Value(); !ok && !hasStandaloneValue(parts) {
			v.errorAt(n, "single positioning needs a value record")
		}
	case PosPair:
		hasValue := hasStandaloneValue(parts)
		for _, e := range elements {
			if _, ok := e.Value(); ok {
				hasValue = true
			}
		}
		if !hasValue {
			v.errorAt(n, "pair positioning needs at least one value record")
		}
	case PosCursive:
		if len(elements) != 1 {
			v.errorAt(n, "cursive attachment takes exactly one glyph or class")
		}
		if len(anchors) != 2 {
			v.errorAt(n, "cursive attachment needs an entry and an exit anchor")
		}
	case PosMarkToBase, PosMarkToMark:
		v.checkMarkAttachment(n, parts, kind)
	case PosMarkToLigature:
		v.checkMarkAttachment(n, parts, kind)
	case PosContext:
		var seqElements []feaast.SequenceElement
		for part := range rule.Parts() {
			if part.Kind == feaast.PosPartElement {
				seqElements = append(seqElements, part.Element)
			}
		}
		v.checkContextMarks(seqElements, n)
	}
}

func hasStandaloneValue(parts []feaast.PosPart) bool {
	for _, part := range parts {
		if part.Kind == feaast.PosPartValue {
			return true
		}
	}
	return false
}

// checkMarkAttachment validates the anchor/mark pairing of attachment
// rules: each <anchor> must be followed by 'mark' and a declared mark
// class, and no glyph may serve two mark classes within the same lookup.
func (v *validator) checkMarkAttachment(n feasyn.Node, parts []feaast.PosPart, kind PosKind) {
	if len(parts) == 0 || parts[0].Kind != feaast.PosPartElement {
		v.errorAt(n, "%s attachment is missing its base glyphs", kind)
		return
	}
	sawAnchor := false
	expectClass := false
	pairs := 0
	for _, part := range parts[1:] {
		switch part.Kind {
		case feaast.PosPartAnchor:
			if sawAnchor && !part.Anchor.IsNull() {
				// an anchor directly after an anchor is only legal when the
				// previous one was <anchor NULL> (no mark class follows)
				v.errorAt(part.Anchor.Node(), "anchor must be followed by 'mark' and a mark class")
			}
			sawAnchor = !part.Anchor.IsNull()
		case feaast.PosPartMark:
			if !sawAnchor {
				v.errorAt(n, "'mark' must follow an anchor")
			}
			expectClass = true
		case feaast.PosPartElement:
			if !expectClass {
				v.errorAt(part.Element.Node(), "unexpected glyphs in attachment rule")
				continue
			}
			expectClass = false
			sawAnchor = false
			pairs++
			v.checkMarkClassUse(part.Element)
		case feaast.PosPartLigComponent:
			if kind != PosMarkToLigature {
				v.errorAt(n, "ligComponent is only allowed in mark-to-ligature attachment")
			}
			sawAnchor = false
			expectClass = false
		}
	}
	if pairs == 0 && kind != PosMarkToLigature {
		v.errorAt(n, "%s attachment needs at least one anchor/mark class pair", kind)
	}
}

// checkMarkClassUse verifies a mark class reference in an attachment rule:
// the class must have been declared via markClass, and each of its glyphs
// may belong to only one mark class within the current lookup scope.
func (v *validator) checkMarkClassUse(e feaast.SequenceElement) {
	expr, ok := e.Glyphs()
	if !ok || expr.Kind() != feaast.GlyphExprClassRef {
		v.errorAt(e.Node(), "attachment rules require a mark class reference after 'mark'")
		return
	}
	name := expr.ClassName()
	mc, ok := v.st.MarkClass(name)
	if !ok {
		v.errorSpan(expr.Node().File(), expr.Span(),
			fmt.Sprintf("@%s is not a mark class declared with markClass", name))
		return
	}
	for _, g := range mc.AllGlyphs() {
		if prev, seen := v.markSeen[g]; seen && prev != name {
			glyphName, _ := v.glyphs.NameFor(g)
			v.errorSpan(expr.Node().File(), expr.Span(),
				fmt.Sprintf("glyph %s belongs to mark classes @%s and @%s within one lookup",
					glyphName, prev, name))
		}
		v.markSeen[g] = name
	}
}

func (v *validator) checkIgnoreRule(n feasyn.Node) {
	rule, _ := feaast.AsIgnoreRule(n)
	v.st.RuleFlags[n.Green()] = v.flag
	contexts := rule.Contexts()
	if len(contexts) == 0 {
		v.errorAt(n, "ignore rule has no context")
		return
	}
	for _, context := range contexts {
		marked := 0
		for _, e := range context {
			v.resolveElement(e)
			if e.IsMarked() {
				marked++
			}
		}
		if marked == 0 {
			v.errorAt(n, "ignore rule context needs at least one marked glyph")
		}
	}
}
