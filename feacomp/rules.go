package feacomp

import (
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

func (fc *featureCompiler) ingestSub(rule feaast.SubRule) { ingestSubRule(fc, rule) }
func (fc *featureCompiler) ingestPos(rule feaast.PosRule) { ingestPosRule(fc, rule) }
func (fc *featureCompiler) ingestIgnore(rule feaast.IgnoreRule) {
	ingestIgnoreRule(fc, rule)
}

// --- Substitutions ----------------------------------------------------------

func ingestSubRule(s ruleSink, rule feaast.SubRule) {
	c := s.compiler()
	n := rule.Node()
	input := rule.Input()
	replacement := rule.Replacement()

	switch feasem.ClassifySubRule(rule) {
	case feasem.SubSingle:
		in := c.st.SetOf(input[0])
		out := c.st.SetOf(replacement[0])
		if len(in) == 0 || len(out) == 0 {
			return
		}
		pend := s.ensure(n, newPendingSingleSub).(*pendingSingleSub)
		for i, g := range in {
			var to otl.GlyphIndex
			if len(out) == 1 {
				to = out[0]
			} else if i < len(out) {
				to = out[i]
			} else {
				break
			}
			pend.add(c, n, g, to)
			c.aalt.addSingle(s.featureTag(), g, to)
		}
	case feasem.SubMultiple:
		in := c.st.SetOf(input[0])
		if len(in) == 0 {
			return
		}
		var sequence []otl.GlyphIndex
		if !rule.ReplacesWithNull() {
			for _, e := range replacement {
				set := c.st.SetOf(e)
				if len(set) > 0 {
					sequence = append(sequence, set[0])
				}
			}
		}
		pend := s.ensure(n, newPendingMultipleSub).(*pendingSeqSub)
		for _, g := range in {
			pend.add(c, n, g, sequence)
		}
	case feasem.SubAlternate:
		in := c.st.SetOf(input[0])
		out := c.st.SetOf(replacement[0])
		if len(in) == 0 || len(out) == 0 {
			return
		}
		pend := s.ensure(n, newPendingAlternateSub).(*pendingSeqSub)
		pend.add(c, n, in[0], out)
		c.aalt.addAlternates(s.featureTag(), in[0], out)
	case feasem.SubLigature:
		if len(replacement) == 0 {
			return
		}
		out := c.st.SetOf(replacement[0])
		if len(out) == 0 {
			return
		}
		lig := out[0]
		sets := make([]feasem.GlyphSet, 0, len(input))
		for _, e := range input {
			set := c.st.SetOf(e)
			if len(set) == 0 {
				return
			}
			sets = append(sets, set)
		}
		pend := s.ensure(n, newPendingLigatureSub).(*pendingLigatureSub)
		for _, seq := range cartesian(sets) {
			pend.add(c, n, seq[0], seq[1:], lig)
		}
		c.usage.ligatures[lig] = true
	case feasem.SubContext:
		ingestChainSub(s, rule)
	case feasem.SubReverse:
		ingestReverseSub(s, rule)
	}
}

// cartesian expands a sequence of glyph sets into all concrete glyph
// sequences, in set order.
func cartesian(sets []feasem.GlyphSet) [][]otl.GlyphIndex {
	if len(sets) == 0 {
		return nil
	}
	result := [][]otl.GlyphIndex{{}}
	for _, set := range sets {
		next := make([][]otl.GlyphIndex, 0, len(result)*len(set))
		for _, prefix := range result {
			for _, g := range set {
				seq := make([]otl.GlyphIndex, len(prefix)+1)
				copy(seq, prefix)
				seq[len(prefix)] = g
				next = append(next, seq)
			}
		}
		result = next
	}
	return result
}

// contextParts partitions a rule's input into backtrack, marked run and
// lookahead.
func contextParts(elements []feaast.SequenceElement) (backtrack, marked, lookahead []feaast.SequenceElement) {
	state := 0
	for _, e := range elements {
		switch {
		case e.IsMarked():
			state = 1
			marked = append(marked, e)
		case state == 0:
			backtrack = append(backtrack, e)
		default:
			lookahead = append(lookahead, e)
		}
	}
	return backtrack, marked, lookahead
}

// coveragesOf converts elements to coverages; reverse flips the order (the
// OpenType backtrack convention stores the glyph closest to the input
// first).
func coveragesOf(c *compiler, elements []feaast.SequenceElement, reverse bool) []otl.Coverage {
	covs := make([]otl.Coverage, 0, len(elements))
	for _, e := range elements {
		covs = append(covs, otl.CoverageOf(c.st.SetOf(e)...))
	}
	if reverse {
		for i, j := 0, len(covs)-1; i < j; i, j = i+1, j-1 {
			covs[i], covs[j] = covs[j], covs[i]
		}
	}
	return covs
}

// ingestChainSub lowers a contextual substitution to a chained-context
// subtable. The rule's action becomes an anonymous nested lookup unless the
// marked glyphs carry explicit lookup references.
func ingestChainSub(s ruleSink, rule feaast.SubRule) {
	c := s.compiler()
	n := rule.Node()
	backtrack, marked, lookahead := contextParts(rule.Input())
	if len(marked) == 0 {
		return
	}
	ctx := otl.SequenceContext{
		Backtrack: coveragesOf(c, backtrack, true),
		Input:     coveragesOf(c, marked, false),
		Lookahead: coveragesOf(c, lookahead, false),
	}
	// explicit contextual lookup references win over inline actions
	haveRefs := false
	for i, e := range marked {
		for _, ref := range e.LookupRefs() {
			label, _, ok := ref.Label()
			if !ok {
				continue
			}
			h, found := c.named[label]
			if !found {
				c.errorAt(ref.Node(), "lookup %s was not compiled", label)
				continue
			}
			if h.isGPos {
				c.errorAt(ref.Node(), "lookup %s positions glyphs and cannot serve a substitution context", label)
				continue
			}
			haveRefs = true
			ctx.Records = append(ctx.Records, otl.SequenceLookupRecord{
				SequenceIndex: uint16(i), LookupIndex: h.index,
			})
		}
	}
	replacement := rule.Replacement()
	if !haveRefs && len(replacement) > 0 {
		if index, ok := anonymousSubAction(c, n, marked, replacement); ok {
			ctx.Records = append(ctx.Records, otl.SequenceLookupRecord{
				SequenceIndex: 0, LookupIndex: index,
			})
		}
	}
	pend := s.ensure(n, newPendingChainSub).(*pendingContext)
	pend.add(ctx)
}

// anonymousSubAction compiles the inline action of a contextual
// substitution into an anonymous lookup and returns its index.
func anonymousSubAction(c *compiler, n feasyn.Node, marked []feaast.SequenceElement,
	replacement []feaast.SequenceElement) (uint16, bool) {

	flag := c.st.FlagFor(n)
	out := c.st.SetOf(replacement[0])
	if len(out) == 0 {
		return 0, false
	}
	switch {
	case len(marked) == 1 && len(replacement) == 1:
		in := c.st.SetOf(marked[0])
		mapping := make(map[otl.GlyphIndex]otl.GlyphIndex, len(in))
		for i, g := range in {
			if len(out) == 1 {
				mapping[g] = out[0]
			} else if i < len(out) {
				mapping[g] = out[i]
			}
		}
		sub := otl.NewSingleSubst(mapping)
		return c.emitLookup(false, otl.GSubLookupTypeSingle, flag, false,
			[]otl.Subtable{sub}, ""), true
	case len(marked) > 1 && len(replacement) == 1:
		sets := make([]feasem.GlyphSet, 0, len(marked))
		for _, e := range marked {
			set := c.st.SetOf(e)
			if len(set) == 0 {
				return 0, false
			}
			sets = append(sets, set)
		}
		ligSets := make(map[otl.GlyphIndex][]otl.Ligature)
		for _, seq := range cartesian(sets) {
			ligSets[seq[0]] = append(ligSets[seq[0]], otl.Ligature{
				Components: seq[1:], Ligature: out[0],
			})
		}
		c.usage.ligatures[out[0]] = true
		sub := otl.NewLigatureSubst(ligSets)
		return c.emitLookup(false, otl.GSubLookupTypeLigature, flag, false,
			[]otl.Subtable{sub}, ""), true
	case len(marked) == 1 && len(replacement) > 1:
		in := c.st.SetOf(marked[0])
		var sequence []otl.GlyphIndex
		for _, e := range replacement {
			set := c.st.SetOf(e)
			if len(set) > 0 {
				sequence = append(sequence, set[0])
			}
		}
		mapping := make(map[otl.GlyphIndex][]otl.GlyphIndex, len(in))
		for _, g := range in {
			mapping[g] = sequence
		}
		sub := otl.NewMultipleSubst(mapping)
		return c.emitLookup(false, otl.GSubLookupTypeMultiple, flag, false,
			[]otl.Subtable{sub}, ""), true
	}
	c.errorAt(n, "contextual substitution action shape is not supported")
	return 0, false
}

func ingestReverseSub(s ruleSink, rule feaast.SubRule) {
	c := s.compiler()
	n := rule.Node()
	backtrack, marked, lookahead := contextParts(rule.Input())
	if len(marked) != 1 {
		return
	}
	in := c.st.SetOf(marked[0])
	replacement := rule.Replacement()
	if len(in) == 0 || len(replacement) == 0 {
		return
	}
	out := c.st.SetOf(replacement[0])
	if len(out) == 0 {
		return
	}
	mapping := make(map[otl.GlyphIndex]otl.GlyphIndex, len(in))
	for i, g := range in {
		if len(out) == 1 {
			mapping[g] = out[0]
		} else if i < len(out) {
			mapping[g] = out[i]
		}
	}
	pend := s.ensure(n, newPendingRevSub).(*pendingRevSub)
	pend.add(otl.NewReverseChainSubst(mapping,
		coveragesOf(c, backtrack, true), coveragesOf(c, lookahead, false)))
}

// --- Ignore rules -----------------------------------------------------------

// ingestIgnoreRule lowers an ignore rule to chained-context subtables with
// empty action lists: a match consumes the context without substituting or
// positioning anything, shielding it from later subtables.
func ingestIgnoreRule(s ruleSink, rule feaast.IgnoreRule) {
	c := s.compiler()
	n := rule.Node()
	for _, context := range rule.Contexts() {
		backtrack, marked, lookahead := contextParts(context)
		if len(marked) == 0 {
			continue
		}
		ctx := otl.SequenceContext{
			Backtrack: coveragesOf(c, backtrack, true),
			Input:     coveragesOf(c, marked, false),
			Lookahead: coveragesOf(c, lookahead, false),
		}
		if rule.IsSub() {
			pend := s.ensure(n, newPendingChainSub).(*pendingContext)
			pend.add(ctx)
		} else {
			pend := s.ensure(n, newPendingChainPos).(*pendingContext)
			pend.add(ctx)
		}
	}
}

// --- Positionings -----------------------------------------------------------

func ingestPosRule(s ruleSink, rule feaast.PosRule) {
	switch feasem.ClassifyPosRule(rule) {
	case feasem.PosSingle:
		ingestSinglePos(s, rule)
	case feasem.PosPair:
		ingestPairPos(s, rule)
	case feasem.PosCursive:
		ingestCursivePos(s, rule)
	case feasem.PosMarkToBase:
		ingestMarkAttach(s, rule, false)
	case feasem.PosMarkToMark:
		ingestMarkAttach(s, rule, true)
	case feasem.PosMarkToLigature:
		ingestMarkLig(s, rule)
	case feasem.PosContext:
		ingestChainPos(s, rule)
	}
}

// posElements collects the rule's sequence elements and standalone value
// parts in source order.
func posElements(rule feaast.PosRule) (elements []feaast.SequenceElement, values []feaast.ValueRecord, anchors []feaast.Anchor) {
	for part := range rule.Parts() {
		switch part.Kind {
		case feaast.PosPartElement:
			elements = append(elements, part.Element)
		case feaast.PosPartValue:
			values = append(values, part.Value)
		case feaast.PosPartAnchor:
			anchors = append(anchors, part.Anchor)
		}
	}
	return elements, values, anchors
}

func ingestSinglePos(s ruleSink, rule feaast.PosRule) {
	c := s.compiler()
	n := rule.Node()
	elements, values, _ := posElements(rule)
	if len(elements) != 1 {
		return
	}
	var value otl.ValueRecord
	if val, ok := elements[0].Value(); ok {
		value = c.st.ValueOf(val)
	} else if len(values) > 0 {
		value = c.st.ValueOf(values[0])
	} else {
		return
	}
	set := c.st.SetOf(elements[0])
	pend := s.ensure(n, newPendingSinglePos).(*pendingSinglePos)
	for _, g := range set {
		pend.add(c, n, g, value)
	}
}

func ingestPairPos(s ruleSink, rule feaast.PosRule) {
	c := s.compiler()
	n := rule.Node()
	elements, values, _ := posElements(rule)
	if len(elements) != 2 {
		return
	}
	s1 := c.st.SetOf(elements[0])
	s2 := c.st.SetOf(elements[1])
	if len(s1) == 0 || len(s2) == 0 {
		return
	}
	var v1, v2 otl.ValueRecord
	val1, has1 := elements[0].Value()
	val2, has2 := elements[1].Value()
	switch {
	case has1 && has2:
		// pos g1 <v1> g2 <v2>
		v1 = c.st.ValueOf(val1)
		v2 = c.st.ValueOf(val2)
	case has1:
		v1 = c.st.ValueOf(val1)
	case has2:
		// pos g1 g2 <v>: the value applies to the first glyph
		v1 = c.st.ValueOf(val2)
	case len(values) > 0:
		v1 = c.st.ValueOf(values[0])
	default:
		return
	}
	pend := s.ensure(n, newPendingPair).(*pendingPair)
	if rule.IsEnum() || (len(s1) == 1 && len(s2) == 1) {
		for _, g1 := range s1 {
			for _, g2 := range s2 {
				pend.addGlyphPair(c, n, g1, g2, v1, v2)
			}
		}
		return
	}
	pend.addClassPair(s1, s2, v1, v2)
}

func ingestCursivePos(s ruleSink, rule feaast.PosRule) {
	c := s.compiler()
	n := rule.Node()
	elements, _, anchors := posElements(rule)
	if len(elements) != 1 || len(anchors) != 2 {
		return
	}
	entry := c.st.AnchorOf(anchors[0]).ToAnchor()
	exit := c.st.AnchorOf(anchors[1]).ToAnchor()
	set := c.st.SetOf(elements[0])
	pend := s.ensure(n, newPendingCursive).(*pendingCursive)
	for _, g := range set {
		pend.add(c, n, g, otl.EntryExit{Entry: entry, Exit: exit})
		c.usage.bases[g] = true
	}
}

// markPair is one (anchor, mark class) pairing of an attachment rule.
type markPair struct {
	anchor *otl.Anchor
	mc     *feasem.MarkClass
}

// markPairsOf walks an attachment rule's parts after the base element,
// pairing anchors with the mark class that follows them. Each component
// break (ligComponent) starts a new entry of components.
func markPairsOf(c *compiler, rule feaast.PosRule) (base *feaast.SequenceElement, components [][]markPair) {
	var current []markPair
	var pendingAnchor *otl.Anchor
	havePending := false
	for part := range rule.Parts() {
		switch part.Kind {
		case feaast.PosPartElement:
			if base == nil {
				e := part.Element
				base = &e
				continue
			}
			if !havePending {
				continue
			}
			expr, ok := part.Element.Glyphs()
			if !ok || expr.Kind() != feaast.GlyphExprClassRef {
				continue
			}
			if mc, found := c.st.MarkClass(expr.ClassName()); found {
				current = append(current, markPair{anchor: pendingAnchor, mc: mc})
			}
			havePending = false
		case feaast.PosPartAnchor:
			av := c.st.AnchorOf(part.Anchor)
			if av.Null {
				// a NULL anchor closes a component slot without a mark class
				havePending = false
				continue
			}
			pendingAnchor = av.ToAnchor()
			havePending = true
		case feaast.PosPartLigComponent:
			components = append(components, current)
			current = nil
			havePending = false
		}
	}
	components = append(components, current)
	return base, components
}

func ingestMarkAttach(s ruleSink, rule feaast.PosRule, toMark bool) {
	c := s.compiler()
	n := rule.Node()
	base, components := markPairsOf(c, rule)
	if base == nil || len(components) == 0 {
		return
	}
	pairs := components[0]
	if len(pairs) == 0 {
		return
	}
	maker := newPendingMarkBase
	if toMark {
		maker = newPendingMarkMark
	}
	pend := s.ensure(n, maker).(*pendingMarkAttach)
	set := c.st.SetOf(*base)
	for _, pair := range pairs {
		class := pend.classIndex(c, pair.mc)
		for _, g := range set {
			pend.addBase(c, n, g, class, pair.anchor)
		}
	}
}

func ingestMarkLig(s ruleSink, rule feaast.PosRule) {
	c := s.compiler()
	n := rule.Node()
	base, components := markPairsOf(c, rule)
	if base == nil {
		return
	}
	pend := s.ensure(n, newPendingMarkLig).(*pendingMarkLig)
	set := c.st.SetOf(*base)
	for comp, pairs := range components {
		anchors := make(map[int]*otl.Anchor, len(pairs))
		for _, pair := range pairs {
			class := pend.classIndex(c, pair.mc)
			anchors[class] = pair.anchor
		}
		for _, g := range set {
			pend.addComponent(c, g, comp, anchors)
		}
	}
}

// ingestChainPos lowers a contextual positioning rule: marked elements with
// inline value records become anonymous single-positioning lookups, and
// explicit lookup references attach directly.
func ingestChainPos(s ruleSink, rule feaast.PosRule) {
	c := s.compiler()
	n := rule.Node()
	elements, _, _ := posElements(rule)
	backtrack, marked, lookahead := contextParts(elements)
	if len(marked) == 0 {
		return
	}
	ctx := otl.SequenceContext{
		Backtrack: coveragesOf(c, backtrack, true),
		Input:     coveragesOf(c, marked, false),
		Lookahead: coveragesOf(c, lookahead, false),
	}
	flag := c.st.FlagFor(n)
	for i, e := range marked {
		for _, ref := range e.LookupRefs() {
			label, _, ok := ref.Label()
			if !ok {
				continue
			}
			h, found := c.named[label]
			if !found {
				c.errorAt(ref.Node(), "lookup %s was not compiled", label)
				continue
			}
			if !h.isGPos {
				c.errorAt(ref.Node(), "lookup %s substitutes glyphs and cannot serve a positioning context", label)
				continue
			}
			ctx.Records = append(ctx.Records, otl.SequenceLookupRecord{
				SequenceIndex: uint16(i), LookupIndex: h.index,
			})
		}
		if val, ok := e.Value(); ok {
			value := c.st.ValueOf(val)
			set := c.st.SetOf(e)
			mapping := make(map[otl.GlyphIndex]otl.ValueRecord, len(set))
			for _, g := range set {
				mapping[g] = value
			}
			sub := otl.NewSinglePos(mapping)
			index := c.emitLookup(true, otl.GPosLookupTypeSingle, flag, false,
				[]otl.Subtable{sub}, "")
			ctx.Records = append(ctx.Records, otl.SequenceLookupRecord{
				SequenceIndex: uint16(i), LookupIndex: index,
			})
		}
	}
	pend := s.ensure(n, newPendingChainPos).(*pendingContext)
	pend.add(ctx)
}
