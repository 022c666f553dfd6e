package feacomp

import (
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// ruleSink is the shared contract between the feature compiler and the
// lookup-block compiler: rule ingestion asks the sink for the pending
// accumulation matching a rule's lookup type and flag state.
type ruleSink interface {
	compiler() *compiler
	featureTag() otl.Tag
	ensure(n feasyn.Node, make func() pending) pending
}

func (fc *featureCompiler) compiler() *compiler   { return fc.c }
func (fc *featureCompiler) featureTag() otl.Tag   { return fc.tag }

// pending is a lookup under accumulation: rules of one lookup type and
// flag state, collected until a flush materializes them into subtables. A
// 'subtable;' statement seals the current segment; each segment becomes at
// least one subtable, and oversized segments split further.
type pending interface {
	lookupType() otl.LookupType
	isGPos() bool
	boundary()
	build(c *compiler, node feasyn.Node) []otl.Subtable
}

// reportOversize checks built subtables against the 16-bit offset budget.
// Splitting has already happened at this point, so a subtable that is still
// over budget cannot be represented at all: its internal offsets (coverage,
// pair sets, ligature sets) are 16-bit, and extension lookups only widen
// the lookup-to-subtable offsets. Every build path funnels through here so
// the unfixable case is always diagnosed.
func reportOversize(c *compiler, node feasyn.Node, subtables []otl.Subtable) []otl.Subtable {
	for _, sub := range subtables {
		if size := sub.EstimatedSize(); size > otl.SubtableBudget {
			c.errorAt(node, "lookup too large even with extension: subtable needs %d bytes, offsets are 16-bit (%d)",
				size, otl.SubtableBudget)
		}
	}
	return subtables
}

// --- GSUB pendings ----------------------------------------------------------

type singleSubSegment struct {
	mapping map[otl.GlyphIndex]otl.GlyphIndex
}

type pendingSingleSub struct {
	segments []*singleSubSegment
}

func newPendingSingleSub() pending { return &pendingSingleSub{} }

func (p *pendingSingleSub) lookupType() otl.LookupType { return otl.GSubLookupTypeSingle }
func (p *pendingSingleSub) isGPos() bool               { return false }

func (p *pendingSingleSub) boundary() {
	if len(p.segments) > 0 {
		p.segments = append(p.segments, nil)
	}
}

func (p *pendingSingleSub) current() *singleSubSegment {
	if len(p.segments) == 0 || p.segments[len(p.segments)-1] == nil {
		seg := &singleSubSegment{mapping: make(map[otl.GlyphIndex]otl.GlyphIndex)}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1] == nil {
			p.segments[len(p.segments)-1] = seg
		} else {
			p.segments = append(p.segments, seg)
		}
	}
	return p.segments[len(p.segments)-1]
}

// add records one substitution, reporting conflicting overrides.
func (p *pendingSingleSub) add(c *compiler, n feasyn.Node, from, to otl.GlyphIndex) {
	seg := p.current()
	if prev, exists := seg.mapping[from]; exists {
		if prev != to {
			name, _ := c.glyphs.NameFor(from)
			c.errorAt(n, "glyph %s is already substituted differently in this subtable", name)
		}
		return
	}
	seg.mapping[from] = to
}

func (p *pendingSingleSub) build(c *compiler, node feasyn.Node) []otl.Subtable {
	var subtables []otl.Subtable
	for _, seg := range p.segments {
		if seg == nil || len(seg.mapping) == 0 {
			continue
		}
		for _, chunk := range chunkMapping(seg.mapping) {
			subtables = append(subtables, otl.NewSingleSubst(chunk))
		}
	}
	return reportOversize(c, node, subtables)
}

// chunkMapping splits a glyph mapping into budget-sized chunks by GID
// order. Most mappings fit one chunk.
func chunkMapping(mapping map[otl.GlyphIndex]otl.GlyphIndex) []map[otl.GlyphIndex]otl.GlyphIndex {
	// 6 bytes budgeted per glyph, above the 4 (coverage entry + substitute)
	// that SingleSubst.EstimatedSize counts, plus headers
	const perEntry = 6
	maxEntries := (otl.SubtableBudget - 16) / perEntry
	if len(mapping) <= maxEntries {
		return []map[otl.GlyphIndex]otl.GlyphIndex{mapping}
	}
	cov := make([]otl.GlyphIndex, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	cov = otl.CoverageOf(cov...)
	var chunks []map[otl.GlyphIndex]otl.GlyphIndex
	for start := 0; start < len(cov); start += maxEntries {
		end := min(start+maxEntries, len(cov))
		chunk := make(map[otl.GlyphIndex]otl.GlyphIndex, end-start)
		for _, g := range cov[start:end] {
			chunk[g] = mapping[g]
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

type seqSegment struct {
	mapping map[otl.GlyphIndex][]otl.GlyphIndex
}

// pendingSeqSub covers GSUB types 2 and 3, which share their builder-side
// shape: one covered glyph mapping to a glyph sequence (multiple) or an
// alternate set (alternate).
type pendingSeqSub struct {
	ltype    otl.LookupType
	segments []*seqSegment
}

func newPendingMultipleSub() pending {
	return &pendingSeqSub{ltype: otl.GSubLookupTypeMultiple}
}

func newPendingAlternateSub() pending {
	return &pendingSeqSub{ltype: otl.GSubLookupTypeAlternate}
}

func (p *pendingSeqSub) lookupType() otl.LookupType { return p.ltype }
func (p *pendingSeqSub) isGPos() bool               { return false }

func (p *pendingSeqSub) boundary() {
	if len(p.segments) > 0 {
		p.segments = append(p.segments, nil)
	}
}

func (p *pendingSeqSub) current() *seqSegment {
	if len(p.segments) == 0 || p.segments[len(p.segments)-1] == nil {
		seg := &seqSegment{mapping: make(map[otl.GlyphIndex][]otl.GlyphIndex)}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1] == nil {
			p.segments[len(p.segments)-1] = seg
		} else {
			p.segments = append(p.segments, seg)
		}
	}
	return p.segments[len(p.segments)-1]
}

func (p *pendingSeqSub) add(c *compiler, n feasyn.Node, from otl.GlyphIndex, to []otl.GlyphIndex) {
	seg := p.current()
	if _, exists := seg.mapping[from]; exists {
		name, _ := c.glyphs.NameFor(from)
		c.errorAt(n, "glyph %s already has a substitution in this subtable", name)
		return
	}
	seg.mapping[from] = to
}

func (p *pendingSeqSub) build(c *compiler, node feasyn.Node) []otl.Subtable {
	var subtables []otl.Subtable
	for _, seg := range p.segments {
		if seg == nil || len(seg.mapping) == 0 {
			continue
		}
		for _, chunk := range chunkSeqMapping(seg.mapping) {
			if p.ltype == otl.GSubLookupTypeMultiple {
				subtables = append(subtables, otl.NewMultipleSubst(chunk))
			} else {
				subtables = append(subtables, otl.NewAlternateSubst(chunk))
			}
		}
	}
	return reportOversize(c, node, subtables)
}

// chunkSeqMapping splits a sequence mapping into budget-sized chunks along
// coverage glyphs. An entry whose own sequence busts the budget stays in a
// chunk of its own; reportOversize diagnoses it.
func chunkSeqMapping(mapping map[otl.GlyphIndex][]otl.GlyphIndex) []map[otl.GlyphIndex][]otl.GlyphIndex {
	cov := make([]otl.GlyphIndex, 0, len(mapping))
	for g := range mapping {
		cov = append(cov, g)
	}
	cov = otl.CoverageOf(cov...)
	var chunks []map[otl.GlyphIndex][]otl.GlyphIndex
	chunk := make(map[otl.GlyphIndex][]otl.GlyphIndex)
	size := 0
	for _, g := range cov {
		// coverage entry + sequence offset + count + glyphs
		entrySize := 4 + 2 + 2 + 2*len(mapping[g])
		if size+entrySize > otl.SubtableBudget-64 && len(chunk) > 0 {
			chunks = append(chunks, chunk)
			chunk = make(map[otl.GlyphIndex][]otl.GlyphIndex)
			size = 0
		}
		chunk[g] = mapping[g]
		size += entrySize
	}
	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}

type ligSegment struct {
	sets map[otl.GlyphIndex][]otl.Ligature
}

type pendingLigatureSub struct {
	segments []*ligSegment
}

func newPendingLigatureSub() pending { return &pendingLigatureSub{} }

func (p *pendingLigatureSub) lookupType() otl.LookupType { return otl.GSubLookupTypeLigature }
func (p *pendingLigatureSub) isGPos() bool               { return false }

func (p *pendingLigatureSub) boundary() {
	if len(p.segments) > 0 {
		p.segments = append(p.segments, nil)
	}
}

func (p *pendingLigatureSub) current() *ligSegment {
	if len(p.segments) == 0 || p.segments[len(p.segments)-1] == nil {
		seg := &ligSegment{sets: make(map[otl.GlyphIndex][]otl.Ligature)}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1] == nil {
			p.segments[len(p.segments)-1] = seg
		} else {
			p.segments = append(p.segments, seg)
		}
	}
	return p.segments[len(p.segments)-1]
}

func (p *pendingLigatureSub) add(c *compiler, n feasyn.Node, first otl.GlyphIndex, components []otl.GlyphIndex, lig otl.GlyphIndex) {
	seg := p.current()
	for _, existing := range seg.sets[first] {
		if componentsEqual(existing.Components, components) {
			if existing.Ligature != lig {
				name, _ := c.glyphs.NameFor(first)
				c.errorAt(n, "ligature sequence starting at %s is already mapped differently", name)
			}
			return
		}
	}
	seg.sets[first] = append(seg.sets[first], otl.Ligature{Components: components, Ligature: lig})
}

func componentsEqual(a, b []otl.GlyphIndex) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *pendingLigatureSub) build(c *compiler, node feasyn.Node) []otl.Subtable {
	var subtables []otl.Subtable
	for _, seg := range p.segments {
		if seg == nil || len(seg.sets) == 0 {
			continue
		}
		sub := otl.NewLigatureSubst(seg.sets)
		if sub.EstimatedSize() > otl.SubtableBudget {
			subtables = append(subtables, splitLigatureSubst(seg.sets)...)
			continue
		}
		subtables = append(subtables, sub)
	}
	return reportOversize(c, node, subtables)
}

// splitLigatureSubst splits an oversized ligature subtable along first
// glyphs. All ligatures sharing a first glyph form one LigatureSet and
// cannot be separated (a coverage hit in an earlier subtable shadows later
// ones), so a single over-budget set ends up isolated in its own subtable
// for reportOversize to diagnose.
func splitLigatureSubst(sets map[otl.GlyphIndex][]otl.Ligature) []otl.Subtable {
	firsts := make([]otl.GlyphIndex, 0, len(sets))
	for g := range sets {
		firsts = append(firsts, g)
	}
	firsts = otl.CoverageOf(firsts...)
	var subtables []otl.Subtable
	chunk := make(map[otl.GlyphIndex][]otl.Ligature)
	size := 0
	for _, g := range firsts {
		// coverage entry + set offset + count, then each ligature record
		setSize := 6
		for _, lig := range sets[g] {
			setSize += 6 + 2*len(lig.Components)
		}
		if size+setSize > otl.SubtableBudget-64 && len(chunk) > 0 {
			subtables = append(subtables, otl.NewLigatureSubst(chunk))
			chunk = make(map[otl.GlyphIndex][]otl.Ligature)
			size = 0
		}
		chunk[g] = sets[g]
		size += setSize
	}
	if len(chunk) > 0 {
		subtables = append(subtables, otl.NewLigatureSubst(chunk))
	}
	return subtables
}

// pendingRevSub accumulates reverse chaining rules, one subtable each.
type pendingRevSub struct {
	subtables []otl.Subtable
}

func newPendingRevSub() pending { return &pendingRevSub{} }

func (p *pendingRevSub) lookupType() otl.LookupType { return otl.GSubLookupTypeReverseChaining }
func (p *pendingRevSub) isGPos() bool               { return false }
func (p *pendingRevSub) boundary()                  {}

func (p *pendingRevSub) add(sub *otl.ReverseChainSubst) {
	p.subtables = append(p.subtables, sub)
}

func (p *pendingRevSub) build(c *compiler, node feasyn.Node) []otl.Subtable {
	return reportOversize(c, node, p.subtables)
}

// pendingContext accumulates chained-context rules (GSUB type 6 or GPOS
// type 8), one format-3 subtable per rule.
type pendingContext struct {
	gpos      bool
	subtables []otl.Subtable
}

func newPendingChainSub() pending  { return &pendingContext{} }
func newPendingChainPos() pending  { return &pendingContext{gpos: true} }

func (p *pendingContext) lookupType() otl.LookupType {
	if p.gpos {
		return otl.GPosLookupTypeChainingContext
	}
	return otl.GSubLookupTypeChainingContext
}

func (p *pendingContext) isGPos() bool { return p.gpos }
func (p *pendingContext) boundary()    {}

func (p *pendingContext) add(ctx otl.SequenceContext) {
	if p.gpos {
		p.subtables = append(p.subtables, &otl.ChainedContextPos{SequenceContext: ctx})
	} else {
		p.subtables = append(p.subtables, &otl.ChainedContextSubst{SequenceContext: ctx})
	}
}

func (p *pendingContext) build(c *compiler, node feasyn.Node) []otl.Subtable {
	return reportOversize(c, node, p.subtables)
}

// --- GPOS pendings ----------------------------------------------------------

type singlePosSegment struct {
	values map[otl.GlyphIndex]otl.ValueRecord
}

type pendingSinglePos struct {
	segments []*singlePosSegment
}

func newPendingSinglePos() pending { return &pendingSinglePos{} }

func (p *pendingSinglePos) lookupType() otl.LookupType { return otl.GPosLookupTypeSingle }
func (p *pendingSinglePos) isGPos() bool               { return true }

func (p *pendingSinglePos) boundary() {
	if len(p.segments) > 0 {
		p.segments = append(p.segments, nil)
	}
}

func (p *pendingSinglePos) current() *singlePosSegment {
	if len(p.segments) == 0 || p.segments[len(p.segments)-1] == nil {
		seg := &singlePosSegment{values: make(map[otl.GlyphIndex]otl.ValueRecord)}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1] == nil {
			p.segments[len(p.segments)-1] = seg
		} else {
			p.segments = append(p.segments, seg)
		}
	}
	return p.segments[len(p.segments)-1]
}

func (p *pendingSinglePos) add(c *compiler, n feasyn.Node, g otl.GlyphIndex, v otl.ValueRecord) {
	seg := p.current()
	if prev, exists := seg.values[g]; exists {
		if prev != v {
			name, _ := c.glyphs.NameFor(g)
			c.errorAt(n, "glyph %s is already positioned differently in this subtable", name)
		}
		return
	}
	seg.values[g] = v
}

func (p *pendingSinglePos) build(c *compiler, node feasyn.Node) []otl.Subtable {
	var subtables []otl.Subtable
	for _, seg := range p.segments {
		if seg == nil || len(seg.values) == 0 {
			continue
		}
		sub := otl.NewSinglePos(seg.values)
		if sub.EstimatedSize() > otl.SubtableBudget {
			subtables = append(subtables, splitSinglePos(seg.values)...)
			continue
		}
		subtables = append(subtables, sub)
	}
	return reportOversize(c, node, subtables)
}

// splitSinglePos splits an oversized single-positioning subtable along
// coverage glyphs.
func splitSinglePos(values map[otl.GlyphIndex]otl.ValueRecord) []otl.Subtable {
	cov := make([]otl.GlyphIndex, 0, len(values))
	for g := range values {
		cov = append(cov, g)
	}
	cov = otl.CoverageOf(cov...)
	var subtables []otl.Subtable
	chunk := make(map[otl.GlyphIndex]otl.ValueRecord)
	size := 0
	for _, g := range cov {
		// coverage entry plus the widest value record with device offsets
		const entrySize = 2 + 16
		if size+entrySize > otl.SubtableBudget-64 && len(chunk) > 0 {
			subtables = append(subtables, otl.NewSinglePos(chunk))
			chunk = make(map[otl.GlyphIndex]otl.ValueRecord)
			size = 0
		}
		chunk[g] = values[g]
		size += entrySize
	}
	if len(chunk) > 0 {
		subtables = append(subtables, otl.NewSinglePos(chunk))
	}
	return subtables
}

type pendingCursive struct {
	records map[otl.GlyphIndex]otl.EntryExit
}

func newPendingCursive() pending {
	return &pendingCursive{records: make(map[otl.GlyphIndex]otl.EntryExit)}
}

func (p *pendingCursive) lookupType() otl.LookupType { return otl.GPosLookupTypeCursive }
func (p *pendingCursive) isGPos() bool               { return true }
func (p *pendingCursive) boundary()                  {}

func (p *pendingCursive) add(c *compiler, n feasyn.Node, g otl.GlyphIndex, ee otl.EntryExit) {
	if _, exists := p.records[g]; exists {
		name, _ := c.glyphs.NameFor(g)
		c.errorAt(n, "glyph %s already has cursive anchors in this lookup", name)
		return
	}
	p.records[g] = ee
}

func (p *pendingCursive) build(c *compiler, node feasyn.Node) []otl.Subtable {
	if len(p.records) == 0 {
		return nil
	}
	sub := otl.NewCursivePos(p.records)
	if sub.EstimatedSize() > otl.SubtableBudget {
		return reportOversize(c, node, splitCursivePos(p.records))
	}
	return []otl.Subtable{sub}
}

// splitCursivePos splits an oversized cursive subtable along coverage
// glyphs; entry/exit records are independent per glyph.
func splitCursivePos(records map[otl.GlyphIndex]otl.EntryExit) []otl.Subtable {
	cov := make([]otl.GlyphIndex, 0, len(records))
	for g := range records {
		cov = append(cov, g)
	}
	cov = otl.CoverageOf(cov...)
	var subtables []otl.Subtable
	chunk := make(map[otl.GlyphIndex]otl.EntryExit)
	size := 0
	for _, g := range cov {
		// coverage entry + two anchor offsets + two worst-case anchors
		const entrySize = 2 + 4 + 44
		if size+entrySize > otl.SubtableBudget-64 && len(chunk) > 0 {
			subtables = append(subtables, otl.NewCursivePos(chunk))
			chunk = make(map[otl.GlyphIndex]otl.EntryExit)
			size = 0
		}
		chunk[g] = records[g]
		size += entrySize
	}
	if len(chunk) > 0 {
		subtables = append(subtables, otl.NewCursivePos(chunk))
	}
	return subtables
}
