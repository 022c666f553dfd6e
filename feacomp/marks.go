package feacomp

import (
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// pendingMarkAttach accumulates mark-to-base and mark-to-mark attachment
// rules. Mark classes get subtable-local class indices in order of first
// use; the mark array is filled from the mark class members' declared
// anchors.
type pendingMarkAttach struct {
	toMark     bool
	classNames []string
	marks      map[otl.GlyphIndex]otl.MarkRecord
	bases      map[otl.GlyphIndex]map[int]*otl.Anchor
}

func newPendingMarkBase() pending {
	return &pendingMarkAttach{
		marks: make(map[otl.GlyphIndex]otl.MarkRecord),
		bases: make(map[otl.GlyphIndex]map[int]*otl.Anchor),
	}
}

func newPendingMarkMark() pending {
	return &pendingMarkAttach{
		toMark: true,
		marks:  make(map[otl.GlyphIndex]otl.MarkRecord),
		bases:  make(map[otl.GlyphIndex]map[int]*otl.Anchor),
	}
}

func (p *pendingMarkAttach) lookupType() otl.LookupType {
	if p.toMark {
		return otl.GPosLookupTypeMarkToMark
	}
	return otl.GPosLookupTypeMarkToBase
}

func (p *pendingMarkAttach) isGPos() bool { return true }
func (p *pendingMarkAttach) boundary()    {}

// classIndex returns the subtable-local index of a mark class, registering
// the class's glyphs and anchors on first use.
func (p *pendingMarkAttach) classIndex(c *compiler, mc *feasem.MarkClass) int {
	for i, name := range p.classNames {
		if name == mc.Name {
			return i
		}
	}
	index := len(p.classNames)
	p.classNames = append(p.classNames, mc.Name)
	for _, member := range mc.Members {
		for _, g := range member.Glyphs {
			p.marks[g] = otl.MarkRecord{Class: uint16(index), Anchor: member.Anchor.ToAnchor()}
			c.usage.marks[g] = true
		}
	}
	return index
}

// addBase records the base-side anchor of one (base glyph, mark class)
// combination.
func (p *pendingMarkAttach) addBase(c *compiler, n feasyn.Node, g otl.GlyphIndex, class int, anchor *otl.Anchor) {
	row := p.bases[g]
	if row == nil {
		row = make(map[int]*otl.Anchor)
		p.bases[g] = row
	}
	if _, exists := row[class]; exists {
		name, _ := c.glyphs.NameFor(g)
		c.errorAt(n, "glyph %s already has an anchor for this mark class", name)
		return
	}
	row[class] = anchor
	if !p.toMark {
		c.usage.bases[g] = true
	}
}

func (p *pendingMarkAttach) build(c *compiler, node feasyn.Node) []otl.Subtable {
	if len(p.marks) == 0 || len(p.bases) == 0 {
		return nil
	}
	markCov := otl.NewCoverageBuilder()
	for g := range p.marks {
		markCov.Add(g)
	}
	baseCov := otl.NewCoverageBuilder()
	for g := range p.bases {
		baseCov.Add(g)
	}
	sub := &otl.MarkAttachPos{
		MarkCoverage: markCov.Coverage(),
		BaseCoverage: baseCov.Coverage(),
		ToMark:       p.toMark,
	}
	sub.MarkRecords = make([]otl.MarkRecord, len(sub.MarkCoverage))
	for i, g := range sub.MarkCoverage {
		sub.MarkRecords[i] = p.marks[g]
	}
	classCount := len(p.classNames)
	sub.BaseAnchors = make([][]*otl.Anchor, len(sub.BaseCoverage))
	for i, g := range sub.BaseCoverage {
		row := make([]*otl.Anchor, classCount)
		for class, anchor := range p.bases[g] {
			row[class] = anchor
		}
		sub.BaseAnchors[i] = row
	}
	// the mark array is shared by every base row, so the subtable does not
	// split along bases; over-budget data is diagnosed instead
	return reportOversize(c, node, []otl.Subtable{sub})
}

// pendingMarkLig accumulates mark-to-ligature attachment rules. Each
// ligature carries one anchor row per component.
type pendingMarkLig struct {
	classNames []string
	marks      map[otl.GlyphIndex]otl.MarkRecord
	ligs       map[otl.GlyphIndex][]map[int]*otl.Anchor
}

func newPendingMarkLig() pending {
	return &pendingMarkLig{
		marks: make(map[otl.GlyphIndex]otl.MarkRecord),
		ligs:  make(map[otl.GlyphIndex][]map[int]*otl.Anchor),
	}
}

func (p *pendingMarkLig) lookupType() otl.LookupType { return otl.GPosLookupTypeMarkToLigature }
func (p *pendingMarkLig) isGPos() bool               { return true }
func (p *pendingMarkLig) boundary()                  {}

func (p *pendingMarkLig) classIndex(c *compiler, mc *feasem.MarkClass) int {
	for i, name := range p.classNames {
		if name == mc.Name {
			return i
		}
	}
	index := len(p.classNames)
	p.classNames = append(p.classNames, mc.Name)
	for _, member := range mc.Members {
		for _, g := range member.Glyphs {
			p.marks[g] = otl.MarkRecord{Class: uint16(index), Anchor: member.Anchor.ToAnchor()}
			c.usage.marks[g] = true
		}
	}
	return index
}

// addComponent records the anchors of one ligature component. Components
// arrive in source order; component rows grow as needed.
func (p *pendingMarkLig) addComponent(c *compiler, g otl.GlyphIndex, component int, anchors map[int]*otl.Anchor) {
	rows := p.ligs[g]
	for len(rows) <= component {
		rows = append(rows, make(map[int]*otl.Anchor))
	}
	for class, anchor := range anchors {
		rows[component][class] = anchor
	}
	p.ligs[g] = rows
	c.usage.ligatures[g] = true
}

func (p *pendingMarkLig) build(c *compiler, node feasyn.Node) []otl.Subtable {
	if len(p.marks) == 0 || len(p.ligs) == 0 {
		return nil
	}
	markCov := otl.NewCoverageBuilder()
	for g := range p.marks {
		markCov.Add(g)
	}
	ligCov := otl.NewCoverageBuilder()
	for g := range p.ligs {
		ligCov.Add(g)
	}
	sub := &otl.MarkLigPos{
		MarkCoverage:     markCov.Coverage(),
		LigatureCoverage: ligCov.Coverage(),
	}
	sub.MarkRecords = make([]otl.MarkRecord, len(sub.MarkCoverage))
	for i, g := range sub.MarkCoverage {
		sub.MarkRecords[i] = p.marks[g]
	}
	classCount := len(p.classNames)
	sub.LigatureAnchors = make([][][]*otl.Anchor, len(sub.LigatureCoverage))
	for i, g := range sub.LigatureCoverage {
		components := p.ligs[g]
		ligRows := make([][]*otl.Anchor, len(components))
		for comp, anchors := range components {
			row := make([]*otl.Anchor, classCount)
			for class, anchor := range anchors {
				row[class] = anchor
			}
			ligRows[comp] = row
		}
		sub.LigatureAnchors[i] = ligRows
	}
	return reportOversize(c, node, []otl.Subtable{sub})
}
