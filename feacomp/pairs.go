package feacomp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// classPairRule is one class-based kern rule awaiting class assignment.
type classPairRule struct {
	left  feasem.GlyphSet
	right feasem.GlyphSet
	v1    otl.ValueRecord
	v2    otl.ValueRecord
}

type pairSegment struct {
	glyphPairs map[[2]otl.GlyphIndex][2]otl.ValueRecord
	classRules []classPairRule
}

// pendingPair accumulates pair positioning rules. Glyph-based and
// class-based rules may mix within one feature; glyph rules are emitted in
// their own subtable (format 1, or format 2 when that is not larger)
// preceding the format-2 class subtable, so they take
// precedence during shaping (a subtable match stops processing). Duplicate
// glyph pairs resolve last-wins with a warning.
type pendingPair struct {
	segments []*pairSegment
}

func newPendingPair() pending { return &pendingPair{} }

func (p *pendingPair) lookupType() otl.LookupType { return otl.GPosLookupTypePair }
func (p *pendingPair) isGPos() bool               { return true }

func (p *pendingPair) boundary() {
	if len(p.segments) > 0 {
		p.segments = append(p.segments, nil)
	}
}

func (p *pendingPair) current() *pairSegment {
	if len(p.segments) == 0 || p.segments[len(p.segments)-1] == nil {
		seg := &pairSegment{glyphPairs: make(map[[2]otl.GlyphIndex][2]otl.ValueRecord)}
		if len(p.segments) > 0 && p.segments[len(p.segments)-1] == nil {
			p.segments[len(p.segments)-1] = seg
		} else {
			p.segments = append(p.segments, seg)
		}
	}
	return p.segments[len(p.segments)-1]
}

func (p *pendingPair) addGlyphPair(c *compiler, n feasyn.Node, first, second otl.GlyphIndex, v1, v2 otl.ValueRecord) {
	seg := p.current()
	key := [2]otl.GlyphIndex{first, second}
	if prev, exists := seg.glyphPairs[key]; exists && prev != [2]otl.ValueRecord{v1, v2} {
		n1, _ := c.glyphs.NameFor(first)
		n2, _ := c.glyphs.NameFor(second)
		c.warnAt(n, "kern pair %s %s is specified twice; the later value wins", n1, n2)
	}
	seg.glyphPairs[key] = [2]otl.ValueRecord{v1, v2}
}

func (p *pendingPair) addClassPair(left, right feasem.GlyphSet, v1, v2 otl.ValueRecord) {
	seg := p.current()
	seg.classRules = append(seg.classRules, classPairRule{left: left, right: right, v1: v1, v2: v2})
}

func (p *pendingPair) build(c *compiler, node feasyn.Node) []otl.Subtable {
	var subtables []otl.Subtable
	for _, seg := range p.segments {
		if seg == nil {
			continue
		}
		if len(seg.glyphPairs) > 0 {
			subtables = append(subtables, buildGlyphPairs(seg.glyphPairs)...)
		}
		if len(seg.classRules) > 0 {
			// a class matrix cannot be split: every rule contributes one
			// cell of the shared class1 x class2 grid; an over-budget
			// matrix is diagnosed by reportOversize below
			if sub := buildClassPairs(c, node, seg.classRules); sub != nil {
				subtables = append(subtables, sub)
			}
		}
	}
	return reportOversize(c, node, subtables)
}

// buildGlyphPairs chooses between pair-set (format 1) and class-pair
// (format 2) representation for pure glyph-pair data, picking whichever
// serializes smaller with a tie-break toward format 2. Data too large for
// one format-1 subtable splits along first glyphs instead.
func buildGlyphPairs(pairs map[[2]otl.GlyphIndex][2]otl.ValueRecord) []otl.Subtable {
	perFirst := make(map[otl.GlyphIndex][]otl.PairValue)
	for key, values := range pairs {
		perFirst[key[0]] = append(perFirst[key[0]], otl.PairValue{
			Second: key[1], V1: values[0], V2: values[1],
		})
	}
	format1 := otl.NewPairPos(perFirst)
	if format1.EstimatedSize() > otl.SubtableBudget {
		return splitPairPos(perFirst)
	}
	format2 := classifyGlyphPairs(format1)
	if format2 != nil && format2.EstimatedSize() <= format1.EstimatedSize() {
		return []otl.Subtable{format2}
	}
	return []otl.Subtable{format1}
}

// splitPairPos splits pair-set data along first glyphs. All pairs sharing
// a first glyph form one PairSet and stay together; a single over-budget
// set lands in its own subtable for reportOversize to diagnose.
func splitPairPos(perFirst map[otl.GlyphIndex][]otl.PairValue) []otl.Subtable {
	firsts := make([]otl.GlyphIndex, 0, len(perFirst))
	for g := range perFirst {
		firsts = append(firsts, g)
	}
	firsts = otl.CoverageOf(firsts...)
	var subtables []otl.Subtable
	chunk := make(map[otl.GlyphIndex][]otl.PairValue)
	size := 0
	for _, g := range firsts {
		// coverage entry + set offset + count, then each record with two
		// worst-case value records
		setSize := 6 + len(perFirst[g])*(2+16+16)
		if size+setSize > otl.SubtableBudget-64 && len(chunk) > 0 {
			subtables = append(subtables, otl.NewPairPos(chunk))
			chunk = make(map[otl.GlyphIndex][]otl.PairValue)
			size = 0
		}
		chunk[g] = perFirst[g]
		size += setSize
	}
	if len(chunk) > 0 {
		subtables = append(subtables, otl.NewPairPos(chunk))
	}
	return subtables
}

// classifyGlyphPairs derives a class-pair subtable from glyph-pair data by
// unifying first glyphs with identical adjustment rows and second glyphs
// with identical columns. Returns nil when the data does not reduce (every
// class would hold one glyph).
func classifyGlyphPairs(format1 *otl.PairPos) *otl.ClassPairPos {
	// group first glyphs by row signature
	rowSig := func(set []otl.PairValue) string {
		var sb strings.Builder
		for _, pv := range set {
			fmt.Fprintf(&sb, "%d:%v:%v;", pv.Second, pv.V1, pv.V2)
		}
		return sb.String()
	}
	class1 := otl.NewClassDef()
	rowOfClass := make(map[uint16][]otl.PairValue)
	sigToClass := make(map[string]uint16)
	next1 := uint16(0) // class 0 is a real row class here: all firsts are covered
	for i, first := range format1.Coverage {
		sig := rowSig(format1.PairSets[i])
		classNum, ok := sigToClass[sig]
		if !ok {
			classNum = next1
			next1++
			sigToClass[sig] = classNum
			rowOfClass[classNum] = format1.PairSets[i]
		}
		class1.SetClass(first, classNum)
	}
	// group second glyphs by their value across all row classes
	colSig := func(second otl.GlyphIndex) string {
		var sb strings.Builder
		for classNum := uint16(0); classNum < next1; classNum++ {
			for _, pv := range rowOfClass[classNum] {
				if pv.Second == second {
					fmt.Fprintf(&sb, "%d=%v:%v;", classNum, pv.V1, pv.V2)
				}
			}
		}
		return sb.String()
	}
	seconds := otl.NewCoverageBuilder()
	for _, set := range format1.PairSets {
		for _, pv := range set {
			seconds.Add(pv.Second)
		}
	}
	class2 := otl.NewClassDef()
	colToClass := make(map[string]uint16)
	next2 := uint16(1) // class 0 of the second axis means "no adjustment"
	classOfSecond := make(map[otl.GlyphIndex]uint16)
	for _, second := range seconds.Coverage() {
		sig := colSig(second)
		classNum, ok := colToClass[sig]
		if !ok {
			classNum = next2
			next2++
			colToClass[sig] = classNum
		}
		class2.SetClass(second, classNum)
		classOfSecond[second] = classNum
	}
	if int(next1) == len(format1.Coverage) && int(next2-1) == seconds.Len() {
		return nil // nothing unified, format 1 cannot lose
	}
	matrix := make([][][2]otl.ValueRecord, next1)
	for c1 := range matrix {
		matrix[c1] = make([][2]otl.ValueRecord, next2)
		for _, pv := range rowOfClass[uint16(c1)] {
			matrix[c1][classOfSecond[pv.Second]] = [2]otl.ValueRecord{pv.V1, pv.V2}
		}
	}
	return &otl.ClassPairPos{
		Coverage:  format1.Coverage,
		ClassDef1: class1,
		ClassDef2: class2,
		Matrix:    matrix,
	}
}

// buildClassPairs lowers class-based kern rules to a format-2 subtable.
// Class numbers are assigned per distinct glyph set in rule order; a glyph
// claimed by two different sets on the same side keeps its first class and
// the conflicting rule is reported.
func buildClassPairs(c *compiler, node feasyn.Node, rules []classPairRule) otl.Subtable {
	class1 := otl.NewClassDef()
	class2 := otl.NewClassDef()
	assign := func(cdef *otl.ClassDef, classes *[]feasem.GlyphSet, set feasem.GlyphSet) (uint16, bool) {
		for i, existing := range *classes {
			if glyphSetEqual(existing, set) {
				return uint16(i + 1), true
			}
		}
		for _, g := range set {
			if cdef.Class(g) != 0 {
				return 0, false
			}
		}
		*classes = append(*classes, set)
		classNum := uint16(len(*classes))
		for _, g := range set {
			cdef.SetClass(g, classNum)
		}
		return classNum, true
	}
	var sets1, sets2 []feasem.GlyphSet
	type cell struct {
		c1, c2 uint16
		v      [2]otl.ValueRecord
	}
	var cells []cell
	covBuilder := otl.NewCoverageBuilder()
	for _, rule := range rules {
		c1, ok1 := assign(class1, &sets1, rule.left)
		c2, ok2 := assign(class2, &sets2, rule.right)
		if !ok1 || !ok2 {
			c.errorAt(node, "kern classes overlap: a glyph cannot belong to two classes on the same side of one subtable")
			continue
		}
		covBuilder.Add(rule.left...)
		cells = append(cells, cell{c1: c1, c2: c2, v: [2]otl.ValueRecord{rule.v1, rule.v2}})
	}
	if len(cells) == 0 {
		return nil
	}
	matrix := make([][][2]otl.ValueRecord, class1.ClassCount())
	for i := range matrix {
		matrix[i] = make([][2]otl.ValueRecord, class2.ClassCount())
	}
	filled := make(map[[2]uint16]bool)
	for _, cl := range cells {
		key := [2]uint16{cl.c1, cl.c2}
		if filled[key] && matrix[cl.c1][cl.c2] != cl.v {
			c.errorAt(node, "conflicting kern values for one class pair in a single subtable")
			continue
		}
		filled[key] = true
		matrix[cl.c1][cl.c2] = cl.v
	}
	return &otl.ClassPairPos{
		Coverage:  covBuilder.Coverage(),
		ClassDef1: class1,
		ClassDef2: class2,
		Matrix:    matrix,
	}
}

// sortedPairKeys is a test/debug helper returning pair keys in canonical
// order.
func sortedPairKeys(pairs map[[2]otl.GlyphIndex][2]otl.ValueRecord) [][2]otl.GlyphIndex {
	keys := make([][2]otl.GlyphIndex, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}
