package feacomp

import (
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// featureCompiler lowers one feature block. Lookups accumulate per rule run
// and are attached to the language systems in effect when their rules
// appeared: rules outside any script/language guard go to all declared
// systems, rules inside guards only to the guarded pairs.
type featureCompiler struct {
	c   *compiler
	tag otl.Tag

	blockUseExtension bool

	attachGSub map[sysPair][]uint16
	attachGPos map[sysPair][]uint16
	sysOrder   []sysPair // order of first attachment

	targets    []sysPair
	curScript  otl.Tag
	haveScript bool

	// lookups attached before the first script statement, replayed into
	// guarded sections that include defaults
	defaultGSub []uint16
	defaultGPos []uint16

	pend     pending
	pendFlag feasem.FlagState
	pendNode feasyn.Node
}

func (c *compiler) compileFeature(block feaast.FeatureBlock) {
	tagView, ok := block.Tag()
	if !ok {
		return
	}
	tag := otl.T(tagView.Text())
	tracer().Debugf("compiling feature %s", tag)
	fc := &featureCompiler{
		c:                 c,
		tag:               tag,
		blockUseExtension: block.UseExtension(),
		attachGSub:        make(map[sysPair][]uint16),
		attachGPos:        make(map[sysPair][]uint16),
		targets:           append([]sysPair(nil), c.systems...),
	}
	empty := true
	for stmt := range block.Statements() {
		if fc.statement(stmt) {
			empty = false
		}
	}
	fc.flush()
	if empty {
		c.warnAt(block.Node(), "feature %s is empty", tag)
	}
	fc.makeRecords()
	c.lowerFeatureExtras(block, tagView.Text())
}

// statement processes one feature-block statement; it reports whether the
// statement contributes rules or lookups.
func (fc *featureCompiler) statement(n feasyn.Node) bool {
	switch n.Kind() {
	case feasyn.NodeSubRule:
		rule, _ := feaast.AsSubRule(n)
		fc.ingestSub(rule)
		return true
	case feasyn.NodePosRule:
		rule, _ := feaast.AsPosRule(n)
		fc.ingestPos(rule)
		return true
	case feasyn.NodeIgnoreRule:
		rule, _ := feaast.AsIgnoreRule(n)
		fc.ingestIgnore(rule)
		return true
	case feasyn.NodeLookupBlock:
		fc.flush()
		block, _ := feaast.AsLookupBlock(n)
		results := fc.c.compileLookupBlock(block)
		for _, h := range results {
			fc.attachHandle(h)
		}
		return len(results) > 0
	case feasyn.NodeLookupRef:
		fc.flush()
		ref, _ := feaast.AsLookupRef(n)
		label, _, ok := ref.Label()
		if !ok {
			return false
		}
		runs, found := fc.c.namedRuns[label]
		if !found {
			fc.c.errorAt(n, "lookup %s was not compiled", label)
			return false
		}
		for _, h := range runs {
			fc.attachHandle(h)
		}
		return true
	case feasyn.NodeLookupFlag:
		// a flag change splits the lookup run; the effective flag for each
		// rule was recorded by the validator
		fc.flush()
		return false
	case feasyn.NodeScriptStmt:
		fc.flush()
		stmt, _ := feaast.AsScriptStmt(n)
		if tag, ok := stmt.Tag(); ok {
			fc.curScript = otl.T(tag.Text())
			fc.haveScript = true
			pair := sysPair{script: fc.curScript, lang: otl.DfltLang}
			fc.targets = []sysPair{pair}
			// the script's dflt section starts with the feature's global
			// default lookups
			fc.seed(pair, fc.defaultGSub, fc.defaultGPos)
		}
		return false
	case feasyn.NodeLanguageStmt:
		fc.flush()
		stmt, _ := feaast.AsLanguageStmt(n)
		tag, ok := stmt.Tag()
		if !ok {
			return false
		}
		if !fc.haveScript {
			fc.curScript = otl.DFLT
			fc.haveScript = true
		}
		pair := sysPair{script: fc.curScript, lang: otl.T(tag.Text())}
		fc.targets = []sysPair{pair}
		if stmt.ExcludesDefault() {
			// drop anything the pair inherited as a declared language system
			fc.seed(pair, nil, nil)
		} else {
			dflt := sysPair{script: fc.curScript, lang: otl.DfltLang}
			fc.seed(pair, fc.attachGSub[dflt], fc.attachGPos[dflt])
		}
		return false
	case feasyn.NodeSubtableStmt:
		if fc.pend != nil {
			fc.pend.boundary()
		}
		return false
	default:
		// parameters, featureNames, cvParameters, sizemenuname and the
		// declaration statements are handled elsewhere or have no lookups
		return false
	}
}

// seed copies lookup attachments into a (script, language) pair that
// inherits defaults.
func (fc *featureCompiler) seed(pair sysPair, gsubLookups, gposLookups []uint16) {
	fc.noteSystem(pair)
	fc.attachGSub[pair] = append([]uint16(nil), gsubLookups...)
	fc.attachGPos[pair] = append([]uint16(nil), gposLookups...)
}

func (fc *featureCompiler) noteSystem(pair sysPair) {
	for _, existing := range fc.sysOrder {
		if existing == pair {
			return
		}
	}
	fc.sysOrder = append(fc.sysOrder, pair)
}

// attach records a finished lookup index for all current target systems.
func (fc *featureCompiler) attach(isGPos bool, index uint16) {
	for _, pair := range fc.targets {
		fc.noteSystem(pair)
		if isGPos {
			fc.attachGPos[pair] = append(fc.attachGPos[pair], index)
		} else {
			fc.attachGSub[pair] = append(fc.attachGSub[pair], index)
		}
	}
	if !fc.haveScript {
		if isGPos {
			fc.defaultGPos = append(fc.defaultGPos, index)
		} else {
			fc.defaultGSub = append(fc.defaultGSub, index)
		}
	}
}

func (fc *featureCompiler) attachHandle(h lookupHandle) {
	fc.attach(h.isGPos, h.index)
}

// ensure prepares the pending accumulation for a rule of the wanted type
// under the given flag state, flushing any incompatible run first.
func (fc *featureCompiler) ensure(n feasyn.Node, mk func() pending) pending {
	flag := fc.c.st.FlagFor(n)
	probe := mk()
	if fc.pend != nil {
		sameType := fc.pend.lookupType() == probe.lookupType() &&
			fc.pend.isGPos() == probe.isGPos()
		if !sameType || !flagStateEqual(fc.pendFlag, flag) {
			fc.flush()
		}
	}
	if fc.pend == nil {
		fc.pend = probe
		fc.pendFlag = flag
		fc.pendNode = n
	}
	return fc.pend
}

func flagStateEqual(a, b feasem.FlagState) bool {
	return a.Flag == b.Flag &&
		glyphSetEqual(a.MarkAttachClass, b.MarkAttachClass) &&
		glyphSetEqual(a.MarkFilterSet, b.MarkFilterSet)
}

// flush materializes the pending accumulation into a lookup, adds it to its
// table and attaches its index to the current targets.
func (fc *featureCompiler) flush() {
	if fc.pend == nil {
		return
	}
	pend := fc.pend
	fc.pend = nil
	subtables := pend.build(fc.c, fc.pendNode)
	if len(subtables) == 0 {
		return
	}
	index := fc.c.emitLookup(pend.isGPos(), pend.lookupType(), fc.pendFlag,
		fc.blockUseExtension, subtables, "")
	fc.attach(pend.isGPos(), index)
}

// emitLookup finalizes a lookup from built subtables and returns its index
// in the owning table.
func (c *compiler) emitLookup(isGPos bool, lty otl.LookupType, fs feasem.FlagState,
	useExtension bool, subtables []otl.Subtable, label string) uint16 {

	flag, filterSet := c.lookupFlagOf(fs)
	lookup := otl.NewLookup(lty, flag)
	lookup.MarkFilteringSet = filterSet
	lookup.Label = label
	for _, sub := range subtables {
		lookup.Add(sub)
	}
	// the lookup-to-subtable offsets are 16-bit; extension records widen
	// them to 32 bit when the combined subtable data overflows. A single
	// subtable over the budget is a different problem: its internal
	// offsets stay 16-bit, and the build paths have already reported it.
	if lookup.EstimatedSize() > otl.SubtableBudget {
		lookup.UseExtension = true
	}
	if useExtension {
		lookup.UseExtension = true
	}
	if isGPos {
		return c.gpos.AddLookup(lookup)
	}
	return c.gsub.AddLookup(lookup)
}

// --- Feature records --------------------------------------------------------

// makeRecords fans the attachments out into feature records, one per
// (script, language) pair with lookups, in declaration order first and
// first-guard order after.
func (fc *featureCompiler) makeRecords() {
	ordered := make([]sysPair, 0, len(fc.sysOrder)+len(fc.c.systems))
	seen := make(map[sysPair]bool)
	for _, pair := range fc.c.systems {
		ordered = append(ordered, pair)
		seen[pair] = true
	}
	for _, pair := range fc.sysOrder {
		if !seen[pair] {
			ordered = append(ordered, pair)
			seen[pair] = true
		}
	}
	for _, pair := range ordered {
		if lookups := fc.attachGSub[pair]; len(lookups) > 0 {
			fc.c.gsub.Features = append(fc.c.gsub.Features, otl.FeatureRecord{
				Script: pair.script, Language: pair.lang, Feature: fc.tag,
				Lookups: dedupIndices(lookups),
			})
		}
		if lookups := fc.attachGPos[pair]; len(lookups) > 0 {
			fc.c.gpos.Features = append(fc.c.gpos.Features, otl.FeatureRecord{
				Script: pair.script, Language: pair.lang, Feature: fc.tag,
				Lookups: dedupIndices(lookups),
			})
		}
	}
}

// dedupIndices drops repeated lookup indices, keeping first positions.
func dedupIndices(indices []uint16) []uint16 {
	seen := make(map[uint16]bool, len(indices))
	result := make([]uint16, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			result = append(result, i)
		}
	}
	return result
}

// --- Standalone and nested lookup blocks ------------------------------------

// compileStandaloneLookup compiles a top-level lookup block; its lookups
// are registered under the block's label but attached to no feature until
// referenced.
func (c *compiler) compileStandaloneLookup(block feaast.LookupBlock) {
	c.compileLookupBlock(block)
}

// compileLookupBlock compiles the rules of a named lookup block into one or
// more lookups (one per rule-type/flag run) and registers the label with
// the first resulting lookup. It returns all resulting handles in order.
func (c *compiler) compileLookupBlock(block feaast.LookupBlock) []lookupHandle {
	label, _, _ := block.Label()
	lc := &lookupBlockCompiler{c: c, label: label, useExtension: block.UseExtension()}
	for stmt := range block.Statements() {
		lc.statement(stmt)
	}
	lc.flush()
	if len(lc.results) > 0 {
		c.named[label] = lc.results[0]
		c.namedRuns[label] = lc.results
	} else if label != "" {
		c.warnAt(block.Node(), "lookup %s produced no subtables", label)
	}
	return lc.results
}

// lookupBlockCompiler accumulates rules inside a named lookup block. It
// reuses the featureCompiler's pending machinery but attaches nothing; the
// results are collected for the caller.
type lookupBlockCompiler struct {
	c            *compiler
	label        string
	useExtension bool
	results      []lookupHandle

	pend     pending
	pendFlag feasem.FlagState
	pendNode feasyn.Node
}

func (lc *lookupBlockCompiler) statement(n feasyn.Node) {
	switch n.Kind() {
	case feasyn.NodeSubRule:
		rule, _ := feaast.AsSubRule(n)
		ingestSubRule(lc, rule)
	case feasyn.NodePosRule:
		rule, _ := feaast.AsPosRule(n)
		ingestPosRule(lc, rule)
	case feasyn.NodeIgnoreRule:
		rule, _ := feaast.AsIgnoreRule(n)
		ingestIgnoreRule(lc, rule)
	case feasyn.NodeLookupFlag:
		lc.flush()
	case feasyn.NodeSubtableStmt:
		if lc.pend != nil {
			lc.pend.boundary()
		}
	}
}

func (lc *lookupBlockCompiler) compiler() *compiler { return lc.c }

func (lc *lookupBlockCompiler) featureTag() otl.Tag { return 0 }

func (lc *lookupBlockCompiler) ensure(n feasyn.Node, mk func() pending) pending {
	flag := lc.c.st.FlagFor(n)
	probe := mk()
	if lc.pend != nil {
		sameType := lc.pend.lookupType() == probe.lookupType() &&
			lc.pend.isGPos() == probe.isGPos()
		if !sameType || !flagStateEqual(lc.pendFlag, flag) {
			lc.flush()
		}
	}
	if lc.pend == nil {
		lc.pend = probe
		lc.pendFlag = flag
		lc.pendNode = n
	}
	return lc.pend
}

func (lc *lookupBlockCompiler) flush() {
	if lc.pend == nil {
		return
	}
	pend := lc.pend
	lc.pend = nil
	subtables := pend.build(lc.c, lc.pendNode)
	if len(subtables) == 0 {
		return
	}
	label := ""
	if len(lc.results) == 0 {
		label = lc.label
	}
	index := lc.c.emitLookup(pend.isGPos(), pend.lookupType(), lc.pendFlag,
		lc.useExtension, subtables, label)
	lc.results = append(lc.results, lookupHandle{
		isGPos: pend.isGPos(),
		index:  index,
		ltype:  pend.lookupType(),
	})
}
