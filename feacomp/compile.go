package feacomp

import (
	"fmt"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// sysPair is one declared language system.
type sysPair struct {
	script otl.Tag
	lang   otl.Tag
}

// lookupHandle locates a compiled named lookup.
type lookupHandle struct {
	isGPos bool
	index  uint16
	ltype  otl.LookupType
}

// Compile lowers a validated parse tree into OpenType tables and hands them
// to the builder sink. The symbol table must come from a validation run
// that produced no errors; behavior on an error-carrying table is
// unspecified beyond not panicking. The returned diagnostics carry
// compile-stage errors and warnings.
func Compile(tree feasyn.Node, symbols *feasem.SymbolTable, glyphs otl.GlyphMap, builder otl.TableBuilder) []diag.Diagnostic {
	c := newCompiler(symbols, glyphs)
	file, ok := feaast.AsFile(tree)
	if !ok {
		c.diags.Error(tree.Span(), "compiler input is not a parsed feature file")
		return c.diags.All()
	}
	c.run(file)
	if !c.diags.HasErrors() {
		c.emit(builder)
	}
	return c.diags.All()
}

type compiler struct {
	st     *feasem.SymbolTable
	glyphs otl.GlyphMap
	diags  *diag.Collector

	gsub *otl.GSubTable
	gpos *otl.GPosTable

	gdef         *otl.GDefTable
	gdefExplicit bool
	head         *otl.HeadTable
	hhea         *otl.HHeaTable
	vhea         *otl.VHeaTable
	os2          *otl.OS2Table
	name         *otl.NameTable
	stat         *otl.StatTable
	base         *otl.BaseTable
	vmtx         *otl.VmtxTable

	systems []sysPair
	// named holds the primary lookup of each label (the target of
	// contextual references); namedRuns holds every lookup a block yielded,
	// for feature-level references
	named     map[string]lookupHandle
	namedRuns map[string][]lookupHandle

	// mark attachment classes assigned for MarkAttachmentType flags,
	// in order of first use; class numbers start at 1
	markAttachSets []feasem.GlyphSet

	aalt *aaltState

	// glyph class usage collected for GDEF synthesis
	usage gdefUsage
}

func newCompiler(symbols *feasem.SymbolTable, glyphs otl.GlyphMap) *compiler {
	return &compiler{
		st:     symbols,
		glyphs: glyphs,
		diags:  diag.NewCollector(diag.StageCompile),
		gsub:   &otl.GSubTable{},
		gpos:   &otl.GPosTable{},
		gdef:   &otl.GDefTable{},
		head:   &otl.HeadTable{},
		hhea:   &otl.HHeaTable{},
		vhea:   &otl.VHeaTable{},
		os2:    &otl.OS2Table{},
		name:   &otl.NameTable{},
		stat:   &otl.StatTable{},
		base:   &otl.BaseTable{},
		vmtx:      &otl.VmtxTable{},
		named:     make(map[string]lookupHandle),
		namedRuns: make(map[string][]lookupHandle),
		aalt:   newAaltState(),
		usage: gdefUsage{
			bases:     make(map[otl.GlyphIndex]bool),
			ligatures: make(map[otl.GlyphIndex]bool),
			marks:     make(map[otl.GlyphIndex]bool),
		},
	}
}

func (c *compiler) errorAt(n feasyn.Node, format string, args ...any) {
	c.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityError,
		Span:     n.Span(),
		File:     n.File(),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *compiler) warnAt(n feasyn.Node, format string, args ...any) {
	c.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Span:     n.Span(),
		File:     n.File(),
		Message:  fmt.Sprintf(format, args...),
	})
}

// --- Driver -----------------------------------------------------------------

func (c *compiler) run(file feaast.File) {
	var features []feaast.FeatureBlock
	var aaltBlock *feaast.FeatureBlock
	c.collectItems(file, &features, &aaltBlock)

	if len(c.systems) == 0 {
		// a source without languagesystem declarations compiles against the
		// implicit default system
		c.systems = []sysPair{{script: otl.DFLT, lang: otl.DfltLang}}
	}

	for i := range features {
		c.compileFeature(features[i])
	}
	// aalt aggregates from the other features, so it compiles last
	if aaltBlock != nil {
		c.compileAalt(*aaltBlock)
	}
	if !c.gdefExplicit {
		c.synthesizeGDef()
	}
	c.fillMarkAttachClasses()
	c.gdef.SortLists()
	c.vmtx.Sort()
	c.name.Sort()
}

// collectItems walks the file (descending into includes): language systems
// and table blocks lower immediately, named top-level lookups compile in
// place, feature blocks queue for the second pass.
func (c *compiler) collectItems(file feaast.File, features *[]feaast.FeatureBlock, aaltBlock **feaast.FeatureBlock) {
	for item := range file.Items() {
		switch item.Kind() {
		case feasyn.NodeLanguageSystem:
			c.addLanguageSystem(item)
		case feasyn.NodeInclude:
			if inc, ok := feaast.AsInclude(item); ok {
				if inner, _, ok := inc.Inner(); ok {
					c.collectItems(inner, features, aaltBlock)
				}
			}
		case feasyn.NodeLookupBlock:
			block, _ := feaast.AsLookupBlock(item)
			c.compileStandaloneLookup(block)
		case feasyn.NodeTableBlock:
			block, _ := feaast.AsTableBlock(item)
			c.compileTableBlock(block)
		case feasyn.NodeFeatureBlock:
			block, _ := feaast.AsFeatureBlock(item)
			if tag, ok := block.Tag(); ok && tag.Text() == "aalt" {
				b := block
				*aaltBlock = &b
				continue
			}
			*features = append(*features, block)
		}
	}
}

func (c *compiler) addLanguageSystem(n feasyn.Node) {
	ls, _ := feaast.AsLanguageSystem(n)
	scriptTag, ok1 := ls.Script()
	langTag, ok2 := ls.Language()
	if !ok1 || !ok2 {
		return
	}
	pair := sysPair{script: otl.T(scriptTag.Text()), lang: otl.T(langTag.Text())}
	for _, existing := range c.systems {
		if existing == pair {
			c.warnAt(n, "languagesystem %s %s is declared twice", scriptTag.Text(), langTag.Text())
			return
		}
	}
	c.systems = append(c.systems, pair)
}

// markAttachClassFor assigns a mark attachment class number (1-based) for
// a glyph set, reusing earlier assignments with identical content.
func (c *compiler) markAttachClassFor(set feasem.GlyphSet) uint16 {
	for i, existing := range c.markAttachSets {
		if glyphSetEqual(existing, set) {
			return uint16(i + 1)
		}
	}
	c.markAttachSets = append(c.markAttachSets, set)
	return uint16(len(c.markAttachSets))
}

func glyphSetEqual(a, b feasem.GlyphSet) bool {
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

// lookupFlagOf converts a validator flag state into the final lookup flag
// plus the optional mark filtering set index, assigning mark attachment
// classes and GDEF mark glyph sets as needed.
func (c *compiler) lookupFlagOf(fs feasem.FlagState) (otl.LookupFlag, otl.Option[uint16]) {
	flag := fs.Flag
	filterSet := otl.None[uint16]()
	if len(fs.MarkAttachClass) > 0 {
		flag = flag.WithMarkAttachmentType(c.markAttachClassFor(fs.MarkAttachClass))
	}
	if flag&otl.LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 && len(fs.MarkFilterSet) > 0 {
		cov := otl.CoverageOf(fs.MarkFilterSet...)
		filterSet = otl.Some(c.gdef.AddMarkGlyphSet(cov))
	}
	return flag, filterSet
}

// fillMarkAttachClasses writes the assigned mark attachment classes into
// GDEF's MarkAttachClassDef.
func (c *compiler) fillMarkAttachClasses() {
	if len(c.markAttachSets) == 0 {
		return
	}
	if c.gdef.MarkAttachmentClassDef == nil {
		c.gdef.MarkAttachmentClassDef = otl.NewClassDef()
	}
	for i, set := range c.markAttachSets {
		for _, g := range set {
			c.gdef.MarkAttachmentClassDef.SetClass(g, uint16(i+1))
		}
	}
}

// --- Emission ---------------------------------------------------------------

// emit hands the finished tables to the sink in the fixed order
// GDEF, GSUB, GPOS, BASE, name, OS/2, head, hhea, vhea, STAT, vmtx.
func (c *compiler) emit(builder otl.TableBuilder) {
	if !c.gdef.IsEmpty() {
		builder.AddTable(otl.T("GDEF"), c.gdef)
	}
	if !c.gsub.IsEmpty() {
		builder.AddTable(otl.T("GSUB"), c.gsub)
	}
	if !c.gpos.IsEmpty() {
		builder.AddTable(otl.T("GPOS"), c.gpos)
	}
	if !c.base.IsEmpty() {
		builder.AddTable(otl.T("BASE"), c.base)
	}
	if !c.name.IsEmpty() {
		builder.AddTable(otl.T("name"), c.name)
	}
	if !c.os2.IsEmpty() {
		builder.AddTable(otl.T("OS/2"), c.os2)
	}
	if !c.head.IsEmpty() {
		builder.AddTable(otl.T("head"), c.head)
	}
	if !c.hhea.IsEmpty() {
		builder.AddTable(otl.T("hhea"), c.hhea)
	}
	if !c.vhea.IsEmpty() {
		builder.AddTable(otl.T("vhea"), c.vhea)
	}
	if !c.stat.IsEmpty() {
		builder.AddTable(otl.T("STAT"), c.stat)
	}
	if !c.vmtx.IsEmpty() {
		builder.AddTable(otl.T("vmtx"), c.vmtx)
	}
	tracer().Infof("compiled %d GSUB and %d GPOS lookups",
		len(c.gsub.Lookups), len(c.gpos.Lookups))
}
