package feasem

import (
	"fmt"
	"strings"

	"github.com/npillmayer/feafile/diag"
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// stmtContext carries the block context a statement is validated in.
type stmtContext struct {
	block   blockContext
	feature string // feature tag for inFeature
	table   string // table tag for inTable
}

func (v *validator) checkFeatureBlock(n feasyn.Node) {
	block, _ := feaast.AsFeatureBlock(n)
	tagView, ok := block.Tag()
	if !ok {
		v.errorAt(n, "feature block is missing its tag")
		return
	}
	v.checkTag(tagView, "feature")
	tag := tagView.Text()
	if closing, ok := block.ClosingTag(); ok && closing.Text() != tag {
		v.errorSpan(closing.Node().File(), closing.Span(),
			fmt.Sprintf("closing tag %q does not match feature %q", closing.Text(), tag))
	}
	ctx := stmtContext{block: inFeature, feature: tag}
	v.flag = FlagState{}
	v.markSeen = make(map[otl.GlyphIndex]string)
	for stmt := range block.Statements() {
		v.checkStatement(stmt, ctx)
	}
	v.flag = FlagState{}
}

func (v *validator) checkLookupBlock(n feasyn.Node, outer blockContext) {
	block, _ := feaast.AsLookupBlock(n)
	label, labelSpan, ok := block.Label()
	if !ok {
		v.errorAt(n, "lookup block is missing its label")
		return
	}
	if prev, exists := v.st.Lookup(label); exists {
		v.errorSpan(n.File(), labelSpan,
			fmt.Sprintf("lookup %s is already defined", label),
			diag.Label{Span: prev.Span, File: n.File(), Message: "first defined here"})
		return
	}
	v.st.DefineLookup(&LookupDef{Label: label, Block: block, Span: labelSpan})
	savedFlag := v.flag
	savedMarks := v.markSeen
	if outer == inTopLevel {
		v.flag = FlagState{}
	}
	v.markSeen = make(map[otl.GlyphIndex]string)
	ctx := stmtContext{block: inLookup}
	for stmt := range block.Statements() {
		v.checkStatement(stmt, ctx)
	}
	v.flag = savedFlag
	v.markSeen = savedMarks
}

// checkStatement validates one block statement, including the
// feature-specific statement restrictions: aalt accepts
// only single/alternate substitutions and feature references, size carries
// the parameters/sizemenuname statements, featureNames belongs to
// stylistic sets and cvParameters to character variants.
func (v *validator) checkStatement(n feasyn.Node, ctx stmtContext) {
	switch n.Kind() {
	case feasyn.NodeGlyphClassDef:
		v.checkGlyphClassDef(n)
	case feasyn.NodeMarkClassDef:
		v.checkMarkClassDef(n)
	case feasyn.NodeAnchorDef:
		v.checkAnchorDef(n)
	case feasyn.NodeValueRecordDef:
		v.checkValueRecordDef(n)
	case feasyn.NodeSubRule:
		v.checkSubRule(n, ctx)
	case feasyn.NodePosRule:
		v.checkPosRule(n, ctx)
	case feasyn.NodeIgnoreRule:
		v.checkIgnoreRule(n)
	case feasyn.NodeLookupBlock:
		if ctx.block == inLookup {
			v.errorAt(n, "lookup blocks cannot nest")
			return
		}
		v.checkLookupBlock(n, ctx.block)
	case feasyn.NodeLookupRef:
		v.checkLookupRef(n)
	case feasyn.NodeLookupFlag:
		v.checkLookupFlag(n)
	case feasyn.NodeScriptStmt:
		if ctx.block != inFeature {
			v.errorAt(n, "script statements are only allowed inside feature blocks")
			return
		}
		stmt, _ := feaast.AsScriptStmt(n)
		if tag, ok := stmt.Tag(); ok {
			v.checkTag(tag, "script")
		} else {
			v.errorAt(n, "script statement is missing its tag")
		}
		v.markSeen = make(map[otl.GlyphIndex]string)
	case feasyn.NodeLanguageStmt:
		if ctx.block != inFeature {
			v.errorAt(n, "language statements are only allowed inside feature blocks")
			return
		}
		stmt, _ := feaast.AsLanguageStmt(n)
		if tag, ok := stmt.Tag(); ok {
			v.checkTag(tag, "language")
		} else {
			v.errorAt(n, "language statement is missing its tag")
		}
	case feasyn.NodeSubtableStmt:
		// legal anywhere rules are legal
	case feasyn.NodeFeatureRef:
		if ctx.feature != "aalt" && ctx.feature != "size" {
			v.errorAt(n, "feature references are only allowed inside 'aalt' and 'size'")
		}
	case feasyn.NodeParameters:
		if ctx.feature != "size" {
			v.errorAt(n, "parameters statements are only allowed inside 'size'")
			return
		}
		params, _ := feaast.AsParameters(n)
		if count := len(params.Values()); count != 2 && count != 4 {
			v.errorAt(n, "size parameters need 2 or 4 values, have %d", count)
		}
	case feasyn.NodeSizeMenuName:
		if ctx.feature != "size" {
			v.errorAt(n, "sizemenuname is only allowed inside 'size'")
			return
		}
		v.checkNameEntryIDs(n)
	case feasyn.NodeFeatureNames:
		if !strings.HasPrefix(ctx.feature, "ss") {
			v.errorAt(n, "featureNames blocks are only allowed inside stylistic set features")
			return
		}
		names, _ := feaast.AsFeatureNames(n)
		for entry := range names.Entries() {
			v.checkNameEntryIDs(entry.Node())
		}
	case feasyn.NodeCVParameters:
		if !strings.HasPrefix(ctx.feature, "cv") {
			v.errorAt(n, "cvParameters blocks are only allowed inside character variant features")
		}
	case feasyn.NodeInclude:
		if inc, ok := feaast.AsInclude(n); ok {
			if inner, _, ok := inc.Inner(); ok {
				for item := range inner.Items() {
					v.checkStatement(item, ctx)
				}
			}
		}
	default:
		v.errorAt(n, "statement is not allowed in this block")
	}
}

func (v *validator) checkLookupRef(n feasyn.Node) {
	ref, _ := feaast.AsLookupRef(n)
	label, span, ok := ref.Label()
	if !ok {
		v.errorAt(n, "lookup reference is missing its label")
		return
	}
	// forward references are disallowed: the definition must precede the use
	if _, exists := v.st.Lookup(label); !exists {
		v.errorSpan(n.File(), span,
			fmt.Sprintf("lookup %s is not defined at this point", label))
	}
}

// checkLookupFlag updates the effective flag state. 'lookupflag 0' resets.
func (v *validator) checkLookupFlag(n feasyn.Node) {
	stmt, _ := feaast.AsLookupFlagStmt(n)
	if raw, ok := stmt.RawValue(); ok {
		if raw != 0 {
			v.errorAt(n, "numeric lookupflag values other than 0 are not supported; use the named flags")
			return
		}
		v.flag = FlagState{}
		return
	}
	state := FlagState{}
	if stmt.HasFlag("RightToLeft") {
		state.Flag |= otl.LOOKUP_FLAG_RIGHT_TO_LEFT
	}
	if stmt.HasFlag("IgnoreBaseGlyphs") {
		state.Flag |= otl.LOOKUP_FLAG_IGNORE_BASE_GLYPHS
	}
	if stmt.HasFlag("IgnoreLigatures") {
		state.Flag |= otl.LOOKUP_FLAG_IGNORE_LIGATURES
	}
	if stmt.HasFlag("IgnoreMarks") {
		state.Flag |= otl.LOOKUP_FLAG_IGNORE_MARKS
	}
	if expr, ok := stmt.MarkAttachmentClass(); ok {
		state.MarkAttachClass = v.resolveGlyphExpr(expr)
	}
	if expr, ok := stmt.MarkFilteringSet(); ok {
		state.MarkFilterSet = v.resolveGlyphExpr(expr)
		state.Flag |= otl.LOOKUP_FLAG_USE_MARK_FILTERING_SET
	}
	v.flag = state
}

func (v *validator) checkNameEntryIDs(n feasyn.Node) {
	var ids []int
	if entry, ok := feaast.AsNameEntry(n); ok {
		ids = entry.IDs()
	} else if smn, ok := feaast.AsSizeMenuName(n); ok {
		ids = smn.IDs()
	}
	if len(ids) == 0 {
		return
	}
	platform := ids[0]
	if platform != int(otl.PlatformMacintosh) && platform != int(otl.PlatformWindows) {
		v.errorAt(n, "name entry platform id must be 1 (Macintosh) or 3 (Windows), is %d", platform)
	}
	if len(ids) != 1 && len(ids) != 3 {
		v.errorAt(n, "name entry needs either a platform id or platform, encoding and language ids")
	}
}

// --- Table blocks -----------------------------------------------------------

// knownTableFields lists the legal field statements per table block.
var knownTableFields = map[string]map[string]bool{
	"head": {"FontRevision": true},
	"hhea": {"CaretOffset": true, "Ascender": true, "Descender": true, "LineGap": true},
	"vhea": {"VertTypoAscender": true, "VertTypoDescender": true, "VertTypoLineGap": true},
	"OS/2": {
		"FSType": true, "fsType": true, "Panose": true, "UnicodeRange": true,
		"CodePageRange": true, "TypoAscender": true, "TypoDescender": true,
		"TypoLineGap": true, "winAscent": true, "winDescent": true,
		"WinAscent": true, "WinDescent": true, "XHeight": true,
		"CapHeight": true, "WeightClass": true, "WidthClass": true,
		"Vendor": true, "LowerOpSize": true, "UpperOpSize": true,
		"FamilyClass": true,
	},
	"vmtx": {"VertOriginY": true, "VertAdvanceY": true},
	"BASE": {
		"HorizAxis.BaseTagList": true, "HorizAxis.BaseScriptList": true,
		"VertAxis.BaseTagList": true, "VertAxis.BaseScriptList": true,
	},
	"STAT": {
		"ElidedFallbackName": true, "ElidedFallbackNameID": true,
		"DesignAxis": true, "AxisValue": true,
	},
	"GDEF": {},
	"name": {},
}

func (v *validator) checkTableBlock(n feasyn.Node) {
	block, _ := feaast.AsTableBlock(n)
	tagView, ok := block.Tag()
	if !ok {
		v.errorAt(n, "table block is missing its tag")
		return
	}
	tag := tagView.Text()
	fields, known := knownTableFields[tag]
	if !known {
		v.errorSpan(tagView.Node().File(), tagView.Span(),
			fmt.Sprintf("table %q is not supported in feature files", tag))
		return
	}
	for stmt := range block.Statements() {
		v.checkTableStatement(stmt, tag, fields)
	}
}

func (v *validator) checkTableStatement(n feasyn.Node, table string, fields map[string]bool) {
	switch n.Kind() {
	case feasyn.NodeSubRule, feasyn.NodePosRule, feasyn.NodeIgnoreRule:
		v.errorAt(n, "substitution and positioning rules are forbidden in table %s", table)
	case feasyn.NodeLookupBlock, feasyn.NodeLookupRef:
		v.errorAt(n, "lookups are forbidden in table %s", table)
	case feasyn.NodeGlyphClassDefStmt:
		if table != "GDEF" {
			v.errorAt(n, "GlyphClassDef is only allowed in table GDEF")
			return
		}
		stmt, _ := feaast.AsGlyphClassDefStmt(n)
		for _, class := range stmt.Classes() {
			if class != nil {
				v.resolveGlyphExpr(*class)
			}
		}
	case feasyn.NodeAttachStmt:
		if table != "GDEF" {
			v.errorAt(n, "Attach is only allowed in table GDEF")
			return
		}
		stmt, _ := feaast.AsAttachStmt(n)
		if expr, ok := stmt.Glyphs(); ok {
			v.resolveGlyphExpr(expr)
		}
	case feasyn.NodeLigCaretPos, feasyn.NodeLigCaretIndex:
		if table != "GDEF" {
			v.errorAt(n, "ligature caret statements are only allowed in table GDEF")
			return
		}
		caret, _ := feaast.AsLigCaret(n)
		if expr, ok := caret.Glyphs(); ok {
			v.resolveGlyphExpr(expr)
		}
	case feasyn.NodeNameEntry:
		if table != "name" {
			v.errorAt(n, "nameid entries are only allowed in table name")
			return
		}
		entry, _ := feaast.AsNameEntry(n)
		ids := entry.IDs()
		if len(ids) == 0 {
			v.errorAt(n, "nameid entry is missing its id")
			return
		}
		if len(ids) >= 2 {
			platform := ids[1]
			if platform != int(otl.PlatformMacintosh) && platform != int(otl.PlatformWindows) {
				v.errorAt(n, "name entry platform id must be 1 (Macintosh) or 3 (Windows), is %d", platform)
			}
		}
	case feasyn.NodeTableField:
		field, _ := feaast.AsTableField(n)
		if !fields[field.Name()] {
			v.errorSpan(n.File(), field.Span(),
				fmt.Sprintf("unknown field %q in table %s", field.Name(), table))
			return
		}
		v.checkTableFieldShape(field, table)
	case feasyn.NodeGlyphClassDef:
		v.checkGlyphClassDef(n)
	case feasyn.NodeInclude:
		// includes inside table blocks are accepted and validated in place
		if inc, ok := feaast.AsInclude(n); ok {
			if inner, _, ok := inc.Inner(); ok {
				for item := range inner.Items() {
					v.checkTableStatement(item, table, fields)
				}
			}
		}
	default:
		v.errorAt(n, "statement is not allowed in table %s", table)
	}
}

func (v *validator) checkTableFieldShape(field feaast.TableField, table string) {
	name := field.Name()
	switch table {
	case "head":
		if len(field.FloatValues()) != 1 {
			v.errorSpan(field.Node().File(), field.Span(), "FontRevision needs exactly one value")
		}
	case "hhea", "vhea":
		if len(field.Values()) != 1 {
			v.errorSpan(field.Node().File(), field.Span(),
				fmt.Sprintf("%s needs exactly one value", name))
		}
	case "OS/2":
		switch name {
		case "Vendor":
			if value, ok := field.StringValue(); !ok || len(value) > 4 {
				v.errorSpan(field.Node().File(), field.Span(), "Vendor needs a string of at most four characters")
			}
		case "Panose":
			if len(field.Values()) != 10 {
				v.errorSpan(field.Node().File(), field.Span(), "Panose needs exactly ten values")
			}
		case "UnicodeRange", "CodePageRange":
			if len(field.Values()) == 0 {
				v.errorSpan(field.Node().File(), field.Span(),
					fmt.Sprintf("%s needs at least one value", name))
			}
		default:
			if len(field.Values()) != 1 {
				v.errorSpan(field.Node().File(), field.Span(),
					fmt.Sprintf("%s needs exactly one value", name))
			}
		}
	case "vmtx":
		if len(field.Values()) != 1 {
			v.errorSpan(field.Node().File(), field.Span(),
				fmt.Sprintf("%s needs a glyph and exactly one value", name))
		}
		for _, expr := range field.GlyphClasses() {
			v.resolveGlyphExpr(expr)
		}
		if len(field.GlyphClasses()) == 0 {
			// glyph may also appear as a bare word
			if len(field.Words()) == 0 {
				v.errorSpan(field.Node().File(), field.Span(),
					fmt.Sprintf("%s is missing its glyph", name))
			} else if glyph := field.Words()[0]; !v.glyphs.Contains(glyph) {
				v.errorSpan(field.Node().File(), field.Span(),
					fmt.Sprintf("unknown glyph %q", glyph))
			}
		}
	}
}
