package feasyn

// NodeKind tags interior nodes of the concrete syntax tree. Token kinds tag
// the leaves; together they cover every byte of the source.
type NodeKind uint8

const (
	// NodeFile is the root node of a parse.
	NodeFile NodeKind = iota
	// NodeError absorbs tokens skipped during parser recovery.
	NodeError
	// NodeInclude is a spliced include directive; it carries the resolved
	// path and the included file's own NodeFile outside its child list.
	NodeInclude

	// Top-level items.
	NodeLanguageSystem
	NodeAnchorDef
	NodeValueRecordDef
	NodeMarkClassDef
	NodeGlyphClassDef
	NodeFeatureBlock
	NodeLookupBlock
	NodeTableBlock

	// Statements inside feature/lookup/table blocks.
	NodeSubRule
	NodePosRule
	NodeIgnoreRule
	NodeLookupRef
	NodeLookupFlag
	NodeScriptStmt
	NodeLanguageStmt
	NodeSubtableStmt
	NodeFeatureRef
	NodeParameters
	NodeFeatureNames
	NodeCVParameters
	NodeSizeMenuName
	NodeNameEntry
	NodeTableField
	NodeGlyphClassDefStmt
	NodeAttachStmt
	NodeLigCaretPos
	NodeLigCaretIndex

	// Expression-level constituents.
	NodeGlyphName
	NodeGlyphCID
	NodeGlyphClass // bracketed [ ... ]
	NodeClassRef   // @name
	NodeGlyphRange
	NodeSequenceElement // one slot of a rule context, possibly marked with '
	NodeAnchor
	NodeValueRecord
	NodeDevice
	NodeTag
)

// String returns a mnemonic for the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "FILE"
	case NodeError:
		return "ERROR"
	case NodeInclude:
		return "INCLUDE"
	case NodeLanguageSystem:
		return "LANGUAGESYSTEM"
	case NodeAnchorDef:
		return "ANCHOR_DEF"
	case NodeValueRecordDef:
		return "VALUE_RECORD_DEF"
	case NodeMarkClassDef:
		return "MARK_CLASS_DEF"
	case NodeGlyphClassDef:
		return "GLYPH_CLASS_DEF"
	case NodeFeatureBlock:
		return "FEATURE_BLOCK"
	case NodeLookupBlock:
		return "LOOKUP_BLOCK"
	case NodeTableBlock:
		return "TABLE_BLOCK"
	case NodeSubRule:
		return "SUB_RULE"
	case NodePosRule:
		return "POS_RULE"
	case NodeIgnoreRule:
		return "IGNORE_RULE"
	case NodeLookupRef:
		return "LOOKUP_REF"
	case NodeLookupFlag:
		return "LOOKUPFLAG"
	case NodeScriptStmt:
		return "SCRIPT"
	case NodeLanguageStmt:
		return "LANGUAGE"
	case NodeSubtableStmt:
		return "SUBTABLE"
	case NodeFeatureRef:
		return "FEATURE_REF"
	case NodeParameters:
		return "PARAMETERS"
	case NodeFeatureNames:
		return "FEATURE_NAMES"
	case NodeCVParameters:
		return "CV_PARAMETERS"
	case NodeSizeMenuName:
		return "SIZEMENUNAME"
	case NodeNameEntry:
		return "NAME_ENTRY"
	case NodeTableField:
		return "TABLE_FIELD"
	case NodeGlyphClassDefStmt:
		return "GLYPH_CLASS_DEF_STMT"
	case NodeAttachStmt:
		return "ATTACH"
	case NodeLigCaretPos:
		return "LIG_CARET_POS"
	case NodeLigCaretIndex:
		return "LIG_CARET_INDEX"
	case NodeGlyphName:
		return "GLYPH_NAME"
	case NodeGlyphCID:
		return "GLYPH_CID"
	case NodeGlyphClass:
		return "GLYPH_CLASS"
	case NodeClassRef:
		return "CLASS_REF"
	case NodeGlyphRange:
		return "GLYPH_RANGE"
	case NodeSequenceElement:
		return "SEQ_ELEMENT"
	case NodeAnchor:
		return "ANCHOR"
	case NodeValueRecord:
		return "VALUE_RECORD"
	case NodeDevice:
		return "DEVICE"
	case NodeTag:
		return "TAG"
	}
	return "UNKNOWN"
}
