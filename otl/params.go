package otl

// SizeParams are the feature parameters of the 'size' feature: a design
// size in decipoints, a subfamily identifier, the menu name id, and an
// optional size range.
type SizeParams struct {
	DesignSize   float64
	SubfamilyID  uint16
	MenuNameID   uint16
	RangeStart   float64
	RangeEnd     float64
}

// CVParams are the feature parameters of a character-variant feature.
type CVParams struct {
	UILabelNameID       uint16
	UITooltipTextNameID uint16
	SampleTextNameID    uint16
	ParamUILabelNameIDs []uint16
	Characters          []rune
}

// FeatureParams attaches parameter data to a feature tag: the 'size'
// parameters, a stylistic set's UI name id, or a character variant's
// parameter block.
type FeatureParams struct {
	Size     *SizeParams
	UINameID Option[uint16]
	CV       *CVParams
}

// SetParams records feature parameters for a feature tag.
func (t *LayoutTable) SetParams(feature Tag, params *FeatureParams) {
	if t.Params == nil {
		t.Params = make(map[Tag]*FeatureParams)
	}
	t.Params[feature] = params
}

// TableBuilder is the sink receiving finished tables as opaque structured
// values, in the fixed order GDEF, GSUB, GPOS, BASE, name, OS/2, head,
// hhea, vhea, STAT, vmtx. The core never serializes bytes itself.
type TableBuilder interface {
	AddTable(tag Tag, table any)
}
