package feacomp

import (
	"strings"

	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// compileTableBlock lowers one table block into its builder-side model.
func (c *compiler) compileTableBlock(block feaast.TableBlock) {
	tagView, ok := block.Tag()
	if !ok {
		return
	}
	switch tagView.Text() {
	case "GDEF":
		c.lowerGDef(block)
	case "head":
		c.lowerHead(block)
	case "hhea":
		c.lowerHHea(block)
	case "vhea":
		c.lowerVHea(block)
	case "OS/2":
		c.lowerOS2(block)
	case "name":
		c.lowerName(block)
	case "BASE":
		c.lowerBase(block)
	case "STAT":
		c.lowerStat(block)
	case "vmtx":
		c.lowerVmtx(block)
	}
}

func (c *compiler) lowerHead(block feaast.TableBlock) {
	for field := range tableFields(block) {
		if field.Name() == "FontRevision" {
			if values := field.FloatValues(); len(values) == 1 {
				c.head.FontRevision = otl.Some(values[0])
			}
		}
	}
}

func (c *compiler) lowerHHea(block feaast.TableBlock) {
	for field := range tableFields(block) {
		values := field.Values()
		if len(values) != 1 {
			continue
		}
		value := int16(values[0])
		switch field.Name() {
		case "CaretOffset":
			c.hhea.CaretOffset = otl.Some(value)
		case "Ascender":
			c.hhea.Ascender = otl.Some(value)
		case "Descender":
			c.hhea.Descender = otl.Some(value)
		case "LineGap":
			c.hhea.LineGap = otl.Some(value)
		}
	}
}

func (c *compiler) lowerVHea(block feaast.TableBlock) {
	for field := range tableFields(block) {
		values := field.Values()
		if len(values) != 1 {
			continue
		}
		value := int16(values[0])
		switch field.Name() {
		case "VertTypoAscender":
			c.vhea.VertTypoAscender = otl.Some(value)
		case "VertTypoDescender":
			c.vhea.VertTypoDescender = otl.Some(value)
		case "VertTypoLineGap":
			c.vhea.VertTypoLineGap = otl.Some(value)
		}
	}
}

func (c *compiler) lowerOS2(block feaast.TableBlock) {
	for field := range tableFields(block) {
		values := field.Values()
		first := func() int {
			if len(values) > 0 {
				return values[0]
			}
			return 0
		}
		switch field.Name() {
		case "FSType", "fsType":
			c.os2.FSType = otl.Some(uint16(first()))
		case "TypoAscender":
			c.os2.TypoAscender = otl.Some(int16(first()))
		case "TypoDescender":
			c.os2.TypoDescender = otl.Some(int16(first()))
		case "TypoLineGap":
			c.os2.TypoLineGap = otl.Some(int16(first()))
		case "winAscent", "WinAscent":
			c.os2.WinAscent = otl.Some(uint16(first()))
		case "winDescent", "WinDescent":
			c.os2.WinDescent = otl.Some(uint16(first()))
		case "XHeight":
			c.os2.XHeight = otl.Some(int16(first()))
		case "CapHeight":
			c.os2.CapHeight = otl.Some(int16(first()))
		case "WeightClass":
			c.os2.WeightClass = otl.Some(uint16(first()))
		case "WidthClass":
			c.os2.WidthClass = otl.Some(uint16(first()))
		case "LowerOpSize":
			c.os2.LowerOpSize = otl.Some(uint16(first()))
		case "UpperOpSize":
			c.os2.UpperOpSize = otl.Some(uint16(first()))
		case "FamilyClass":
			c.os2.FamilyClass = otl.Some(int16(first()))
		case "Panose":
			if len(values) == 10 {
				var panose [10]uint8
				for i, v := range values {
					panose[i] = uint8(v)
				}
				c.os2.Panose = otl.Some(panose)
			}
		case "UnicodeRange":
			for _, v := range values {
				c.os2.UnicodeRanges = append(c.os2.UnicodeRanges, uint8(v))
			}
		case "CodePageRange":
			for _, v := range values {
				c.os2.CodePageRanges = append(c.os2.CodePageRanges, uint16(v))
			}
		case "Vendor":
			if value, ok := field.StringValue(); ok {
				c.os2.Vendor = otl.Some(value)
			}
		}
	}
}

// lowerName lowers nameid entries. Ids after the name id follow the
// feature-file convention: a bare platform id, or platform, encoding and
// language ids; missing ids fill with platform defaults.
func (c *compiler) lowerName(block feaast.TableBlock) {
	for stmt := range block.Statements() {
		entry, ok := feaast.AsNameEntry(stmt)
		if !ok {
			continue
		}
		ids := entry.IDs()
		if len(ids) == 0 {
			continue
		}
		value, ok := entry.Value()
		if !ok {
			continue
		}
		nameID := uint16(ids[0])
		c.name.Add(nameRecordFor(ids[1:], nameID, value))
	}
}

// nameRecordFor assembles a name record from the optional platform id
// triple of a source entry.
func nameRecordFor(ids []int, nameID uint16, value string) otl.NameRecord {
	platform := otl.PlatformWindows
	if len(ids) >= 1 {
		platform = uint16(ids[0])
	}
	encoding := otl.WindowsUnicodeBMP
	language := otl.WindowsEnglishUS
	if platform == otl.PlatformMacintosh {
		encoding = otl.MacRomanEncoding
		language = otl.MacEnglishLanguage
	}
	if len(ids) >= 3 {
		encoding = uint16(ids[1])
		language = uint16(ids[2])
	}
	return otl.NewNameRecord(nameID, platform, encoding, language, value)
}

// lowerBase reconstructs the BASE axes. The tag list must precede the
// script list, since the script records carry one coordinate per baseline
// tag.
func (c *compiler) lowerBase(block feaast.TableBlock) {
	for field := range tableFields(block) {
		name := field.Name()
		horizontal := strings.HasPrefix(name, "HorizAxis.")
		axis := &c.base.Horizontal
		if !horizontal {
			axis = &c.base.Vertical
		}
		switch {
		case strings.HasSuffix(name, ".BaseTagList"):
			for _, word := range field.Words() {
				axis.BaselineTags = append(axis.BaselineTags, otl.T(word))
			}
		case strings.HasSuffix(name, ".BaseScriptList"):
			words := field.Words()
			values := field.Values()
			coords := len(axis.BaselineTags)
			if coords == 0 {
				c.errorAt(field.Node(), "%s needs a preceding BaseTagList", name)
				continue
			}
			vi := 0
			for wi := 0; wi+1 < len(words); wi += 2 {
				script := otl.BaseScript{
					Script:          otl.T(words[wi]),
					DefaultBaseline: otl.T(words[wi+1]),
				}
				for k := 0; k < coords && vi < len(values); k++ {
					script.Coords = append(script.Coords, int16(values[vi]))
					vi++
				}
				axis.Scripts = append(axis.Scripts, script)
			}
		}
	}
}

func (c *compiler) lowerStat(block feaast.TableBlock) {
	for field := range tableFields(block) {
		switch field.Name() {
		case "ElidedFallbackName":
			c.stat.ElidedFallbackName = c.nameRecordsOf(field, c.name.NextReservedNameID())
		case "ElidedFallbackNameID":
			if values := field.Values(); len(values) == 1 {
				c.stat.ElidedFallbackNameID = otl.Some(uint16(values[0]))
			}
		case "DesignAxis":
			words := field.Words()
			values := field.Values()
			if len(words) == 0 || len(values) == 0 {
				c.errorAt(field.Node(), "DesignAxis needs a tag and an order index")
				continue
			}
			axis := otl.StatDesignAxis{
				Tag:        otl.T(words[0]),
				OrderIndex: uint16(values[0]),
				Names:      c.nameRecordsOf(field, c.name.NextReservedNameID()),
			}
			c.stat.DesignAxes = append(c.stat.DesignAxes, axis)
		case "AxisValue":
			var av otl.StatAxisValue
			for sub := range field.SubFields() {
				switch sub.Name() {
				case "location":
					words := sub.Words()
					values := sub.FloatValues()
					if len(words) == 0 || len(values) == 0 {
						c.errorAt(sub.Node(), "location needs an axis tag and a value")
						continue
					}
					loc := otl.StatAxisLocation{Axis: otl.T(words[0]), Value: values[0]}
					if len(values) == 3 {
						loc.Min = otl.Some(values[1])
						loc.Max = otl.Some(values[2])
					} else if len(values) == 2 {
						loc.Linked = otl.Some(values[1])
					}
					av.Locations = append(av.Locations, loc)
				case "flag":
					for _, word := range sub.Words() {
						switch word {
						case "OlderSiblingFontAttribute":
							av.Flags |= otl.StatOlderSiblingFontAttribute
						case "ElidableAxisValueName":
							av.Flags |= otl.StatElidableAxisValueName
						}
					}
				}
			}
			av.Names = c.nameRecordsOf(field, c.name.NextReservedNameID())
			c.stat.AxisValues = append(c.stat.AxisValues, av)
		}
	}
}

func (c *compiler) lowerVmtx(block feaast.TableBlock) {
	for field := range tableFields(block) {
		values := field.Values()
		if len(values) != 1 {
			continue
		}
		var gid otl.GlyphIndex
		found := false
		if exprs := field.GlyphClasses(); len(exprs) > 0 {
			if set := c.st.ExprSetOf(exprs[0]); len(set) > 0 {
				gid = set[0]
				found = true
			}
		} else if words := field.Words(); len(words) > 0 {
			gid, found = c.glyphs.GidFor(words[0])
		}
		if !found {
			continue
		}
		override := c.vmtx.Override(gid)
		switch field.Name() {
		case "VertOriginY":
			override.VertOriginY = otl.Some(int16(values[0]))
		case "VertAdvanceY":
			override.VertAdvanceY = otl.Some(int16(values[0]))
		}
	}
}

// tableFields iterates the TableField statements of a table block.
func tableFields(block feaast.TableBlock) func(yield func(feaast.TableField) bool) {
	return func(yield func(feaast.TableField) bool) {
		for stmt := range block.Statements() {
			if field, ok := feaast.AsTableField(stmt); ok {
				if !yield(field) {
					return
				}
			}
		}
	}
}

// nameRecordsOf lowers the name entries nested in a table field, all under
// one reserved name id, and registers them in the name table.
func (c *compiler) nameRecordsOf(field feaast.TableField, nameID uint16) []otl.NameRecord {
	var records []otl.NameRecord
	for entry := range field.NameEntries() {
		value, ok := entry.Value()
		if !ok {
			continue
		}
		rec := nameRecordFor(entry.IDs(), nameID, value)
		records = append(records, rec)
		c.name.Add(rec)
	}
	return records
}

// --- Feature parameters -----------------------------------------------------

// lowerFeatureExtras lowers the parameter statements of a feature block:
// size parameters and menu names, featureNames of stylistic sets, and
// cvParameters of character variants.
func (c *compiler) lowerFeatureExtras(block feaast.FeatureBlock, tag string) {
	switch {
	case tag == "size":
		c.lowerSizeFeature(block)
	case strings.HasPrefix(tag, "ss"):
		c.lowerFeatureNames(block, tag)
	case strings.HasPrefix(tag, "cv"):
		c.lowerCVParameters(block, tag)
	}
}

func (c *compiler) lowerSizeFeature(block feaast.FeatureBlock) {
	params := &otl.SizeParams{}
	haveParams := false
	var menuNames []feaast.SizeMenuName
	for stmt := range block.Statements() {
		switch stmt.Kind() {
		case feasyn.NodeParameters:
			p, _ := feaast.AsParameters(stmt)
			values := p.Values()
			if len(values) >= 2 {
				haveParams = true
				params.DesignSize = values[0]
				params.SubfamilyID = uint16(values[1])
			}
			if len(values) == 4 {
				params.RangeStart = values[2]
				params.RangeEnd = values[3]
			}
		case feasyn.NodeSizeMenuName:
			smn, _ := feaast.AsSizeMenuName(stmt)
			menuNames = append(menuNames, smn)
		}
	}
	if !haveParams {
		return
	}
	if len(menuNames) > 0 {
		nameID := c.name.NextReservedNameID()
		params.MenuNameID = nameID
		for _, smn := range menuNames {
			value, ok := smn.Value()
			if !ok {
				continue
			}
			c.name.Add(nameRecordFor(smn.IDs(), nameID, value))
		}
	}
	c.gpos.SetParams(otl.T("size"), &otl.FeatureParams{Size: params})
}

func (c *compiler) lowerFeatureNames(block feaast.FeatureBlock, tag string) {
	for stmt := range block.Statements() {
		names, ok := feaast.AsFeatureNames(stmt)
		if !ok {
			continue
		}
		nameID := c.name.NextReservedNameID()
		count := 0
		for entry := range names.Entries() {
			value, ok := entry.Value()
			if !ok {
				continue
			}
			c.name.Add(nameRecordFor(entry.IDs(), nameID, value))
			count++
		}
		if count > 0 {
			c.gsub.SetParams(otl.T(tag), &otl.FeatureParams{UINameID: otl.Some(nameID)})
		}
	}
}

func (c *compiler) lowerCVParameters(block feaast.FeatureBlock, tag string) {
	for stmt := range block.Statements() {
		cv, ok := feaast.AsCVParameters(stmt)
		if !ok {
			continue
		}
		params := &otl.CVParams{}
		for field := range cv.Fields() {
			switch field.Name() {
			case "Character":
				if values := field.Values(); len(values) == 1 {
					params.Characters = append(params.Characters, rune(values[0]))
				}
				continue
			}
			nameID := c.name.NextReservedNameID()
			count := 0
			for entry := range field.NameEntries() {
				value, ok := entry.Value()
				if !ok {
					continue
				}
				c.name.Add(nameRecordFor(entry.IDs(), nameID, value))
				count++
			}
			if count == 0 {
				continue
			}
			switch field.Name() {
			case "FeatUILabelNameID":
				params.UILabelNameID = nameID
			case "FeatUITooltipTextNameID":
				params.UITooltipTextNameID = nameID
			case "SampleTextNameID":
				params.SampleTextNameID = nameID
			case "ParamUILabelNameID":
				params.ParamUILabelNameIDs = append(params.ParamUILabelNameIDs, nameID)
			}
		}
		c.gsub.SetParams(otl.T(tag), &otl.FeatureParams{CV: params})
	}
}
