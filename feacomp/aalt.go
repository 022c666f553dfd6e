package feacomp

import (
	"github.com/npillmayer/feafile/feaast"
	"github.com/npillmayer/feafile/feasem"
	"github.com/npillmayer/feafile/feasyn"
	"github.com/npillmayer/feafile/otl"
)

// aaltContribution records alternates contributed by one source, keyed by
// target glyph with declaration order preserved.
type aaltContribution struct {
	order []otl.GlyphIndex
	alts  map[otl.GlyphIndex][]otl.GlyphIndex
}

func newAaltContribution() *aaltContribution {
	return &aaltContribution{alts: make(map[otl.GlyphIndex][]otl.GlyphIndex)}
}

func (ac *aaltContribution) add(g otl.GlyphIndex, alternates ...otl.GlyphIndex) {
	if _, seen := ac.alts[g]; !seen {
		ac.order = append(ac.order, g)
	}
	for _, alt := range alternates {
		duplicate := false
		for _, existing := range ac.alts[g] {
			if existing == alt {
				duplicate = true
				break
			}
		}
		if !duplicate && alt != g {
			ac.alts[g] = append(ac.alts[g], alt)
		}
	}
}

// aaltState collects single-substitution and alternate contributions per
// feature during normal compilation, for later aggregation by feature aalt.
type aaltState struct {
	perFeature map[otl.Tag]*aaltContribution
}

func newAaltState() *aaltState {
	return &aaltState{perFeature: make(map[otl.Tag]*aaltContribution)}
}

func (as *aaltState) contribution(feature otl.Tag) *aaltContribution {
	ac, ok := as.perFeature[feature]
	if !ok {
		ac = newAaltContribution()
		as.perFeature[feature] = ac
	}
	return ac
}

func (as *aaltState) addSingle(feature otl.Tag, g, to otl.GlyphIndex) {
	if feature == 0 {
		return
	}
	as.contribution(feature).add(g, to)
}

func (as *aaltState) addAlternates(feature otl.Tag, g otl.GlyphIndex, alternates []otl.GlyphIndex) {
	if feature == 0 {
		return
	}
	as.contribution(feature).add(g, alternates...)
}

// compileAalt synthesizes feature aalt: alternates aggregate from the
// referenced features in reference order, deduplicating targets and
// preserving order of first appearance; explicit 'sub ... from ...;'
// statements inside the block override the aggregation for their target
// glyph.
func (c *compiler) compileAalt(block feaast.FeatureBlock) {
	tracer().Debugf("synthesizing feature aalt")
	var refOrder []otl.Tag
	overrides := newAaltContribution()
	overridden := make(map[otl.GlyphIndex]bool)
	for stmt := range block.Statements() {
		switch stmt.Kind() {
		case feasyn.NodeFeatureRef:
			ref, _ := feaast.AsFeatureRef(stmt)
			if tag, ok := ref.Tag(); ok {
				refOrder = append(refOrder, otl.T(tag.Text()))
			}
		case feasyn.NodeSubRule:
			rule, _ := feaast.AsSubRule(stmt)
			input := rule.Input()
			replacement := rule.Replacement()
			if len(input) != 1 || len(replacement) != 1 {
				continue
			}
			in := c.st.SetOf(input[0])
			out := c.st.SetOf(replacement[0])
			if len(in) == 0 || len(out) == 0 {
				continue
			}
			switch feasem.ClassifySubRule(rule) {
			case feasem.SubAlternate:
				overrides.add(in[0], out...)
				overridden[in[0]] = true
			case feasem.SubSingle:
				for i, g := range in {
					if len(out) == 1 {
						overrides.add(g, out[0])
					} else if i < len(out) {
						overrides.add(g, out[i])
					}
				}
			}
		}
	}

	merged := newAaltContribution()
	for _, g := range overrides.order {
		merged.add(g, overrides.alts[g]...)
	}
	for _, feature := range refOrder {
		ac, ok := c.aalt.perFeature[feature]
		if !ok {
			c.warnAt(block.Node(), "feature aalt references %s, which contributed no alternates", feature)
			continue
		}
		for _, g := range ac.order {
			if overridden[g] {
				continue
			}
			merged.add(g, ac.alts[g]...)
		}
	}

	mapping := make(map[otl.GlyphIndex][]otl.GlyphIndex)
	for _, g := range merged.order {
		if len(merged.alts[g]) > 0 {
			mapping[g] = merged.alts[g]
		}
	}
	if len(mapping) == 0 {
		c.warnAt(block.Node(), "feature aalt is empty")
		return
	}
	flag := feasem.FlagState{}
	index := c.emitLookup(false, otl.GSubLookupTypeAlternate, flag,
		block.UseExtension(), []otl.Subtable{otl.NewAlternateSubst(mapping)}, "")
	for _, pair := range c.systems {
		c.gsub.Features = append(c.gsub.Features, otl.FeatureRecord{
			Script: pair.script, Language: pair.lang, Feature: otl.T("aalt"),
			Lookups: []uint16{index},
		})
	}
}
