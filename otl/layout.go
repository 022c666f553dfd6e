package otl

/*
From https://docs.microsoft.com/en-us/typography/opentype/spec/chapter2:

OpenType Layout consists of five tables: the Glyph Substitution table (GSUB),
the Glyph Positioning table (GPOS), the Baseline table (BASE),
the Justification table (JSTF), and the Glyph Definition table (GDEF).
These tables use some of the same data formats.
*/

import "iter"

// Subtable is one subtable of a layout lookup. Concrete subtable types live
// in gsub.go and gpos.go.
type Subtable interface {
	LookupType() LookupType
	// EstimatedSize approximates the serialized byte size of the subtable,
	// used for format selection and 16-bit offset budget checks.
	EstimatedSize() int
}

// SubtableBudget is the serialized-size budget of a single subtable imposed
// by 16-bit offsets. A lookup whose subtable would exceed this is split; a
// lookup whose subtables together exceed it is promoted to extension form,
// and a single subtable that stays over it is a compile error.
const SubtableBudget = 0xFFFF

// Lookup is a typed container of subtables of one OpenType lookup type. It
// carries a lookup flag and an optional mark filtering set; UseExtension
// promotes the lookup to extension form (GSUB type 7 / GPOS type 9) at
// serialization time.
type Lookup struct {
	Type             LookupType
	Flag             LookupFlag
	MarkFilteringSet Option[uint16]
	UseExtension     bool
	Subtables        []Subtable
	Label            string // source label of a named lookup, informational
}

// NewLookup returns an empty lookup of the given type.
func NewLookup(lty LookupType, flag LookupFlag) *Lookup {
	return &Lookup{Type: lty, Flag: flag}
}

// Add appends a subtable. The subtable's lookup type must match the
// lookup's; a mismatch is an internal inconsistency and is traced, not
// silently accepted.
func (l *Lookup) Add(sub Subtable) *Lookup {
	if sub.LookupType() != l.Type {
		tracer().Errorf("subtable of type %d added to lookup of type %d", sub.LookupType(), l.Type)
		return l
	}
	l.Subtables = append(l.Subtables, sub)
	return l
}

// EstimatedSize approximates the serialized size of the whole lookup.
func (l *Lookup) EstimatedSize() int {
	size := 6 + 2*len(l.Subtables)
	if l.Flag&LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 {
		size += 2
	}
	for _, sub := range l.Subtables {
		size += sub.EstimatedSize()
	}
	return size
}

// --- Feature records --------------------------------------------------------

// FeatureRecord maps a (script, language, feature) triple to an ordered list
// of lookup indices. Language 'dflt' inherits script-default lookups unless
// explicitly excluded at the source level; inheritance is resolved before
// records are created, so the record lists are final.
type FeatureRecord struct {
	Script   Tag
	Language Tag
	Feature  Tag
	Lookups  []uint16
}

// LayoutTable is a base type for the two layout tables GSUB and GPOS, which
// share their structure: a lookup list plus feature records fanned out over
// the declared language systems.
type LayoutTable struct {
	Lookups  []*Lookup
	Features []FeatureRecord
	Params   map[Tag]*FeatureParams
}

// IsEmpty reports whether the table carries neither lookups nor features.
func (t *LayoutTable) IsEmpty() bool {
	return t == nil || (len(t.Lookups) == 0 && len(t.Features) == 0)
}

// AddLookup appends a lookup and returns its final index.
func (t *LayoutTable) AddLookup(l *Lookup) uint16 {
	t.Lookups = append(t.Lookups, l)
	return uint16(len(t.Lookups) - 1)
}

// FeaturesFor iterates the feature records of one (script, language) pair.
func (t *LayoutTable) FeaturesFor(script, lang Tag) iter.Seq[FeatureRecord] {
	return func(yield func(FeatureRecord) bool) {
		if t == nil {
			return
		}
		for _, rec := range t.Features {
			if rec.Script == script && rec.Language == lang {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// GSubTable is the builder-side model of an OpenType GSUB table.
type GSubTable struct {
	LayoutTable
}

// GPosTable is the builder-side model of an OpenType GPOS table.
type GPosTable struct {
	LayoutTable
}

// --- Sequence contexts ------------------------------------------------------

// SequenceLookupRecord attaches a nested lookup to one position of a
// sequence context.
type SequenceLookupRecord struct {
	SequenceIndex uint16
	LookupIndex   uint16
}

// SequenceContext is a coverage-based (format 3) sequence context shared by
// GSUB type 5/6 and GPOS type 7/8 subtables. Backtrack coverages are stored
// in logical order (closest to the input first, following the OpenType
// convention).
type SequenceContext struct {
	Backtrack []Coverage
	Input     []Coverage
	Lookahead []Coverage
	Records   []SequenceLookupRecord
}

func (ctx *SequenceContext) estimatedSize() int {
	size := 10 // format, counts
	for _, c := range ctx.Backtrack {
		size += 2 + 4 + 2*c.Len()
	}
	for _, c := range ctx.Input {
		size += 2 + 4 + 2*c.Len()
	}
	for _, c := range ctx.Lookahead {
		size += 2 + 4 + 2*c.Len()
	}
	size += 4 * len(ctx.Records)
	return size
}
