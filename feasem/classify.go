package feasem

import "github.com/npillmayer/feafile/feaast"

// SubKind classifies a substitution rule by its shape. The counts follow
// the feature-file conventions: exactly one input glyph with many outputs
// is a multiple substitution, many inputs with one output a ligature, a
// 'from' replacement an alternate, and any contextual marker a chained
// contextual rule.
type SubKind int

const (
	SubInvalid SubKind = iota
	SubSingle
	SubMultiple
	SubAlternate
	SubLigature
	SubContext
	SubReverse
)

// String returns a mnemonic for the substitution kind.
func (k SubKind) String() string {
	switch k {
	case SubSingle:
		return "single"
	case SubMultiple:
		return "multiple"
	case SubAlternate:
		return "alternate"
	case SubLigature:
		return "ligature"
	case SubContext:
		return "chained-context"
	case SubReverse:
		return "reverse-chaining"
	}
	return "invalid"
}

// ClassifySubRule determines the kind of a substitution rule from its
// shape. Classification is purely structural; arity errors within a kind
// are the validator's business.
func ClassifySubRule(r feaast.SubRule) SubKind {
	if r.IsReverse() {
		return SubReverse
	}
	for _, e := range r.Input() {
		if e.IsMarked() {
			return SubContext
		}
	}
	if r.HasFrom() {
		return SubAlternate
	}
	in := len(r.Input())
	out := len(r.Replacement())
	switch {
	case in == 0:
		return SubInvalid
	case r.ReplacesWithNull():
		// glyph deletion lowers to a multiple substitution with an empty
		// sequence
		return SubMultiple
	case in == 1 && out == 1:
		return SubSingle
	case in == 1 && out > 1:
		return SubMultiple
	case in > 1 && out == 1:
		return SubLigature
	}
	return SubInvalid
}

// PosKind classifies a positioning rule by its attachment keyword and
// shape.
type PosKind int

const (
	PosInvalid PosKind = iota
	PosSingle
	PosPair
	PosCursive
	PosMarkToBase
	PosMarkToLigature
	PosMarkToMark
	PosContext
)

// String returns a mnemonic for the positioning kind.
func (k PosKind) String() string {
	switch k {
	case PosSingle:
		return "single"
	case PosPair:
		return "pair"
	case PosCursive:
		return "cursive"
	case PosMarkToBase:
		return "mark-to-base"
	case PosMarkToLigature:
		return "mark-to-ligature"
	case PosMarkToMark:
		return "mark-to-mark"
	case PosContext:
		return "chained-context"
	}
	return "invalid"
}

// ClassifyPosRule determines the kind of a positioning rule from the
// attachment keyword, the presence of contextual markers, and the element
// count.
func ClassifyPosRule(r feaast.PosRule) PosKind {
	switch r.AttachKind() {
	case "cursive":
		return PosCursive
	case "base":
		return PosMarkToBase
	case "ligature":
		return PosMarkToLigature
	case "mark":
		return PosMarkToMark
	}
	elements := 0
	for part := range r.Parts() {
		if part.Kind == feaast.PosPartElement {
			if part.Element.IsMarked() {
				return PosContext
			}
			elements++
		}
	}
	switch elements {
	case 1:
		return PosSingle
	case 2:
		return PosPair
	}
	return PosInvalid
}
