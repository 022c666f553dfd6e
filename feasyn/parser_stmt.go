package feasyn

import (
	"fmt"
	"strings"

	"github.com/npillmayer/feafile/diag"
)

// parseStatement parses one statement inside a feature, lookup or nested
// block. Statements recover to ';' or the closing brace.
func (p *parser) parseStatement() {
	tok := p.cur()
	switch {
	case tok.Kind == TokenClassName:
		p.parseGlyphClassAssignment()
	case tok.Kind == TokenSemicolon:
		// tolerated stray semicolon; absorb without a node
		p.bumpIntoError("unexpected ';'")
	case tok.Kind == TokenKeyword:
		switch tok.Text(p.src) {
		case "sub", "substitute", "rsub", "reversesub":
			p.parseSubRule()
		case "pos", "position", "enum", "enumerate":
			p.parsePosRule()
		case "ignore":
			p.parseIgnoreRule()
		case "lookup":
			p.parseLookupBlock(false)
		case "lookupflag":
			p.parseLookupFlag()
		case "script":
			p.parseScriptStmt()
		case "language":
			p.parseLanguageStmt()
		case "subtable":
			p.parseSubtableStmt()
		case "feature":
			p.parseFeatureRef()
		case "parameters":
			p.parseParameters()
		case "featureNames":
			p.parseFeatureNames()
		case "cvParameters":
			p.parseCVParameters()
		case "sizemenuname":
			p.parseSizeMenuName()
		case "markClass":
			p.parseMarkClassDef()
		case "anchorDef":
			p.parseAnchorDef()
		case "valueRecordDef":
			p.parseValueRecordDef()
		case "include":
			p.parseInclude()
		default:
			p.recoverStatement(fmt.Sprintf("unexpected %q in block", tok.Text(p.src)))
		}
	default:
		p.recoverStatement(fmt.Sprintf("expected a statement, found %s", p.describeCurrent()))
	}
}

func (p *parser) bumpIntoError(message string) {
	p.errorHere(message)
	p.b.Start(NodeError)
	p.bump()
	p.b.Finish()
}

// recoverStatement reports an error and skips to the next ';' or '}',
// consuming the semicolon when present.
func (p *parser) recoverStatement(message string) {
	p.errorHere(message)
	p.b.Start(NodeError)
	for !p.atEOF() && !p.at(TokenSemicolon) && !p.at(TokenRBrace) {
		p.bump()
	}
	if p.at(TokenSemicolon) {
		p.bump()
	}
	p.b.Finish()
}

// --- Substitution and positioning rules -------------------------------------

// sub|substitute|rsub|reversesub <sequence> [by|from <replacement>];
func (p *parser) parseSubRule() {
	p.b.Start(NodeSubRule)
	p.bump() // rule keyword
	gotInput := false
	for p.atRuleConstituent() {
		p.parseRuleConstituent()
		gotInput = true
	}
	if !gotInput {
		p.recover("substitution rule has no glyph sequence", statementRecovery)
		p.finishStatement()
		p.b.Finish()
		return
	}
	if p.atKeyword("by") || p.atKeyword("from") {
		p.bump()
		if p.atKeyword("NULL") {
			p.bump()
		} else {
			got := false
			for p.atRuleConstituent() {
				p.parseRuleConstituent()
				got = true
			}
			if !got {
				p.errorHere("expected replacement glyphs")
			}
		}
	}
	p.finishStatement()
	p.b.Finish()
}

// [enum|enumerate] pos|position [cursive|base|ligature|mark] <elements ...>;
// The concrete positioning flavour (single, pair, cursive, mark attachment,
// chained contextual) is decided by the validator from the shape of the
// parsed constituents.
func (p *parser) parsePosRule() {
	p.b.Start(NodePosRule)
	if p.atKeyword("enum") || p.atKeyword("enumerate") {
		p.bump()
	}
	if p.atKeyword("pos") || p.atKeyword("position") {
		p.bump()
	} else {
		p.errorHere("expected 'pos' after 'enum'")
	}
	if p.atKeyword("cursive") || p.atKeyword("base") || p.atKeyword("ligature") || p.atKeyword("mark") {
		p.bump()
	}
	for p.atRuleConstituent() || p.atKeyword("mark") || p.atKeyword("ligComponent") {
		if p.atKeyword("mark") || p.atKeyword("ligComponent") {
			p.bump()
			continue
		}
		p.parseRuleConstituent()
	}
	p.finishStatement()
	p.b.Finish()
}

// ignore sub|pos <context>[, <context>]*;
func (p *parser) parseIgnoreRule() {
	p.b.Start(NodeIgnoreRule)
	p.bump() // ignore
	if p.atKeyword("sub") || p.atKeyword("substitute") ||
		p.atKeyword("pos") || p.atKeyword("position") {
		p.bump()
	} else {
		p.errorHere("expected 'sub' or 'pos' after 'ignore'")
	}
	for {
		for p.atRuleConstituent() {
			p.parseRuleConstituent()
		}
		if p.at(TokenComma) {
			p.bump()
			continue
		}
		break
	}
	p.finishStatement()
	p.b.Finish()
}

// atRuleConstituent reports whether the cursor can start a rule constituent:
// a glyph, glyph class, anchor or value record.
func (p *parser) atRuleConstituent() bool {
	switch p.cur().Kind {
	case TokenName, TokenCID, TokenClassName, TokenLBracket, TokenLess,
		TokenNumber, TokenHexNumber, TokenHyphen:
		return true
	}
	return false
}

// parseRuleConstituent parses one constituent of a rule body. Glyphs and
// glyph classes become sequence elements, absorbing a contextual marker,
// contextual lookup references and any directly attached value record; an
// anchor after a glyph stays a sibling of the element. Bare numbers and
// <...> forms become value records or anchors.
func (p *parser) parseRuleConstituent() {
	switch p.cur().Kind {
	case TokenName, TokenCID, TokenClassName, TokenLBracket:
		p.b.Start(NodeSequenceElement)
		p.parseGlyphOrClass()
		if p.at(TokenQuote) {
			p.bump()
		}
		// contextual lookup references: glyph' lookup A lookup B
		for p.atKeyword("lookup") {
			p.b.Start(NodeLookupRef)
			p.bump()
			p.expect(TokenName)
			p.b.Finish()
		}
		if p.at(TokenNumber) || p.at(TokenHyphen) {
			p.parseValueRecord()
		} else if p.at(TokenLess) && !p.atAnchorStart() {
			p.parseValueRecord()
		}
		p.b.Finish()
	case TokenLess:
		if p.atAnchorStart() {
			p.parseAnchor()
		} else {
			p.parseValueRecord()
		}
	case TokenNumber, TokenHexNumber, TokenHyphen:
		p.parseValueRecord()
	}
}

// atAnchorStart reports whether the cursor is at "<anchor".
func (p *parser) atAnchorStart() bool {
	if !p.at(TokenLess) {
		return false
	}
	next := p.nth(1)
	return next.Kind == TokenKeyword && next.Text(p.src) == "anchor"
}

// --- Glyphs and glyph classes -----------------------------------------------

// parseGlyphOrClass parses a glyph name, CID, class reference or bracketed
// glyph class literal.
func (p *parser) parseGlyphOrClass() {
	switch p.cur().Kind {
	case TokenName:
		p.b.Start(NodeGlyphName)
		p.bump()
		p.b.Finish()
	case TokenCID:
		p.b.Start(NodeGlyphCID)
		p.bump()
		p.b.Finish()
	case TokenClassName:
		p.b.Start(NodeClassRef)
		p.bump()
		p.b.Finish()
	case TokenLBracket:
		p.parseGlyphClassLiteral()
	default:
		p.errorHere(fmt.Sprintf("expected a glyph or glyph class, found %s", p.describeCurrent()))
	}
}

// [ <glyph|cid|class|range> ... ]
// Ranges are recognized after the fact: when a hyphen follows a glyph inside
// the brackets, the preceding member is wrapped into a range node together
// with the hyphen and the end glyph.
func (p *parser) parseGlyphClassLiteral() {
	p.b.Start(NodeGlyphClass)
	p.bump() // [
	for !p.atEOF() && !p.at(TokenRBracket) {
		switch p.cur().Kind {
		case TokenName:
			p.b.Start(NodeGlyphName)
			p.bump()
			p.b.Finish()
		case TokenCID:
			p.b.Start(NodeGlyphCID)
			p.bump()
			p.b.Finish()
		case TokenClassName:
			p.b.Start(NodeClassRef)
			p.bump()
			p.b.Finish()
		case TokenHyphen:
			// range: wrap the previous member, the hyphen, and the end glyph
			p.b.StartBefore(NodeGlyphRange, 1)
			p.bump() // -
			switch p.cur().Kind {
			case TokenName:
				p.b.Start(NodeGlyphName)
				p.bump()
				p.b.Finish()
			case TokenCID:
				p.b.Start(NodeGlyphCID)
				p.bump()
				p.b.Finish()
			default:
				p.errorHere(fmt.Sprintf("expected a range end glyph, found %s", p.describeCurrent()))
			}
			p.b.Finish()
		default:
			p.recover(fmt.Sprintf("unexpected %s in glyph class", p.describeCurrent()),
				recoverySet{kinds: map[TokenKind]bool{
					TokenRBracket: true, TokenSemicolon: true, TokenRBrace: true,
				}})
			if !p.at(TokenRBracket) {
				p.b.Finish()
				return
			}
		}
	}
	p.expect(TokenRBracket)
	p.b.Finish()
}

// --- Anchors, value records, devices ----------------------------------------

// <anchor <x> <y>> | <anchor <x> <y> contourpoint <n>>
// <anchor <x> <y> <device ...> <device ...>> | <anchor NULL> | <anchor <name>>
func (p *parser) parseAnchor() {
	p.b.Start(NodeAnchor)
	p.expect(TokenLess)
	p.expectKeyword("anchor")
	switch {
	case p.atKeyword("NULL"):
		p.bump()
	case p.at(TokenName):
		p.bump() // named anchor from anchorDef
	default:
		p.parseSignedNumber()
		p.parseSignedNumber()
		if p.atKeyword("contourpoint") {
			p.bump()
			p.expect(TokenNumber)
		} else if p.at(TokenLess) {
			p.parseDevice()
			p.parseDevice()
		}
	}
	p.expect(TokenGreater)
	p.b.Finish()
}

// <device <points>, ...> | <device NULL>
func (p *parser) parseDevice() {
	p.b.Start(NodeDevice)
	p.expect(TokenLess)
	p.expectKeyword("device")
	if p.atKeyword("NULL") {
		p.bump()
	} else {
		for p.at(TokenNumber) || p.at(TokenHyphen) {
			p.parseSignedNumber()
			p.parseSignedNumber()
			if p.at(TokenComma) {
				p.bump()
				continue
			}
			break
		}
	}
	p.expect(TokenGreater)
	p.b.Finish()
}

// A value record in any of its forms:
//
//	-120                      bare advance
//	<-120>                    single value in brackets
//	<1 2 3 4>                 placement/advance 4-tuple
//	<1 2 3 4 <device...> x4>  with device tables
//	<NULL>                    null record
//	<KERN_A>                  named record from valueRecordDef
func (p *parser) parseValueRecord() {
	p.b.Start(NodeValueRecord)
	if p.at(TokenNumber) || p.at(TokenHyphen) {
		p.parseSignedNumber()
		p.b.Finish()
		return
	}
	p.expect(TokenLess)
	switch {
	case p.atKeyword("NULL"):
		p.bump()
	case p.at(TokenName):
		p.bump() // named value record
	default:
		count := 0
		for p.at(TokenNumber) || p.at(TokenHyphen) {
			if !p.parseSignedNumber() {
				break
			}
			count++
		}
		if count != 1 && count != 4 {
			p.errorHere(fmt.Sprintf("value record must have 1 or 4 values, has %d", count))
		}
		for p.at(TokenLess) {
			p.parseDevice()
		}
	}
	p.expect(TokenGreater)
	p.b.Finish()
}

// --- Simple statements ------------------------------------------------------

// lookupflag 0; | lookupflag <named flags ...>;
func (p *parser) parseLookupFlag() {
	p.b.Start(NodeLookupFlag)
	p.bump() // lookupflag
	if p.at(TokenNumber) {
		p.bump()
	} else {
		got := false
		for {
			switch {
			case p.atKeyword("RightToLeft"), p.atKeyword("IgnoreBaseGlyphs"),
				p.atKeyword("IgnoreLigatures"), p.atKeyword("IgnoreMarks"):
				p.bump()
				got = true
				continue
			case p.atKeyword("MarkAttachmentType"), p.atKeyword("UseMarkFilteringSet"):
				p.bump()
				p.parseGlyphOrClass()
				got = true
				continue
			}
			break
		}
		if !got {
			p.errorHere("expected lookup flags or 0")
		}
	}
	p.finishStatement()
	p.b.Finish()
}

// script <tag>;
func (p *parser) parseScriptStmt() {
	p.b.Start(NodeScriptStmt)
	p.bump()
	p.parseTag()
	p.finishStatement()
	p.b.Finish()
}

// language <tag> [exclude_dflt|include_dflt|excludeDFLT|includeDFLT] [required];
func (p *parser) parseLanguageStmt() {
	p.b.Start(NodeLanguageStmt)
	p.bump()
	p.parseTag()
	if p.atKeyword("exclude_dflt") || p.atKeyword("include_dflt") ||
		p.atKeyword("excludeDFLT") || p.atKeyword("includeDFLT") {
		p.bump()
	}
	if p.atKeyword("required") {
		p.bump()
	}
	p.finishStatement()
	p.b.Finish()
}

// subtable;
func (p *parser) parseSubtableStmt() {
	p.b.Start(NodeSubtableStmt)
	p.bump()
	p.finishStatement()
	p.b.Finish()
}

// feature <tag>;  — a cross-reference inside 'aalt' or 'size'.
func (p *parser) parseFeatureRef() {
	p.b.Start(NodeFeatureRef)
	p.bump()
	p.parseTag()
	p.finishStatement()
	p.b.Finish()
}

// parameters <decimal> <n> [<range low> <range high>];
func (p *parser) parseParameters() {
	p.b.Start(NodeParameters)
	p.bump()
	for p.at(TokenNumber) || p.at(TokenHyphen) {
		p.parseSignedNumber()
	}
	p.finishStatement()
	p.b.Finish()
}

// sizemenuname [<id> [<id> <id>]] "<string>";
func (p *parser) parseSizeMenuName() {
	p.b.Start(NodeSizeMenuName)
	p.bump()
	for p.at(TokenNumber) || p.at(TokenHexNumber) {
		p.bump()
	}
	p.expect(TokenString)
	p.finishStatement()
	p.b.Finish()
}

// featureNames { <name entries> };
func (p *parser) parseFeatureNames() {
	p.b.Start(NodeFeatureNames)
	p.bump()
	if p.expect(TokenLBrace) {
		for !p.atEOF() && !p.at(TokenRBrace) {
			p.parseNameEntry("name")
		}
		p.expect(TokenRBrace)
	}
	p.finishStatement()
	p.b.Finish()
}

// parseNameEntry parses one name-table entry statement:
//
//	<keyword> [<platform id> [<encoding id> <language id>]] "<string>";
//
// The leading keyword is "name" inside featureNames and cvParameters blocks,
// and "nameid <id>" inside table name blocks (the id is parsed here too).
func (p *parser) parseNameEntry(lead string) {
	p.b.Start(NodeNameEntry)
	if p.atKeyword(lead) || (p.at(TokenName) && p.curText() == lead) {
		p.bump()
	} else {
		p.recoverStatement(fmt.Sprintf("expected %q entry, found %s", lead, p.describeCurrent()))
		p.b.Finish()
		return
	}
	if lead == "nameid" {
		if !p.at(TokenNumber) && !p.at(TokenHexNumber) {
			p.errorHere("expected a name id")
		} else {
			p.bump()
		}
	}
	for p.at(TokenNumber) || p.at(TokenHexNumber) {
		p.bump()
	}
	p.expect(TokenString)
	p.finishStatement()
	p.b.Finish()
}

// cvParameters { <named blocks and entries> };
func (p *parser) parseCVParameters() {
	p.b.Start(NodeCVParameters)
	p.bump()
	if p.expect(TokenLBrace) {
		for !p.atEOF() && !p.at(TokenRBrace) {
			switch {
			case p.at(TokenName):
				name := p.curText()
				if name == "Character" {
					p.b.Start(NodeTableField)
					p.bump()
					if p.at(TokenNumber) || p.at(TokenHexNumber) {
						p.bump()
					} else {
						p.errorHere("expected a character code")
					}
					p.finishStatement()
					p.b.Finish()
					continue
				}
				// a nested name-id block such as FeatUILabelNameID { name ...; };
				p.b.Start(NodeTableField)
				p.bump()
				if p.expect(TokenLBrace) {
					for !p.atEOF() && !p.at(TokenRBrace) {
						p.parseNameEntry("name")
					}
					p.expect(TokenRBrace)
				}
				p.finishStatement()
				p.b.Finish()
			default:
				p.recoverStatement(fmt.Sprintf("unexpected %s in cvParameters", p.describeCurrent()))
			}
		}
		p.expect(TokenRBrace)
	}
	p.finishStatement()
	p.b.Finish()
}

// --- Includes ---------------------------------------------------------------

// include(<path>);
// The directive is resolved at parse time: the resolver maps the path to a
// canonical identity and source text, the included file is parsed with its
// own coordinates, and the resulting tree is spliced into the INCLUDE node.
func (p *parser) parseInclude() {
	p.b.Start(NodeInclude)
	directiveStart := p.cur().Span
	p.bump() // include
	if !p.expect(TokenLParen) {
		p.skipToRecovery(statementRecovery)
		p.finishStatement()
		p.b.Finish()
		return
	}
	var path strings.Builder
	pathSpan := p.cur().Span
	for !p.atEOF() && !p.at(TokenRParen) && !p.at(TokenSemicolon) {
		pathSpan = pathSpan.Cover(p.cur().Span)
		path.WriteString(p.curText())
		p.bump()
	}
	p.expect(TokenRParen)
	p.finishStatement()
	includePath := strings.TrimSpace(path.String())
	directiveSpan := directiveStart.Cover(pathSpan)
	p.resolveInclude(includePath, pathSpan, directiveSpan)
	p.b.Finish()
}

func (p *parser) resolveInclude(includePath string, pathSpan, directiveSpan diag.Span) {
	if includePath == "" {
		p.diags.InFile(p.basePath, directiveSpan, "include directive has no path")
		return
	}
	if p.resolver == nil {
		p.diags.InFile(p.basePath, pathSpan,
			fmt.Sprintf("cannot resolve include %q: no resolver", includePath))
		return
	}
	if p.depth >= MaxIncludeDepth {
		p.diags.InFile(p.basePath, directiveSpan,
			fmt.Sprintf("includes nested more than %d levels deep", MaxIncludeDepth))
		return
	}
	canonical, source, err := p.resolver.Resolve(p.basePath, includePath)
	if err != nil {
		p.diags.InFile(p.basePath, pathSpan,
			fmt.Sprintf("cannot resolve include %q: %v", includePath, err))
		return
	}
	if p.visited[canonical] {
		p.diags.InFile(p.basePath, directiveSpan,
			fmt.Sprintf("include cycle: %q is already being parsed", canonical))
		return
	}
	tracer().Debugf("splicing include %q (depth %d)", canonical, p.depth+1)
	p.visited[canonical] = true
	sub := newParser(source, p.resolver, canonical, p.visited, p.depth+1)
	subRoot := sub.parseFile()
	delete(p.visited, canonical)
	p.diags.Extend(sub.diags)
	p.diags.SetStage(diag.StageParse)
	p.b.Splice(canonical, subRoot)
}
