package feasyn

import "fmt"

// table <tag> { ... } <tag>;
// Statement dispatch inside the block goes by the statement's leading word,
// not by the table tag: the GDEF statement forms, nameid entries and rules
// are recognized in any table block, and every other name starts a generic
// field (with nested blocks, as in STAT). Whether a statement belongs in
// its table is left to the validator.
func (p *parser) parseTableBlock() {
	p.b.Start(NodeTableBlock)
	p.bump() // table
	tag := ""
	if p.at(TokenName) || p.at(TokenKeyword) {
		tag = p.curText()
	}
	p.parseTag()
	if p.expect(TokenLBrace) {
		for !p.atEOF() && !p.at(TokenRBrace) {
			p.parseTableStatement(tag)
		}
	} else {
		p.skipToRecovery(topLevelRecovery)
	}
	if p.at(TokenRBrace) {
		p.bump()
		p.parseTag()
		p.finishStatement()
	}
	p.b.Finish()
}

func (p *parser) parseTableStatement(tableTag string) {
	tok := p.cur()
	if tok.Kind == TokenKeyword {
		switch tok.Text(p.src) {
		case "nameid":
			p.parseNameEntry("nameid")
			return
		case "include":
			p.parseInclude()
			return
		case "lookup":
			// GDEF caret lookups are not a thing; but a lookup reference in
			// a table block is a context error the validator reports. Parse
			// it structurally so validation can see it.
			p.parseLookupBlock(false)
			return
		case "sub", "substitute", "rsub", "reversesub":
			p.parseSubRule()
			return
		case "pos", "position", "enum", "enumerate":
			p.parsePosRule()
			return
		}
	}
	if tok.Kind != TokenName {
		p.recoverStatement(fmt.Sprintf("unexpected %s in table %s", p.describeCurrent(), tableTag))
		return
	}
	switch tok.Text(p.src) {
	case "GlyphClassDef":
		p.parseGlyphClassDefStmt()
	case "Attach":
		p.parseAttachStmt()
	case "LigatureCaretByPos":
		p.parseLigCaret(NodeLigCaretPos)
	case "LigatureCaretByIndex":
		p.parseLigCaret(NodeLigCaretIndex)
	default:
		p.parseTableField()
	}
}

// GlyphClassDef <base>, <ligature>, <mark>, <component>;
// Any of the four class slots may be empty.
func (p *parser) parseGlyphClassDefStmt() {
	p.b.Start(NodeGlyphClassDefStmt)
	p.bump() // GlyphClassDef
	for i := 0; i < 4; i++ {
		if p.at(TokenClassName) || p.at(TokenLBracket) || p.at(TokenName) || p.at(TokenCID) {
			p.parseGlyphOrClass()
		}
		if i < 3 && p.at(TokenComma) {
			p.bump()
		}
	}
	p.finishStatement()
	p.b.Finish()
}

// Attach <glyph|class> <contour point>+;
func (p *parser) parseAttachStmt() {
	p.b.Start(NodeAttachStmt)
	p.bump() // Attach
	p.parseGlyphOrClass()
	got := false
	for p.at(TokenNumber) {
		p.bump()
		got = true
	}
	if !got {
		p.errorHere("expected at least one contour point")
	}
	p.finishStatement()
	p.b.Finish()
}

// LigatureCaretByPos|LigatureCaretByIndex <glyph|class> <value>+;
func (p *parser) parseLigCaret(kind NodeKind) {
	p.b.Start(kind)
	p.bump()
	p.parseGlyphOrClass()
	got := false
	for p.at(TokenNumber) || p.at(TokenHyphen) {
		p.parseSignedNumber()
		got = true
	}
	if !got {
		p.errorHere("expected at least one caret value")
	}
	p.finishStatement()
	p.b.Finish()
}

// parseTableField parses one generic table field statement: a field name
// followed by value tokens up to the terminating semicolon. Nested braced
// blocks (STAT's ElidedFallbackName, DesignAxis, AxisValue) are descended
// into; their name entries and sub-fields become child nodes.
func (p *parser) parseTableField() {
	p.b.Start(NodeTableField)
	p.bump() // field name
	for !p.atEOF() && !p.at(TokenSemicolon) && !p.at(TokenRBrace) {
		switch p.cur().Kind {
		case TokenLBrace:
			p.bump()
			for !p.atEOF() && !p.at(TokenRBrace) {
				switch {
				case p.at(TokenName) && p.curText() == "name":
					p.parseNameEntry("name")
				case p.at(TokenName):
					p.parseTableField()
				default:
					p.recoverStatement(fmt.Sprintf("unexpected %s in table sub-block", p.describeCurrent()))
				}
			}
			p.expect(TokenRBrace)
		case TokenNumber, TokenHexNumber, TokenHyphen, TokenString, TokenName,
			TokenComma, TokenClassName, TokenCID, TokenLBracket:
			if p.at(TokenLBracket) || p.at(TokenClassName) {
				p.parseGlyphOrClass()
			} else {
				p.bump()
			}
		case TokenKeyword:
			p.bump()
		default:
			p.recoverStatement(fmt.Sprintf("unexpected %s in table field", p.describeCurrent()))
			p.b.Finish()
			return
		}
	}
	p.finishStatement()
	p.b.Finish()
}
