package feasyn

import (
	"github.com/derekparker/trie"

	"github.com/npillmayer/feafile/diag"
)

// The lexer is a single-pass, non-backtracking, byte-oriented scanner. It
// produces tokens in source order with zero skipped bytes: concatenating the
// spans of all tokens reproduces the input exactly. On an unrecognizable byte
// sequence it emits a single TokenError covering the offending bytes and
// resumes at the next recognizable boundary; it never halts.

// feaKeywords is the fixed keyword list of the feature-file language,
// including the commonly encountered extensions (featureNames, cvParameters,
// sizemenuname, useExtension). Keywords are matched after identifier
// recognition, so a glyph named e.g. "table" in a font will still lex as a
// keyword and must be escaped by the source author (this matches the
// reference compilers).
var feaKeywords = func() *trie.Trie {
	t := trie.New()
	for _, kw := range []string{
		"anchor", "anchorDef", "by", "contourpoint", "cursive", "device",
		"enum", "enumerate", "excludeDFLT", "exclude_dflt", "feature",
		"featureNames", "from", "ignore", "IgnoreBaseGlyphs",
		"IgnoreLigatures", "IgnoreMarks", "include", "includeDFLT",
		"include_dflt", "language", "languagesystem", "lookup", "lookupflag",
		"mark", "MarkAttachmentType", "markClass", "nameid", "NULL",
		"parameters", "pos", "position", "required", "reversesub",
		"RightToLeft", "rsub", "script", "sizemenuname", "sub", "substitute",
		"subtable", "table", "useExtension", "UseMarkFilteringSet",
		"valueRecordDef", "cvParameters",
	} {
		t.Add(kw, struct{}{})
	}
	return t
}()

func isKeyword(text string) bool {
	_, ok := feaKeywords.Find(text)
	return ok
}

// Lex scans source into a flat token stream. The returned slice always ends
// with a zero-length TokenEOF token.
func Lex(source string) []Token {
	lx := lexer{src: source}
	return lx.run()
}

type lexer struct {
	src    string
	pos    int
	tokens []Token
}

func (lx *lexer) run() []Token {
	for lx.pos < len(lx.src) {
		lx.next()
	}
	lx.emitAt(TokenEOF, lx.pos, lx.pos)
	return lx.tokens
}

func (lx *lexer) emit(kind TokenKind, start int) {
	lx.emitAt(kind, start, lx.pos)
}

func (lx *lexer) emitAt(kind TokenKind, start, end int) {
	lx.tokens = append(lx.tokens, Token{
		Kind: kind,
		Span: diag.S(uint32(start), uint32(end)),
	})
}

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) peekAt(n int) byte {
	if lx.pos+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+n]
}

func (lx *lexer) next() {
	start := lx.pos
	b := lx.src[lx.pos]
	switch {
	case b == '\n':
		lx.pos++
		lx.emit(TokenNewline, start)
	case b == ' ' || b == '\t' || b == '\r':
		for lx.pos < len(lx.src) {
			c := lx.src[lx.pos]
			if c != ' ' && c != '\t' && c != '\r' {
				break
			}
			lx.pos++
		}
		lx.emit(TokenWhitespace, start)
	case b == '#':
		for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
			lx.pos++
		}
		lx.emit(TokenComment, start)
	case b == '"':
		lx.lexString(start)
	case b >= '0' && b <= '9':
		lx.lexNumber(start)
	case b == '\\':
		lx.pos++
		if !isDigit(lx.peek()) {
			lx.recoverError(start)
			return
		}
		for isDigit(lx.peek()) {
			lx.pos++
		}
		lx.emit(TokenCID, start)
	case b == '@':
		lx.pos++
		if !isNameStart(lx.peek()) {
			lx.recoverError(start)
			return
		}
		for isNameByte(lx.peek()) {
			lx.pos++
		}
		lx.emit(TokenClassName, start)
	case b == '.' && lx.peekAt(1) == '.':
		// '.' may begin a glyph name, so the composite token is matched first
		lx.pos += 2
		lx.emit(TokenDotDot, start)
	case isNameStart(b):
		lx.lexName(start)
	default:
		if kind, width, ok := lx.punct(); ok {
			lx.pos += width
			lx.emit(kind, start)
			return
		}
		lx.recoverError(start)
	}
}

// lexString scans a double-quoted string. The language defines no escape
// sequences, so scanning stops at the next quote. An unterminated string
// becomes a TokenError spanning to the end of the line.
func (lx *lexer) lexString(start int) {
	lx.pos++ // opening quote
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '"' {
			lx.pos++
			lx.emit(TokenString, start)
			return
		}
		if c == '\n' {
			lx.emit(TokenError, start)
			return
		}
		lx.pos++
	}
	lx.emit(TokenError, start)
}

// lexNumber scans a decimal or 0x-prefixed hexadecimal numeric. A decimal
// numeric may carry a fractional part; the dot is consumed only when followed
// by a digit, so ranges like "1..5" do not capture the dots.
func (lx *lexer) lexNumber(start int) {
	if lx.peek() == '0' && (lx.peekAt(1) == 'x' || lx.peekAt(1) == 'X') {
		lx.pos += 2
		for isHexDigit(lx.peek()) {
			lx.pos++
		}
		lx.emit(TokenHexNumber, start)
		return
	}
	for isDigit(lx.peek()) {
		lx.pos++
	}
	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		lx.pos++
		for isDigit(lx.peek()) {
			lx.pos++
		}
	}
	lx.emit(TokenNumber, start)
}

// lexName scans a glyph name or identifier and reclassifies it as a keyword
// when it matches the fixed keyword list.
func (lx *lexer) lexName(start int) {
	for isNameByte(lx.peek()) {
		lx.pos++
	}
	if isKeyword(lx.src[start:lx.pos]) {
		lx.emit(TokenKeyword, start)
		return
	}
	lx.emit(TokenName, start)
}

func (lx *lexer) punct() (TokenKind, int, bool) {
	switch lx.src[lx.pos] {
	case '{':
		return TokenLBrace, 1, true
	case '}':
		return TokenRBrace, 1, true
	case '[':
		return TokenLBracket, 1, true
	case ']':
		return TokenRBracket, 1, true
	case '(':
		return TokenLParen, 1, true
	case ')':
		return TokenRParen, 1, true
	case ';':
		return TokenSemicolon, 1, true
	case ',':
		return TokenComma, 1, true
	case '\'':
		return TokenQuote, 1, true
	case '-':
		return TokenHyphen, 1, true
	case '=':
		return TokenEquals, 1, true
	case '<':
		return TokenLess, 1, true
	case '>':
		return TokenGreater, 1, true
	case ':':
		if lx.peekAt(1) == ':' {
			return TokenColonColon, 2, true
		}
	case '.':
		if lx.peekAt(1) == '.' {
			return TokenDotDot, 2, true
		}
	}
	return 0, 0, false
}

// recoverError consumes bytes starting at start until the next byte that can
// begin a recognizable token, and emits one TokenError for the whole run.
func (lx *lexer) recoverError(start int) {
	if lx.pos == start {
		lx.pos++
	}
	for lx.pos < len(lx.src) && !lx.isBoundary(lx.src[lx.pos]) {
		lx.pos++
	}
	lx.emit(TokenError, start)
}

func (lx *lexer) isBoundary(b byte) bool {
	switch b {
	case '\n', ' ', '\t', '\r', '#', '"', '\\', '@',
		'{', '}', '[', ']', '(', ')', ';', ',', '\'', '-', '=', '<', '>':
		return true
	}
	return isNameStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// isNameStart reports whether b can begin a glyph name or identifier.
func isNameStart(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isNameByte reports whether b can continue a glyph name. Dashes are legal
// name bytes, so glyph ranges must separate their endpoints with whitespace
// around the hyphen. The slash exists solely for the table tag "OS/2".
func isNameByte(b byte) bool {
	return isNameStart(b) || isDigit(b) || b == '-' || b == '/'
}
