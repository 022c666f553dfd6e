package feasyn

import (
	"fmt"

	"github.com/npillmayer/feafile/diag"
)

// Resolver resolves include directives to canonical paths and source text.
// Cycle detection is performed by the parser via canonical-path identity, so
// resolvers must return stable canonical paths for the same file.
type Resolver interface {
	Resolve(basePath, includePath string) (canonicalPath string, source string, err error)
}

// MaxIncludeDepth bounds include nesting. The limit follows the reference
// compilers; files nested deeper are reported as errors and not expanded.
const MaxIncludeDepth = 50

// Parse parses feature-file source into a green tree. Includes are resolved
// through resolver at parse time and spliced into the tree; a nil resolver
// turns every include directive into a parse error. The returned tree is
// well-formed even in the presence of errors.
func Parse(source string, resolver Resolver) (Node, []diag.Diagnostic) {
	return ParseFile(source, "", resolver)
}

// ParseFile parses source known to live at canonicalPath. The path becomes
// the file identity of spans in diagnostics and participates in include
// cycle detection, so an include chain leading back to the root file is
// reported as a cycle.
func ParseFile(source, canonicalPath string, resolver Resolver) (Node, []diag.Diagnostic) {
	visited := make(map[string]bool)
	if canonicalPath != "" {
		visited[canonicalPath] = true
	}
	p := newParser(source, resolver, canonicalPath, visited, 0)
	green := p.parseFile()
	tracer().Debugf("parsed %d bytes into green tree, %d diagnostics",
		len(source), p.diags.Len())
	return Node{green: green, file: canonicalPath}, p.diags.All()
}

type parser struct {
	src      string
	tokens   []Token
	pos      int
	b        *Builder
	diags    *diag.Collector
	resolver Resolver
	basePath string          // canonical path of the file being parsed
	visited  map[string]bool // canonical include paths on the current chain
	depth    int
}

func newParser(source string, resolver Resolver, basePath string, visited map[string]bool, depth int) *parser {
	if visited == nil {
		visited = make(map[string]bool)
	}
	tokens := Lex(source)
	p := &parser{
		src:      source,
		tokens:   tokens,
		b:        NewBuilder(),
		diags:    diag.NewCollector(diag.StageParse),
		resolver: resolver,
		basePath: basePath,
		visited:  visited,
		depth:    depth,
	}
	p.lexDiagnostics()
	return p
}

// lexDiagnostics reports every lexer ERROR token once, up front, under the
// lex stage. The tokens themselves still enter the tree to preserve
// round-trip fidelity.
func (p *parser) lexDiagnostics() {
	lexDiags := diag.NewCollector(diag.StageLex)
	for _, tok := range p.tokens {
		if tok.Kind == TokenError {
			lexDiags.InFile(p.basePath, tok.Span,
				fmt.Sprintf("unrecognized input %q", tok.Text(p.src)))
		}
	}
	p.diags.Extend(lexDiags)
	p.diags.SetStage(diag.StageParse)
}

// --- Token cursor ----------------------------------------------------------

// cur returns the current non-trivia token without consuming anything.
func (p *parser) cur() Token {
	i := p.pos
	for i < len(p.tokens) && p.tokens[i].Kind.IsTrivia() {
		i++
	}
	return p.tokens[i]
}

// nth returns the n-th non-trivia token after the current one.
func (p *parser) nth(n int) Token {
	i := p.pos
	for i < len(p.tokens) {
		if !p.tokens[i].Kind.IsTrivia() {
			if n == 0 {
				return p.tokens[i]
			}
			n--
		}
		i++
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) at(kind TokenKind) bool {
	return p.cur().Kind == kind
}

func (p *parser) atKeyword(text string) bool {
	tok := p.cur()
	return tok.Kind == TokenKeyword && tok.Text(p.src) == text
}

func (p *parser) curText() string {
	return p.cur().Text(p.src)
}

func (p *parser) atEOF() bool {
	return p.cur().Kind == TokenEOF
}

// bumpTrivia moves pending trivia tokens into the innermost open node.
func (p *parser) bumpTrivia() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind.IsTrivia() {
		tok := p.tokens[p.pos]
		p.b.Token(tok.Kind, tok.Text(p.src))
		p.pos++
	}
}

// bump consumes the current non-trivia token into the innermost open node.
func (p *parser) bump() {
	p.bumpTrivia()
	if p.pos >= len(p.tokens) {
		return
	}
	tok := p.tokens[p.pos]
	if tok.Kind == TokenEOF {
		return
	}
	p.b.Token(tok.Kind, tok.Text(p.src))
	p.pos++
}

// expect consumes a token of the wanted kind or reports an error at the
// current position without consuming. Returns true when the token matched.
func (p *parser) expect(kind TokenKind) bool {
	if p.at(kind) {
		p.bump()
		return true
	}
	p.errorHere(fmt.Sprintf("expected %s, found %s", kind, p.describeCurrent()))
	return false
}

// expectKeyword consumes the given keyword or reports an error.
func (p *parser) expectKeyword(text string) bool {
	if p.atKeyword(text) {
		p.bump()
		return true
	}
	p.errorHere(fmt.Sprintf("expected %q, found %s", text, p.describeCurrent()))
	return false
}

func (p *parser) describeCurrent() string {
	tok := p.cur()
	if tok.Kind == TokenEOF {
		return "end of file"
	}
	return fmt.Sprintf("%s %q", tok.Kind, tok.Text(p.src))
}

func (p *parser) errorHere(message string) {
	p.diags.InFile(p.basePath, p.cur().Span, message)
}

func (p *parser) warnAt(span diag.Span, message string) {
	p.diags.Add(diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Span:     span,
		File:     p.basePath,
		Message:  message,
	})
}

// --- Recovery --------------------------------------------------------------

// recoverySet is the set of token kinds (plus item-starting keywords) at
// which an enclosing production can resume after an error.
type recoverySet struct {
	kinds    map[TokenKind]bool
	keywords map[string]bool
}

var statementRecovery = recoverySet{
	kinds: map[TokenKind]bool{TokenSemicolon: true, TokenRBrace: true},
}

// itemKeywords begin a top-level item; they double as the top-level recovery
// set.
var itemKeywords = map[string]bool{
	"languagesystem": true, "include": true, "anchorDef": true,
	"valueRecordDef": true, "markClass": true, "feature": true,
	"lookup": true, "table": true,
}

var topLevelRecovery = recoverySet{
	kinds:    map[TokenKind]bool{TokenClassName: true, TokenRBrace: true},
	keywords: itemKeywords,
}

func (rs recoverySet) contains(kind TokenKind, text string) bool {
	if rs.kinds[kind] {
		return true
	}
	return kind == TokenKeyword && rs.keywords[text]
}

// recover reports a diagnostic at the current token and consumes tokens into
// an ERROR node until the recovery set (or EOF) is reached.
func (p *parser) recover(message string, rs recoverySet) {
	p.errorHere(message)
	p.skipToRecovery(rs)
}

// skipToRecovery consumes tokens into an ERROR node until a token in the
// recovery set or EOF. Consumes nothing if already at a recovery point.
func (p *parser) skipToRecovery(rs recoverySet) {
	if p.atEOF() || rs.contains(p.cur().Kind, p.curText()) {
		return
	}
	p.b.Start(NodeError)
	for !p.atEOF() && !rs.contains(p.cur().Kind, p.curText()) {
		p.bump()
	}
	p.b.Finish()
}

// finishStatement consumes the trailing semicolon of a statement, recovering
// to the next statement boundary when it is missing.
func (p *parser) finishStatement() {
	if p.at(TokenSemicolon) {
		p.bump()
		return
	}
	p.recover(fmt.Sprintf("expected ';', found %s", p.describeCurrent()), statementRecovery)
	if p.at(TokenSemicolon) {
		p.bump()
	}
}

// --- File and top-level items ----------------------------------------------

func (p *parser) parseFile() *GreenNode {
	p.b.Start(NodeFile)
	for !p.atEOF() {
		p.parseItem()
	}
	p.bumpTrivia()
	return p.b.Finish()
}

func (p *parser) parseItem() {
	tok := p.cur()
	switch {
	case tok.Kind == TokenClassName:
		p.parseGlyphClassAssignment()
	case tok.Kind == TokenKeyword:
		switch tok.Text(p.src) {
		case "languagesystem":
			p.parseLanguageSystem()
		case "include":
			p.parseInclude()
		case "anchorDef":
			p.parseAnchorDef()
		case "valueRecordDef":
			p.parseValueRecordDef()
		case "markClass":
			p.parseMarkClassDef()
		case "feature":
			p.parseFeatureBlock()
		case "lookup":
			p.parseLookupBlock(true)
		case "table":
			p.parseTableBlock()
		default:
			p.recoverItem(fmt.Sprintf("unexpected keyword %q at top level", tok.Text(p.src)))
		}
	default:
		p.recoverItem(fmt.Sprintf("expected a top-level item, found %s", p.describeCurrent()))
	}
}

// recoverItem wraps unexpected top-level tokens into an ERROR node and
// resumes at the next item-starting keyword.
func (p *parser) recoverItem(message string) {
	p.errorHere(message)
	p.b.Start(NodeError)
	p.bump() // always make progress
	for !p.atEOF() && !topLevelRecovery.contains(p.cur().Kind, p.curText()) {
		p.bump()
	}
	// a stray semicolon after the error region belongs to the error
	if p.at(TokenSemicolon) {
		p.bump()
	}
	p.b.Finish()
}

// parseTag wraps the next tag-shaped token (a name, keyword, or number, as
// tags like 'ss01' lex as names but 'mark' lexes as a keyword) in a Tag node.
func (p *parser) parseTag() bool {
	tok := p.cur()
	if tok.Kind != TokenName && tok.Kind != TokenKeyword && tok.Kind != TokenNumber {
		p.errorHere(fmt.Sprintf("expected a tag, found %s", p.describeCurrent()))
		return false
	}
	p.b.Start(NodeTag)
	p.bump()
	p.b.Finish()
	return true
}

// languagesystem <script tag> <language tag>;
func (p *parser) parseLanguageSystem() {
	p.b.Start(NodeLanguageSystem)
	p.bump() // languagesystem
	if !p.parseTag() {
		p.skipToRecovery(statementRecovery)
	} else if !p.parseTag() {
		p.skipToRecovery(statementRecovery)
	}
	p.finishStatement()
	p.b.Finish()
}

// anchorDef <x> <y> [contourpoint <n>] <name>;
func (p *parser) parseAnchorDef() {
	p.b.Start(NodeAnchorDef)
	p.bump() // anchorDef
	p.parseSignedNumber()
	p.parseSignedNumber()
	if p.atKeyword("contourpoint") {
		p.bump()
		p.expect(TokenNumber)
	}
	p.expect(TokenName)
	p.finishStatement()
	p.b.Finish()
}

// valueRecordDef <value record> <name>;
func (p *parser) parseValueRecordDef() {
	p.b.Start(NodeValueRecordDef)
	p.bump() // valueRecordDef
	p.parseValueRecord()
	p.expect(TokenName)
	p.finishStatement()
	p.b.Finish()
}

// markClass <glyph|class> <anchor> @<class name>;
func (p *parser) parseMarkClassDef() {
	p.b.Start(NodeMarkClassDef)
	p.bump() // markClass
	p.parseGlyphOrClass()
	p.parseAnchor()
	p.expect(TokenClassName)
	p.finishStatement()
	p.b.Finish()
}

// @<name> = <glyph class>;
func (p *parser) parseGlyphClassAssignment() {
	p.b.Start(NodeGlyphClassDef)
	p.bump() // @name
	p.expect(TokenEquals)
	p.parseGlyphOrClass()
	p.finishStatement()
	p.b.Finish()
}

// feature <tag> [useExtension] { ... } <tag>;
func (p *parser) parseFeatureBlock() {
	p.b.Start(NodeFeatureBlock)
	p.bump() // feature
	p.parseTag()
	if p.atKeyword("useExtension") {
		p.bump()
	}
	if p.expect(TokenLBrace) {
		p.parseBlockStatements()
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

// lookup <label> [useExtension] { ... } <label>;  — a definition.
// lookup <label>;                                 — a reference.
// Definitions appear at top level and inside feature blocks; references only
// inside blocks. The distinction is made on the token after the label.
func (p *parser) parseLookupBlock(topLevel bool) {
	isDefinition := p.nth(2).Kind == TokenLBrace ||
		(p.nth(2).Kind == TokenKeyword && p.nth(2).Text(p.src) == "useExtension")
	if !isDefinition && !topLevel {
		p.b.Start(NodeLookupRef)
		p.bump() // lookup
		p.expect(TokenName)
		p.finishStatement()
		p.b.Finish()
		return
	}
	p.b.Start(NodeLookupBlock)
	p.bump() // lookup
	p.expect(TokenName)
	if p.atKeyword("useExtension") {
		p.bump()
	}
	if p.expect(TokenLBrace) {
		p.parseBlockStatements()
	} else {
		p.skipToRecovery(topLevelRecovery)
	}
	if p.at(TokenRBrace) {
		p.bump()
		p.expect(TokenName)
		p.finishStatement()
	}
	p.b.Finish()
}

// parseBlockStatements parses statements until the closing brace.
func (p *parser) parseBlockStatements() {
	for !p.atEOF() && !p.at(TokenRBrace) {
		p.parseStatement()
	}
}

// parseSignedNumber consumes an optional hyphen followed by a numeric token.
// The sign is a separate token; assembling the value is the reader's job.
func (p *parser) parseSignedNumber() bool {
	if p.at(TokenHyphen) {
		p.bump()
	}
	if p.at(TokenNumber) || p.at(TokenHexNumber) {
		p.bump()
		return true
	}
	p.errorHere(fmt.Sprintf("expected a number, found %s", p.describeCurrent()))
	return false
}
