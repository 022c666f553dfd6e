package feasyn

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func tokenTexts(src string) []string {
	var texts []string
	for _, tok := range Lex(src) {
		if tok.Kind == TokenEOF {
			continue
		}
		texts = append(texts, tok.Text(src))
	}
	return texts
}

// Every byte of input must land in exactly one token.
func assertLexRoundTrip(t *testing.T, src string) {
	t.Helper()
	var sb strings.Builder
	last := uint32(0)
	for _, tok := range Lex(src) {
		if tok.Span.Start != last {
			t.Fatalf("token gap: token starts at %d, previous ended at %d", tok.Span.Start, last)
		}
		last = tok.Span.End
		sb.WriteString(tok.Text(src))
	}
	if sb.String() != src {
		t.Fatalf("lexer round trip failed:\nwant %q\nhave %q", src, sb.String())
	}
}

func TestLexRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	sources := []string{
		"",
		"languagesystem DFLT dflt;",
		"feature liga { sub f i by f_i; } liga;",
		"# comment only\n",
		"@digits = [zero - nine];",
		"pos A V -120;",
		"sub \\42 by \\7;",
		"table OS/2 { TypoAscender 800; } OS/2;",
		"feature ss01 { featureNames { name \"Swashes\"; }; } ss01;",
		"lookup L1 { sub a by b; } L1;\n\nfeature calt {\n  sub a' lookup L1 b;\n} calt;\n",
		"anchorDef 120 -20 contourpoint 5 TOP;",
		"\x01\x02 sub a by b;", // garbage bytes become one ERROR token
	}
	for _, src := range sources {
		assertLexRoundTrip(t, src)
	}
}

func TestLexTokenKinds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := `sub f_i by 0x1A -500 "text" @CLASS \99 a.sc ' ..`
	var kinds []TokenKind
	for _, tok := range Lex(src) {
		if tok.Kind.IsTrivia() || tok.Kind == TokenEOF {
			continue
		}
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{
		TokenKeyword, TokenName, TokenKeyword, TokenHexNumber,
		TokenHyphen, TokenNumber, TokenString, TokenClassName,
		TokenCID, TokenName, TokenQuote, TokenDotDot,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d tokens, have %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: expected %s, have %s", i, want[i], kinds[i])
		}
	}
}

func TestLexKeywordAfterIdentifier(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	// "subst" is a glyph name, "sub" is a keyword
	tokens := Lex("sub subst")
	if tokens[0].Kind != TokenKeyword {
		t.Errorf("expected 'sub' to lex as keyword, got %s", tokens[0].Kind)
	}
	if tokens[2].Kind != TokenName {
		t.Errorf("expected 'subst' to lex as name, got %s", tokens[2].Kind)
	}
}

func TestLexErrorRecovery(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := "sub $%& a by b;"
	tokens := Lex(src)
	errCount := 0
	for _, tok := range tokens {
		if tok.Kind == TokenError {
			errCount++
			if tok.Text(src) != "$%&" {
				t.Errorf("expected error token to cover %q, covers %q", "$%&", tok.Text(src))
			}
		}
	}
	if errCount != 1 {
		t.Fatalf("expected exactly one error token, have %d", errCount)
	}
	// the lexer must keep going after the error
	texts := tokenTexts(src)
	if texts[len(texts)-1] != ";" {
		t.Errorf("lexer did not resume after error: last token %q", texts[len(texts)-1])
	}
}

func TestLexUnterminatedString(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	src := "nameid 1 \"unterminated\nsub a by b;"
	assertLexRoundTrip(t, src)
	found := false
	for _, tok := range Lex(src) {
		if tok.Kind == TokenError {
			found = true
		}
	}
	if !found {
		t.Errorf("unterminated string should lex as an error token")
	}
}

func TestLexOS2Tag(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	tokens := Lex("OS/2")
	if tokens[0].Kind != TokenName || tokens[0].Len() != 4 {
		t.Errorf("OS/2 should lex as one name token, got %s of length %d",
			tokens[0].Kind, tokens[0].Len())
	}
}
