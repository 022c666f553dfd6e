package feasyn

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestBuilderRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	b := NewBuilder()
	b.Start(NodeFile)
	b.Start(NodeGlyphClassDef)
	b.Token(TokenClassName, "@a")
	b.Token(TokenWhitespace, " ")
	b.Token(TokenEquals, "=")
	b.Token(TokenWhitespace, " ")
	b.Start(NodeGlyphName)
	b.Token(TokenName, "x")
	b.Finish()
	b.Token(TokenSemicolon, ";")
	b.Finish()
	root := b.Finish()
	if root.Kind() != NodeFile {
		t.Fatalf("expected FILE root, have %s", root.Kind())
	}
	if root.Text() != "@a = x;" {
		t.Fatalf("green tree text mismatch: %q", root.Text())
	}
	if root.Length() != uint32(len("@a = x;")) {
		t.Fatalf("green tree length mismatch: %d", root.Length())
	}
}

func TestBuilderStartBefore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	b := NewBuilder()
	b.Start(NodeGlyphClass)
	b.Start(NodeGlyphName)
	b.Token(TokenName, "a")
	b.Finish()
	// decide post hoc that the finished child begins a range
	b.StartBefore(NodeGlyphRange, 1)
	b.Token(TokenHyphen, "-")
	b.Start(NodeGlyphName)
	b.Token(TokenName, "z")
	b.Finish()
	b.Finish() // range
	root := b.Finish()
	if root.Text() != "a-z" {
		t.Fatalf("text mismatch: %q", root.Text())
	}
	if root.NumChildren() != 1 {
		t.Fatalf("expected range node to wrap the members, have %d children", root.NumChildren())
	}
	rangeNode := root.ChildAt(0).Node()
	if rangeNode.Kind() != NodeGlyphRange {
		t.Fatalf("expected GLYPH_RANGE child, have %s", rangeNode.Kind())
	}
	if rangeNode.NumChildren() != 3 {
		t.Fatalf("range should hold start, hyphen, end: %d children", rangeNode.NumChildren())
	}
}

func TestRedCursorOffsets(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fea.syntax")
	defer teardown()
	b := NewBuilder()
	b.Start(NodeFile)
	b.Start(NodeGlyphName)
	b.Token(TokenName, "abc")
	b.Finish()
	b.Token(TokenWhitespace, " ")
	b.Start(NodeGlyphName)
	b.Token(TokenName, "de")
	b.Finish()
	root := Root(b.Finish())
	var spans [][2]uint32
	for child := range root.ChildNodes() {
		span := child.Span()
		spans = append(spans, [2]uint32{span.Start, span.End})
	}
	if len(spans) != 2 {
		t.Fatalf("expected two child nodes, have %d", len(spans))
	}
	if spans[0] != [2]uint32{0, 3} || spans[1] != [2]uint32{4, 6} {
		t.Fatalf("wrong spans: %v", spans)
	}
}
