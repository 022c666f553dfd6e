package feasyn

import (
	"iter"
	"strings"

	"github.com/npillmayer/feafile/diag"
)

// The green tree is the lossless, untyped concrete syntax tree. Green nodes
// are immutable after construction and carry only kind, byte length and
// children; absolute positions are computed by the red cursor layer below.
// Identical subtrees may share one allocation; nothing ever mutates a green
// node after the builder finishes it.

// GreenToken is a leaf of the green tree: a token kind plus its source text.
type GreenToken struct {
	Kind TokenKind
	Text string
}

// GreenNode is an interior node of the green tree. Children are green
// elements in source order; the concatenation of all leaf texts below a node
// reproduces the corresponding source slice exactly.
//
// A NodeInclude carries two extra attachments outside the child list: the
// resolved path of the included file and the included file's own parse tree.
// Keeping the inner tree out-of-band preserves the host file's round-trip
// invariant and span arithmetic; the inner tree spans index into the included
// file instead.
type GreenNode struct {
	kind     NodeKind
	length   uint32
	children []GreenElement
	aux      string     // resolved include path (NodeInclude only)
	inner    *GreenNode // spliced include parse (NodeInclude only)
}

// Aux returns the node's auxiliary string: for NodeInclude, the resolved
// canonical path of the included file.
func (n *GreenNode) Aux() string {
	if n == nil {
		return ""
	}
	return n.aux
}

// Inner returns the spliced parse tree of a NodeInclude, or nil.
func (n *GreenNode) Inner() *GreenNode {
	if n == nil {
		return nil
	}
	return n.inner
}

// GreenElement is either a child node or a child token of a green node.
type GreenElement struct {
	node  *GreenNode
	token GreenToken
}

// IsNode reports whether the element wraps an interior node.
func (e GreenElement) IsNode() bool {
	return e.node != nil
}

// Node returns the wrapped node, or nil for a token element.
func (e GreenElement) Node() *GreenNode {
	return e.node
}

// Token returns the wrapped token. Only meaningful when IsNode is false.
func (e GreenElement) Token() GreenToken {
	return e.token
}

func (e GreenElement) length() uint32 {
	if e.node != nil {
		return e.node.length
	}
	return uint32(len(e.token.Text))
}

// Kind returns the node's kind tag.
func (n *GreenNode) Kind() NodeKind {
	return n.kind
}

// Length returns the node's byte length.
func (n *GreenNode) Length() uint32 {
	if n == nil {
		return 0
	}
	return n.length
}

// NumChildren returns the number of child elements.
func (n *GreenNode) NumChildren() int {
	if n == nil {
		return 0
	}
	return len(n.children)
}

// ChildAt returns child element i.
func (n *GreenNode) ChildAt(i int) GreenElement {
	return n.children[i]
}

// Text reconstructs the source text below this node.
func (n *GreenNode) Text() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *GreenNode) writeText(sb *strings.Builder) {
	if n == nil {
		return
	}
	for _, c := range n.children {
		if c.node != nil {
			c.node.writeText(sb)
		} else {
			sb.WriteString(c.token.Text)
		}
	}
}

// --- Builder ---------------------------------------------------------------

// Builder assembles a green tree bottom-up while the parser descends the
// grammar. It maintains a stack of open nodes; tokens and finished nodes
// accumulate as children of the innermost open node.
type Builder struct {
	stack []openNode
}

type openNode struct {
	kind     NodeKind
	children []GreenElement
	aux      string
	inner    *GreenNode
}

// NewBuilder returns an empty green-tree builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Start opens a new node of the given kind.
func (b *Builder) Start(kind NodeKind) {
	b.stack = append(b.stack, openNode{kind: kind})
}

// Token appends a token to the innermost open node.
func (b *Builder) Token(kind TokenKind, text string) {
	top := &b.stack[len(b.stack)-1]
	top.children = append(top.children, GreenElement{token: GreenToken{Kind: kind, Text: text}})
}

// Finish closes the innermost open node and attaches it to its parent.
// Finishing the last open node returns the completed root; before that, the
// returned node is the finished child.
func (b *Builder) Finish() *GreenNode {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	node := newGreenNode(top.kind, top.children)
	node.aux = top.aux
	node.inner = top.inner
	if len(b.stack) > 0 {
		parent := &b.stack[len(b.stack)-1]
		parent.children = append(parent.children, GreenElement{node: node})
	}
	return node
}

// StartBefore opens a new node of the given kind wrapping the last n
// children of the innermost open node. This serves left-recursive constructs
// that are disambiguated after their first constituents have been parsed.
func (b *Builder) StartBefore(kind NodeKind, n int) {
	top := &b.stack[len(b.stack)-1]
	if n > len(top.children) {
		n = len(top.children)
	}
	wrapped := make([]GreenElement, n)
	copy(wrapped, top.children[len(top.children)-n:])
	top.children = top.children[:len(top.children)-n]
	b.stack = append(b.stack, openNode{kind: kind, children: wrapped})
}

// Splice attaches a parsed include file to the innermost open node, which
// must be a NodeInclude. The inner tree does not contribute to the node's
// byte length.
func (b *Builder) Splice(resolvedPath string, inner *GreenNode) {
	top := &b.stack[len(b.stack)-1]
	top.aux = resolvedPath
	top.inner = inner
}

func newGreenNode(kind NodeKind, children []GreenElement) *GreenNode {
	var length uint32
	for _, c := range children {
		length += c.length()
	}
	return &GreenNode{kind: kind, length: length, children: children}
}

// --- Red cursor ------------------------------------------------------------

// Node is a positioned handle over a green node: the green node plus its
// absolute byte offset within its source file. Handles are cheap copyable
// values; two handles over the same green node are interchangeable. The file
// identity is the empty string for the main source and the resolved include
// path inside a spliced include tree.
type Node struct {
	green  *GreenNode
	offset uint32
	file   string
}

// Root wraps the root of a green tree as a positioned node at offset 0.
func Root(green *GreenNode) Node {
	return Node{green: green}
}

// File identifies the source file this node's span indexes into: empty for
// the main source, otherwise a resolved include path.
func (n Node) File() string {
	return n.file
}

// InnerTree returns the spliced parse of a NodeInclude, positioned at offset
// zero of the included file, and the resolved path. ok is false for any
// other node kind or for an include whose file could not be resolved.
func (n Node) InnerTree() (Node, string, bool) {
	if n.green == nil || n.green.kind != NodeInclude || n.green.inner == nil {
		return Node{}, "", false
	}
	return Node{green: n.green.inner, file: n.green.aux}, n.green.aux, true
}

// IsNil reports whether the handle wraps no node.
func (n Node) IsNil() bool {
	return n.green == nil
}

// Kind returns the kind of the underlying green node.
func (n Node) Kind() NodeKind {
	if n.green == nil {
		return NodeError
	}
	return n.green.Kind()
}

// Green returns the underlying green node.
func (n Node) Green() *GreenNode {
	return n.green
}

// Span returns the node's absolute byte span.
func (n Node) Span() diag.Span {
	return diag.S(n.offset, n.offset+n.green.Length())
}

// Text reconstructs the source text below this node.
func (n Node) Text() string {
	if n.green == nil {
		return ""
	}
	return n.green.Text()
}

// Element is a positioned child: either a Node or a positioned token.
type Element struct {
	node  Node
	token Token
	text  string
	isTok bool
}

// IsToken reports whether the element is a leaf token.
func (e Element) IsToken() bool {
	return e.isTok
}

// AsNode returns the element as a positioned node handle. The handle is nil
// for token elements.
func (e Element) AsNode() Node {
	return e.node
}

// Token returns the positioned token of a leaf element.
func (e Element) Token() Token {
	return e.token
}

// TokenText returns the text of a leaf element.
func (e Element) TokenText() string {
	return e.text
}

// Children iterates the node's children in source order, each positioned at
// its absolute offset.
func (n Node) Children() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		if n.green == nil {
			return
		}
		offset := n.offset
		for _, c := range n.green.children {
			var el Element
			if c.node != nil {
				el = Element{node: Node{green: c.node, offset: offset, file: n.file}}
			} else {
				el = Element{
					isTok: true,
					text:  c.token.Text,
					token: Token{
						Kind: c.token.Kind,
						Span: diag.S(offset, offset+uint32(len(c.token.Text))),
					},
				}
			}
			if !yield(el) {
				return
			}
			offset += c.length()
		}
	}
}

// ChildNodes iterates only the child nodes, skipping tokens.
func (n Node) ChildNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for el := range n.Children() {
			if el.IsToken() {
				continue
			}
			if !yield(el.AsNode()) {
				return
			}
		}
	}
}

// FirstChildOfKind returns the first child node of the given kind.
func (n Node) FirstChildOfKind(kind NodeKind) (Node, bool) {
	for child := range n.ChildNodes() {
		if child.Kind() == kind {
			return child, true
		}
	}
	return Node{}, false
}

// FirstTokenOfKind returns the first child token of the given kind together
// with its text.
func (n Node) FirstTokenOfKind(kind TokenKind) (Token, string, bool) {
	for el := range n.Children() {
		if el.IsToken() && el.Token().Kind == kind {
			return el.Token(), el.TokenText(), true
		}
	}
	return Token{}, "", false
}
