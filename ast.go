package twine

// NodeKind tags an AST node shape. The core never parses source text: a
// collaborator lexer/parser builds these nodes directly.
type NodeKind int

const (
	NodeAtom NodeKind = iota
	NodeList
	NodeQuote
)

// Node is an AST node: a literal or symbol Atom, a combination List, or a
// Quote wrapping a single child. Every node carries the SourcePosition the
// producing parser attached to it, used only for error reporting.
type Node struct {
	Kind     NodeKind
	Atom     Value
	Children []*Node
	Quoted   *Node
	Position *SourcePosition
}

func AtomNode(v Value, pos *SourcePosition) *Node {
	return &Node{Kind: NodeAtom, Atom: v, Position: pos}
}

func ListNode(children []*Node, pos *SourcePosition) *Node {
	return &Node{Kind: NodeList, Children: children, Position: pos}
}

func QuoteNode(child *Node, pos *SourcePosition) *Node {
	return &Node{Kind: NodeQuote, Quoted: child, Position: pos}
}

var quoteSymbol = Intern("quote")

// nodeToValue converts an AST node to the Value it denotes when quoted: a
// symbol atom becomes that Symbol, a literal atom is returned as-is, a list
// node becomes a list Value built recursively from its children, and a
// nested Quote node becomes the literal two-element list (quote <inner>),
// mirroring how a reader-level quote shorthand desugars in source text.
func nodeToValue(n *Node) Value {
	switch n.Kind {
	case NodeAtom:
		return n.Atom
	case NodeList:
		items := make([]Value, len(n.Children))
		for i, c := range n.Children {
			items[i] = nodeToValue(c)
		}
		return List(items...)
	case NodeQuote:
		return List(SymbolValue(quoteSymbol), nodeToValue(n.Quoted))
	default:
		return Nil
	}
}
