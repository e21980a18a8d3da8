package ast

// Visitor is implemented by callers of Walk. Visit is called for every node
// before its children are walked; if it returns a non-nil Visitor, that
// visitor continues into the node's children, then Visit(nil) is called
// after the children have been walked.
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses the AST in depth-first order, following go/ast's own
// Walk contract.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	if v = v.Visit(n); v == nil {
		return
	}
	n.Walk(v)
	v.Visit(nil)
}

// inspector adapts a plain function to the Visitor interface, mirroring
// go/ast.Inspect.
type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if f(n) {
		return f
	}
	return nil
}

// Inspect traverses the AST in depth-first order, calling f for each node.
// Walking into a node's children stops when f returns false for that node.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}
