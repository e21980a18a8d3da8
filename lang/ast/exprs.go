package ast

import "github.com/oscarlin/rplus/lang/token"

// LiteralKind classifies a Literal expression's value.
type LiteralKind uint8

const (
	LitNumber LiteralKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitNull
)

// Literal represents a literal number, float, string, char, bool or null.
type Literal struct {
	Start token.Pos
	Kind  LiteralKind
	Raw   string // uninterpreted source text
	// Value holds the decoded literal: int64 for LitNumber, float64 for
	// LitFloat, string for LitString/LitChar, bool for LitBool, nil for
	// LitNull.
	Value interface{}
}

func (n *Literal) Pos() token.Pos { return n.Start }
func (n *Literal) End() token.Pos { return n.Start + token.Pos(len(n.Raw)) }
func (n *Literal) Walk(Visitor)   {}
func (n *Literal) exprNode()      {}

// Identifier represents a bare name reference.
type Identifier struct {
	Start token.Pos
	Name  string
}

func (n *Identifier) Pos() token.Pos { return n.Start }
func (n *Identifier) End() token.Pos { return n.Start + token.Pos(len(n.Name)) }
func (n *Identifier) Walk(Visitor)   {}
func (n *Identifier) exprNode()      {}

// This represents the `this` expression.
type This struct {
	Start token.Pos
}

func (n *This) Pos() token.Pos { return n.Start }
func (n *This) End() token.Pos { return n.Start + 4 }
func (n *This) Walk(Visitor)   {}
func (n *This) exprNode()      {}

// Binary represents a binary operator expression, e.g. x + y.
type Binary struct {
	Left  Expr
	Op    token.Token
	OpPos token.Pos
	Right Expr
}

func (n *Binary) Pos() token.Pos { return n.Left.Pos() }
func (n *Binary) End() token.Pos { return n.Right.End() }
func (n *Binary) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }
func (n *Binary) exprNode()      {}

// Unary represents a unary operator expression. Prefix is always true for
// R+ (no postfix ++/-- in the parsed grammar), kept as a field to match the
// spec's data model.
type Unary struct {
	Op      token.Token
	OpPos   token.Pos
	Operand Expr
	Prefix  bool
}

func (n *Unary) Pos() token.Pos {
	if n.Prefix {
		return n.OpPos
	}
	return n.Operand.Pos()
}
func (n *Unary) End() token.Pos {
	if n.Prefix {
		return n.Operand.End()
	}
	return n.OpPos + 1
}
func (n *Unary) Walk(v Visitor) { Walk(v, n.Operand) }
func (n *Unary) exprNode()      {}

// Call represents a function call, e.g. f(x, y).
type Call struct {
	Callee Expr
	Lparen token.Pos
	Args   []Expr
	Rparen token.Pos
}

func (n *Call) Pos() token.Pos { return n.Callee.Pos() }
func (n *Call) End() token.Pos { return n.Rparen + 1 }
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *Call) exprNode() {}

// Index represents an array index expression, e.g. a[i].
type Index struct {
	Array  Expr
	Lbrack token.Pos
	Idx    Expr
	Rbrack token.Pos
}

func (n *Index) Pos() token.Pos { return n.Array.Pos() }
func (n *Index) End() token.Pos { return n.Rbrack + 1 }
func (n *Index) Walk(v Visitor) { Walk(v, n.Array); Walk(v, n.Idx) }
func (n *Index) exprNode()      {}

// Member represents a dotted field/method access, e.g. a.b.
type Member struct {
	Object   Expr
	Dot      token.Pos
	Name     string
	NamePos  token.Pos
	Computed bool // true if parsed from a[b]-style syntax rather than a.b
}

func (n *Member) Pos() token.Pos { return n.Object.Pos() }
func (n *Member) End() token.Pos { return n.NamePos + token.Pos(len(n.Name)) }
func (n *Member) Walk(v Visitor) { Walk(v, n.Object) }
func (n *Member) exprNode()      {}

// Assign represents an assignment expression, e.g. x = y, or x += y before
// compound-assignment desugaring (the parser always desugars, so CompoundOp
// is kept only to document provenance -- see SPEC_FULL.md open question 1).
type Assign struct {
	Target     Expr // Identifier, Index or Member
	Eq         token.Pos
	Value      Expr
	CompoundOp token.Token // EQUAL if this was a plain '=', else the compound operator (e.g. PLUSEQ)
}

func (n *Assign) Pos() token.Pos { return n.Target.Pos() }
func (n *Assign) End() token.Pos { return n.Value.End() }
func (n *Assign) Walk(v Visitor) { Walk(v, n.Target); Walk(v, n.Value) }
func (n *Assign) exprNode()      {}

// Conditional represents a ternary expression, cond ? then : else.
type Conditional struct {
	Cond token.Pos // unused, kept for symmetry; Cond expr's own Pos is authoritative
	Test Expr
	Then Expr
	Else Expr
}

func (n *Conditional) Pos() token.Pos { return n.Test.Pos() }
func (n *Conditional) End() token.Pos { return n.Else.End() }
func (n *Conditional) Walk(v Visitor) { Walk(v, n.Test); Walk(v, n.Then); Walk(v, n.Else) }
func (n *Conditional) exprNode()      {}

// ArrayLit represents an array literal, e.g. [1, 2, 3].
type ArrayLit struct {
	Lbrack   token.Pos
	Elements []Expr
	Rbrack   token.Pos
}

func (n *ArrayLit) Pos() token.Pos { return n.Lbrack }
func (n *ArrayLit) End() token.Pos { return n.Rbrack + 1 }
func (n *ArrayLit) Walk(v Visitor) {
	for _, e := range n.Elements {
		Walk(v, e)
	}
}
func (n *ArrayLit) exprNode() {}

// ObjectProp is a single key/value pair of an ObjectLit.
type ObjectProp struct {
	Key      string
	KeyPos   token.Pos
	Value    Expr
}

// ObjectLit represents an object/map literal, e.g. { a: 1, b: 2 }.
type ObjectLit struct {
	Lbrace token.Pos
	Props  []ObjectProp
	Rbrace token.Pos
}

func (n *ObjectLit) Pos() token.Pos { return n.Lbrace }
func (n *ObjectLit) End() token.Pos { return n.Rbrace + 1 }
func (n *ObjectLit) Walk(v Visitor) {
	for _, p := range n.Props {
		Walk(v, p.Value)
	}
}
func (n *ObjectLit) exprNode() {}

// Lambda represents a function expression (anonymous function literal).
type Lambda struct {
	Fn     token.Pos
	Params []*Identifier
	Body   *Block
}

func (n *Lambda) Pos() token.Pos { return n.Fn }
func (n *Lambda) End() token.Pos { return n.Body.End() }
func (n *Lambda) Walk(v Visitor) {
	for _, p := range n.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *Lambda) exprNode() {}

// New represents a `new Ctor(args)` expression.
type New struct {
	NewPos token.Pos
	Ctor   Expr
	Args   []Expr
	Rparen token.Pos
}

func (n *New) Pos() token.Pos { return n.NewPos }
func (n *New) End() token.Pos { return n.Rparen + 1 }
func (n *New) Walk(v Visitor) {
	Walk(v, n.Ctor)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *New) exprNode() {}
