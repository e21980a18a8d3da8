// Package ast defines the abstract syntax tree produced by the parser: a
// tree of owned nodes with no back-pointers (spec §3). Every child is owned
// by one parent, except that the parser desugars a compound assignment
// `x op= y` to `x = x op y` by reusing the target node as the Binary's left
// operand, so that node has two parents. Every node carries its
// source (line, column) through a token.Pos resolved against the
// go/token.FileSet the scanner produced.
package ast

import "github.com/oscarlin/rplus/lang/token"

// Node is implemented by every AST node.
type Node interface {
	// Pos returns the position of the node's first token.
	Pos() token.Pos
	// End returns the position just past the node's last token.
	End() token.Pos
	// Walk visits the node's direct children, in source order.
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
	// BlockEnding reports whether this kind of statement may only appear as
	// the last statement of a block (return, break, continue, throw).
	BlockEnding() bool
}

// Program is the root of the AST, corresponding to a single compiled file.
type Program struct {
	Name string // filename, possibly empty
	Body []Stmt
	EOF  token.Pos
}

func (p *Program) Pos() token.Pos {
	if len(p.Body) > 0 {
		return p.Body[0].Pos()
	}
	return p.EOF
}
func (p *Program) End() token.Pos { return p.EOF }
func (p *Program) Walk(v Visitor) {
	for _, s := range p.Body {
		Walk(v, s)
	}
}

// Block represents a brace-delimited sequence of statements.
type Block struct {
	Lbrace token.Pos
	Stmts  []Stmt
	Rbrace token.Pos
}

func (b *Block) Pos() token.Pos { return b.Lbrace }
func (b *Block) End() token.Pos { return b.Rbrace + 1 }
func (b *Block) Walk(v Visitor) {
	for _, s := range b.Stmts {
		Walk(v, s)
	}
}
func (b *Block) stmtNode()        {}
func (b *Block) BlockEnding() bool { return false }

// IsAssignable reports whether e may appear on the left-hand side of an
// assignment: an identifier, an index expression or a member access.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *Identifier, *Index, *Member:
		return true
	default:
		return false
	}
}
