package ast

import "github.com/oscarlin/rplus/lang/token"

// DeclKind classifies a VarDecl's declaring keyword.
type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
)

// Declarator is a single `name = init` (init may be nil) within a VarDecl.
type Declarator struct {
	Name *Identifier
	Init Expr // may be nil
}

// VarDecl represents a var/let/const declaration statement.
type VarDecl struct {
	Start        token.Pos
	Kind         DeclKind
	Declarators  []Declarator
	Semi         token.Pos
}

func (n *VarDecl) Pos() token.Pos { return n.Start }
func (n *VarDecl) End() token.Pos { return n.Semi + 1 }
func (n *VarDecl) Walk(v Visitor) {
	for _, d := range n.Declarators {
		Walk(v, d.Name)
		if d.Init != nil {
			Walk(v, d.Init)
		}
	}
}
func (n *VarDecl) stmtNode()        {}
func (n *VarDecl) BlockEnding() bool { return false }

// ExprStmt represents an expression used as a statement.
type ExprStmt struct {
	X    Expr
	Semi token.Pos
}

func (n *ExprStmt) Pos() token.Pos { return n.X.Pos() }
func (n *ExprStmt) End() token.Pos { return n.Semi + 1 }
func (n *ExprStmt) Walk(v Visitor) { Walk(v, n.X) }
func (n *ExprStmt) stmtNode()        {}
func (n *ExprStmt) BlockEnding() bool { return false }

// If represents an if/else statement.
type If struct {
	IfPos token.Pos
	Cond  Expr
	Then  *Block
	Else  Stmt // *Block, *If (else-if chain), or nil
}

func (n *If) Pos() token.Pos { return n.IfPos }
func (n *If) End() token.Pos {
	if n.Else != nil {
		return n.Else.End()
	}
	return n.Then.End()
}
func (n *If) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *If) stmtNode()        {}
func (n *If) BlockEnding() bool { return false }

// While represents a while loop.
type While struct {
	WhilePos token.Pos
	Cond     Expr
	Body     *Block
}

func (n *While) Pos() token.Pos { return n.WhilePos }
func (n *While) End() token.Pos { return n.Body.End() }
func (n *While) Walk(v Visitor) { Walk(v, n.Cond); Walk(v, n.Body) }
func (n *While) stmtNode()        {}
func (n *While) BlockEnding() bool { return false }

// DoWhile represents a do { ... } while (cond); loop.
type DoWhile struct {
	DoPos token.Pos
	Body  *Block
	Cond  Expr
	Semi  token.Pos
}

func (n *DoWhile) Pos() token.Pos { return n.DoPos }
func (n *DoWhile) End() token.Pos { return n.Semi + 1 }
func (n *DoWhile) Walk(v Visitor) { Walk(v, n.Body); Walk(v, n.Cond) }
func (n *DoWhile) stmtNode()        {}
func (n *DoWhile) BlockEnding() bool { return false }

// For represents a classic three-part for loop. Init/Cond/Update may each be
// nil (an empty `for(;;){}` is legal per §8 and means "no condition
// implies constant true").
type For struct {
	ForPos token.Pos
	Init   Stmt // *VarDecl or *ExprStmt, or nil
	Cond   Expr // nil means "true"
	Update Expr // nil means no update
	Body   *Block
}

func (n *For) Pos() token.Pos { return n.ForPos }
func (n *For) End() token.Pos { return n.Body.End() }
func (n *For) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Update != nil {
		Walk(v, n.Update)
	}
	Walk(v, n.Body)
}
func (n *For) stmtNode()        {}
func (n *For) BlockEnding() bool { return false }

// ForIn represents `for (x in obj) body`, iterating an object's keys.
type ForIn struct {
	ForPos token.Pos
	Name   *Identifier
	Object Expr
	Body   *Block
}

func (n *ForIn) Pos() token.Pos { return n.ForPos }
func (n *ForIn) End() token.Pos { return n.Body.End() }
func (n *ForIn) Walk(v Visitor) { Walk(v, n.Name); Walk(v, n.Object); Walk(v, n.Body) }
func (n *ForIn) stmtNode()        {}
func (n *ForIn) BlockEnding() bool { return false }

// ForOf represents `for (x of arr) body`, iterating an array's elements.
type ForOf struct {
	ForPos token.Pos
	Name   *Identifier
	Arr    Expr
	Await  bool
	Body   *Block
}

func (n *ForOf) Pos() token.Pos { return n.ForPos }
func (n *ForOf) End() token.Pos { return n.Body.End() }
func (n *ForOf) Walk(v Visitor) { Walk(v, n.Name); Walk(v, n.Arr); Walk(v, n.Body) }
func (n *ForOf) stmtNode()        {}
func (n *ForOf) BlockEnding() bool { return false }

// SwitchCase is a single `case expr:` (Test == nil for `default:`) arm.
type SwitchCase struct {
	Test  Expr // nil for default
	Stmts []Stmt
}

// Switch represents a switch statement, lowered by the compiler to an
// if/elif chain (SPEC_FULL.md).
type Switch struct {
	SwitchPos    token.Pos
	Discriminant Expr
	Cases        []SwitchCase
	Rbrace       token.Pos
}

func (n *Switch) Pos() token.Pos { return n.SwitchPos }
func (n *Switch) End() token.Pos { return n.Rbrace + 1 }
func (n *Switch) Walk(v Visitor) {
	Walk(v, n.Discriminant)
	for _, c := range n.Cases {
		if c.Test != nil {
			Walk(v, c.Test)
		}
		for _, s := range c.Stmts {
			Walk(v, s)
		}
	}
}
func (n *Switch) stmtNode()        {}
func (n *Switch) BlockEnding() bool { return false }

// Break represents a break statement, with an optional label.
type Break struct {
	Start token.Pos
	Label string
	Semi  token.Pos
}

func (n *Break) Pos() token.Pos { return n.Start }
func (n *Break) End() token.Pos { return n.Semi + 1 }
func (n *Break) Walk(Visitor)    {}
func (n *Break) stmtNode()        {}
func (n *Break) BlockEnding() bool { return true }

// Continue represents a continue statement, with an optional label.
type Continue struct {
	Start token.Pos
	Label string
	Semi  token.Pos
}

func (n *Continue) Pos() token.Pos { return n.Start }
func (n *Continue) End() token.Pos { return n.Semi + 1 }
func (n *Continue) Walk(Visitor)    {}
func (n *Continue) stmtNode()        {}
func (n *Continue) BlockEnding() bool { return true }

// Return represents a return statement. Arg is nil for a bare `return;`.
type Return struct {
	Start token.Pos
	Arg   Expr
	Semi  token.Pos
}

func (n *Return) Pos() token.Pos { return n.Start }
func (n *Return) End() token.Pos { return n.Semi + 1 }
func (n *Return) Walk(v Visitor) {
	if n.Arg != nil {
		Walk(v, n.Arg)
	}
}
func (n *Return) stmtNode()        {}
func (n *Return) BlockEnding() bool { return true }

// Throw represents a throw statement.
type Throw struct {
	Start token.Pos
	Arg   Expr
	Semi  token.Pos
}

func (n *Throw) Pos() token.Pos { return n.Start }
func (n *Throw) End() token.Pos { return n.Semi + 1 }
func (n *Throw) Walk(v Visitor) { Walk(v, n.Arg) }
func (n *Throw) stmtNode()        {}
func (n *Throw) BlockEnding() bool { return true }

// Catch is the catch clause of a Try statement.
type Catch struct {
	Param *Identifier // may be nil (catch with no bound name)
	Body  *Block
}

// Try represents a try/catch/finally statement.
type Try struct {
	TryPos  token.Pos
	Block   *Block
	Catch   *Catch // nil if no catch clause
	Finally *Block // nil if no finally clause
}

func (n *Try) Pos() token.Pos { return n.TryPos }
func (n *Try) End() token.Pos {
	if n.Finally != nil {
		return n.Finally.End()
	}
	if n.Catch != nil {
		return n.Catch.Body.End()
	}
	return n.Block.End()
}
func (n *Try) Walk(v Visitor) {
	Walk(v, n.Block)
	if n.Catch != nil {
		if n.Catch.Param != nil {
			Walk(v, n.Catch.Param)
		}
		Walk(v, n.Catch.Body)
	}
	if n.Finally != nil {
		Walk(v, n.Finally)
	}
}
func (n *Try) stmtNode()        {}
func (n *Try) BlockEnding() bool { return false }

// FunctionDecl represents a named function declaration.
type FunctionDecl struct {
	FnPos  token.Pos
	Name   *Identifier
	Params []*Identifier
	Body   *Block
}

func (n *FunctionDecl) Pos() token.Pos { return n.FnPos }
func (n *FunctionDecl) End() token.Pos { return n.Body.End() }
func (n *FunctionDecl) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, p := range n.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FunctionDecl) stmtNode()        {}
func (n *FunctionDecl) BlockEnding() bool { return false }

// ClassDecl represents a class declaration, lowered by the compiler to a
// constructor that returns the field values as a positional Array; there is
// no prototype chain.
type ClassDecl struct {
	ClassPos token.Pos
	Name     *Identifier
	Super    *Identifier // nil if no `extends`
	Fields   []Declarator
	Methods  []*FunctionDecl
	Rbrace   token.Pos
}

func (n *ClassDecl) Pos() token.Pos { return n.ClassPos }
func (n *ClassDecl) End() token.Pos { return n.Rbrace + 1 }
func (n *ClassDecl) Walk(v Visitor) {
	Walk(v, n.Name)
	if n.Super != nil {
		Walk(v, n.Super)
	}
	for _, f := range n.Fields {
		Walk(v, f.Name)
		if f.Init != nil {
			Walk(v, f.Init)
		}
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
}
func (n *ClassDecl) stmtNode()        {}
func (n *ClassDecl) BlockEnding() bool { return false }

// Labeled represents a labeled statement, `label: stmt`.
type Labeled struct {
	Label    string
	LabelPos token.Pos
	Stmt     Stmt
}

func (n *Labeled) Pos() token.Pos { return n.LabelPos }
func (n *Labeled) End() token.Pos { return n.Stmt.End() }
func (n *Labeled) Walk(v Visitor) { Walk(v, n.Stmt) }
func (n *Labeled) stmtNode()        {}
func (n *Labeled) BlockEnding() bool { return false }

// Empty represents a bare `;` statement.
type Empty struct {
	Semi token.Pos
}

func (n *Empty) Pos() token.Pos { return n.Semi }
func (n *Empty) End() token.Pos { return n.Semi + 1 }
func (n *Empty) Walk(Visitor)    {}
func (n *Empty) stmtNode()        {}
func (n *Empty) BlockEnding() bool { return false }

// Debugger represents a `debugger;` statement, compiled to a no-op. The
// parser does not produce it: `debugger` is scanned as an ordinary
// identifier.
type Debugger struct {
	Start token.Pos
	Semi  token.Pos
}

func (n *Debugger) Pos() token.Pos { return n.Start }
func (n *Debugger) End() token.Pos { return n.Semi + 1 }
func (n *Debugger) Walk(Visitor)    {}
func (n *Debugger) stmtNode()        {}
func (n *Debugger) BlockEnding() bool { return false }
