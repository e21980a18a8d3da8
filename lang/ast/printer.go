package ast

import (
	"fmt"
	"strings"
)

// Print renders a canonical textual form of the program, for the round-trip
// testable property in spec §8 (parsing Print's output reproduces a
// structurally equivalent AST, ignoring position information). The round
// trip does not hold for every program: lambda bodies are printed as
// "{ ... }", class, switch, try, for-in, for-of and labeled statements are
// printed as "/* unprinted ... */" comments, and conditional and assignment
// expressions nested inside other expressions get no parentheses.
func Print(p *Program) string {
	var sb strings.Builder
	for _, s := range p.Body {
		printStmt(&sb, s, 0)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

func printBlock(sb *strings.Builder, b *Block, depth int) {
	sb.WriteString("{\n")
	for _, s := range b.Stmts {
		printStmt(sb, s, depth+1)
	}
	indent(sb, depth)
	sb.WriteString("}")
}

func printStmt(sb *strings.Builder, s Stmt, depth int) {
	indent(sb, depth)
	switch n := s.(type) {
	case *Block:
		printBlock(sb, n, depth)
		sb.WriteString("\n")
	case *ExprStmt:
		sb.WriteString(printExpr(n.X))
		sb.WriteString(";\n")
	case *VarDecl:
		sb.WriteString(declKeyword(n.Kind))
		sb.WriteString(" ")
		for i, d := range n.Declarators {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.Name.Name)
			if d.Init != nil {
				sb.WriteString(" = ")
				sb.WriteString(printExpr(d.Init))
			}
		}
		sb.WriteString(";\n")
	case *If:
		sb.WriteString("if (")
		sb.WriteString(printExpr(n.Cond))
		sb.WriteString(") ")
		printBlock(sb, n.Then, depth)
		if n.Else != nil {
			sb.WriteString(" else ")
			switch e := n.Else.(type) {
			case *Block:
				printBlock(sb, e, depth)
			case *If:
				// print inline, without its own indentation
				var tmp strings.Builder
				printStmt(&tmp, e, 0)
				sb.WriteString(strings.TrimPrefix(tmp.String(), ""))
			}
		}
		sb.WriteString("\n")
	case *While:
		sb.WriteString("while (")
		sb.WriteString(printExpr(n.Cond))
		sb.WriteString(") ")
		printBlock(sb, n.Body, depth)
		sb.WriteString("\n")
	case *DoWhile:
		sb.WriteString("do ")
		printBlock(sb, n.Body, depth)
		sb.WriteString(" while (")
		sb.WriteString(printExpr(n.Cond))
		sb.WriteString(");\n")
	case *For:
		sb.WriteString("for (")
		if n.Init != nil {
			var tmp strings.Builder
			printStmt(&tmp, n.Init, 0)
			sb.WriteString(strings.TrimSuffix(strings.TrimSuffix(tmp.String(), "\n"), ";"))
		}
		sb.WriteString("; ")
		if n.Cond != nil {
			sb.WriteString(printExpr(n.Cond))
		}
		sb.WriteString("; ")
		if n.Update != nil {
			sb.WriteString(printExpr(n.Update))
		}
		sb.WriteString(") ")
		printBlock(sb, n.Body, depth)
		sb.WriteString("\n")
	case *Break:
		sb.WriteString("break")
		if n.Label != "" {
			sb.WriteString(" " + n.Label)
		}
		sb.WriteString(";\n")
	case *Continue:
		sb.WriteString("continue")
		if n.Label != "" {
			sb.WriteString(" " + n.Label)
		}
		sb.WriteString(";\n")
	case *Return:
		sb.WriteString("return")
		if n.Arg != nil {
			sb.WriteString(" " + printExpr(n.Arg))
		}
		sb.WriteString(";\n")
	case *Throw:
		sb.WriteString("throw " + printExpr(n.Arg) + ";\n")
	case *FunctionDecl:
		sb.WriteString("function ")
		sb.WriteString(n.Name.Name)
		sb.WriteString("(")
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
		}
		sb.WriteString(") ")
		printBlock(sb, n.Body, depth)
		sb.WriteString("\n")
	case *Empty:
		sb.WriteString(";\n")
	case *Debugger:
		sb.WriteString("debugger;\n")
	default:
		fmt.Fprintf(sb, "/* unprinted %T */\n", s)
	}
}

func declKeyword(k DeclKind) string {
	switch k {
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	default:
		return "var"
	}
}

func printExpr(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		if n.Kind == LitString {
			return fmt.Sprintf("%q", n.Value)
		}
		return n.Raw
	case *Identifier:
		return n.Name
	case *This:
		return "this"
	case *Binary:
		return "(" + printExpr(n.Left) + " " + n.Op.String() + " " + printExpr(n.Right) + ")"
	case *Unary:
		if n.Prefix {
			return n.Op.String() + printExpr(n.Operand)
		}
		return printExpr(n.Operand) + n.Op.String()
	case *Call:
		s := printExpr(n.Callee) + "("
		for i, a := range n.Args {
			if i > 0 {
				s += ", "
			}
			s += printExpr(a)
		}
		return s + ")"
	case *Index:
		return printExpr(n.Array) + "[" + printExpr(n.Idx) + "]"
	case *Member:
		return printExpr(n.Object) + "." + n.Name
	case *Assign:
		return printExpr(n.Target) + " = " + printExpr(n.Value)
	case *Conditional:
		return printExpr(n.Test) + " ? " + printExpr(n.Then) + " : " + printExpr(n.Else)
	case *ArrayLit:
		s := "["
		for i, el := range n.Elements {
			if i > 0 {
				s += ", "
			}
			s += printExpr(el)
		}
		return s + "]"
	case *ObjectLit:
		s := "{"
		for i, p := range n.Props {
			if i > 0 {
				s += ", "
			}
			s += p.Key + ": " + printExpr(p.Value)
		}
		return s + "}"
	case *Lambda:
		s := "function("
		for i, p := range n.Params {
			if i > 0 {
				s += ", "
			}
			s += p.Name
		}
		return s + ") { ... }"
	case *New:
		s := "new " + printExpr(n.Ctor) + "("
		for i, a := range n.Args {
			if i > 0 {
				s += ", "
			}
			s += printExpr(a)
		}
		return s + ")"
	default:
		return fmt.Sprintf("/* unprinted %T */", e)
	}
}
