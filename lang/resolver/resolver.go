package resolver

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"

	"github.com/oscarlin/rplus/lang/ast"
)

// Result is the output of a successful Resolve: a side table the compiler
// consults while lowering, rather than fields grafted onto the AST itself.
type Result struct {
	// Idents maps every identifier *use* (not just declarations) to its
	// resolved binding.
	Idents map[*ast.Identifier]*Binding

	// Globals lists module-level bindings in declaration order; a binding's
	// Slot is its index into this slice.
	Globals []*Binding

	// Functions maps each function-shaped node (FunctionDecl, Lambda, or the
	// Program itself for top-level code) to its resolved local scope.
	Functions map[ast.Node]*Function
}

// Resolve classifies every identifier in prog as Global or Local and
// assigns slots, the scope-kind split that §4.3's opcode table presupposes
// (see the lang/resolver package doc).
func Resolve(fset *gotoken.FileSet, prog *ast.Program) (*Result, error) {
	r := &resolver{
		fset: fset,
		result: &Result{
			Idents:    make(map[*ast.Identifier]*Binding),
			Functions: make(map[ast.Node]*Function),
		},
	}

	top := &Function{Name: "<module>"}
	r.result.Functions[prog] = top
	r.globals = make(map[string]*Binding)
	r.fnStack = []*Function{top}
	r.lambdaNamer = &lambdaNamer{}

	for _, stmt := range prog.Body {
		r.hoistStmt(stmt, true)
	}
	for _, stmt := range prog.Body {
		r.resolveStmt(stmt, true)
	}

	if len(r.errs) > 0 {
		r.errs.Sort()
		return nil, r.errs.Err()
	}
	return r.result, nil
}

type resolver struct {
	fset    *gotoken.FileSet
	result  *Result
	globals map[string]*Binding
	fnStack []*Function

	lambdaNamer *lambdaNamer
	errs        scanner.ErrorList
}

func (r *resolver) errorf(n ast.Node, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.errs.Add(r.fset.Position(n.Pos()), msg)
}

func (r *resolver) top() *Function { return r.fnStack[len(r.fnStack)-1] }

// declareGlobal registers name as a module-level binding if not already
// present, returning the (possibly pre-existing) binding.
func (r *resolver) declareGlobal(name string) *Binding {
	if b, ok := r.globals[name]; ok {
		return b
	}
	b := &Binding{Scope: Global, Slot: len(r.result.Globals), Name: name}
	r.globals[name] = b
	r.result.Globals = append(r.result.Globals, b)
	return b
}

// hoistStmt pre-declares names introduced by function and class declarations
// so that mutual references between top-level/sibling functions resolve
// regardless of source order, mirroring how the compiler looks up function
// indices by name (§4.3's Call lowering rule).
func (r *resolver) hoistStmt(stmt ast.Stmt, atModuleLevel bool) {
	switch n := stmt.(type) {
	case *ast.FunctionDecl:
		if atModuleLevel {
			r.declareGlobal(n.Name.Name)
		} else {
			r.top().Declare(n.Name.Name)
		}
	case *ast.ClassDecl:
		if atModuleLevel {
			r.declareGlobal(n.Name.Name)
		} else {
			r.top().Declare(n.Name.Name)
		}
	}
}

// resolveStmt walks a statement, declaring var/let/const bindings as it goes
// (R+ has no block scoping: every declaration in a function body, however
// deeply nested in if/while/for blocks, lives in that function's single flat
// local scope) and resolving every identifier reference it finds.
func (r *resolver) resolveStmt(stmt ast.Stmt, atModuleLevel bool) {
	switch n := stmt.(type) {
	case *ast.Block:
		for _, s := range n.Stmts {
			r.resolveStmt(s, atModuleLevel)
		}
	case *ast.VarDecl:
		for _, d := range n.Declarators {
			if d.Init != nil {
				r.resolveExpr(d.Init, atModuleLevel)
			}
			if atModuleLevel {
				r.bindIdent(d.Name, r.declareGlobal(d.Name.Name))
			} else {
				r.bindIdent(d.Name, r.top().Declare(d.Name.Name))
			}
		}
	case *ast.ExprStmt:
		r.resolveExpr(n.X, atModuleLevel)
	case *ast.If:
		r.resolveExpr(n.Cond, atModuleLevel)
		r.resolveStmt(n.Then, atModuleLevel)
		if n.Else != nil {
			r.resolveStmt(n.Else, atModuleLevel)
		}
	case *ast.While:
		r.resolveExpr(n.Cond, atModuleLevel)
		r.resolveStmt(n.Body, atModuleLevel)
	case *ast.DoWhile:
		r.resolveStmt(n.Body, atModuleLevel)
		r.resolveExpr(n.Cond, atModuleLevel)
	case *ast.For:
		if n.Init != nil {
			r.resolveStmt(n.Init, atModuleLevel)
		}
		if n.Cond != nil {
			r.resolveExpr(n.Cond, atModuleLevel)
		}
		if n.Update != nil {
			r.resolveExpr(n.Update, atModuleLevel)
		}
		r.resolveStmt(n.Body, atModuleLevel)
	case *ast.ForIn:
		r.resolveExpr(n.Object, atModuleLevel)
		r.declareLoopVar(n.Name, atModuleLevel)
		r.resolveStmt(n.Body, atModuleLevel)
	case *ast.ForOf:
		r.resolveExpr(n.Arr, atModuleLevel)
		r.declareLoopVar(n.Name, atModuleLevel)
		r.resolveStmt(n.Body, atModuleLevel)
	case *ast.Switch:
		r.resolveExpr(n.Discriminant, atModuleLevel)
		for _, c := range n.Cases {
			if c.Test != nil {
				r.resolveExpr(c.Test, atModuleLevel)
			}
			for _, s := range c.Stmts {
				r.resolveStmt(s, atModuleLevel)
			}
		}
	case *ast.Break, *ast.Continue, *ast.Empty, *ast.Debugger:
		// no identifiers
	case *ast.Return:
		if n.Arg != nil {
			r.resolveExpr(n.Arg, atModuleLevel)
		}
	case *ast.Throw:
		r.resolveExpr(n.Arg, atModuleLevel)
	case *ast.Try:
		r.resolveStmt(n.Block, atModuleLevel)
		if n.Catch != nil {
			if n.Catch.Param != nil {
				if atModuleLevel {
					r.bindIdent(n.Catch.Param, r.declareGlobal(n.Catch.Param.Name))
				} else {
					r.bindIdent(n.Catch.Param, r.top().Declare(n.Catch.Param.Name))
				}
			}
			r.resolveStmt(n.Catch.Body, atModuleLevel)
		}
		if n.Finally != nil {
			r.resolveStmt(n.Finally, atModuleLevel)
		}
	case *ast.FunctionDecl:
		// name was already hoisted; resolve the function body in its own scope.
		r.resolveFunction(n, n.Name.Name, n.Params, n.Body)
	case *ast.ClassDecl:
		r.resolveClassDecl(n)
	case *ast.Labeled:
		r.resolveStmt(n.Stmt, atModuleLevel)
	default:
		r.errorf(stmt, "resolver: unhandled statement %T", stmt)
	}
}

func (r *resolver) declareLoopVar(name *ast.Identifier, atModuleLevel bool) {
	if atModuleLevel {
		r.bindIdent(name, r.declareGlobal(name.Name))
	} else {
		r.bindIdent(name, r.top().Declare(name.Name))
	}
}

func (r *resolver) resolveClassDecl(n *ast.ClassDecl) {
	if n.Super != nil {
		r.resolveIdentRef(n.Super)
	}
	for _, f := range n.Fields {
		if f.Init != nil {
			r.resolveExpr(f.Init, false)
		}
	}
	for _, m := range n.Methods {
		r.resolveFunction(m, n.Name.Name+"."+m.Name.Name, m.Params, m.Body)
	}
}

// resolveFunction pushes a fresh Function scope seeded with params, resolves
// the body, and records the Function under key in r.result.Functions.
func (r *resolver) resolveFunction(key ast.Node, name string, params []*ast.Identifier, body *ast.Block) {
	fn := &Function{Name: name}
	for _, p := range params {
		b := fn.Declare(p.Name)
		r.bindIdent(p, b)
	}
	r.result.Functions[key] = fn
	r.fnStack = append(r.fnStack, fn)

	for _, s := range body.Stmts {
		r.hoistStmt(s, false)
	}
	for _, s := range body.Stmts {
		r.resolveStmt(s, false)
	}

	r.fnStack = r.fnStack[:len(r.fnStack)-1]
}

func (r *resolver) resolveExpr(expr ast.Expr, atModuleLevel bool) {
	switch n := expr.(type) {
	case *ast.Literal, *ast.This:
		// no identifiers
	case *ast.Identifier:
		r.resolveIdentRef(n)
	case *ast.Binary:
		r.resolveExpr(n.Left, atModuleLevel)
		r.resolveExpr(n.Right, atModuleLevel)
	case *ast.Unary:
		r.resolveExpr(n.Operand, atModuleLevel)
	case *ast.Call:
		r.resolveExpr(n.Callee, atModuleLevel)
		for _, a := range n.Args {
			r.resolveExpr(a, atModuleLevel)
		}
	case *ast.Index:
		r.resolveExpr(n.Array, atModuleLevel)
		r.resolveExpr(n.Idx, atModuleLevel)
	case *ast.Member:
		r.resolveExpr(n.Object, atModuleLevel)
	case *ast.Assign:
		r.resolveExpr(n.Value, atModuleLevel)
		r.resolveExpr(n.Target, atModuleLevel)
	case *ast.Conditional:
		r.resolveExpr(n.Test, atModuleLevel)
		r.resolveExpr(n.Then, atModuleLevel)
		r.resolveExpr(n.Else, atModuleLevel)
	case *ast.ArrayLit:
		for _, e := range n.Elements {
			r.resolveExpr(e, atModuleLevel)
		}
	case *ast.ObjectLit:
		for _, p := range n.Props {
			r.resolveExpr(p.Value, atModuleLevel)
		}
	case *ast.Lambda:
		name := r.lambdaNamer.next()
		r.resolveFunction(n, name, n.Params, n.Body)
	case *ast.New:
		r.resolveExpr(n.Ctor, atModuleLevel)
		for _, a := range n.Args {
			r.resolveExpr(a, atModuleLevel)
		}
	default:
		r.errorf(expr, "resolver: unhandled expression %T", expr)
	}
}

// resolveIdentRef looks up name first in the current function's locals, then
// falls back to the global table, recording the result for use. Unlike the
// teacher's resolver, enclosing function scopes between the two are never
// consulted: R+ functions do not close over locals (SPEC_FULL.md).
func (r *resolver) resolveIdentRef(id *ast.Identifier) {
	if b := r.top().Lookup(id.Name); b != nil {
		r.bindIdent(id, b)
		return
	}
	if b, ok := r.globals[id.Name]; ok {
		r.bindIdent(id, b)
		return
	}
	r.errorf(id, "Undefined variable: %s", id.Name)
}

func (r *resolver) bindIdent(id *ast.Identifier, b *Binding) {
	r.result.Idents[id] = b
}
