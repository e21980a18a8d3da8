// Package compiler lowers a parsed and resolved AST to the bytecode consumed
// by lang/vm's stack and register machines (§4.3), and provides a textual
// pseudo-assembly rendering of the result (asm.go, §6's .rpx format).
package compiler

import (
	"fmt"

	"github.com/oscarlin/rplus/lang/ast"
	"github.com/oscarlin/rplus/lang/resolver"
	"github.com/oscarlin/rplus/lang/types"
)

// Compile lowers prog (already successfully resolved via res) to a
// BytecodeModule. It aborts on the first error -- undefined symbol, invalid
// operator or unresolved label. Error messages and Instruction.Line carry
// the AST node's raw token.Pos offset (see nodeLine), not a 1-based source
// line. Register overflow is detected later, by LowerToRegisters.
func Compile(filename string, prog *ast.Program, res *resolver.Result) (*BytecodeModule, error) {
	c := &compiling{
		mod: NewModule(),
		res: res,
	}
	c.mod.NumGlobals = len(res.Globals)
	for _, b := range res.Globals {
		c.mod.AddGlobal(b.Name, b.Slot)
	}

	for _, s := range prog.Body {
		predeclare(c, s)
	}

	topFn := res.Functions[prog]
	fc := &funcCompiler{c: c, fn: &Function{Name: "<module>", NumLocals: len(topFn.Locals)}, labels: make(map[int]int)}
	for _, s := range prog.Body {
		if err := fc.stmt(s); err != nil {
			return nil, err
		}
	}
	fc.ensureReturn()
	if err := fc.finalize(); err != nil {
		return nil, err
	}
	c.mod.AddFunction(fc.fn)

	if c.err != nil {
		return nil, c.err
	}
	return c.mod, nil
}

// predeclare reserves a function-table slot for every top-level function and
// class method before any body is lowered, so Call lowering can resolve
// forward and mutually recursive references regardless of declaration order
// (the resolver's hoisting pass already guarantees the names themselves
// resolve; this gives the compiler's own by-name function table the same
// guarantee).
func predeclare(c *compiling, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.FunctionDecl:
		c.mod.reserveFunction(n.Name.Name)
	case *ast.ClassDecl:
		c.mod.reserveFunction(n.Name.Name)
		for _, m := range n.Methods {
			c.mod.reserveFunction(n.Name.Name + "." + m.Name.Name)
		}
	}
}

// compiling holds module-wide compiler state.
type compiling struct {
	mod *BytecodeModule
	res *resolver.Result
	err error
}

func (c *compiling) fail(n ast.Node, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	err := fmt.Errorf("%s (line %d)", msg, nodeLine(n))
	if c.err == nil {
		c.err = err
	}
	return err
}

// nodeLine is a best-effort line number; without a *token.FileSet at this
// layer (the resolver already validated positions), only the raw Pos offset
// is available, which is still useful for distinguishing error sites during
// debugging even though it is not a 1-based line number.
func nodeLine(n ast.Node) int { return int(n.Pos()) }

// funcCompiler holds the state of a single function's bytecode emission: a
// growing instruction vector, a label table for forward jumps, and the stack
// of enclosing loops' break/continue labels. Registers are allocated later,
// by LowerToRegisters.
type funcCompiler struct {
	c      *compiling
	fn     *Function
	labels map[int]int // label id -> resolved code index, -1 until marked
	loops  []loopLabels
	nextLbl int
}

type loopLabels struct {
	continueLabel int
	breakLabel    int
}

func (fc *funcCompiler) emit(op Opcode, a, b int32, line int) int {
	fc.fn.Code = append(fc.fn.Code, Instruction{Op: op, A: a, B: b, Line: line})
	return len(fc.fn.Code) - 1
}

// genLabel returns a fresh label id, unresolved until markLabel is called.
func (fc *funcCompiler) genLabel() int {
	fc.nextLbl++
	fc.labels[fc.nextLbl] = -1
	return fc.nextLbl
}

// markLabel records the current code index for label.
func (fc *funcCompiler) markLabel(label int) {
	fc.labels[label] = len(fc.fn.Code)
}

// emitJump emits a forward-referencing jump to label, to be patched at
// finalize.
func (fc *funcCompiler) emitJump(op Opcode, label int, line int) int {
	return fc.emit(op, int32(label), 0, line)
}

// finalize patches every recorded forward label; any jump whose label was
// never marked is a compile error ("Unresolved label").
func (fc *funcCompiler) finalize() error {
	for i := range fc.fn.Code {
		insn := &fc.fn.Code[i]
		switch insn.Op {
		case Jump, JumpIfFalse, JumpIfTrue, Loop:
			target, ok := fc.labels[int(insn.A)]
			if !ok || target < 0 {
				return fmt.Errorf("Unresolved label")
			}
			insn.A = int32(target)
		}
	}
	return nil
}

func (fc *funcCompiler) ensureReturn() {
	n := len(fc.fn.Code)
	if n > 0 && fc.fn.Code[n-1].Op == Return {
		return
	}
	fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, 0)
	fc.emit(Return, 1, 0, 0)
}

// stmt lowers one statement, following §4.3's per-construct lowering rules.
func (fc *funcCompiler) stmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		for _, inner := range n.Stmts {
			if err := fc.stmt(inner); err != nil {
				return err
			}
		}
	case *ast.VarDecl:
		for _, d := range n.Declarators {
			if d.Init != nil {
				if err := fc.expr(d.Init); err != nil {
					return err
				}
			} else {
				fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
			}
			b, ok := fc.c.res.Idents[d.Name]
			if !ok {
				return fc.c.fail(d.Name, "Undefined variable: %s", d.Name.Name)
			}
			fc.emitStore(b, nodeLine(n), false)
		}
	case *ast.ExprStmt:
		if err := fc.expr(n.X); err != nil {
			return err
		}
		fc.emit(Pop, 0, 0, nodeLine(n))
	case *ast.If:
		if err := fc.expr(n.Cond); err != nil {
			return err
		}
		lfalse := fc.genLabel()
		fc.emitJump(JumpIfFalse, lfalse, nodeLine(n))
		if err := fc.stmt(n.Then); err != nil {
			return err
		}
		lend := fc.genLabel()
		fc.emitJump(Jump, lend, nodeLine(n))
		fc.markLabel(lfalse)
		if n.Else != nil {
			if err := fc.stmt(n.Else); err != nil {
				return err
			}
		}
		fc.markLabel(lend)
	case *ast.While:
		lloop := fc.genLabel()
		lexit := fc.genLabel()
		fc.markLabel(lloop)
		if err := fc.expr(n.Cond); err != nil {
			return err
		}
		fc.emitJump(JumpIfFalse, lexit, nodeLine(n))
		fc.loops = append(fc.loops, loopLabels{continueLabel: lloop, breakLabel: lexit})
		if err := fc.stmt(n.Body); err != nil {
			return err
		}
		fc.loops = fc.loops[:len(fc.loops)-1]
		fc.emitJump(Loop, lloop, nodeLine(n))
		fc.markLabel(lexit)
	case *ast.DoWhile:
		lloop := fc.genLabel()
		lexit := fc.genLabel()
		fc.markLabel(lloop)
		fc.loops = append(fc.loops, loopLabels{continueLabel: lloop, breakLabel: lexit})
		if err := fc.stmt(n.Body); err != nil {
			return err
		}
		fc.loops = fc.loops[:len(fc.loops)-1]
		if err := fc.expr(n.Cond); err != nil {
			return err
		}
		fc.emitJump(JumpIfTrue, lloop, nodeLine(n))
		fc.markLabel(lexit)
	case *ast.For:
		if n.Init != nil {
			if err := fc.stmt(n.Init); err != nil {
				return err
			}
		}
		lloop := fc.genLabel()
		lexit := fc.genLabel()
		fc.markLabel(lloop)
		if n.Cond != nil {
			if err := fc.expr(n.Cond); err != nil {
				return err
			}
			fc.emitJump(JumpIfFalse, lexit, nodeLine(n))
		}
		fc.loops = append(fc.loops, loopLabels{continueLabel: lloop, breakLabel: lexit})
		if err := fc.stmt(n.Body); err != nil {
			return err
		}
		fc.loops = fc.loops[:len(fc.loops)-1]
		if n.Update != nil {
			if err := fc.expr(n.Update); err != nil {
				return err
			}
			fc.emit(Pop, 0, 0, nodeLine(n))
		}
		fc.emitJump(Loop, lloop, nodeLine(n))
		fc.markLabel(lexit)
	case *ast.ForIn:
		return fc.forInOf(n.Name, n.Object, n.Body, false, n)
	case *ast.ForOf:
		return fc.forInOf(n.Name, n.Arr, n.Body, true, n)
	case *ast.Switch:
		return fc.switchStmt(n)
	case *ast.Break:
		if len(fc.loops) == 0 {
			return fc.c.fail(n, "break outside of loop")
		}
		fc.emitJump(Jump, fc.loops[len(fc.loops)-1].breakLabel, nodeLine(n))
	case *ast.Continue:
		if len(fc.loops) == 0 {
			return fc.c.fail(n, "continue outside of loop")
		}
		fc.emitJump(Loop, fc.loops[len(fc.loops)-1].continueLabel, nodeLine(n))
	case *ast.Return:
		if n.Arg != nil {
			if err := fc.expr(n.Arg); err != nil {
				return err
			}
			fc.emit(Return, 1, 0, nodeLine(n))
		} else {
			fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
			fc.emit(Return, 1, 0, nodeLine(n))
		}
	case *ast.Throw:
		// R+ has no exception machinery in the VM (§9 open question); throw
		// lowers to Exit so a thrown value still halts execution observably.
		if err := fc.expr(n.Arg); err != nil {
			return err
		}
		fc.emit(Exit, 0, 0, nodeLine(n))
	case *ast.Try:
		// No catch/unwind support in the VM: the try body executes straight
		// through, followed by the finally block; the catch block is not
		// compiled.
		if err := fc.stmt(n.Block); err != nil {
			return err
		}
		if n.Finally != nil {
			if err := fc.stmt(n.Finally); err != nil {
				return err
			}
		}
	case *ast.FunctionDecl:
		return fc.functionDecl(n)
	case *ast.ClassDecl:
		return fc.classDecl(n)
	case *ast.Labeled:
		return fc.stmt(n.Stmt)
	case *ast.Empty, *ast.Debugger:
		// no-op
	default:
		return fc.c.fail(s, "compiler: unhandled statement %T", s)
	}
	return nil
}

// emitStore emits the opcode that stores the top-of-stack value into b. If
// keep is true, a Dup precedes the store so the value remains on the stack
// (used for assignment-as-expression); VarDecl needs no value left behind
// and passes false.
func (fc *funcCompiler) emitStore(b *resolver.Binding, line int, keep bool) {
	if keep {
		fc.emit(Dup, 0, 0, line)
	}
	if b.Scope == resolver.Global {
		fc.emit(SetGlobal, int32(b.Slot), 0, line)
	} else {
		fc.emit(SetLocal, int32(b.Slot), 0, line)
	}
}

// forInOf lowers for-in and for-of. Neither has an iterator opcode in §4.3's
// table, and this lowering does not iterate: the collection expression is
// evaluated and discarded, then the body is lowered once. The loop variable
// is not bound to any element, and the statement registers no
// break/continue targets.
func (fc *funcCompiler) forInOf(name *ast.Identifier, coll ast.Expr, body *ast.Block, isOf bool, pos ast.Node) error {
	_ = isOf
	if err := fc.expr(coll); err != nil {
		return err
	}
	fc.emit(Pop, 0, 0, nodeLine(pos))
	b, ok := fc.c.res.Idents[name]
	if !ok {
		return fc.c.fail(name, "Undefined variable: %s", name.Name)
	}
	_ = b
	return fc.stmt(body)
}

func (fc *funcCompiler) switchStmt(n *ast.Switch) error {
	// Lowered to an if/elif chain (SPEC_FULL.md): each case becomes an
	// equality test against the discriminant.
	if err := fc.expr(n.Discriminant); err != nil {
		return err
	}
	discSlot := fc.reserveTempLocal()
	fc.emit(SetLocal, int32(discSlot), 0, nodeLine(n))

	lend := fc.genLabel()
	fc.loops = append(fc.loops, loopLabels{continueLabel: lend, breakLabel: lend})
	for _, c := range n.Cases {
		lnext := fc.genLabel()
		if c.Test != nil {
			fc.emit(GetLocal, int32(discSlot), 0, nodeLine(n))
			if err := fc.expr(c.Test); err != nil {
				return err
			}
			fc.emit(Equal, 0, 0, nodeLine(n))
			fc.emitJump(JumpIfFalse, lnext, nodeLine(n))
		}
		for _, s := range c.Stmts {
			if err := fc.stmt(s); err != nil {
				return err
			}
		}
		fc.markLabel(lnext)
	}
	fc.markLabel(lend)
	fc.loops = fc.loops[:len(fc.loops)-1]
	return nil
}

// reserveTempLocal allocates a fresh local slot for compiler-internal use
// (e.g. holding a switch discriminant), distinct from any user variable.
func (fc *funcCompiler) reserveTempLocal() int {
	slot := fc.fn.NumLocals
	fc.fn.NumLocals++
	return slot
}

func (fc *funcCompiler) functionDecl(n *ast.FunctionDecl) error {
	inner := fc.c.res.Functions[n]
	nestedFn := fc.c.mod.reserveFunction(n.Name.Name)
	nestedFn.NumParams = len(n.Params)
	nestedFn.NumLocals = len(inner.Locals)
	nested := &funcCompiler{c: fc.c, fn: nestedFn, labels: make(map[int]int)}
	for _, s := range n.Body.Stmts {
		if err := nested.stmt(s); err != nil {
			return err
		}
	}
	nested.ensureReturn()
	return nested.finalize()
}

// classDecl lowers a class to a constructor function that evaluates the
// field initializers in declaration order and returns them as an Array
// (positional fields, no field names, no prototype chain), and one function
// per method, named "<Class>.<method>".
func (fc *funcCompiler) classDecl(n *ast.ClassDecl) error {
	for _, m := range n.Methods {
		inner := fc.c.res.Functions[m]
		nestedFn := fc.c.mod.reserveFunction(n.Name.Name + "." + m.Name.Name)
		nestedFn.NumParams = len(m.Params)
		nestedFn.NumLocals = len(inner.Locals)
		nested := &funcCompiler{c: fc.c, fn: nestedFn, labels: make(map[int]int)}
		for _, s := range m.Body.Stmts {
			if err := nested.stmt(s); err != nil {
				return err
			}
		}
		nested.ensureReturn()
		if err := nested.finalize(); err != nil {
			return err
		}
	}

	ctorFn := fc.c.mod.reserveFunction(n.Name.Name)
	ctor := &funcCompiler{c: fc.c, fn: ctorFn, labels: make(map[int]int)}
	var fieldNames []string
	for _, f := range n.Fields {
		fieldNames = append(fieldNames, f.Name.Name)
		if f.Init != nil {
			if err := ctor.expr(f.Init); err != nil {
				return err
			}
		} else {
			ctor.emit(LoadConst, int32(ctor.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
		}
	}
	ctor.emit(NewArray, int32(len(fieldNames)), 0, nodeLine(n))
	ctor.emit(Return, 1, 0, nodeLine(n))
	return ctor.finalize()
}

// expr lowers an expression, leaving exactly one value on the stack.
func (fc *funcCompiler) expr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Literal:
		k, err := fc.literalConstant(n)
		if err != nil {
			return err
		}
		fc.emit(LoadConst, int32(k), 0, nodeLine(n))
	case *ast.Identifier:
		b, ok := fc.c.res.Idents[n]
		if !ok {
			return fc.c.fail(n, "Undefined variable: %s", n.Name)
		}
		if b.Scope == resolver.Global {
			fc.emit(GetGlobal, int32(b.Slot), 0, nodeLine(n))
		} else {
			fc.emit(GetLocal, int32(b.Slot), 0, nodeLine(n))
		}
	case *ast.This:
		fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
	case *ast.Binary:
		if err := fc.expr(n.Left); err != nil {
			return err
		}
		if err := fc.expr(n.Right); err != nil {
			return err
		}
		op, ok := binaryOpcodeFor(n.Op)
		if !ok {
			return fc.c.fail(n, "invalid operator: %s", n.Op.String())
		}
		fc.emit(op, 0, 0, nodeLine(n))
	case *ast.Unary:
		if err := fc.expr(n.Operand); err != nil {
			return err
		}
		op, ok := unaryOpcodeFor(n.Op)
		if !ok {
			return fc.c.fail(n, "invalid operator: %s", n.Op.String())
		}
		fc.emit(op, 0, 0, nodeLine(n))
	case *ast.Call:
		ident, ok := n.Callee.(*ast.Identifier)
		if !ok {
			return fc.c.fail(n, "only direct calls to a named function are supported")
		}
		for _, a := range n.Args {
			if err := fc.expr(a); err != nil {
				return err
			}
		}
		idx, ok := fc.c.mod.FunctionIndex(ident.Name)
		if !ok {
			return fc.c.fail(n, "Undefined function: %s", ident.Name)
		}
		fc.emit(Call, int32(idx), int32(len(n.Args)), nodeLine(n))
	case *ast.Index:
		if err := fc.expr(n.Array); err != nil {
			return err
		}
		if err := fc.expr(n.Idx); err != nil {
			return err
		}
		fc.emit(IndexLoad, 0, 0, nodeLine(n))
	case *ast.Member:
		if err := fc.expr(n.Object); err != nil {
			return err
		}
		fc.emit(GetField, int32(fc.c.mod.AddConstant(types.String(n.Name))), 0, nodeLine(n))
	case *ast.Assign:
		return fc.assign(n)
	case *ast.Conditional:
		if err := fc.expr(n.Test); err != nil {
			return err
		}
		lfalse := fc.genLabel()
		fc.emitJump(JumpIfFalse, lfalse, nodeLine(n))
		if err := fc.expr(n.Then); err != nil {
			return err
		}
		lend := fc.genLabel()
		fc.emitJump(Jump, lend, nodeLine(n))
		fc.markLabel(lfalse)
		if err := fc.expr(n.Else); err != nil {
			return err
		}
		fc.markLabel(lend)
	case *ast.ArrayLit:
		for _, el := range n.Elements {
			if err := fc.expr(el); err != nil {
				return err
			}
		}
		fc.emit(NewArray, int32(len(n.Elements)), 0, nodeLine(n))
	case *ast.ObjectLit:
		for _, p := range n.Props {
			if err := fc.expr(p.Value); err != nil {
				return err
			}
		}
		fc.emit(NewArray, int32(len(n.Props)), 0, nodeLine(n))
	case *ast.Lambda:
		inner := fc.c.res.Functions[n]
		nested := &funcCompiler{
			c:      fc.c,
			fn:     &Function{Name: inner.Name, NumParams: len(n.Params), NumLocals: len(inner.Locals)},
			labels: make(map[int]int),
		}
		for _, s := range n.Body.Stmts {
			if err := nested.stmt(s); err != nil {
				return err
			}
		}
		nested.ensureReturn()
		if err := nested.finalize(); err != nil {
			return err
		}
		idx := fc.c.mod.AddFunction(nested.fn)
		fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.String(nested.fn.Name))), 0, nodeLine(n))
		_ = idx
	case *ast.New:
		ident, ok := n.Ctor.(*ast.Identifier)
		if !ok {
			return fc.c.fail(n, "invalid constructor expression")
		}
		for _, a := range n.Args {
			if err := fc.expr(a); err != nil {
				return err
			}
		}
		idx, ok := fc.c.mod.FunctionIndex(ident.Name)
		if !ok {
			return fc.c.fail(n, "Undefined function: %s", ident.Name)
		}
		fc.emit(Call, int32(idx), int32(len(n.Args)), nodeLine(n))
	default:
		return fc.c.fail(e, "compiler: unhandled expression %T", e)
	}
	return nil
}

func (fc *funcCompiler) assign(n *ast.Assign) error {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		if err := fc.expr(n.Value); err != nil {
			return err
		}
		b, ok := fc.c.res.Idents[target]
		if !ok {
			return fc.c.fail(target, "Undefined variable: %s", target.Name)
		}
		fc.emitStore(b, nodeLine(n), true)
	case *ast.Index:
		if err := fc.expr(target.Array); err != nil {
			return err
		}
		if err := fc.expr(target.Idx); err != nil {
			return err
		}
		if err := fc.expr(n.Value); err != nil {
			return err
		}
		fc.emit(IndexStore, 0, 0, nodeLine(n))
		// IndexStore leaves nothing on the stack; assignment-as-expression
		// through an index target evaluates to nil (documented simplification).
		fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
	case *ast.Member:
		if err := fc.expr(target.Object); err != nil {
			return err
		}
		if err := fc.expr(n.Value); err != nil {
			return err
		}
		fc.emit(SetField, int32(fc.c.mod.AddConstant(types.String(target.Name))), 0, nodeLine(n))
		fc.emit(LoadConst, int32(fc.c.mod.AddConstant(types.Nil{})), 0, nodeLine(n))
	default:
		return fc.c.fail(n, "invalid assignment target")
	}
	return nil
}

func (fc *funcCompiler) literalConstant(n *ast.Literal) (int, error) {
	switch n.Kind {
	case ast.LitNumber:
		return fc.c.mod.AddConstant(types.Number(float64(n.Value.(int64)))), nil
	case ast.LitFloat:
		return fc.c.mod.AddConstant(types.Number(n.Value.(float64))), nil
	case ast.LitString, ast.LitChar:
		return fc.c.mod.AddConstant(types.String(n.Value.(string))), nil
	case ast.LitBool:
		return fc.c.mod.AddConstant(types.Bool(n.Value.(bool))), nil
	case ast.LitNull:
		return fc.c.mod.AddConstant(types.Nil{}), nil
	default:
		return 0, fc.c.fail(n, "compiler: unhandled literal kind %v", n.Kind)
	}
}
