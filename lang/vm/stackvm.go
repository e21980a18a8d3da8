// Package vm implements the two execution engines named by §4.4: a
// stack-based machine that runs a BytecodeModule's instructions directly,
// and a register-based machine that runs the same module after
// compiler.LowerToRegisters has populated each instruction's R1/R2/Dst
// operands. Both share the Machine contract below (Open Question 3).
//
// The fetch-decode-execute loop, step-counter cancellation and call-frame
// stack are adapted from the teacher's lang/machine/machine.go (itself
// adapted from Starlark-go); R+ has no iterators, cells, defers or catches,
// so that machinery is dropped rather than ported.
package vm

import (
	"context"
	"fmt"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/types"
)

// Machine is implemented by both StackMachine and RegisterMachine.
type Machine interface {
	Run(ctx context.Context, mod *compiler.BytecodeModule, entry string, args ...types.Value) (types.Value, error)
}

// defaultStackCapacity is the operand stack's starting size; it grows as
// needed (§4.4: "256-value default capacity").
const defaultStackCapacity = 256

// frame records one active call: which function is executing, its local
// variable slots, and its own program counter.
type frame struct {
	fn      *compiler.Function
	locals  []types.Value
	pc      int
	stackLo int // not set or read by StackMachine; always 0
}

// StackMachine executes a BytecodeModule by interpreting its Instructions
// against an implicit operand stack (§4.4).
type StackMachine struct {
	// MaxSteps bounds the number of instructions executed before the run is
	// cancelled, a deliberately unspecified measure of execution time.
	// A value <= 0 means no limit.
	MaxSteps int

	globals []types.Value
	stack   []types.Value
	frames  []*frame
	steps   uint64
}

// Run interprets mod starting at the function named entry, with args bound
// to its parameters in order.
func (m *StackMachine) Run(ctx context.Context, mod *compiler.BytecodeModule, entry string, args ...types.Value) (types.Value, error) {
	idx, ok := mod.FunctionIndex(entry)
	if !ok {
		return nil, fmt.Errorf("vm: undefined function %q", entry)
	}
	m.globals = make([]types.Value, mod.NumGlobals)
	m.stack = make([]types.Value, 0, defaultStackCapacity)
	m.frames = nil
	m.steps = 0

	return m.call(ctx, mod, mod.Functions[idx], args)
}

func (m *StackMachine) push(v types.Value) { m.stack = append(m.stack, v) }

func (m *StackMachine) pop() types.Value {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

func (m *StackMachine) top() types.Value { return m.stack[len(m.stack)-1] }

func (m *StackMachine) call(ctx context.Context, mod *compiler.BytecodeModule, fn *compiler.Function, args []types.Value) (types.Value, error) {
	if len(m.frames) > 0 && len(m.frames) >= maxCallDepth {
		return nil, fmt.Errorf("vm: call stack depth exceeded (max %d)", maxCallDepth)
	}

	locals := make([]types.Value, fn.NumLocals)
	for i := range args {
		if i >= len(locals) {
			break
		}
		locals[i] = args[i]
	}
	for i := range locals {
		if locals[i] == nil {
			locals[i] = types.Nil{}
		}
	}

	fr := &frame{fn: fn, locals: locals}
	m.frames = append(m.frames, fr)
	defer func() { m.frames = m.frames[:len(m.frames)-1] }()

	code := fn.Code
	for fr.pc < len(code) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		m.steps++
		if m.MaxSteps > 0 && m.steps > uint64(m.MaxSteps) {
			return nil, fmt.Errorf("vm: execution step limit exceeded (max %d)", m.MaxSteps)
		}

		insn := code[fr.pc]
		fr.pc++

		switch insn.Op {
		case compiler.NOP:
			// nop

		case compiler.LoadConst:
			m.push(mod.Constants[insn.A])

		case compiler.DefineGlobal, compiler.SetGlobal:
			m.globals[insn.A] = m.pop()
		case compiler.GetGlobal:
			v := m.globals[insn.A]
			if v == nil {
				v = types.Nil{}
			}
			m.push(v)

		case compiler.SetLocal:
			fr.locals[insn.A] = m.pop()
		case compiler.GetLocal:
			v := fr.locals[insn.A]
			if v == nil {
				v = types.Nil{}
			}
			m.push(v)

		case compiler.Add:
			y, x := m.pop(), m.pop()
			v, err := add(x, y)
			if err != nil {
				return nil, err
			}
			m.push(v)
		case compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod:
			y, x := m.pop(), m.pop()
			v, err := arith(insn.Op, x, y)
			if err != nil {
				return nil, err
			}
			m.push(v)
		case compiler.Neg:
			x := m.pop()
			n, ok := x.(types.Number)
			if !ok {
				return nil, fmt.Errorf("runtime error: operand must be a number")
			}
			m.push(-n)

		case compiler.Equal:
			y, x := m.pop(), m.pop()
			m.push(types.Bool(types.Equal(x, y)))
		case compiler.NotEqual:
			y, x := m.pop(), m.pop()
			m.push(types.Bool(!types.Equal(x, y)))
		case compiler.Less, compiler.LessEqual, compiler.Greater, compiler.GreaterEqual:
			y, x := m.pop(), m.pop()
			v, err := compare(insn.Op, x, y)
			if err != nil {
				return nil, err
			}
			m.push(types.Bool(v))

		case compiler.And:
			y, x := m.pop(), m.pop()
			m.push(types.Bool(x.Truth() && y.Truth()))
		case compiler.Or:
			y, x := m.pop(), m.pop()
			m.push(types.Bool(x.Truth() || y.Truth()))
		case compiler.Not:
			m.push(types.Bool(!m.pop().Truth()))

		case compiler.Jump:
			fr.pc = int(insn.A)
		case compiler.JumpIfFalse:
			if !m.pop().Truth() {
				fr.pc = int(insn.A)
			}
		case compiler.JumpIfTrue:
			if m.pop().Truth() {
				fr.pc = int(insn.A)
			}
		case compiler.Loop:
			fr.pc = int(insn.A)

		case compiler.Call:
			callee := mod.Functions[insn.A]
			argc := int(insn.B)
			callArgs := make([]types.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				callArgs[i] = m.pop()
			}
			result, err := m.call(ctx, mod, callee, callArgs)
			if err != nil {
				return nil, err
			}
			m.push(result)
		case compiler.Return:
			if insn.A != 0 {
				return m.pop(), nil
			}
			return types.Nil{}, nil

		case compiler.Pop:
			m.pop()
		case compiler.Dup:
			m.push(m.top())

		case compiler.NewArray:
			n := int(insn.A)
			arr := types.NewArray(n)
			for i := n - 1; i >= 0; i-- {
				arr.Elems[i] = m.pop()
			}
			m.push(arr)
		case compiler.IndexLoad:
			idxv, x := m.pop(), m.pop()
			arr, ok := x.(*types.Array)
			if !ok {
				return nil, fmt.Errorf("runtime error: %s value is not indexable", x.Type())
			}
			i, err := indexOf(idxv, len(arr.Elems))
			if err != nil {
				return nil, err
			}
			m.push(arr.Elems[i])
		case compiler.IndexStore:
			val, idxv, x := m.pop(), m.pop(), m.pop()
			arr, ok := x.(*types.Array)
			if !ok {
				return nil, fmt.Errorf("runtime error: %s value is not indexable", x.Type())
			}
			i, err := indexOf(idxv, len(arr.Elems))
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = val
		case compiler.GetField, compiler.SetField:
			// R+ has no map/record Value type wired to field access yet
			// (SPEC_FULL.md's class lowering produces an Array); field access on
			// an Array is a runtime error rather than a panic.
			return nil, fmt.Errorf("runtime error: field access is not supported on this value")

		case compiler.Exit:
			if len(m.stack) > 0 {
				return m.pop(), nil
			}
			return types.Nil{}, nil

		default:
			return nil, fmt.Errorf("vm: unimplemented opcode %s", insn.Op)
		}
	}
	return types.Nil{}, nil
}

const maxCallDepth = 10000

func add(x, y types.Value) (types.Value, error) {
	xs, xIsStr := x.(types.String)
	ys, yIsStr := y.(types.String)
	if xIsStr || yIsStr {
		if !xIsStr {
			xs = types.String(x.String())
		}
		if !yIsStr {
			ys = types.String(y.String())
		}
		return xs + ys, nil
	}
	xn, ok1 := x.(types.Number)
	yn, ok2 := y.(types.Number)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("runtime error: operand must be a number")
	}
	return xn + yn, nil
}

func arith(op compiler.Opcode, x, y types.Value) (types.Value, error) {
	xn, ok1 := x.(types.Number)
	yn, ok2 := y.(types.Number)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("runtime error: operand must be a number")
	}
	switch op {
	case compiler.Sub:
		return xn - yn, nil
	case compiler.Mul:
		return xn * yn, nil
	case compiler.Div:
		if yn == 0 {
			return nil, fmt.Errorf("runtime error: division by zero")
		}
		return xn / yn, nil
	case compiler.Mod:
		if yn == 0 {
			return nil, fmt.Errorf("runtime error: division by zero")
		}
		xi, yi := int64(xn), int64(yn)
		return types.Number(xi % yi), nil
	default:
		return nil, fmt.Errorf("vm: unimplemented arithmetic opcode %s", op)
	}
}

func compare(op compiler.Opcode, x, y types.Value) (bool, error) {
	xn, ok1 := x.(types.Number)
	yn, ok2 := y.(types.Number)
	if !ok1 || !ok2 {
		return false, fmt.Errorf("runtime error: operand must be a number")
	}
	switch op {
	case compiler.Less:
		return xn < yn, nil
	case compiler.LessEqual:
		return xn <= yn, nil
	case compiler.Greater:
		return xn > yn, nil
	case compiler.GreaterEqual:
		return xn >= yn, nil
	default:
		return false, fmt.Errorf("vm: unimplemented comparison opcode %s", op)
	}
}

func indexOf(v types.Value, n int) (int, error) {
	num, ok := v.(types.Number)
	if !ok {
		return 0, fmt.Errorf("runtime error: array index must be a number")
	}
	i := int(num)
	if i < 0 || i >= n {
		return 0, fmt.Errorf("runtime error: index out of range [%d] with length %d", i, n)
	}
	return i, nil
}
