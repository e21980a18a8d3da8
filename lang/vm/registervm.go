package vm

import (
	"context"
	"fmt"
	"strings"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/types"
)

// Default sizes for the register VM's heap and byte stack (§4.4).
const (
	DefaultHeapSize  = 64 * 1024
	DefaultStackSize = 64 * 1024

	// NumRegisters is the minimum size of a call's register file. Register
	// 15 is named FlagsRegister, but comparison flags are not stored in it:
	// they are kept in a separate per-call field (regFrame.flags), and
	// register 15 is allocated by LowerToRegisters like any other.
	NumRegisters  = 16
	FlagsRegister = 15
)

// Comparison flag values recorded in a call's flags field by Equal/NotEqual
// (only when the operands are equal) and by the Less/Greater-family opcodes.
const (
	FlagEqual byte = iota
	FlagLess
	FlagGreater
)

// State is a snapshot of the register machine's execution position, as
// returned by GetState and consumed by SetState (§4.4's debug features).
// PC and FP are omitted: this implementation runs each call as a recursive
// Go call rather than against one flat shared register file indexed by a
// frame pointer, so there is no single machine-wide PC/FP to snapshot
// between calls -- only the heap bump pointer and byte-stack pointer, which
// do live at machine scope.
type State struct {
	SP      int
	HeapPtr int
	Halt    bool
}

// RegisterMachine executes a BytecodeModule whose functions have been
// lowered via compiler.LowerToRegisters. Each call allocates its own
// register file sized to the callee's MaxRegisters (at least NumRegisters);
// this is a documented simplification of §4.4's single shared 16-slot
// register file -- it sidesteps needing a caller-saves/callee-saves
// calling convention to avoid clobbering a caller's in-flight registers
// across nested calls. The heap and byte stack (DumpHeap, DumpStack) and
// the stack and heap pointers (GetState) are exposed for introspection; PC,
// FP and the comparison flags are per-call and are not.
type RegisterMachine struct {
	// MaxSteps bounds executed instructions before the run is cancelled; <= 0
	// means no limit.
	MaxSteps int
	// Trace, when true, appends one line per executed instruction to Traces.
	Trace  bool
	Traces []string

	heap      []byte
	heapPtr   int
	byteStack []byte
	sp        int
	callStack []int

	globals []types.Value
	steps   uint64
	halted  bool
}

// NewRegisterMachine returns a machine with the default heap and byte stack
// sizes.
func NewRegisterMachine() *RegisterMachine {
	return &RegisterMachine{
		heap:      make([]byte, DefaultHeapSize),
		byteStack: make([]byte, DefaultStackSize),
	}
}

type regFrame struct {
	fn    *compiler.Function
	regs  []types.Value
	flags byte
	pc    int
}

// Run interprets mod starting at the function named entry. Functions are
// lowered to register form lazily, on first use, via
// compiler.LowerToRegisters.
func (m *RegisterMachine) Run(ctx context.Context, mod *compiler.BytecodeModule, entry string, args ...types.Value) (types.Value, error) {
	if m.heap == nil {
		m.heap = make([]byte, DefaultHeapSize)
	}
	if m.byteStack == nil {
		m.byteStack = make([]byte, DefaultStackSize)
	}
	idx, ok := mod.FunctionIndex(entry)
	if !ok {
		return nil, fmt.Errorf("vm: undefined function %q", entry)
	}
	m.globals = make([]types.Value, mod.NumGlobals)
	m.callStack = m.callStack[:0]
	m.sp = 0
	m.heapPtr = 0
	m.halted = false
	m.steps = 0

	return m.call(ctx, mod, mod.Functions[idx], args)
}

// allocate implements the heap's bump allocator: it returns the current
// pointer, advances it by n, zeroes the region, and fails "out of memory" on
// overflow (§4.4's memory discipline). deallocate zeroes but never reclaims.
func (m *RegisterMachine) allocate(n int) (int, error) {
	if m.heapPtr+n > len(m.heap) {
		return 0, fmt.Errorf("runtime error: out of memory")
	}
	addr := m.heapPtr
	for i := addr; i < addr+n; i++ {
		m.heap[i] = 0
	}
	m.heapPtr += n
	return addr, nil
}

func (m *RegisterMachine) deallocate(addr, n int) error {
	if addr < 0 || addr+n > len(m.heap) {
		return fmt.Errorf("runtime error: invalid heap region")
	}
	for i := addr; i < addr+n; i++ {
		m.heap[i] = 0
	}
	return nil
}

// pushBytes and popBytes implement the byte stack's 8-byte-aligned
// push/pop convention.
func (m *RegisterMachine) pushBytes(n int) (int, error) {
	if m.sp+n > len(m.byteStack) {
		return 0, fmt.Errorf("runtime error: stack overflow")
	}
	addr := m.sp
	m.sp += n
	return addr, nil
}

func (m *RegisterMachine) popBytes(n int) error {
	if m.sp < n {
		return fmt.Errorf("runtime error: stack underflow")
	}
	m.sp -= n
	return nil
}

func (m *RegisterMachine) call(ctx context.Context, mod *compiler.BytecodeModule, fn *compiler.Function, args []types.Value) (types.Value, error) {
	if fn.MaxRegisters == 0 && len(fn.Code) > 0 {
		if err := compiler.LowerToRegisters(fn); err != nil {
			return nil, err
		}
	}
	if len(m.callStack) >= maxCallDepth {
		return nil, fmt.Errorf("vm: call stack depth exceeded (max %d)", maxCallDepth)
	}

	nregs := fn.MaxRegisters
	if nregs < NumRegisters {
		nregs = NumRegisters
	}
	fr := &regFrame{fn: fn, regs: make([]types.Value, nregs)}
	for i := range fr.regs {
		fr.regs[i] = types.Nil{}
	}

	// The call stack models §4.4's "call stack of return addresses"; since
	// each call recurses through Go's own stack rather than resuming a
	// caller's PC out of a flat shared instruction array, only call depth is
	// tracked here, not a literal address.
	m.callStack = append(m.callStack, len(m.callStack))
	defer func() { m.callStack = m.callStack[:len(m.callStack)-1] }()

	code := fn.Code
	for fr.pc < len(code) && !m.halted {
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
		if m.Trace {
			m.Traces = append(m.Traces, fmt.Sprintf("%s:%03d %s", fn.Name, fr.pc, insn.Op))
		}
		fr.pc++

		switch insn.Op {
		case compiler.NOP:
			// nop
		case compiler.LoadConst:
			fr.regs[insn.Dst] = mod.Constants[int(insn.A)]

		case compiler.GetGlobal:
			v := m.globals[insn.A]
			if v == nil {
				v = types.Nil{}
			}
			fr.regs[insn.Dst] = v
		case compiler.SetGlobal, compiler.DefineGlobal:
			m.globals[insn.A] = fr.regs[insn.R1]

		case compiler.GetLocal:
			v := fr.regs[insn.A]
			if v == nil {
				v = types.Nil{}
			}
			fr.regs[insn.Dst] = v
		case compiler.SetLocal:
			fr.regs[insn.A] = fr.regs[insn.R1]

		case compiler.Add:
			v, err := add(fr.regs[insn.R1], fr.regs[insn.R2])
			if err != nil {
				return nil, err
			}
			fr.regs[insn.Dst] = v
		case compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod:
			v, err := arith(insn.Op, fr.regs[insn.R1], fr.regs[insn.R2])
			if err != nil {
				return nil, err
			}
			fr.regs[insn.Dst] = v
		case compiler.Neg:
			n, ok := fr.regs[insn.R1].(types.Number)
			if !ok {
				return nil, fmt.Errorf("runtime error: operand must be a number")
			}
			fr.regs[insn.Dst] = -n

		case compiler.Equal, compiler.NotEqual:
			eq := types.Equal(fr.regs[insn.R1], fr.regs[insn.R2])
			if eq {
				fr.flags = FlagEqual
			}
			if insn.Op == compiler.Equal {
				fr.regs[insn.Dst] = types.Bool(eq)
			} else {
				fr.regs[insn.Dst] = types.Bool(!eq)
			}
		case compiler.Less, compiler.LessEqual, compiler.Greater, compiler.GreaterEqual:
			v, err := compare(insn.Op, fr.regs[insn.R1], fr.regs[insn.R2])
			if err != nil {
				return nil, err
			}
			xn, yn := fr.regs[insn.R1].(types.Number), fr.regs[insn.R2].(types.Number)
			switch {
			case xn < yn:
				fr.flags = FlagLess
			case xn > yn:
				fr.flags = FlagGreater
			default:
				fr.flags = FlagEqual
			}
			fr.regs[insn.Dst] = types.Bool(v)

		case compiler.And:
			fr.regs[insn.Dst] = types.Bool(fr.regs[insn.R1].Truth() && fr.regs[insn.R2].Truth())
		case compiler.Or:
			fr.regs[insn.Dst] = types.Bool(fr.regs[insn.R1].Truth() || fr.regs[insn.R2].Truth())
		case compiler.Not:
			fr.regs[insn.Dst] = types.Bool(!fr.regs[insn.R1].Truth())

		case compiler.Jump, compiler.Loop:
			fr.pc = int(insn.A)
		case compiler.JumpIfFalse:
			if !fr.regs[insn.R1].Truth() {
				fr.pc = int(insn.A)
			}
		case compiler.JumpIfTrue:
			if fr.regs[insn.R1].Truth() {
				fr.pc = int(insn.A)
			}

		case compiler.Call:
			// Reserve an 8-byte-aligned return-address slot on the byte stack
			// per §4.4's calling convention, even though the actual resume
			// point lives on Go's own call stack (see RegisterMachine's doc
			// comment) -- this keeps sp accounting for stack-overflow/underflow
			// observable the way the spec describes it.
			if _, err := m.pushBytes(8); err != nil {
				return nil, err
			}
			callee := mod.Functions[insn.A]
			callArgs := make([]types.Value, len(insn.Args))
			for i, r := range insn.Args {
				callArgs[i] = fr.regs[r]
			}
			result, err := m.call(ctx, mod, callee, callArgs)
			if err != nil {
				return nil, err
			}
			if err := m.popBytes(8); err != nil {
				return nil, err
			}
			fr.regs[insn.Dst] = result

		case compiler.Return:
			if insn.A != 0 {
				return fr.regs[insn.R1], nil
			}
			return types.Nil{}, nil

		case compiler.Dup:
			// register form has no stack to duplicate on; Dst already aliases
			// the same value via LowerToRegisters's virtual-stack bookkeeping.

		case compiler.NewArray:
			n := int(insn.A)
			// Reserve n*8 bytes on the bump-allocated heap, mirroring §4.4's
			// allocation discipline for array storage, even though the element
			// values themselves are kept as native types.Value, not packed
			// into that region.
			if _, err := m.allocate(n * 8); err != nil {
				return nil, err
			}
			arr := types.NewArray(n)
			for i, r := range insn.Args {
				arr.Elems[i] = fr.regs[r]
			}
			fr.regs[insn.Dst] = arr
		case compiler.IndexLoad:
			arr, ok := fr.regs[insn.R1].(*types.Array)
			if !ok {
				return nil, fmt.Errorf("runtime error: %s value is not indexable", fr.regs[insn.R1].Type())
			}
			i, err := indexOf(fr.regs[insn.R2], len(arr.Elems))
			if err != nil {
				return nil, err
			}
			fr.regs[insn.Dst] = arr.Elems[i]
		case compiler.IndexStore:
			arr, ok := fr.regs[insn.Dst].(*types.Array)
			if !ok {
				return nil, fmt.Errorf("runtime error: %s value is not indexable", fr.regs[insn.Dst].Type())
			}
			i, err := indexOf(fr.regs[insn.R1], len(arr.Elems))
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = fr.regs[insn.R2]
		case compiler.GetField, compiler.SetField:
			return nil, fmt.Errorf("runtime error: field access is not supported on this value")

		case compiler.Exit:
			m.halted = true
			return fr.regs[insn.R1], nil

		default:
			return nil, fmt.Errorf("vm: unimplemented opcode %s", insn.Op)
		}
	}
	return types.Nil{}, nil
}

// GetState captures the machine's current execution position (§4.4's
// get_state/set_state snapshots). It is meaningful only while Run is
// suspended between steps, e.g. from a Trace callback; this implementation
// exposes it for debugging tools built on top of RegisterMachine.
func (m *RegisterMachine) GetState() State {
	return State{SP: m.sp, HeapPtr: m.heapPtr, Halt: m.halted}
}

// SetState restores a previously captured snapshot.
func (m *RegisterMachine) SetState(s State) {
	m.sp = s.SP
	m.heapPtr = s.HeapPtr
	m.halted = s.Halt
}

// DumpHeap renders the first n bytes of the heap as hex, for debugging.
func (m *RegisterMachine) DumpHeap(n int) string {
	if n > len(m.heap) {
		n = len(m.heap)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%02x ", m.heap[i])
	}
	return b.String()
}

// DumpStack renders the first n bytes of the byte stack as hex.
func (m *RegisterMachine) DumpStack(n int) string {
	if n > len(m.byteStack) {
		n = len(m.byteStack)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%02x ", m.byteStack[i])
	}
	return b.String()
}
