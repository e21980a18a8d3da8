package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/oscarlin/rplus/lang/types"
)

// Instruction is one bytecode instruction: an opcode plus up to two generic
// operands, whose meaning depends on Op (see opcode.go's per-opcode
// comments). R1, R2 and Dst are populated only by LowerToRegisters, for
// register-VM consumption; a function that was never lowered leaves them
// zero and is read by the stack VM using A/B alone.
type Instruction struct {
	Op   Opcode
	A, B int32 // e.g. LoadConst<A>, Call<A func index, B argc>
	Line int   // raw token.Pos offset of the source node (see nodeLine), not a 1-based line

	R1, R2, Dst int32   // register-VM operands, valid only after lowering
	Args        []int32 // register-VM operand list for Call/NewArray, valid only after lowering

	// Snapshot is the live virtual-register stack at this point, captured by
	// LowerToRegisters for every branch instruction (Jump/JumpIfFalse/
	// JumpIfTrue/Loop). It has no effect on execution; Dasm renders it as a
	// trailing comment so a reader can see which registers are still live
	// across a jump without re-running the lowering pass by hand.
	Snapshot []int32
}

// Function is one compiled function: a flat instruction vector plus its
// parameter count, matching §4.3's "a flat instruction vector" description.
type Function struct {
	Name         string
	NumParams    int
	Code         []Instruction
	NumLocals    int // high-water mark of local slots, including parameters
	MaxRegisters int // set by LowerToRegisters; zero if never lowered
}

// BytecodeModule holds an ordered list of Functions and the shared constant
// pool referenced by LoadConst, indexed by name for Call lowering and
// lookup. The name tables (functionIndex, constantIndex, GlobalNames) are
// swiss.Map, not plain Go maps: functionIndex is consulted at every call
// site the compiler lowers and constantIndex on every AddConstant.
type BytecodeModule struct {
	Functions []*Function
	Constants []types.Value

	NumGlobals int // high-water mark of global slots

	// GlobalNames maps a global variable's name to its slot index, mirroring
	// the resolver's Global scope (see lang/resolver). GetGlobal/SetGlobal
	// instructions still address globals by numeric slot, baked in at compile
	// time; GlobalNames is a name-to-slot index kept alongside, read through
	// GlobalIndex. Neither the compiler's lowering nor Dasm consults it.
	GlobalNames *swiss.Map[string, int]

	functionIndex *swiss.Map[string, int]
	constantIndex *swiss.Map[string, int] // string(key) -> index, see addConstant
}

// NewModule returns an empty module ready to receive functions and constants.
func NewModule() *BytecodeModule {
	return &BytecodeModule{
		functionIndex: swiss.NewMap[string, int](8),
		constantIndex: swiss.NewMap[string, int](8),
		GlobalNames:   swiss.NewMap[string, int](8),
	}
}

// AddFunction appends fn and returns its index. It does not check whether
// the name is already taken; if it is, the name now maps to the new index.
func (m *BytecodeModule) AddFunction(fn *Function) int {
	idx := len(m.Functions)
	m.Functions = append(m.Functions, fn)
	m.functionIndex.Put(fn.Name, idx)
	return idx
}

// FunctionIndex returns the index of the named function, and whether it
// exists.
func (m *BytecodeModule) FunctionIndex(name string) (int, bool) {
	return m.functionIndex.Get(name)
}

// reserveFunction returns the (possibly already-registered) *Function for
// name, registering an empty placeholder if this is the first time name is
// seen. The compiler reserves every top-level function and class method
// before lowering any body, so that mutual and forward calls between
// sibling functions resolve via FunctionIndex during the later lowering
// pass instead of only after it.
func (m *BytecodeModule) reserveFunction(name string) *Function {
	if idx, ok := m.functionIndex.Get(name); ok {
		return m.Functions[idx]
	}
	fn := &Function{Name: name}
	idx := len(m.Functions)
	m.Functions = append(m.Functions, fn)
	m.functionIndex.Put(name, idx)
	return fn
}

// AddGlobal records name as bound to the global slot index, so GlobalNames
// stays in sync with the resolver's Global scope. Called once per binding
// when the compiler walks res.Globals.
func (m *BytecodeModule) AddGlobal(name string, slot int) {
	m.GlobalNames.Put(name, slot)
}

// GlobalIndex returns the slot index of the named global, and whether it
// exists.
func (m *BytecodeModule) GlobalIndex(name string) (int, bool) {
	return m.GlobalNames.Get(name)
}

// AddConstant interns v into the constant pool, returning its index. Equal
// values (by types.Equal's rules, approximated here via a string key since
// the pool is small and collisions are harmless false-sharing at worst for
// Array, which is never deduplicated) share a slot.
func (m *BytecodeModule) AddConstant(v types.Value) int {
	key := constantKey(v)
	if key != "" {
		if idx, ok := m.constantIndex.Get(key); ok {
			return idx
		}
	}
	idx := len(m.Constants)
	m.Constants = append(m.Constants, v)
	if key != "" {
		m.constantIndex.Put(key, idx)
	}
	return idx
}

// constantKey returns a dedup key for scalar constants, or "" for Array
// (never deduplicated, since arrays are reference types with identity).
func constantKey(v types.Value) string {
	switch v := v.(type) {
	case types.Nil:
		return "nil:"
	case types.Bool:
		return fmt.Sprintf("bool:%v", bool(v))
	case types.Number:
		return fmt.Sprintf("num:%v", float64(v))
	case types.String:
		return fmt.Sprintf("str:%s", string(v))
	default:
		return ""
	}
}
