package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/oscarlin/rplus/lang/types"
)

// This file implements the human-readable/writable "pseudo-assembly" form of
// a compiled module (§6's .rpx format): Dasm renders a *BytecodeModule to
// text, Asm parses it back. The format exists so the VM and its tests can be
// driven directly from a fixture file without going through the parser and
// resolver -- the same role the teacher's asm.go plays for its own bytecode.
//
// 	program:
// 		constants:
// 			nil            # 000
// 			bool    true   # 001
// 			number  42     # 002
// 			string  "abc"  # 003
// 		# functions: add
//
// 	function: add 2 3
// 		code:
// 			get_local 0    # 000
// 			get_local 1    # 001
// 			add 0          # 002
// 			return 1       # 003

var sections = map[string]bool{
	"program:":   true,
	"constants:": true,
	"function:":  true,
	"code:":      true,
}

// Dasm renders mod in the textual pseudo-assembly format.
func Dasm(mod *BytecodeModule) []byte {
	var buf bytes.Buffer
	buf.WriteString("program:\n")
	if len(mod.Constants) > 0 {
		buf.WriteString("\tconstants:\n")
		for i, c := range mod.Constants {
			fmt.Fprintf(&buf, "\t\t%s\t# %03d\n", constantLiteral(c), i)
		}
	}
	if names := sortedFunctionNames(mod); len(names) > 0 {
		fmt.Fprintf(&buf, "\t# functions: %s\n", strings.Join(names, ", "))
	}
	for _, fn := range mod.Functions {
		buf.WriteString("\n")
		writeFunction(&buf, fn)
	}
	return buf.Bytes()
}

// sortedFunctionNames returns mod's function names sorted alphabetically,
// for the "# functions:" index comment at the top of the rendering -- a
// reader scanning a large module can see what's defined without walking
// every function: block, which stay in declaration order since Call
// instructions address callees by that order's numeric index.
func sortedFunctionNames(mod *BytecodeModule) []string {
	names := make([]string, len(mod.Functions))
	for i, fn := range mod.Functions {
		names[i] = fn.Name
	}
	slices.Sort(names)
	return names
}

func writeFunction(buf *bytes.Buffer, fn *Function) {
	fmt.Fprintf(buf, "function: %s %d %d\n", fn.Name, fn.NumParams, fn.NumLocals)
	if len(fn.Code) == 0 {
		return
	}
	buf.WriteString("\tcode:\n")
	for i, insn := range fn.Code {
		comment := fmt.Sprintf("%03d", i)
		if len(insn.Snapshot) > 0 {
			comment = fmt.Sprintf("%s regs=%v", comment, insn.Snapshot)
		}
		if hasOperand(insn.Op) {
			fmt.Fprintf(buf, "\t\t%s %d\t# %s\n", insn.Op, insn.A, comment)
		} else {
			fmt.Fprintf(buf, "\t\t%s\t# %s\n", insn.Op, comment)
		}
	}
}

func constantLiteral(v types.Value) string {
	switch v := v.(type) {
	case types.Nil:
		return "nil"
	case types.Bool:
		return fmt.Sprintf("bool\t%v", bool(v))
	case types.Number:
		return fmt.Sprintf("number\t%s", v.String())
	case types.String:
		return fmt.Sprintf("string\t%q", string(v))
	default:
		return fmt.Sprintf("unknown\t%v", v)
	}
}

var reverseOpcodeNames = buildReverseOpcodeNames()

func buildReverseOpcodeNames() map[string]Opcode {
	m := make(map[string]Opcode, maxOpcode)
	for op := Opcode(0); op < maxOpcode; op++ {
		if name := opcodeNames[op]; name != "" {
			m[name] = op
		}
	}
	return m
}

// Asm parses the textual pseudo-assembly format produced by Dasm back into a
// *BytecodeModule.
func Asm(b []byte) (*BytecodeModule, error) {
	a := &asmParser{s: bufio.NewScanner(bytes.NewReader(b))}

	fields := a.next()
	if a.err != nil {
		return nil, a.err
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "program:") {
		return nil, errors.New("expected program: section")
	}
	mod := NewModule()
	a.mod = mod

	fields = a.next()
	fields = a.constants(fields)

	for a.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "function:") {
		fields = a.function(fields)
	}

	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	if a.err != nil {
		return nil, a.err
	}
	return mod, nil
}

type asmParser struct {
	s       *bufio.Scanner
	rawLine string
	mod     *BytecodeModule
	err     error
}

func (a *asmParser) constants(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		switch strings.ToLower(fields[0]) {
		case "nil":
			a.mod.AddConstant(types.Nil{})
		case "bool":
			if len(fields) != 2 {
				a.err = fmt.Errorf("invalid bool constant: %v", fields)
				return fields
			}
			b, err := strconv.ParseBool(fields[1])
			if err != nil {
				a.err = fmt.Errorf("invalid bool constant: %w", err)
				return fields
			}
			a.mod.AddConstant(types.Bool(b))
		case "number":
			if len(fields) != 2 {
				a.err = fmt.Errorf("invalid number constant: %v", fields)
				return fields
			}
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("invalid number constant: %w", err)
				return fields
			}
			a.mod.AddConstant(types.Number(f))
		case "string":
			m := rxConstString.FindStringSubmatch(a.rawLine)
			if m == nil {
				a.err = fmt.Errorf("invalid string constant: %s", a.rawLine)
				return fields
			}
			s, err := strconv.Unquote(m[1])
			if err != nil {
				a.err = fmt.Errorf("invalid string constant: %w", err)
				return fields
			}
			a.mod.AddConstant(types.String(s))
		default:
			a.err = fmt.Errorf("invalid constant kind: %s", fields[0])
			return fields
		}
	}
	return fields
}

func (a *asmParser) function(fields []string) []string {
	if len(fields) < 3 {
		a.err = fmt.Errorf("invalid function: line, want 'function: NAME params locals', got %v", fields)
		return a.next()
	}
	numParams, err := strconv.Atoi(fields[2])
	if err != nil {
		a.err = fmt.Errorf("invalid function param count: %w", err)
		return a.next()
	}
	var numLocals int
	if len(fields) >= 4 {
		numLocals, err = strconv.Atoi(fields[3])
		if err != nil {
			a.err = fmt.Errorf("invalid function local count: %w", err)
			return a.next()
		}
	}
	fn := a.mod.reserveFunction(fields[1])
	fn.NumParams = numParams
	fn.NumLocals = numLocals

	fields = a.next()
	fields = a.code(fn, fields)
	return fields
}

func (a *asmParser) code(fn *Function, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		op, ok := reverseOpcodeNames[strings.ToLower(fields[0])]
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields
		}
		var arg int64
		if hasOperand(op) {
			if len(fields) < 2 {
				a.err = fmt.Errorf("expected operand for opcode %s", fields[0])
				return fields
			}
			arg, a.err = strconv.ParseInt(fields[1], 10, 32)
			if a.err != nil {
				return fields
			}
		}
		fn.Code = append(fn.Code, Instruction{Op: op, A: int32(arg)})
	}
	return fields
}

// rxConstString extracts the quoted value from a `string "..."` constant
// line, since the value itself may contain whitespace that strings.Fields
// would otherwise split on. The capture stops at the closing quote, so a
// trailing "# NNN" comment written by Dasm is not part of it.
var rxConstString = regexp.MustCompile(`^\s*string\s+(".*")`)

func (a *asmParser) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// LowerToRegisters rewrites fn's stack-discipline instructions into
// register-indexed form for RegisterMachine (Open Question 3: the VM design
// keeps both machines, bridged by a single Instruction format that carries
// stack-implicit operands on A/B and explicit register operands on R1/R2/Dst
// once lowered). It is a peephole pass: a virtual stack of register ids
// tracks where each pushed value currently lives, and every opcode that pops
// N values and pushes one is rewritten to read R1 (and R2) from the operand
// registers and write its result to a freshly allocated Dst, which is then
// pushed back onto the virtual stack in place of the operands it consumed.
//
// Call and NewArray pop a variable count of operands that need not occupy
// contiguous registers, so their operand registers are recorded in Args
// rather than R1/R2.
//
// The register counter is monotonic and never reused within a function, per
// §4.3's "Register allocation" -- there is no liveness analysis, so a
// function with enough intermediate values can overflow MaxRegisters, which
// is reported as an error rather than silently wrapping.
func LowerToRegisters(fn *Function) error {
	var vstack []int32
	next := int32(0)
	alloc := func() (int32, error) {
		if int(next) >= MaxRegisters {
			return 0, fmt.Errorf("function %s: register overflow (max %d)", fn.Name, MaxRegisters)
		}
		r := next
		next++
		return r, nil
	}
	pop := func() int32 {
		if len(vstack) == 0 {
			return -1
		}
		r := vstack[len(vstack)-1]
		vstack = vstack[:len(vstack)-1]
		return r
	}
	push := func(r int32) { vstack = append(vstack, r) }

	for i := range fn.Code {
		insn := &fn.Code[i]
		switch insn.Op {
		case LoadConst, GetGlobal, GetLocal:
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Dst = dst
			push(dst)
		case Add, Sub, Mul, Div, Mod,
			Equal, NotEqual, Less, LessEqual, Greater, GreaterEqual,
			And, Or:
			insn.R2 = pop()
			insn.R1 = pop()
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Dst = dst
			push(dst)
		case Neg, Not:
			insn.R1 = pop()
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Dst = dst
			push(dst)
		case SetGlobal, SetLocal:
			insn.R1 = pop()
		case Dup:
			r := pop()
			push(r)
			push(r)
		case Pop:
			pop()
		case Return:
			if insn.A != 0 {
				insn.R1 = pop()
			}
		case NewArray:
			n := int(insn.A)
			elems := make([]int32, n)
			for j := n - 1; j >= 0; j-- {
				elems[j] = pop()
			}
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Args = elems
			insn.Dst = dst
			push(dst)
		case IndexLoad, GetField:
			insn.R2 = pop()
			insn.R1 = pop()
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Dst = dst
			push(dst)
		case IndexStore, SetField:
			// val, then idx, then the indexed value itself, in pop order; the
			// indexed value has no pushed result so its register rides in Dst
			// rather than going unrecorded.
			insn.R2 = pop()
			insn.R1 = pop()
			insn.Dst = pop()
		case Call:
			argc := int(insn.B)
			argRegs := make([]int32, argc)
			for j := argc - 1; j >= 0; j-- {
				argRegs[j] = pop()
			}
			dst, err := alloc()
			if err != nil {
				return err
			}
			insn.Args = argRegs
			insn.Dst = dst
			push(dst)
		case Jump, JumpIfFalse, JumpIfTrue, Loop:
			if insn.Op != Jump && insn.Op != Loop {
				insn.R1 = pop()
			}
			insn.Snapshot = slices.Clone(vstack)
		case Exit:
			insn.R1 = pop()
		}
	}
	fn.MaxRegisters = int(next)
	return nil
}
