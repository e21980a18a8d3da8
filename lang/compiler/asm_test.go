package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/types"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this err string, no error if empty
	}{
		{"empty", ``, "expected program: section"},
		{"not program", `function:`, "expected program: section"},
		{"program only", `program:`, ""},

		{"minimally valid function", `
			program:
				function: top 0 0
					code:
		`, ""},

		{"invalid opcode", `
			program:
				function: top 0 0
					code:
						foobar
		`, "invalid opcode: foobar"},

		{"missing opcode arg", `
			program:
				function: top 0 0
					code:
						jump
		`, "expected operand"},

		{"invalid constant kind", `
			program:
				constants:
					foo 123
		`, "invalid constant kind"},

		{"invalid number constant", `
			program:
				constants:
					number abc
		`, "invalid number constant"},

		{"unexpected trailing section", `
			program:
				function: top 0 0
					code:
						nop
			constants:
				number 1
		`, "unexpected section: constants:"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestAsmRoundtrip(t *testing.T) {
	mod := compiler.NewModule()
	mod.AddConstant(types.Number(0))
	fn := &compiler.Function{Name: "add", NumParams: 2, NumLocals: 2}
	fn.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.GetLocal, A: 1},
		{Op: compiler.Add},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)

	text := compiler.Dasm(mod)
	reparsed, err := compiler.Asm(text)
	require.NoError(t, err)

	idx, ok := reparsed.FunctionIndex("add")
	require.True(t, ok)
	got := reparsed.Functions[idx]
	assert.Equal(t, fn.NumParams, got.NumParams)
	assert.Equal(t, fn.NumLocals, got.NumLocals)
	require.Len(t, got.Code, len(fn.Code))
	for i, insn := range fn.Code {
		assert.Equal(t, insn.Op, got.Code[i].Op, "instruction %d", i)
		assert.Equal(t, insn.A, got.Code[i].A, "instruction %d operand", i)
	}
}

func TestLowerToRegisters(t *testing.T) {
	fn := &compiler.Function{Name: "add", NumParams: 2, NumLocals: 2}
	fn.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.GetLocal, A: 1},
		{Op: compiler.Add},
		{Op: compiler.Return, A: 1},
	}
	err := compiler.LowerToRegisters(fn)
	require.NoError(t, err)
	assert.Equal(t, int32(0), fn.Code[0].Dst)
	assert.Equal(t, int32(1), fn.Code[1].Dst)
	assert.Equal(t, int32(0), fn.Code[2].R1)
	assert.Equal(t, int32(1), fn.Code[2].R2)
	assert.Equal(t, int32(2), fn.Code[2].Dst)
	assert.Equal(t, int32(2), fn.Code[3].R1)
	assert.Equal(t, 3, fn.MaxRegisters)
}
