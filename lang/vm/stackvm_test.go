package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/types"
	"github.com/oscarlin/rplus/lang/vm"
)

// addModule builds a module with a single top-level function computing
// a + b from its two parameters, built by hand (no parser/resolver
// involved).
func addModule() *compiler.BytecodeModule {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumParams: 2, NumLocals: 2}
	fn.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.GetLocal, A: 1},
		{Op: compiler.Add},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)
	return mod
}

func TestStackMachineArithmetic(t *testing.T) {
	mod := addModule()
	var m vm.StackMachine
	got, err := m.Run(context.Background(), mod, "<module>", types.Number(2), types.Number(3))
	require.NoError(t, err)
	assert.Equal(t, types.Number(5), got)
}

func TestStackMachineDivisionByZero(t *testing.T) {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumParams: 1, NumLocals: 1}
	fn.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(0)))},
		{Op: compiler.Div},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)

	var m vm.StackMachine
	_, err := m.Run(context.Background(), mod, "<module>", types.Number(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestStackMachineGlobals(t *testing.T) {
	mod := compiler.NewModule()
	mod.NumGlobals = 1
	mod.AddGlobal("counter", 0)
	fn := &compiler.Function{Name: "<module>", NumLocals: 0}
	fn.Code = []compiler.Instruction{
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(41)))},
		{Op: compiler.SetGlobal, A: 0},
		{Op: compiler.GetGlobal, A: 0},
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(1)))},
		{Op: compiler.Add},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)

	idx, ok := mod.GlobalIndex("counter")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	var m vm.StackMachine
	got, err := m.Run(context.Background(), mod, "<module>")
	require.NoError(t, err)
	assert.Equal(t, types.Number(42), got)
}

func TestStackMachineCall(t *testing.T) {
	mod := compiler.NewModule()
	double := &compiler.Function{Name: "double", NumParams: 1, NumLocals: 1}
	double.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.Add},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(double)
	idx, ok := mod.FunctionIndex("double")
	require.True(t, ok)

	top := &compiler.Function{Name: "<module>", NumLocals: 0}
	top.Code = []compiler.Instruction{
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(21)))},
		{Op: compiler.Call, A: int32(idx), B: 1},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(top)

	var m vm.StackMachine
	got, err := m.Run(context.Background(), mod, "<module>")
	require.NoError(t, err)
	assert.Equal(t, types.Number(42), got)
}

func TestStackMachineArrayIndexing(t *testing.T) {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumLocals: 0}
	fn.Code = []compiler.Instruction{
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(10)))},
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(20)))},
		{Op: compiler.NewArray, A: 2},
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(1)))},
		{Op: compiler.IndexLoad},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)

	var m vm.StackMachine
	got, err := m.Run(context.Background(), mod, "<module>")
	require.NoError(t, err)
	assert.Equal(t, types.Number(20), got)
}

func TestStackMachineStepLimit(t *testing.T) {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumLocals: 0}
	fn.Code = []compiler.Instruction{
		{Op: compiler.Loop, A: 0},
	}
	mod.AddFunction(fn)

	m := vm.StackMachine{MaxSteps: 5}
	_, err := m.Run(context.Background(), mod, "<module>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit")
}
