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

// RegisterMachine lowers a function to register form lazily on first call,
// so these tests build the same stack-discipline instructions as
// stackvm_test.go and let vm.RegisterMachine.Run invoke
// compiler.LowerToRegisters itself.

func TestRegisterMachineArithmetic(t *testing.T) {
	mod := addModule()
	m := vm.NewRegisterMachine()
	got, err := m.Run(context.Background(), mod, "<module>", types.Number(2), types.Number(3))
	require.NoError(t, err)
	assert.Equal(t, types.Number(5), got)
}

func TestRegisterMachineDivisionByZero(t *testing.T) {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumParams: 1, NumLocals: 1}
	fn.Code = []compiler.Instruction{
		{Op: compiler.GetLocal, A: 0},
		{Op: compiler.LoadConst, A: int32(mod.AddConstant(types.Number(0)))},
		{Op: compiler.Div},
		{Op: compiler.Return, A: 1},
	}
	mod.AddFunction(fn)

	m := vm.NewRegisterMachine()
	_, err := m.Run(context.Background(), mod, "<module>", types.Number(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestRegisterMachineCall(t *testing.T) {
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

	m := vm.NewRegisterMachine()
	got, err := m.Run(context.Background(), mod, "<module>")
	require.NoError(t, err)
	assert.Equal(t, types.Number(42), got)
}

func TestRegisterMachineArrayIndexing(t *testing.T) {
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

	m := vm.NewRegisterMachine()
	got, err := m.Run(context.Background(), mod, "<module>")
	require.NoError(t, err)
	assert.Equal(t, types.Number(20), got)
}

func TestRegisterMachineStepLimit(t *testing.T) {
	mod := compiler.NewModule()
	fn := &compiler.Function{Name: "<module>", NumLocals: 0}
	fn.Code = []compiler.Instruction{
		{Op: compiler.Loop, A: 0},
	}
	mod.AddFunction(fn)

	m := vm.NewRegisterMachine()
	m.MaxSteps = 5
	_, err := m.Run(context.Background(), mod, "<module>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit")
}

func TestRegisterMachineTrace(t *testing.T) {
	mod := addModule()
	m := vm.NewRegisterMachine()
	m.Trace = true
	_, err := m.Run(context.Background(), mod, "<module>", types.Number(2), types.Number(3))
	require.NoError(t, err)
	assert.NotEmpty(t, m.Traces)
}
