package compiler

// Optimizer passes remain non-features (Open Question 4): each is declared
// with the signature a real pass would need and does nothing. None is
// called from Compile.

// ConstantFold would replace arithmetic over two LoadConst operands with a
// single precomputed LoadConst. Unimplemented.
func ConstantFold(fn *Function) {}

// DeadCodeElim would drop instructions unreachable after an unconditional
// Jump/Return/Exit. Unimplemented.
func DeadCodeElim(fn *Function) {}

// InlineSimpleFuncs would splice single-expression function bodies into
// their call sites. Unimplemented.
func InlineSimpleFuncs(fn *Function) {}
