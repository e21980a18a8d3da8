package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarlin/rplus/lang/parser"
	"github.com/oscarlin/rplus/lang/resolver"
	"github.com/oscarlin/rplus/lang/scanner"
)

func parseSource(t *testing.T, src string) *resolver.Result {
	t.Helper()
	fset, toks, err := scanner.ScanSource("test.rp", []byte(src))
	require.NoError(t, err)
	prog, err := parser.Parse(fset, "test.rp", toks)
	require.NoError(t, err)
	res, err := resolver.Resolve(fset, prog)
	require.NoError(t, err)
	return res
}

func TestResolveGlobals(t *testing.T) {
	res := parseSource(t, `var x = 1; var y = x + 2;`)
	assert.Len(t, res.Globals, 2)
	assert.Equal(t, "x", res.Globals[0].Name)
	assert.Equal(t, resolver.Global, res.Globals[0].Scope)
}

func TestResolveFunctionLocals(t *testing.T) {
	res := parseSource(t, `
		function add(a, b) {
			var total = a + b;
			return total;
		}
	`)
	assert.Len(t, res.Globals, 1)
	assert.Equal(t, "add", res.Globals[0].Name)

	for key, fn := range res.Functions {
		if fn.Name == "add" {
			_ = key
			assert.Len(t, fn.Locals, 3) // a, b, total
			assert.Equal(t, resolver.Local, fn.Locals[0].Scope)
		}
	}
}

func TestResolveUndefinedVariable(t *testing.T) {
	fset, toks, err := scanner.ScanSource("test.rp", []byte(`var x = y;`))
	require.NoError(t, err)
	prog, err := parser.Parse(fset, "test.rp", toks)
	require.NoError(t, err)
	_, err = resolver.Resolve(fset, prog)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable: y")
}

func TestResolveMutualFunctionReferences(t *testing.T) {
	res := parseSource(t, `
		function isEven(n) {
			if (n == 0) { return true; }
			return isOdd(n - 1);
		}
		function isOdd(n) {
			if (n == 0) { return false; }
			return isEven(n - 1);
		}
	`)
	assert.Len(t, res.Globals, 2)
}

func TestResolveLambdaGetsSyntheticName(t *testing.T) {
	res := parseSource(t, `var f = function(x) { return x; };`)
	var names []string
	for _, fn := range res.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "lambda#1")
}
