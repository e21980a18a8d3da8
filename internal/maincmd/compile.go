package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/parser"
	"github.com/oscarlin/rplus/lang/resolver"
	"github.com/oscarlin/rplus/lang/scanner"
)

// defaultOutFile is written when a compile invocation names no output file,
// per §6: "compile <in.rp> [out.rpx] -- compile a source file; default
// output output.rpx".
const defaultOutFile = "output.rpx"

// Compile is the default command (§6: "compile", "-c", and the bare-file
// shorthand all reach this).
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return errors.New("compile: a source file must be provided")
	}
	in := args[0]
	out := defaultOutFile
	if len(args) > 1 {
		out = args[1]
	}
	return CompileFile(ctx, stdio, in, out)
}

// CompileFile runs the full reading/lexing/parsing/codegen/writing pipeline
// over in, writing the .rpx rendering of the result to out, printing §6's
// five-step progress log to stdio.Stdout along the way.
func CompileFile(ctx context.Context, stdio mainer.Stdio, in, out string) error {
	fmt.Fprintf(stdio.Stdout, "reading %s\n", in)
	src, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(stdio.Stdout, "lexing")
	fset, toks, err := scanner.ScanSource(in, src)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	fmt.Fprintf(stdio.Stdout, "  %d tokens\n", len(toks))
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(stdio.Stdout, "parsing")
	prog, err := parser.Parse(fset, in, toks)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(stdio.Stdout, "generating code")
	res, err := resolver.Resolve(fset, prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	mod, err := compiler.Compile(in, prog, res)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rendered := compiler.Dasm(mod)
	fmt.Fprintf(stdio.Stdout, "writing %s\n", out)
	if err := os.WriteFile(out, rendered, 0o644); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprintf(stdio.Stdout, "  %d bytes\n", len(rendered))
	return nil
}
