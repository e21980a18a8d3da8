package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/oscarlin/rplus/lang/compiler"
	"github.com/oscarlin/rplus/lang/parser"
	"github.com/oscarlin/rplus/lang/resolver"
	"github.com/oscarlin/rplus/lang/scanner"
)

// Interactive runs the read-eval-print loop described by §6: each line read
// from stdin is compiled independently, catching per-line errors so one bad
// line doesn't end the session. "exit" and "quit" leave the loop; "help" and
// "clear" are recognized as well.
func (c *Cmd) Interactive(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	sc := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !sc.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switch line := sc.Text(); line {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(stdio.Stdout, "commands: exit, quit, help, clear -- anything else is compiled as R+ source")
		case "clear":
			fmt.Fprint(stdio.Stdout, "\033[H\033[2J")
		case "":
			// ignore blank lines
		default:
			if err := compileLine(line); err != nil {
				fmt.Fprintf(stdio.Stdout, "%s\n", err)
			} else {
				fmt.Fprintln(stdio.Stdout, "OK")
			}
		}
	}
	return sc.Err()
}

// compileLine runs a single line through the same pipeline as CompileFile,
// discarding the result -- interactive mode exists to validate input, not to
// execute or persist it.
func compileLine(line string) error {
	fset, toks, err := scanner.ScanSource("<stdin>", []byte(line))
	if err != nil {
		return err
	}
	prog, err := parser.Parse(fset, "<stdin>", toks)
	if err != nil {
		return err
	}
	res, err := resolver.Resolve(fset, prog)
	if err != nil {
		return err
	}
	_, err = compiler.Compile("<stdin>", prog, res)
	return err
}
