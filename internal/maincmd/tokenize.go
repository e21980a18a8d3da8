package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/oscarlin/rplus/lang/scanner"
)

// Tokenize runs the lexer phase only and prints the resulting token stream,
// a debug command alongside compile/interactive (§6's module layout calls
// it out explicitly as a "tokenize debug command").
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles scans each named file and writes one line per token to
// stdio.Stdout, in the form "file:line:col: token-name raw-text".
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	if len(files) == 0 {
		return fmt.Errorf("tokenize: at least one file must be provided")
	}
	var firstErr error
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		fset, toks, err := scanner.ScanFile(name)
		for _, tok := range toks {
			pos := fset.Position(tok.Pos)
			if tok.Raw != "" {
				fmt.Fprintf(stdio.Stdout, "%s: %s %q\n", pos, tok.Tok, tok.Raw)
			} else {
				fmt.Fprintf(stdio.Stdout, "%s: %s\n", pos, tok.Tok)
			}
		}
		if err != nil {
			scanner.PrintError(stdio.Stderr, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
