// Package parser implements the R+ recursive-descent parser: an LL(1)
// grammar with one token of lookahead, building an AST rooted at
// ast.Program. Statements are classified by the current token; expressions
// are parsed by precedence climbing (§4.2).
package parser

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"

	"github.com/oscarlin/rplus/lang/ast"
	"github.com/oscarlin/rplus/lang/token"
)

// Parser holds the state of a single parse over a fixed token vector.
type Parser struct {
	fset     *gotoken.FileSet
	filename string
	toks     []token.Value
	pos      int

	// AllowRecovery enables the synchronize-and-continue error recovery
	// strategy described in §4.2. It is false by default: by default the
	// parser fails fast on the first error and returns no partial AST,
	// matching the reference behavior where synchronize exists but is never
	// invoked.
	AllowRecovery bool

	errs scanner.ErrorList
}

// New creates a Parser over toks, a token vector produced by the scanner
// package (always ending with an EOF token). fset and filename are used only
// to render error positions.
func New(fset *gotoken.FileSet, filename string, toks []token.Value) *Parser {
	return &Parser{fset: fset, filename: filename, toks: toks}
}

// Parse parses the full token vector and returns the resulting Program. On
// the first parse error (or, with AllowRecovery, after recovering past every
// error it can), it returns the accumulated errors; no partial AST is
// returned on fatal failure.
func Parse(fset *gotoken.FileSet, filename string, toks []token.Value) (*ast.Program, error) {
	p := New(fset, filename, toks)
	return p.ParseProgram()
}

func (p *Parser) cur() token.Value  { return p.toks[p.pos] }
func (p *Parser) curTok() token.Token { return p.toks[p.pos].Tok }

func (p *Parser) advance() token.Value {
	t := p.toks[p.pos]
	if t.Tok != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(t token.Token) bool { return p.curTok() == t }

func (p *Parser) match(t token.Token) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches t, otherwise raises a
// parse error identifying the offending line.
func (p *Parser) expect(t token.Token) (token.Value, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token.Value{}, p.errorf("expected %s", t.GoString())
}

// line returns the 1-based source line of pos, for error messages.
func (p *Parser) line(pos token.Pos) int {
	if p.fset == nil {
		return 0
	}
	return p.fset.Position(pos).Line
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	pos := p.cur().Pos
	fullMsg := fmt.Sprintf("%s at line %d", msg, p.line(pos))
	p.errs.Add(p.fset.Position(pos), fullMsg)
	return fmt.Errorf("%s", fullMsg)
}

func (p *Parser) unexpectedToken() error {
	if p.check(token.EOF) {
		return p.errorf("unexpected end of input")
	}
	if p.check(token.ILLEGAL) {
		return p.errorf("unexpected token")
	}
	return p.errorf("unexpected token: %s", p.cur().Raw)
}

// synchronize implements the error-recovery routine described in §4.2: it
// advances past the next statement terminator (';') or until the next
// statement-starting keyword. It is exercised only when AllowRecovery is
// set; by default the parser never calls it (see AllowRecovery doc).
func (p *Parser) synchronize() {
	p.advance()
	for !p.check(token.EOF) {
		if p.toks[p.pos-1].Tok == token.SEMI {
			return
		}
		switch p.curTok() {
		case token.FUNCTION, token.IF, token.WHILE, token.FOR, token.RETURN:
			return
		}
		p.advance()
	}
}

// ParseProgram parses the whole token vector into a Program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{Name: p.filename}

	for !p.check(token.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			if p.AllowRecovery {
				p.synchronize()
				continue
			}
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	prog.EOF = p.cur().Pos

	if p.AllowRecovery && len(p.errs) > 0 {
		p.errs.Sort()
		return prog, p.errs.Err()
	}
	return prog, nil
}

// consumeStmtTerminator consumes an optional ';' terminator, per §4.2
// ("Statement terminators (';' or newline) are optional but consumed when
// present"). Since the scanner never emits a newline token, there is
// nothing else to consume here.
func (p *Parser) consumeStmtTerminator() token.Pos {
	if p.check(token.SEMI) {
		return p.advance().Pos
	}
	return p.cur().Pos
}
