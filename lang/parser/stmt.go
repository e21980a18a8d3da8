package parser

import (
	"github.com/oscarlin/rplus/lang/ast"
	"github.com/oscarlin/rplus/lang/token"
)

// parseStmt dispatches on the current token to the matching statement
// production, falling back to an expression statement.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.curTok() {
	case token.LBRACE:
		return p.parseBlockStmt()
	case token.VAR, token.LET, token.CONST:
		return p.parseVarDecl()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.FUNCTION:
		return p.parseFunctionDecl()
	case token.CLASS:
		return p.parseClassDecl()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		return p.parseContinue()
	case token.THROW:
		return p.parseThrow()
	case token.TRY:
		return p.parseTry()
	case token.SWITCH:
		return p.parseSwitch()
	case token.SEMI:
		semi := p.advance().Pos
		return &ast.Empty{Semi: semi}, nil
	case token.IDENT:
		// a bare identifier followed by ':' is a label, otherwise it's the
		// start of an expression statement.
		if p.toks[p.pos+1].Tok == token.COLON {
			return p.parseLabeled()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

// parseBlock parses a '{' ... '}' block; the opening brace is expected here.
func (p *Parser) parseBlock() (*ast.Block, error) {
	lbrace, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	rbrace, err := p.expect(token.RBRACE)
	if err != nil {
		return nil, err
	}
	return &ast.Block{Lbrace: lbrace.Pos, Stmts: stmts, Rbrace: rbrace.Pos}, nil
}

func (p *Parser) parseBlockStmt() (ast.Stmt, error) {
	return p.parseBlock()
}

func (p *Parser) declKind() ast.DeclKind {
	switch p.curTok() {
	case token.LET:
		return ast.DeclLet
	case token.CONST:
		return ast.DeclConst
	default:
		return ast.DeclVar
	}
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	start := p.cur().Pos
	kind := p.declKind()
	p.advance()

	var decls []ast.Declarator
	for {
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		d := ast.Declarator{Name: &ast.Identifier{Start: name.Pos, Name: name.Raw}}
		if p.match(token.EQUAL) {
			init, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			d.Init = init
		}
		decls = append(decls, d)
		if !p.match(token.COMMA) {
			break
		}
	}
	semi := p.consumeStmtTerminator()
	return &ast.VarDecl{Start: start, Kind: kind, Declarators: decls, Semi: semi}, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	semi := p.consumeStmtTerminator()
	return &ast.ExprStmt{X: e, Semi: semi}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ifPos := p.advance().Pos
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := &ast.If{IfPos: ifPos, Cond: cond, Then: then}
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			n.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			n.Else = elseBlock
		}
	}
	return n, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	whilePos := p.advance().Pos
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{WhilePos: whilePos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	doPos := p.advance().Pos
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	semi := p.consumeStmtTerminator()
	return &ast.DoWhile{DoPos: doPos, Body: body, Cond: cond, Semi: semi}, nil
}

// parseFor handles the three- part for, for-in and for-of forms, all
// introduced by the same 'for (' prefix.
func (p *Parser) parseFor() (ast.Stmt, error) {
	forPos := p.advance().Pos
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	// for (x in obj) / for (x of arr): a single bare or declared name
	// followed by 'in'/'of'.
	if isForInOrOf, name, declared, err := p.peekForInOf(); err != nil {
		return nil, err
	} else if isForInOrOf {
		return p.parseForInOf(forPos, name, declared)
	}

	var init ast.Stmt
	if !p.check(token.SEMI) {
		var err error
		if p.check(token.VAR) || p.check(token.LET) || p.check(token.CONST) {
			init, err = p.parseVarDecl()
		} else {
			e, exprErr := p.parseExpr()
			if exprErr != nil {
				return nil, exprErr
			}
			semi := p.consumeStmtTerminator()
			init = &ast.ExprStmt{X: e, Semi: semi}
			err = nil
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.advance() // bare ';'
	}

	// init already consumed its own trailing ';' (via parseVarDecl /
	// parseExprStmt's consumeStmtTerminator, or the bare ';' advance above).
	var cond ast.Expr
	if !p.check(token.SEMI) {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	var update ast.Expr
	if !p.check(token.RPAREN) {
		u, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		update = u
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{ForPos: forPos, Init: init, Cond: cond, Update: update, Body: body}, nil
}

// peekForInOf reports whether the upcoming tokens (after 'for (') form a
// `[var|let|const] IDENT (in|of) ...` header, without consuming anything
// unless it does.
func (p *Parser) peekForInOf() (bool, *ast.Identifier, bool, error) {
	save := p.pos
	declared := false
	if p.check(token.VAR) || p.check(token.LET) || p.check(token.CONST) {
		declared = true
		p.advance()
	}
	if !p.check(token.IDENT) {
		p.pos = save
		return false, nil, false, nil
	}
	name := p.cur()
	next := p.toks[p.pos+1].Tok
	if next != token.IN && next != token.OF {
		p.pos = save
		return false, nil, false, nil
	}
	p.advance() // consume identifier
	return true, &ast.Identifier{Start: name.Pos, Name: name.Raw}, declared, nil
}

func (p *Parser) parseForInOf(forPos token.Pos, name *ast.Identifier, _ bool) (ast.Stmt, error) {
	if p.match(token.IN) {
		obj, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ForIn{ForPos: forPos, Name: name, Object: obj, Body: body}, nil
	}
	if _, err := p.expect(token.OF); err != nil {
		return nil, err
	}
	arr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForOf{ForPos: forPos, Name: name, Arr: arr, Body: body}, nil
}

func (p *Parser) parseFunctionDecl() (ast.Stmt, error) {
	fnPos := p.advance().Pos
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{
		FnPos:  fnPos,
		Name:   &ast.Identifier{Start: name.Pos, Name: name.Raw},
		Params: params,
		Body:   body,
	}, nil
}

// parseClassDecl parses a class declaration, lowered later by the compiler
// to a constructor returning a positional Array of field values; no
// prototype chain.
func (p *Parser) parseClassDecl() (ast.Stmt, error) {
	classPos := p.advance().Pos
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	n := &ast.ClassDecl{ClassPos: classPos, Name: &ast.Identifier{Start: name.Pos, Name: name.Raw}}
	if p.match(token.EXTENDS) {
		super, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		n.Super = &ast.Identifier{Start: super.Pos, Name: super.Raw}
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if p.check(token.FUNCTION) || (p.check(token.IDENT) && p.toks[p.pos+1].Tok == token.LPAREN) {
			m, err := p.parseClassMethod()
			if err != nil {
				return nil, err
			}
			n.Methods = append(n.Methods, m)
			continue
		}
		field, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		d := ast.Declarator{Name: &ast.Identifier{Start: field.Pos, Name: field.Raw}}
		if p.match(token.EQUAL) {
			init, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			d.Init = init
		}
		p.consumeStmtTerminator()
		n.Fields = append(n.Fields, d)
	}
	rbrace, err := p.expect(token.RBRACE)
	if err != nil {
		return nil, err
	}
	n.Rbrace = rbrace.Pos
	return n, nil
}

func (p *Parser) parseClassMethod() (*ast.FunctionDecl, error) {
	fnPos := p.cur().Pos
	if p.check(token.FUNCTION) {
		p.advance()
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{
		FnPos:  fnPos,
		Name:   &ast.Identifier{Start: name.Pos, Name: name.Raw},
		Params: params,
		Body:   body,
	}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	start := p.advance().Pos
	var arg ast.Expr
	if !p.check(token.SEMI) && !p.check(token.RBRACE) && !p.check(token.EOF) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arg = a
	}
	semi := p.consumeStmtTerminator()
	return &ast.Return{Start: start, Arg: arg, Semi: semi}, nil
}

func (p *Parser) parseBreak() (ast.Stmt, error) {
	start := p.advance().Pos
	var label string
	if p.check(token.IDENT) {
		label = p.advance().Raw
	}
	semi := p.consumeStmtTerminator()
	return &ast.Break{Start: start, Label: label, Semi: semi}, nil
}

func (p *Parser) parseContinue() (ast.Stmt, error) {
	start := p.advance().Pos
	var label string
	if p.check(token.IDENT) {
		label = p.advance().Raw
	}
	semi := p.consumeStmtTerminator()
	return &ast.Continue{Start: start, Label: label, Semi: semi}, nil
}

func (p *Parser) parseThrow() (ast.Stmt, error) {
	start := p.advance().Pos
	arg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	semi := p.consumeStmtTerminator()
	return &ast.Throw{Start: start, Arg: arg, Semi: semi}, nil
}

func (p *Parser) parseTry() (ast.Stmt, error) {
	tryPos := p.advance().Pos
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := &ast.Try{TryPos: tryPos, Block: block}
	if p.match(token.CATCH) {
		c := &ast.Catch{}
		if p.match(token.LPAREN) {
			param, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			c.Param = &ast.Identifier{Start: param.Pos, Name: param.Raw}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		c.Body = body
		n.Catch = c
	}
	if p.match(token.FINALLY) {
		fin, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Finally = fin
	}
	return n, nil
}

// parseSwitch parses a switch statement; the compiler lowers it to an
// if/elif chain (SPEC_FULL.md).
func (p *Parser) parseSwitch() (ast.Stmt, error) {
	switchPos := p.advance().Pos
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	disc, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	var cases []ast.SwitchCase
	for p.check(token.CASE) || p.check(token.DEFAULT) {
		var test ast.Expr
		if p.match(token.CASE) {
			t, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			test = t
		} else {
			p.advance() // 'default'
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		var stmts []ast.Stmt
		for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) && !p.check(token.EOF) {
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
		cases = append(cases, ast.SwitchCase{Test: test, Stmts: stmts})
	}

	rbrace, err := p.expect(token.RBRACE)
	if err != nil {
		return nil, err
	}
	return &ast.Switch{SwitchPos: switchPos, Discriminant: disc, Cases: cases, Rbrace: rbrace.Pos}, nil
}

func (p *Parser) parseLabeled() (ast.Stmt, error) {
	label := p.advance()
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.Labeled{Label: label.Raw, LabelPos: label.Pos, Stmt: stmt}, nil
}
