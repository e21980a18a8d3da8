package parser

import (
	"github.com/oscarlin/rplus/lang/ast"
	"github.com/oscarlin/rplus/lang/token"
)

// parseExpr parses a full expression, starting at the assignment level
// (the lowest precedence), per §4.2's precedence table.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssignment()
}

// parseAssignment implements precedence level 1 (right-associative).
func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}

	tok := p.curTok()
	isAssign := tok == token.EQUAL
	isCompound := token.IsCompoundAssign(tok)
	if !isAssign && !isCompound {
		return left, nil
	}

	if !ast.IsAssignable(left) {
		return nil, p.errorf("Invalid assignment target")
	}

	eqTok := p.advance()
	right, err := p.parseAssignment() // right-associative
	if err != nil {
		return nil, err
	}

	if isCompound {
		binOp := token.BinaryOpFromCompoundAssign(tok)
		// desugar `lhs op= rhs` to `lhs = lhs op rhs` (SPEC_FULL open question 1)
		right = &ast.Binary{Left: left, Op: binOp, OpPos: eqTok.Pos, Right: right}
	}

	return &ast.Assign{Target: left, Eq: eqTok.Pos, Value: right, CompoundOp: tok}, nil
}

// parseConditional implements the ternary `cond ? then : else` (SPEC_FULL
// addition, sitting between assignment and logical-or).
func (p *Parser) parseConditional() (ast.Expr, error) {
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.check(token.QUESTION) {
		return test, nil
	}
	qpos := p.advance().Pos
	then, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	els, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &ast.Conditional{Cond: qpos, Test: test, Then: then, Else: els}, nil
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(token.PIPEPIPE) {
		opPos := p.advance().Pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: token.PIPEPIPE, OpPos: opPos, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.check(token.AMPAMP) {
		opPos := p.advance().Pos
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: token.AMPAMP, OpPos: opPos, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.check(token.EQEQ) || p.check(token.BANGEQ) {
		t := p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: t.Tok, OpPos: t.Pos, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.check(token.LT) || p.check(token.LE) || p.check(token.GT) || p.check(token.GE) {
		t := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: t.Tok, OpPos: t.Pos, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(token.PLUS) || p.check(token.MINUS) {
		t := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: t.Tok, OpPos: t.Pos, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(token.STAR) || p.check(token.SLASH) || p.check(token.PERCENT) {
		t := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: t.Tok, OpPos: t.Pos, Right: right}
	}
	return left, nil
}

// parseUnary implements precedence level 8 (right-associative prefix ! -).
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(token.BANG) || p.check(token.MINUS) {
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: t.Tok, OpPos: t.Pos, Operand: operand, Prefix: true}, nil
	}
	return p.parsePostfix()
}

// parsePostfix implements precedence level 9: call, index and member chains.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.check(token.LPAREN):
			lparen := p.advance().Pos
			var args []ast.Expr
			if !p.check(token.RPAREN) {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if !p.match(token.COMMA) {
						break
					}
				}
			}
			rparen, err := p.expect(token.RPAREN)
			if err != nil {
				return nil, err
			}
			expr = &ast.Call{Callee: expr, Lparen: lparen, Args: args, Rparen: rparen.Pos}

		case p.check(token.LBRACK):
			lbrack := p.advance().Pos
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			rbrack, err := p.expect(token.RBRACK)
			if err != nil {
				return nil, err
			}
			expr = &ast.Index{Array: expr, Lbrack: lbrack, Idx: idx, Rbrack: rbrack.Pos}

		case p.check(token.DOT):
			dot := p.advance().Pos
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.Member{Object: expr, Dot: dot, Name: name.Raw, NamePos: name.Pos}

		default:
			return expr, nil
		}
	}
}

// parsePrimary implements precedence level 10.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Tok {
	case token.NUMBER:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitNumber, Raw: t.Raw, Value: t.Int}, nil
	case token.FLOAT:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitFloat, Raw: t.Raw, Value: t.Float}, nil
	case token.STRING:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitString, Raw: t.Raw, Value: t.Str}, nil
	case token.CHAR:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitChar, Raw: t.Raw, Value: t.Str}, nil
	case token.TRUE:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitBool, Raw: "true", Value: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitBool, Raw: "false", Value: false}, nil
	case token.NULL:
		p.advance()
		return &ast.Literal{Start: t.Pos, Kind: ast.LitNull, Raw: "null", Value: nil}, nil
	case token.THIS:
		p.advance()
		return &ast.This{Start: t.Pos}, nil
	case token.IDENT:
		p.advance()
		return &ast.Identifier{Start: t.Pos, Name: t.Raw}, nil
	case token.NEW:
		return p.parseNew()
	case token.FUNCTION:
		return p.parseLambda()
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACK:
		return p.parseArrayLit()
	case token.LBRACE:
		return p.parseObjectLit()
	default:
		return nil, p.unexpectedToken()
	}
}

func (p *Parser) parseArrayLit() (ast.Expr, error) {
	lbrack := p.advance().Pos
	var elems []ast.Expr
	if !p.check(token.RBRACK) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	rbrack, err := p.expect(token.RBRACK)
	if err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Lbrack: lbrack, Elements: elems, Rbrack: rbrack.Pos}, nil
}

func (p *Parser) parseObjectLit() (ast.Expr, error) {
	lbrace := p.advance().Pos
	var props []ast.ObjectProp
	if !p.check(token.RBRACE) {
		for {
			key, err := p.parseObjectKey()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.COLON); err != nil {
				return nil, err
			}
			val, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			props = append(props, ast.ObjectProp{Key: key.Raw, KeyPos: key.Pos, Value: val})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	rbrace, err := p.expect(token.RBRACE)
	if err != nil {
		return nil, err
	}
	return &ast.ObjectLit{Lbrace: lbrace, Props: props, Rbrace: rbrace.Pos}, nil
}

func (p *Parser) parseObjectKey() (token.Value, error) {
	if p.check(token.IDENT) || p.check(token.STRING) {
		return p.advance(), nil
	}
	return token.Value{}, p.errorf("expected object key")
}

func (p *Parser) parseLambda() (ast.Expr, error) {
	fnPos := p.advance().Pos
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
	return &ast.Lambda{Fn: fnPos, Params: params, Body: body}, nil
}

func (p *Parser) parseNew() (ast.Expr, error) {
	newPos := p.advance().Pos
	ctor, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	call, ok := ctor.(*ast.Call)
	if !ok {
		return nil, p.errorf("expected constructor call after 'new'")
	}
	return &ast.New{NewPos: newPos, Ctor: call.Callee, Args: call.Args, Rparen: call.Rparen}, nil
}

// parseParamList parses a comma-separated parameter list up to and
// including the closing ')'; the opening '(' has already been consumed.
func (p *Parser) parseParamList() ([]*ast.Identifier, error) {
	var params []*ast.Identifier
	if !p.check(token.RPAREN) {
		for {
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Identifier{Start: name.Pos, Name: name.Raw})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}
