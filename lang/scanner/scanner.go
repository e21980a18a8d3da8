// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the lexer for R+ source files: a single-pass,
// O(n) tokenizer with one character of lookahead, except that after an
// exponent marker ('e' or 'E') it reads up to two more characters (an
// optional sign and a digit) and rewinds if no digit follows. It never
// aborts on bad input -- lexical errors are reported through the supplied
// error handler, and an illegal character also surfaces as an ILLEGAL
// token, leaving error recovery to the parser.
package scanner

import (
	"go/scanner"
	"go/token"
	"os"

	rtoken "github.com/oscarlin/rplus/lang/token"
)

// Error and ErrorList are aliases for the standard library's scanner error
// types, reused rather than reinvented.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError prints a scanner error (or ErrorList) to w in a standard form.
var PrintError = scanner.PrintError

// ScanFile tokenizes the named file and returns the file set entry used for
// position resolution, the resulting tokens (always ending with an EOF
// token), and any lexical errors encountered. Lexing itself never aborts:
// scanning continues after an error (an illegal character is returned as an
// ILLEGAL token).
func ScanFile(filename string) (*token.FileSet, []rtoken.Value, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	return ScanSource(filename, b)
}

// ScanSource tokenizes src as if it were the content of filename.
func ScanSource(filename string, src []byte) (*token.FileSet, []rtoken.Value, error) {
	var el ErrorList

	fset := token.NewFileSet()
	file := fset.AddFile(filename, -1, len(src))

	var s Scanner
	s.Init(file, src, el.Add)

	var toks []rtoken.Value
	for {
		tv := s.Scan()
		toks = append(toks, tv)
		if tv.Tok == rtoken.EOF {
			break
		}
	}
	el.Sort()
	return fset, toks, el.Err()
}

// Scanner tokenizes a single source file for the parser to consume.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	cur rune // current character, -1 at EOF
	off int  // byte offset of cur
	roff int // byte offset just after cur
}

// Init prepares s to scan src, the content of file. It panics if file's size
// does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic("scanner: file size does not match src length")
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// advance reads the next byte into s.cur; s.cur == -1 means end of file.
// R+ source is treated as ASCII (see spec Non-goals): each byte is one
// character, so no UTF-8 decoding is attempted.
func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}
	s.cur = rune(s.src[s.roff])
	s.roff++
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

// advanceIf advances and returns true if the current character equals want.
func (s *Scanner) advanceIf(want byte) bool {
	if s.cur == rune(want) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file.
func (s *Scanner) Scan() rtoken.Value {
	s.skipWhitespaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok := rtoken.Lookup(lit)
		return rtoken.Value{Tok: tok, Pos: pos, Raw: lit}

	case isDecimal(cur) || (cur == '.' && isDecimal(rune(s.peek()))):
		return s.number(pos, start)

	case cur == '"':
		raw, val := s.shortString('"')
		return rtoken.Value{Tok: rtoken.STRING, Pos: pos, Raw: raw, Str: val}

	case cur == '\'':
		raw, val := s.charLiteral()
		return rtoken.Value{Tok: rtoken.CHAR, Pos: pos, Raw: raw, Str: val}

	case cur == -1:
		return rtoken.Value{Tok: rtoken.EOF, Pos: pos}

	default:
		s.advance() // always make progress
		return s.punct(cur, pos, start)
	}
}

func (s *Scanner) punct(cur rune, pos token.Pos, start int) rtoken.Value {
	mk := func(tok rtoken.Token) rtoken.Value {
		return rtoken.Value{Tok: tok, Pos: pos, Raw: string(s.src[start:s.off])}
	}

	switch cur {
	case '+':
		if s.advanceIf('+') {
			return mk(rtoken.PLUSPLUS)
		}
		if s.advanceIf('=') {
			return mk(rtoken.PLUSEQ)
		}
		return mk(rtoken.PLUS)
	case '-':
		if s.advanceIf('>') {
			return mk(rtoken.ARROW)
		}
		if s.advanceIf('-') {
			return mk(rtoken.MINUSMINUS)
		}
		if s.advanceIf('=') {
			return mk(rtoken.MINUSEQ)
		}
		return mk(rtoken.MINUS)
	case '*':
		if s.advanceIf('=') {
			return mk(rtoken.STAREQ)
		}
		return mk(rtoken.STAR)
	case '/':
		if s.advanceIf('/') {
			s.skipLineComment()
			return s.Scan()
		}
		if s.advanceIf('*') {
			s.skipBlockComment(start)
			return s.Scan()
		}
		if s.advanceIf('=') {
			return mk(rtoken.SLASHEQ)
		}
		return mk(rtoken.SLASH)
	case '%':
		if s.advanceIf('=') {
			return mk(rtoken.PERCENTEQ)
		}
		return mk(rtoken.PERCENT)
	case '=':
		if s.advanceIf('=') {
			return mk(rtoken.EQEQ)
		}
		return mk(rtoken.EQUAL)
	case '!':
		if s.advanceIf('=') {
			return mk(rtoken.BANGEQ)
		}
		return mk(rtoken.BANG)
	case '<':
		if s.advanceIf('=') {
			return mk(rtoken.LE)
		}
		if s.advanceIf('<') {
			return mk(rtoken.LTLT)
		}
		return mk(rtoken.LT)
	case '>':
		if s.advanceIf('=') {
			return mk(rtoken.GE)
		}
		if s.advanceIf('>') {
			return mk(rtoken.GTGT)
		}
		return mk(rtoken.GT)
	case '&':
		if s.advanceIf('&') {
			return mk(rtoken.AMPAMP)
		}
		return mk(rtoken.AMP)
	case '|':
		if s.advanceIf('|') {
			return mk(rtoken.PIPEPIPE)
		}
		return mk(rtoken.PIPE)
	case '^':
		return mk(rtoken.CARET)
	case '~':
		return mk(rtoken.TILDE)
	case '(':
		return mk(rtoken.LPAREN)
	case ')':
		return mk(rtoken.RPAREN)
	case '{':
		return mk(rtoken.LBRACE)
	case '}':
		return mk(rtoken.RBRACE)
	case '[':
		return mk(rtoken.LBRACK)
	case ']':
		return mk(rtoken.RBRACK)
	case ',':
		return mk(rtoken.COMMA)
	case ';':
		return mk(rtoken.SEMI)
	case ':':
		return mk(rtoken.COLON)
	case '?':
		return mk(rtoken.QUESTION)
	case '.':
		return mk(rtoken.DOT)
	default:
		s.error(start, "illegal character "+string(cur))
		return rtoken.Value{Tok: rtoken.ILLEGAL, Pos: pos, Raw: string(cur)}
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDecimal(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case isWhitespace(s.cur):
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			s.advance()
			s.advance()
			s.skipLineComment()
		case s.cur == '/' && s.peek() == '*':
			start := s.off
			s.advance()
			s.advance()
			s.skipBlockComment(start)
		default:
			return
		}
	}
}

func isWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_'
}
func isHexDigit(r rune) bool { return isDecimal(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F') }
func isDecimal(r rune) bool  { return '0' <= r && r <= '9' }
