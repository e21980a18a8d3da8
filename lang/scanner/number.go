package scanner

import (
	"go/token"
	"strconv"

	rtoken "github.com/oscarlin/rplus/lang/token"
)

// number scans an integer or floating-point literal starting at s.cur,
// following §4.1: a 0x/0X prefix selects a hex integer; otherwise decimal
// digits are scanned, a '.' followed by a digit promotes the literal to a
// float, and a trailing [eE][+-]?digits+ is consumed as a float exponent.
func (s *Scanner) number(pos token.Pos, start int) rtoken.Value {
	isFloat := false

	if s.cur == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.advance()
		s.advance()
		for isHexDigit(s.cur) {
			s.advance()
		}
		raw := string(s.src[start:s.off])
		v, err := strconv.ParseInt(raw[2:], 16, 64)
		if err != nil {
			// degenerate "0x" with no digits: treat as the literal value 0, per
			// the boundary behavior noted in §8.
			v = 0
		}
		return rtoken.Value{Tok: rtoken.NUMBER, Pos: pos, Raw: raw, Int: v}
	}

	for isDecimal(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDecimal(rune(s.peek())) {
		isFloat = true
		s.advance() // consume '.'
		for isDecimal(s.cur) {
			s.advance()
		}
	} else if s.cur == '.' {
		// lone trailing dot (e.g. "0.") is NOT part of the number: it stays a
		// separate DOT token, consumed by the next Scan call.
	}
	if s.cur == 'e' || s.cur == 'E' {
		save := s.off
		saveCur, saveRoff := s.cur, s.roff
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		if isDecimal(s.cur) {
			isFloat = true
			for isDecimal(s.cur) {
				s.advance()
			}
		} else {
			// not a valid exponent after all, rewind
			s.off, s.cur, s.roff = save, saveCur, saveRoff
		}
	}

	raw := string(s.src[start:s.off])
	if isFloat {
		f, _ := strconv.ParseFloat(raw, 64)
		return rtoken.Value{Tok: rtoken.FLOAT, Pos: pos, Raw: raw, Float: f}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.error(start, "integer literal value out of range")
	}
	return rtoken.Value{Tok: rtoken.NUMBER, Pos: pos, Raw: raw, Int: v}
}
