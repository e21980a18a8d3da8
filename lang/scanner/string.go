package scanner

import "strings"

// escape table shared by string and char literals: \n \t \r \\ \" \0, plus
// \' for char literals. Any other escaped character yields the literal
// character that follows the backslash.
func decodeEscape(quote, c rune) (rune, bool) {
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case '0':
		return 0, true
	default:
		return c, true
	}
}

// shortString scans a double-quoted string literal. An unterminated string
// at EOF is accepted and yields the text collected so far (§4.1.3).
func (s *Scanner) shortString(quote rune) (raw, val string) {
	start := s.off
	var sb strings.Builder
	s.advance() // consume opening quote

	for {
		if s.cur == -1 {
			break // unterminated at EOF: accepted
		}
		if s.cur == quote {
			s.advance()
			break
		}
		if s.cur == '\\' {
			s.advance()
			if s.cur == -1 {
				break
			}
			r, _ := decodeEscape(quote, s.cur)
			sb.WriteRune(r)
			s.advance()
			continue
		}
		sb.WriteRune(s.cur)
		s.advance()
	}
	return string(s.src[start:s.off]), sb.String()
}

// charLiteral scans a single-quoted character literal. The closing quote is
// optional at EOF.
func (s *Scanner) charLiteral() (raw, val string) {
	start := s.off
	var sb strings.Builder
	s.advance() // consume opening quote

	if s.cur == '\\' {
		s.advance()
		if s.cur != -1 {
			r, _ := decodeEscape('\'', s.cur)
			sb.WriteRune(r)
			s.advance()
		}
	} else if s.cur != -1 && s.cur != '\'' {
		sb.WriteRune(s.cur)
		s.advance()
	}

	if s.cur == '\'' {
		s.advance()
	}
	return string(s.src[start:s.off]), sb.String()
}
