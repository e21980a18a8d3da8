package scanner

// skipLineComment consumes characters up to (but not including) the next
// newline or EOF. The caller has already consumed the leading "//".
func (s *Scanner) skipLineComment() {
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
}

// skipBlockComment consumes a /* ... */ comment. Nested /* */ is NOT
// supported (§4.1, §9): an inner "/*" is treated as ordinary content and
// does not increase any nesting depth. The caller has already consumed the
// leading "/*"; start is the byte offset of that leading slash, used only
// for the unterminated-comment error position.
func (s *Scanner) skipBlockComment(start int) {
	for {
		if s.cur == -1 {
			s.error(start, "comment not terminated")
			return
		}
		if s.cur == '*' && s.peek() == '/' {
			s.advance()
			s.advance()
			return
		}
		s.advance()
	}
}
