package scanner

// lineComment consumes a '//' comment up to (not including) the terminating
// newline or EOF. The caller has only peeked at the second '/': on entry
// s.cur is still the leading '/'.
func (s *Scanner) lineComment() {
	start := s.off // position of the leading '/'
	s.advance()    // second '/'
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
	s.recordComment(start)
}

// blockComment consumes a '/* ... */' comment, reporting an error if it is
// never closed.
func (s *Scanner) blockComment() {
	startOff := s.off
	s.advance() // '*'
	for {
		if s.cur == -1 {
			s.error(startOff, "comment not terminated")
			break
		}
		if s.cur == '*' {
			s.advance()
			if s.advanceIf('/') {
				break
			}
			continue
		}
		s.advance()
	}
	s.recordComment(startOff)
}

// recordComment appends the comment spanning [start, s.off) to Comments, if
// the caller asked for comments to be collected.
func (s *Scanner) recordComment(start int) {
	if !s.CollectComments {
		return
	}
	s.Comments = append(s.Comments, RawComment{
		Pos:  s.file.Pos(start),
		Text: string(s.src[start:s.off]),
	})
}
