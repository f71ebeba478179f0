// internal/browser/parser/css.go
package parser

import (
	"strings"
)

// Property is a lower-cased CSS property name (e.g., "display").
type Property string

// Declaration is a key-value pair (e.g., display: none).
type Declaration struct {
	Property  Property
	Value     string
	Important bool
}

// Rule pairs the raw selector list of a rule set with its declarations.
// Selector text is kept verbatim so callers can compile it with a real selector engine.
type Rule struct {
	Selector     string
	Declarations []Declaration
}

// StyleSheet is the ordered list of rules found in a stylesheet.
type StyleSheet struct {
	Rules []Rule
}

// Parser reads the subset of CSS the style engine needs: rule sets and
// declaration lists. It never fails; malformed input is skipped.
type Parser struct {
	s scanner
}

func NewParser(input string) *Parser {
	return &Parser{s: scanner{src: input}}
}

// Parse reads every top level rule set. At-rules (@media, @font-face, ...) are skipped.
func (p *Parser) Parse() StyleSheet {
	var sheet StyleSheet
	for p.s.skipTrivia() {
		if p.s.peek() == '@' {
			p.s.skipAtRule()
			continue
		}

		selector := p.s.readUntil('{')
		if p.s.done() {
			break
		}
		p.s.advance() // '{'
		declarations := p.declarations()
		p.s.accept('}')

		if selector != "" && len(declarations) > 0 {
			sheet.Rules = append(sheet.Rules, Rule{Selector: selector, Declarations: declarations})
		}
	}
	return sheet
}

// ParseInline parses the body of a style attribute ("color: red; display: none").
func ParseInline(style string) []Declaration {
	return NewParser(style).declarations()
}

// declarations reads a declaration list up to a closing brace or the end of input.
func (p *Parser) declarations() []Declaration {
	var out []Declaration
	for p.s.skipTrivia() && p.s.peek() != '}' {
		if p.s.accept(';') {
			continue
		}
		if decl, ok := p.declaration(); ok {
			out = append(out, decl)
		}
	}
	return out
}

// declaration reads one "property: value" pair and the ';' that ends it.
// A pair without a property name, colon or value is dropped.
func (p *Parser) declaration() (Declaration, bool) {
	defer p.s.accept(';')

	name := p.s.ident()
	p.s.skipSpace()
	if name == "" || !p.s.accept(':') {
		p.s.skipPast(';', '}')
		return Declaration{}, false
	}

	value := p.s.readUntil(';', '}')
	if value == "" {
		return Declaration{}, false
	}
	decl := Declaration{Property: Property(strings.ToLower(name)), Value: value}
	const bang = "!important"
	if n := len(value) - len(bang); n >= 0 && strings.EqualFold(value[n:], bang) {
		decl.Important = true
		decl.Value = strings.TrimSpace(value[:n])
	}
	return decl, true
}

// scanner is a byte cursor over CSS source.
type scanner struct {
	src string
	off int
}

func (s *scanner) done() bool { return s.off >= len(s.src) }

func (s *scanner) peek() byte {
	if s.done() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) advance() byte {
	c := s.peek()
	if !s.done() {
		s.off++
	}
	return c
}

func (s *scanner) accept(c byte) bool {
	if !s.done() && s.src[s.off] == c {
		s.off++
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for !s.done() && strings.IndexByte(" \t\n\r\f", s.src[s.off]) >= 0 {
		s.off++
	}
}

// skipTrivia skips whitespace and comments and reports whether input remains.
func (s *scanner) skipTrivia() bool {
	for {
		s.skipSpace()
		if !s.comment() {
			return !s.done()
		}
	}
}

// comment consumes a /* */ comment at the cursor, unterminated ones included.
func (s *scanner) comment() bool {
	if !strings.HasPrefix(s.src[s.off:], "/*") {
		return false
	}
	if end := strings.Index(s.src[s.off+2:], "*/"); end >= 0 {
		s.off += end + 4
	} else {
		s.off = len(s.src)
	}
	return true
}

// readUntil returns the trimmed text before the first stop byte that is not
// inside a string, comment or parenthesized group. The stop byte is not consumed.
func (s *scanner) readUntil(stops ...byte) string {
	start := s.off
	for !s.done() {
		c := s.src[s.off]
		switch {
		case strings.IndexByte(string(stops), c) >= 0:
			return strings.TrimSpace(s.src[start:s.off])
		case c == '"' || c == '\'':
			s.quoted(c)
		case c == '(':
			s.off++
			s.nested('(', ')')
		case s.comment():
		default:
			s.off++
		}
	}
	return strings.TrimSpace(s.src[start:])
}

// skipPast moves the cursor to the next stop byte without consuming it.
func (s *scanner) skipPast(stops ...byte) {
	for !s.done() && strings.IndexByte(string(stops), s.src[s.off]) < 0 {
		s.off++
	}
}

// nested consumes through the close byte matching an already consumed open byte.
func (s *scanner) nested(open, close byte) {
	for depth := 1; !s.done(); {
		switch s.advance() {
		case open:
			depth++
		case close:
			if depth--; depth == 0 {
				return
			}
		}
	}
}

func (s *scanner) quoted(q byte) {
	s.off++
	for !s.done() {
		switch s.advance() {
		case '\\':
			s.advance()
		case q:
			return
		}
	}
}

// skipAtRule drops an at-rule: either a statement ending in ';' or a block.
func (s *scanner) skipAtRule() {
	s.off++
	s.ident()
	for !s.done() {
		switch s.advance() {
		case ';':
			return
		case '{':
			s.nested('{', '}')
			return
		}
	}
}

func (s *scanner) ident() string {
	start := s.off
	for !s.done() && isIdentByte(s.src[s.off], s.off == start) {
		s.off++
	}
	return s.src[start:s.off]
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '-':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
