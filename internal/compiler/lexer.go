package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer converts source text into tokens. It never fails hard: bad
// input produces a diagnostic and the offending rune is skipped, so the
// parser always sees a well-formed (if truncated) stream.
type lexer struct {
	src  string
	off  int
	line int
	col  int
	bag  *diagnosticBag
}

func newLexer(src string, bag *diagnosticBag) *lexer {
	return &lexer{src: src, line: 1, col: 1, bag: bag}
}

// lex tokenizes the whole input, appending a final EOF token.
func (l *lexer) lex() []token {
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

// next returns the following token with byte offsets filled in.
func (l *lexer) next() token {
	l.skipSpaceAndComments()
	start := l.off
	t := l.scan()
	t.off = start
	t.end = l.off
	return t
}

// twoRunePuncts are the multi-rune operators, checked before single runes.
var twoRunePuncts = []string{"==", "!=", "<=", ">="}

func (l *lexer) scan() token {
	l.skipSpaceAndComments()

	pos := Position{Line: l.line, Column: l.col}
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: pos}
	}

	r, size := utf8.DecodeRuneInString(l.src[l.off:])

	switch {
	case isIdentStart(r):
		start := l.off
		for l.off < len(l.src) {
			r2, sz := utf8.DecodeRuneInString(l.src[l.off:])
			if !isIdentPart(r2) {
				break
			}
			l.advance(r2, sz)
		}
		text := l.src[start:l.off]
		if keywords[text] {
			return token{kind: tokKeyword, text: text, pos: pos}
		}
		return token{kind: tokIdent, text: text, pos: pos}

	case r >= '0' && r <= '9':
		start := l.off
		for l.off < len(l.src) && l.src[l.off] >= '0' && l.src[l.off] <= '9' {
			l.advance(rune(l.src[l.off]), 1)
		}
		return token{kind: tokInt, text: l.src[start:l.off], pos: pos}

	case r == '"':
		return l.lexString(pos)

	default:
		for _, p := range twoRunePuncts {
			if strings.HasPrefix(l.src[l.off:], p) {
				l.advance(rune(p[0]), 1)
				l.advance(rune(p[1]), 1)
				return token{kind: tokPunct, text: p, pos: pos}
			}
		}
		if strings.ContainsRune("{}()[],:.=<>+-*/!?;", r) {
			l.advance(r, size)
			return token{kind: tokPunct, text: string(r), pos: pos}
		}
		l.bag.errorf(pos, CodeSyntax, "unexpected character %q", string(r))
		l.advance(r, size)
		return l.scan()
	}
}

// lexString scans a double-quoted string with backslash escapes.
// Unterminated strings produce a diagnostic and yield what was read.
func (l *lexer) lexString(pos Position) token {
	l.advance('"', 1) // opening quote
	var sb strings.Builder
	for l.off < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		switch r {
		case '"':
			l.advance(r, size)
			return token{kind: tokString, text: sb.String(), pos: pos}
		case '\\':
			l.advance(r, size)
			if l.off >= len(l.src) {
				break
			}
			e, esz := utf8.DecodeRuneInString(l.src[l.off:])
			l.advance(e, esz)
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteRune(e)
			default:
				l.bag.errorf(pos, CodeSyntax, "unknown escape \\%s in string", string(e))
			}
		case '\n':
			l.bag.errorf(pos, CodeSyntax, "unterminated string")
			return token{kind: tokString, text: sb.String(), pos: pos}
		default:
			sb.WriteRune(r)
			l.advance(r, size)
		}
	}
	l.bag.errorf(pos, CodeSyntax, "unterminated string")
	return token{kind: tokString, text: sb.String(), pos: pos}
}

func (l *lexer) skipSpaceAndComments() {
	for l.off < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			l.advance(r, size)
		case r == '/' && strings.HasPrefix(l.src[l.off:], "//"):
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(rune(l.src[l.off]), 1)
			}
		default:
			return
		}
	}
}

func (l *lexer) advance(r rune, size int) {
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
