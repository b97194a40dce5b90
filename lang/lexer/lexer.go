// Package lexer tokenizes GTRPE/QuollVM source text. It is a single-file
// scanner in the style of nenuphar's lang/scanner, adapted to this language's
// simpler token set (no structured-language keywords; reserved words are
// resolved later by the expression compiler, not by the lexer).
package lexer

import (
	"strconv"
	"strings"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/token"
)

// PropertyInterner assigns stable small integer ids to property names,
// creating a new id the first time a name is seen. The lexer calls it for
// every `$name` token so that Property-tagged values can carry a concrete id
// immediately, without waiting for a later pass.
type PropertyInterner interface {
	InternProperty(name string) uint32
}

const maxStringBody = 65535

// Lex tokenizes all the given sources, in order, as if their files had been
// concatenated (spec.md: "lexing terminates each file with an EndOfFile
// token; file concatenation is safe"). Each source's origin uses its file
// name for diagnostics.
func Lex(sources []Source, props PropertyInterner, bag *diag.Bag) []token.Token {
	var out []token.Token
	for _, src := range sources {
		l := &lexer{file: src.Name, src: src.Text, props: props, bag: bag}
		out = append(out, l.run()...)
	}
	return out
}

// Source is one input file handed to the lexer.
type Source struct {
	Name string
	Text string
}

type lexer struct {
	file  string
	src   string
	pos   int
	line  int
	props PropertyInterner
	bag   *diag.Bag
}

func (l *lexer) run() []token.Token {
	l.line = 1
	var toks []token.Token
	for {
		tok, ok := l.next()
		if ok {
			toks = append(toks, tok)
		}
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func (l *lexer) origin() token.Origin { return token.Origin{File: l.file, Line: l.line} }

func (l *lexer) errorf(format string, args ...any) {
	l.bag.Errorf(diag.Origin{File: l.file, Line: l.line}, format, args...)
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

// skipSpaceAndComments skips whitespace and // and /* */ comments. A nested
// block comment or an unterminated block comment is a hard error, per
// spec.md §4.1.
func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekByteAt(1) == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekByteAt(1) == '*':
			start := l.origin()
			l.advance()
			l.advance()
			depth := 1
			for {
				if l.pos >= len(l.src) {
					l.bag.Errorf(diag.Origin{File: start.File, Line: start.Line}, "unterminated block comment")
					return
				}
				if l.peekByte() == '/' && l.peekByteAt(1) == '*' {
					l.bag.Errorf(l.diagOrigin(), "nested block comments are not allowed")
					l.advance()
					l.advance()
					depth++
					continue
				}
				if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
					l.advance()
					l.advance()
					depth--
					if depth == 0 {
						break
					}
					continue
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) diagOrigin() diag.Origin { return diag.Origin{File: l.file, Line: l.line} }

func isIdentStart(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// next scans and returns the next token. ok is false for a token that should
// not be appended to the output (currently unused, kept for symmetry with the
// teacher's Scan signature, which reports via tokVal pointer).
func (l *lexer) next() (token.Token, bool) {
	l.skipSpaceAndComments()
	origin := l.origin()

	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Origin: origin}, true
	}

	c := l.peekByte()
	switch {
	case isDigit(c) || (c == '-' && isDigit(l.peekByteAt(1))):
		// checked before isIdentStart: '-' is also a valid identifier-start
		// character for the second toolchain's identifiers, but a '-' directly
		// followed by a digit is always a negative integer literal.
		return l.scanNumber(origin), true
	case isIdentStart(c):
		return l.scanIdent(origin), true
	case c == '"':
		return l.scanString(origin), true
	case c == '\'':
		return l.scanCharLiteral(origin), true
	case c == '$':
		return l.scanProperty(origin), true
	case c == '@':
		return l.scanVocab(origin), true
	}

	l.advance()
	switch c {
	case ';':
		return token.Token{Kind: token.SEMICOLON, Origin: origin}, true
	case ':':
		return token.Token{Kind: token.COLON, Origin: origin}, true
	case '*':
		return token.Token{Kind: token.STAR, Origin: origin}, true
	case '{':
		return token.Token{Kind: token.OPEN_BRACE, Origin: origin}, true
	case '}':
		return token.Token{Kind: token.CLOSE_BRACE, Origin: origin}, true
	case '[':
		return token.Token{Kind: token.OPEN_SQUARE, Origin: origin}, true
	case ']':
		return token.Token{Kind: token.CLOSE_SQUARE, Origin: origin}, true
	case '(':
		return token.Token{Kind: token.OPEN_PAREN, Origin: origin}, true
	case ')':
		return token.Token{Kind: token.CLOSE_PAREN, Origin: origin}, true
	default:
		l.bag.Errorf(diag.Origin{File: origin.File, Line: origin.Line}, "unexpected character %q", c)
		return l.next()
	}
}

func (l *lexer) scanIdent(origin token.Origin) token.Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	return token.Token{Kind: token.IDENT, Text: l.src[start:l.pos], Origin: origin}
}

func (l *lexer) scanProperty(origin token.Origin) token.Token {
	l.advance() // '$'
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	name := l.src[start:l.pos]
	var id uint32
	if l.props != nil {
		id = l.props.InternProperty(name)
	}
	return token.Token{Kind: token.PROPERTY, Text: name, Int: int32(id), Origin: origin}
}

func (l *lexer) scanVocab(origin token.Origin) token.Token {
	l.advance() // '@'
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	return token.Token{Kind: token.VOCAB, Text: l.src[start:l.pos], Origin: origin}
}

func (l *lexer) scanCharLiteral(origin token.Origin) token.Token {
	l.advance() // opening '
	if l.pos >= len(l.src) {
		l.errorf("unterminated character literal")
		return token.Token{Kind: token.INTEGER, Origin: origin}
	}
	var ch byte
	if l.peekByte() == '\\' {
		l.advance()
		ch = l.decodeEscape()
	} else {
		ch = l.advance()
	}
	if l.peekByte() == '\'' {
		l.advance()
	} else {
		l.errorf("unterminated character literal")
	}
	return token.Token{Kind: token.INTEGER, Int: int32(ch), Origin: origin}
}

func (l *lexer) decodeEscape() byte {
	if l.pos >= len(l.src) {
		l.errorf("unterminated escape sequence")
		return 0
	}
	c := l.advance()
	switch c {
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '\'':
		return '\''
	case 'n':
		return '\n'
	default:
		l.errorf("invalid escape sequence \\%c", c)
		return c
	}
}

// scanString reads a "..." string literal, decoding escapes and folding
// multi-line indentation per spec.md §4.1: a newline followed by
// indentation collapses to one space, except a leading or trailing run,
// which collapses to nothing.
func (l *lexer) scanString(origin token.Origin) token.Token {
	l.advance() // opening quote
	var raw strings.Builder
	for {
		if l.pos >= len(l.src) {
			l.errorf("unterminated string literal")
			break
		}
		c := l.peekByte()
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			raw.WriteByte(l.advance())
		}
		raw.WriteByte(l.advance())
	}

	// Escapes are decoded after folding, so an escaped \n is never folded.
	d := &lexer{file: l.file, src: foldIndentation(raw.String()), line: origin.Line, bag: l.bag}
	var decoded strings.Builder
	for d.pos < len(d.src) {
		if c := d.advance(); c != '\\' {
			decoded.WriteByte(c)
		} else {
			decoded.WriteByte(d.decodeEscape())
		}
	}
	text := decoded.String()
	if len(text) > maxStringBody {
		l.bag.Warnf(diag.Origin{File: origin.File, Line: origin.Line},
			"string literal body longer than %d bytes, truncated", maxStringBody)
		text = text[:maxStringBody]
	}
	return token.Token{Kind: token.STRING, Text: text, Origin: origin}
}

// foldIndentation implements the multi-line string re-indentation rule: a
// line break followed by a run of indentation collapses to a single space,
// except a leading or trailing run (i.e. a line break adjacent to the start
// or end of the string), which collapses to nothing. This lets source keep
// multi-line strings re-indented to match surrounding code without the
// indentation leaking into the rendered text.
func foldIndentation(s string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c != '\n' {
			out.WriteByte(c)
			i++
			continue
		}
		// consume the newline and any following horizontal whitespace
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
			j++
		}
		leading := i == 0
		trailing := j == len(s)
		if !leading && !trailing {
			out.WriteByte(' ')
		}
		i = j
	}
	return out.String()
}

// scanNumber reads an Integer literal: an optional leading '-', then decimal
// digits, or a 0x/0X/0b/0B-prefixed hex/binary literal. '_' is accepted as a
// digit separator. Decimal values must fit signed 32-bit range; hex/binary
// values must fit unsigned 32-bit range (and are stored reinterpreted as
// signed), per spec.md §4.1 and the parser test table in spec.md §8.
func (l *lexer) scanNumber(origin token.Origin) token.Token {
	start := l.pos
	neg := false
	if l.peekByte() == '-' {
		neg = true
		l.advance()
	}

	base := 10
	digitsStart := l.pos
	if l.peekByte() == '0' && (lower(l.peekByteAt(1)) == 'x' || lower(l.peekByteAt(1)) == 'b') {
		if lower(l.peekByteAt(1)) == 'x' {
			base = 16
		} else {
			base = 2
		}
		l.advance()
		l.advance()
		digitsStart = l.pos
	}

	for l.pos < len(l.src) && (isHexOrSepDigit(l.peekByte(), base)) {
		l.advance()
	}

	raw := l.src[start:l.pos]
	digits := strings.ReplaceAll(l.src[digitsStart:l.pos], "_", "")
	if digits == "" {
		l.errorf("integer literal has no digits")
		return token.Token{Kind: token.INTEGER, Text: raw, Origin: origin}
	}

	var n int32
	if base == 10 {
		v, err := strconv.ParseInt(digits, 10, 64)
		if neg {
			v = -v
		}
		if err != nil || v < -2147483648 || v > 2147483647 {
			l.errorf("integer literal %q out of range", raw)
		} else {
			n = int32(v)
		}
	} else {
		v, err := strconv.ParseUint(digits, base, 64)
		if err != nil || v > 0xFFFFFFFF {
			l.errorf("integer literal %q out of range", raw)
		} else {
			n = int32(uint32(v))
		}
	}

	return token.Token{Kind: token.INTEGER, Text: raw, Int: n, Origin: origin}
}

func isHexOrSepDigit(c byte, base int) bool {
	if c == '_' {
		return true
	}
	switch base {
	case 16:
		return isDigit(c) || (lower(c) >= 'a' && lower(c) <= 'f')
	case 2:
		return c == '0' || c == '1'
	default:
		return isDigit(c)
	}
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
