package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tordrt/schemadsl/internal/diagnostic"
)

// escapes maps the byte following a backslash to the byte it stands for.
// Any other escaped byte is kept literally, backslash included.
var escapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

// Lexer tokenizes schema description source text in a single left-to-right scan.
type Lexer struct {
	input string
	pos   int  // offset of ch
	ch    byte // current byte, 0 at end of input
	line  int  // line of ch
	col   int  // column of ch

	keepWhitespace bool
	errors         []*diagnostic.ParseError
}

// NewLexer creates a Lexer for the given source. Whitespace is skipped.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		col:    1,
		errors: []*diagnostic.ParseError{},
	}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// Tokenize scans the whole source. The returned token list always ends with an
// EOF token; lexical problems are reported in the error list and never stop the scan.
func Tokenize(source string) ([]Token, []*diagnostic.ParseError) {
	return NewLexer(source).all()
}

// TokenizeRaw is Tokenize with Whitespace tokens kept, so that concatenating every
// token's Raw reproduces the source byte for byte.
func TokenizeRaw(source string) ([]Token, []*diagnostic.ParseError) {
	l := NewLexer(source)
	l.keepWhitespace = true
	return l.all()
}

func (l *Lexer) all() ([]Token, []*diagnostic.ParseError) {
	tokens := make([]Token, 0, len(l.input)/4+1)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens, l.errors
}

// Errors returns the lexical errors recorded so far.
func (l *Lexer) Errors() []*diagnostic.ParseError {
	return l.errors
}

// readChar advances one byte. It is a no-op at end of input.
func (l *Lexer) readChar() {
	if l.atEOF() {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos++
	l.col++
	if l.pos < len(l.input) {
		l.ch = l.input[l.pos]
	} else {
		l.ch = 0
	}
}

// peekChar returns the byte n positions after the current one, or 0.
func (l *Lexer) peekChar(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() diagnostic.Position {
	return diagnostic.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) token(t TokenType, start diagnostic.Position, value string) Token {
	return Token{
		Type:  t,
		Value: value,
		Raw:   l.input[start.Offset:l.pos],
		Pos:   start,
	}
}

// single consumes n bytes as one token whose value equals its raw text.
func (l *Lexer) single(t TokenType, n int) Token {
	start := l.position()
	for i := 0; i < n; i++ {
		l.readChar()
	}
	raw := l.input[start.Offset:l.pos]
	return l.token(t, start, raw)
}

func (l *Lexer) errorf(code diagnostic.Code, pos diagnostic.Position, format string, args ...any) {
	l.errors = append(l.errors, diagnostic.Errorf(code, pos, format, args...))
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if !l.keepWhitespace {
		l.skipWhitespace()
	}

	start := l.position()
	if l.atEOF() {
		return Token{Type: EOF, Pos: start}
	}

	switch l.ch {
	case ' ', '\t', '\f', '\v':
		return l.readWhitespace()
	case '\r':
		if l.peekChar(1) == '\n' {
			return l.single(Newline, 2)
		}
		return l.readWhitespace()
	case '\n':
		return l.single(Newline, 1)
	case '/':
		switch l.peekChar(1) {
		case '/':
			return l.readLineComment()
		case '*':
			return l.readBlockComment()
		}
		return l.readIllegal()
	case '"', '\'', '`':
		return l.readString()
	case '{':
		return l.single(LBrace, 1)
	case '}':
		return l.single(RBrace, 1)
	case '[':
		return l.single(LBracket, 1)
	case ']':
		return l.single(RBracket, 1)
	case '(':
		return l.single(LParen, 1)
	case ')':
		return l.single(RParen, 1)
	case ',':
		return l.single(Comma, 1)
	case ':':
		return l.single(Colon, 1)
	case ';':
		return l.single(Semicolon, 1)
	case '.':
		return l.single(Dot, 1)
	case '-':
		return l.single(OneToOne, 1)
	case '>':
		return l.single(OneToMany, 1)
	case '<':
		if l.peekChar(1) == '>' {
			return l.single(ManyToMany, 2)
		}
		return l.single(ManyToOne, 1)
	case '#':
		if isAlnum(l.peekChar(1)) {
			return l.readColor()
		}
		return l.readIllegal()
	}

	switch {
	case isLetter(l.ch) || l.ch == '_' || l.ch == '$':
		return l.readIdentifierOrKeyword()
	case isDigit(l.ch):
		return l.readNumber()
	}
	return l.readIllegal()
}

func isSpace(ch, next byte) bool {
	switch ch {
	case ' ', '\t', '\f', '\v':
		return true
	case '\r':
		return next != '\n'
	}
	return false
}

// skipWhitespace skips spaces, tabs and lone carriage returns. Newlines are tokens.
func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && isSpace(l.ch, l.peekChar(1)) {
		l.readChar()
	}
}

func (l *Lexer) readWhitespace() Token {
	start := l.position()
	l.skipWhitespace()
	return l.token(Whitespace, start, l.input[start.Offset:l.pos])
}

// readLineComment reads from "//" up to, not including, the line break.
func (l *Lexer) readLineComment() Token {
	start := l.position()
	l.readChar()
	l.readChar()
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	body := strings.TrimSuffix(l.input[start.Offset+2:l.pos], "\r")
	return l.token(LineComment, start, body)
}

// readBlockComment reads a /* */ comment. Comments nest to any depth.
func (l *Lexer) readBlockComment() Token {
	start := l.position()
	l.readChar()
	l.readChar()

	depth := 1
	for depth > 0 {
		if l.atEOF() {
			l.errorf(diagnostic.CodeUnterminatedComment, start, "unterminated block comment")
			return l.token(BlockComment, start, l.input[start.Offset+2:l.pos])
		}
		switch {
		case l.ch == '/' && l.peekChar(1) == '*':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '*' && l.peekChar(1) == '/':
			depth--
			l.readChar()
			l.readChar()
		default:
			l.readChar()
		}
	}
	return l.token(BlockComment, start, l.input[start.Offset+2:l.pos-2])
}

// readString reads a quoted string. An unterminated string is reported and the
// token runs to the end of input.
func (l *Lexer) readString() Token {
	start := l.position()
	quote := l.ch
	if quote == '\'' && l.peekChar(1) == '\'' && l.peekChar(2) == '\'' {
		return l.readTripleString()
	}
	l.readChar()

	var sb strings.Builder
	for {
		if l.atEOF() {
			l.errorf(diagnostic.CodeUnterminatedString, start, "unterminated string literal")
			break
		}
		if l.ch == quote {
			l.readChar()
			break
		}
		if l.ch == '\\' && l.pos+1 < len(l.input) {
			next := l.peekChar(1)
			if esc, ok := escapes[next]; ok {
				sb.WriteByte(esc)
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			l.readChar()
			l.readChar()
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return l.token(String, start, sb.String())
}

// readTripleString reads a string fenced by three single quotes verbatim.
func (l *Lexer) readTripleString() Token {
	start := l.position()
	for i := 0; i < 3; i++ {
		l.readChar()
	}
	bodyStart := l.pos
	for {
		if l.atEOF() {
			l.errorf(diagnostic.CodeUnterminatedString, start, "unterminated string literal")
			return l.token(String, start, l.input[bodyStart:l.pos])
		}
		if l.ch == '\'' && l.peekChar(1) == '\'' && l.peekChar(2) == '\'' {
			body := l.input[bodyStart:l.pos]
			for i := 0; i < 3; i++ {
				l.readChar()
			}
			return l.token(String, start, body)
		}
		l.readChar()
	}
}

// readNumber reads an integer or a decimal with a single fractional part.
func (l *Lexer) readNumber() Token {
	start := l.position()
	for isDigit(l.ch) && !l.atEOF() {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar(1)) {
		l.readChar()
		for isDigit(l.ch) && !l.atEOF() {
			l.readChar()
		}
	}
	return l.token(Number, start, l.input[start.Offset:l.pos])
}

// readIdentifierOrKeyword reads an identifier and classifies it against the keyword table.
func (l *Lexer) readIdentifierOrKeyword() Token {
	start := l.position()
	for !l.atEOF() && (isAlnum(l.ch) || l.ch == '_' || l.ch == '$') {
		l.readChar()
	}
	lexeme := l.input[start.Offset:l.pos]
	return l.token(LookupKeyword(lexeme), start, lexeme)
}

// readColor reads a #rrggbb style color literal.
func (l *Lexer) readColor() Token {
	start := l.position()
	l.readChar()
	for !l.atEOF() && isAlnum(l.ch) {
		l.readChar()
	}
	return l.token(Color, start, l.input[start.Offset:l.pos])
}

// readIllegal consumes one full UTF-8 character and reports it.
func (l *Lexer) readIllegal() Token {
	start := l.position()
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	for i := 0; i < size; i++ {
		l.readChar()
	}
	raw := l.input[start.Offset:l.pos]
	name := raw
	if r == utf8.RuneError && size <= 1 {
		name = fmt.Sprintf("\\x%02x", raw)
	}
	l.errorf(diagnostic.CodeUnexpectedCharacter, start, "unexpected character '%s'", name)
	return l.token(Illegal, start, raw)
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlnum(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
