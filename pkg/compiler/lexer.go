package compiler

import (
	"fmt"
	"strings"
	"unicode"
)

// keywords maps upper-cased source text to its keyword TokenType.
// ABS keywords are case-insensitive.
var keywords = map[string]TokenType{
	"PROGRAM":   PROGRAM,
	"GLOBAL":    GLOBAL,
	"FUNCTION":  FUNCTION,
	"PROCEDURE": PROCEDURE,
	"MAIN":      MAIN,
	"BEGIN":     BEGIN,
	"END":       END,
	"IF":        IF,
	"THEN":      THEN,
	"ELSE":      ELSE,
	"WRITE":     WRITE,
	"RETURN":    RETURN,
	"INT":       INT,
	"REAL":      REAL,
	"CHAR":      CHAR,
	"STRING":    STRING,
	"MOD":       MOD,
	"DIV":       DIV,
	"NOT":       NOT,
}

// LexError is a lexical fault. Scanning continues after it is recorded.
type LexError struct {
	Line    int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) errorf(line int, format string, args ...any) *LexError {
	return &LexError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBraceComment discards everything up to and including the closing "}".
// The opening "{" must already have been consumed.
func (l *Lexer) skipBraceComment() *LexError {
	startLine := l.line
	for l.pos < len(l.src) {
		if l.advance() == '}' {
			return nil
		}
	}
	return l.errorf(startLine, "unterminated comment")
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[strings.ToUpper(lexeme)]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

// scanNumber collects an integer literal, or a real literal when a '.' is
// followed by a digit. The first digit must still be at l.peek().
func (l *Lexer) scanNumber() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
		l.advance() // consume '.'
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
		return Token{Type: REAL_LIT, Lexeme: string(l.src[start:l.pos]), Line: line}
	}
	return Token{Type: INT_LIT, Lexeme: string(l.src[start:l.pos]), Line: line}
}

// scanChar collects a character literal 'c'.
func (l *Lexer) scanChar() (Token, *LexError) {
	line := l.line
	l.advance() // consume opening '

	r := l.peek()
	if r == '\'' {
		l.advance()
		return Token{}, l.errorf(line, "empty character literal")
	}
	if r == '\n' || r == 0 {
		return Token{}, l.errorf(line, "unterminated character literal")
	}
	l.advance()

	if l.peek() != '\'' {
		return Token{}, l.errorf(line, "unterminated character literal")
	}
	l.advance() // consume closing '

	return Token{Type: CHAR_LIT, Lexeme: string(r), Line: line}, nil
}

// scanString collects a string literal "...". Escape sequences are kept as
// written; the code generator expands \n and \t into byte values.
func (l *Lexer) scanString() (Token, *LexError) {
	line := l.line
	l.advance() // consume opening "
	start := l.pos

	for l.pos < len(l.src) {
		r := l.peek()
		if r == '"' {
			val := string(l.src[start:l.pos])
			l.advance() // consume closing "
			return Token{Type: STRING_LIT, Lexeme: val, Line: line}, nil
		}
		if r == '\n' {
			break
		}
		l.advance()
	}
	return Token{}, l.errorf(line, "unterminated string literal")
}

// nextToken skips whitespace/comments and returns the next Token. A non-nil
// *LexError means the offending input was consumed and no token was produced.
func (l *Lexer) nextToken() (Token, *LexError) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Lexeme: "", Line: l.line}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '{' {
			l.advance()
			if err := l.skipBraceComment(); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}

	ch := l.peek()
	line := l.line

	if unicode.IsLetter(ch) || ch == '_' {
		return l.scanIdent(), nil
	}
	if unicode.IsDigit(ch) {
		return l.scanNumber(), nil
	}
	if ch == '"' {
		return l.scanString()
	}
	if ch == '\'' {
		return l.scanChar()
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '(':
		return Token{LPAREN, "(", line}, nil
	case ')':
		return Token{RPAREN, ")", line}, nil
	case ';':
		return Token{SEMICOLON, ";", line}, nil
	case ',':
		return Token{COMMA, ",", line}, nil
	case ':':
		if l.peek() == '=' {
			l.advance()
			return Token{ASSIGN, ":=", line}, nil
		}
		return Token{COLON, ":", line}, nil
	case '+':
		if l.peek() == '+' {
			l.advance()
			return Token{PLUS_PLUS, "++", line}, nil
		}
		return Token{PLUS, "+", line}, nil
	case '-':
		if l.peek() == '-' {
			l.advance()
			return Token{MINUS_MINUS, "--", line}, nil
		}
		return Token{MINUS, "-", line}, nil
	case '*':
		return Token{STAR, "*", line}, nil
	case '/':
		return Token{SLASH, "/", line}, nil
	case '=':
		return Token{EQUALS, "=", line}, nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return Token{LESS_EQ, "<=", line}, nil
		}
		if l.peek() == '>' {
			l.advance()
			return Token{NOT_EQ, "<>", line}, nil
		}
		return Token{LESS, "<", line}, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{GREATER_EQ, ">=", line}, nil
		}
		return Token{GREATER, ">", line}, nil
	default:
		return Token{}, l.errorf(line, "unexpected character %q", ch)
	}
}

// Lex tokenises src and returns all tokens including the final EOF token,
// together with every lexical error found along the way.
func Lex(src string) ([]Token, []*LexError) {
	l := newLexer(src)
	var tokens []Token
	var errs []*LexError
	for {
		tok, err := l.nextToken()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, errs
		}
	}
}
