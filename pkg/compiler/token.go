package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	INT_LIT    // decimal integer literal
	REAL_LIT   // decimal literal with a fractional part
	CHAR_LIT   // 'c'
	STRING_LIT // "..."

	// Keywords
	PROGRAM
	GLOBAL
	FUNCTION
	PROCEDURE
	MAIN
	BEGIN
	END
	IF
	THEN
	ELSE
	WRITE
	RETURN
	INT
	REAL
	CHAR
	STRING
	MOD
	DIV
	NOT

	// Punctuation
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	ASSIGN    // :=

	// Arithmetic operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PLUS_PLUS   // ++
	MINUS_MINUS // --

	// Relational operators
	EQUALS     // =
	NOT_EQ     // <>
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INT_LIT:     "INT_LIT",
	REAL_LIT:    "REAL_LIT",
	CHAR_LIT:    "CHAR_LIT",
	STRING_LIT:  "STRING_LIT",
	PROGRAM:     "PROGRAM",
	GLOBAL:      "GLOBAL",
	FUNCTION:    "FUNCTION",
	PROCEDURE:   "PROCEDURE",
	MAIN:        "MAIN",
	BEGIN:       "BEGIN",
	END:         "END",
	IF:          "IF",
	THEN:        "THEN",
	ELSE:        "ELSE",
	WRITE:       "WRITE",
	RETURN:      "RETURN",
	INT:         "INT",
	REAL:        "REAL",
	CHAR:        "CHAR",
	STRING:      "STRING",
	MOD:         "MOD",
	DIV:         "DIV",
	NOT:         "NOT",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	COLON:       "COLON",
	ASSIGN:      "ASSIGN",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PLUS_PLUS:   "PLUS_PLUS",
	MINUS_MINUS: "MINUS_MINUS",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isTypeKeyword reports whether tt starts a declaration.
func (tt TokenType) isTypeKeyword() bool {
	return tt == INT || tt == REAL || tt == CHAR || tt == STRING
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // source text; literals hold their content without quotes
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
