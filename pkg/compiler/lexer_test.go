package compiler

import (
	"reflect"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
		wantErr  bool
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Operators",
			input: "+ - * / := = <> < > <= >= ++ -- ; , : ( )",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: ASSIGN, Lexeme: ":=", Line: 1},
				{Type: EQUALS, Lexeme: "=", Line: 1},
				{Type: NOT_EQ, Lexeme: "<>", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: PLUS_PLUS, Lexeme: "++", Line: 1},
				{Type: MINUS_MINUS, Lexeme: "--", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: COLON, Lexeme: ":", Line: 1},
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords Are Case Insensitive",
			input: "program Global BEGIN end Mod div nOt counter",
			expected: []Token{
				{Type: PROGRAM, Lexeme: "program", Line: 1},
				{Type: GLOBAL, Lexeme: "Global", Line: 1},
				{Type: BEGIN, Lexeme: "BEGIN", Line: 1},
				{Type: END, Lexeme: "end", Line: 1},
				{Type: MOD, Lexeme: "Mod", Line: 1},
				{Type: DIV, Lexeme: "div", Line: 1},
				{Type: NOT, Lexeme: "nOt", Line: 1},
				{Type: IDENTIFIER, Lexeme: "counter", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:    "Trailing Dot",
			input:   "7.",
			wantErr: true,
		},
		{
			name:  "Comments And Lines",
			input: "x { block\ncomment } := 1; // tail\ny",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: ASSIGN, Lexeme: ":=", Line: 2},
				{Type: INT_LIT, Lexeme: "1", Line: 2},
				{Type: SEMICOLON, Lexeme: ";", Line: 2},
				{Type: IDENTIFIER, Lexeme: "y", Line: 3},
				{Type: EOF, Lexeme: "", Line: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, errs := Lex(tt.input)
			if (len(errs) > 0) != tt.wantErr {
				t.Fatalf("Lex() errors = %v, wantErr %v", errs, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("Lex() got:\n%v\nwant:\n%v", tokens, tt.expected)
			}
		})
	}
}

func TestLexLiterals(t *testing.T) {
	tokens, errs := Lex(`42 3.14 'a' "Hola\n"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	expected := []Token{
		{Type: INT_LIT, Lexeme: "42", Line: 1},
		{Type: REAL_LIT, Lexeme: "3.14", Line: 1},
		{Type: CHAR_LIT, Lexeme: "a", Line: 1},
		{Type: STRING_LIT, Lexeme: `Hola\n`, Line: 1},
		{Type: EOF, Lexeme: "", Line: 1},
	}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("got:\n%v\nwant:\n%v", tokens, expected)
	}
}

func TestLexErrorsContinue(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errLine int
	}{
		{"Unexpected Character", "x @ y", 1},
		{"Unterminated String", "x\n\"abc\ny", 2},
		{"Empty Char", "''", 1},
		{"Unterminated Comment", "x { never closed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, errs := Lex(tt.input)
			if len(errs) == 0 {
				t.Fatalf("expected a lexical error")
			}
			if errs[0].Line != tt.errLine {
				t.Errorf("error line = %d, want %d", errs[0].Line, tt.errLine)
			}
			if tokens[len(tokens)-1].Type != EOF {
				t.Errorf("token stream must still end with EOF, got %v", tokens[len(tokens)-1])
			}
		})
	}

	t.Run("Scanning Resumes", func(t *testing.T) {
		tokens, errs := Lex("a @ b")
		if len(errs) != 1 {
			t.Fatalf("errors = %v, want 1", errs)
		}
		if len(tokens) != 3 || tokens[0].Lexeme != "a" || tokens[1].Lexeme != "b" {
			t.Errorf("tokens = %v, want a, b, EOF", tokens)
		}
	})
}
