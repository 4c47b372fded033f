package compiler

import (
	"strings"
	"testing"
)

func TestFormatSymbolTable(t *testing.T) {
	s := NewSymbolTable()
	s.AddVariable("zeta", TypeInt, 3)
	s.AddVariable("Alpha", TypeReal, 4)
	s.AddFunction("sum", 5, []string{"a", "b"}, []Type{TypeInt, TypeInt}, TypeInt)
	s.EnterScope("sum")
	s.AddParameter("b", TypeInt, 5)
	s.AddParameter("a", TypeInt, 5)
	s.ExitScope()

	out := FormatSymbolTable(s)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	var names []string
	for _, l := range lines[3:] {
		if f := strings.Fields(l); len(f) > 0 && f[0] != "Total" {
			names = append(names, f[0])
		}
	}
	if got := strings.Join(names, " "); got != "Alpha sum zeta a b" {
		t.Errorf("order = %q, want GLOBAL sorted by name then sum's scope", got)
	}
	assertContains(t, out, "INT,INT")
	assertContains(t, out, "Total symbols: 5")
	assertContains(t, out, "zeta             INT      GLOBAL           VAR            3  -\n\na ")
}

func TestFormatDeclarations(t *testing.T) {
	s := NewSymbolTable()
	s.AddVariable("x", TypeInt, 2)
	s.AddFunction("f", 3, []string{"n"}, []Type{TypeReal}, TypeInt)
	s.AddProcedure("p", 7, nil, nil)

	out := FormatDeclarations(s)
	assertContains(t, out, "Global variables (1):")
	assertContains(t, out, "FUNCTION f(REAL n): INT  line 3")
	assertContains(t, out, "PROCEDURE p()  line 7")
}

func TestFormatFaults(t *testing.T) {
	res := mustCompile(t, "PROGRAM p;\nMAIN\nBEGIN\n  a := 1;\n  b := 2;\n  WRITE(;\nEND")
	out := res.FormatFaults()
	assertContains(t, out, "Syntax errors (1):\n  line 6:")
	assertContains(t, out, "    |> WRITE(;")
	assertContains(t, out, "Semantic errors (2):\n  [VAR_NO_DEFINIDA] (2)\n    line 4: variable 'a' not declared\n    line 5:")
	assertContains(t, out, "Total faults: 3")
}

func TestFormatTokens(t *testing.T) {
	tokens, errs := Lex("x := 1 ?")
	out := FormatTokens(tokens, errs)
	assertContains(t, out, "   1  IDENTIFIER   \"x\"")
	assertContains(t, out, "   1  ASSIGN       \":=\"")
	assertContains(t, out, "error: line 1: unexpected character '?'")
	assertContains(t, out, "4 token(s), 1 error(s)")
}
