package compiler

import (
	"strings"
	"testing"

	"abscc/pkg/asm"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

// assertNotContains checks that the generated code lacks the substring.
func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("Expected code NOT to contain %q, but it did.\nCode:\n%s", unexpected, code)
	}
}

// textOf renders the instruction section one line per record.
func textOf(cg *CodeGenerator) string {
	var sb strings.Builder
	for _, l := range cg.Text() {
		sb.WriteString(l.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestCodeGeneratorReset(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	data := cg.Data()
	if len(data) != 3 {
		t.Fatalf("predefined data = %v, want 3 entries", data)
	}
	want := []string{
		"newline DB 10, 0",
		"fmt_int DB '%d', 10, 0",
		"fmt_str DB '%s', 10, 0",
	}
	for i, w := range want {
		if data[i].String() != w {
			t.Errorf("data[%d] = %q, want %q", i, data[i].String(), w)
		}
	}

	cg.NewTemp()
	cg.NewLabel()
	cg.EmitIncrement("x")
	cg.Reset()
	if s := cg.Stats(); s.BSS != 0 || s.Instructions != 0 || s.Temporaries != 0 || s.Labels != 0 || s.Data != 3 {
		t.Errorf("Reset left state: %v", s)
	}
}

func TestCodeGeneratorAllocators(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)

	for i, want := range []string{"t0", "t1", "t2"} {
		if got := cg.NewTemp(); got != want {
			t.Errorf("temp %d = %s, want %s", i, got, want)
		}
	}
	bss := cg.BSS()
	if len(bss) != 3 || bss[2].String() != "t2 RESD 1" {
		t.Errorf("each temp must be declared once as RESD 1, got %v", bss)
	}

	if cg.NewLabel() != "L0" {
		t.Errorf("first label must be L0")
	}
	if got := cg.AddStringLiteral("hi"); got != "str1" {
		t.Errorf("string labels share the label counter, got %s", got)
	}
	if cg.NewLabel() != "L2" {
		t.Errorf("label after str1 must be L2")
	}
}

func TestDeclareGlobalVariable(t *testing.T) {
	t.Run("Sizes", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Linux)
		cg.DeclareGlobalVariable("i", TypeInt)
		cg.DeclareGlobalVariable("r", TypeReal)
		cg.DeclareGlobalVariable("c", TypeChar)
		cg.DeclareGlobalVariable("s", TypeString)
		cg.DeclareGlobalVariable("b", TypeBool)

		want := []string{"i RESD 1", "r RESQ 1", "c RESB 1", "s RESB 256", "b RESD 1"}
		bss := cg.BSS()
		if len(bss) != len(want) {
			t.Fatalf("bss = %v", bss)
		}
		for i, w := range want {
			if bss[i].String() != w {
				t.Errorf("bss[%d] = %q, want %q", i, bss[i].String(), w)
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Linux)
		cg.DeclareGlobalVariable("Count", TypeInt)
		cg.DeclareGlobalVariable("count", TypeInt)
		cg.DeclareGlobalVariable("COUNT", TypeReal)
		if n := len(cg.BSS()); n != 1 {
			t.Errorf("repeated declaration must not duplicate storage, got %d entries", n)
		}
	})

	t.Run("AllGlobals", func(t *testing.T) {
		syms := NewSymbolTable()
		syms.AddVariable("x", TypeInt, 1)
		syms.AddFunction("f", 2, nil, nil, TypeInt)
		syms.EnterScope("f")
		syms.AddVariable("local", TypeInt, 3)

		cg := NewCodeGenerator(asm.Linux)
		cg.DeclareAllGlobalVariables(syms)
		cg.DeclareAllGlobalVariables(syms)
		bss := cg.BSS()
		if len(bss) != 1 || bss[0].Label != "x" {
			t.Errorf("only GLOBAL variables are declared, once: %v", bss)
		}
	})
}

func TestArithmeticLowering(t *testing.T) {
	tests := []struct {
		name string
		emit func(cg *CodeGenerator)
		want []string
	}{
		{
			name: "Add",
			emit: func(cg *CodeGenerator) { cg.EmitAdd("t0", asm.Mem("x"), asm.Imm(2)) },
			want: []string{"    ; t0 = x + 2", "    MOV EAX, [x]", "    ADD EAX, 2", "    MOV [t0], EAX"},
		},
		{
			name: "Sub",
			emit: func(cg *CodeGenerator) { cg.EmitSub("t0", asm.Imm(9), asm.Mem("y")) },
			want: []string{"    ; t0 = 9 - y", "    MOV EAX, 9", "    SUB EAX, [y]", "    MOV [t0], EAX"},
		},
		{
			name: "Mul",
			emit: func(cg *CodeGenerator) { cg.EmitMul("t1", asm.Mem("a"), asm.Mem("b")) },
			want: []string{"    ; t1 = a * b", "    MOV EAX, [a]", "    IMUL EAX, [b]", "    MOV [t1], EAX"},
		},
		{
			name: "DivByVariable",
			emit: func(cg *CodeGenerator) { cg.EmitDiv("t0", asm.Mem("a"), asm.Mem("b")) },
			want: []string{"    ; t0 = a / b", "    MOV EAX, [a]", "    CDQ", "    IDIV DWORD [b]", "    MOV [t0], EAX"},
		},
		{
			name: "DivByImmediate",
			emit: func(cg *CodeGenerator) { cg.EmitDiv("t0", asm.Mem("a"), asm.Imm(3)) },
			want: []string{"    MOV EAX, [a]", "    CDQ", "    MOV ECX, 3", "    IDIV ECX", "    MOV [t0], EAX"},
		},
		{
			name: "Mod",
			emit: func(cg *CodeGenerator) { cg.EmitMod("t0", asm.Mem("a"), asm.Mem("b")) },
			want: []string{"    ; t0 = a MOD b", "    MOV EAX, [a]", "    CDQ", "    IDIV DWORD [b]", "    MOV [t0], EDX"},
		},
		{
			name: "AssignImmediate",
			emit: func(cg *CodeGenerator) { cg.EmitAssign(asm.Mem("x"), asm.Imm(5)) },
			want: []string{"    ; x = 5", "    MOV DWORD [x], 5"},
		},
		{
			name: "AssignFromMemory",
			emit: func(cg *CodeGenerator) { cg.EmitAssign(asm.Mem("result"), asm.Mem("t1")) },
			want: []string{"    ; result = t1", "    MOV EAX, [t1]", "    MOV [result], EAX"},
		},
		{
			name: "IncrementDecrement",
			emit: func(cg *CodeGenerator) { cg.EmitIncrement("i"); cg.EmitDecrement("j") },
			want: []string{"    ; i++", "    INC DWORD [i]", "    ; j--", "    DEC DWORD [j]"},
		},
		{
			name: "Negate",
			emit: func(cg *CodeGenerator) { cg.EmitNegate("t0", asm.Mem("x")) },
			want: []string{"    ; t0 = -x", "    MOV EAX, [x]", "    NEG EAX", "    MOV [t0], EAX"},
		},
		{
			name: "Not",
			emit: func(cg *CodeGenerator) { cg.EmitNot("t0", asm.Mem("f")) },
			want: []string{"    MOV EAX, [f]", "    CMP EAX, 0", "    SETE AL", "    MOVZX EAX, AL", "    MOV [t0], EAX"},
		},
		{
			name: "Equal",
			emit: func(cg *CodeGenerator) { cg.EmitEqual("t0", asm.Mem("x"), asm.Imm(1)) },
			want: []string{"    ; t0 = (x == 1)", "    MOV EAX, [x]", "    CMP EAX, 1", "    SETE AL", "    MOVZX EAX, AL", "    MOV [t0], EAX"},
		},
		{
			name: "IfEqual",
			emit: func(cg *CodeGenerator) { cg.EmitIfEqual(asm.Mem("x"), asm.Imm(0), "L4") },
			want: []string{"    MOV EAX, [x]", "    CMP EAX, 0", "    JE L4"},
		},
		{
			name: "IfNotEqual",
			emit: func(cg *CodeGenerator) { cg.EmitIfNotEqual(asm.Mem("x"), asm.Mem("y"), "L1") },
			want: []string{"    MOV EAX, [x]", "    CMP EAX, [y]", "    JNE L1"},
		},
		{
			name: "IfFalse",
			emit: func(cg *CodeGenerator) { cg.EmitIfFalse(asm.Mem("t3"), "L0") },
			want: []string{"    ; if (!t3) goto L0", "    CMP DWORD [t3], 0", "    JE L0"},
		},
		{
			name: "AssignCharImmediate",
			emit: func(cg *CodeGenerator) { cg.EmitAssign(asm.ByteMem("c"), asm.Imm('A')) },
			want: []string{"    ; c = 65", "    MOV BYTE [c], 65"},
		},
		{
			name: "AssignCharFromChar",
			emit: func(cg *CodeGenerator) { cg.EmitAssign(asm.ByteMem("c"), asm.ByteMem("d")) },
			want: []string{"    MOVZX EAX, BYTE [d]", "    MOV BYTE [c], AL"},
		},
		{
			name: "AssignIntFromChar",
			emit: func(cg *CodeGenerator) { cg.EmitAssign(asm.Mem("n"), asm.ByteMem("c")) },
			want: []string{"    MOVZX EAX, BYTE [c]", "    MOV [n], EAX"},
		},
		{
			name: "AddCharOperands",
			emit: func(cg *CodeGenerator) { cg.EmitAdd("t0", asm.ByteMem("c"), asm.ByteMem("d")) },
			want: []string{"    MOVZX EAX, BYTE [c]", "    MOVZX ECX, BYTE [d]", "    ADD EAX, ECX", "    MOV [t0], EAX"},
		},
		{
			name: "DivByChar",
			emit: func(cg *CodeGenerator) { cg.EmitDiv("t0", asm.Mem("a"), asm.ByteMem("c")) },
			want: []string{"    CDQ", "    MOVZX ECX, BYTE [c]", "    IDIV ECX"},
		},
		{
			name: "WriteChar",
			emit: func(cg *CodeGenerator) { cg.EmitWriteInt(asm.ByteMem("c")) },
			want: []string{"    MOVZX EAX, BYTE [c]", "    PUSH EAX", "    PUSH fmt_int"},
		},
		{
			name: "IfFalseChar",
			emit: func(cg *CodeGenerator) { cg.EmitIfFalse(asm.ByteMem("c"), "L0") },
			want: []string{"    CMP BYTE [c], 0", "    JE L0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cg := NewCodeGenerator(asm.Linux)
			tt.emit(cg)
			code := textOf(cg)
			assertContains(t, code, strings.Join(tt.want, "\n"))
			if err := cg.Err(); err != nil {
				t.Errorf("invalid instructions: %v", err)
			}
		})
	}
}

func TestInvalidInstructionIsRecorded(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	cg.emit(asm.MOV, asm.Imm(1), asm.Reg(asm.EAX))
	err := cg.Err()
	if err == nil || !strings.Contains(err.Error(), "MOV 1, EAX") {
		t.Fatalf("Err() = %v, want the malformed MOV", err)
	}
	cg.Reset()
	if err := cg.Err(); err != nil {
		t.Errorf("Reset kept %v", err)
	}
}

func TestCheckStorageName(t *testing.T) {
	linux := NewCodeGenerator(asm.Linux)
	windows := NewCodeGenerator(asm.Windows)
	tests := []struct {
		cg   *CodeGenerator
		name string
		ok   bool
	}{
		{linux, "total", true},
		{linux, "T0", true},
		{linux, "temp1", true},
		{linux, "t0", false},
		{linux, "L12", false},
		{linux, "str3", false},
		{linux, "newline", false},
		{linux, "fmt_int", false},
		{linux, "fmt_str", false},
		{linux, "printf", false},
		{linux, "_start", false},
		{linux, "eax", false},
		{linux, "Dword", false},
		{linux, "_main", true},
		{windows, "_main", false},
		{windows, "_printf", false},
		{windows, "printf", true},
	}
	for _, tt := range tests {
		err := tt.cg.CheckStorageName(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("%v CheckStorageName(%q) = %v, want ok=%v", tt.cg.Platform(), tt.name, err, tt.ok)
		}
	}
}

func TestIfElseLowering(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	lf := cg.EmitIfStart(asm.Mem("c"))
	cg.EmitIncrement("thenVar")
	lend := cg.EmitElse(lf)
	cg.EmitIncrement("elseVar")
	cg.EmitIfElseEnd(lend)

	if lf != "L0" || lend != "L1" {
		t.Fatalf("labels = %s, %s; want L0, L1", lf, lend)
	}

	var order []string
	for _, l := range cg.Text() {
		switch v := l.(type) {
		case asm.Instr:
			order = append(order, v.String())
		case asm.Label:
			order = append(order, v.String())
		}
	}
	want := []string{
		"    CMP DWORD [c], 0",
		"    JE L0",
		"    INC DWORD [thenVar]",
		"    JMP L1",
		"L0:",
		"    INC DWORD [elseVar]",
		"L1:",
	}
	if strings.Join(order, "\n") != strings.Join(want, "\n") {
		t.Errorf("IF-ELSE order:\n%s\nwant:\n%s", strings.Join(order, "\n"), strings.Join(want, "\n"))
	}
	if cg.Stats().Labels != 2 {
		t.Errorf("IF-ELSE must allocate exactly two labels, got %d", cg.Stats().Labels)
	}
}

func TestIfWithoutElse(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	lf := cg.EmitIfStart(asm.Mem("c"))
	cg.EmitIncrement("x")
	cg.EmitIfEnd(lf)

	code := textOf(cg)
	assertContains(t, code, "    JE L0\n    ; x++\n    INC DWORD [x]\nL0:")
	assertNotContains(t, code, "JMP")
}

func TestWriteLowering(t *testing.T) {
	t.Run("LinuxInt", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Linux)
		cg.EmitWriteInt(asm.Mem("x"))
		assertContains(t, textOf(cg), "    PUSH DWORD [x]\n    PUSH fmt_int\n    CALL printf\n    ADD ESP, 8")
	})

	t.Run("WindowsString", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Windows)
		label := cg.AddStringLiteral("Hola")
		cg.EmitWriteString(label)
		assertContains(t, textOf(cg), "    PUSH str0\n    PUSH fmt_str\n    CALL [_printf]\n    ADD ESP, 8")
	})

	t.Run("ImmediateInt", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Linux)
		cg.EmitWriteInt(asm.Imm(7))
		assertContains(t, textOf(cg), "    PUSH 7\n    PUSH fmt_int")
	})
}

func TestAddStringLiteral(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	label := cg.AddStringLiteral(`Hola\n`)
	label2 := cg.AddStringLiteral(`a\tb`)

	data := cg.Data()
	got := data[len(data)-2:]
	if got[0].Label != label || got[0].Value != `"Hola", 10, "", 0` {
		t.Errorf("newline escape: %q", got[0].String())
	}
	if got[1].Label != label2 || got[1].Value != `"a", 9, "b", 0` {
		t.Errorf("tab escape: %q", got[1].String())
	}
}

func TestSetEmitting(t *testing.T) {
	cg := NewCodeGenerator(asm.Linux)
	prev := cg.SetEmitting(false)
	if !prev {
		t.Errorf("emission must be on by default")
	}

	t0 := cg.NewTemp()
	cg.EmitAdd(t0, asm.Mem("a"), asm.Imm(1))
	cg.AddStringLiteral("muted")
	lf := cg.EmitIfStart(asm.Mem(t0))
	cg.EmitIfEnd(lf)
	cg.SetEmitting(prev)

	if n := len(cg.Text()); n != 0 {
		t.Errorf("muted generator recorded %d lines", n)
	}
	if n := len(cg.BSS()); n != 0 {
		t.Errorf("muted generator declared %d temporaries", n)
	}
	if n := len(cg.Data()); n != 3 {
		t.Errorf("muted generator added string data: %d entries", n)
	}
	if got := cg.NewTemp(); got != "t1" {
		t.Errorf("counters must advance while muted, next temp = %s", got)
	}
	if s := cg.Stats(); s.Labels != 2 {
		t.Errorf("labels = %d, want 2", s.Labels)
	}
}

func TestRender(t *testing.T) {
	t.Run("Linux", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Linux)
		cg.DeclareGlobalVariable("x", TypeInt)
		cg.EmitAssign(asm.Mem("x"), asm.Imm(5))
		code := cg.Render("demo.abs")

		assertContains(t, code, "; Source: demo.abs")
		assertContains(t, code, "extern printf\nextern exit\n")
		assertContains(t, code, "section .bss\n    x RESD 1\n")
		assertContains(t, code, "global _start\n\n_start:\n")
		assertContains(t, code, "    MOV DWORD [x], 5")
		assertContains(t, code, "    INT 0x80")
	})

	t.Run("Windows", func(t *testing.T) {
		cg := NewCodeGenerator(asm.Windows)
		code := cg.Render("")

		assertContains(t, code, "extern _printf\nextern _exit\n")
		assertContains(t, code, "global _main\n\n_main:\n")
		assertContains(t, code, "section .bss\n    ; (empty)\n")
		assertContains(t, code, "    CALL [_exit]")
		assertNotContains(t, code, "INT 0x80")
		assertNotContains(t, code, "; Source:")
	})
}
