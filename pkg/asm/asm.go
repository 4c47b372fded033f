// Package asm models the NASM x86 (32-bit) subset emitted by the ABS code
// generator and renders it to source text.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Opcode is an x86 mnemonic understood by the renderer.
type Opcode int

const (
	MOV Opcode = iota
	MOVZX
	ADD
	SUB
	IMUL
	IDIV
	CDQ
	NEG
	INC
	DEC
	CMP
	SETE
	XOR
	JMP
	JE
	JNE
	PUSH
	CALL
	INT
)

var opcodeNames = [...]string{
	MOV:   "MOV",
	MOVZX: "MOVZX",
	ADD:   "ADD",
	SUB:   "SUB",
	IMUL:  "IMUL",
	IDIV:  "IDIV",
	CDQ:   "CDQ",
	NEG:   "NEG",
	INC:   "INC",
	DEC:   "DEC",
	CMP:   "CMP",
	SETE:  "SETE",
	XOR:   "XOR",
	JMP:   "JMP",
	JE:    "JE",
	JNE:   "JNE",
	PUSH:  "PUSH",
	CALL:  "CALL",
	INT:   "INT",
}

func (op Opcode) String() string {
	if int(op) >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// operandCounts lists how many operands each opcode takes.
var operandCounts = map[Opcode]int{
	CDQ:   0,
	NEG:   1,
	INC:   1,
	DEC:   1,
	IDIV:  1,
	SETE:  1,
	JMP:   1,
	JE:    1,
	JNE:   1,
	PUSH:  1,
	CALL:  1,
	INT:   1,
	MOV:   2,
	MOVZX: 2,
	ADD:   2,
	SUB:   2,
	IMUL:  2,
	CMP:   2,
	XOR:   2,
}

// Register is a general purpose register.
type Register int

const (
	EAX Register = iota
	EBX
	ECX
	EDX
	ESP
	AL
)

var registerNames = [...]string{
	EAX: "EAX",
	EBX: "EBX",
	ECX: "ECX",
	EDX: "EDX",
	ESP: "ESP",
	AL:  "AL",
}

func (r Register) String() string {
	if int(r) >= 0 && int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("Register(%d)", int(r))
}

// OperandKind says which field of an Operand is meaningful.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindImmediate
	KindMemory
	KindSymbol
)

// Size is the explicit width prefix of a memory operand.
type Size int

const (
	SizeNone Size = iota
	SizeByte
	SizeDword
)

// Operand is one instruction argument.
type Operand struct {
	Kind OperandKind
	Reg  Register
	Imm  int64
	Name string // memory cell label or bare symbol
	Size Size   // width prefix of a memory operand
	Hex  bool   // render an immediate in hexadecimal
}

// Reg returns a register operand.
func Reg(r Register) Operand { return Operand{Kind: KindRegister, Reg: r} }

// Imm returns a decimal immediate operand.
func Imm(v int64) Operand { return Operand{Kind: KindImmediate, Imm: v} }

// HexImm returns an immediate rendered as 0x.. text.
func HexImm(v int64) Operand { return Operand{Kind: KindImmediate, Imm: v, Hex: true} }

// Mem returns a memory operand addressing the cell at label name.
func Mem(name string) Operand { return Operand{Kind: KindMemory, Name: name} }

// DwordMem is Mem with an explicit DWORD size.
func DwordMem(name string) Operand { return Operand{Kind: KindMemory, Name: name, Size: SizeDword} }

// ByteMem addresses a one-byte cell.
func ByteMem(name string) Operand { return Operand{Kind: KindMemory, Name: name, Size: SizeByte} }

// Sym returns a bare label operand (an address, not its contents).
func Sym(name string) Operand { return Operand{Kind: KindSymbol, Name: name} }

// IsImmediate reports whether o is an immediate.
func (o Operand) IsImmediate() bool { return o.Kind == KindImmediate }

// IsByte reports whether o is a one-byte memory cell.
func (o Operand) IsByte() bool { return o.Kind == KindMemory && o.Size == SizeByte }

// Sized returns a copy of an unsized memory operand carrying the DWORD
// prefix. Other operands are returned unchanged.
func (o Operand) Sized() Operand {
	if o.Kind == KindMemory && o.Size == SizeNone {
		o.Size = SizeDword
	}
	return o
}

func (o Operand) String() string {
	switch o.Kind {
	case KindRegister:
		return o.Reg.String()
	case KindImmediate:
		if o.Hex {
			return "0x" + strings.ToUpper(strconv.FormatInt(o.Imm, 16))
		}
		return strconv.FormatInt(o.Imm, 10)
	case KindMemory:
		switch o.Size {
		case SizeByte:
			return "BYTE [" + o.Name + "]"
		case SizeDword:
			return "DWORD [" + o.Name + "]"
		}
		return "[" + o.Name + "]"
	case KindSymbol:
		return o.Name
	}
	return fmt.Sprintf("Operand(%d)", int(o.Kind))
}

// Line is one record of the instruction section: an Instr, a Label or a
// Comment.
type Line interface {
	fmt.Stringer
	isLine()
}

// Instr is a single machine instruction.
type Instr struct {
	Op   Opcode
	Args []Operand
}

// Label places a branch target.
type Label struct {
	Name string
}

// Comment is an annotation line in the instruction stream.
type Comment struct {
	Text string
}

func (Instr) isLine()   {}
func (Label) isLine()   {}
func (Comment) isLine() {}

// NewInstr builds an instruction.
func NewInstr(op Opcode, args ...Operand) Instr {
	return Instr{Op: op, Args: args}
}

func (in Instr) String() string {
	if len(in.Args) == 0 {
		return "    " + in.Op.String()
	}
	parts := make([]string, len(in.Args))
	for i, a := range in.Args {
		parts[i] = a.String()
	}
	return "    " + in.Op.String() + " " + strings.Join(parts, ", ")
}

// Validate checks the operand count and that the destination of a
// two-operand instruction is not an immediate.
func (in Instr) Validate() error {
	want, ok := operandCounts[in.Op]
	if !ok {
		return fmt.Errorf("unknown opcode %s", in.Op)
	}
	if len(in.Args) != want {
		return fmt.Errorf("%s expects %d operand(s), got %d", in.Op, want, len(in.Args))
	}
	if want == 2 && in.Args[0].IsImmediate() {
		return fmt.Errorf("%s destination cannot be an immediate", in.Op)
	}
	if want == 2 && in.Args[0].Kind == KindMemory && in.Args[1].Kind == KindMemory {
		return fmt.Errorf("%s cannot take two memory operands", in.Op)
	}
	if in.Op == IDIV && in.Args[0].IsImmediate() {
		return fmt.Errorf("IDIV has no immediate form")
	}
	if in.Op == MOVZX && !in.Args[1].IsByte() && !(in.Args[1].Kind == KindRegister && in.Args[1].Reg == AL) {
		return fmt.Errorf("MOVZX source must be a byte")
	}
	if in.Op == MOV && in.Args[0].IsByte() && in.Args[1].Kind == KindRegister && in.Args[1].Reg != AL {
		return fmt.Errorf("MOV into a byte cell needs a byte register")
	}
	return nil
}

func (l Label) String() string { return l.Name + ":" }

func (c Comment) String() string { return "    ; " + c.Text }

// Directive is a data or storage pseudo-instruction.
type Directive int

const (
	DB Directive = iota
	RESB
	RESD
	RESQ
)

var directiveNames = [...]string{
	DB:   "DB",
	RESB: "RESB",
	RESD: "RESD",
	RESQ: "RESQ",
}

func (d Directive) String() string {
	if int(d) >= 0 && int(d) < len(directiveNames) {
		return directiveNames[d]
	}
	return fmt.Sprintf("Directive(%d)", int(d))
}

// Data is an initialized declaration in section .data.
type Data struct {
	Label string
	Value string // already in NASM syntax, e.g. '%d', 10, 0
}

func (d Data) String() string { return d.Label + " " + DB.String() + " " + d.Value }

// Reserve is an uninitialized declaration in section .bss.
type Reserve struct {
	Label     string
	Directive Directive
	Count     int
}

func (r Reserve) String() string {
	return fmt.Sprintf("%s %s %d", r.Label, r.Directive, r.Count)
}

// IsIdentifier reports whether s is a valid NASM label.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// sizeNames are the NASM width keywords.
var sizeNames = []string{"BYTE", "WORD", "DWORD", "QWORD"}

// IsReservedWord reports whether s is, case-insensitively, a mnemonic,
// register, directive or width keyword, none of which NASM accepts as a
// label.
func IsReservedWord(s string) bool {
	u := strings.ToUpper(s)
	for _, n := range opcodeNames {
		if n == u {
			return true
		}
	}
	for _, n := range registerNames {
		if n == u {
			return true
		}
	}
	for _, n := range directiveNames {
		if n == u {
			return true
		}
	}
	for _, n := range sizeNames {
		if n == u {
			return true
		}
	}
	return false
}
