package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"abscc/pkg/asm"
)

// Runtime data declared in .data by every compilation.
const (
	newlineLabel = "newline"
	fmtIntLabel  = "fmt_int"
	fmtStrLabel  = "fmt_str"
)

// generatedName matches the temporaries, branch labels and string literal
// labels the generator allocates.
var generatedName = regexp.MustCompile(`^(t|L|str)[0-9]+$`)

// CodeGenerator owns the three output sections and lowers semantic
// operations into NASM x86 instructions. Every arithmetic lowering uses EAX
// as the accumulator.
type CodeGenerator struct {
	platform asm.Platform

	data []asm.Data
	bss  []asm.Reserve
	text []asm.Line

	declaredGlobals map[string]bool // case-folded names
	tempCounter     int
	labelCounter    int
	emitting        bool
	invalid         []error // malformed instruction records

	log *slog.Logger
}

// Stats summarises the generated output.
type Stats struct {
	Data         int
	BSS          int
	Instructions int
	Temporaries  int
	Labels       int
}

func (s Stats) String() string {
	return fmt.Sprintf("data: %d, bss: %d, text: %d, temporaries: %d, labels: %d",
		s.Data, s.BSS, s.Instructions, s.Temporaries, s.Labels)
}

func NewCodeGenerator(platform asm.Platform) *CodeGenerator {
	cg := &CodeGenerator{platform: platform, log: discardLogger}
	cg.Reset()
	return cg
}

// Reset clears all sections and counters and re-declares the runtime
// format strings.
func (cg *CodeGenerator) Reset() {
	cg.data = nil
	cg.bss = nil
	cg.text = nil
	cg.declaredGlobals = make(map[string]bool)
	cg.tempCounter = 0
	cg.labelCounter = 0
	cg.emitting = true
	cg.invalid = nil

	cg.addData(newlineLabel, "10, 0")
	cg.addData(fmtIntLabel, "'%d', 10, 0")
	cg.addData(fmtStrLabel, "'%s', 10, 0")
}

// Platform returns the target platform.
func (cg *CodeGenerator) Platform() asm.Platform {
	return cg.platform
}

// SetEmitting turns instruction output on or off and returns the previous
// setting. While off, instructions, temporary declarations and string
// literals are dropped but the counters still advance.
func (cg *CodeGenerator) SetEmitting(on bool) bool {
	prev := cg.emitting
	cg.emitting = on
	return prev
}

// Emitting reports whether instructions are currently recorded.
func (cg *CodeGenerator) Emitting() bool {
	return cg.emitting
}

// NewTemp allocates the next temporary and declares it as a 4-byte cell.
func (cg *CodeGenerator) NewTemp() string {
	temp := fmt.Sprintf("t%d", cg.tempCounter)
	cg.tempCounter++
	if cg.emitting {
		cg.addBss(temp, asm.RESD, 1)
	}
	return temp
}

// NewLabel allocates the next branch label.
func (cg *CodeGenerator) NewLabel() string {
	l := fmt.Sprintf("L%d", cg.labelCounter)
	cg.labelCounter++
	return l
}

func (cg *CodeGenerator) addData(label, value string) {
	cg.data = append(cg.data, asm.Data{Label: label, Value: value})
}

func (cg *CodeGenerator) addBss(label string, dir asm.Directive, count int) {
	cg.bss = append(cg.bss, asm.Reserve{Label: label, Directive: dir, Count: count})
}

func (cg *CodeGenerator) emit(op asm.Opcode, args ...asm.Operand) {
	if !cg.emitting {
		return
	}
	in := asm.NewInstr(op, args...)
	if err := in.Validate(); err != nil {
		cg.log.Error("invalid instruction", "instr", strings.TrimSpace(in.String()), "err", err)
		cg.invalid = append(cg.invalid, fmt.Errorf("%s: %w", strings.TrimSpace(in.String()), err))
	}
	cg.text = append(cg.text, in)
}

// Err reports every malformed instruction emitted since the last Reset.
func (cg *CodeGenerator) Err() error {
	return errors.Join(cg.invalid...)
}

// load moves src into r, zero-extending a byte cell.
func (cg *CodeGenerator) load(r asm.Register, src asm.Operand) {
	if src.IsByte() {
		cg.emit(asm.MOVZX, asm.Reg(r), src)
		return
	}
	cg.emit(asm.MOV, asm.Reg(r), src)
}

// widen returns src as a 32-bit source operand. A byte cell is staged in
// ECX first.
func (cg *CodeGenerator) widen(src asm.Operand) asm.Operand {
	if !src.IsByte() {
		return src
	}
	cg.load(asm.ECX, src)
	return asm.Reg(asm.ECX)
}

// EmitLabel places label in the instruction stream.
func (cg *CodeGenerator) EmitLabel(label string) {
	if !cg.emitting {
		return
	}
	cg.text = append(cg.text, asm.Label{Name: label})
}

// EmitComment appends an annotation line.
func (cg *CodeGenerator) EmitComment(format string, args ...any) {
	if !cg.emitting {
		return
	}
	cg.text = append(cg.text, asm.Comment{Text: fmt.Sprintf(format, args...)})
}

// describe renders an operand the way the lowering comments show it.
func describe(o asm.Operand) string {
	if o.Kind == asm.KindMemory {
		return o.Name
	}
	return o.String()
}

// storageFor maps a semantic type to its .bss reservation.
func storageFor(t Type) (asm.Directive, int) {
	switch t {
	case TypeInt:
		return asm.RESD, 1
	case TypeReal:
		return asm.RESQ, 1
	case TypeChar:
		return asm.RESB, 1
	case TypeString:
		return asm.RESB, 256
	}
	return asm.RESD, 1
}

// CheckStorageName reports why name cannot label a variable's storage:
// it is not a NASM identifier, it is an assembler keyword, or it collides
// with a label the generator defines itself.
func (cg *CodeGenerator) CheckStorageName(name string) error {
	switch {
	case !asm.IsIdentifier(name):
		return fmt.Errorf("'%s' is not a valid assembly label", name)
	case asm.IsReservedWord(name):
		return fmt.Errorf("'%s' is an assembler keyword", name)
	case generatedName.MatchString(name):
		return fmt.Errorf("'%s' is reserved for generated temporaries and labels", name)
	}
	switch name {
	case newlineLabel, fmtIntLabel, fmtStrLabel,
		cg.platform.PrintSymbol(), cg.platform.ExitSymbol(), cg.platform.EntryLabel():
		return fmt.Errorf("'%s' is reserved by the runtime", name)
	}
	return nil
}

// DeclareGlobalVariable reserves storage for a global. Repeated requests
// for the same name (case-insensitively) are ignored.
func (cg *CodeGenerator) DeclareGlobalVariable(name string, t Type) {
	key := strings.ToLower(name)
	if cg.declaredGlobals[key] {
		return
	}
	cg.declaredGlobals[key] = true
	dir, count := storageFor(t)
	cg.addBss(name, dir, count)
	cg.log.Debug("global declared", "name", name, "type", t)
}

// DeclareAllGlobalVariables reserves storage for every GLOBAL variable of
// syms, in declaration order.
func (cg *CodeGenerator) DeclareAllGlobalVariables(syms *SymbolTable) {
	for _, v := range syms.GlobalVariables() {
		cg.DeclareGlobalVariable(v.Name, v.Type)
	}
}

// EmitAssign stores src into the cell dst, a byte cell for CHAR
// variables. Immediates are stored directly; anything else goes through
// EAX.
func (cg *CodeGenerator) EmitAssign(dst, src asm.Operand) {
	cg.EmitComment("%s = %s", describe(dst), describe(src))
	if src.IsImmediate() {
		if dst.IsByte() {
			src = asm.Imm(src.Imm & 0xFF)
		}
		cg.emit(asm.MOV, dst.Sized(), src)
		return
	}
	cg.load(asm.EAX, src)
	if dst.IsByte() {
		cg.emit(asm.MOV, dst, asm.Reg(asm.AL))
		return
	}
	cg.emit(asm.MOV, dst, asm.Reg(asm.EAX))
}

// emitArith is the load, apply, store template shared by +, - and *.
func (cg *CodeGenerator) emitArith(op asm.Opcode, symbol, result string, left, right asm.Operand) {
	cg.EmitComment("%s = %s %s %s", result, describe(left), symbol, describe(right))
	cg.load(asm.EAX, left)
	cg.emit(op, asm.Reg(asm.EAX), cg.widen(right))
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EAX))
}

// EmitAdd lowers result = left + right.
func (cg *CodeGenerator) EmitAdd(result string, left, right asm.Operand) {
	cg.emitArith(asm.ADD, "+", result, left, right)
}

// EmitSub lowers result = left - right.
func (cg *CodeGenerator) EmitSub(result string, left, right asm.Operand) {
	cg.emitArith(asm.SUB, "-", result, left, right)
}

// EmitMul lowers result = left * right.
func (cg *CodeGenerator) EmitMul(result string, left, right asm.Operand) {
	cg.emitArith(asm.IMUL, "*", result, left, right)
}

// emitDivide loads left into EDX:EAX and divides by right. IDIV has no
// immediate form, so an immediate or byte divisor goes through ECX.
func (cg *CodeGenerator) emitDivide(left, right asm.Operand) {
	cg.load(asm.EAX, left)
	cg.emit(asm.CDQ)
	if right.IsImmediate() || right.IsByte() {
		cg.load(asm.ECX, right)
		cg.emit(asm.IDIV, asm.Reg(asm.ECX))
		return
	}
	cg.emit(asm.IDIV, right.Sized())
}

// EmitDiv lowers result = left / right (truncating).
func (cg *CodeGenerator) EmitDiv(result string, left, right asm.Operand) {
	cg.EmitComment("%s = %s / %s", result, describe(left), describe(right))
	cg.emitDivide(left, right)
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EAX))
}

// EmitMod lowers result = left MOD right. The remainder is left in EDX.
func (cg *CodeGenerator) EmitMod(result string, left, right asm.Operand) {
	cg.EmitComment("%s = %s MOD %s", result, describe(left), describe(right))
	cg.emitDivide(left, right)
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EDX))
}

// EmitIncrement lowers name++ in place.
func (cg *CodeGenerator) EmitIncrement(name string) {
	cg.EmitComment("%s++", name)
	cg.emit(asm.INC, asm.DwordMem(name))
}

// EmitDecrement lowers name-- in place.
func (cg *CodeGenerator) EmitDecrement(name string) {
	cg.EmitComment("%s--", name)
	cg.emit(asm.DEC, asm.DwordMem(name))
}

// EmitNegate lowers result = -operand.
func (cg *CodeGenerator) EmitNegate(result string, operand asm.Operand) {
	cg.EmitComment("%s = -%s", result, describe(operand))
	cg.load(asm.EAX, operand)
	cg.emit(asm.NEG, asm.Reg(asm.EAX))
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EAX))
}

// EmitNot lowers result = NOT operand as a 0/1 value.
func (cg *CodeGenerator) EmitNot(result string, operand asm.Operand) {
	cg.EmitComment("%s = NOT %s", result, describe(operand))
	cg.load(asm.EAX, operand)
	cg.emit(asm.CMP, asm.Reg(asm.EAX), asm.Imm(0))
	cg.emit(asm.SETE, asm.Reg(asm.AL))
	cg.emit(asm.MOVZX, asm.Reg(asm.EAX), asm.Reg(asm.AL))
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EAX))
}

// EmitEqual lowers result = (left == right) as a 0/1 value.
func (cg *CodeGenerator) EmitEqual(result string, left, right asm.Operand) {
	cg.EmitComment("%s = (%s == %s)", result, describe(left), describe(right))
	cg.load(asm.EAX, left)
	cg.emit(asm.CMP, asm.Reg(asm.EAX), cg.widen(right))
	cg.emit(asm.SETE, asm.Reg(asm.AL))
	cg.emit(asm.MOVZX, asm.Reg(asm.EAX), asm.Reg(asm.AL))
	cg.emit(asm.MOV, asm.Mem(result), asm.Reg(asm.EAX))
}

// EmitUnlowered records an operation the generator has no lowering for.
// Its result cell is left untouched.
func (cg *CodeGenerator) EmitUnlowered(format string, args ...any) {
	cg.EmitComment("not lowered: "+format, args...)
}

// EmitIfEqual branches to label when left == right.
func (cg *CodeGenerator) EmitIfEqual(left, right asm.Operand, label string) {
	cg.EmitComment("if (%s == %s) goto %s", describe(left), describe(right), label)
	cg.load(asm.EAX, left)
	cg.emit(asm.CMP, asm.Reg(asm.EAX), cg.widen(right))
	cg.emit(asm.JE, asm.Sym(label))
}

// EmitIfNotEqual branches to label when left != right.
func (cg *CodeGenerator) EmitIfNotEqual(left, right asm.Operand, label string) {
	cg.EmitComment("if (%s != %s) goto %s", describe(left), describe(right), label)
	cg.load(asm.EAX, left)
	cg.emit(asm.CMP, asm.Reg(asm.EAX), cg.widen(right))
	cg.emit(asm.JNE, asm.Sym(label))
}

// EmitIfFalse branches to label when the cell cond holds zero.
func (cg *CodeGenerator) EmitIfFalse(cond asm.Operand, label string) {
	cg.EmitComment("if (!%s) goto %s", describe(cond), label)
	cg.emit(asm.CMP, cond.Sized(), asm.Imm(0))
	cg.emit(asm.JE, asm.Sym(label))
}

// EmitIfStart opens an IF on the cell cond and returns the label taken
// when the condition is false.
func (cg *CodeGenerator) EmitIfStart(cond asm.Operand) string {
	labelFalse := cg.NewLabel()
	cg.EmitComment("=== IF ===")
	cg.EmitIfFalse(cond, labelFalse)
	return labelFalse
}

// EmitElse closes the THEN branch, opens the ELSE branch at labelFalse and
// returns the label that ends the statement.
func (cg *CodeGenerator) EmitElse(labelFalse string) string {
	labelEnd := cg.NewLabel()
	cg.emit(asm.JMP, asm.Sym(labelEnd))
	cg.EmitLabel(labelFalse)
	cg.EmitComment("=== ELSE ===")
	return labelEnd
}

// EmitIfEnd closes an IF without ELSE.
func (cg *CodeGenerator) EmitIfEnd(labelFalse string) {
	cg.EmitLabel(labelFalse)
	cg.EmitComment("=== END IF ===")
}

// EmitIfElseEnd closes an IF-ELSE.
func (cg *CodeGenerator) EmitIfElseEnd(labelEnd string) {
	cg.EmitLabel(labelEnd)
	cg.EmitComment("=== END IF-ELSE ===")
}

// emitPrint pushes arg and the format label, calls the print routine and
// drops both 4-byte arguments.
func (cg *CodeGenerator) emitPrint(arg asm.Operand, format string) {
	cg.emit(asm.PUSH, arg)
	cg.emit(asm.PUSH, asm.Sym(format))
	cg.emit(asm.CALL, cg.platform.CallTarget(cg.platform.PrintSymbol()))
	cg.emit(asm.ADD, asm.Reg(asm.ESP), asm.Imm(8))
}

// EmitWriteInt lowers WRITE of an integer value.
func (cg *CodeGenerator) EmitWriteInt(value asm.Operand) {
	cg.EmitComment("WRITE(%s)", describe(value))
	if value.IsByte() {
		cg.load(asm.EAX, value)
		value = asm.Reg(asm.EAX)
	}
	cg.emitPrint(value.Sized(), fmtIntLabel)
}

// EmitWriteString lowers WRITE of the string stored at label.
func (cg *CodeGenerator) EmitWriteString(label string) {
	cg.EmitComment("WRITE(string)")
	cg.emitPrint(asm.Sym(label), fmtStrLabel)
}

// AddStringLiteral declares content in .data and returns its label. The
// two-character sequences \n and \t become embedded byte values.
func (cg *CodeGenerator) AddStringLiteral(content string) string {
	label := fmt.Sprintf("str%d", cg.labelCounter)
	cg.labelCounter++
	if !cg.emitting {
		return label
	}
	content = strings.ReplaceAll(content, `\n`, `", 10, "`)
	content = strings.ReplaceAll(content, `\t`, `", 9, "`)
	cg.addData(label, `"`+content+`", 0`)
	return label
}

// Data returns a copy of the .data section.
func (cg *CodeGenerator) Data() []asm.Data {
	return append([]asm.Data(nil), cg.data...)
}

// BSS returns a copy of the .bss section.
func (cg *CodeGenerator) BSS() []asm.Reserve {
	return append([]asm.Reserve(nil), cg.bss...)
}

// Text returns a copy of the instruction section.
func (cg *CodeGenerator) Text() []asm.Line {
	return append([]asm.Line(nil), cg.text...)
}

// Instructions returns only the machine instructions of the text section.
func (cg *CodeGenerator) Instructions() []asm.Instr {
	var out []asm.Instr
	for _, l := range cg.text {
		if in, ok := l.(asm.Instr); ok {
			out = append(out, in)
		}
	}
	return out
}

// Program assembles the sections into a renderable unit.
func (cg *CodeGenerator) Program(source string) *asm.Program {
	header := []string{
		"Generated by the ABS compiler",
		"Target: " + cg.platform.String(),
	}
	if source != "" {
		header = append(header, "Source: "+source)
	}
	return &asm.Program{
		Platform: cg.platform,
		Header:   header,
		Data:     cg.Data(),
		BSS:      cg.BSS(),
		Text:     cg.Text(),
	}
}

// Render returns the complete NASM source.
func (cg *CodeGenerator) Render(source string) string {
	return cg.Program(source).Render()
}

// Stats reports section sizes and allocator counters.
func (cg *CodeGenerator) Stats() Stats {
	return Stats{
		Data:         len(cg.data),
		BSS:          len(cg.bss),
		Instructions: len(cg.Instructions()),
		Temporaries:  cg.tempCounter,
		Labels:       cg.labelCounter,
	}
}
