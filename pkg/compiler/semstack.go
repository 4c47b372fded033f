package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"abscc/pkg/asm"
)

// Entry is one operand on the semantic stack: a Constant or a Named
// location.
type Entry interface {
	EntryType() Type
	isEntry()
}

// Constant is a value known at analysis time. Value holds an int32 (INT),
// float64 (REAL), rune (CHAR) or string (STRING). ERROR constants hold the
// literal text that failed to parse.
type Constant struct {
	Type  Type
	Value any
}

// Named is a value held in a variable or temporary.
type Named struct {
	Type     Type
	Location string
}

func (c Constant) EntryType() Type { return c.Type }
func (n Named) EntryType() Type    { return n.Type }
func (Constant) isEntry()          {}
func (Named) isEntry()             {}

// Int returns the value of an INT constant.
func (c Constant) Int() (int32, bool) {
	if c.Type != TypeInt {
		return 0, false
	}
	v, ok := c.Value.(int32)
	return v, ok
}

func (c Constant) String() string {
	switch c.Type {
	case TypeChar:
		if r, ok := c.Value.(rune); ok {
			return strconv.QuoteRune(r)
		}
	case TypeString:
		if str, ok := c.Value.(string); ok {
			return strconv.Quote(str)
		}
	}
	return fmt.Sprint(c.Value)
}

func (n Named) String() string { return n.Location }

// StackError reports an operation on an empty semantic stack. It is raised
// as a panic because it means the driver's actions are unbalanced.
type StackError struct {
	Op string
}

func (e *StackError) Error() string {
	return "semantic stack: " + e.Op + " on empty stack"
}

// cell is the memory operand of a value of type t stored at name. CHAR
// variables occupy one byte.
func cell(name string, t Type) asm.Operand {
	if t == TypeChar {
		return asm.ByteMem(name)
	}
	return asm.Mem(name)
}

// operand returns the instruction operand for e. REAL, STRING and ERROR
// constants have no integer form and report false.
func operand(e Entry) (asm.Operand, bool) {
	switch v := e.(type) {
	case Named:
		return cell(v.Location, v.Type), true
	case Constant:
		// CHAR values are runes, which share int32's representation.
		if x, ok := v.Value.(int32); ok && (v.Type == TypeInt || v.Type == TypeChar) {
			return asm.Imm(int64(x)), true
		}
	}
	return asm.Operand{}, false
}

// SemanticStack evaluates expressions as the parser reduces them. It
// resolves names through the symbol table, reports faults to the analyzer
// and asks the code generator to lower anything it cannot fold.
type SemanticStack struct {
	entries []Entry

	symbols *SymbolTable
	faults  *Analyzer
	code    *CodeGenerator
	log     *slog.Logger
}

func NewSemanticStack(symbols *SymbolTable, faults *Analyzer, code *CodeGenerator) *SemanticStack {
	return &SemanticStack{symbols: symbols, faults: faults, code: code, log: discardLogger}
}

// Reset empties the stack.
func (s *SemanticStack) Reset() {
	s.entries = nil
}

func (s *SemanticStack) Push(e Entry) {
	s.entries = append(s.entries, e)
	s.log.Debug("push", "entry", e, "type", e.EntryType(), "depth", len(s.entries))
}

// Pop removes and returns the top entry. It panics with *StackError on an
// empty stack.
func (s *SemanticStack) Pop() Entry {
	if len(s.entries) == 0 {
		panic(&StackError{Op: "pop"})
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	s.log.Debug("pop", "entry", e, "depth", len(s.entries))
	return e
}

// Peek returns the top entry without removing it. It panics with
// *StackError on an empty stack.
func (s *SemanticStack) Peek() Entry {
	if len(s.entries) == 0 {
		panic(&StackError{Op: "peek"})
	}
	return s.entries[len(s.entries)-1]
}

func (s *SemanticStack) Len() int {
	return len(s.entries)
}

// Truncate drops entries above depth n.
func (s *SemanticStack) Truncate(n int) {
	if n < len(s.entries) {
		s.entries = s.entries[:max(n, 0)]
	}
}

// LoadConstant parses literal as t and pushes the constant. A malformed
// literal pushes an ERROR constant and returns the parse error.
func (s *SemanticStack) LoadConstant(t Type, literal string) error {
	var value any
	var err error
	switch t {
	case TypeInt:
		var n int64
		n, err = strconv.ParseInt(literal, 10, 32)
		value = int32(n)
	case TypeReal:
		value, err = strconv.ParseFloat(literal, 64)
	case TypeChar:
		r, size := utf8.DecodeRuneInString(literal)
		if size == 0 {
			err = errors.New("empty character literal")
		}
		value = r
	case TypeString:
		value = literal
	default:
		err = fmt.Errorf("type %v has no literals", t)
	}
	if err != nil {
		s.Push(Constant{Type: TypeError, Value: literal})
		return fmt.Errorf("invalid %v literal %q: %w", t, literal, err)
	}
	s.Push(Constant{Type: t, Value: value})
	return nil
}

// LoadVariable resolves name and pushes it. An unresolved name is reported
// as VAR_NO_DEFINIDA at line, a function or procedure name as GENERAL, and
// both are pushed as an ERROR placeholder.
func (s *SemanticStack) LoadVariable(name string, line int) {
	sym, ok := s.symbols.Lookup(name)
	if !ok {
		s.faults.AddError(line, fmt.Sprintf("variable '%s' not declared", name), FaultUndefinedVar)
		s.Push(Named{Type: TypeError, Location: name})
		return
	}
	if sym.Category.IsCallable() {
		s.faults.AddError(line, fmt.Sprintf("%v '%s' used as a variable", sym.Category, sym.Name), FaultGeneral)
		s.Push(Named{Type: TypeError, Location: sym.Name})
		return
	}
	s.Push(Named{Type: sym.Type, Location: sym.Name})
}

// ProcessBinaryOp reduces the top two entries with op. INT constants fold
// without emitting; anything else is lowered into a new temporary.
func (s *SemanticStack) ProcessBinaryOp(op BinaryOp, line int) {
	right := s.Pop()
	left := s.Pop()

	if op.divides() {
		if c, ok := right.(Constant); ok {
			if v, ok := c.Int(); ok && v == 0 {
				s.faults.AddError(line, fmt.Sprintf("division by zero in '%v %v 0'", left, op), FaultDivisionByZero)
				s.Push(Constant{Type: TypeInt, Value: int32(0)})
				return
			}
		}
	}

	lc, lok := left.(Constant)
	rc, rok := right.(Constant)
	if lok && rok {
		a, aok := lc.Int()
		b, bok := rc.Int()
		if aok && bok {
			v, err := foldBinary(op, a, b)
			if err != nil {
				s.faults.AddError(line, err.Error(), FaultGeneral)
			}
			s.log.Debug("folded", "left", a, "op", op, "right", b, "result", v)
			s.Push(Constant{Type: TypeInt, Value: v})
			return
		}
	}

	temp := s.code.NewTemp()
	lop, lok := operand(left)
	rop, rok := operand(right)
	if !lok || !rok {
		s.code.EmitUnlowered("%s = %v %v %v", temp, left, op, right)
		s.Push(Named{Type: left.EntryType(), Location: temp})
		return
	}
	switch op {
	case OpAdd:
		s.code.EmitAdd(temp, lop, rop)
	case OpSub:
		s.code.EmitSub(temp, lop, rop)
	case OpMul:
		s.code.EmitMul(temp, lop, rop)
	case OpDiv, OpIntDiv:
		s.code.EmitDiv(temp, lop, rop)
	case OpMod:
		s.code.EmitMod(temp, lop, rop)
	}
	s.Push(Named{Type: left.EntryType(), Location: temp})
}

// ProcessRelationalOp reduces the top two entries into a BOOL temporary.
// Only = is lowered; the other operators leave a placeholder comment.
func (s *SemanticStack) ProcessRelationalOp(op RelOp) {
	right := s.Pop()
	left := s.Pop()
	temp := s.code.NewTemp()

	lop, lok := operand(left)
	rop, rok := operand(right)
	switch {
	case op == RelEq && lok && rok:
		s.code.EmitEqual(temp, lop, rop)
	default:
		s.log.Warn("relational operator not lowered", "op", op.String(), "result", temp)
		s.code.EmitUnlowered("%s = (%v %v %v)", temp, left, op, right)
	}
	s.Push(Named{Type: TypeBool, Location: temp})
}

// ProcessUnaryOp reduces the top entry with op. Negating an INT constant
// folds; NOT is always lowered.
func (s *SemanticStack) ProcessUnaryOp(op UnaryOp) {
	e := s.Pop()

	if op == OpNeg {
		if c, ok := e.(Constant); ok {
			if v, ok := c.Int(); ok {
				s.Push(Constant{Type: TypeInt, Value: foldNegate(v)})
				return
			}
		}
	}

	temp := s.code.NewTemp()
	result := e.EntryType()
	if op == OpNot {
		result = TypeBool
	}
	o, ok := operand(e)
	switch {
	case !ok:
		s.code.EmitUnlowered("%s = %v %v", temp, op, e)
	case op == OpNeg:
		s.code.EmitNegate(temp, o)
	default:
		s.code.EmitNot(temp, o)
	}
	s.Push(Named{Type: result, Location: temp})
}

// assignable reports whether a value of type src may be stored in dst.
func assignable(dst, src Type) bool {
	if src == TypeError || dst == src {
		return true
	}
	switch dst {
	case TypeInt:
		return src == TypeBool || src == TypeChar
	case TypeReal:
		return src == TypeInt
	}
	return false
}

// Assign pops the value on top of the stack and stores it in target.
func (s *SemanticStack) Assign(target string, line int) {
	value := s.Pop()
	sym, ok := s.symbols.Lookup(target)
	if !ok {
		s.faults.AddError(line, fmt.Sprintf("variable '%s' not declared", target), FaultUndefinedVar)
		return
	}
	if sym.Category.IsCallable() {
		s.faults.AddError(line, fmt.Sprintf("cannot assign to %v '%s'", sym.Category, sym.Name), FaultGeneral)
		return
	}
	if !assignable(sym.Type, value.EntryType()) {
		s.faults.AddError(line, fmt.Sprintf("cannot assign %v to '%s' of type %v", value.EntryType(), sym.Name, sym.Type), FaultGeneral)
		return
	}
	if value.EntryType() == TypeError {
		return
	}

	if o, ok := operand(value); ok {
		s.code.EmitAssign(cell(sym.Name, sym.Type), o)
		return
	}
	s.code.EmitUnlowered("%s = %v", sym.Name, value)
}

// Write pops the value on top of the stack and prints it.
func (s *SemanticStack) Write(line int) {
	value := s.Pop()
	switch value.EntryType() {
	case TypeError:
		return
	case TypeString:
		if c, ok := value.(Constant); ok {
			s.code.EmitWriteString(s.code.AddStringLiteral(c.Value.(string)))
			return
		}
		s.code.EmitWriteString(value.(Named).Location)
		return
	case TypeReal:
		s.code.EmitUnlowered("WRITE(%v) of REAL value", value)
		return
	}
	o, ok := operand(value)
	if !ok {
		s.faults.AddError(line, fmt.Sprintf("cannot write %v", value), FaultGeneral)
		return
	}
	s.code.EmitWriteInt(o)
}

// BeginIf pops the condition and opens an IF on it, returning the label
// taken when the condition is false. A constant condition is stored in a
// temporary first.
func (s *SemanticStack) BeginIf() string {
	cond := s.Pop()
	var at asm.Operand
	switch v := cond.(type) {
	case Named:
		at = cell(v.Location, v.Type)
	case Constant:
		at = asm.Mem(s.code.NewTemp())
		if o, ok := operand(v); ok {
			s.code.EmitAssign(at, o)
		} else {
			s.code.EmitUnlowered("%s = %v", at.Name, v)
		}
	}
	return s.code.EmitIfStart(at)
}

// Else closes the THEN branch and returns the end label.
func (s *SemanticStack) Else(labelFalse string) string {
	return s.code.EmitElse(labelFalse)
}

// EndIf closes an IF without ELSE.
func (s *SemanticStack) EndIf(labelFalse string) {
	s.code.EmitIfEnd(labelFalse)
}

// EndIfElse closes an IF-ELSE.
func (s *SemanticStack) EndIfElse(labelEnd string) {
	s.code.EmitIfElseEnd(labelEnd)
}

// step resolves name for ++ and --, reporting a fault when it is not an
// assignable variable.
func (s *SemanticStack) step(name string, line int) (Symbol, bool) {
	sym, ok := s.symbols.Lookup(name)
	if !ok {
		s.faults.AddError(line, fmt.Sprintf("variable '%s' not declared", name), FaultUndefinedVar)
		return Symbol{}, false
	}
	if sym.Type != TypeInt || sym.Category.IsCallable() {
		s.faults.AddError(line, fmt.Sprintf("'%s' is not an INT variable", sym.Name), FaultGeneral)
		return Symbol{}, false
	}
	return sym, true
}

// Increment lowers name++.
func (s *SemanticStack) Increment(name string, line int) {
	if sym, ok := s.step(name, line); ok {
		s.code.EmitIncrement(sym.Name)
	}
}

// Decrement lowers name--.
func (s *SemanticStack) Decrement(name string, line int) {
	if sym, ok := s.step(name, line); ok {
		s.code.EmitDecrement(sym.Name)
	}
}

// Discard pops and drops the top entry, as after a RETURN expression.
func (s *SemanticStack) Discard() {
	s.Pop()
}
