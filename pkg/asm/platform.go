package asm

import (
	"fmt"
	"strings"
)

// Platform selects the runtime symbols, call form, entry label and exit
// sequence of the generated program.
type Platform int

const (
	Linux Platform = iota
	Windows
)

// ParsePlatform maps "linux" or "windows" (any case) to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linux", "":
		return Linux, nil
	case "windows":
		return Windows, nil
	}
	return Linux, fmt.Errorf("unknown target platform %q (want linux or windows)", s)
}

func (p Platform) String() string {
	switch p {
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// PrintSymbol is the externally declared print routine.
func (p Platform) PrintSymbol() string {
	if p == Windows {
		return "_printf"
	}
	return "printf"
}

// ExitSymbol is the externally declared terminate routine.
func (p Platform) ExitSymbol() string {
	if p == Windows {
		return "_exit"
	}
	return "exit"
}

// EntryLabel is the global program entry point.
func (p Platform) EntryLabel() string {
	if p == Windows {
		return "_main"
	}
	return "_start"
}

// CallTarget is the operand of a CALL to the runtime symbol sym: a direct
// call on linux, an indirect call through the import table on windows.
func (p Platform) CallTarget(sym string) Operand {
	if p == Windows {
		return Mem(sym)
	}
	return Sym(sym)
}

// ExitSequence terminates the program with status 0.
func (p Platform) ExitSequence() []Line {
	if p == Windows {
		return []Line{
			NewInstr(PUSH, Imm(0)),
			NewInstr(CALL, p.CallTarget(p.ExitSymbol())),
		}
	}
	return []Line{
		NewInstr(MOV, Reg(EAX), Imm(1)),
		NewInstr(XOR, Reg(EBX), Reg(EBX)),
		NewInstr(INT, HexImm(0x80)),
	}
}
