package compiler

import (
	"fmt"
	"strings"
)

// Type is the semantic type of a symbol or evaluated operand.
type Type int

const (
	TypeNone Type = iota // no type: procedures, unset return types
	TypeInt
	TypeReal
	TypeChar
	TypeString
	TypeBool  // relational and NOT results
	TypeError // placeholder for operands that failed to resolve
)

var typeNames = [...]string{
	TypeNone:   "-",
	TypeInt:    "INT",
	TypeReal:   "REAL",
	TypeChar:   "CHAR",
	TypeString: "STRING",
	TypeBool:   "BOOL",
	TypeError:  "ERROR",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a declarable type name (INT, REAL, CHAR, STRING) to its Type.
func ParseType(s string) (Type, bool) {
	switch strings.ToUpper(s) {
	case "INT":
		return TypeInt, true
	case "REAL":
		return TypeReal, true
	case "CHAR":
		return TypeChar, true
	case "STRING":
		return TypeString, true
	}
	return TypeNone, false
}

// Category classifies what a symbol names.
type Category int

const (
	CategoryVar Category = iota
	CategoryParam
	CategoryFunction
	CategoryProcedure
)

var categoryNames = [...]string{
	CategoryVar:       "VAR",
	CategoryParam:     "PARAM",
	CategoryFunction:  "FUNCTION",
	CategoryProcedure: "PROCEDURE",
}

func (c Category) String() string {
	if int(c) >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// IsCallable reports whether c names a function or procedure.
func (c Category) IsCallable() bool {
	return c == CategoryFunction || c == CategoryProcedure
}
