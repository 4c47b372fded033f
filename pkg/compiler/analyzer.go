package compiler

import (
	"errors"
	"fmt"
	"log/slog"
)

// FaultKind groups semantic faults in reports. The String forms are the
// tags the ABS toolchain has always printed.
type FaultKind int

const (
	FaultGeneral FaultKind = iota
	FaultUndefinedVar
	FaultDoubleDefinition
	FaultDivisionByZero
)

var faultKindNames = [...]string{
	FaultGeneral:          "GENERAL",
	FaultUndefinedVar:     "VAR_NO_DEFINIDA",
	FaultDoubleDefinition: "DOBLE_DEFINICION",
	FaultDivisionByZero:   "DIVISION_POR_CERO",
}

func (k FaultKind) String() string {
	if int(k) >= 0 && int(k) < len(faultKindNames) {
		return faultKindNames[k]
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// SemanticError is one recorded semantic fault. Line 0 means no line.
type SemanticError struct {
	Line    int
	Message string
	Kind    FaultKind
}

func (e SemanticError) Error() string {
	if e.Line <= 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// FaultGroup is the faults of one kind, in insertion order.
type FaultGroup struct {
	Kind   FaultKind
	Errors []SemanticError
}

// Analyzer collects semantic faults. It never aborts analysis.
type Analyzer struct {
	errors []SemanticError
	log    *slog.Logger
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{log: discardLogger}
}

// Reset drops every recorded fault.
func (a *Analyzer) Reset() {
	a.errors = nil
}

// AddError records a fault of the given kind at line.
func (a *Analyzer) AddError(line int, message string, kind FaultKind) {
	a.errors = append(a.errors, SemanticError{Line: line, Message: message, Kind: kind})
	a.log.Debug("semantic error", "line", line, "kind", kind, "msg", message)
}

// AddGeneral records a GENERAL fault with no line.
func (a *Analyzer) AddGeneral(message string) {
	a.AddError(0, message, FaultGeneral)
}

// HasErrors reports whether any fault was recorded.
func (a *Analyzer) HasErrors() bool {
	return len(a.errors) > 0
}

// Count returns the number of recorded faults.
func (a *Analyzer) Count() int {
	return len(a.errors)
}

// Errors returns a copy of the recorded faults.
func (a *Analyzer) Errors() []SemanticError {
	return append([]SemanticError(nil), a.errors...)
}

// ByKind groups the faults by kind, kinds in first-seen order.
func (a *Analyzer) ByKind() []FaultGroup {
	var groups []FaultGroup
	pos := make(map[FaultKind]int)
	for _, e := range a.errors {
		i, ok := pos[e.Kind]
		if !ok {
			i = len(groups)
			pos[e.Kind] = i
			groups = append(groups, FaultGroup{Kind: e.Kind})
		}
		groups[i].Errors = append(groups[i].Errors, e)
	}
	return groups
}

// Err joins every fault into one error, or returns nil.
func (a *Analyzer) Err() error {
	if len(a.errors) == 0 {
		return nil
	}
	errs := make([]error, len(a.errors))
	for i, e := range a.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}
