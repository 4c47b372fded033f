package compiler

import (
	"log/slog"

	"abscc/pkg/asm"
)

var discardLogger = slog.New(slog.DiscardHandler)

// Options configures one compilation.
type Options struct {
	Target asm.Platform
	Logger *slog.Logger // nil discards
}

// Compilation owns every piece of state for compiling one source file.
// Compilations share nothing and may run concurrently.
type Compilation struct {
	Symbols *SymbolTable
	Errors  *Analyzer
	Code    *CodeGenerator
	Stack   *SemanticStack

	log *slog.Logger
}

func NewCompilation(opts Options) *Compilation {
	log := opts.Logger
	if log == nil {
		log = discardLogger
	}
	c := &Compilation{
		Symbols: NewSymbolTable(),
		Errors:  NewAnalyzer(),
		Code:    NewCodeGenerator(opts.Target),
		log:     log,
	}
	c.Stack = NewSemanticStack(c.Symbols, c.Errors, c.Code)

	c.Symbols.log = log.With("component", "symtable")
	c.Errors.log = log.With("component", "analyzer")
	c.Code.log = log.With("component", "codegen")
	c.Stack.log = log.With("component", "semstack")
	return c
}

// Reset returns every component to its initial state so the Compilation
// can be reused.
func (c *Compilation) Reset() {
	c.Symbols.Reset()
	c.Errors.Reset()
	c.Code.Reset()
	c.Stack.Reset()
}
