package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"abscc/pkg/asm"
)

var (
	// ErrInternal reports a bug in the driver's use of the semantic stack.
	ErrInternal = errors.New("internal compiler error")
	// ErrFaults reports that a compilation recorded faults and produced no
	// assembly.
	ErrFaults = errors.New("compilation failed")
)

// Result is the outcome of compiling one source file.
type Result struct {
	Name      string
	Tokens    []Token
	LexErrors []*LexError
	Syntax    []*SyntaxError

	Symbols  *SymbolTable
	Semantic []SemanticError
	Faults   []FaultGroup
	Stats    Stats

	Program  *asm.Program // nil unless OK
	Assembly string       // rendered Program, empty unless OK
}

// OK reports whether the compilation recorded no fault of any kind.
func (r *Result) OK() bool {
	return r.FaultCount() == 0
}

// FaultCount is the total of lexical, syntax and semantic faults.
func (r *Result) FaultCount() int {
	return len(r.LexErrors) + len(r.Syntax) + len(r.Semantic)
}

// Err returns ErrFaults wrapped with the fault count, or nil when OK.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%s: %w: %d fault(s)", r.Name, ErrFaults, r.FaultCount())
}

// Compile lexes and parses src while driving the semantic actions, then
// emits assembly only when no fault was recorded. Faults are reported
// through the Result; the returned error is non-nil only for an internal
// failure.
func Compile(name, src string, opts Options) (res *Result, err error) {
	c := NewCompilation(opts)
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*StackError)
			if !ok {
				panic(r)
			}
			c.log.Error("internal error", "file", name, "err", se)
			res, err = nil, fmt.Errorf("%s: %w: %v", name, ErrInternal, se)
		}
	}()

	res = &Result{Name: name, Symbols: c.Symbols}

	res.Tokens, res.LexErrors = Lex(src)
	for _, le := range res.LexErrors {
		c.log.Debug("lex error", "file", name, "line", le.Line, "msg", le.Message)
	}

	res.Syntax = Parse(res.Tokens, src, c)
	if n := c.Stack.Len(); n != 0 && len(res.Syntax) == 0 {
		c.log.Warn("semantic stack not empty after parse", "file", name, "depth", n)
	}

	res.Semantic = c.Errors.Errors()
	res.Faults = c.Errors.ByKind()

	if !res.OK() {
		res.Stats = c.Code.Stats()
		c.log.Info("compilation failed", "file", name, "faults", res.FaultCount())
		return res, nil
	}

	c.Code.DeclareAllGlobalVariables(c.Symbols)
	if err := c.Code.Err(); err != nil {
		c.log.Error("invalid instructions", "file", name, "err", err)
		return nil, fmt.Errorf("%s: %w: %v", name, ErrInternal, err)
	}
	res.Program = c.Code.Program(name)
	res.Assembly = res.Program.Render()
	res.Stats = c.Code.Stats()
	c.log.Info("compiled", "file", name, "stats", res.Stats.String())
	return res, nil
}

// CompileFile reads path and compiles it.
func CompileFile(path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return Compile(path, string(src), opts)
}

// writeFile creates path, hands it to write and always closes it. A close
// failure is reported when write itself succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteArtifact writes the assembly to path. It refuses a failed result and
// never modifies r.
func (r *Result) WriteArtifact(path string) error {
	if !r.OK() {
		return r.Err()
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := r.Program.WriteTo(w)
		return err
	})
}

// WriteSymbols writes the symbol table export to path.
func (r *Result) WriteSymbols(path string) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteSymbolTable(w, r.Symbols)
	})
}

// WriteErrors writes the fault report to path.
func (r *Result) WriteErrors(path string) error {
	return writeFile(path, r.WriteReport)
}
