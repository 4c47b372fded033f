package compiler

import (
	"log/slog"
	"strings"
)

// Well-known scope names.
const (
	GlobalScope = "GLOBAL"
	MainScope   = "MAIN"
)

// Symbol is one declared identifier. Functions and procedures also carry
// their parameter list; procedures have ReturnType TypeNone.
type Symbol struct {
	Name     string
	Type     Type
	Scope    string
	Category Category
	Line     int

	ParamNames []string
	ParamTypes []Type
	ReturnType Type
}

func (s Symbol) clone() Symbol {
	s.ParamNames = append([]string(nil), s.ParamNames...)
	s.ParamTypes = append([]Type(nil), s.ParamTypes...)
	return s
}

type symbolKey struct {
	scope string
	name  string
}

func makeKey(scope, name string) symbolKey {
	return symbolKey{scope: strings.ToLower(scope), name: strings.ToLower(name)}
}

// SymbolTable maps (scope, name) pairs to symbols and tracks the active
// scope. Names and scopes compare case-insensitively.
//
// Resolution is deliberately two-level: the current scope, then GLOBAL.
// A symbol declared inside one function is never visible from another.
type SymbolTable struct {
	symbols []Symbol // insertion order
	index   map[symbolKey]int
	scopes  []string // GLOBAL is always scopes[0]
	log     *slog.Logger
}

func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{log: discardLogger}
	s.Reset()
	return s
}

// Reset drops every symbol and returns to the GLOBAL scope.
func (s *SymbolTable) Reset() {
	s.symbols = nil
	s.index = make(map[symbolKey]int)
	s.scopes = []string{GlobalScope}
}

// EnterScope makes name the current scope.
func (s *SymbolTable) EnterScope(name string) {
	s.scopes = append(s.scopes, name)
	s.log.Debug("enter scope", "scope", name, "stack", s.ScopeStack())
}

// ExitScope returns to the enclosing scope. Leaving GLOBAL is refused and
// reported as false.
func (s *SymbolTable) ExitScope() bool {
	if len(s.scopes) <= 1 {
		s.log.Warn("attempt to exit the GLOBAL scope ignored")
		return false
	}
	exited := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	s.log.Debug("exit scope", "scope", exited, "current", s.CurrentScope())
	return true
}

// CurrentScope returns the innermost scope name.
func (s *SymbolTable) CurrentScope() string {
	return s.scopes[len(s.scopes)-1]
}

// ScopeStack returns the scope names from GLOBAL to the current scope.
func (s *SymbolTable) ScopeStack() []string {
	return append([]string(nil), s.scopes...)
}

// Add inserts sym unless its (scope, name) key is taken, and reports
// whether it was inserted. A false return is not a fault by itself; callers
// decide whether it means a double definition.
func (s *SymbolTable) Add(sym Symbol) bool {
	key := makeKey(sym.Scope, sym.Name)
	if _, exists := s.index[key]; exists {
		return false
	}
	s.index[key] = len(s.symbols)
	s.symbols = append(s.symbols, sym.clone())
	s.log.Debug("symbol added", "scope", sym.Scope, "name", sym.Name, "category", sym.Category, "type", sym.Type)
	return true
}

// AddVariable declares a variable in the current scope.
func (s *SymbolTable) AddVariable(name string, typ Type, line int) bool {
	return s.Add(Symbol{Name: name, Type: typ, Scope: s.CurrentScope(), Category: CategoryVar, Line: line})
}

// AddParameter declares a parameter in the current scope.
func (s *SymbolTable) AddParameter(name string, typ Type, line int) bool {
	return s.Add(Symbol{Name: name, Type: typ, Scope: s.CurrentScope(), Category: CategoryParam, Line: line})
}

// AddFunction declares a function in GLOBAL. Its Type is its return type.
func (s *SymbolTable) AddFunction(name string, line int, paramNames []string, paramTypes []Type, ret Type) bool {
	return s.Add(Symbol{
		Name:       name,
		Type:       ret,
		Scope:      GlobalScope,
		Category:   CategoryFunction,
		Line:       line,
		ParamNames: paramNames,
		ParamTypes: paramTypes,
		ReturnType: ret,
	})
}

// AddProcedure declares a procedure (no return value) in GLOBAL.
func (s *SymbolTable) AddProcedure(name string, line int, paramNames []string, paramTypes []Type) bool {
	return s.Add(Symbol{
		Name:       name,
		Type:       TypeNone,
		Scope:      GlobalScope,
		Category:   CategoryProcedure,
		Line:       line,
		ParamNames: paramNames,
		ParamTypes: paramTypes,
	})
}

func (s *SymbolTable) get(key symbolKey) (Symbol, bool) {
	i, ok := s.index[key]
	if !ok {
		return Symbol{}, false
	}
	return s.symbols[i].clone(), true
}

// Lookup resolves name in the current scope, falling back to GLOBAL when
// the current scope is not GLOBAL itself.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	current := s.CurrentScope()
	if sym, ok := s.get(makeKey(current, name)); ok {
		return sym, true
	}
	if !strings.EqualFold(current, GlobalScope) {
		return s.get(makeKey(GlobalScope, name))
	}
	return Symbol{}, false
}

// LookupInCurrentScope resolves name in the current scope only.
func (s *SymbolTable) LookupInCurrentScope(name string) (Symbol, bool) {
	return s.get(makeKey(s.CurrentScope(), name))
}

// LookupInScope resolves name in the given scope only.
func (s *SymbolTable) LookupInScope(name, scope string) (Symbol, bool) {
	return s.get(makeKey(scope, name))
}

// Exists reports whether Lookup would find name.
func (s *SymbolTable) Exists(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// SymbolsInScope returns the symbols of one scope in insertion order.
func (s *SymbolTable) SymbolsInScope(scope string) []Symbol {
	var out []Symbol
	for _, sym := range s.symbols {
		if strings.EqualFold(sym.Scope, scope) {
			out = append(out, sym.clone())
		}
	}
	return out
}

// GlobalVariables returns the VAR symbols of GLOBAL in insertion order.
func (s *SymbolTable) GlobalVariables() []Symbol {
	var out []Symbol
	for _, sym := range s.SymbolsInScope(GlobalScope) {
		if sym.Category == CategoryVar {
			out = append(out, sym)
		}
	}
	return out
}

// FunctionsAndProcedures returns the callable symbols of GLOBAL in
// insertion order.
func (s *SymbolTable) FunctionsAndProcedures() []Symbol {
	var out []Symbol
	for _, sym := range s.SymbolsInScope(GlobalScope) {
		if sym.Category.IsCallable() {
			out = append(out, sym)
		}
	}
	return out
}

// All returns every symbol in insertion order.
func (s *SymbolTable) All() []Symbol {
	out := make([]Symbol, len(s.symbols))
	for i, sym := range s.symbols {
		out[i] = sym.clone()
	}
	return out
}

// Len returns the number of symbols.
func (s *SymbolTable) Len() int {
	return len(s.symbols)
}
