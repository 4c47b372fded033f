package compiler

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
)

// sortedSymbols orders symbols by scope, GLOBAL first and the rest
// alphabetically, then by name. Comparisons ignore case.
func sortedSymbols(syms []Symbol) []Symbol {
	out := slices.Clone(syms)
	scopeRank := func(s string) int {
		if strings.EqualFold(s, GlobalScope) {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(out, func(a, b Symbol) int {
		return cmp.Or(
			cmp.Compare(scopeRank(a.Scope), scopeRank(b.Scope)),
			strings.Compare(strings.ToLower(a.Scope), strings.ToLower(b.Scope)),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})
	return out
}

func typeList(types []Type) string {
	if len(types) == 0 {
		return "-"
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// FormatSymbolTable renders the fixed-width symbol table export.
func FormatSymbolTable(syms *SymbolTable) string {
	var sb strings.Builder
	header := fmt.Sprintf("%-16s %-8s %-16s %-10s %5s  %s", "NAME", "TYPE", "SCOPE", "CATEGORY", "LINE", "PARAMS")
	sb.WriteString("SYMBOL TABLE\n")
	sb.WriteString(header + "\n")
	sb.WriteString(strings.Repeat("-", len(header)) + "\n")

	prevScope := ""
	for i, s := range sortedSymbols(syms.All()) {
		if i > 0 && !strings.EqualFold(s.Scope, prevScope) {
			sb.WriteString("\n")
		}
		prevScope = s.Scope
		params := "-"
		if s.Category.IsCallable() {
			params = typeList(s.ParamTypes)
		}
		fmt.Fprintf(&sb, "%-16s %-8s %-16s %-10s %5d  %s\n", s.Name, s.Type, s.Scope, s.Category, s.Line, params)
	}
	fmt.Fprintf(&sb, "\nTotal symbols: %d\n", syms.Len())
	return sb.String()
}

// WriteSymbolTable writes FormatSymbolTable(syms) to w.
func WriteSymbolTable(w io.Writer, syms *SymbolTable) error {
	_, err := io.WriteString(w, FormatSymbolTable(syms))
	return err
}

// signature renders a callable as NAME(TYPE a, TYPE b): RET.
func signature(s Symbol) string {
	params := make([]string, len(s.ParamNames))
	for i, n := range s.ParamNames {
		t := TypeNone
		if i < len(s.ParamTypes) {
			t = s.ParamTypes[i]
		}
		params[i] = t.String() + " " + n
	}
	sig := fmt.Sprintf("%s %s(%s)", s.Category, s.Name, strings.Join(params, ", "))
	if s.Category == CategoryFunction {
		sig += ": " + s.ReturnType.String()
	}
	return sig
}

// FormatDeclarations lists the GLOBAL variables and the functions and
// procedures in declaration order.
func FormatDeclarations(syms *SymbolTable) string {
	var sb strings.Builder
	globals := syms.GlobalVariables()
	fmt.Fprintf(&sb, "Global variables (%d):\n", len(globals))
	for _, g := range globals {
		fmt.Fprintf(&sb, "  %-16s %-8s line %d\n", g.Name, g.Type, g.Line)
	}
	routines := syms.FunctionsAndProcedures()
	fmt.Fprintf(&sb, "Functions and procedures (%d):\n", len(routines))
	for _, r := range routines {
		fmt.Fprintf(&sb, "  %s  line %d\n", signature(r), r.Line)
	}
	return sb.String()
}

// FormatFaults renders every fault of r, semantic faults grouped by kind.
func (r *Result) FormatFaults() string {
	var sb strings.Builder
	if len(r.LexErrors) > 0 {
		fmt.Fprintf(&sb, "Lexical errors (%d):\n", len(r.LexErrors))
		for _, e := range r.LexErrors {
			fmt.Fprintf(&sb, "  %v\n", e)
		}
	}
	if len(r.Syntax) > 0 {
		fmt.Fprintf(&sb, "Syntax errors (%d):\n", len(r.Syntax))
		for _, e := range r.Syntax {
			fmt.Fprintf(&sb, "  %v\n", e)
			if e.Snippet != "" {
				fmt.Fprintf(&sb, "    |> %s\n", e.Snippet)
			}
		}
	}
	if len(r.Faults) > 0 {
		fmt.Fprintf(&sb, "Semantic errors (%d):\n", len(r.Semantic))
		for _, g := range r.Faults {
			fmt.Fprintf(&sb, "  [%v] (%d)\n", g.Kind, len(g.Errors))
			for _, e := range g.Errors {
				fmt.Fprintf(&sb, "    %v\n", e)
			}
		}
	}
	fmt.Fprintf(&sb, "Total faults: %d\n", r.FaultCount())
	return sb.String()
}

// WriteReport writes the fault report of r to w.
func (r *Result) WriteReport(w io.Writer) error {
	_, err := io.WriteString(w, r.FormatFaults())
	return err
}

// FormatTokens renders one line per token followed by the lexical errors.
func FormatTokens(tokens []Token, errs []*LexError) string {
	var sb strings.Builder
	for _, t := range tokens {
		fmt.Fprintf(&sb, "%4d  %-12s %q\n", t.Line, t.Type, t.Lexeme)
	}
	for _, e := range errs {
		fmt.Fprintf(&sb, "error: %v\n", e)
	}
	fmt.Fprintf(&sb, "%d token(s), %d error(s)\n", len(tokens), len(errs))
	return sb.String()
}
