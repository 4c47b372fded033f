// Package compiler provides the ABS lexer, a parser that drives semantic
// actions directly, and the backend behind them: symbol table, fault
// collector, semantic stack and NASM x86 code generator.
//
// Pipeline: ABS source → Lex → Parse (semantic actions) → gate on faults →
// declare globals → render assembly text
package compiler
