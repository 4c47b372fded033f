package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"abscc/pkg/compiler"
)

// symbols: the table is printed even when the program has faults.
var SymbolsCmd = &cobra.Command{
	Use:   "symbols <source.abs>",
	Short: "Print the symbol table and declarations of an ABS source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := compileOptions()
		if err != nil {
			return err
		}
		res, err := compiler.CompileFile(args[0], opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, compiler.FormatSymbolTable(res.Symbols))
		fmt.Fprintln(out)
		fmt.Fprint(out, compiler.FormatDeclarations(res.Symbols))
		if !res.OK() {
			fmt.Fprintln(out)
			fmt.Fprint(out, res.FormatFaults())
		}
		return nil
	},
}
