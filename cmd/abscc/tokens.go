package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"abscc/pkg/compiler"
)

var TokensCmd = &cobra.Command{
	Use:   "tokens <source.abs>",
	Short: "Print the token stream of an ABS source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args[0])
		if err != nil {
			return err
		}
		tokens, errs := compiler.Lex(src)
		fmt.Fprint(cmd.OutOrStdout(), compiler.FormatTokens(tokens, errs))
		return nil
	},
}
