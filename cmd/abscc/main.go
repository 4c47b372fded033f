package main

import (
	"errors"
	"fmt"
	"os"

	"abscc/pkg/compiler"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, compiler.ErrFaults) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
