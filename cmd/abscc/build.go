package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"abscc/pkg/compiler"
	"abscc/pkg/utils"
)

var (
	exportSymbols bool
	exportErrors  bool
)

// build: compile .abs -> .asm
var BuildCmd = &cobra.Command{
	Use:   "build <source.abs>...",
	Short: "Compile ABS source files into NASM assembly",
	Args:  cobra.MinimumNArgs(1),
	RunE:  buildRun,
}

func init() {
	BuildCmd.Flags().BoolVar(&exportSymbols, "symbols", false, "also write <name>.sym")
	BuildCmd.Flags().BoolVar(&exportErrors, "errors", false, "also write <name>.err")
}

func buildRun(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("symbols") {
		cfg.ExportSymbols = exportSymbols
	}
	if cmd.Flags().Changed("errors") {
		cfg.ExportErrors = exportErrors
	}
	opts, err := compileOptions()
	if err != nil {
		return err
	}
	sources, err := planSources(args)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(cfg.OutDir); err != nil {
		return err
	}

	// Output is serialised so reports from parallel builds do not interleave.
	var mu sync.Mutex
	var failed []error

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, src := range sources {
		g.Go(func() error {
			report, err := buildOne(src, opts)
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprint(cmd.OutOrStdout(), report)
			if errors.Is(err, compiler.ErrFaults) {
				failed = append(failed, err)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(failed...)
}

// planSources drops repeated mentions of the same file and rejects two
// different files whose artifacts would share a path under the output
// directory.
func planSources(args []string) ([]string, error) {
	seen := make(map[string]bool)
	owners := make(map[string]string)
	var sources []string
	for _, src := range args {
		full, _, err := utils.GetPathInfo(src)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", src, err)
		}
		if seen[full] {
			continue
		}
		seen[full] = true

		out := strings.ToLower(utils.OutputPath(cfg.OutDir, full, ".asm"))
		if prev, ok := owners[out]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s", prev, src, utils.OutputPath(cfg.OutDir, src, ".asm"))
		}
		owners[out] = src
		sources = append(sources, src)
	}
	return sources, nil
}

// buildOne compiles src and writes its artifacts. The returned report is
// printed by the caller, also when an error is returned with it.
func buildOne(src string, opts compiler.Options) (string, error) {
	logger.Debug("building", "file", src, "target", opts.Target)

	res, err := compiler.CompileFile(src, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if !res.OK() {
		fmt.Fprintf(&b, "✘ %s\n%s", src, res.FormatFaults())
	}
	if cfg.ExportSymbols {
		path := utils.OutputPath(cfg.OutDir, src, ".sym")
		if err := res.WriteSymbols(path); err != nil {
			return b.String(), err
		}
		fmt.Fprintf(&b, "  wrote symbols to %s\n", path)
	}
	if cfg.ExportErrors {
		path := utils.OutputPath(cfg.OutDir, src, ".err")
		if err := res.WriteErrors(path); err != nil {
			return b.String(), err
		}
		fmt.Fprintf(&b, "  wrote fault report to %s\n", path)
	}
	if !res.OK() {
		return b.String(), res.Err()
	}

	path := utils.OutputPath(cfg.OutDir, src, ".asm")
	if err := res.WriteArtifact(path); err != nil {
		return b.String(), err
	}
	fmt.Fprintf(&b, "✔︎ %s → %s (%s)\n", src, path, res.Stats)
	return b.String(), nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}
