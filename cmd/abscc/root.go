package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"abscc/pkg/compiler"
	"abscc/pkg/config"
)

var (
	configPath string
	outDir     string
	target     string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "abscc",
	Short: "ABS compiler: ABS source to 32-bit NASM x86 assembly",
	Long: `abscc compiles ABS programs into NASM assembly for Linux or Windows.

Commands:
  build    Compile one or more .abs files into .asm
  tokens   Print the token stream of a source file
  symbols  Print the symbol table of a source file
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return err
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath, "settings file (ignored when missing)")
	pf.StringVarP(&outDir, "out", "o", "out", "output directory for build artifacts")
	pf.StringVar(&target, "target", "linux", "target platform: linux or windows")
	pf.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	rootCmd.AddCommand(BuildCmd, TokensCmd, SymbolsCmd)
}

// loadSettings reads the config file and lets explicit flags override it.
func loadSettings(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutDir = outDir
	}
	if flags.Changed("target") {
		cfg.Target = target
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	return nil
}

func compileOptions() (compiler.Options, error) {
	platform, err := cfg.Platform()
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{Target: platform, Logger: logger}, nil
}
