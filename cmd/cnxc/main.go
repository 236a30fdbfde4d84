// Command cnxc is the C-Next transpiler CLI: a thin urfave/cli/v2 surface
// over the internal/pipeline driver (spec §6), grounded on the teacher's
// own cli.App wiring (flags -> loadConfigWithOverrides -> one runner func)
// but with the indexing/server/MCP surfaces stripped, since this binary
// has exactly one job: transpile.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cnxlang/cnxc/internal/config"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/fsabs"
	"github.com/cnxlang/cnxc/internal/pipeline"
	"github.com/cnxlang/cnxc/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "cnxc",
		Usage:   "transpile C-Next sources into C or C++",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "include-dir", Aliases: []string{"I"}, Usage: "add a directory to the header search path"},
			&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Value: ".", Usage: "output directory for generated .c/.cpp bodies"},
			&cli.StringFlag{Name: "header-out-dir", Usage: "output directory for generated .h/.hpp headers (defaults to out-dir)"},
			&cli.StringFlag{Name: "base-path", Value: ".", Usage: "base path used for project-root/cache detection"},
			&cli.BoolFlag{Name: "cpp", Usage: "force C++ output mode regardless of header evidence"},
			&cli.BoolFlag{Name: "parse-only", Usage: "run discovery and symbol collection without emitting output"},
			&cli.BoolFlag{Name: "no-cache", Usage: "disable the persistent header symbol cache"},
			&cli.BoolFlag{Name: "debug", Usage: "enable [DEBUG] phase tracing"},
			&cli.StringFlag{Name: "target", Value: "generic", Usage: "critical-section codegen target: generic, arm-v7m, avr"},
			&cli.BoolFlag{Name: "preprocess", Value: true, Usage: "preprocess foreign headers for #if/#ifdef conditional directives"},
			&cli.StringFlag{Name: "config", Usage: "path to a directory containing cnext.config.json/.toml (defaults to base-path)"},
		},
		ArgsUsage: "<file.cnx> [file2.cnx ...]",
		Action:    runTranspile,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cnxc:", err)
		os.Exit(1)
	}
}

func runTranspile(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no input files given", 2)
	}

	configDir := c.String("config")
	if configDir == "" {
		configDir = c.String("base-path")
	}
	cfg, err := config.LoadFromDir(configDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("loading config: %v", err), 2)
	}
	overrides := &config.Config{
		IncludeDirs:  c.StringSlice("include-dir"),
		OutDir:       c.String("out-dir"),
		HeaderOutDir: c.String("header-out-dir"),
		BasePath:     c.String("base-path"),
		CppRequired:  c.Bool("cpp"),
		ParseOnly:    c.Bool("parse-only"),
		NoCache:      c.Bool("no-cache"),
		DebugMode:    c.Bool("debug"),
		Target:       c.String("target"),
	}
	preprocess := c.Bool("preprocess")
	overrides.Preprocess = &preprocess
	set := config.OverrideSet{
		CppRequired: c.IsSet("cpp"),
		ParseOnly:   c.IsSet("parse-only"),
		NoCache:     c.IsSet("no-cache"),
		DebugMode:   c.IsSet("debug"),
		Preprocess:  c.IsSet("preprocess"),
	}
	merged := config.Merge(cfg, overrides, set)

	opts := pipeline.Options{
		Roots:        c.Args().Slice(),
		IncludeDirs:  merged.IncludeDirs,
		OutDir:       merged.OutDir,
		HeaderOutDir: merged.HeaderOutDir,
		BasePath:     merged.BasePath,
		CppRequired:  merged.CppRequired,
		ParseOnly:    merged.ParseOnly,
		NoCache:      merged.NoCache,
		DebugMode:    merged.DebugMode,
		Target:       merged.Target,
		Preprocess:   merged.PreprocessEnabled(),
	}

	result, err := pipeline.Run(fsabs.Real{}, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("transpile failed: %v", err), 1)
	}

	for _, d := range result.Diags.All() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
	for _, f := range result.Files {
		fmt.Printf("%s -> %s, %s\n", f.Source, f.BodyPath, f.HeaderPath)
	}
	if result.CppMode {
		fmt.Fprintln(os.Stderr, "cnxc: C++ mode")
	}

	if result.Diags.HasErrors() || hasFileErrors(result.Files) {
		return cli.Exit("transpile completed with errors", 1)
	}
	return nil
}

func hasFileErrors(files []pipeline.FileResult) bool {
	for _, f := range files {
		for _, d := range f.Diags {
			if d.Severity == diag.SeverityError {
				return true
			}
		}
	}
	return false
}
