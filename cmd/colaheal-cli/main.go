// SPDX-License-Identifier: Apache-2.0
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"colaheal/grammar"
	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/errors"
	"colaheal/internal/normalize"
	"colaheal/internal/verify"
	"colaheal/repl"
)

func main() {
	structureName := flag.String("config", "", "structure configuration to verify against (singly_linked_set, sorted_list, flow_queue)")
	verbose := flag.Bool("v", false, "enable debug logging")
	traceNormalize := flag.Bool("trace-normalize", false, "print the AST after each normalization pass")
	jsonOutput := flag.Bool("json", false, "emit the verdict as JSON instead of colorized text")
	interactive := flag.Bool("repl", false, "start an interactive post-image evaluator instead of verifying a file")
	flag.Parse()

	if *structureName == "" {
		color.Red("missing -config: pick one of %v", structureNames())
		os.Exit(2)
	}
	cfg := config.GetStructureConfig(*structureName)
	if cfg == nil {
		color.Red("unknown structure configuration %q: pick one of %v", *structureName, structureNames())
		os.Exit(2)
	}

	if *interactive {
		repl.Start(os.Stdin, os.Stdout, cfg)
		return
	}

	if flag.NArg() < 1 {
		fmt.Println("Usage: colaheal-cli [-config <structure>] <file.cola>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := 0
	if *verbose {
		level = 1
	}
	commonlog.Configure(level, nil)
	logger := commonlog.GetLogger("colaheal.verify")

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(3)
	}

	prog, err := grammar.ParseString(path, string(source))
	if err != nil {
		reportError(path, string(source), err)
		os.Exit(2)
	}

	var trace func(fnName, pass string, body ast.Stmt)
	if *traceNormalize {
		trace = func(fnName, pass string, body ast.Stmt) {
			fmt.Printf("-- %s: after %s --\n%s\n", fnName, pass, body)
		}
	}
	prog, err = normalize.ProgramWithTrace(prog, trace)
	if err != nil {
		reportError(path, string(source), err)
		os.Exit(exitCodeFor(err))
	}

	driver := verify.NewDriver(prog, cfg, logger)
	results, err := driver.VerifyAll()
	if err != nil {
		reportError(path, string(source), err)
		os.Exit(exitCodeFor(err))
	}

	exitCode := 0
	for _, r := range results {
		if code := r.Verdict.ExitCode(r.Err); code > exitCode {
			exitCode = code
		}
	}

	if *jsonOutput {
		printJSON(results, driver.Stats)
	} else {
		printText(results, driver.Stats, path, string(source))
	}

	os.Exit(exitCode)
}

// printText is the default human-readable report: one colorized line per
// function plus the run's step/timing summary.
func printText(results []*verify.FunctionResult, stats *verify.Stats, path, source string) {
	for _, r := range results {
		switch r.Verdict {
		case verify.Linearizable:
			color.Green("%-24s LINEARIZABLE", r.Function.Name)
		case verify.NotLinearizable:
			color.Red("%-24s NOT-LINEARIZABLE", r.Function.Name)
			if r.Annotation != "" {
				fmt.Println("  " + r.Annotation)
			}
		default:
			color.Red("%-24s VERIFICATION-ERROR", r.Function.Name)
			if r.Err != nil {
				reportError(path, source, r.Err)
			}
		}
	}

	fmt.Printf("\n%d function(s) verified, %d loop fixed-point iteration(s), %d post-steps, elapsed=%s\n",
		stats.FunctionsVerified, stats.FixedPointIterations, stats.Engine.PostSteps, stats.Elapsed)
}

// jsonResult is the --json rendering of one FunctionResult: an error, if any,
// is flattened to its message rather than the full CompilerError shape, since
// consumers of --json want a verdict summary, not a caret-annotated report.
type jsonResult struct {
	Function   string `json:"function"`
	Verdict    string `json:"verdict"`
	Annotation string `json:"annotation,omitempty"`
	Error      string `json:"error,omitempty"`
}

type jsonReport struct {
	Results              []jsonResult `json:"results"`
	FunctionsVerified    int          `json:"functions_verified"`
	FixedPointIterations int          `json:"fixed_point_iterations"`
	PostSteps            int          `json:"post_steps"`
	ElapsedSeconds       float64      `json:"elapsed_seconds"`
}

func printJSON(results []*verify.FunctionResult, stats *verify.Stats) {
	report := jsonReport{
		FunctionsVerified:    stats.FunctionsVerified,
		FixedPointIterations: stats.FixedPointIterations,
		PostSteps:            stats.Engine.PostSteps,
		ElapsedSeconds:       stats.Elapsed.Seconds(),
	}
	for _, r := range results {
		jr := jsonResult{Function: r.Function.Name, Verdict: r.Verdict.String(), Annotation: r.Annotation}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		report.Results = append(report.Results, jr)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)
}

func structureNames() []string {
	var names []string
	for name := range config.GetCatalog() {
		names = append(names, name)
	}
	return names
}

func exitCodeFor(err error) int {
	if verr, ok := err.(*errors.VerificationError); ok {
		if verr.Kind.Fatal() {
			return 3
		}
		return 2
	}
	return 3
}

// reportError prints a VerificationError with the Rust-like ErrorReporter,
// or falls back to a plain message for a raw parse error.
func reportError(path, source string, err error) {
	if verr, ok := err.(*errors.VerificationError); ok {
		reporter := errors.NewErrorReporter(path, source)
		fmt.Print(reporter.FormatError(verr.ToCompilerError()))
		return
	}
	grammar.ReportParseError(source, err)
}
