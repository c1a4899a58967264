// =============================================================================
// hdllint - Main Entry Point
// =============================================================================
//
// THE PIPELINE:
//   1. internal/design parses .hdldesign sources into the symbol graph
//   2. internal/analysis tracks drivers and reports multi-driver conflicts
//   3. internal/facts flattens the result into relational tables
//   4. internal/validator enforces the fact/output CUE schema contracts
//   5. internal/policy evaluates organizational rego rules against the
//      tables (optional, via -p/--policy)
//   6. internal/telemetry exposes run counters on an opt-in HTTP port
//
// WHEN INVESTIGATING FALSE POSITIVES:
//   Start at the beginning of the pipeline, not the end!
//   Design-loading issues -> driver-tracking issues -> policy issues
// =============================================================================

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/hdllint/internal/config"
	"github.com/robert-at-pretension-io/hdllint/internal/lint"
	"github.com/robert-at-pretension-io/hdllint/internal/telemetry"
	"github.com/robert-at-pretension-io/hdllint/internal/validator"
)

var log = logrus.New()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		runInit()
	case "-v", "--verbose":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runLint(os.Args[2], lintOptions{verbose: true})
	case "-h", "--help", "help":
		printUsage()
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runLintWithConfig(os.Args[2], os.Args[3], lintOptions{})
	default:
		runLint(cmd, parseFlags(os.Args[2:]))
	}
}

// lintOptions carries the flags that can follow a bare path argument
// (e.g. `hdllint design/ -p policies/ -j --metrics-addr :9090`).
type lintOptions struct {
	verbose     bool
	jsonOutput  bool
	policyDir   string
	metricsAddr string
}

func parseFlags(args []string) lintOptions {
	var opts lintOptions
	for _, a := range args {
		switch {
		case a == "-v" || a == "--verbose":
			opts.verbose = true
		case a == "-j" || a == "--json":
			opts.jsonOutput = true
		}
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-p", "--policy":
			if i+1 < len(args) {
				opts.policyDir = args[i+1]
			}
		case "--metrics-addr":
			if i+1 < len(args) {
				opts.metricsAddr = args[i+1]
			}
		}
	}
	return opts
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: hdllint [command] [options] <path>

Commands:
  init              Create an hdllint.json configuration file
  <path>            Lint .hdldesign sources in the given path

Options:
  -v, --verbose        Enable verbose (debug-level) logging
  -j, --json           Emit the fact tables and policy result as JSON
  -p, --policy DIR     Evaluate organizational rego policies from DIR
  --metrics-addr ADDR  Serve Prometheus metrics at ADDR (e.g. :9090)
  -c, --config FILE    Specify config file: hdllint -c config.json <path>
  -h, --help           Show this help message

Configuration:
  hdllint looks for configuration in:
    1. ./hdllint.json
    2. ./.hdllint.json
    3. <path>/hdllint.json, then <path>/.hdllint.json (when <path> is a directory)
    4. ~/.config/hdllint/config.json

  Run 'hdllint init' to create a default configuration file.`)
}

func runInit() {
	configPath := "hdllint.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		log.WithError(err).Fatal("creating config")
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Source file globs")
	fmt.Println("  - Lint rule severities")
	fmt.Println("  - Analysis flags (allow-dup-initial-drivers, max-modport-iterations)")
}

func runLint(path string, opts lintOptions) {
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Warn("could not load config, using defaults")
		cfg = config.DefaultConfig()
	}
	execute(cfg, path, opts)
}

func runLintWithConfig(configPath, lintPath string, opts lintOptions) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		log.WithError(err).WithField("config", configPath).Fatal("loading config")
	}
	execute(cfg, lintPath, opts)
}

func execute(cfg *config.Config, path string, opts lintOptions) {
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var metrics *telemetry.Metrics
	if opts.metricsAddr != "" {
		metrics = telemetry.New()
		go func() {
			log.WithField("addr", opts.metricsAddr).Info("serving metrics")
			if err := http.ListenAndServe(opts.metricsAddr, metrics.Handler()); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	result, err := lint.Run([]string{path}, lint.Options{
		Config:    cfg,
		PolicyDir: opts.policyDir,
		Metrics:   metrics,
	})
	if err != nil {
		log.WithError(err).Fatal("lint run failed")
	}

	factsValidator, err := validator.NewFactsValidator()
	if err != nil {
		log.WithError(err).Fatal("loading facts schema")
	}
	if err := factsValidator.Validate(result.Tables); err != nil {
		log.WithError(err).Fatal("fact tables failed schema validation")
	}

	if result.Policy != nil {
		outputValidator, err := validator.NewOutputValidator()
		if err != nil {
			log.WithError(err).Fatal("loading output schema")
		}
		if err := outputValidator.Validate(*result.Policy); err != nil {
			log.WithError(err).Fatal("policy result failed schema validation")
		}
	}

	if opts.jsonOutput {
		printJSON(result)
	} else {
		printHuman(result)
	}

	if hasErrors(result) {
		os.Exit(1)
	}
}

func printJSON(result *lint.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Tables interface{} `json:"tables"`
		Policy interface{} `json:"policy,omitempty"`
	}{
		Tables: result.Tables,
		Policy: result.Policy,
	}); err != nil {
		log.WithError(err).Fatal("encoding JSON output")
	}
}

func printHuman(result *lint.Result) {
	for _, row := range result.Tables.Diagnostics {
		fmt.Printf("%s:%d: %s: %s\n", row.File, row.Line, row.Severity, row.Message)
	}
	if result.Policy != nil {
		for _, v := range result.Policy.Violations {
			fmt.Printf("%s:%d: %s (policy: %s): %s\n", v.File, v.Line, v.Severity, v.Rule, v.Message)
		}
		fmt.Printf("\npolicy summary: %d violations (%d errors, %d warnings, %d info)\n",
			result.Policy.Summary.TotalViolations, result.Policy.Summary.Errors,
			result.Policy.Summary.Warnings, result.Policy.Summary.Info)
	}
	fmt.Printf("\n%d diagnostics from %d modules, %d instances\n",
		len(result.Tables.Diagnostics), len(result.Tables.Modules), len(result.Tables.Instances))
}

func hasErrors(result *lint.Result) bool {
	for _, row := range result.Tables.Diagnostics {
		if row.Severity == "error" {
			return true
		}
	}
	if result.Policy != nil && result.Policy.Summary.Errors > 0 {
		return true
	}
	return false
}
