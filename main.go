package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"methodical/internal/analyzer"
	"methodical/internal/diag"
	"methodical/internal/diagram"
	"methodical/internal/gosrc"
	"methodical/internal/logging"
	"methodical/internal/program"
	"methodical/internal/server"
	"methodical/internal/suggest"
)

func main() {
	// Use a custom FlagSet so we can parse all args regardless of position.
	// Go's default flag.Parse stops at the first non-flag argument, which
	// breaks "methodical ./program.yaml -format json". We reorder args so
	// flags come first, then positional args.
	flags, positional := reorderArgs(os.Args[1:])

	fs := flag.NewFlagSet("methodical", flag.ExitOnError)
	inputFlag := fs.String("input", "", "YAML program file or Go module directory (alternative to positional argument)")
	format := fs.String("format", "text", "diagnostic output format (text, json)")
	diagramOut := fs.String("diagram", "", "write Mermaid class diagram to file")
	filter := fs.String("filter", "", "keep only diagnostics whose subject has this prefix")
	kind := fs.String("kind", "", "keep only diagnostics of this kind")
	failFast := fs.Bool("fail-fast", false, "stop at the first diagnostic")
	workers := fs.Int("workers", 0, "parallel workers per pass (0 = GOMAXPROCS)")
	serve := fs.Bool("serve", false, "run as an HTTP server instead of analyzing a file")
	port := fs.Int("port", 8080, "HTTP server port (with -serve)")
	logFile := fs.String("log-file", "", "log file path (empty = stderr only)")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")

	if err := fs.Parse(flags); err != nil {
		os.Exit(2)
	}
	// Collect any remaining args from flag parsing + our positional args
	positional = append(positional, fs.Args()...)

	// Parse log level
	level, err := parseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}

	// Setup logging
	logger, logCleanup, err := logging.Setup(*logFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(2)
	}
	defer logCleanup()

	// Setup signal handling with context cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if *serve {
		cfg := server.Config{Port: *port, Workers: *workers}
		fmt.Printf("Starting server on http://localhost:%d\n", *port)
		if err := server.Serve(ctx, cfg, logger); err != nil {
			logger.Error("server error", "error", err)
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(2)
		}
		return
	}

	// Determine input: positional argument takes precedence, then -input flag
	input := ""
	if len(positional) > 0 {
		input = positional[0]
	}
	if input == "" {
		input = *inputFlag
	}
	if input == "" {
		fmt.Fprintln(os.Stderr, "Usage: methodical [flags] <program.yaml|go-module-dir>")
		fs.PrintDefaults()
		os.Exit(2)
	}

	// Step 1: Load the program — a YAML description, or a Go module
	// directory converted through go/packages.
	prog, err := loadInput(ctx, input, logger)
	if err != nil {
		logger.Error("failed to load program", "error", err)
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(2)
	}

	// Step 2: Analyze
	opts := analyzer.Options{
		Workers:       *workers,
		FailFast:      *failFast,
		KindFilter:    diag.Kind(*kind),
		SubjectPrefix: *filter,
	}
	result, err := analyzer.Analyze(ctx, prog, opts, logger)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error analyzing program: %v\n", err)
		os.Exit(2)
	}

	// Step 3: Enrich diagnostics with nearest-name hints
	result = suggest.Chain(result, suggest.NewNearestName())

	fmt.Printf("Checked %d classes against %d aliases, %d satisfaction relations\n",
		len(result.MethodSets), len(result.Aliases), len(result.Relations))

	// Step 4: Optional Mermaid diagram
	if *diagramOut != "" {
		diagramOpts := diagram.DefaultOptions()
		diagramOpts.IncludeInit = true
		content := diagram.Generate(result, diagramOpts)
		if err := os.WriteFile(*diagramOut, []byte(content), 0o644); err != nil {
			logger.Error("failed to write diagram", "error", err)
			fmt.Fprintf(os.Stderr, "Error writing to %s: %v\n", *diagramOut, err)
			os.Exit(2)
		}
		fmt.Printf("Wrote diagram to %s\n", *diagramOut)
	}

	// Step 5: Report diagnostics
	switch *format {
	case "json":
		if err := diag.RenderJSON(os.Stdout, result.Diagnostics); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding diagnostics: %v\n", err)
			os.Exit(2)
		}
	case "text":
		diag.RenderText(os.Stderr, result.Diagnostics, diag.ColorEnabled(os.Stderr))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q (valid: text, json)\n", *format)
		os.Exit(2)
	}

	switch {
	case result.Diagnostics.HasFatal():
		os.Exit(2)
	case !result.OK():
		os.Exit(1)
	}
}

// loadInput turns the input argument into a program: a directory is
// treated as a Go module, anything else as a YAML program file.
func loadInput(ctx context.Context, input string, logger *slog.Logger) (*program.Program, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return gosrc.Load(ctx, input, logger)
	}
	return program.LoadFile(input)
}

// reorderArgs separates flags and positional arguments so flags can appear
// in any position (before or after the positional input argument).
// Flags that take a value (e.g., -format json) consume the next arg.
func reorderArgs(args []string) (flags, positional []string) {
	// Set of flags that take a value argument
	valueFlagSet := map[string]bool{
		"-input": true, "-format": true, "-diagram": true,
		"-filter": true, "-kind": true, "-workers": true,
		"-port": true, "-log-file": true, "-log-level": true,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			// Check if this flag takes a value (and it's not using = syntax)
			if !strings.Contains(arg, "=") && valueFlagSet[arg] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return flags, positional
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s (valid: debug, info, warn, error)", s)
	}
}
