package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/app"
	"github.com/GriffinCanCode/windowctx/internal/config"
	"github.com/GriffinCanCode/windowctx/internal/logging"
	"github.com/GriffinCanCode/windowctx/internal/page"
	"github.com/GriffinCanCode/windowctx/internal/window"
)

const appName = "windowctx"

var (
	red  = color.New(color.FgRed).SprintFunc()
	blue = color.New(color.FgHiBlue).SprintFunc()
	gray = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "page":
		os.Exit(cmdPage(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "repl":
		stop()
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(config.Version)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `windowctx %s

Usage:
  %s run [-v] [-timeout d] <file.js|dir|glob>...   Run scripts in order in one window.
  %s page [-v] <file.html|url>                     Run a page's scripts in a window.
  %s repl                                          Start an interactive window.
  %s version                                       Print the version

Environment variables (SANDBOX_*, LOADER_*) configure windows and page loading.
`, config.Version, appName, appName, appName, appName)
}

// commonFlags are shared by run and page
type commonFlags struct {
	verbose *bool
	timeout *time.Duration
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, commonFlags{
		verbose: fs.Bool("v", false, "log debug output to stderr"),
		timeout: fs.Duration("timeout", 0, "per-script timeout (overrides SANDBOX_TIMEOUT)"),
	}
}

// newRuntime builds a window runtime and one open window
func newRuntime(ctx context.Context, flags commonFlags) (*app.App, *window.Window, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if *flags.timeout > 0 {
		cfg.Sandbox.Timeout = *flags.timeout
	}
	cfg.Sandbox.PoolSize = 0

	level := "warn"
	if *flags.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.CLIConfig(level))
	if err != nil {
		return nil, nil, nil, err
	}

	rt, err := app.New(cfg, logger.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	w, err := rt.Windows.Create(ctx)
	if err != nil {
		rt.Close()
		return nil, nil, nil, err
	}
	return rt, w, logger, nil
}

// scriptOutcome is one entry of run's JSON output
type scriptOutcome struct {
	Filename string            `json:"filename"`
	Value    any               `json:"value"`
	Console  []window.LogEntry `json:"console,omitempty"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("run", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(stderr, "usage: %s run <file.js|dir|glob>...\n", appName)
		return 2
	}

	paths, err := page.ExpandScripts(ctx, fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}

	rt, w, logger, err := newRuntime(ctx, flags)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	defer rt.Close()
	defer logger.Sync()
	wlog := logger.Window(w.ID().String())

	outcomes := make([]scriptOutcome, 0, len(paths))
	failed := 0
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stderr, red(fmt.Sprintf("%s: cannot read %s: %v", appName, path, err)))
			return 1
		}

		wlog.Debug("Running script", zap.String("filename", path))
		result, err := rt.Windows.Evaluate(ctx, w.ID(), string(src), path)
		if err != nil {
			fmt.Fprintln(stderr, red(err.Error()))
			return exitCode(err)
		}

		outcomes = append(outcomes, scriptOutcome{
			Filename: path,
			Value:    result.Value,
			Console:  result.Console,
			Error:    result.Error,
			Duration: result.Duration,
		})
		if result.Error != "" {
			failed++
			fmt.Fprintln(stderr, red(fmt.Sprintf("%s: %s", path, result.Error)))
		}
	}

	if err := writeJSON(stdout, map[string]any{
		"window":  w.ID(),
		"scripts": outcomes,
		"failed":  failed,
	}); err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func cmdPage(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("page", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "usage: %s page <file.html|url>\n", appName)
		return 2
	}

	rt, w, logger, err := newRuntime(ctx, flags)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	defer rt.Close()
	defer logger.Sync()

	runner := rt.Windows.Runner(w.ID())
	report, err := rt.Loader.Load(ctx, fs.Arg(0), runner)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return exitCode(err)
	}

	for _, s := range report.Scripts {
		if s.Error != "" {
			fmt.Fprintln(stderr, red(fmt.Sprintf("%s: %s", s.Filename, s.Error)))
		}
	}

	globals, err := rt.Windows.Globals(w.ID())
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}

	if err := writeJSON(stdout, map[string]any{
		"window":  w.ID(),
		"report":  report,
		"console": runner.Console(),
		"globals": globals,
	}); err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// exitCode maps context errors from interrupted commands
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
