// Package main provides the arith command line tool. It parses the global
// flags, loads the configuration and routes to one subcommand per stage of
// the interpreter.
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

	"github.com/orizon-lang/arith/internal/cli"
	"github.com/orizon-lang/arith/internal/diagnostic"
	"github.com/orizon-lang/arith/internal/pipeline"
	"github.com/orizon-lang/arith/internal/position"
)

const tool = "arith"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1 // evaluation failed or a file could not be processed
	exitUsage = 2
)

// errUsage marks failures that were already reported with usage text.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries what every subcommand needs.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	config *cli.Config
	logger *cli.Logger
}

type handler func(ctx context.Context, a *app, args []string) error

var handlers = map[string]handler{
	"eval":   cmdEval,
	"run":    cmdRun,
	"tokens": cmdTokens,
	"tree":   cmdTree,
	"fmt":    cmdFmt,
	"repl":   cmdREPL,
	"watch":  cmdWatch,
	"serve":  cmdServe,
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "configuration file")
	verbose := fs.Bool("verbose", false, "log progress")
	debug := fs.Bool("debug", false, "log internals")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n\n", tool, err)
		cli.PrintUsage(stderr, tool, commands)
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		cli.PrintUsage(stderr, tool, commands)
		return exitUsage
	}

	sub, subArgs := rest[0], rest[1:]
	switch sub {
	case "help", "-h", "--help":
		return help(stdout, stderr, subArgs)
	case "version", "-v", "--version":
		vfs := flag.NewFlagSet("version", flag.ContinueOnError)
		vfs.SetOutput(stderr)
		jsonOutput := vfs.Bool("json", false, "print version information as JSON")
		if err := vfs.Parse(subArgs); err != nil {
			return exitUsage
		}
		if err := cli.PrintVersion(stdout, tool, *jsonOutput); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", tool, err)
			return exitError
		}
		return exitOK
	}

	h, ok := handlers[sub]
	if !ok {
		fmt.Fprintf(stderr, "unknown subcommand: %s\n\n", sub)
		cli.PrintUsage(stderr, tool, commands)
		return exitUsage
	}

	if *configPath == "" {
		*configPath = cli.FindConfig(".")
	}
	config, err := cli.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprint(stderr, diagnostic.FromError(err).Render(nil))
		return exitError
	}
	config.Verbose = config.Verbose || *verbose
	config.Debug = config.Debug || *debug

	logger := cli.NewLogger(config.Verbose, config.Debug)
	logger.SetOutput(stderr)
	if config.ConfigFile != "" {
		logger.Debug("using config %s", config.ConfigFile)
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, config: config, logger: logger}
	switch err := h(ctx, a, subArgs); {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return exitUsage
	case errors.Is(err, context.Canceled):
		return exitOK
	default:
		return exitError
	}
}

func help(stdout, stderr io.Writer, args []string) int {
	if len(args) == 0 {
		cli.PrintUsage(stdout, tool, commands)
		return exitOK
	}
	cmd, ok := cli.FindCommand(commands, args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		return exitUsage
	}
	cli.PrintCommandUsage(stdout, tool, cmd)
	return exitOK
}

// usageError prints the usage of name and returns errUsage.
func (a *app) usageError(name, format string, args ...interface{}) error {
	fmt.Fprintf(a.stderr, "%s %s: %s\n\n", tool, name, fmt.Sprintf(format, args...))
	if cmd, ok := cli.FindCommand(commands, name); ok {
		cli.PrintCommandUsage(a.stderr, tool, cmd)
	}
	return errUsage
}

// flags returns a flag set for a subcommand that reports parse errors on
// stderr.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(tool+" "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses args into fs. Parse failures were already printed by
// fs and count as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// report renders a pipeline failure against the source it came from.
func (a *app) report(err error, source *position.SourceFile) {
	if errors.Is(err, context.Canceled) {
		return
	}
	fmt.Fprint(a.stderr, diagnostic.FromError(err).Render(source))
}

// runner builds a pipeline runner sharing the app configuration.
func (a *app) runner(opts ...pipeline.RunnerOption) *pipeline.Runner {
	return pipeline.New(a.config, append([]pipeline.RunnerOption{pipeline.WithLogger(a.logger)}, opts...)...)
}
