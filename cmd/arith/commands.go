package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/arith/internal/cli"
	"github.com/orizon-lang/arith/internal/diagnostic"
	"github.com/orizon-lang/arith/internal/format"
	"github.com/orizon-lang/arith/internal/lexer"
	"github.com/orizon-lang/arith/internal/parser"
	"github.com/orizon-lang/arith/internal/pipeline"
	"github.com/orizon-lang/arith/internal/position"
	"github.com/orizon-lang/arith/internal/server"
	"github.com/orizon-lang/arith/internal/watch"
)

var commands = []cli.CommandInfo{
	{
		Name:        "eval",
		Usage:       "arith eval [--tree] [-f FILE] [EXPRESSION...]",
		Description: "Evaluate an expression and print each statement's value",
		Examples:    []string{"arith eval '(1 + 2) * 3'", "echo '2 + 3 * 4' | arith eval"},
		Flags: []cli.FlagInfo{
			{Name: "tree", Usage: "also print the syntax tree"},
			{Name: "f", Usage: "read the source from FILE"},
		},
	},
	{
		Name:        "run",
		Usage:       "arith run [--max-errors N] FILE...",
		Description: "Evaluate source files concurrently",
		Examples:    []string{"arith run a.calc b.calc"},
		Flags: []cli.FlagInfo{
			{Name: "max-errors", Usage: "stop reporting after N errors (0 is unlimited)", Default: "0"},
		},
	},
	{
		Name:        "tokens",
		Usage:       "arith tokens [-f FILE] [EXPRESSION...]",
		Description: "Print the token stream",
		Flags:       []cli.FlagInfo{{Name: "f", Usage: "read the source from FILE"}},
	},
	{
		Name:        "tree",
		Usage:       "arith tree [-f FILE] [EXPRESSION...]",
		Description: "Print the syntax tree",
		Flags:       []cli.FlagInfo{{Name: "f", Usage: "read the source from FILE"}},
	},
	{
		Name:        "fmt",
		Usage:       "arith fmt [-d] [-l] [-w] [FILE...]",
		Description: "Rewrite source in canonical form",
		Examples:    []string{"arith fmt -d calc.txt", "arith fmt -w calc.txt"},
		Flags: []cli.FlagInfo{
			{Name: "d", Usage: "print a unified diff instead of the formatted source"},
			{Name: "l", Usage: "list files whose formatting differs"},
			{Name: "w", Usage: "write the result back to the file"},
		},
	},
	{
		Name:        "repl",
		Usage:       "arith repl [--no-prompt] [--history FILE] [--max-history N]",
		Description: "Start an interactive session",
		Flags: []cli.FlagInfo{
			{Name: "no-prompt", Usage: "never print the prompt"},
			{Name: "history", Usage: "append entered lines to FILE on exit"},
			{Name: "max-history", Usage: "maximum history entries kept in the session", Default: "1000"},
		},
	},
	{
		Name:        "watch",
		Usage:       "arith watch [--debounce D] FILE...",
		Description: "Re-evaluate files whenever they change",
		Flags: []cli.FlagInfo{
			{Name: "debounce", Usage: "quiet period before re-running", Default: watch.DefaultDebounce.String()},
		},
	},
	{
		Name:        "serve",
		Usage:       "arith serve [--addr ADDR] [--cert FILE --key FILE] [--save-cert DIR]",
		Description: "Serve POST /eval over HTTP/3",
		Examples:    []string{"arith serve --addr :4433"},
		Flags: []cli.FlagInfo{
			{Name: "addr", Usage: "UDP address to listen on", Default: "localhost:4433"},
			{Name: "cert", Usage: "TLS certificate (self-signed when omitted)"},
			{Name: "key", Usage: "TLS private key"},
			{Name: "save-cert", Usage: "write the generated certificate to DIR/cert.pem and DIR/key.pem"},
		},
	},
	{Name: "version", Usage: "arith version [--json]", Description: "Print version information"},
	{Name: "help", Usage: "arith help [COMMAND]", Description: "Show help"},
}

// source resolves the input of eval, tokens and tree: -f FILE, then the
// positional arguments joined by spaces, then stdin.
func (a *app) source(file string, args []string) (name, text string, err error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", err
		}
		return file, string(data), nil
	case len(args) > 0:
		return "", strings.Join(args, " "), nil
	default:
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return "", string(data), nil
	}
}

func cmdEval(ctx context.Context, a *app, args []string) error {
	fs := a.flags("eval")
	tree := fs.Bool("tree", false, "also print the syntax tree")
	file := fs.String("f", "", "read the source from FILE")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	name, text, err := a.source(*file, fs.Args())
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}

	var opts []pipeline.RunnerOption
	if *tree {
		opts = append(opts, pipeline.WithTree())
	}
	result, err := a.runner(opts...).Run(ctx, name, text)
	if err != nil {
		a.report(err, result.Source)
		return err
	}

	if *tree {
		fmt.Fprint(a.stdout, result.Tree)
	}
	fmt.Fprint(a.stdout, pipeline.FormatValues(result.Values))
	return nil
}

func cmdRun(ctx context.Context, a *app, args []string) error {
	fs := a.flags("run")
	maxErrors := fs.Int("max-errors", 0, "stop reporting after N errors")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return a.usageError("run", "no files given")
	}

	results := make([]*pipeline.Result, len(files))
	errs := make([]error, len(files))
	runner := a.runner()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = runner.Run(gctx, path, string(data))
			// a cancelled run stops the whole group; evaluation errors do not
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	engine := diagnostic.NewDiagnosticEngine(*maxErrors)
	failed := 0
	for i, path := range files {
		if errs[i] != nil {
			failed++
			if results[i] != nil {
				engine.AddSource(results[i].Source)
			}
			engine.AddError(errs[i])
			continue
		}
		if len(files) > 1 {
			fmt.Fprintf(a.stdout, "==> %s <==\n", path)
		}
		fmt.Fprint(a.stdout, pipeline.FormatValues(results[i].Values))
	}

	if engine.HasErrors() {
		fmt.Fprint(a.stderr, engine.FormatDiagnostics())
		// the engine stops counting at --max-errors
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func cmdTokens(_ context.Context, a *app, args []string) error {
	fs := a.flags("tokens")
	file := fs.String("f", "", "read the source from FILE")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	name, text, err := a.source(*file, fs.Args())
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}

	tokens, err := lexer.TokenizeFile(text, name)
	if err != nil {
		a.report(err, position.NewSourceFile(name, text))
		return err
	}
	for _, tok := range tokens {
		fmt.Fprintf(a.stdout, "%-10s %-8s %q\n", tok.Span.Start, tok.Type, tok.Literal)
	}
	return nil
}

// cmdTree only parses, so programs that fail at evaluation still print.
func cmdTree(_ context.Context, a *app, args []string) error {
	fs := a.flags("tree")
	file := fs.String("f", "", "read the source from FILE")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	name, text, err := a.source(*file, fs.Args())
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}

	program, err := parser.ParseFile(text, name, a.config.ParserOptions()...)
	if err != nil {
		a.report(err, position.NewSourceFile(name, text))
		return err
	}
	return format.NewTreePrinter(a.stdout).Print(program)
}

func (a *app) formatOptions() format.Options {
	opts := format.DefaultOptions()
	opts.SpaceAroundOperators = a.config.Format.SpaceAroundOperators
	opts.Associativity, _ = parser.ParseAssociativity(a.config.Associativity)
	return opts
}

func cmdFmt(_ context.Context, a *app, args []string) error {
	fs := a.flags("fmt")
	showDiff := fs.Bool("d", false, "print a unified diff")
	listOnly := fs.Bool("l", false, "list files whose formatting differs")
	write := fs.Bool("w", false, "write the result back to the file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts := a.formatOptions()

	files := fs.Args()
	if len(files) == 0 {
		if *write {
			return a.usageError("fmt", "-w requires file arguments")
		}
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
			return err
		}
		formatted, err := format.FormatSource(string(data), opts)
		if err != nil {
			a.report(err, position.NewSourceFile("", string(data)))
			return err
		}
		fmt.Fprint(a.stdout, formatted)
		return nil
	}

	var failed int
	for _, path := range files {
		if err := a.formatFile(path, opts, *showDiff, *listOnly, *write); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d files could not be formatted", failed)
	}
	return nil
}

func (a *app) formatFile(path string, opts format.Options, showDiff, listOnly, write bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}
	source := string(data)

	formatted, diff, err := format.FormatWithDiff(path, source, opts)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s:\n", path)
		a.report(err, position.NewSourceFile("", source))
		return err
	}
	changed := diff != ""

	if listOnly && changed {
		fmt.Fprintln(a.stdout, path)
	}
	if showDiff {
		fmt.Fprint(a.stdout, diff)
	}
	if write && changed {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
			fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
			return err
		}
		a.logger.Info("formatted %s", path)
	}
	if !listOnly && !showDiff && !write {
		fmt.Fprint(a.stdout, formatted)
	}
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := a.flags("watch")
	debounce := fs.Duration("debounce", watch.DefaultDebounce, "quiet period before re-running")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return a.usageError("watch", "no files given")
	}

	w, err := watch.New(files, watch.WithDebounce(*debounce), watch.WithLogger(a.logger))
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}
	defer w.Close()

	runner := a.runner()
	evaluate := func(ctx context.Context, path, source string) {
		result, err := runner.Run(ctx, path, source)
		if err != nil {
			a.report(err, result.Source)
			return
		}
		fmt.Fprintf(a.stdout, "==> %s <==\n%s", path, pipeline.FormatValues(result.Values))
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
			return err
		}
		evaluate(ctx, path, string(data))
	}

	a.logger.Info("watching %d files", len(files))
	return w.Run(ctx, evaluate)
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := a.flags("serve")
	addr := fs.String("addr", a.config.Server.Addr, "UDP address to listen on")
	certFile := fs.String("cert", a.config.Server.CertFile, "TLS certificate")
	keyFile := fs.String("key", a.config.Server.KeyFile, "TLS private key")
	saveDir := fs.String("save-cert", "", "write the generated certificate to this directory")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if (*certFile == "") != (*keyFile == "") {
		return a.usageError("serve", "--cert and --key must be given together")
	}
	if *saveDir != "" && *certFile != "" {
		return a.usageError("serve", "--save-cert only applies to a generated certificate")
	}

	config := *a.config
	config.Server.Addr = *addr

	tlsCfg, err := a.serverTLS(*addr, *certFile, *keyFile)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}
	if *saveDir != "" {
		certPath, keyPath := filepath.Join(*saveDir, "cert.pem"), filepath.Join(*saveDir, "key.pem")
		if err := server.WritePEM(&tlsCfg.Certificates[0], certPath, keyPath); err != nil {
			fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
			return err
		}
		a.logger.Info("wrote %s and %s", certPath, keyPath)
	}

	s := server.New(&config, tlsCfg, a.logger)
	bound, err := s.Listen()
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}
	fmt.Fprintf(a.stdout, "listening on https://%s\n", bound)

	if err := s.Serve(ctx); err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", tool, err)
		return err
	}
	return nil
}

func (a *app) serverTLS(addr, certFile, keyFile string) (*tls.Config, error) {
	if certFile != "" {
		return server.LoadTLSConfig(certFile, keyFile)
	}
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" && host != "localhost" {
		hosts = append(hosts, host)
	}
	a.logger.Warn("no certificate configured, using a self-signed one for %s", strings.Join(hosts, ", "))
	return server.GenerateSelfSignedTLS(hosts, 7*24*time.Hour)
}
