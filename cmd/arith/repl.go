package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/orizon-lang/arith/internal/cli"
	"github.com/orizon-lang/arith/internal/pipeline"
	"github.com/orizon-lang/arith/internal/term"
)

const replPrompt = "arith> "

// REPL evaluates one line at a time. Every line is an independent program;
// nothing carries over between lines except the session settings.
type REPL struct {
	app        *app
	scanner    *bufio.Scanner
	prompt     bool
	tree       bool
	history    []string
	maxHistory int
}

func cmdREPL(ctx context.Context, a *app, args []string) error {
	fs := a.flags("repl")
	noPrompt := fs.Bool("no-prompt", false, "never print the prompt")
	historyFile := fs.String("history", "", "append entered lines to this file on exit")
	maxHistory := fs.Int("max-history", 1000, "maximum history entries")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	// the prompt is noise when input is piped in
	interactive := false
	if f, ok := a.stdin.(*os.File); ok {
		interactive = term.IsTerminal(f)
	}

	r := &REPL{
		app:        a,
		scanner:    bufio.NewScanner(a.stdin),
		prompt:     interactive && !*noPrompt,
		maxHistory: *maxHistory,
	}
	if r.prompt {
		fmt.Fprintf(a.stdout, "arith v%s\nType :help for help, :quit to exit\n\n", cli.Version)
	}

	err := r.Run(ctx)
	if *historyFile != "" {
		if herr := r.SaveHistory(*historyFile); herr != nil {
			a.logger.Warn("failed to save history: %v", herr)
		}
	}
	return err
}

// Run reads lines until EOF, :quit or cancellation.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.prompt {
			fmt.Fprint(r.app.stdout, replPrompt)
		}
		if !r.scanner.Scan() {
			if r.prompt {
				fmt.Fprintln(r.app.stdout)
			}
			return r.scanner.Err()
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		r.addHistory(line)

		if strings.HasPrefix(line, ":") {
			if r.handleCommand(ctx, line) {
				return nil
			}
			continue
		}
		r.evaluate(ctx, "", line)
	}
}

func (r *REPL) evaluate(ctx context.Context, name, source string) {
	var opts []pipeline.RunnerOption
	if r.tree {
		opts = append(opts, pipeline.WithTree())
	}
	result, err := r.app.runner(opts...).Run(ctx, name, source)
	if err != nil {
		r.app.report(err, result.Source)
		return
	}
	if r.tree {
		fmt.Fprint(r.app.stdout, result.Tree)
	}
	for _, v := range result.Values {
		fmt.Fprintf(r.app.stdout, "=> %d\n", v)
	}
}

// handleCommand runs a :command and reports whether the session should end.
func (r *REPL) handleCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	out := r.app.stdout

	switch parts[0] {
	case ":help", ":h":
		r.printHelp(out)
	case ":quit", ":q", ":exit":
		return true
	case ":tree":
		if on, ok := toggle(parts); ok {
			r.tree = on
		} else {
			fmt.Fprintln(out, "Usage: :tree on|off")
		}
	case ":debug":
		if on, ok := toggle(parts); ok {
			r.app.logger.DebugMode = on
		} else {
			fmt.Fprintln(out, "Usage: :debug on|off")
		}
	case ":load":
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: :load <file>")
			break
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			fmt.Fprintf(r.app.stderr, "%v\n", err)
			break
		}
		r.evaluate(ctx, parts[1], string(data))
	case ":history":
		for i, entry := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, entry)
		}
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(out, "Type :help for available commands")
	}
	return false
}

func toggle(parts []string) (bool, bool) {
	if len(parts) < 2 {
		return false, false
	}
	switch parts[1] {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

func (r *REPL) printHelp(w io.Writer) {
	fmt.Fprintln(w, "REPL Commands:")
	fmt.Fprintln(w, "  :help, :h          Show this help")
	fmt.Fprintln(w, "  :quit, :q, :exit   Exit")
	fmt.Fprintln(w, "  :tree on|off       Print the syntax tree of each line")
	fmt.Fprintln(w, "  :debug on|off      Toggle debug logging")
	fmt.Fprintln(w, "  :load <file>       Evaluate a file")
	fmt.Fprintln(w, "  :history           Show entered lines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Enter an expression such as (1 + 2) * 3 to evaluate it.")
}

func (r *REPL) addHistory(line string) {
	r.history = append(r.history, line)
	if r.maxHistory > 0 && len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

// SaveHistory appends the session's lines to path.
func (r *REPL) SaveHistory(path string) error {
	if len(r.history) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, strings.Join(r.history, "\n")+"\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
