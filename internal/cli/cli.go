// Package cli implements the todo command, a terminal client for the task
// list served by the API.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"todaytasks/api/internal/todo"
)

const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitInternal = 10
)

const defaultServer = "http://localhost:8787"

type GlobalFlags struct {
	Server  string
	Timeout time.Duration
	Quiet   bool
}

type env struct {
	gf     GlobalFlags
	stdout io.Writer
	stderr io.Writer
	ctl    *todo.Controller
}

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return ExitUsage
	}
	if len(rest) == 0 {
		printHelp(stderr)
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp(stdout)
		return ExitOK
	}

	e := &env{
		gf:     gf,
		stdout: stdout,
		stderr: stderr,
		ctl:    todo.NewController(todo.NewClient(gf.Server, nil)),
	}
	ctx, cancel := context.WithTimeout(context.Background(), gf.Timeout)
	defer cancel()

	switch cmd {
	case "list", "ls":
		return e.cmdList(ctx, cmdArgs)
	case "add":
		return e.cmdAdd(ctx, cmdArgs)
	case "done", "toggle":
		return e.cmdDone(ctx, cmdArgs)
	case "edit":
		return e.cmdEdit(ctx, cmdArgs)
	case "rm", "delete":
		return e.cmdRemove(ctx, cmdArgs)
	case "mv", "move":
		return e.cmdMove(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "todo: unknown command %q\n", cmd)
		printHelp(stderr)
		return ExitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `todo - manage today's tasks from the terminal

Usage:
  todo [global flags] <command> [args]

Global flags:
  --server <url>   API base URL (default: http://localhost:8787 or TODO_SERVER)
  --timeout <dur>  Request timeout (default: 10s)
  --quiet          Suppress confirmations

Commands:
  list [--filter active|completed|all]
  add <text>
  done <id>
  edit <id> <text>
  rm <id>
  mv <from> <to> [--filter active|completed|all]
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	gf := GlobalFlags{Server: defaultServer, Timeout: 10 * time.Second}
	if envServer := strings.TrimSpace(os.Getenv("TODO_SERVER")); envServer != "" {
		gf.Server = envServer
	}

	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") {
			rest = append(rest, a)
			continue
		}
		switch name {
		case "server", "timeout":
			if !hasValue {
				if i+1 >= len(args) {
					return gf, nil, fmt.Errorf("flag --%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			if name == "server" {
				gf.Server = strings.TrimSpace(value)
				continue
			}
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				return gf, nil, fmt.Errorf("invalid --timeout %q", value)
			}
			gf.Timeout = d
		case "quiet", "q":
			gf.Quiet = true
		default:
			rest = append(rest, a)
		}
	}
	if gf.Server == "" {
		return gf, nil, errors.New("--server must not be empty")
	}
	return gf, rest, nil
}

// reorderFlags moves flags ahead of positional arguments so the flag package
// accepts them anywhere on the command line.
func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func (e *env) load(ctx context.Context) int {
	if err := e.ctl.Load(ctx); err != nil {
		fmt.Fprintln(e.stderr, "todo:", e.ctl.Err())
		fmt.Fprintln(e.stderr, "todo:", err)
		return ExitInternal
	}
	return ExitOK
}

func (e *env) parseFilter(fs *flag.FlagSet, args []string) ([]string, bool) {
	filter := fs.String("filter", string(todo.FilterActive), "Filter (active|completed|all)")
	fs.SetOutput(e.stderr)
	if err := fs.Parse(reorderFlags(args, map[string]bool{"--filter": true, "-filter": true})); err != nil {
		return nil, false
	}
	f, err := todo.ParseFilter(*filter)
	if err != nil {
		fmt.Fprintln(e.stderr, "todo:", err)
		return nil, false
	}
	e.ctl.SetFilter(f)
	return fs.Args(), true
}

func (e *env) cmdList(ctx context.Context, args []string) int {
	rest, ok := e.parseFilter(flag.NewFlagSet("list", flag.ContinueOnError), args)
	if !ok || len(rest) != 0 {
		fmt.Fprintln(e.stderr, "Usage: todo list [--filter active|completed|all]")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}

	tasks := e.ctl.Visible()
	if len(tasks) == 0 {
		if !e.gf.Quiet {
			fmt.Fprintf(e.stdout, "No %s tasks.\n", e.ctl.Filter())
		}
		return ExitOK
	}
	w := tabwriter.NewWriter(e.stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tST\tTEXT")
	for i, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, t.ID, statusAbbrev(t), t.Text)
	}
	_ = w.Flush()
	return ExitOK
}

func statusAbbrev(t todo.Task) string {
	if t.Completed {
		return "x"
	}
	return "-"
}

func (e *env) cmdAdd(ctx context.Context, args []string) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(e.stderr, "Usage: todo add <text>")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}
	task, err := e.ctl.Add(ctx, text)
	if err != nil {
		return e.fail("add", err)
	}
	if !e.gf.Quiet {
		fmt.Fprintf(e.stdout, "Added %s: %s\n", task.ID, task.Text)
	}
	return ExitOK
}

func (e *env) cmdDone(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.stderr, "Usage: todo done <id>")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}
	id := todo.ID(args[0])
	if err := e.ctl.Toggle(ctx, id); err != nil {
		return e.fail("done", err)
	}
	if !e.gf.Quiet {
		for _, t := range e.ctl.Tasks() {
			if t.ID == id {
				state := "active"
				if t.Completed {
					state = "completed"
				}
				fmt.Fprintf(e.stdout, "Marked %s %s\n", id, state)
			}
		}
	}
	return ExitOK
}

func (e *env) cmdEdit(ctx context.Context, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(e.stderr, "Usage: todo edit <id> <text>")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}
	id := todo.ID(args[0])
	if err := e.ctl.Edit(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return e.fail("edit", err)
	}
	if !e.gf.Quiet {
		fmt.Fprintf(e.stdout, "Updated %s\n", id)
	}
	return ExitOK
}

func (e *env) cmdRemove(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.stderr, "Usage: todo rm <id>")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}
	id := todo.ID(args[0])
	if err := e.ctl.Delete(ctx, id); err != nil {
		return e.fail("rm", err)
	}
	if !e.gf.Quiet {
		fmt.Fprintf(e.stdout, "Deleted %s\n", id)
	}
	return ExitOK
}

// cmdMove takes 1-based positions in the list shown by `todo list` with the
// same filter.
func (e *env) cmdMove(ctx context.Context, args []string) int {
	rest, ok := e.parseFilter(flag.NewFlagSet("mv", flag.ContinueOnError), args)
	if !ok || len(rest) != 2 {
		fmt.Fprintln(e.stderr, "Usage: todo mv <from> <to> [--filter active|completed|all]")
		return ExitUsage
	}
	from, errFrom := strconv.Atoi(rest[0])
	to, errTo := strconv.Atoi(rest[1])
	if errFrom != nil || errTo != nil {
		fmt.Fprintln(e.stderr, "todo mv: positions must be integers")
		return ExitUsage
	}
	if code := e.load(ctx); code != ExitOK {
		return code
	}
	if err := e.ctl.Reorder(ctx, from-1, to-1); err != nil {
		return e.fail("mv", err)
	}
	if !e.gf.Quiet {
		fmt.Fprintf(e.stdout, "Moved %d to %d\n", from, to)
	}
	return ExitOK
}

func (e *env) fail(cmd string, err error) int {
	switch {
	case errors.Is(err, todo.ErrTaskNotFound):
		fmt.Fprintf(e.stderr, "todo %s: %v\n", cmd, err)
		return ExitNotFound
	case errors.Is(err, todo.ErrEmptyText), errors.Is(err, todo.ErrInvalidPosition):
		fmt.Fprintf(e.stderr, "todo %s: %v\n", cmd, err)
		return ExitUsage
	}
	if msg := e.ctl.Err(); msg != "" {
		fmt.Fprintln(e.stderr, "todo:", msg)
	}
	fmt.Fprintf(e.stderr, "todo %s: %v\n", cmd, err)
	return ExitInternal
}
