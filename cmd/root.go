// Package cmd implements the CLI command structure for todos.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/kv"
	"github.com/nibzard/todos-go/internal/logging"
	"github.com/nibzard/todos-go/internal/todo"
	"github.com/nibzard/todos-go/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries the streams a command reads and writes.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	cws    *config.ConfigWithSources

	// tuiOpts is extended by tests to run the TUI without a terminal.
	tuiOpts []ui.TUIOption
}

// Run executes the todos CLI.
func Run(ctx context.Context, args []string) error {
	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("todos", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		printUsage(fs, a.errOut)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cws = cws
	if *help {
		printUsage(fs, a.out)
		return nil
	}
	if *showVersion {
		return a.versionCommand()
	}

	// Determine the subcommand, "tui" when none is given
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	cfg := cws.Config
	switch subcommand {
	case "tui":
		return a.tuiCommand(ctx, cfg, remainingArgs)
	case "add":
		return a.addCommand(ctx, cfg, remainingArgs)
	case "ls", "list":
		return a.lsCommand(ctx, cfg, remainingArgs)
	case "edit":
		return a.editCommand(ctx, cfg, remainingArgs)
	case "toggle", "done":
		return a.toggleCommand(ctx, cfg, remainingArgs)
	case "rm", "delete":
		return a.rmCommand(ctx, cfg, remainingArgs)
	case "mode":
		return a.modeCommand(ctx, cfg, remainingArgs)
	case "export":
		return a.exportCommand(ctx, cfg, remainingArgs)
	case "config":
		return a.configCommand(remainingArgs)
	case "doctor":
		return a.doctorCommand(ctx, cfg, remainingArgs)
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(fs, a.out)
		return nil
	default:
		fmt.Fprintf(a.errOut, "Unknown command: %s\n", subcommand)
		printUsage(fs, a.errOut)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// tuiCommand launches the interactive screen. Logs go to the log file
// because the screen owns the terminal.
func (a *app) tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos tui", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	opts := cfg.LogOptions()
	opts.ReportTimestamp = true
	logger := logging.New(logOut, opts)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	logger.Info("Starting terminal UI", "backend", cfg.Backend, "tasks", store.Len())
	return ui.RunTUI(ctx, store, a.tuiOpts...)
}

// lsCommand lists the tasks of the active category, or of both with --all.
func (a *app) lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos ls", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	all := fs.Bool("all", false, "List both categories")
	fs.BoolVar(all, "a", false, "List both categories")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	if !*all {
		a.printCategory(store.Category(), store.View())
		return nil
	}
	for i, c := range todo.Categories {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		a.printCategory(c, store.ByCategory(c))
	}
	return nil
}

// printCategory prints one category header and its tasks.
func (a *app) printCategory(c todo.Category, tasks []todo.Task) {
	header := color.New(color.Bold)
	done := color.New(color.FgHiBlack, color.CrossedOut)
	id := color.New(color.FgCyan)
	if !ui.IsTTY(a.out) {
		header.DisableColor()
		done.DisableColor()
		id.DisableColor()
	}

	header.Fprintf(a.out, "%s (%d)\n", c.Title(), len(tasks))
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "  Nothing here yet.")
		return
	}
	for _, t := range tasks {
		if t.Completed {
			fmt.Fprintf(a.out, "  [x] %s  %s\n", id.Sprint(t.ID), done.Sprint(t.Text))
			continue
		}
		fmt.Fprintf(a.out, "  [ ] %s  %s\n", id.Sprint(t.ID), t.Text)
	}
}

// versionCommand prints version information.
func (a *app) versionCommand() error {
	fmt.Fprintf(a.out, "todos version %s\n", Version)
	return nil
}

// logger returns the stderr logger used by one-shot commands.
func (a *app) logger(cfg *config.Config) *log.Logger {
	return logging.New(a.errOut, cfg.LogOptions())
}

// openStore opens the configured backend and loads the task collection.
// The returned func closes the backend.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*todo.Store, func() error, error) {
	storage, err := kv.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", cfg.Backend, err)
	}
	ids, err := todo.NewIDGenerator(cfg.IDScheme)
	if err != nil {
		storage.Close()
		return nil, nil, err
	}

	store := todo.New(storage,
		todo.WithLogger(logger),
		todo.WithIDGenerator(ids),
		todo.WithErrorPolicy(cfg.ErrorPolicy()),
	)
	if err := store.Load(ctx); err != nil {
		storage.Close()
		return nil, nil, fmt.Errorf("loading tasks: %w", err)
	}
	logger.Debug("Opened storage", "backend", cfg.Backend, "target", storage.String())
	return store, storage.Close, nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todos - Work and Travel to-do lists")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todos [options] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui                   Launch terminal UI (default command)")
	fmt.Fprintln(w, "  add <text>            Add a task to the active category")
	fmt.Fprintln(w, "  ls                    List tasks of the active category")
	fmt.Fprintln(w, "  edit <id> <text>      Replace the text of a task")
	fmt.Fprintln(w, "  toggle <id>           Mark a task completed or open")
	fmt.Fprintln(w, "  rm <id>               Delete a task")
	fmt.Fprintln(w, "  mode [work|travel]    Show or switch the active category")
	fmt.Fprintln(w, "  export                Export tasks as json, yaml, toml or pdf")
	fmt.Fprintln(w, "  config                Show the effective configuration")
	fmt.Fprintln(w, "  doctor                Check config, storage and stored data")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Add Options:")
	fmt.Fprintln(w, "  -category string")
	fmt.Fprintln(w, "        Category to add to (work|travel), also made active")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options:")
	fmt.Fprintln(w, "  -a, -all")
	fmt.Fprintln(w, "        List both categories")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rm Options:")
	fmt.Fprintln(w, "  -y, -yes")
	fmt.Fprintln(w, "        Delete without asking for confirmation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options:")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintf(w, "        Output format (%s) (default \"json\")\n", strings.Join(exportFormats(), "|"))
	fmt.Fprintln(w, "  -category string")
	fmt.Fprintln(w, "        Tasks to export (all|work|travel) (default \"all\")")
	fmt.Fprintln(w, "  -o, -out string")
	fmt.Fprintln(w, "        Output file (default stdout)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config Options:")
	fmt.Fprintln(w, "  -example")
	fmt.Fprintln(w, "        Print an example configuration file")
}
