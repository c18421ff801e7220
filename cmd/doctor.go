package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/kv"
	"github.com/nibzard/todos-go/internal/todo"
)

// doctorCommand checks the configuration, the storage backend and the
// stored snapshot.
func (a *app) doctorCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos doctor", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	w := a.out
	fmt.Fprintln(w, "Todos Doctor")
	fmt.Fprintln(w, "============")
	fmt.Fprintln(w)

	allOK := true

	// Config was validated by LoadWithSources; report where it came from
	fmt.Fprintln(w, "Config:")
	if file := a.cws.GetConfigFile(); file != "" {
		fmt.Fprintf(w, "  ✅ %s\n", file)
	} else {
		fmt.Fprintln(w, "  ✅ defaults (no config file)")
	}
	if *verbose {
		for _, pair := range configValues(cfg) {
			fmt.Fprintf(w, "     %s = %s\n", pair[0], pair[1])
		}
	}
	fmt.Fprintln(w)

	// Backend
	fmt.Fprintf(w, "Storage (%s):\n", cfg.Backend)
	storage, err := kv.Open(ctx, cfg.StorageOptions())
	if err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "⚠️  Some checks failed. Tasks cannot be saved.")
		return fmt.Errorf("doctor checks failed")
	}
	defer storage.Close()
	fmt.Fprintf(w, "  ✅ %s\n", storage)
	fmt.Fprintln(w)

	// Stored tasks
	fmt.Fprintf(w, "Tasks (%s):\n", todo.TasksKey)
	raw, ok, err := storage.Get(ctx, todo.TasksKey)
	switch {
	case err != nil:
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	case !ok || raw == "":
		fmt.Fprintln(w, "  ⚠️  nothing stored yet")
	default:
		result := todo.ValidateSnapshot([]byte(raw))
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  ⚠️  %s\n", warning)
		}
		if !result.Valid {
			for _, verr := range result.Errors {
				fmt.Fprintf(w, "  ❌ %v\n", verr)
			}
			fmt.Fprintln(w, "     The snapshot will be ignored and the lists start empty.")
			allOK = false
			break
		}
		order, tasks, err := todo.DecodeSnapshot([]byte(raw))
		if err != nil {
			fmt.Fprintf(w, "  ❌ %v\n", err)
			allOK = false
			break
		}
		done := 0
		for _, t := range tasks {
			if t.Completed {
				done++
			}
		}
		fmt.Fprintf(w, "  ✅ %d task(s), %d completed\n", len(order), done)
	}
	fmt.Fprintln(w)

	// Stored category
	fmt.Fprintf(w, "Category (%s):\n", todo.CategoryKey)
	raw, ok, err = storage.Get(ctx, todo.CategoryKey)
	switch {
	case err != nil:
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	case !ok:
		fmt.Fprintln(w, "  ⚠️  nothing stored yet (Work)")
	default:
		c, err := todo.DecodeCategory(raw)
		if err != nil {
			fmt.Fprintf(w, "  ❌ %v\n", err)
			allOK = false
			break
		}
		fmt.Fprintf(w, "  ✅ %s\n", c.Title())
	}
	fmt.Fprintln(w)

	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed. Stored data will be reset on the next write.")
	return fmt.Errorf("doctor checks failed")
}
