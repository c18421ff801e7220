package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/todo"
)

var errEmptyText = errors.New("task text is empty")

// addCommand creates a task in the active category. --category switches the
// active category first, the same way the screen does.
func (a *app) addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos add", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	category := fs.String("category", "", "Category to add to (work|travel)")
	fs.StringVar(category, "c", "", "Category to add to (work|travel)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: todos add [-category work|travel] <text>")
	}

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	if *category != "" {
		c, err := todo.ParseCategory(*category)
		if err != nil {
			return err
		}
		if err := store.SetCategory(ctx, c); err != nil {
			return err
		}
	}

	task, ok, err := store.Create(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	if !ok {
		return errEmptyText
	}
	fmt.Fprintf(a.out, "Added %s to %s: %s\n", task.ID, task.Category.Title(), task.Text)
	return nil
}

// editCommand replaces the text of a task through an edit session.
func (a *app) editCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos edit", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: todos edit <id> <text>")
	}
	id := fs.Arg(0)

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	if !store.BeginEdit(id) {
		return fmt.Errorf("task %s not found", id)
	}
	ok, err := store.CommitEdit(ctx, strings.Join(fs.Args()[1:], " "))
	if err != nil {
		return err
	}
	if !ok {
		store.CancelEdit()
		return errEmptyText
	}
	task, _ := store.Get(id)
	fmt.Fprintf(a.out, "Updated %s: %s\n", task.ID, task.Text)
	return nil
}

// toggleCommand flips the completion flag of a task.
func (a *app) toggleCommand(ctx context.Context, cfg *config.Config, args []string) error {
	id, err := a.singleID("todos toggle", args)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	found, err := store.ToggleComplete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("task %s not found", id)
	}
	task, _ := store.Get(id)
	verb := "Reopened"
	if task.Completed {
		verb = "Completed"
	}
	fmt.Fprintf(a.out, "%s %s: %s\n", verb, task.ID, task.Text)
	return nil
}

// rmCommand deletes a task after confirmation.
func (a *app) rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos rm", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	yes := fs.Bool("yes", false, "Delete without asking for confirmation")
	fs.BoolVar(yes, "y", false, "Delete without asking for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: todos rm [-yes] <id>")
	}
	id := fs.Arg(0)

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	task, ok := store.Get(id)
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if !*yes && !a.confirm(fmt.Sprintf("Delete To Do %q? Are you sure? (y/N) ", task.Text)) {
		fmt.Fprintln(a.out, "Delete cancelled")
		return nil
	}
	if _, err := store.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s: %s\n", task.ID, task.Text)
	return nil
}

// modeCommand prints the active category or switches it.
func (a *app) modeCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos mode", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	if fs.NArg() == 0 {
		fmt.Fprintln(a.out, store.Category().Title())
		return nil
	}
	c, err := todo.ParseCategory(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := store.SetCategory(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Switched to %s\n", c.Title())
	return nil
}

// singleID parses a command that takes exactly one task id.
func (a *app) singleID(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("usage: %s <id>", name)
	}
	return fs.Arg(0), nil
}

// confirm asks a yes/no question on the input stream. Anything but y or yes
// is a no.
func (a *app) confirm(prompt string) bool {
	fmt.Fprint(a.out, prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
