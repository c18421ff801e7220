package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/export"
)

func exportFormats() []string {
	return export.Formats()
}

// exportCommand writes the tasks to stdout or a file. The format defaults to
// the output file extension, or json.
func (a *app) exportCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todos export", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	format := fs.String("format", "", "Output format ("+strings.Join(exportFormats(), "|")+")")
	fs.StringVar(format, "f", "", "Output format")
	scope := fs.String("category", export.ScopeAll, "Tasks to export (all|work|travel)")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.StringVar(out, "o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	name := *format
	if name == "" {
		name = export.FormatJSON
		if ext := strings.TrimPrefix(filepath.Ext(*out), "."); ext != "" {
			name = ext
		}
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, a.logger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	exporter := export.NewExporter(store)
	doc, err := exporter.Document(*scope)
	if err != nil {
		return err
	}
	if *out == "" {
		return exporter.Export(a.out, f, *scope)
	}

	w, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *out, err)
	}
	if err := exporter.Export(w, f, *scope); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	fmt.Fprintf(a.out, "Exported %d task(s) to %s\n", len(doc.Tasks), *out)
	return nil
}
