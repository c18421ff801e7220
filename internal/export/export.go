// Package export renders the task collection as JSON, YAML, TOML or PDF.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jung-kurt/gofpdf"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/todos-go/internal/todo"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatPDF  = "pdf"
)

// ScopeAll exports both categories.
const ScopeAll = "all"

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatTOML, FormatPDF}
}

// ParseFormat normalizes a format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatJSON, FormatTOML, FormatPDF:
		return f, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: %s", s, strings.Join(Formats(), ", "))
	}
}

// Source provides the tasks to export in iteration order.
type Source interface {
	All() []todo.Task
}

// Entry is one exported task.
type Entry struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Text      string `json:"text" yaml:"text" toml:"text"`
	Category  string `json:"category" yaml:"category" toml:"category"`
	Completed bool   `json:"completed" yaml:"completed" toml:"completed"`
}

// Document is the exported collection.
type Document struct {
	Scope string  `json:"scope" yaml:"scope" toml:"scope"`
	Tasks []Entry `json:"tasks" yaml:"tasks" toml:"tasks"`
}

// Exporter renders the tasks of a Source as a Document in one of the
// supported formats.
type Exporter struct{ src Source }

// NewExporter returns an Exporter reading from src.
func NewExporter(src Source) *Exporter { return &Exporter{src: src} }

// Document collects the tasks in scope, which is "all", "work" or "travel".
func (e *Exporter) Document(scope string) (Document, error) {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = ScopeAll
	}

	var only *todo.Category
	if scope != ScopeAll {
		c, err := todo.ParseCategory(scope)
		if err != nil {
			return Document{}, err
		}
		only = &c
		scope = c.String()
	}

	doc := Document{Scope: scope, Tasks: make([]Entry, 0)}
	for _, task := range e.src.All() {
		if only != nil && task.Category != *only {
			continue
		}
		doc.Tasks = append(doc.Tasks, Entry{
			ID:        task.ID,
			Text:      task.Text,
			Category:  task.Category.String(),
			Completed: task.Completed,
		})
	}
	return doc, nil
}

// Export writes the tasks in scope to w in the given format.
func (e *Exporter) Export(w io.Writer, format, scope string) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	doc, err := e.Document(scope)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return writePDF(w, doc)
	}
}

func writePDF(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("To Do", true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "To Do")
	pdf.Ln(14)

	for _, c := range todo.Categories {
		if doc.Scope != ScopeAll && doc.Scope != c.String() {
			continue
		}
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(40, 8, c.Title())
		pdf.Ln(10)

		pdf.SetFont("Arial", "", 11)
		count := 0
		for _, entry := range doc.Tasks {
			if entry.Category != c.String() {
				continue
			}
			box := "[ ]"
			if entry.Completed {
				box = "[x]"
			}
			pdf.MultiCell(0, 6, tr(box+" "+entry.Text), "0", "L", false)
			count++
		}
		if count == 0 {
			pdf.SetFont("Arial", "I", 11)
			pdf.MultiCell(0, 6, "Nothing here yet.", "0", "L", false)
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
