// Package todo holds the two-list task store and its persisted snapshot format.
package todo

import (
	"fmt"
	"strings"
)

// Category selects one of the two task lists.
type Category int

const (
	Work Category = iota
	Travel
)

// Categories lists every category in display order.
var Categories = []Category{Work, Travel}

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case Work:
		return "work"
	case Travel:
		return "travel"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Title returns the header label shown for the category.
func (c Category) Title() string {
	switch c {
	case Work:
		return "Work"
	case Travel:
		return "Travel"
	default:
		return c.String()
	}
}

// Placeholder returns the input hint for new tasks in this category.
func (c Category) Placeholder() string {
	if c == Travel {
		return "Where do you want to go?"
	}
	return "Add a To Do"
}

// Working reports whether the category is persisted as working=true.
func (c Category) Working() bool {
	return c == Work
}

// CategoryFromWorking maps the persisted working flag to a category.
func CategoryFromWorking(working bool) Category {
	if working {
		return Work
	}
	return Travel
}

// ParseCategory parses "work" or "travel" (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work", "w":
		return Work, nil
	case "travel", "t":
		return Travel, nil
	default:
		return Work, fmt.Errorf("invalid category %q, must be one of: work, travel", s)
	}
}

// Task is a single to-do item.
type Task struct {
	ID        string
	Text      string
	Category  Category
	Completed bool
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == ""
}

// record is the persisted form of a Task; the id is the enclosing object key.
type record struct {
	Text      string `json:"text"`
	Working   bool   `json:"working"`
	Completed bool   `json:"completed"`
}

func toRecord(t Task) record {
	return record{
		Text:      t.Text,
		Working:   t.Category.Working(),
		Completed: t.Completed,
	}
}

func fromRecord(id string, r record) Task {
	return Task{
		ID:        id,
		Text:      r.Text,
		Category:  CategoryFromWorking(r.Working),
		Completed: r.Completed,
	}
}

// EditSession is the scratch state of an in-place edit.
type EditSession struct {
	ID   string
	Text string
}
