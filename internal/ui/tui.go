// Package ui provides the interactive terminal screen.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/todos-go/internal/todo"
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	programOpts []tea.ProgramOption
	skipTTY     bool
}

// WithProgramOptions passes extra options to the bubbletea program. Supplying
// custom input or output also skips the TTY check.
func WithProgramOptions(opts ...tea.ProgramOption) TUIOption {
	return func(c *tuiConfig) {
		c.programOpts = append(c.programOpts, opts...)
		c.skipTTY = true
	}
}

// RunTUI runs the to-do screen over store until the user quits or ctx ends.
func RunTUI(ctx context.Context, store *todo.Store, opts ...TUIOption) error {
	c := &tuiConfig{}
	for _, opt := range opts {
		opt(c)
	}

	if !c.skipTTY && !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(ctx, store)
	programOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, c.programOpts...)
	program := tea.NewProgram(model, programOpts...)
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}

type mode int

const (
	modeBrowse mode = iota
	modeInput
	modeEdit
	modeConfirmDelete
)

var (
	activeHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	inactiveHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	completedStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("244"))
	cursorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type tuiModel struct {
	ctx      context.Context
	store    *todo.Store
	input    textinput.Model
	editor   textinput.Model
	mode     mode
	cursor   int
	pending  string // task awaiting delete confirmation
	status   string
	showHelp bool
}

func newTUIModel(ctx context.Context, store *todo.Store) *tuiModel {
	input := textinput.New()
	input.Prompt = "+ "
	input.CharLimit = 512
	input.Placeholder = store.Category().Placeholder()
	input.SetValue(store.Input())

	editor := textinput.New()
	editor.Prompt = ""
	editor.CharLimit = 512

	m := &tuiModel{
		ctx:    ctx,
		store:  store,
		input:  input,
		editor: editor,
		mode:   modeInput,
	}
	m.input.Focus()
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 4
		m.editor.Width = msg.Width - 8
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *tuiModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "h", "?":
		m.showHelp = !m.showHelp
	case "tab", "left", "right":
		m.switchCategory(otherCategory(m.store.Category()))
	case "w":
		m.switchCategory(todo.Work)
	case "t":
		m.switchCategory(todo.Travel)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.store.View())-1 {
			m.cursor++
		}
	case "i", "a", "n":
		m.mode = modeInput
		m.status = ""
		return m, m.input.Focus()
	case " ", "x":
		if task, ok := m.selected(); ok {
			_, err := m.store.ToggleComplete(m.ctx, task.ID)
			m.report(err)
		}
	case "e", "enter":
		if task, ok := m.selected(); ok && m.store.BeginEdit(task.ID) {
			session, _ := m.store.Session()
			m.editor.SetValue(session.Text)
			m.editor.CursorEnd()
			m.mode = modeEdit
			m.status = ""
			return m, m.editor.Focus()
		}
	case "d", "delete", "backspace":
		if task, ok := m.selected(); ok {
			m.pending = task.ID
			m.mode = modeConfirmDelete
		}
	}
	return m, nil
}

func (m *tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case "tab":
		m.switchCategory(otherCategory(m.store.Category()))
		return m, nil
	case "enter":
		_, ok, err := m.store.Create(m.ctx, m.input.Value())
		m.report(err)
		if ok {
			m.input.SetValue(m.store.Input())
			m.cursor = len(m.store.View()) - 1
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.store.SetInput(m.input.Value())
	return m, cmd
}

func (m *tuiModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.store.CancelEdit()
		m.editor.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		ok, err := m.store.CommitEdit(m.ctx, m.editor.Value())
		m.report(err)
		if ok {
			m.editor.Blur()
			m.mode = modeBrowse
		} else if err == nil {
			m.status = "Text cannot be empty"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.store.SetScratch(m.editor.Value())
	return m, cmd
}

func (m *tuiModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.pending
	m.pending = ""
	m.mode = modeBrowse

	switch msg.String() {
	case "y", "Y":
		_, err := m.store.Delete(m.ctx, id)
		m.report(err)
		if n := len(m.store.View()); m.cursor >= n && m.cursor > 0 {
			m.cursor = n - 1
		}
	default:
		m.status = "Delete cancelled"
	}
	return m, nil
}

func (m *tuiModel) switchCategory(c todo.Category) {
	err := m.store.SetCategory(m.ctx, c)
	m.report(err)
	m.input.Placeholder = c.Placeholder()
	m.cursor = 0
}

// report shows err in the status line; nil clears a previous error.
func (m *tuiModel) report(err error) {
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	if strings.HasPrefix(m.status, "Error: ") {
		m.status = ""
	}
}

func (m *tuiModel) selected() (todo.Task, bool) {
	view := m.store.View()
	if len(view) == 0 {
		return todo.Task{}, false
	}
	if m.cursor >= len(view) {
		m.cursor = len(view) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return view[m.cursor], true
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeHeaders(&b, m.store.Category())

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.mode)
		return b.String()
	}

	b.WriteString(m.input.View() + "\n\n")
	m.writeList(&b)

	if m.mode == modeConfirmDelete {
		if task, ok := m.store.Get(m.pending); ok {
			b.WriteString(warnStyle.Render(fmt.Sprintf("Delete To Do %q? Are you sure? (y/N)", task.Text)) + "\n\n")
		}
	}
	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}
	writeFooter(&b, m.mode)
	return b.String()
}

func (m *tuiModel) writeList(b *strings.Builder) {
	view := m.store.View()
	if len(view) == 0 {
		b.WriteString(dimStyle.Render("  Nothing here yet.") + "\n\n")
		return
	}

	session, editing := m.store.Session()
	for i, task := range view {
		marker := "  "
		if m.mode != modeInput && i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		if editing && m.mode == modeEdit && session.ID == task.ID {
			b.WriteString(marker + "[~] " + m.editor.View() + "\n")
			continue
		}
		b.WriteString(marker + formatTask(task) + "\n")
	}
	b.WriteString("\n")
}

func writeHeaders(b *strings.Builder, active todo.Category) {
	headers := make([]string, 0, len(todo.Categories))
	for _, c := range todo.Categories {
		style := inactiveHeaderStyle
		if c == active {
			style = activeHeaderStyle
		}
		headers = append(headers, style.Render(c.Title()))
	}
	b.WriteString(strings.Join(headers, "   ") + "\n\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  i, a         Add a task (enter saves, esc leaves the input)\n")
	b.WriteString("  tab, w, t    Switch between Work and Travel\n")
	b.WriteString("  up/k, down/j Move the selection\n")
	b.WriteString("  space, x     Toggle completed\n")
	b.WriteString("  e, enter     Edit the selected task (esc cancels)\n")
	b.WriteString("  d            Delete the selected task\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
}

func writeFooter(b *strings.Builder, m mode) {
	var hint string
	switch m {
	case modeInput:
		hint = "enter add | tab switch list | esc done"
	case modeEdit:
		hint = "enter save | esc cancel"
	case modeConfirmDelete:
		hint = "y delete | any other key cancels"
	default:
		hint = "a add | space toggle | e edit | d delete | h help | q quit"
	}
	b.WriteString(dimStyle.Render(hint) + "\n")
}

func formatTask(t todo.Task) string {
	if t.Completed {
		return "[x] " + completedStyle.Render(t.Text)
	}
	return "[ ] " + t.Text
}

func otherCategory(c todo.Category) todo.Category {
	if c == todo.Work {
		return todo.Travel
	}
	return todo.Work
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
