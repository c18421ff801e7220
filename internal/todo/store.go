package todo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Storage keys.
const (
	TasksKey    = "@toDos"
	CategoryKey = "@working"
)

// Storage is the key/value backend the store mirrors its state to.
// Get reports ok=false when the key has never been written. A Get error with
// a Malformed() bool method that returns true means the backend holds data it
// cannot decode. Load treats it like any other malformed value.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ErrorPolicy decides what the store does with storage failures.
type ErrorPolicy int

const (
	// PolicyLog logs storage failures and reports success to the caller.
	PolicyLog ErrorPolicy = iota
	// PolicyReturn logs storage failures and also returns them.
	PolicyReturn
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage failures and mutations.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator sets the task id generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithErrorPolicy sets the storage failure policy.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

// Store is the in-memory task collection plus the active category filter.
// Every mutation writes the full collection (or the filter) through to
// storage before returning. In-memory state always reflects the mutation,
// whether or not the write succeeded.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *log.Logger
	ids     IDGenerator
	policy  ErrorPolicy

	order    []string
	tasks    map[string]Task
	category Category
	input    string
	edit     *EditSession
}

// New creates an empty store backed by storage. Call Load to read the
// persisted state.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		logger:   log.New(io.Discard),
		ids:      NewTimestampIDs(nil),
		policy:   PolicyLog,
		tasks:    make(map[string]Task),
		category: Work,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted filter and tasks.
// Missing keys leave the defaults (Work, no tasks). Malformed values are
// ignored and also leave the defaults.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.category = Work
	s.order = nil
	s.tasks = make(map[string]Task)
	s.edit = nil

	var errs []error

	raw, ok, err := s.storage.Get(ctx, CategoryKey)
	switch {
	case malformed(err):
		s.logger.Debug("Ignoring malformed storage", "key", CategoryKey, "err", err)
	case err != nil:
		s.logger.Error("Error loading working state", "key", CategoryKey, "err", err)
		errs = append(errs, fmt.Errorf("load category: %w", err))
	case ok:
		c, err := DecodeCategory(raw)
		if err != nil {
			s.logger.Debug("Ignoring malformed working state", "key", CategoryKey, "err", err)
			break
		}
		s.category = c
	}

	raw, ok, err = s.storage.Get(ctx, TasksKey)
	switch {
	case malformed(err):
		s.logger.Debug("Ignoring malformed storage", "key", TasksKey, "err", err)
	case err != nil:
		s.logger.Error("Error loading todos", "key", TasksKey, "err", err)
		errs = append(errs, fmt.Errorf("load tasks: %w", err))
	case ok && raw != "":
		order, tasks, err := DecodeSnapshot([]byte(raw))
		if err != nil {
			s.logger.Debug("Ignoring malformed todos", "key", TasksKey, "err", err)
			break
		}
		s.order = order
		s.tasks = tasks
	}

	s.logger.Debug("Loaded", "category", s.category, "tasks", len(s.order))
	return s.settle(errors.Join(errs...))
}

// malformed reports whether err says the backend holds undecodable data, as
// opposed to failing to reach it. Backends mark such errors with a
// Malformed() bool method.
func malformed(err error) bool {
	var m interface{ Malformed() bool }
	return errors.As(err, &m) && m.Malformed()
}

// Category returns the active filter.
func (s *Store) Category() Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// SetCategory switches the active filter and persists it.
func (s *Store) SetCategory(ctx context.Context, c Category) error {
	if c != Work && c != Travel {
		return fmt.Errorf("invalid category %d", int(c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.category = c
	if err := s.storage.Set(ctx, CategoryKey, EncodeCategory(c)); err != nil {
		s.logger.Error("Error saving working state", "key", CategoryKey, "category", c, "err", err)
		return s.settle(fmt.Errorf("save category: %w", err))
	}
	return nil
}

// Input returns the pending new-task text.
func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput replaces the pending new-task text.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Create adds a task with the given text under the active filter, persists
// the collection and clears the pending input. Empty text is rejected with
// ok=false and no error.
func (s *Store) Create(ctx context.Context, text string) (task Task, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		return Task{}, false, nil
	}

	id, err := s.ids.NewID(s.taken)
	if err != nil {
		return Task{}, false, fmt.Errorf("create task: %w", err)
	}

	task = Task{ID: id, Text: text, Category: s.category}
	s.tasks[id] = task
	s.order = append(s.order, id)
	s.logger.Debug("Created task", "id", id, "category", task.Category)

	err = s.persist(ctx)
	s.input = ""
	return task, true, err
}

// Delete removes a task the caller has already confirmed. Unknown ids are
// ignored. Deleting the task under edit closes the edit session.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}

	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.edit != nil && s.edit.ID == id {
		s.edit = nil
	}
	s.logger.Debug("Deleted task", "id", id)

	return true, s.persist(ctx)
}

// BeginEdit opens an edit session on id, seeded with its current text.
// An open session on another task is discarded without saving.
func (s *Store) BeginEdit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	s.edit = &EditSession{ID: id, Text: task.Text}
	return true
}

// Session returns the open edit session, if any.
func (s *Store) Session() (EditSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil {
		return EditSession{}, false
	}
	return *s.edit, true
}

// SetScratch replaces the scratch text of the open edit session.
func (s *Store) SetScratch(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil {
		return false
	}
	s.edit.Text = text
	return true
}

// CommitEdit saves editedText into the task under edit and closes the
// session. It is a no-op when no session is open or editedText is empty.
//
// The committed task keeps its category but its completion flag is reset to
// false; the saved record carries only text and category.
func (s *Store) CommitEdit(ctx context.Context, editedText string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil || editedText == "" {
		return false, nil
	}

	id := s.edit.ID
	task, ok := s.tasks[id]
	if !ok {
		s.edit = nil
		return false, nil
	}

	s.tasks[id] = Task{ID: id, Text: editedText, Category: task.Category}
	s.edit = nil
	s.logger.Debug("Edited task", "id", id)

	return true, s.persist(ctx)
}

// CancelEdit closes the open edit session without touching the task.
func (s *Store) CancelEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil {
		return false
	}
	s.edit = nil
	return true
}

// ToggleComplete flips the completion flag of id and persists the collection.
func (s *Store) ToggleComplete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	task.Completed = !task.Completed
	s.tasks[id] = task
	s.logger.Debug("Toggled task", "id", id, "completed", task.Completed)

	return true, s.persist(ctx)
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	return task, ok
}

// Len returns the number of tasks across both categories.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// All returns every task in insertion order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.tasks[id])
	}
	return tasks
}

// View returns the tasks of the active category in insertion order.
func (s *Store) View() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(s.category)
}

// ByCategory returns the tasks of c in insertion order.
func (s *Store) ByCategory(c Category) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(c)
}

func (s *Store) filter(c Category) []Task {
	tasks := make([]Task, 0)
	for _, id := range s.order {
		if task := s.tasks[id]; task.Category == c {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (s *Store) taken(id string) bool {
	_, ok := s.tasks[id]
	return ok
}

// persist writes the full collection. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	data, err := EncodeSnapshot(s.order, s.tasks)
	if err != nil {
		s.logger.Error("Error encoding todos", "err", err)
		return s.settle(err)
	}
	if err := s.storage.Set(ctx, TasksKey, string(data)); err != nil {
		s.logger.Error("Error saving todos", "key", TasksKey, "tasks", len(s.order), "err", err)
		return s.settle(fmt.Errorf("save tasks: %w", err))
	}
	return nil
}

func (s *Store) settle(err error) error {
	if err == nil || s.policy == PolicyLog {
		return nil
	}
	return err
}
