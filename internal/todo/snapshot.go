package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// SnapshotSchema is the JSON Schema every persisted task snapshot must satisfy.
const SnapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"minLength": 1},
  "additionalProperties": {
    "type": "object",
    "required": ["text", "working"],
    "properties": {
      "text": {"type": "string", "minLength": 1},
      "working": {"type": "boolean"},
      "completed": {"type": "boolean"}
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func snapshotSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("snapshot.schema.json", SnapshotSchema)
	})
	return compiledSchema, schemaErr
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool // true if JSON Schema validation was performed
}

// Err joins all validation errors, or returns nil for a valid result.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return errors.Join(r.Errors...)
}

// ValidateSnapshot checks that data is a well-formed task snapshot.
func ValidateSnapshot(data []byte) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("invalid JSON: %w", err)})
		return result
	}

	schema, err := snapshotSchema()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("JSON Schema validation not available, using minimal checks: %v", err))
		validateMinimal(doc, result)
		return result
	}

	result.UsedSchema = true
	if err := schema.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
	return result
}

// validateMinimal performs minimal validation without JSON Schema.
func validateMinimal(doc interface{}, result *ValidationResult) {
	fail := func(path string, err error) {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Path: path, Err: err})
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		fail("", fmt.Errorf("snapshot must be an object"))
		return
	}

	for id, value := range obj {
		if id == "" {
			fail("", fmt.Errorf("empty task id"))
			continue
		}
		rec, ok := value.(map[string]interface{})
		if !ok {
			fail(id, fmt.Errorf("task must be an object"))
			continue
		}
		text, ok := rec["text"].(string)
		if !ok || text == "" {
			fail(id+".text", fmt.Errorf("missing required field"))
		}
		if _, ok := rec["working"].(bool); !ok {
			fail(id+".working", fmt.Errorf("must be a boolean"))
		}
		if v, present := rec["completed"]; present {
			if _, ok := v.(bool); !ok {
				fail(id+".completed", fmt.Errorf("must be a boolean"))
			}
		}
	}
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		result.Errors = append(result.Errors, err)
		return
	}

	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}

// EncodeSnapshot writes tasks as a JSON object keyed by id, in the given order.
func EncodeSnapshot(order []string, tasks map[string]Task) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range order {
		task, ok := tasks[id]
		if !ok {
			return nil, fmt.Errorf("encode snapshot: task %q not found", id)
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		value, err := json.Marshal(toRecord(task))
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeSnapshot validates data and returns the task ids in document order
// together with the decoded tasks. A repeated id keeps its first position and
// its last value.
func DecodeSnapshot(data []byte) ([]string, map[string]Task, error) {
	if result := ValidateSnapshot(data); !result.Valid {
		return nil, nil, fmt.Errorf("invalid snapshot: %w", result.Err())
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("parse snapshot: expected object")
	}

	order := make([]string, 0)
	tasks := make(map[string]Task)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse snapshot: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("parse snapshot: expected task id")
		}
		var r record
		if err := dec.Decode(&r); err != nil {
			return nil, nil, fmt.Errorf("parse task %s: %w", id, err)
		}
		if _, seen := tasks[id]; !seen {
			order = append(order, id)
		}
		tasks[id] = fromRecord(id, r)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("parse snapshot: %w", err)
	}

	return order, tasks, nil
}

// EncodeCategory returns the persisted form of the category filter.
func EncodeCategory(c Category) string {
	return strconv.FormatBool(c.Working())
}

// DecodeCategory parses a persisted category filter. Anything other than a
// JSON boolean is rejected.
func DecodeCategory(s string) (Category, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Work, fmt.Errorf("parse category: %w", err)
	}
	working, ok := v.(bool)
	if !ok {
		return Work, fmt.Errorf("parse category: expected boolean, got %s", strings.TrimSpace(s))
	}
	return CategoryFromWorking(working), nil
}
