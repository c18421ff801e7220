// Package todo holds the two-list task store and its persisted snapshot format.
//
// The store keeps every task in memory and mirrors it to a key/value storage
// after each mutation. Two keys are used:
//
//	@toDos    JSON object keyed by task id
//	@working  JSON boolean, true selects the Work list
//
// A task snapshot looks like:
//
//	{
//	  "1718000000000": {"text": "Buy milk", "working": true, "completed": false},
//	  "1718000004711": {"text": "Visit Paris", "working": false, "completed": true}
//	}
//
// # Validation
//
// Snapshots are checked against an embedded JSON Schema (draft 2020-12) before
// they are decoded. If the schema cannot be compiled the package falls back to
// minimal structural checks. A snapshot that fails validation is discarded and
// the store starts empty; nothing is repaired.
//
// # Ordering
//
// Tasks are exposed in insertion order. Snapshots are written in that order and
// decoded in document order, so a reload reproduces the same sequence.
//
// # Edit sessions
//
// At most one task is being edited at a time. Committing an edit replaces the
// task text, keeps its category and resets its completion flag.
package todo
