package todo

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ID schemes accepted by NewIDGenerator.
const (
	IDSchemeTimestamp = "timestamp"
	IDSchemeNanoID    = "nanoid"
)

const (
	idAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	nanoIDLength  = 10
	maxIDAttempts = 64
)

// IDGenerator produces task ids. taken reports ids already in use; a generator
// must never return one of them.
type IDGenerator interface {
	NewID(taken func(string) bool) (string, error)
}

// NewIDGenerator returns the generator for the named scheme.
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", IDSchemeTimestamp:
		return NewTimestampIDs(time.Now), nil
	case IDSchemeNanoID:
		return NanoIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q (expected %s|%s)", scheme, IDSchemeTimestamp, IDSchemeNanoID)
	}
}

// TimestampIDs issues millisecond timestamps as decimal strings. Ids are
// strictly increasing for the lifetime of the generator, even when the clock
// stalls or steps backwards.
type TimestampIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewTimestampIDs creates a timestamp generator reading the given clock.
func NewTimestampIDs(now func() time.Time) *TimestampIDs {
	if now == nil {
		now = time.Now
	}
	return &TimestampIDs{now: now}
}

// NewID implements IDGenerator.
func (g *TimestampIDs) NewID(taken func(string) bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.now().UnixMilli()
	if next <= g.last {
		next = g.last + 1
	}
	for taken != nil && taken(strconv.FormatInt(next, 10)) {
		next++
	}
	g.last = next
	return strconv.FormatInt(next, 10), nil
}

// NanoIDs issues random short ids.
type NanoIDs struct{}

// NewID implements IDGenerator.
func (NanoIDs) NewID(taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := gonanoid.Generate(idAlphabet, nanoIDLength)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate id: no free id after %d attempts", maxIDAttempts)
}
