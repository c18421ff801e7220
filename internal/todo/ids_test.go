package todo

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewIDGenerator(t *testing.T) {
	tests := []struct {
		scheme  string
		want    string
		wantErr bool
	}{
		{"", "*todo.TimestampIDs", false},
		{"timestamp", "*todo.TimestampIDs", false},
		{" NanoID ", "todo.NanoIDs", false},
		{"uuid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			gen, err := NewIDGenerator(tt.scheme)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewIDGenerator(%q) error = %v, wantErr %v", tt.scheme, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var got string
			switch gen.(type) {
			case *TimestampIDs:
				got = "*todo.TimestampIDs"
			case NanoIDs:
				got = "todo.NanoIDs"
			}
			if got != tt.want {
				t.Errorf("NewIDGenerator(%q) = %T, want %s", tt.scheme, gen, tt.want)
			}
		})
	}
}

func TestTimestampIDsMonotonic(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	gen := NewTimestampIDs(func() time.Time { return frozen })

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := gen.NewID(nil)
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			t.Fatalf("id %q is not decimal: %v", id, err)
		}
		if i == 0 && n != 1700000000000 {
			t.Errorf("first id = %d, want clock millis", n)
		}
		if i > 0 && n <= prev {
			t.Errorf("id %d not greater than previous %d", n, prev)
		}
		prev = n
	}
}

func TestTimestampIDsClockBackwards(t *testing.T) {
	now := time.UnixMilli(2000)
	gen := NewTimestampIDs(func() time.Time { return now })

	first, _ := gen.NewID(nil)
	now = time.UnixMilli(1000)
	second, _ := gen.NewID(nil)

	if first != "2000" || second != "2001" {
		t.Errorf("ids = %s, %s; want 2000, 2001", first, second)
	}
}

func TestTimestampIDsSkipsTaken(t *testing.T) {
	gen := NewTimestampIDs(func() time.Time { return time.UnixMilli(500) })
	taken := map[string]bool{"500": true, "501": true}

	id, err := gen.NewID(func(id string) bool { return taken[id] })
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	if id != "502" {
		t.Errorf("NewID = %s, want 502", id)
	}
}

func TestNanoIDs(t *testing.T) {
	gen := NanoIDs{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := gen.NewID(func(id string) bool { return seen[id] })
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if len(id) != nanoIDLength {
			t.Errorf("id %q has length %d, want %d", id, len(id), nanoIDLength)
		}
		if strings.Trim(id, idAlphabet) != "" {
			t.Errorf("id %q uses characters outside the alphabet", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNanoIDsExhausted(t *testing.T) {
	_, err := NanoIDs{}.NewID(func(string) bool { return true })
	if err == nil {
		t.Error("expected error when every id is taken")
	}
}
