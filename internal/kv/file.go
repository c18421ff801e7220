package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockSuffix     = ".lock"
	corruptSuffix  = ".corrupt"
	lockRetryDelay = 10 * time.Millisecond
)

// CorruptError reports a storage document that is not a JSON object of
// strings. It is bad stored data, not an I/O failure.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Malformed reports true. Callers that do not import kv match on it with
// errors.As.
func (e *CorruptError) Malformed() bool { return true }

// File keeps every key in one JSON document on disk. Writers take an
// exclusive lock on a sibling ".lock" file, re-read the document, update one
// key and replace the file atomically, so several processes can share it.
type File struct {
	path string
	flk  *flock.Flock

	mu     sync.Mutex
	closed bool
}

// OpenFile opens (without creating) the storage document at path. The parent
// directory is created if needed.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &File{
		path: path,
		flk:  flock.New(path + lockSuffix),
	}, nil
}

// Path returns the storage document path.
func (f *File) Path() string {
	return f.path
}

// Get implements Store.
func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.checkOpen(); err != nil {
		return "", false, err
	}

	locked, err := f.flk.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", false, fmt.Errorf("lock %s: %w", f.path, err)
	}
	if !locked {
		return "", false, fmt.Errorf("lock %s: not acquired", f.path)
	}
	defer func() { _ = f.flk.Unlock() }()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

// Set implements Store.
func (f *File) Set(ctx context.Context, key, value string) error {
	if err := f.checkOpen(); err != nil {
		return err
	}

	locked, err := f.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", f.path)
	}
	defer func() { _ = f.flk.Unlock() }()

	doc, err := f.read()
	if err != nil {
		// Only a document that does not parse is replaced. It is moved aside
		// first so nothing is lost.
		var corrupt *CorruptError
		if !errors.As(err, &corrupt) {
			return err
		}
		if _, moveErr := f.moveAside(); moveErr != nil {
			return fmt.Errorf("%w (moving it aside failed: %v)", err, moveErr)
		}
		doc = make(map[string]string)
	}
	doc[key] = value

	return f.write(doc)
}

// Close implements Store.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.flk.Close()
}

func (f *File) String() string {
	return "file:" + f.path
}

func (f *File) checkOpen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return make(map[string]string), nil
	}

	doc := make(map[string]string)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: f.path, Err: err}
	}
	return doc, nil
}

// moveAside renames the document to a backup name that is not taken yet.
// Callers hold the write lock.
func (f *File) moveAside() (string, error) {
	base := f.path + corruptSuffix + "-" + time.Now().UTC().Format("20060102T150405")
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		if _, err := os.Lstat(name); !errors.Is(err, fs.ErrNotExist) {
			if err != nil {
				return "", err
			}
			continue
		}
		if err := os.Rename(f.path, name); err != nil {
			return "", err
		}
		return name, nil
	}
}

func (f *File) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
