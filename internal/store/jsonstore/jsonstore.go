// Package jsonstore keeps the desk items in memory and mirrors them to a
// single JSON file. The file is always rewritten through a temp file and a
// rename, so readers see either the old or the new document, never a mix.
package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Makepad-fr/deskview/internal/model"
)

// DefaultPath is used when no data file is configured.
const DefaultPath = "data/items.json"

var (
	// ErrCorruptData means the file could not be parsed as a list of items.
	ErrCorruptData = errors.New("corrupt data file")
	// ErrIndexOutOfRange means the caller's index is stale; refresh and retry.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound means no item carries the requested id.
	ErrNotFound = errors.New("item not found")
)

// Store owns the canonical item list. All methods are safe for concurrent use;
// mutations, persists and reloads never overlap.
type Store struct {
	mu          sync.Mutex
	path        string
	items       []model.Item
	lastPersist time.Time
	log         *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a store bound to path. It does not touch the disk; call Load.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:  path,
		items: []model.Item{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file is created empty. On ErrCorruptData the
// previous in-memory list is kept.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.items = []model.Item{}
			s.log.Info("data file missing, creating", zap.String("path", s.path))
			return s.persistLocked()
		}
		return fmt.Errorf("read file: %w", err)
	}
	return s.replaceLocked(b)
}

// Reload replaces the in-memory list with the file's current contents.
// Unlike Load, a missing file is an error and nothing is created.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return s.replaceLocked(b)
}

func (s *Store) replaceLocked(b []byte) error {
	items, err := decode(b)
	if err != nil {
		s.log.Warn("keeping previous items", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.items = items
	s.log.Debug("items loaded", zap.String("path", s.path), zap.Int("count", len(items)))
	return nil
}

// Items returns a copy of the list in insertion order.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Add validates it, gives it a fresh id if it has none or its id is taken,
// appends it and persists.
// The stored item is returned.
func (s *Store) Add(it model.Item) (model.Item, error) {
	if err := it.Validate(); err != nil {
		return model.Item{}, err
	}
	err := s.mutate(func(items []model.Item) ([]model.Item, error) {
		if it.ID == "" || indexOf(items, it.ID) >= 0 {
			it.ID = model.NewID()
		}
		return append(items, it), nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// Update merges p into the item at index and persists.
func (s *Store) Update(index int, p model.Patch) (model.Item, error) {
	var out model.Item
	err := s.mutate(func(items []model.Item) ([]model.Item, error) {
		if index < 0 || index >= len(items) {
			return nil, fmt.Errorf("%w: have %d, got %d", ErrIndexOutOfRange, len(items), index)
		}
		next := p.Apply(items[index])
		if err := next.Validate(); err != nil {
			return nil, err
		}
		items[index] = next
		out = next
		return items, nil
	})
	return out, err
}

// UpdateByID merges p into the item with the given id and persists.
func (s *Store) UpdateByID(id string, p model.Patch) (model.Item, error) {
	var out model.Item
	err := s.mutate(func(items []model.Item) ([]model.Item, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		next := p.Apply(items[i])
		if err := next.Validate(); err != nil {
			return nil, err
		}
		items[i] = next
		out = next
		return items, nil
	})
	return out, err
}

// Remove deletes the item at index and persists. The removed item is returned.
func (s *Store) Remove(index int) (model.Item, error) {
	var out model.Item
	err := s.mutate(func(items []model.Item) ([]model.Item, error) {
		if index < 0 || index >= len(items) {
			return nil, fmt.Errorf("%w: have %d, got %d", ErrIndexOutOfRange, len(items), index)
		}
		out = items[index]
		return append(items[:index], items[index+1:]...), nil
	})
	return out, err
}

// RemoveByID deletes the item with the given id and persists.
func (s *Store) RemoveByID(id string) (model.Item, error) {
	var out model.Item
	err := s.mutate(func(items []model.Item) ([]model.Item, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = items[i]
		return append(items[:i], items[i+1:]...), nil
	})
	return out, err
}

// Persist writes the current list to disk.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// LastPersistModTime is the modification time the file had right after this
// store last wrote it. Zero until the first successful persist.
func (s *Store) LastPersistModTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPersist
}

// mutate runs fn on a copy of the list and persists the result. If the write
// fails the list is rolled back so memory never runs ahead of disk.
func (s *Store) mutate(fn func([]model.Item) ([]model.Item, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	next, err := fn(clone(prev))
	if err != nil {
		return err
	}
	s.items = next
	if err := s.persistLocked(); err != nil {
		s.items = prev
		return err
	}
	return nil
}

func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	b = append(b, '\n')

	if err := writeFileAtomic(s.path, b, 0o644); err != nil {
		return err
	}
	if st, err := os.Stat(s.path); err == nil {
		s.lastPersist = st.ModTime()
	}
	s.log.Debug("items persisted", zap.String("path", s.path), zap.Int("count", len(s.items)))
	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// decode parses a strict JSON array of items. Unknown fields, trailing data
// and items that fail validation all make the document corrupt.
// record is the on-disk shape of an item. Every field except id is required
// and may not be null; pointers tell an absent key from a zero value.
type record struct {
	ID        *string  `json:"id"`
	Timestamp *string  `json:"timestamp"`
	Name      *string  `json:"name"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Color     *string  `json:"color"`
}

func (r record) item() (model.Item, error) {
	var missing []string
	if r.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if r.Name == nil {
		missing = append(missing, "name")
	}
	if r.X == nil {
		missing = append(missing, "x")
	}
	if r.Y == nil {
		missing = append(missing, "y")
	}
	if r.Color == nil {
		missing = append(missing, "color")
	}
	if len(missing) > 0 {
		return model.Item{}, fmt.Errorf("missing or null field(s): %s", strings.Join(missing, ", "))
	}
	it := model.Item{
		Timestamp: *r.Timestamp,
		Name:      *r.Name,
		X:         *r.X,
		Y:         *r.Y,
		Color:     *r.Color,
	}
	if r.ID != nil {
		it.ID = *r.ID
	}
	return it, it.Validate()
}

func decode(b []byte) ([]model.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrCorruptData)
	}

	items := []model.Item{}
	seen := make(map[string]struct{})
	for dec.More() {
		var r record
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrCorruptData, len(items), err)
		}
		it, err := r.item()
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrCorruptData, len(items), err)
		}
		// hand-copied records keep their twin's id; later copies get a new one
		if _, dup := seen[it.ID]; it.ID == "" || dup {
			it.ID = model.NewID()
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after array", ErrCorruptData)
	}
	return items, nil
}

func indexOf(items []model.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func clone(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
