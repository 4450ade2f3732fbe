package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/deskview/internal/model"
)

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newLoaded(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "items.json")
	s := New(path)
	require.NoError(t, s.Load())
	return s, path
}

func TestLoad_MissingFileCreatesEmpty(t *testing.T) {
	s, path := newLoaded(t)

	assert.Empty(t, s.Items())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
	assert.False(t, s.LastPersistModTime().IsZero())
}

func TestAdd_AppendsAndPersists(t *testing.T) {
	s, path := newLoaded(t)

	laptop := model.NewItem("Laptop", 0.52, 0.42, "Silver", testNow)
	got, err := s.Add(laptop)
	require.NoError(t, err)
	assert.Equal(t, laptop, got)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, laptop, items[len(items)-1])

	var onDisk []model.Item
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &onDisk))
	assert.Equal(t, items, onDisk)
}

func TestAdd_AssignsIDAndAllowsDuplicates(t *testing.T) {
	s, _ := newLoaded(t)

	a, err := s.Add(model.Item{Name: "Mug", X: 0.1, Y: 0.1})
	require.NoError(t, err)
	b, err := s.Add(model.Item{Name: "Mug", X: 0.1, Y: 0.1})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.Items(), 2)

	again, err := s.Add(a)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, again.ID, "a taken id is replaced")
	assert.Len(t, s.Items(), 3)
}

func TestAdd_RejectsInvalid(t *testing.T) {
	s, _ := newLoaded(t)
	_, err := s.Add(model.NewItem("Keep", 0.5, 0.5, "", testNow))
	require.NoError(t, err)
	before := s.Items()

	for _, x := range []float64{-0.01, 1.01} {
		t.Run(fmt.Sprintf("x=%g", x), func(t *testing.T) {
			_, err := s.Add(model.NewItem("Pen", x, 0.5, "", testNow))
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
			assert.Equal(t, before, s.Items())
		})
	}

	_, err = s.Add(model.NewItem("", 0.5, 0.5, "", testNow))
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Equal(t, before, s.Items())
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			s, path := newLoaded(t)
			for i := 0; i < n; i++ {
				_, err := s.Add(model.NewItem(fmt.Sprintf("item-%d", i), float64(i)/10, 1-float64(i)/10, "Blue", testNow))
				require.NoError(t, err)
			}
			require.NoError(t, s.Persist())

			fresh := New(path)
			require.NoError(t, fresh.Load())
			assert.Equal(t, s.Items(), fresh.Items())
		})
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newLoaded(t)
	orig, err := s.Add(model.NewItem("Laptop", 0.5, 0.5, "Silver", testNow))
	require.NoError(t, err)

	color := "Black"
	got, err := s.Update(0, model.Patch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Black", got.Color)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, got, s.Items()[0])

	_, err = s.Update(1, model.Patch{Color: &color})
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = s.Update(-1, model.Patch{Color: &color})
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	bad := 3.0
	_, err = s.Update(0, model.Patch{X: &bad})
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Equal(t, got, s.Items()[0])
}

func TestUpdateByID_RemoveByID(t *testing.T) {
	s, _ := newLoaded(t)
	a, _ := s.Add(model.NewItem("A", 0.1, 0.1, "", testNow))
	b, _ := s.Add(model.NewItem("B", 0.2, 0.2, "", testNow))

	name := "B2"
	got, err := s.UpdateByID(b.ID, model.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Name)

	removed, err := s.RemoveByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, removed)
	assert.Equal(t, []model.Item{got}, s.Items())

	_, err = s.RemoveByID(a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.UpdateByID("missing", model.Patch{Name: &name})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemove(t *testing.T) {
	s, _ := newLoaded(t)
	a, _ := s.Add(model.NewItem("A", 0.1, 0.1, "", testNow))
	b, _ := s.Add(model.NewItem("B", 0.2, 0.2, "", testNow))
	c, _ := s.Add(model.NewItem("C", 0.3, 0.3, "", testNow))

	removed, err := s.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, b, removed)
	assert.Equal(t, []model.Item{a, c}, s.Items())

	_, err = s.Remove(2)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestReload_CorruptKeepsPreviousItems(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{oops"},
		{"object instead of array", `{"name":"x"}`},
		{"null", "null"},
		{"empty", ""},
		{"unknown field", `[{"name":"Pen","x":0.1,"y":0.1,"color":"","timestamp":"","size":3}]`},
		{"wrong type", `[{"name":"Pen","x":"left","y":0.1,"color":"","timestamp":""}]`},
		{"out of range", `[{"name":"Pen","x":4,"y":0.1,"color":"","timestamp":""}]`},
		{"trailing data", `[] []`},
		{"missing color", `[{"name":"Pen","x":0.1,"y":0.1,"timestamp":""}]`},
		{"missing timestamp", `[{"name":"Pen","x":0.1,"y":0.1,"color":""}]`},
		{"null y", `[{"name":"Pen","x":0.1,"y":null,"color":"","timestamp":""}]`},
		{"null name", `[{"name":null,"x":0.1,"y":0.1,"color":"","timestamp":""}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := newLoaded(t)
			good, err := s.Add(model.NewItem("Laptop", 0.5, 0.5, "Silver", testNow))
			require.NoError(t, err)

			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			err = s.Reload()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorruptData))
			assert.Equal(t, []model.Item{good}, s.Items())

			fresh := New(path)
			assert.True(t, errors.Is(fresh.Load(), ErrCorruptData))
			assert.Empty(t, fresh.Items())
		})
	}
}

func TestReload_ExternalEditWins(t *testing.T) {
	s, path := newLoaded(t)
	_, err := s.Add(model.NewItem("Old", 0.5, 0.5, "", testNow))
	require.NoError(t, err)

	external := `[{"timestamp":"2026-10-15T10:00:00","name":"Phone","x":0.25,"y":0.75,"color":"Black"}]`
	require.NoError(t, os.WriteFile(path, []byte(external), 0o644))
	require.NoError(t, s.Reload())

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Phone", items[0].Name)
	assert.Equal(t, 0.25, items[0].X)
	assert.NotEmpty(t, items[0].ID, "items without ids get one on load")
}

func TestReload_CopiedRecordsGetDistinctIDs(t *testing.T) {
	s, path := newLoaded(t)
	doc := `[
  {"id":"same","timestamp":"","name":"A","x":0.1,"y":0.1,"color":""},
  {"id":"same","timestamp":"","name":"B","x":0.2,"y":0.2,"color":""}
]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	require.NoError(t, s.Reload())

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "same", items[0].ID, "the first copy keeps its id")
	assert.NotEqual(t, items[0].ID, items[1].ID)

	removed, err := s.RemoveByID(items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Name)
	left := s.Items()
	require.Len(t, left, 1)
	assert.Equal(t, "A", left[0].Name)
}

func TestReload_AbsentIDIsAllowed(t *testing.T) {
	s, path := newLoaded(t)
	doc := `[{"id":null,"timestamp":"","name":"A","x":0.1,"y":0.1,"color":""}]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	require.NoError(t, s.Reload())
	require.Len(t, s.Items(), 1)
	assert.NotEmpty(t, s.Items()[0].ID)
}

func TestReload_MissingFileKeepsItems(t *testing.T) {
	s, path := newLoaded(t)
	a, _ := s.Add(model.NewItem("A", 0.1, 0.1, "", testNow))
	require.NoError(t, os.Remove(path))

	assert.Error(t, s.Reload())
	assert.Equal(t, []model.Item{a}, s.Items())
}

func TestMutate_RollsBackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")
	s := New(path)
	require.NoError(t, s.Load())
	a, _ := s.Add(model.NewItem("A", 0.1, 0.1, "", testNow))

	// A directory where the file's parent should be makes every write fail.
	s.path = filepath.Join(path, "nested", "items.json")
	_, err := s.Add(model.NewItem("B", 0.2, 0.2, "", testNow))
	require.Error(t, err)
	assert.Equal(t, []model.Item{a}, s.Items())
}

func TestPersist_NoTempFilesLeftBehind(t *testing.T) {
	s, path := newLoaded(t)
	for i := 0; i < 3; i++ {
		_, err := s.Add(model.NewItem("x", 0.5, 0.5, "", testNow))
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "items.json", entries[0].Name())
}

// An outside writer replaces the file while the store keeps persisting its
// own changes. Every read must see a complete document, and the final reload
// must yield exactly one of the complete writes.
func TestConcurrentExternalWriter(t *testing.T) {
	s, path := newLoaded(t)

	externalDoc := []model.Item{model.NewItem("External", 0.9, 0.9, "Red", testNow)}
	externalBytes, err := json.MarshalIndent(externalDoc, "", "  ")
	require.NoError(t, err)

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, rounds*3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := s.Add(model.NewItem(fmt.Sprintf("own-%d", i), 0.1, 0.1, "", testNow)); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := writeFileAtomic(path, externalBytes, 0o644); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b, err := os.ReadFile(path)
			if err != nil {
				errs <- err
				continue
			}
			if _, err := decode(b); err != nil {
				errs <- fmt.Errorf("partial document observed: %w", err)
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	require.NoError(t, s.Reload())
	got := s.Items()
	if len(got) == 1 && got[0].Name == "External" {
		assert.Equal(t, externalDoc, got)
		return
	}
	require.NotEmpty(t, got)
	for _, it := range got {
		assert.NotEqual(t, "External", it.Name, "documents must not interleave")
	}
}
