package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Makepad-fr/deskview/internal/model"
)

var errEntryFormat = errors.New("expected: name x y [color]")

// Entry is what the add/edit input line parses into.
type Entry struct {
	Name  string
	X, Y  float64
	Color string
}

// ParseEntry reads "name x y [color]". Name and color may contain spaces; the
// first pair of numbers after at least one name word are the coordinates.
func ParseEntry(s string) (Entry, error) {
	f := strings.Fields(s)
	for i := 1; i+1 < len(f); i++ {
		x, errX := strconv.ParseFloat(f[i], 64)
		y, errY := strconv.ParseFloat(f[i+1], 64)
		if errX != nil || errY != nil {
			continue
		}
		return Entry{
			Name:  strings.Join(f[:i], " "),
			X:     x,
			Y:     y,
			Color: strings.Join(f[i+2:], " "),
		}, nil
	}
	return Entry{}, errEntryFormat
}

// Format is the inverse of ParseEntry, used to prefill the edit line.
func Format(it model.Item) string {
	s := fmt.Sprintf("%s %s %s", it.Name,
		strconv.FormatFloat(it.X, 'f', -1, 64),
		strconv.FormatFloat(it.Y, 'f', -1, 64))
	if it.Color != "" {
		s += " " + it.Color
	}
	return s
}

// Patch turns the entry into a full update of the editable fields.
func (e Entry) Patch() model.Patch {
	return model.Patch{Name: &e.Name, X: &e.X, Y: &e.Y, Color: &e.Color}
}
