package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation is wrapped by every Validate failure.
var ErrValidation = errors.New("invalid item")

// TimestampLayout is the ISO-8601 form used for new items.
const TimestampLayout = time.RFC3339

// Item is one desk item: a named dot at a normalized position.
// X and Y are fractions of the desk width/height, origin top-left.
type Item struct {
	ID        string  `json:"id,omitempty"`
	Timestamp string  `json:"timestamp"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
}

// NewID returns a fresh stable identifier for an item.
func NewID() string { return uuid.NewString() }

// NewItem builds an item stamped with now. Name and color are trimmed.
func NewItem(name string, x, y float64, color string, now time.Time) Item {
	return Item{
		ID:        NewID(),
		Timestamp: now.Format(TimestampLayout),
		Name:      strings.TrimSpace(name),
		X:         x,
		Y:         y,
		Color:     strings.TrimSpace(color),
	}
}

// Validate checks the name and the coordinate range.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrValidation)
	}
	if err := checkCoord("x", it.X); err != nil {
		return err
	}
	return checkCoord("y", it.Y)
}

func checkCoord(axis string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not a number", ErrValidation, axis)
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%g must be between 0 and 1", ErrValidation, axis, v)
	}
	return nil
}

// Label is the text drawn next to the item's dot.
func (it Item) Label() string {
	if it.Color == "" {
		return it.Name
	}
	return fmt.Sprintf("%s (%s)", it.Name, it.Color)
}

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	Timestamp *string
	Name      *string
	X         *float64
	Y         *float64
	Color     *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Timestamp == nil && p.Name == nil && p.X == nil && p.Y == nil && p.Color == nil
}

// Apply returns a copy of it with the patch merged in. The ID never changes.
func (p Patch) Apply(it Item) Item {
	if p.Timestamp != nil {
		it.Timestamp = *p.Timestamp
	}
	if p.Name != nil {
		it.Name = strings.TrimSpace(*p.Name)
	}
	if p.X != nil {
		it.X = *p.X
	}
	if p.Y != nil {
		it.Y = *p.Y
	}
	if p.Color != nil {
		it.Color = strings.TrimSpace(*p.Color)
	}
	return it
}
