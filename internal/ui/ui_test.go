package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/deskview/internal/model"
)

func useMono(t *testing.T) {
	t.Helper()
	SetTheme("mono")
	t.Cleanup(func() { SetTheme("classic") })
}

func TestDeskMap(t *testing.T) {
	useMono(t)
	items := []model.Item{
		{Name: "TopLeft", X: 0, Y: 0},
		{Name: "BottomRight", X: 1, Y: 1},
		{Name: "Middle", X: 0.5, Y: 0.5},
		{Name: "AlsoMiddle", X: 0.5, Y: 0.5},
	}

	got := DeskMap(items, 5, 3)

	assert.Equal(t, []string{
		"1....",
		"..*..",
		"....2",
	}, got)
}

func TestDeskMap_MarkerAfterNine(t *testing.T) {
	useMono(t)
	var items []model.Item
	for i := 0; i < 10; i++ {
		items = append(items, model.Item{Name: "x", X: float64(i) / 9, Y: 0})
	}
	row := DeskMap(items, 10, 2)[0]
	assert.Equal(t, "123456789o", row)
}

func TestCell(t *testing.T) {
	assert.Equal(t, 0, Cell(0, 10))
	assert.Equal(t, 9, Cell(1, 10))
	assert.Equal(t, 5, Cell(0.52, 10))
	assert.Equal(t, 0, Cell(-1, 10))
	assert.Equal(t, 9, Cell(3, 10))
}

func TestLegend(t *testing.T) {
	useMono(t)
	lines := Legend([]model.Item{{Name: "Laptop", X: 0.52, Y: 0.42, Color: "Silver"}})
	require.Len(t, lines, 1)
	assert.Equal(t, " 1 Laptop (Silver) x=0.520 y=0.420", lines[0])
	assert.Equal(t, []string{"no items"}, Legend(nil))
}

func TestLegend_TruncatesWideNamesOnRuneBoundaries(t *testing.T) {
	useMono(t)
	name := strings.Repeat("机械键盘", 20)
	lines := Legend([]model.Item{{Name: name, X: 0.1, Y: 0.1}})
	require.Len(t, lines, 1)

	label := strings.TrimSuffix(strings.TrimPrefix(lines[0], " 1 "), " x=0.100 y=0.100")
	assert.True(t, utf8.ValidString(label))
	assert.True(t, strings.HasSuffix(label, "..."))
	assert.LessOrEqual(t, lipgloss.Width(label), legendWidth)
}

func TestPanel(t *testing.T) {
	useMono(t)
	var out bytes.Buffer
	SetOutput(&out, &out)
	t.Cleanup(func() { SetOutput(os.Stdout, os.Stderr) })

	Panel("Desk", []string{"ab", "abcdef"})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "+- Desk -+", lines[0])
	assert.Equal(t, "| ab     |", lines[1])
	assert.Equal(t, "| abcdef |", lines[2])
	assert.Equal(t, "+--------+", lines[3])
}
