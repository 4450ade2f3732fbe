package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/Makepad-fr/deskview/internal/model"
)

// DeskMap draws items on a width×height character grid. Normalized
// coordinates are scaled to cells, origin top-left. The first nine items are
// marked with their 1-based number, later ones with the theme marker; cells
// holding several items show the cluster symbol.
func DeskMap(items []model.Item, width, height int) []string {
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}
	t := Current()

	cells := make([][]string, height)
	hits := make([][]int, height)
	for r := range cells {
		cells[r] = make([]string, width)
		hits[r] = make([]int, width)
		for c := range cells[r] {
			cells[r][c] = C(t.Muted, t.Grid)
		}
	}

	for i, it := range items {
		row, col := Cell(it.Y, height), Cell(it.X, width)
		hits[row][col]++
		if hits[row][col] > 1 {
			cells[row][col] = C(t.Error, t.Cluster)
			continue
		}
		cells[row][col] = C(t.Accent, markerFor(i, t))
	}

	out := make([]string, height)
	for r := range cells {
		out[r] = strings.Join(cells[r], "")
	}
	return out
}

// legendWidth caps a legend label, counted in terminal cells.
const legendWidth = 60

// Legend lists items with the marker DeskMap gives them.
func Legend(items []model.Item) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		label := ansi.Truncate(it.Label(), legendWidth, "...")
		out = append(out, fmt.Sprintf("%s %s %s",
			C(t.Accent, fmt.Sprintf("%2s", markerFor(i, t))),
			label,
			C(t.Muted, fmt.Sprintf("x=%.3f y=%.3f", it.X, it.Y))))
	}
	return out
}

// Cell maps a normalized coordinate onto one of n cells.
func Cell(v float64, n int) int {
	c := int(math.Round(v * float64(n-1)))
	if c < 0 {
		return 0
	}
	if c > n-1 {
		return n - 1
	}
	return c
}

func markerFor(i int, t Theme) string {
	if i < 9 {
		return strconv.Itoa(i + 1)
	}
	return t.Marker
}
