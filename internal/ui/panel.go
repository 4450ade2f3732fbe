package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Panel draws a framed box using the current theme. A non-empty title is set
// into the top border.
func Panel(title string, lines []string) {
	fmt.Fprint(stdout, PanelString(title, lines))
}

// PanelString is Panel without the printing.
func PanelString(title string, lines []string) string {
	t := Current()
	// visible width, ignoring escape codes and counting wide runes
	maxw := lipgloss.Width(title) + 2
	for _, ln := range lines {
		if w := lipgloss.Width(ln); w > maxw {
			maxw = w
		}
	}
	pad := func(s string) string {
		if vis := lipgloss.Width(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}

	var b strings.Builder
	top := strings.Repeat(t.H, maxw+2)
	if title != "" {
		top = t.H + " " + C(t.Title, title) + " " + strings.Repeat(t.H, maxw-lipgloss.Width(title)-1)
	}
	b.WriteString(t.CornerTL + top + t.CornerTR + "\n")
	for _, ln := range lines {
		b.WriteString(t.V + " " + pad(ln) + " " + t.V + "\n")
	}
	b.WriteString(t.CornerBL + strings.Repeat(t.H, maxw+2) + t.CornerBR + "\n")
	return b.String()
}
