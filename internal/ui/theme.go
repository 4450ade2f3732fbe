package ui

import "strings"

// Theme bundles palette, marker symbols and box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Title, Muted, Accent, Success, Error   string
	Marker, Cluster, Grid                  string
	CornerTL, CornerTR, CornerBL, CornerBR string
	H, V                                   string
}

var current = classic()

// Themes lists the names SetTheme understands.
var Themes = []string{"classic", "neon", "mono"}

// KnownTheme reports whether name is one of Themes, ignoring case.
func KnownTheme(name string) bool {
	for _, t := range Themes {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

func SetTheme(name string) {
	disableColor = false
	switch strings.ToLower(name) {
	case "neon":
		current = Theme{
			Title: "\033[95m", // bright magenta
			Muted: fgGray, Accent: "\033[96m",
			Success: fgGreen, Error: fgRed,
			Marker: "◆", Cluster: "✸", Grid: "·",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
		}
	case "mono":
		disableColor = true
		current = Theme{
			Title: "", Muted: "", Accent: "", Success: "", Error: "",
			Marker: "o", Cluster: "*", Grid: ".",
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
		}
	default:
		current = classic()
	}
}

func classic() Theme {
	return Theme{
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed,
		Marker: "●", Cluster: "◎", Grid: " ",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
	}
}

// Expose what renderers need
func Current() Theme { return current }
