package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/deskview/internal/model"
	"github.com/Makepad-fr/deskview/internal/ui"
)

const (
	mapWidth  = 48
	mapHeight = 12
)

func newListCmd(a *app) *cobra.Command {
	var noMap bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items and draw the desk",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStore(); err != nil {
				return err
			}
			printDesk(a.store.Items(), !noMap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noMap, "no-map", false, "only list the items")
	return cmd
}

func printDesk(items []model.Item, withMap bool) {
	t := ui.Current()
	lines := ui.Legend(items)
	if withMap {
		lines = append(lines, "")
		lines = append(lines, ui.DeskMap(items, mapWidth, mapHeight)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, `Tip: add with "desk add Laptop 0.52 0.42 Silver"`))
	ui.Panel(fmt.Sprintf("Desk · %d items", len(items)), lines)
}

func newAddCmd(a *app) *cobra.Command {
	var placed string
	cmd := &cobra.Command{
		Use:   "add <name> <x> <y> [color...]",
		Short: "Add an item at normalized coordinates (0-1, origin top-left)",
		Example: `  desk add Laptop 0.52 0.42 Silver
  desk add "Coffee mug" 0.3 0.7 dark blue`,
		Args: minArgs(3, "desk add <name> <x> <y> [color...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseXY(args[1], args[2])
			if err != nil {
				return err
			}
			if err := a.loadStore(); err != nil {
				return err
			}
			it := model.NewItem(args[0], x, y, strings.Join(args[3:], " "), time.Now())
			if placed != "" {
				it.Timestamp = placed
			}
			it, err = a.store.Add(it)
			if err != nil {
				return err
			}
			ui.OK("added " + it.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&placed, "time", "", "placed time (ISO-8601), default now")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		name, color, placed string
		x, y                float64
	)
	cmd := &cobra.Command{
		Use:   "edit <index|id>",
		Short: "Change fields of an item (1-based index from ls, or its id)",
		Example: `  desk edit 2 --color Black
  desk edit 2 --x 0.1 --y 0.9`,
		Args: exactArgs(1, "desk edit <index|id> [--name N] [--x X] [--y Y] [--color C] [--time T]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p model.Patch
			f := cmd.Flags()
			if f.Changed("name") {
				p.Name = &name
			}
			if f.Changed("x") {
				p.X = &x
			}
			if f.Changed("y") {
				p.Y = &y
			}
			if f.Changed("color") {
				p.Color = &color
			}
			if f.Changed("time") {
				p.Timestamp = &placed
			}
			if p.Empty() {
				return usagef("edit: nothing to change; pass at least one of --name --x --y --color --time")
			}
			if err := a.loadStore(); err != nil {
				return err
			}
			id, err := a.resolveRef(args[0])
			if err != nil {
				return err
			}
			it, err := a.store.UpdateByID(id, p)
			if err != nil {
				return err
			}
			ui.OK("updated " + it.Label())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.Float64Var(&x, "x", 0, "new x (0-1)")
	f.Float64Var(&y, "y", 0, "new y (0-1)")
	f.StringVar(&color, "color", "", "new colour (empty clears it)")
	f.StringVar(&placed, "time", "", "new placed time (ISO-8601)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index|id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item (1-based index from ls, or its id)",
		Args:    exactArgs(1, "desk rm <index|id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStore(); err != nil {
				return err
			}
			id, err := a.resolveRef(args[0])
			if err != nil {
				return err
			}
			it, err := a.store.RemoveByID(id)
			if err != nil {
				return err
			}
			ui.OK("removed " + it.Label())
			return nil
		},
	}
}

// resolveRef turns a 1-based index or an id into an id. Indexes are read from
// the list as loaded for this command.
func (a *app) resolveRef(ref string) (string, error) {
	items := a.store.Items()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return "", usagef("index out of range: have %d, got %d (run `desk ls` to see valid indexes)", len(items), n)
		}
		return items[n-1].ID, nil
	}
	for _, it := range items {
		if it.ID == ref {
			return it.ID, nil
		}
	}
	return "", usagef("no item with id %q", ref)
}

func parseXY(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, usagef("x must be a number between 0 and 1: %s", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, usagef("y must be a number between 0 and 1: %s", ys)
	}
	return x, y, nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments", cmd.Name())
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
