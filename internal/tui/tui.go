// Package tui is the interactive desk view: an item list, a map of the desk
// and a chat pane, refreshed when the data file changes on disk.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/deskview/internal/model"
	"github.com/Makepad-fr/deskview/internal/store/jsonstore"
	"github.com/Makepad-fr/deskview/internal/ui"
	"github.com/Makepad-fr/deskview/internal/watch"
)

// Asker answers questions about the desk. *chat.Client satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string, items []model.Item) (string, error)
}

// Deps are the collaborators the view drives. Asker may be nil when no API
// key is configured; AskerErr then explains why.
type Deps struct {
	Store    *jsonstore.Store
	Watcher  *watch.Watcher
	Asker    Asker
	AskerErr error
	Now      func() time.Time
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeAsk
)

type reloadTickMsg struct{}

type answerMsg struct {
	answer string
	err    error
}

// listItem adapts model.Item to bubbles/list.Item
type listItem struct {
	item model.Item
	pos  int
}

func (i listItem) Title() string       { return i.item.Label() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Name + " " + i.item.Color }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	num := mutedStyle.Render(fmt.Sprintf("%2d", it.pos+1))
	coords := mutedStyle.Render(fmt.Sprintf("(%.2f, %.2f)", it.item.X, it.item.Y))
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s %s", prefix, num, it.item.Label(), coords)
}

type modelTUI struct {
	deps Deps
	list list.Model
	ti   textinput.Model
	mode mode

	editID string
	busy   bool
	status string
	isErr  bool
	chat   []string

	width, height int
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	deleteBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	askBind    = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat"))
	reloadBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
)

func newModel(deps Deps) modelTUI {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = "Desk"
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	extra := func() []key.Binding { return []key.Binding{addBind, editBind, deleteBind, askBind, reloadBind} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := modelTUI{
		deps:   deps,
		list:   l,
		ti:     ti,
		width:  100,
		height: 30,
		chat:   []string{mutedStyle.Render("Assistant is ready. Ask about the desk items.")},
	}
	m.refresh()
	return m
}

// Run starts the full-screen view. The store must already be loaded and the
// watcher primed.
func Run(deps Deps) error {
	p := tea.NewProgram(newModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func tickReload(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return reloadTickMsg{} })
}

func (m modelTUI) Init() tea.Cmd {
	if m.deps.Watcher == nil {
		return nil
	}
	return tickReload(m.deps.Watcher.Interval())
}

// refresh rebuilds the list from the store, keeping the cursor where it was.
func (m *modelTUI) refresh() {
	items := m.deps.Store.Items()
	li := make([]list.Item, 0, len(items))
	for i, it := range items {
		li = append(li, listItem{item: it, pos: i})
	}
	idx := m.list.Index()
	m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = fmt.Sprintf("Desk  %s %d", accentStyle.Render("items"), len(items))
}

func (m *modelTUI) setStatus(msg string, isErr bool) {
	m.status, m.isErr = msg, isErr
}

func (m modelTUI) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.item, ok
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case reloadTickMsg:
		reloaded, err := m.deps.Watcher.PollOnce()
		switch {
		case err != nil:
			m.setStatus("reload failed, keeping previous items: "+err.Error(), true)
		case reloaded:
			m.refresh()
			m.setStatus(fmt.Sprintf("reloaded %d items from %s", len(m.list.Items()), m.deps.Store.Path()), false)
		}
		return m, tickReload(m.deps.Watcher.Interval())

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.chat = append(m.chat, errorStyle.Render("Assistant: (error) ")+msg.err.Error(), "")
			m.setStatus("chat call failed", true)
			return m, nil
		}
		m.chat = append(m.chat, accentStyle.Render("Assistant: ")+msg.answer, "")
		m.setStatus("response received", false)
		return m, nil
	}

	if m.mode != modeBrowse {
		return m.updateInput(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "q", "esc":
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			return m, tea.Quit
		case "a":
			return m.startInput(modeAdd, "", "Laptop 0.52 0.42 Silver")
		case "e":
			if it, ok := m.selected(); ok {
				m.editID = it.ID
				return m.startInput(modeEdit, Format(it), "")
			}
			return m, nil
		case "d":
			if it, ok := m.selected(); ok {
				m.remove(it)
			}
			return m, nil
		case "c":
			return m.startInput(modeAsk, "", "What is on my desk?")
		case "r":
			if err := m.deps.Store.Reload(); err != nil {
				m.setStatus("reload failed: "+err.Error(), true)
				return m, nil
			}
			if m.deps.Watcher != nil {
				m.deps.Watcher.Prime()
			}
			m.refresh()
			m.setStatus("reloaded", false)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) startInput(md mode, value, placeholder string) (tea.Model, tea.Cmd) {
	if md == modeAsk && m.busy {
		m.setStatus("still waiting for the previous answer", true)
		return m, nil
	}
	m.mode = md
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.setStatus("", false)
	cmd := m.ti.Focus()
	return m, cmd
}

func (m modelTUI) stopInput() modelTUI {
	m.mode = modeBrowse
	m.editID = ""
	m.ti.SetValue("")
	m.ti.Blur()
	return m
}

func (m modelTUI) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return m.stopInput(), nil
		case "enter":
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m modelTUI) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.ti.Value())
	switch m.mode {
	case modeAsk:
		if value == "" {
			m.setStatus("enter a question first", true)
			return m, nil
		}
		m = m.stopInput()
		m.chat = append(m.chat, youStyle.Render("You: ")+value)
		if m.deps.Asker == nil {
			reason := "chat is disabled"
			if m.deps.AskerErr != nil {
				reason = m.deps.AskerErr.Error()
			}
			m.chat = append(m.chat, errorStyle.Render("Assistant: (error) ")+reason, "")
			return m, nil
		}
		m.busy = true
		m.setStatus("asking…", false)
		asker, items := m.deps.Asker, m.deps.Store.Items()
		return m, func() tea.Msg {
			answer, err := asker.Ask(context.Background(), value, items)
			return answerMsg{answer: answer, err: err}
		}

	case modeAdd, modeEdit:
		e, err := ParseEntry(value)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		if m.mode == modeAdd {
			it, err := m.deps.Store.Add(model.NewItem(e.Name, e.X, e.Y, e.Color, m.deps.Now()))
			if err != nil {
				m.setStatus(err.Error(), true)
				return m, nil
			}
			m = m.stopInput()
			m.refresh()
			m.list.Select(len(m.list.Items()) - 1)
			m.setStatus("added: "+it.Name, false)
			return m, nil
		}
		it, err := m.deps.Store.UpdateByID(m.editID, e.Patch())
		if err != nil {
			if errors.Is(err, jsonstore.ErrNotFound) {
				m = m.stopInput()
				m.refresh()
				m.setStatus("item changed on disk; list refreshed", true)
				return m, nil
			}
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m = m.stopInput()
		m.refresh()
		m.setStatus("updated: "+it.Name, false)
		return m, nil
	}
	return m.stopInput(), nil
}

func (m *modelTUI) remove(it model.Item) {
	if _, err := m.deps.Store.RemoveByID(it.ID); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			m.refresh()
			m.setStatus("item changed on disk; list refreshed", true)
			return
		}
		m.setStatus("delete failed: "+err.Error(), true)
		return
	}
	m.refresh()
	m.setStatus("removed: "+it.Name, false)
}

func (m modelTUI) View() string {
	leftW := m.width * 2 / 5
	if leftW < 30 {
		leftW = 30
	}
	mapW := m.width - leftW - 8
	if mapW < 10 {
		mapW = 10
	}
	chatH := 8
	mapH := m.height - chatH - 8
	if mapH < 4 {
		mapH = 4
	}

	m.list.SetSize(leftW, mapH+2)
	items := m.deps.Store.Items()
	desk := boxStyle.Render(titleStyle.Render("Map") + "\n" + strings.Join(ui.DeskMap(items, mapW, mapH), "\n"))
	top := lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Width(leftW).Render(m.list.View()), desk)

	chatLines := m.chat
	if len(chatLines) > chatH {
		chatLines = chatLines[len(chatLines)-chatH:]
	}
	chatBox := boxStyle.Width(m.width - 4).Render(strings.Join(chatLines, "\n"))

	content := top + "\n" + chatBox
	if m.mode != modeBrowse {
		title := map[mode]string{modeAdd: "Add item (name x y color)", modeEdit: "Edit item", modeAsk: "Ask the assistant"}[m.mode]
		content += "\n" + boxStyle.Render(title+"\n"+m.ti.View())
	}
	if m.status != "" {
		st := successStyle.Render(m.status)
		if m.isErr {
			st = errorStyle.Render(m.status)
		}
		content += "\n" + st
	}
	return content
}
