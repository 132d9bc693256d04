// Package tui is an interactive editor for the recent-project list.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/recents/internal/recent"
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleCursor   = lipgloss.NewStyle().Reverse(true)
	styleSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMuted    = lipgloss.NewStyle().Faint(true)
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Editor is the bubbletea model. All list edits go through recent.Model.
type Editor struct {
	list     *recent.Model
	keys     keyMap
	cursor   int
	selected map[int]bool
	status   string
	failed   bool

	saved   bool
	saveErr error
	done    bool
}

// NewEditor returns an editor over an already loaded list.
func NewEditor(list *recent.Model) *Editor {
	return &Editor{
		list:     list,
		keys:     defaultKeys(),
		selected: make(map[int]bool),
	}
}

// Saved reports whether the editor committed the list before quitting.
func (e *Editor) Saved() bool { return e.saved }

func (e *Editor) Init() tea.Cmd { return nil }

// selection returns the selected positions in order, or the cursor row when
// nothing is selected.
func (e *Editor) selection() []int {
	if len(e.selected) == 0 {
		if e.list.Len() == 0 {
			return nil
		}
		return []int{e.cursor}
	}
	out := make([]int, 0, len(e.selected))
	for i := range e.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (e *Editor) clamp() {
	if e.cursor >= e.list.Len() {
		e.cursor = e.list.Len() - 1
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
}

func (e *Editor) setStatus(failed bool, format string, args ...any) {
	e.status = fmt.Sprintf(format, args...)
	e.failed = failed
}

func (e *Editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return e, nil
	}

	switch {
	case key.Matches(km, e.keys.Discard):
		e.done = true
		return e, tea.Quit

	case key.Matches(km, e.keys.Commit):
		if err := e.list.Save(); err != nil {
			e.saveErr = err
			e.setStatus(true, "save failed: %v", err)
			return e, nil
		}
		e.saved = e.list.State() == recent.Loaded
		e.done = true
		return e, tea.Quit

	case key.Matches(km, e.keys.Up):
		if e.cursor > 0 {
			e.cursor--
		}

	case key.Matches(km, e.keys.Down):
		if e.cursor < e.list.Len()-1 {
			e.cursor++
		}

	case key.Matches(km, e.keys.Toggle):
		if e.list.Len() == 0 {
			break
		}
		if e.selected[e.cursor] {
			delete(e.selected, e.cursor)
		} else {
			e.selected[e.cursor] = true
		}

	case key.Matches(km, e.keys.SelectAll):
		for i := 0; i < e.list.Len(); i++ {
			e.selected[i] = true
		}

	case key.Matches(km, e.keys.Delete):
		n := e.list.Delete(e.selection())
		e.selected = make(map[int]bool)
		e.clamp()
		if n > 0 {
			e.setStatus(false, "removed %d entr%s", n, plural(n, "y", "ies"))
		}

	case key.Matches(km, e.keys.MoveUp):
		e.move(e.list.MoveUp)

	case key.Matches(km, e.keys.MoveDown):
		e.move(e.list.MoveDown)

	case key.Matches(km, e.keys.Revert):
		e.selected = make(map[int]bool)
		if err := e.list.Revert(); err != nil {
			e.setStatus(true, "revert failed: %v", err)
		} else {
			e.setStatus(false, "reverted to stored list")
		}
		e.clamp()
	}
	return e, nil
}

func (e *Editor) move(fn func([]int) (int, bool)) {
	sel := e.selection()
	if len(sel) != 1 {
		e.setStatus(true, "select exactly one entry to move")
		return
	}
	to, ok := fn(sel)
	if !ok {
		return
	}
	e.cursor = to
	if len(e.selected) > 0 {
		e.selected = map[int]bool{to: true}
	}
	e.status = ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (e *Editor) View() string {
	if e.done {
		return ""
	}
	var b strings.Builder

	layout := e.list.Layout()
	b.WriteString(styleTitle.Render("Recent projects"))
	b.WriteString(styleMuted.Render("  " + layout.Location))
	b.WriteString("\n\n")

	rows := e.list.Rows()
	if len(rows) == 0 {
		if e.list.State() == recent.LoadFailed {
			b.WriteString(styleMuted.Render("  No recent-project list found; nothing will be saved."))
		} else {
			b.WriteString(styleMuted.Render("  No recent projects."))
		}
		b.WriteString("\n")
	}
	for i, row := range rows {
		mark := "[ ]"
		if e.selected[i] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, row.String())
		switch {
		case i == e.cursor:
			line = styleCursor.Render(line)
		case e.selected[i]:
			line = styleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if e.status != "" {
		if e.failed {
			b.WriteString(styleError.Render(e.status))
		} else {
			b.WriteString(e.status)
		}
		b.WriteString("\n")
	}
	var help []string
	for _, k := range e.keys.help() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(styleMuted.Render(strings.Join(help, " • ")))
	b.WriteString("\n")
	return b.String()
}

// Run edits list interactively. It reports whether the list was saved; a
// failed save that the user abandoned is returned as the error.
func Run(list *recent.Model, opts ...tea.ProgramOption) (bool, error) {
	ed := NewEditor(list)
	if _, err := tea.NewProgram(ed, opts...).Run(); err != nil {
		return false, fmt.Errorf("running editor: %w", err)
	}
	if !ed.saved && ed.saveErr != nil {
		return false, errors.Join(errors.New("quit without saving after a failed save"), ed.saveErr)
	}
	return ed.saved, nil
}
