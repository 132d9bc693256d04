package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	SelectAll key.Binding
	Delete    key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Revert    key.Binding
	Commit    key.Binding
	Discard   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Revert:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "revert")),
		Commit:    key.NewBinding(key.WithKeys("q", "enter"), key.WithHelp("q", "save & quit")),
		Discard:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit without saving")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Toggle, k.SelectAll, k.Delete, k.MoveUp, k.MoveDown, k.Revert, k.Commit, k.Discard}
}
