package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the app responds to. The footer help is
// generated from it so keys and help text never drift apart.
type keyMap struct {
	Quit      key.Binding
	NextView  key.Binding
	PrevView  key.Binding
	Window    key.Binding
	Sync      key.Binding
	Export    key.Binding
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Back      key.Binding
	Dashboard key.Binding
	Settings  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextView:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		PrevView:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
		Window:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "cycle window")),
		Sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drill down")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Dashboard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dashboard")),
		Settings:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "settings")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{
		k.NextView, k.Window, k.Sync, k.Export, k.Select, k.Back, k.Quit,
	}
}
