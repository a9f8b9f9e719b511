package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle    key.Binding
	toggleAll key.Binding
	preset    key.Binding
	unsub     key.Binding
	refresh   key.Binding
	open      key.Binding
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		toggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
		preset:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "load preset")),
		unsub:     key.NewBinding(key.WithKeys("x", "enter"), key.WithHelp("x/enter", "unsubscribe selected")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.toggleAll, k.preset, k.unsub, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.toggleAll, k.unsub},
		{k.preset, k.refresh, k.open},
		{k.back, k.yes, k.no, k.quit},
	}
}
