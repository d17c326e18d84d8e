package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string

	Up       key.Binding
	Down     key.Binding
	Home     key.Binding
	End      key.Binding
	Download key.Binding
	Rescan   key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// NewKeyMap creates a new keymap for the given mode ("vim" or "standard")
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	k := &KeyMap{
		mode:     mode,
		Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Home:     key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first")),
		End:      key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download missing")),
		Rescan:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan folder")),
		Cancel:   key.NewBinding(key.WithKeys("esc", "c"), key.WithHelp("c", "cancel download")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	if mode == "vim" {
		k.Up = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/↑", "up"))
		k.Down = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/↓", "down"))
		k.Home = key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first"))
		k.End = key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last"))
	}
	return k
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

// IsUp returns true if the key is an "up" navigation key
func (k *KeyMap) IsUp(msg tea.KeyMsg) bool { return key.Matches(msg, k.Up) }

// IsDown returns true if the key is a "down" navigation key
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool { return key.Matches(msg, k.Down) }

// IsHome returns true if the key should go to first item
func (k *KeyMap) IsHome(msg tea.KeyMsg) bool { return key.Matches(msg, k.Home) }

// IsEnd returns true if the key should go to last item
func (k *KeyMap) IsEnd(msg tea.KeyMsg) bool { return key.Matches(msg, k.End) }

func (k *KeyMap) IsDownload(msg tea.KeyMsg) bool { return key.Matches(msg, k.Download) }
func (k *KeyMap) IsRescan(msg tea.KeyMsg) bool   { return key.Matches(msg, k.Rescan) }
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool   { return key.Matches(msg, k.Cancel) }
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool     { return key.Matches(msg, k.Help) }
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool     { return key.Matches(msg, k.Quit) }

// ShortHelp implements help.KeyMap
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Download, k.Rescan, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Home, k.End},
		{k.Download, k.Rescan, k.Cancel},
		{k.Help, k.Quit},
	}
}
