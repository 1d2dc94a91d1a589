package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the interactive views.
type KeyMap struct {
	// Cancel aborts a running wait, such as the browser consent step.
	Cancel key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
