package terminal

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines the bindings the frontend handles itself. Every other key
// goes to the guest.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// namedKeys maps Bubble Tea key types to DOM KeyboardEvent.key names.
var namedKeys = map[tea.KeyType]string{
	tea.KeySpace:      " ",
	tea.KeyEnter:      "Enter",
	tea.KeyEsc:        "Escape",
	tea.KeyBackspace:  "Backspace",
	tea.KeyTab:        "Tab",
	tea.KeyShiftTab:   "Tab",
	tea.KeyLeft:       "ArrowLeft",
	tea.KeyRight:      "ArrowRight",
	tea.KeyUp:         "ArrowUp",
	tea.KeyDown:       "ArrowDown",
	tea.KeyShiftLeft:  "ArrowLeft",
	tea.KeyShiftRight: "ArrowRight",
	tea.KeyShiftUp:    "ArrowUp",
	tea.KeyShiftDown:  "ArrowDown",
	tea.KeyDelete:     "Delete",
	tea.KeyHome:       "Home",
	tea.KeyEnd:        "End",
	tea.KeyPgUp:       "PageUp",
	tea.KeyPgDown:     "PageDown",
	tea.KeyInsert:     "Insert",
	tea.KeyF1:         "F1",
	tea.KeyF2:         "F2",
	tea.KeyF3:         "F3",
	tea.KeyF4:         "F4",
	tea.KeyF5:         "F5",
	tea.KeyF6:         "F6",
	tea.KeyF7:         "F7",
	tea.KeyF8:         "F8",
	tea.KeyF9:         "F9",
	tea.KeyF10:        "F10",
	tea.KeyF11:        "F11",
	tea.KeyF12:        "F12",
}

// domKeyName translates a key message to the DOM key name the input
// collector understands. Control combinations have no DOM equivalent.
func domKeyName(msg tea.KeyMsg) (string, bool) {
	if msg.Type == tea.KeyRunes {
		if len(msg.Runes) != 1 {
			return "", false
		}
		return string(msg.Runes), true
	}
	name, ok := namedKeys[msg.Type]
	return name, ok
}

// mouseButtonIndex maps Bubble Tea buttons to DOM MouseEvent.button values.
func mouseButtonIndex(b tea.MouseButton) int {
	switch b {
	case tea.MouseButtonLeft:
		return 0
	case tea.MouseButtonMiddle:
		return 1
	case tea.MouseButtonRight:
		return 2
	default:
		return int(b)
	}
}
