package input

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// KeyCode is the key enumeration shared with the guest. Values are part of
// the wire format and must not be reordered.
type KeyCode int32

const (
	KeyUnknown KeyCode = iota

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeySpace
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyShift
	KeyControl
	KeyAlt
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyMinus
	KeyEqual
	KeyComma
	KeyPeriod
	KeySlash
	KeySemicolon

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyMouseLeft
	KeyMouseMiddle
	KeyMouseRight
)

// keyTable maps DOM KeyboardEvent.key names to key codes.
var keyTable = map[string]KeyCode{
	" ":          KeySpace,
	"Enter":      KeyEnter,
	"Escape":     KeyEscape,
	"Backspace":  KeyBackspace,
	"Tab":        KeyTab,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"Shift":      KeyShift,
	"Control":    KeyControl,
	"Alt":        KeyAlt,
	"Delete":     KeyDelete,
	"Home":       KeyHome,
	"End":        KeyEnd,
	"PageUp":     KeyPageUp,
	"PageDown":   KeyPageDown,
	"Insert":     KeyInsert,
	"-":          KeyMinus,
	"=":          KeyEqual,
	",":          KeyComma,
	".":          KeyPeriod,
	"/":          KeySlash,
	";":          KeySemicolon,
}

var keyNames = map[KeyCode]string{}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keyTable[string(c)] = KeyA + KeyCode(c-'a')
	}
	for c := '0'; c <= '9'; c++ {
		keyTable[string(c)] = Key0 + KeyCode(c-'0')
	}
	for i := 0; i < 12; i++ {
		keyTable[fmt.Sprintf("F%d", i+1)] = KeyF1 + KeyCode(i)
	}
	for name, code := range keyTable {
		keyNames[code] = name
	}
	keyNames[KeySpace] = "Space"
	keyNames[KeyMouseLeft] = "MouseLeft"
	keyNames[KeyMouseMiddle] = "MouseMiddle"
	keyNames[KeyMouseRight] = "MouseRight"
}

// LookupKey resolves a DOM key name to a key code. Single printable
// characters are matched case-insensitively; anything else unmapped is
// KeyUnknown.
func LookupKey(name string) KeyCode {
	if code, ok := keyTable[name]; ok {
		return code
	}
	if utf8.RuneCountInString(name) == 1 {
		if code, ok := keyTable[strings.ToLower(name)]; ok {
			return code
		}
	}
	return KeyUnknown
}

// MouseButtonKey maps a DOM MouseEvent.button index to a key code.
func MouseButtonKey(button int) KeyCode {
	switch button {
	case 0:
		return KeyMouseLeft
	case 1:
		return KeyMouseMiddle
	case 2:
		return KeyMouseRight
	default:
		return KeyUnknown
	}
}

func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k == KeyUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("Key(%d)", int32(k))
}
