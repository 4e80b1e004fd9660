package domain

import (
	"fmt"
	"sort"
	"strings"
)

// BindingAction names an action that can be bound to a hotkey.
type BindingAction string

const (
	ActionGlobalSearch           BindingAction = "globalSearch"
	ActionLocalSearch            BindingAction = "localSearch"
	ActionVolumeMute             BindingAction = "volumeMute"
	ActionNext                   BindingAction = "next"
	ActionPause                  BindingAction = "pause"
	ActionPlay                   BindingAction = "play"
	ActionPlayPause              BindingAction = "playPause"
	ActionPrevious               BindingAction = "previous"
	ActionToggleShuffle          BindingAction = "toggleShuffle"
	ActionSkipBackward           BindingAction = "skipBackward"
	ActionSkipForward            BindingAction = "skipForward"
	ActionStop                   BindingAction = "stop"
	ActionToggleFullscreenPlayer BindingAction = "toggleFullscreenPlayer"
	ActionToggleQueue            BindingAction = "toggleQueue"
	ActionToggleRepeat           BindingAction = "toggleRepeat"
	ActionVolumeDown             BindingAction = "volumeDown"
	ActionVolumeUp               BindingAction = "volumeUp"
)

// AllBindingActions lists every bindable action in a stable order.
var AllBindingActions = []BindingAction{
	ActionGlobalSearch,
	ActionLocalSearch,
	ActionVolumeMute,
	ActionNext,
	ActionPause,
	ActionPlay,
	ActionPlayPause,
	ActionPrevious,
	ActionToggleShuffle,
	ActionSkipBackward,
	ActionSkipForward,
	ActionStop,
	ActionToggleFullscreenPlayer,
	ActionToggleQueue,
	ActionToggleRepeat,
	ActionVolumeDown,
	ActionVolumeUp,
}

// MediaKeyActions are the actions served by the OS media-key surface.
var MediaKeyActions = []BindingAction{
	ActionPlay,
	ActionPause,
	ActionPlayPause,
	ActionNext,
	ActionPrevious,
	ActionStop,
}

// Valid reports whether the action is part of the fixed action set.
func (a BindingAction) Valid() bool {
	for _, known := range AllBindingActions {
		if a == known {
			return true
		}
	}
	return false
}

// HotkeyBinding is the user's binding for one action.
type HotkeyBinding struct {
	// Hotkey in the settings syntax, e.g. "mod+shift+p". Empty means unbound.
	Hotkey      string `json:"hotkey"`
	IsGlobal    bool   `json:"isGlobal"`
	AllowGlobal bool   `json:"allowGlobal"`
}

// HotkeyTable maps every action to its binding.
type HotkeyTable map[BindingAction]HotkeyBinding

// DefaultHotkeyTable returns the bindings used before the user customizes them.
func DefaultHotkeyTable() HotkeyTable {
	return HotkeyTable{
		ActionGlobalSearch:           {Hotkey: "mod+k", AllowGlobal: false},
		ActionLocalSearch:            {Hotkey: "mod+f", AllowGlobal: false},
		ActionVolumeMute:             {Hotkey: "mod+m", AllowGlobal: true},
		ActionNext:                   {Hotkey: "", AllowGlobal: true},
		ActionPause:                  {Hotkey: "", AllowGlobal: true},
		ActionPlay:                   {Hotkey: "", AllowGlobal: true},
		ActionPlayPause:              {Hotkey: "space", AllowGlobal: false},
		ActionPrevious:               {Hotkey: "", AllowGlobal: true},
		ActionToggleShuffle:          {Hotkey: "", AllowGlobal: true},
		ActionSkipBackward:           {Hotkey: "", AllowGlobal: true},
		ActionSkipForward:            {Hotkey: "", AllowGlobal: true},
		ActionStop:                   {Hotkey: "", AllowGlobal: true},
		ActionToggleFullscreenPlayer: {Hotkey: "", AllowGlobal: false},
		ActionToggleQueue:            {Hotkey: "", AllowGlobal: false},
		ActionToggleRepeat:           {Hotkey: "", AllowGlobal: true},
		ActionVolumeDown:             {Hotkey: "", AllowGlobal: true},
		ActionVolumeUp:               {Hotkey: "", AllowGlobal: true},
	}
}

// Modifier is an accelerator modifier key.
type Modifier string

// Modifiers in canonical order.
const (
	ModCmdOrCtrl Modifier = "CmdOrCtrl"
	ModCtrl      Modifier = "Ctrl"
	ModAlt       Modifier = "Alt"
	ModShift     Modifier = "Shift"
	ModSuper     Modifier = "Super"
)

var modifierOrder = map[Modifier]int{
	ModCmdOrCtrl: 0,
	ModCtrl:      1,
	ModAlt:       2,
	ModShift:     3,
	ModSuper:     4,
}

// hotkey syntax modifier names
var hotkeyModifiers = map[string]Modifier{
	"mod":     ModCmdOrCtrl,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"meta":    ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"super":   ModSuper,
}

// named keys in the hotkey syntax and their accelerator spelling
var namedKeys = map[string]string{
	"space":      "Space",
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"backspace":  "Backspace",
	"delete":     "Delete",
	"del":        "Delete",
	"insert":     "Insert",
	"escape":     "Escape",
	"esc":        "Escape",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"up":         "Up",
	"down":       "Down",
	"left":       "Left",
	"right":      "Right",
	"arrowup":    "Up",
	"arrowdown":  "Down",
	"arrowleft":  "Left",
	"arrowright": "Right",
	"plus":       "Plus",
	"comma":      ",",
	"period":     ".",
	"slash":      "/",
	"minus":      "-",
	"equal":      "=",

	"mediaplaypause":     "MediaPlayPause",
	"mediastop":          "MediaStop",
	"mediatracknext":     "MediaNextTrack",
	"mediatrackprevious": "MediaPreviousTrack",
	"medianexttrack":     "MediaNextTrack",
	"mediaprevioustrack": "MediaPreviousTrack",
	"volumeup":           "VolumeUp",
	"volumedown":         "VolumeDown",
	"volumemute":         "VolumeMute",
}

// Accelerator is a normalized key combination that can be registered with the OS.
type Accelerator struct {
	Modifiers []Modifier
	Key       string
}

// String renders the accelerator as "Mod+Mod+Key" with modifiers in canonical order.
func (a Accelerator) String() string {
	parts := make([]string, 0, len(a.Modifiers)+1)
	for _, m := range a.Modifiers {
		parts = append(parts, string(m))
	}
	parts = append(parts, a.Key)
	return strings.Join(parts, "+")
}

// Has reports whether the accelerator includes the modifier.
func (a Accelerator) Has(m Modifier) bool {
	for _, have := range a.Modifiers {
		if have == m {
			return true
		}
	}
	return false
}

// Equal compares two accelerators.
func (a Accelerator) Equal(other Accelerator) bool {
	return a.String() == other.String()
}

// ParseHotkey translates the settings hotkey syntax ("mod+shift+p") into an Accelerator.
// Tokens are case-insensitive; the last token is the key.
func ParseHotkey(hotkey string) (Accelerator, error) {
	tokens := splitHotkey(hotkey)
	if len(tokens) == 0 {
		return Accelerator{}, fmt.Errorf("%w: empty hotkey", ErrInvalidHotkey)
	}

	var acc Accelerator
	for _, tok := range tokens[:len(tokens)-1] {
		mod, ok := hotkeyModifiers[strings.ToLower(tok)]
		if !ok {
			return Accelerator{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidHotkey, tok, hotkey)
		}
		acc.Modifiers = append(acc.Modifiers, mod)
	}

	key, err := normalizeKey(tokens[len(tokens)-1])
	if err != nil {
		return Accelerator{}, fmt.Errorf("%w in %q", err, hotkey)
	}
	acc.Key = key
	acc.Modifiers = canonicalModifiers(acc.Modifiers)
	return acc, nil
}

// ParseAccelerator parses the output of Accelerator.String.
func ParseAccelerator(s string) (Accelerator, error) {
	tokens := splitHotkey(s)
	if len(tokens) == 0 {
		return Accelerator{}, fmt.Errorf("%w: empty accelerator", ErrInvalidHotkey)
	}

	var acc Accelerator
	for _, tok := range tokens[:len(tokens)-1] {
		mod := Modifier(tok)
		if _, ok := modifierOrder[mod]; !ok {
			return Accelerator{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidHotkey, tok, s)
		}
		acc.Modifiers = append(acc.Modifiers, mod)
	}
	key, err := normalizeKey(tokens[len(tokens)-1])
	if err != nil {
		return Accelerator{}, fmt.Errorf("%w in %q", err, s)
	}
	acc.Key = key
	acc.Modifiers = canonicalModifiers(acc.Modifiers)
	return acc, nil
}

// HotkeyToAccelerator is a convenience wrapper returning the accelerator string.
func HotkeyToAccelerator(hotkey string) (string, error) {
	acc, err := ParseHotkey(hotkey)
	if err != nil {
		return "", err
	}
	return acc.String(), nil
}

// splitHotkey splits on '+' while allowing "+" itself as the final key ("ctrl++").
func splitHotkey(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	trailingPlus := strings.HasSuffix(s, "++") || s == "+"
	if trailingPlus {
		s = strings.TrimSuffix(s, "+")
	}
	var tokens []string
	for _, tok := range strings.Split(s, "+") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if trailingPlus {
		tokens = append(tokens, "Plus")
	}
	return tokens
}

func normalizeKey(key string) (string, error) {
	lower := strings.ToLower(key)
	if named, ok := namedKeys[lower]; ok {
		return named, nil
	}
	// accelerator spelling of a named key parses back to itself
	for _, named := range namedKeys {
		if key == named {
			return named, nil
		}
	}
	if _, ok := hotkeyModifiers[lower]; ok {
		return "", fmt.Errorf("%w: modifier %q used as key", ErrInvalidHotkey, key)
	}
	if len(key) == 1 {
		return strings.ToUpper(key), nil
	}
	if len(lower) >= 2 && lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprintf("f%d", n) == lower {
			return fmt.Sprintf("F%d", n), nil
		}
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidHotkey, key)
}

func canonicalModifiers(mods []Modifier) []Modifier {
	seen := make(map[Modifier]bool, len(mods))
	out := make([]Modifier, 0, len(mods))
	for _, m := range mods {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return modifierOrder[out[i]] < modifierOrder[out[j]]
	})
	return out
}
