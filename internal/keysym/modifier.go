package keysym

import "strings"

// Modifiers is a bitset of held modifier keys. Bit values follow the X11/XKB
// modifier mask layout so they can be passed to the host unchanged.
type Modifiers uint32

const (
	// None indicates no modifiers.
	None  Modifiers = 0
	Shift Modifiers = 1 << 0
	Lock  Modifiers = 1 << 1
	Ctrl  Modifiers = 1 << 2
	// Alt is Mod1.
	Alt  Modifiers = 1 << 3
	Mod2 Modifiers = 1 << 4
	Mod3 Modifiers = 1 << 5
	// Super is Mod4 (the "logo" key).
	Super Modifiers = 1 << 6
	Mod5  Modifiers = 1 << 7
)

// modifierNames is ordered the way String renders modifiers.
var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{Ctrl, "ctrl"},
	{Alt, "alt"},
	{Super, "super"},
	{Shift, "shift"},
	{Lock, "lock"},
	{Mod2, "mod2"},
	{Mod3, "mod3"},
	{Mod5, "mod5"},
}

// modifierAliases maps accepted spellings onto modifier bits.
var modifierAliases = map[string]Modifiers{
	"shift":   Shift,
	"lock":    Lock,
	"caps":    Lock,
	"ctrl":    Ctrl,
	"control": Ctrl,
	"alt":     Alt,
	"mod1":    Alt,
	"mod2":    Mod2,
	"mod3":    Mod3,
	"super":   Super,
	"logo":    Super,
	"mod4":    Super,
	"mod5":    Mod5,
}

// Has reports whether all bits of mod are set in m.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod == mod
}

// With returns m with mod added.
func (m Modifiers) With(mod Modifiers) Modifiers {
	return m | mod
}

// Without returns m with mod removed.
func (m Modifiers) Without(mod Modifiers) Modifiers {
	return m &^ mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifiers) IsEmpty() bool {
	return m == None
}

// String renders the set as "ctrl-alt-shift". The empty set renders as "".
func (m Modifiers) String() string {
	if m == None {
		return ""
	}
	parts := make([]string, 0, len(modifierNames))
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "-")
}

// ParseModifier resolves a single modifier name (case-insensitive).
func ParseModifier(name string) (Modifiers, bool) {
	mod, ok := modifierAliases[strings.ToLower(strings.TrimSpace(name))]
	return mod, ok
}
