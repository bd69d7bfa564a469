package keysym

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors.
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Combo is a modifier set together with a key symbol.
type Combo struct {
	Mods Modifiers
	Sym  Sym
}

// String renders the combo as "ctrl-alt-F1", or just the key when no
// modifiers are held.
func (c Combo) String() string {
	if c.Mods.IsEmpty() {
		return c.Sym.String()
	}
	return c.Mods.String() + "-" + c.Sym.String()
}

// MarshalText implements encoding.TextMarshaler.
func (c Combo) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (c *Combo) UnmarshalText(text []byte) error {
	parsed, err := ParseCombo(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCombo parses "alt-shift-h", "ctrl-alt-F1" or "Super_L". The last
// hyphen-separated part is the key, the rest are modifiers. A trailing "-"
// key ("alt--") is accepted for the minus key.
func ParseCombo(spec string) (Combo, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Combo{}, ErrEmptySpec
	}

	keyPart := spec
	var modPart string
	if strings.HasSuffix(spec, "--") {
		keyPart = "-"
		modPart = strings.TrimSuffix(spec, "--")
	} else if i := strings.LastIndex(spec, "-"); i > 0 {
		keyPart = spec[i+1:]
		modPart = spec[:i]
	}

	var mods Modifiers
	if modPart != "" {
		for _, p := range strings.Split(modPart, "-") {
			mod, ok := ParseModifier(p)
			if !ok {
				return Combo{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
			}
			mods |= mod
		}
	}

	sym, err := ParseSym(keyPart)
	if err != nil {
		return Combo{}, err
	}
	return Combo{Mods: mods, Sym: sym}, nil
}
