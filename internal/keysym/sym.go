package keysym

import (
	"fmt"
	"strconv"
	"strings"
)

// Sym is an X11 keysym value.
type Sym uint32

// Named keysyms used by the default configuration.
const (
	SymNone      Sym = 0
	SymSpace     Sym = 0x0020
	SymTab       Sym = 0xff09
	SymReturn    Sym = 0xff0d
	SymEscape    Sym = 0xff1b
	SymBackSpace Sym = 0xff08
	SymLeft      Sym = 0xff51
	SymUp        Sym = 0xff52
	SymRight     Sym = 0xff53
	SymDown      Sym = 0xff54
	SymShiftL    Sym = 0xffe1
	SymShiftR    Sym = 0xffe2
	SymControlL  Sym = 0xffe3
	SymControlR  Sym = 0xffe4
	SymAltL      Sym = 0xffe9
	SymAltR      Sym = 0xffea
	SymSuperL    Sym = 0xffeb
	SymSuperR    Sym = 0xffec

	// SymF1 is the first function key; F2..F35 follow consecutively.
	SymF1 Sym = 0xffbe

	SymA Sym = 0x0061
	SymC Sym = 0x0063
	SymD Sym = 0x0064
	SymE Sym = 0x0065
	SymF Sym = 0x0066
	SymH Sym = 0x0068
	SymI Sym = 0x0069
	SymJ Sym = 0x006a
	SymK Sym = 0x006b
	SymL Sym = 0x006c
	SymM Sym = 0x006d
	SymN Sym = 0x006e
	SymO Sym = 0x006f
	SymP Sym = 0x0070
	SymQ Sym = 0x0071
	SymR Sym = 0x0072
	SymT Sym = 0x0074
	SymU Sym = 0x0075
	SymV Sym = 0x0076
	SymY Sym = 0x0079
)

// maxFunctionKey is the highest F-key that has an X11 keysym.
const maxFunctionKey = 35

var specialNames = map[Sym]string{
	SymSpace:     "space",
	SymTab:       "Tab",
	SymReturn:    "Return",
	SymEscape:    "Escape",
	SymBackSpace: "BackSpace",
	SymLeft:      "Left",
	SymUp:        "Up",
	SymRight:     "Right",
	SymDown:      "Down",
	SymShiftL:    "Shift_L",
	SymShiftR:    "Shift_R",
	SymControlL:  "Control_L",
	SymControlR:  "Control_R",
	SymAltL:      "Alt_L",
	SymAltR:      "Alt_R",
	SymSuperL:    "Super_L",
	SymSuperR:    "Super_R",
}

var namesToSym = func() map[string]Sym {
	m := make(map[string]Sym, len(specialNames))
	for sym, name := range specialNames {
		m[strings.ToLower(name)] = sym
	}
	m["enter"] = SymReturn
	m["esc"] = SymEscape
	return m
}()

// F returns the keysym of function key n (1-based). It panics for n outside
// 1..35 since only a programming error produces such a value.
func F(n int) Sym {
	if n < 1 || n > maxFunctionKey {
		panic(fmt.Sprintf("keysym: function key F%d out of range", n))
	}
	return SymF1 + Sym(n-1)
}

// FRange returns the keysyms F(from)..F(to) inclusive, in order.
func FRange(from, to int) []Sym {
	syms := make([]Sym, 0, to-from+1)
	for n := from; n <= to; n++ {
		syms = append(syms, F(n))
	}
	return syms
}

// String returns the keysym name, e.g. "h", "F13" or "Super_L".
func (s Sym) String() string {
	if name, ok := specialNames[s]; ok {
		return name
	}
	if s >= SymF1 && s < SymF1+maxFunctionKey {
		return fmt.Sprintf("F%d", int(s-SymF1)+1)
	}
	if s > 0x20 && s < 0x7f {
		return string(rune(s))
	}
	return fmt.Sprintf("0x%04x", uint32(s))
}

// ParseSym resolves a keysym name. Single printable ASCII characters map to
// their Latin-1 keysym, letters are lower-cased. Numeric keysyms such as
// "0xff1b" are accepted as is.
func ParseSym(name string) (Sym, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SymNone, ErrEmptySpec
	}
	if len(name) == 1 {
		c := name[0]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c > 0x20 && c < 0x7f {
			return Sym(c), nil
		}
	}
	lower := strings.ToLower(name)
	if sym, ok := namesToSym[lower]; ok {
		return sym, nil
	}
	if strings.HasPrefix(lower, "0x") {
		if v, err := strconv.ParseUint(lower[2:], 16, 32); err == nil && v != 0 {
			return Sym(v), nil
		}
	}
	if lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == lower {
			if n >= 1 && n <= maxFunctionKey {
				return F(n), nil
			}
		}
	}
	return SymNone, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, name)
}
