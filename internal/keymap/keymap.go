// Package keymap loads XKB keymap source text. The text is opaque to deskrc:
// it is checked for gross structural damage and handed verbatim to the host's
// keymap compiler.
package keymap

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMalformed reports keymap text that cannot be a valid XKB keymap.
var ErrMalformed = errors.New("malformed keymap")

// DefaultName is the name of the embedded keymap.
const DefaultName = "default"

//go:embed keymaps/*.xkb
var embedded embed.FS

// Keymap is loaded keymap source.
type Keymap struct {
	Name string // File path, or DefaultName for the embedded keymap
	Text string
}

// Default returns the embedded keymap.
func Default() Keymap {
	data, err := embedded.ReadFile("keymaps/" + DefaultName + ".xkb")
	if err != nil {
		panic("keymap: embedded default missing: " + err.Error())
	}
	return Keymap{Name: DefaultName, Text: string(data)}
}

// Load reads and validates a keymap file. An empty path selects the
// embedded default.
func Load(path string) (Keymap, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Keymap{}, fmt.Errorf("failed to read keymap: %w", err)
	}
	km := Keymap{Name: path, Text: string(data)}
	if err := Validate(km.Text); err != nil {
		return Keymap{}, fmt.Errorf("%s: %w", path, err)
	}
	return km, nil
}

// Validate performs structural checks: the text must start with an
// xkb_keymap block, braces must balance outside strings and comments, and
// the block must be closed.
func Validate(text string) error {
	body := strings.TrimSpace(stripComments(text))
	if body == "" {
		return fmt.Errorf("%w: empty", ErrMalformed)
	}
	if !strings.HasPrefix(body, "xkb_keymap") {
		return fmt.Errorf("%w: expected xkb_keymap block", ErrMalformed)
	}

	depth := 0
	inString := false
	opened := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
			opened = true
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced '}' at offset %d", ErrMalformed, i)
			}
		}
	}
	switch {
	case inString:
		return fmt.Errorf("%w: unterminated string", ErrMalformed)
	case !opened:
		return fmt.Errorf("%w: missing keymap body", ErrMalformed)
	case depth != 0:
		return fmt.Errorf("%w: %d unclosed '{'", ErrMalformed, depth)
	}
	return nil
}

// stripComments removes // and # line comments outside string literals.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				b.WriteByte(text[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '#' || (c == '/' && i+1 < len(text) && text[i+1] == '/') {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
