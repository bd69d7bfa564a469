// Package binding implements the modifier+key dispatch table.
//
// A Table maps an exact (modifier set, key symbol) pair to an action. The
// table is owned by the event dispatch thread and is not safe for concurrent
// use.
package binding

import (
	"sort"

	"github.com/jmylchreest/deskrc/internal/keysym"
)

// Action is a side-effecting handler run when its combo is pressed.
// Actions must not block.
type Action func()

// RangeFunc builds the name and action for the i-th key of a range binding.
type RangeFunc func(i int) (name string, action Action)

// Binding is a registered table entry.
type Binding struct {
	Combo  keysym.Combo
	Name   string
	Action Action

	seq uint64
}

// Table is the modifier+key dispatch table.
type Table struct {
	entries map[keysym.Combo]*Binding
	nextSeq uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[keysym.Combo]*Binding),
	}
}

// Bind registers action for the exact (mods, sym) pair. A later registration
// of the same pair replaces the earlier one.
func (t *Table) Bind(mods keysym.Modifiers, sym keysym.Sym, action Action) {
	t.BindNamed(mods, sym, "", action)
}

// BindNamed is Bind with a human-readable name used when listing bindings.
func (t *Table) BindNamed(mods keysym.Modifiers, sym keysym.Sym, name string, action Action) {
	if action == nil {
		return
	}
	combo := keysym.Combo{Mods: mods, Sym: sym}
	t.nextSeq++
	t.entries[combo] = &Binding{
		Combo:  combo,
		Name:   name,
		Action: action,
		seq:    t.nextSeq,
	}
}

// BindRange registers one binding per key in syms. The i-th key gets the
// action produced by gen(i), so every entry holds its own index.
func (t *Table) BindRange(mods keysym.Modifiers, syms []keysym.Sym, gen RangeFunc) {
	for i, sym := range syms {
		name, action := gen(i)
		t.BindNamed(mods, sym, name, action)
	}
}

// Dispatch runs the action bound to exactly (mods, sym). It reports whether a
// binding matched; unmatched keys are not an error and should be passed on to
// the host's default handling.
func (t *Table) Dispatch(mods keysym.Modifiers, sym keysym.Sym) bool {
	b, ok := t.entries[keysym.Combo{Mods: mods, Sym: sym}]
	if !ok {
		return false
	}
	b.Action()
	return true
}

// Lookup returns the binding for an exact combo.
func (t *Table) Lookup(combo keysym.Combo) (Binding, bool) {
	b, ok := t.entries[combo]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Len returns the number of distinct combos bound.
func (t *Table) Len() int {
	return len(t.entries)
}

// Bindings returns the active bindings ordered by registration.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.entries))
	for _, b := range t.entries {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// Reset drops every binding. Used when the whole configuration is reloaded.
func (t *Table) Reset() {
	t.entries = make(map[keysym.Combo]*Binding)
	t.nextSeq = 0
}
