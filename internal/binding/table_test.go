package binding

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/deskrc/internal/keysym"
)

func TestDispatch_ExactlyOnce(t *testing.T) {
	tbl := NewTable()
	calls := map[string]int{}
	record := func(name string) Action {
		return func() { calls[name]++ }
	}

	tbl.Bind(keysym.Alt, keysym.SymH, record("focus-left"))
	tbl.Bind(keysym.Alt|keysym.Shift, keysym.SymH, record("move-left"))
	tbl.Bind(keysym.Alt, keysym.SymJ, record("focus-down"))

	assert.True(t, tbl.Dispatch(keysym.Alt, keysym.SymH))
	assert.Equal(t, map[string]int{"focus-left": 1}, calls)

	assert.True(t, tbl.Dispatch(keysym.Alt|keysym.Shift, keysym.SymH))
	assert.Equal(t, map[string]int{"focus-left": 1, "move-left": 1}, calls)
}

func TestDispatch_ExactMatchOnly(t *testing.T) {
	tbl := NewTable()
	fired := 0
	tbl.Bind(keysym.Alt, keysym.SymQ, func() { fired++ })

	assert.False(t, tbl.Dispatch(keysym.Alt|keysym.Shift, keysym.SymQ))
	assert.False(t, tbl.Dispatch(keysym.None, keysym.SymQ))
	assert.False(t, tbl.Dispatch(keysym.Ctrl|keysym.Alt, keysym.SymQ))
	assert.Equal(t, 0, fired)

	assert.True(t, tbl.Dispatch(keysym.Alt, keysym.SymQ))
	assert.Equal(t, 1, fired)
}

func TestDispatch_LastWriteWins(t *testing.T) {
	tbl := NewTable()
	var got []string
	tbl.Bind(keysym.Alt, keysym.SymP, func() { got = append(got, "first") })
	tbl.Bind(keysym.Alt, keysym.SymP, func() { got = append(got, "second") })

	assert.Equal(t, 1, tbl.Len())
	tbl.Dispatch(keysym.Alt, keysym.SymP)
	tbl.Dispatch(keysym.Alt, keysym.SymP)
	assert.Equal(t, []string{"second", "second"}, got)
}

func TestDispatch_UnmatchedIsNoop(t *testing.T) {
	tbl := NewTable()
	assert.NotPanics(t, func() {
		assert.False(t, tbl.Dispatch(keysym.Super, keysym.SymReturn))
	})
}

func TestBindRange_NoCaptureAliasing(t *testing.T) {
	tbl := NewTable()
	var switched []int
	fnkeys := keysym.FRange(1, 12)

	tbl.BindRange(keysym.Ctrl|keysym.Alt, fnkeys, func(i int) (string, Action) {
		vt := i + 1
		return fmt.Sprintf("switch to vt %d", vt), func() { switched = append(switched, vt) }
	})
	require.Equal(t, 12, tbl.Len())

	for i, sym := range fnkeys {
		switched = nil
		require.True(t, tbl.Dispatch(keysym.Ctrl|keysym.Alt, sym))
		assert.Equal(t, []int{i + 1}, switched, "F%d", i+1)
	}
}

func TestBindings_RegistrationOrder(t *testing.T) {
	tbl := NewTable()
	noop := func() {}
	tbl.BindNamed(keysym.Alt, keysym.SymH, "one", noop)
	tbl.BindNamed(keysym.Alt, keysym.SymJ, "two", noop)
	tbl.BindNamed(keysym.Alt, keysym.SymK, "three", noop)
	tbl.BindNamed(keysym.Alt, keysym.SymH, "four", noop)

	names := []string{}
	for _, b := range tbl.Bindings() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"two", "three", "four"}, names)
}

func TestBind_NilActionIgnored(t *testing.T) {
	tbl := NewTable()
	tbl.Bind(keysym.Alt, keysym.SymH, nil)
	assert.Equal(t, 0, tbl.Len())
}

func TestLookup(t *testing.T) {
	tbl := NewTable()
	tbl.BindNamed(keysym.Alt, keysym.SymT, "toggle split", func() {})

	b, ok := tbl.Lookup(keysym.Combo{Mods: keysym.Alt, Sym: keysym.SymT})
	require.True(t, ok)
	assert.Equal(t, "toggle split", b.Name)

	_, ok = tbl.Lookup(keysym.Combo{Mods: keysym.Alt, Sym: keysym.SymU})
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	tbl := NewTable()
	tbl.Bind(keysym.Alt, keysym.SymH, func() {})
	tbl.Reset()
	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.Dispatch(keysym.Alt, keysym.SymH))
}
