package daemon

// toggle is a boolean owned by a single binding.
type toggle struct {
	value bool
}

func newToggle(initial bool) *toggle {
	return &toggle{value: initial}
}

// Get returns the current value.
func (t *toggle) Get() bool {
	return t.value
}

// Flip inverts the value and returns the new one.
func (t *toggle) Flip() bool {
	t.value = !t.value
	return t.value
}
