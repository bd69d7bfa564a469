package launcher

// Fake records spawned commands instead of running them. Err, when set, is
// returned from every Spawn call.
type Fake struct {
	Spawned []Command
	Env     map[string]string
	Err     error
}

// NewFake creates a Fake launcher.
func NewFake() *Fake {
	return &Fake{Env: make(map[string]string)}
}

// SetEnv implements Launcher.
func (f *Fake) SetEnv(key, value string) {
	f.Env[key] = value
}

// ResetEnv implements Launcher.
func (f *Fake) ResetEnv() {
	clear(f.Env)
}

// Spawn implements Launcher.
func (f *Fake) Spawn(cmd Command) error {
	if f.Err != nil {
		return f.Err
	}
	f.Spawned = append(f.Spawned, cmd)
	return nil
}

// Lines returns the spawned command lines.
func (f *Fake) Lines() []string {
	lines := make([]string, len(f.Spawned))
	for i, c := range f.Spawned {
		lines[i] = c.String()
	}
	return lines
}
