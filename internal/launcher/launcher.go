// Package launcher spawns external programs on behalf of key bindings and
// lifecycle hooks. Spawning is fire-and-forget: nothing waits for the child
// and no output is captured.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
)

// ErrEmptyCommand is returned when a command has no program name.
var ErrEmptyCommand = errors.New("empty command")

// Command is a program invocation: name plus argument list.
type Command struct {
	Name string
	Args []string
}

// NewCommand creates a command.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// FromArgv builds a command from an argv slice (program first).
func FromArgv(argv []string) Command {
	if len(argv) == 0 {
		return Command{}
	}
	return NewCommand(argv[0], argv[1:]...)
}

// Arg returns a copy of c with arg appended.
func (c Command) Arg(arg string) Command {
	args := make([]string, len(c.Args), len(c.Args)+1)
	copy(args, c.Args)
	c.Args = append(args, arg)
	return c
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Launcher starts external programs.
type Launcher interface {
	// SetEnv sets an environment variable for every child spawned afterwards.
	SetEnv(key, value string)
	// ResetEnv drops every variable set with SetEnv.
	ResetEnv()
	// Spawn starts cmd without waiting for it to exit.
	Spawn(cmd Command) error
}

// ExecLauncher spawns processes with os/exec.
type ExecLauncher struct {
	logger *slog.Logger
	env    map[string]string
}

// NewExecLauncher creates a launcher that inherits the current environment.
func NewExecLauncher(logger *slog.Logger) *ExecLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecLauncher{
		logger: logger,
		env:    make(map[string]string),
	}
}

// SetEnv implements Launcher.
func (l *ExecLauncher) SetEnv(key, value string) {
	l.env[key] = value
}

// ResetEnv implements Launcher.
func (l *ExecLauncher) ResetEnv() {
	clear(l.env)
}

// Environ returns the environment passed to children.
func (l *ExecLauncher) Environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(l.env))
	for k := range l.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+l.env[k])
	}
	return env
}

// Spawn implements Launcher. The child runs in its own session so it
// survives deskrc restarts; it is reaped in the background.
func (l *ExecLauncher) Spawn(c Command) error {
	if c.Name == "" {
		return ErrEmptyCommand
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Env = l.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", c.Name, err)
	}

	pid := cmd.Process.Pid
	l.logger.Debug("spawned command", "command", c.String(), "pid", pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("command exited", "command", c.Name, "pid", pid, "error", err)
		}
	}()
	return nil
}

// Spawner wraps a Launcher for use from bindings and hooks: failures are
// logged as warnings and never returned to the caller.
type Spawner struct {
	launcher Launcher
	logger   *slog.Logger
}

// NewSpawner creates a Spawner.
func NewSpawner(l Launcher, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{launcher: l, logger: logger}
}

// Spawn starts cmd and logs a warning if that fails.
func (s *Spawner) Spawn(cmd Command) {
	if err := s.launcher.Spawn(cmd); err != nil {
		s.logger.Warn("failed to spawn command", "command", cmd.String(), "error", err)
	}
}

// Action returns a closure that spawns cmd. The command is copied, so later
// changes by the caller do not affect the closure.
func (s *Spawner) Action(cmd Command) func() {
	c := Command{Name: cmd.Name, Args: append([]string(nil), cmd.Args...)}
	return func() { s.Spawn(c) }
}

// SetEnv forwards to the wrapped launcher.
func (s *Spawner) SetEnv(key, value string) {
	s.launcher.SetEnv(key, value)
}

// ResetEnv forwards to the wrapped launcher.
func (s *Spawner) ResetEnv() {
	s.launcher.ResetEnv()
}
