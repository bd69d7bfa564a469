package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateDir returns the path to the deskrc state directory.
// Uses XDG_STATE_HOME or defaults to ~/.local/state/deskrc.
func StateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "deskrc"), nil
}

// StateFilePath returns the path to the runtime state file.
func StateFilePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// OutputState is the last known geometry of a connector.
type OutputState struct {
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Scale     float64 `json:"scale"`
}

// RuntimeState is what deskrcd publishes for the deskrc CLI.
// This is persisted to ~/.local/state/deskrc/state.json
type RuntimeState struct {
	PID int `json:"pid,omitempty"`

	// Configuration generation
	Generation          string `json:"generation,omitempty"` // ULID
	GenerationStartedAt int64  `json:"generation_started_at,omitempty"`
	ConfigPath          string `json:"config_path,omitempty"`
	Bindings            int    `json:"bindings"`

	// Status line
	Status          string `json:"status,omitempty"`
	StatusUpdatedAt int64  `json:"status_updated_at,omitempty"`
	UsedMemory      uint64 `json:"used_memory,omitempty"`  // bytes
	TotalMemory     uint64 `json:"total_memory,omitempty"` // bytes

	Outputs        []OutputState `json:"outputs,omitempty"`
	HardwareCursor bool          `json:"hardware_cursor"`
	HooksFired     []string      `json:"hooks_fired,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DefaultRuntimeState returns an empty state.
func DefaultRuntimeState() *RuntimeState {
	return &RuntimeState{
		HardwareCursor: true,
		SchemaVersion:  CurrentSchemaVersion,
	}
}

// LoadState loads the runtime state from path.
// If path is empty the default state file is used. A missing or corrupted
// file yields the default state.
func LoadState(path string) (*RuntimeState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	if path == "" {
		var err error
		if path, err = StateFilePath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuntimeState(), nil
		}
		return nil, err
	}

	var state RuntimeState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultRuntimeState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return &state, nil
}

// SaveState writes the runtime state to path atomically.
// If path is empty the default state file is used.
func SaveState(path string, state *RuntimeState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if path == "" {
		var err error
		if path, err = StateFilePath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// SetStatus records a newly published status line.
func (s *RuntimeState) SetStatus(text string, at time.Time) {
	s.Status = text
	s.StatusUpdatedAt = at.Unix()
}

// StatusAge returns how long ago the status was last updated, or zero if it
// never was.
func (s *RuntimeState) StatusAge(now time.Time) time.Duration {
	if s.StatusUpdatedAt == 0 {
		return 0
	}
	return now.Sub(time.Unix(s.StatusUpdatedAt, 0))
}

// SetOutput inserts or replaces the entry for o.Name.
func (s *RuntimeState) SetOutput(o OutputState) {
	for i := range s.Outputs {
		if s.Outputs[i].Name == o.Name {
			s.Outputs[i] = o
			return
		}
	}
	s.Outputs = append(s.Outputs, o)
}

// Output returns the entry for name.
func (s *RuntimeState) Output(name string) (OutputState, bool) {
	for _, o := range s.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputState{}, false
}
