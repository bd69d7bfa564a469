// Package tui provides the BubbleTea-based status preview.
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/status"
	"github.com/jmylchreest/deskrc/internal/store"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeStatus Mode = iota
	ModeBindings
	ModeHelp
)

// staleAfter is how many status periods may pass before the daemon's
// published line is considered stale and a local sample is shown instead.
const staleAfter = 3

// BindingRow is one entry of the bindings tab.
type BindingRow struct {
	Combo  string `json:"combo" yaml:"combo"`
	Action string `json:"action" yaml:"action"`
}

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg       *config.Config
	statePath string
	now       func() time.Time

	// Current mode
	mode     Mode
	lastMode Mode

	// Components
	list     list.Model
	viewport viewport.Model
	help     help.Model

	// State
	state    *store.RuntimeState
	stateErr error
	sampler  *status.Sampler
	local    string
	width    int
	height   int
	ready    bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool

	// Refresh channel fed by the state file watcher
	refreshCh <-chan struct{}
}

// bindingItem wraps a binding row for the list component.
type bindingItem struct {
	row BindingRow
}

func (i bindingItem) Title() string       { return i.row.Combo }
func (i bindingItem) Description() string { return i.row.Action }
func (i bindingItem) FilterValue() string { return i.row.Combo + " " + i.row.Action }

// New creates a new TUI model. metrics feeds the local sampler used when no
// live daemon state is available.
func New(cfg *config.Config, statePath string, rows []BindingRow, metrics status.Metrics) Model {
	return newModel(cfg, statePath, rows, metrics, time.Now)
}

func newModel(cfg *config.Config, statePath string, rows []BindingRow, metrics status.Metrics, now func() time.Time) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if metrics == nil {
		metrics = status.NewSystemMetrics()
	}

	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = bindingItem{row: r}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("deskrc bindings (%d)", len(rows))
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	m := Model{
		cfg:       cfg,
		statePath: statePath,
		now:       now,
		mode:      ModeStatus,
		list:      l,
		help:      help.New(),
		keys:      DefaultKeyMap(),
	}
	m.sampler = status.NewSampler(metrics, func(string) {}, status.Options{
		Period:         cfg.Status.Period.Duration(),
		TimeFormat:     cfg.Status.TimeFormat,
		SeparatorColor: cfg.Status.SeparatorColor,
		Now:            now,
	}, slog.Default())
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadState,
		m.sample,
		m.watchForChanges,
	)
}

// loadState reads the daemon's runtime state.
func (m Model) loadState() tea.Msg {
	state, err := store.LoadState(m.statePath)
	return stateMsg{state: state, err: err}
}

type stateMsg struct {
	state *store.RuntimeState
	err   error
}

// sample takes a local status reading.
func (m Model) sample() tea.Msg {
	m.sampler.SampleAndPublish()
	return sampleMsg{text: m.sampler.Last()}
}

type sampleMsg struct {
	text string
}

// scheduleSample arms the next local sample on the period boundary.
func (m Model) scheduleSample() tea.Cmd {
	wait := status.DurationUntilMultiple(m.now(), m.sampler.Period())
	if wait == 0 {
		wait = m.sampler.Period()
	}
	return tea.Tick(wait, func(time.Time) tea.Msg {
		return m.sample()
	})
}

// watchForChanges waits for the state file to change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return refreshMsg{}
}

type refreshMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-2)
		m.viewport.SetContent(m.renderStatus())
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.state = msg.state
		m.stateErr = msg.err
		m.viewport.SetContent(m.renderStatus())
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadState, m.watchForChanges)

	case sampleMsg:
		m.local = msg.text
		m.viewport.SetContent(m.renderStatus())
		return m, m.scheduleSample()

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusMsg{text: "Copied to clipboard", isErr: false}
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeStatus:
		m.viewport, cmd = m.viewport.Update(msg)
	case ModeBindings:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The filter input owns the keyboard while it is open.
	if m.mode == ModeBindings && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = m.lastMode
		} else {
			m.lastMode = m.mode
			m.mode = ModeHelp
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.mode == ModeHelp {
			m.mode = m.lastMode
			return m, nil
		}
		if m.mode == ModeBindings && m.list.FilterState() == list.FilterApplied {
			m.list.ResetFilter()
			return m, nil
		}
		m.mode = ModeStatus
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.mode == ModeStatus {
			m.mode = ModeBindings
		} else {
			m.mode = ModeStatus
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadState, func() tea.Msg {
			return statusMsg{text: "Refreshed"}
		})

	case key.Matches(msg, m.keys.Copy):
		line := m.currentLine()
		if line == "" {
			return m, func() tea.Msg {
				return statusMsg{text: "No status line yet", isErr: true}
			}
		}
		return m, m.copyToClipboard(StripMarkup(line))
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeStatus:
		m.viewport, cmd = m.viewport.Update(msg)
	case ModeBindings:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

// live reports whether the daemon's published line is fresh.
func (m Model) live() bool {
	if m.state == nil || m.state.Status == "" || m.state.StatusUpdatedAt == 0 {
		return false
	}
	return m.state.StatusAge(m.now()) < staleAfter*m.sampler.Period()
}

// currentLine returns the daemon's line when live, else the local sample.
func (m Model) currentLine() string {
	if m.live() {
		return m.state.Status
	}
	return m.local
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		err := copyText(text)
		return copyResultMsg{err: err}
	}
}

// renderStatus renders the status tab contents.
func (m Model) renderStatus() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	now := m.now()

	var b strings.Builder
	b.WriteString(titleStyle.Render("deskrc status") + "\n\n")

	source := "local sample"
	if m.live() {
		source = fmt.Sprintf("deskrcd (pid %d), updated %s", m.state.PID,
			humanize.Time(time.Unix(m.state.StatusUpdatedAt, 0)))
	}
	b.WriteString("  " + RenderMarkup(m.currentLine()) + "\n")
	b.WriteString("  " + labelStyle.Render("from "+source) + "\n\n")

	if m.stateErr != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).
			Render("state: "+m.stateErr.Error()) + "\n\n")
	}

	st := m.state
	if st == nil || st.Generation == "" {
		b.WriteString(labelStyle.Render("deskrcd has not published any state") + "\n")
		return b.String()
	}

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), value))
	}
	row("generation", st.Generation)
	if st.GenerationStartedAt != 0 {
		row("configured", humanize.Time(time.Unix(st.GenerationStartedAt, 0)))
	}
	if st.ConfigPath != "" {
		row("config", st.ConfigPath)
	}
	row("bindings", fmt.Sprintf("%d", st.Bindings))
	if st.TotalMemory > 0 {
		row("memory", humanize.IBytes(st.UsedMemory)+" / "+humanize.IBytes(st.TotalMemory))
	}
	cursor := "hardware"
	if !st.HardwareCursor {
		cursor = "software"
	}
	row("cursor", cursor)
	if len(st.HooksFired) > 0 {
		row("hooks fired", strings.Join(st.HooksFired, ", "))
	}
	if age := st.StatusAge(now); age > 0 && !m.live() {
		row("daemon status", "stale, "+humanize.Time(now.Add(-age)))
	}

	if len(st.Outputs) > 0 {
		b.WriteString("\n" + titleStyle.Render("outputs") + "\n")
		outputs := append([]store.OutputState(nil), st.Outputs...)
		sort.Slice(outputs, func(i, j int) bool { return outputs[i].X < outputs[j].X })
		for _, o := range outputs {
			state := "disconnected"
			if o.Connected {
				state = fmt.Sprintf("%dx%d+%d+%d scale %.2f", o.Width, o.Height, o.X, o.Y, o.Scale)
			}
			row(o.Name, state)
		}
	}
	return b.String()
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeStatus:
		return m.viewport.View() + "\n" + m.footer("status")
	case ModeBindings:
		return m.list.View() + "\n" + m.footer("bindings")
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

// footer shows the transient status message or the keybind bar.
func (m Model) footer(mode string) string {
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusMsg)
	}
	return m.buildKeybindBar(m.width, mode)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp())
	s += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "status" or "bindings".
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "status":
		binds = []keybind{
			{"q", "quit", 1},
			{"tab", "bindings", 2},
			{"?", "help", 3},
			{"c", "copy", 4},
			{"r", "refresh", 5},
			{"j/k", "scroll", 6},
		}
	case "bindings":
		binds = []keybind{
			{"q", "quit", 1},
			{"tab", "status", 2},
			{"/", "filter", 3},
			{"?", "help", 4},
			{"esc", "clear", 5},
		}
	}
	sort.SliceStable(binds, func(i, j int) bool { return binds[i].priority < binds[j].priority })

	// Build the bar, adding keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		plainItem := b.key + " " + b.desc
		testLen := len(plainItem)
		if result != "" {
			testLen = len(stripANSI(result)) + len(separator) + len(plainItem)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// stripANSI removes ANSI escape codes for length calculation.
func stripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config    *config.Config
	StatePath string // State file to watch for changes (empty = default location)
	Bindings  []BindingRow
	Metrics   status.Metrics // Local sampling source (nil = system metrics)
	Logger    *slog.Logger
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	statePath := opts.StatePath
	if statePath == "" {
		p, err := store.StateFilePath()
		if err != nil {
			return err
		}
		statePath = p
	}

	m := New(opts.Config, statePath, opts.Bindings, opts.Metrics)

	// Watch the daemon's state file for changes
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	watcher, err := store.NewFileWatcher([]string{statePath}, 100*time.Millisecond, logger)
	if err != nil {
		logger.Warn("state watcher unavailable", "error", err)
	} else {
		ch := make(chan struct{}, 1)
		watcher.SetChangeCallback(func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to start state watcher", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
			m.refreshCh = ch
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
