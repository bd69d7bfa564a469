package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/deskrc/internal/store"
	"github.com/jmylchreest/deskrc/internal/tui"
)

var statusOpts struct {
	format string
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state last published by deskrcd",
	Long: `Show the status line, configuration generation and output layout that
deskrcd last wrote to its state file.

With --format waybar the status line is printed in Waybar's custom module
JSON format, so it can also be shown outside the compositor:

  "custom/deskrc": {
    "exec": "deskrc status --format waybar",
    "interval": 5,
    "return-type": "json"
  }`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, waybar)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := store.LoadState(globalOpts.statePath)
	if err != nil {
		return err
	}
	return writeStatus(cmd.OutOrStdout(), state, statusOpts.format, time.Now(), getConfig().Status.Period.Duration())
}

// writeStatus renders state in the requested format.
func writeStatus(w io.Writer, state *store.RuntimeState, format string, now time.Time, period time.Duration) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(state)
	case "waybar":
		return json.NewEncoder(w).Encode(waybarStatus(state, now, period))
	case "plain":
		_, err := io.WriteString(w, plainStatus(state, now))
		return err
	default:
		return fmt.Errorf("unknown format %q (use plain, json or waybar)", format)
	}
}

// waybarStatus builds the Waybar module for state. A line older than three
// periods is marked stale.
func waybarStatus(state *store.RuntimeState, now time.Time, period time.Duration) WaybarStatus {
	if state.Status == "" {
		return WaybarStatus{Text: "", Alt: "empty", Class: "empty", Tooltip: "deskrcd has not published a status"}
	}

	class := "live"
	if age := state.StatusAge(now); age > 3*period {
		class = "stale"
	}

	var tooltip []string
	if state.Generation != "" {
		tooltip = append(tooltip, "generation "+state.Generation)
	}
	tooltip = append(tooltip, "updated "+humanize.RelTime(time.Unix(state.StatusUpdatedAt, 0), now, "ago", "from now"))

	return WaybarStatus{
		Text:    tui.StripMarkup(state.Status),
		Alt:     class,
		Tooltip: strings.Join(tooltip, "\n"),
		Class:   class,
	}
}

// plainStatus renders state for a terminal.
func plainStatus(state *store.RuntimeState, now time.Time) string {
	if state.Generation == "" {
		return "deskrcd has not published any state\n"
	}

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%-12s %s\n", label+":", value)
	}

	if state.Status != "" {
		row("status", tui.StripMarkup(state.Status))
		row("updated", humanize.RelTime(time.Unix(state.StatusUpdatedAt, 0), now, "ago", "from now"))
	}
	if state.PID != 0 {
		row("pid", fmt.Sprintf("%d", state.PID))
	}
	row("generation", state.Generation)
	if state.GenerationStartedAt != 0 {
		row("configured", humanize.RelTime(time.Unix(state.GenerationStartedAt, 0), now, "ago", "from now"))
	}
	row("bindings", fmt.Sprintf("%d", state.Bindings))
	if state.TotalMemory > 0 {
		row("memory", humanize.IBytes(state.UsedMemory)+" / "+humanize.IBytes(state.TotalMemory))
	}
	cursor := "hardware"
	if !state.HardwareCursor {
		cursor = "software"
	}
	row("cursor", cursor)
	if len(state.HooksFired) > 0 {
		row("hooks", strings.Join(state.HooksFired, ", "))
	}
	for _, o := range state.Outputs {
		desc := "disconnected"
		if o.Connected {
			desc = fmt.Sprintf("%dx%d at %d,%d scale %.2f", o.Width, o.Height, o.X, o.Y, o.Scale)
		}
		row("output", o.Name+" "+desc)
	}
	return b.String()
}
