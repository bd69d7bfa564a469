package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/deskrc/internal/tui"
)

var bindingsOpts struct {
	format string
	filter string
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List the key bindings the configuration installs",
	Long: `List every key binding the current configuration installs, in the
order they are registered. Later entries for the same combo replace earlier
ones, so configured [[bindings]] override the defaults.

Examples:
  # Human readable table
  deskrc bindings

  # Only bindings that spawn something
  deskrc bindings --filter exec

  # Export for another tool
  deskrc bindings --format yaml`,
	RunE: runBindings,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)

	bindingsCmd.Flags().StringVarP(&bindingsOpts.format, "format", "f", "table",
		"Output format (table, plain, json, yaml)")
	bindingsCmd.Flags().StringVar(&bindingsOpts.filter, "filter", "",
		"Only show bindings whose combo or action contains this text")
}

func runBindings(cmd *cobra.Command, args []string) error {
	s, err := newHeadless(getConfig(), nil, nil)
	if err != nil {
		return err
	}
	rows := filterRows(s.bindingRows(), bindingsOpts.filter)
	return writeBindings(cmd.OutOrStdout(), rows, bindingsOpts.format)
}

// filterRows keeps rows whose combo or action contains substr.
func filterRows(rows []tui.BindingRow, substr string) []tui.BindingRow {
	if substr == "" {
		return rows
	}
	substr = strings.ToLower(substr)
	var out []tui.BindingRow
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Combo), substr) ||
			strings.Contains(strings.ToLower(r.Action), substr) {
			out = append(out, r)
		}
	}
	return out
}

// writeBindings renders rows in the requested format.
func writeBindings(w io.Writer, rows []tui.BindingRow, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(rows)
	case "plain":
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", r.Combo, r.Action); err != nil {
				return err
			}
		}
		return nil
	case "table":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("COMBO", "ACTION")
		for _, r := range rows {
			t.Row(r.Combo, r.Action)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	default:
		return fmt.Errorf("unknown format %q (use table, plain, json or yaml)", format)
	}
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
