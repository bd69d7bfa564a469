package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/deskrc/internal/tui"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Launch the interactive status preview",
	Long: `Launch the terminal preview of the desktop configuration.

The preview shows the status line published by deskrcd, or a local sample
when the daemon is not running, together with the configuration generation
and output layout. It follows the daemon's state file as it changes.

Key bindings:
  tab         Switch between status and bindings
  j/k, ↑/↓    Scroll / navigate
  /           Filter bindings
  c           Copy the status line to the clipboard
  r           Reload the daemon state
  ?           Show help
  q           Quit`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	s, err := newHeadless(getConfig(), nil, nil)
	if err != nil {
		return err
	}

	if !isTerminal(os.Stdout) {
		return fmt.Errorf("preview needs a terminal; use 'deskrc status' instead")
	}

	return tui.Run(tui.RunOptions{
		Config:    getConfig(),
		StatePath: globalOpts.statePath,
		Bindings:  s.bindingRows(),
		Logger:    logger,
	})
}
