package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/keymap"
)

var configInitOpts struct {
	force bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the configuration file",
	// The subcommands load (or refuse to load) the file themselves.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and keymap",
	Long: `Load the configuration file, validate it, load its keymap and install the
whole configuration on an in-memory compositor. Exits non-zero and explains
the first problem found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkConfig(cmd.OutOrStdout(), configPath())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configPath())
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.OutOrStdout(), configPath(), configInitOpts.force)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd, configPathCmd, configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitOpts.force, "force", false,
		"Overwrite an existing configuration file")
}

// checkConfig validates the file at path end to end.
func checkConfig(w io.Writer, path string) error {
	c, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	km, err := keymap.Load(c.Seat.Keymap)
	if err != nil {
		return err
	}
	s, err := newHeadless(c, nil, nil)
	if err != nil {
		return err
	}

	source := "defaults (no file)"
	if _, err := os.Stat(path); err == nil {
		source = path
	}
	_, err = fmt.Fprintf(w, "ok: %s\n  keymap:   %s\n  bindings: %d\n  seat:     %s\n  outputs:  %s | %s\n",
		source, km.Name, s.daemon.Table().Len(), c.Seat.Name, c.Outputs.Left, c.Outputs.Right)
	return err
}

// initConfig writes the default configuration to path.
func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	_, err := fmt.Fprintf(w, "wrote %s\n", path)
	return err
}
