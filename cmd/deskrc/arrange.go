package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/deskrc/internal/arrange"
	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/host/memhost"
)

var arrangeOpts struct {
	leftSize  string
	rightSize string
	steps     int
}

var arrangeCmd = &cobra.Command{
	Use:   "arrange",
	Short: "Preview the output layout for given monitor sizes",
	Long: `Compute where the configured left and right outputs are placed for the
given resolutions. --steps applies that many scale-up (positive) or
scale-down (negative) steps to the scaled output first, as the scale key
bindings would.

Example:
  deskrc arrange --left 2880x1800 --right 3840x2160 --steps -1`,
	RunE: runArrange,
}

func init() {
	rootCmd.AddCommand(arrangeCmd)

	arrangeCmd.Flags().StringVar(&arrangeOpts.leftSize, "left", "1920x1080",
		"Resolution of the left output, WIDTHxHEIGHT")
	arrangeCmd.Flags().StringVar(&arrangeOpts.rightSize, "right", "2560x1440",
		"Resolution of the right output, WIDTHxHEIGHT")
	arrangeCmd.Flags().IntVar(&arrangeOpts.steps, "steps", 0,
		"Scale steps to apply to the scaled output")
}

func runArrange(cmd *cobra.Command, args []string) error {
	c := getConfig()
	left, err := parseOutputSpec(c.Outputs.Left + "=" + arrangeOpts.leftSize)
	if err != nil {
		return err
	}
	right, err := parseOutputSpec(c.Outputs.Right + "=" + arrangeOpts.rightSize)
	if err != nil {
		return err
	}
	return writeArrangement(cmd.OutOrStdout(), c, left, right, arrangeOpts.steps)
}

// writeArrangement lays out left and right the way deskrcd would and
// prints the result.
func writeArrangement(w io.Writer, c *config.Config, left, right outputSpec, steps int) error {
	h := memhost.New()
	h.AddConnector(left.Name, left.Width, left.Height)
	h.AddConnector(right.Name, right.Width, right.Height)

	a := arrange.New(h, arrange.Options{
		Left:   c.Outputs.Left,
		Right:  c.Outputs.Right,
		Scaled: c.ScaledOutput(),
		Step:   c.Outputs.ScaleStep,
	}, logger)
	a.Install(h)
	h.Connect(left.Name, left.Width, left.Height)
	h.Connect(right.Name, right.Width, right.Height)

	for i := 0; i < abs(steps); i++ {
		if steps > 0 {
			a.ScaleBy(a.Step())
		} else {
			a.ScaleBy(-a.Step())
		}
	}

	for _, name := range []string{left.Name, right.Name} {
		conn := h.ConnectorByName(name)
		x, y := conn.Position()
		if _, err := fmt.Fprintf(w, "%-12s %dx%d at %d,%d scale %.2f\n",
			name, conn.Width(), conn.Height(), x, y, conn.Scale()); err != nil {
			return err
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
