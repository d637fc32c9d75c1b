package cmd

import (
	"fmt"

	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/ui"
	"github.com/spf13/cobra"
)

var frameIDCmd = &cobra.Command{
	Use:   "frame-id",
	Short: "Print the frame id a scaler layer is scanning out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLayer(cmd, func(l *layer.Layer) error {
			id, err := l.FrameID()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatKV("Frame id", id))
			return nil
		})
	},
}

var closeLayerCmd = &cobra.Command{
	Use:   "close-layer",
	Short: "Stop video and close a scaler layer",
	Long: `Stop the video queue of a scaler layer and close it. Use this to blank an
overlay left behind by a client that exited without cleaning up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLayer(cmd, func(l *layer.Layer) error {
			if err := l.Close(); err != nil {
				return err
			}
			release, _ := cmd.Flags().GetBool("release")
			if release {
				if err := l.Release(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStep(true, fmt.Sprintf("layer %#x closed", l.ID()), ""))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{frameIDCmd, closeLayerCmd} {
		c.Flags().Uint32("layer", 0, "Driver layer handle")
		c.Flags().Uint32("screen", 0, "Screen the layer belongs to")
		c.Flags().Bool("dry-run", false, "Answer requests from a simulated driver and print them")
		_ = c.MarkFlagRequired("layer")
		rootCmd.AddCommand(c)
	}
	closeLayerCmd.Flags().Bool("release", false, "Also hand the layer back to the driver")
}

// withLayer attaches to the layer named by --layer for the duration of fn.
func withLayer(cmd *cobra.Command, fn func(*layer.Layer) error) error {
	id, _ := cmd.Flags().GetUint32("layer")
	screen, _ := cmd.Flags().GetUint32("screen")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if id == 0 {
		return fmt.Errorf("--layer must be a driver layer handle")
	}

	cfg := config.Get()
	s := newSession(cfg, dryRun)
	t, err := s.dial(cfg.Display.DispDevice)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.Display.DispDevice, err)
	}
	defer t.Close()

	err = fn(layer.Attach(t, screen, disp.LayerID(id)))
	s.trace(cmd.OutOrStdout())
	return err
}
