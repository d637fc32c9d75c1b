package cmd

import (
	"fmt"

	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/ui"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show display engine information",
	Long: `Query the display engine for its interface version, the screen size and
the framebuffer console layer handle.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("dry-run", false, "Answer requests from a simulated driver")
}

func runInfo(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	cfg := config.Get()
	s := newSession(cfg, dryRun)
	out := cmd.OutOrStdout()

	t, err := s.dial(cfg.Display.DispDevice)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.Display.DispDevice, err)
	}
	defer t.Close()

	fmt.Fprintln(out, ui.FormatHeader("Display engine"))
	fmt.Fprintln(out, ui.FormatKV("Device", cfg.Display.DispDevice))

	ver := int32(disp.Version)
	if _, err := t.Do(disp.Request{Cmd: disp.CmdVersion, Payload: &ver, Direct: true}); err != nil {
		fmt.Fprintln(out, ui.FormatStep(false, "version", err.Error()))
		return fmt.Errorf("driver does not speak disp %d.%d: %w", disp.Version>>16, disp.Version&0xffff, err)
	}
	fmt.Fprintln(out, ui.FormatKV("Interface", fmt.Sprintf("%d.%d", disp.Version>>16, disp.Version&0xffff)))

	width, err := t.Do(disp.ScreenRequest(disp.CmdScnGetWidth, 0))
	if err != nil {
		return fmt.Errorf("screen width: %w", err)
	}
	height, err := t.Do(disp.ScreenRequest(disp.CmdScnGetHeight, 0))
	if err != nil {
		return fmt.Errorf("screen height: %w", err)
	}
	fmt.Fprintln(out, ui.FormatKV("Screen", fmt.Sprintf("%dx%d", width, height)))

	fb, err := s.dial(cfg.Display.FBDevice)
	if err != nil {
		fmt.Fprintln(out, ui.FormatWarning(fmt.Sprintf("framebuffer %s: %v", cfg.Display.FBDevice, err)))
	} else {
		defer fb.Close()
		var fbLayer int32
		if _, err := fb.Do(disp.Request{Cmd: disp.FBIOGetLayerHdl0, Payload: &fbLayer, Direct: true}); err != nil {
			fmt.Fprintln(out, ui.FormatWarning(fmt.Sprintf("framebuffer layer: %v", err)))
		} else {
			fmt.Fprintln(out, ui.FormatKV("Console layer", fmt.Sprintf("%#x", fbLayer)))
		}
	}

	fmt.Fprintln(out, ui.FormatHex("Phys offset", cfg.Display.PhysOffset))
	fmt.Fprintln(out, ui.FormatKV("OSD", cfg.Display.OSD))
	fmt.Fprintln(out, ui.FormatKV("Best effort", cfg.Display.BestEffort))

	s.trace(out)
	return nil
}
