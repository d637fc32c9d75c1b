package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/display"
	"github.com/bnema/cedardisp/internal/ui"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check device nodes and choose the display backend",
	Long: `Check which display engine device nodes are present and walk through the
display settings. The answers are written to the configuration file.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// nodeStatus reports whether path exists and is readable and writable
func nodeStatus(path string) (bool, string) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "not present"
		}
		if os.IsPermission(err) {
			return false, "permission denied, run as root or join the video group"
		}
		return false, err.Error()
	}
	f.Close()
	return true, ""
}

func runSetup(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get().Display

	fmt.Fprintln(out, ui.FormatHeader("cedardisp setup"))
	dispOK := false
	for _, path := range []string{cfg.DispDevice, cfg.FBDevice, cfg.G2DDevice} {
		ok, msg := nodeStatus(path)
		if path == cfg.DispDevice {
			dispOK = ok
		}
		fmt.Fprintln(out, ui.FormatStep(ok, path, msg))
	}
	if !dispOK {
		fmt.Fprintln(out, ui.FormatWarning("no usable display engine, the x11 backend will be used"))
	}
	fmt.Fprintln(out)

	colorKey := fmt.Sprintf("%06x", cfg.ColorKey)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Display backend").
				Description("auto tries the display engine first, then X11").
				Options(
					huh.NewOption("auto", display.BackendAuto),
					huh.NewOption("disp0 (sunxi display engine)", display.BackendDisp0),
					huh.NewOption("x11 (software)", display.BackendX11),
				).
				Value(&cfg.Backend),
			huh.NewInput().
				Title("Display engine device").
				Value(&cfg.DispDevice),
			huh.NewInput().
				Title("Framebuffer device").
				Value(&cfg.FBDevice),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the OSD layer?").
				Description("Needs the G2D device").
				Value(&cfg.OSD),
			huh.NewInput().
				Title("G2D device").
				Value(&cfg.G2DDevice),
			huh.NewInput().
				Title("Colour key (RRGGBB)").
				Value(&colorKey).
				Validate(func(s string) error {
					_, err := strconv.ParseUint(s, 16, 24)
					return err
				}),
			huh.NewConfirm().
				Title("Best effort mode?").
				Description("Log driver errors instead of failing").
				Value(&cfg.BestEffort),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	key, err := strconv.ParseUint(colorKey, 16, 24)
	if err != nil {
		return fmt.Errorf("colour key %q: %w", colorKey, err)
	}
	cfg.ColorKey = uint32(key)

	if err := config.UpdateDisplay(cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.FormatStep(true, "configuration saved", config.GetConfigPath()))
	return nil
}
