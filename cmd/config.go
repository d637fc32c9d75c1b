package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cedardisp configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("Current configuration"))
		fmt.Fprintln(out, ui.FormatKV("Config file", config.GetConfigPath()))

		fmt.Fprintln(out, ui.FormatSection("display"))
		fmt.Fprintln(out, ui.FormatKV("Backend", cfg.Display.Backend))
		fmt.Fprintln(out, ui.FormatKV("Disp device", cfg.Display.DispDevice))
		fmt.Fprintln(out, ui.FormatKV("FB device", cfg.Display.FBDevice))
		fmt.Fprintln(out, ui.FormatKV("G2D device", cfg.Display.G2DDevice))
		fmt.Fprintln(out, ui.FormatKV("OSD", cfg.Display.OSD))
		fmt.Fprintln(out, ui.FormatHex("Phys offset", cfg.Display.PhysOffset))
		fmt.Fprintln(out, ui.FormatKV("Best effort", cfg.Display.BestEffort))
		fmt.Fprintln(out, ui.FormatKV("Colour key", fmt.Sprintf("#%06x", cfg.Display.ColorKey)))

		fmt.Fprintln(out, ui.FormatSection("x11"))
		fmt.Fprintln(out, ui.FormatKV("Display", cfg.X11.Display))

		fmt.Fprintln(out, ui.FormatSection("registry"))
		fmt.Fprintln(out, ui.FormatKV("Capacity", cfg.Registry.Capacity))

		fmt.Fprintln(out, ui.FormatSection("pool"))
		fmt.Fprintln(out, ui.FormatHex("Base", cfg.Pool.Base))
		fmt.Fprintln(out, ui.FormatKV("Size", cfg.Pool.Size))

		fmt.Fprintln(out, ui.FormatSection("logging"))
		fmt.Fprintln(out, ui.FormatKV("Log level", cfg.Logging.LogLevel))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if config already exists
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("You can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'cedardisp setup' to pick the display backend")
		logger.Info("  - Use 'cedardisp config show' to view current settings")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
}
