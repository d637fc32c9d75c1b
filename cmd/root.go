package cmd

import (
	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "cedardisp",
		Short: "cedardisp - video overlay presentation for sunxi display engines",
		Long: `cedardisp drives the hardware video overlay of Allwinner (sunxi) display
engines. Decoded pictures are handed to a scaler layer through the disp 1.x
ioctl interface, with an X11 software fallback when the engine is absent.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is the first cedardisp.toml found)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}

	// --log-level beats the config file, which beats LOG_LEVEL
	switch {
	case logLevel != "":
		return logger.SetLevel(logLevel)
	case config.Get().Logging.LogLevel != "":
		return logger.SetLevel(config.Get().Logging.LogLevel)
	}
	return nil
}
