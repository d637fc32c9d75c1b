// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Display path configuration
	Display DisplayConfig `mapstructure:"display"`

	// X11 window system access
	X11 X11Config `mapstructure:"x11"`

	// Handle table sizing
	Registry RegistryConfig `mapstructure:"registry"`

	// Decoder buffer pool
	Pool PoolConfig `mapstructure:"pool"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DisplayConfig selects the display backend and its device nodes
type DisplayConfig struct {
	Backend    string `mapstructure:"backend"`     // auto, disp0 or x11
	DispDevice string `mapstructure:"disp_device"` // sunxi display engine node
	FBDevice   string `mapstructure:"fb_device"`   // framebuffer console node
	G2DDevice  string `mapstructure:"g2d_device"`  // 2D engine node, required for the OSD layer
	OSD        bool   `mapstructure:"osd"`         // Also enabled by VDPAU_OSD=1
	PhysOffset uint32 `mapstructure:"phys_offset"` // Added to allocator addresses
	BestEffort bool   `mapstructure:"best_effort"` // Log driver errors instead of failing
	ColorKey   uint32 `mapstructure:"colorkey"`    // 0xRRGGBB the overlay is keyed against
}

// X11Config contains window system settings
type X11Config struct {
	Display string `mapstructure:"display"`
}

// RegistryConfig sizes the handle table
type RegistryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// PoolConfig describes the physically contiguous region test surfaces are
// allocated from
type PoolConfig struct {
	Base uint32 `mapstructure:"base"`
	Size int    `mapstructure:"size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Backend:    "auto",
			DispDevice: "/dev/disp",
			FBDevice:   "/dev/fb0",
			G2DDevice:  "/dev/g2d",
			OSD:        false,
			PhysOffset: 0x40000000,
			BestEffort: false,
			ColorKey:   0x000102,
		},
		X11: X11Config{
			Display: os.Getenv("DISPLAY"),
		},
		Registry: RegistryConfig{
			Capacity: 4096,
		},
		Pool: PoolConfig{
			Base: 0x10000000,
			Size: 16 << 20,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	// Set config name and type
	viper.SetConfigName("cedardisp")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		// Add config paths in order of precedence
		viper.AddConfigPath("/etc/cedardisp") // System config directory (primary)

		// If running with sudo, try the real user's config
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/cedardisp", sudoUser))
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "cedardisp"))
		}

		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("display.backend", DefaultConfig.Display.Backend)
	viper.SetDefault("display.disp_device", DefaultConfig.Display.DispDevice)
	viper.SetDefault("display.fb_device", DefaultConfig.Display.FBDevice)
	viper.SetDefault("display.g2d_device", DefaultConfig.Display.G2DDevice)
	viper.SetDefault("display.osd", DefaultConfig.Display.OSD)
	viper.SetDefault("display.phys_offset", DefaultConfig.Display.PhysOffset)
	viper.SetDefault("display.best_effort", DefaultConfig.Display.BestEffort)
	viper.SetDefault("display.colorkey", DefaultConfig.Display.ColorKey)

	viper.SetDefault("x11.display", DefaultConfig.X11.Display)

	viper.SetDefault("registry.capacity", DefaultConfig.Registry.Capacity)

	viper.SetDefault("pool.base", DefaultConfig.Pool.Base)
	viper.SetDefault("pool.size", DefaultConfig.Pool.Size)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// The legacy switch for the OSD layer
	if err := viper.BindEnv("display.osd", "VDPAU_OSD"); err != nil {
		return fmt.Errorf("binding VDPAU_OSD: %w", err)
	}

	// An explicit path that does not exist yet is created by Save
	if configPathOverride != "" {
		if _, err := os.Stat(configPathOverride); os.IsNotExist(err) {
			cfg = &Config{}
			return viper.Unmarshal(cfg)
		}
	}

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal config
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		// If we can't create it (e.g., /etc/cedardisp needs sudo), provide helpful message
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	// If override is set, use that
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	// Device nodes are root owned, so root gets the system config
	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/cedardisp/cedardisp.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/cedardisp/cedardisp.toml"
	}

	return filepath.Join(home, ".config", "cedardisp", "cedardisp.toml")
}

// UpdateDisplay updates display configuration
func UpdateDisplay(displayCfg DisplayConfig) error {
	// Set keys individually so the TOML writer sees mapstructure names
	viper.Set("display.backend", displayCfg.Backend)
	viper.Set("display.disp_device", displayCfg.DispDevice)
	viper.Set("display.fb_device", displayCfg.FBDevice)
	viper.Set("display.g2d_device", displayCfg.G2DDevice)
	viper.Set("display.osd", displayCfg.OSD)
	viper.Set("display.phys_offset", displayCfg.PhysOffset)
	viper.Set("display.best_effort", displayCfg.BestEffort)
	viper.Set("display.colorkey", displayCfg.ColorKey)
	Get().Display = displayCfg
	return Save()
}
