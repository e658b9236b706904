package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/snapframe/internal/config"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "snapframe",
		Short: "snapframe - screenshot capture and annotation",
		Long: `snapframe captures screenshots and composites them onto padded,
rounded, shadowed backgrounds with vector annotations on top.

Features:
  • Capture a region, the full screen or a single window (X11 or portal)
  • Gradient and image backgrounds, padding, corner radius and drop shadow
  • Arrows, rectangles, ellipses, lines and text annotations
  • Crop with aspect ratio presets
  • Export to PNG, JPEG or WebP, or copy to the clipboard
  • YAML recipes for scripted renders
  • REST API with a live preview stream`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/snapframe/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", true, "human-readable console logs")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.SetEnvPrefix("snapframe")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// initLogger sets up logging before the config is read, so flag and
// environment overrides apply to config loading too
func initLogger() {
	level := viper.GetString("log_level")
	if level == "" {
		level = "info"
	}
	logger.Init(level, viper.GetBool("pretty"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config manager and applies flag overrides for this
// run without persisting them
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()
	if port := viper.GetInt("server_port"); port > 0 {
		cfg.ServerPort = port
	}
	if level := viper.GetString("log_level"); level != "" {
		if !logger.ValidLevel(level) {
			return nil, nil, fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", level)
		}
		cfg.LogLevel = level
	}
	logger.Init(cfg.LogLevel, viper.GetBool("pretty"))
	return configMgr, cfg, nil
}
