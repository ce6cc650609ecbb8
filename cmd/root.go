// Package cmd implements the pixeltunes command line.
//
// Build:
//
//	go build -o build/pixeltunes .
//
// Run:
//
//	./build/pixeltunes serve --addr :8080
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/pixeltunes/internal/app"
	"github.com/tejashwikalptaru/pixeltunes/internal/config"
)

var (
	// global flags
	configPath string
	logLevel   string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pixeltunes",
		Short: "retro music player core with synchronized lyrics",
		Long: `pixeltunes searches a remote music catalogue, keeps a local upload library
and favorites, and drives playback with synchronized lyrics for browser clients.`,
		Version:       app.GetVersionInfo().Release(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default: $XDG_CONFIG_HOME/pixeltunes/config.toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(), newSearchCmd(), newImportCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return app.NewLogger(cfg.Log)
}
