package cli

import (
	"github.com/spf13/cobra"

	"github.com/lazypower/nanobrain/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "nanobrain",
	Short:        "A tiny per-user brain that learns from conversation",
	Long:         "nanobrain keeps one small word and letter graph per user, learns from every message, and replies by walking it.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./nanobrain.yaml or ~/.nanobrain/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(teachCmd)
	rootCmd.AddCommand(toneCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
