package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	baseURL    string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "credflow",
	Short: "credflow - multi-step sign-in and verification client",
	Long: `credflow walks through a sign-in flow step by step: credentials, PIN and
one-time codes. Each step is validated locally and then posted to the
configured verification service.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the verification service (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging and HTTP tracing")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
