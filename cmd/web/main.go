package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "web",
	Short: "Showcase marketing site: landing experiments, signup and webinar registration",
	Long: `web serves the localized marketing site. It resolves the landing page
experiment, records analytics to the configured sinks and creates accounts
with the configured auth provider.

Running without a subcommand starts the server (same as 'web serve').`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged under the process environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
