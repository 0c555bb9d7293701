package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - stock market breadth and analytics service",
	Long: `Pulse aggregates US stock market breadth, sector rotation, and
screener statistics behind a JSON API, with cached daily history and
AI-generated market summaries.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	// Missing .env is fine; config and real env still apply.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
