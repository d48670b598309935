package main

import (
	"fmt"
	"os"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var configPath string

// rootCmd is the base command for the valuebet CLI
var rootCmd = &cobra.Command{
	Use:   "valuebet",
	Short: "Football match predictions and value bet detection",
	Long: `valuebet combines a form heuristic, a Poisson goals model and an expected goals model
into one prediction per match and compares it with bookmaker odds to find value bets.

Run 'valuebet serve' to expose the tools over JSON-RPC on stdio, or use the
subcommands directly from a shell.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("VALUEBET_CONFIG"), "Path to the YAML configuration file")
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
