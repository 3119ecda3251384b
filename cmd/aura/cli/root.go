package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	databaseURL string
	verbose     bool
	jsonLogs    bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "aura",
	Short: "Aura shopping assistant durable core",
	Long: `Aura manages the durable state behind the shopping assistant:
agent conversation checkpoints, reference embeddings, and configuration.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (.yaml or .json)")
	RootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database URL (overrides config file and DATABASE_URL)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "JSON log output")
}
