package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bov-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "bov",
	Short:        "Broker opinion of value toolkit",
	Long:         "Geocodes the addresses in a BOV data file, renders the data file into an HTML page, and keeps a history of geocode runs.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it only supplies API keys for the environment.
		_ = godotenv.Load(".env")

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
