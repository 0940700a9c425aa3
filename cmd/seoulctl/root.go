package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/pkg/logger"
)

var (
	apiURL   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "seoulctl",
	Short: "Admin tool for Seoul Location Services",
	Long: `
seoulctl runs proximity searches against the configured database and cache,
inspects and drops cached results, and publishes source refresh events the
way the ETL collectors do.

Configuration comes from the same .env file and environment as the API.
`,
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "base URL of a running API, for commands that read its process state")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for in-process commands")

	rootCmd.AddCommand(searchCmd, cacheCmd, eventsCmd)
}

// bootstrap loads configuration and a logger quiet enough for terminal output.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
