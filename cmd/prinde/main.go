package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
)

var (
	// Command-line flags
	configFiles []string // later files override earlier ones
	serverPort  int
	serverHost  string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "prinde",
	Short: "Live dashboard for a job engine",
	Long: `Prinde follows a job engine's push channel and serves live views of its
active jobs, job queue, system log, configuration, forecasts and weather data.
Without a subcommand it starts the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, TOML or YAML)")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")

	rootCmd.AddCommand(serveCmd, watchCmd, versionCmd)
	rootCmd.AddCommand(runNowCmd, cancelCmd, reloadConfigCmd, reloadForecastCmd, addDateCmd)
	rootCmd.AddCommand(configCmd, forecastsCmd, weatherCmd)
}

func main() {
	common.LoadVersionFromFile()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Validate
// 4. Initialize logger
func loadConfig(cmd *cobra.Command, args []string) error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		for _, candidate := range []string{"prinde.toml", "prinde.yaml", "deployments/local/prinde.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("event_source", config.EventSource.URL).
		Str("gateway", config.Gateway.BaseURL).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration")

	return nil
}
