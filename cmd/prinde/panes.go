package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ternarybob/prinde/internal/app"
	"github.com/ternarybob/prinde/internal/views"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the engine configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := app.NewGateway(config, logger)
		if err != nil {
			return err
		}
		raw, err := gw.Config(cmd.Context())
		if err != nil {
			return err
		}
		pane, err := views.FlattenConfig(raw)
		if err != nil {
			return err
		}
		for pair := pane.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", pair.Key, pair.Value)
		}
		return nil
	},
}

var forecastsCmd = &cobra.Command{
	Use:   "forecasts",
	Short: "Show forecasts grouped by file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := app.NewGateway(config, logger)
		if err != nil {
			return err
		}
		raw, err := gw.Forecasts(cmd.Context())
		if err != nil {
			return err
		}
		groups, err := views.GroupForecasts(raw)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), groups)
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show weather data indexed by value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := app.NewGateway(config, logger)
		if err != nil {
			return err
		}
		raw, err := gw.WeatherData(cmd.Context())
		if err != nil {
			return err
		}
		index, err := views.InvertWeather(raw)
		if err != nil {
			return err
		}
		for pair := index.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", pair.Key, pair.Value)
		}
		return nil
	},
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
