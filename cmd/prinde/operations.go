package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/prinde/internal/app"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/services/confirm"
)

// assumeYes skips the confirmation prompt.
var assumeYes bool

var runNowCmd = &cobra.Command{
	Use:   "run-now <job-id>",
	Short: "Run a job immediately",
	Args:  cobra.ExactArgs(1),
	RunE: confirmed(func(a *confirm.Actions, args []string) confirm.Action {
		return a.RunNow(args[0])
	}),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	RunE: confirmed(func(a *confirm.Actions, args []string) confirm.Action {
		return a.Cancel(args[0])
	}),
}

var reloadConfigCmd = &cobra.Command{
	Use:   "reload-config",
	Short: "Reload the engine configuration",
	Long:  `Starts a configuration reload on the engine and prints the path of the reload job.`,
	Args:  cobra.NoArgs,
	RunE: confirmed(func(a *confirm.Actions, args []string) confirm.Action {
		return a.ReloadConfig()
	}),
}

var reloadForecastCmd = &cobra.Command{
	Use:   "reload-forecast <file>",
	Short: "Reload one forecast file",
	Args:  cobra.ExactArgs(1),
	RunE: confirmed(func(a *confirm.Actions, args []string) confirm.Action {
		return a.ReloadForecast(args[0])
	}),
}

var addDateCmd = &cobra.Command{
	Use:   "add-date <file> <YYYY-MM-DD>",
	Short: "Add a run date to a forecast file",
	Args: cobra.MatchAll(cobra.ExactArgs(2), func(cmd *cobra.Command, args []string) error {
		if err := common.NewValidator().Var(args[1], "required,datetime=2006-01-02"); err != nil {
			return fmt.Errorf("date %q must be formatted YYYY-MM-DD", args[1])
		}
		return nil
	}),
	RunE: confirmed(func(a *confirm.Actions, args []string) confirm.Action {
		return a.AddForecastDate(args[0], args[1])
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{runNowCmd, cancelCmd, reloadConfigCmd, reloadForecastCmd, addDateCmd} {
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	}
}

// confirmed builds a command that asks before running the action and prints
// where the views go next.
func confirmed(build func(*confirm.Actions, []string) confirm.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		gw, err := app.NewGateway(config, logger)
		if err != nil {
			return err
		}
		svc := confirm.NewService(logger, common.ParseDurationOr(config.Confirm.TTL, confirm.DefaultTTL))
		action := build(confirm.NewActions(svc, gw), args)

		ctx, cancel := context.WithTimeout(cmd.Context(), common.ParseDurationOr(config.Gateway.Timeout, 30*time.Second))
		defer cancel()

		var result confirm.Result
		if assumeYes {
			result, err = svc.Accept(ctx, action.ID)
		} else {
			var ran bool
			result, ran, err = confirm.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Resolve(ctx, svc, action)
			if err == nil && !ran {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
				return nil
			}
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", result.Navigate)
		return nil
	}
}
