package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/prinde/internal/app"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print active job progress in the terminal",
	Long:  `Connects to the engine's push channel and prints the active job list every time it changes.`,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	unsubscribe := application.Tracker.Subscribe(func(change jobs.Change) {
		printJobs(out, change)
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Start(ctx)
	<-ctx.Done()
	return nil
}

func printJobs(out io.Writer, change jobs.Change) {
	fmt.Fprintf(out, "-- revision %d (%s), %d active\n", change.Revision, change.Kind, change.Jobs.Len())
	for id, node := range change.Jobs.All() {
		printJob(out, "", id, node)
		for subID, sub := range node.SubJobs.All() {
			printJob(out, "    ", subID, sub)
		}
	}
}

func printJob(out io.Writer, indent, id string, node *models.JobViewNode) {
	name := node.Job.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(out, "%s%-8s %-30s %-9s %6.1f%%\n", indent, id, name, node.Status.Text, node.PercCompleted)
}
