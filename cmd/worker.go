package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job worker",
	Long: `Runs queued generation jobs. Uses the Temporal worker when TEMPORAL_ADDRESS
is set and the in-process polling worker otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.RunWorker(ctx)
		})
	},
}
