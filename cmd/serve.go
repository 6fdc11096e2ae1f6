package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.RunServer(ctx)
		})
	},
}
