package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Migrate(); err != nil {
				return err
			}
			fmt.Println("✅ Schema is up to date")
			return nil
		})
	},
}
