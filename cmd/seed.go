package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/app"
)

var seedMigrate bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the bundled exercise templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if seedMigrate {
				if err := a.Migrate(); err != nil {
					return err
				}
			}
			n, err := a.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Seeded %d exercise templates\n", n)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "run migrations before seeding")
}
