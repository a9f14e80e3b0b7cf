package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:               "seed",
	Short:             "Load starter content into an empty database",
	Long:              "Load the starter admin user, globals, home page, products and components.\nDoes nothing when the pages collection already has documents.",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		email, _ := cmd.Flags().GetString("admin-email")
		password, _ := cmd.Flags().GetString("admin-password")

		cfg, docs, st, err := openDocs(logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("CATALOG_DATABASE_URL is required (use serve --seed for the in-memory store)")
		}

		sum, err := seed.Run(context.Background(), docs, seed.Options{
			AdminEmail:    email,
			AdminPassword: password,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		if jsonOutput {
			return printJSON(sum)
		}
		if sum.Skipped {
			fmt.Println("Database already seeded, skipping")
			return nil
		}
		fmt.Printf("Seeded %d products, %d components, %d pages and %d globals\n",
			sum.Products, sum.Components, sum.Pages, sum.Globals)
		fmt.Printf("Admin login: %s\n", email)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("admin-email", seed.DefaultAdminEmail, "email of the seeded admin user")
	seedCmd.Flags().String("admin-password", seed.DefaultAdminPassword, "password of the seeded admin user")
}
