package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the catalog server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := cacheClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		ok := healthy(status)
		if jsonOutput {
			if err := printJSON(map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Printf("Health: %s\n", ui.RenderStatus(status, ok))
		}

		if !ok {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

// healthy accepts the HTTP ("success") and gRPC ("SERVING") status strings.
func healthy(status string) bool {
	return status == "success" || status == "SERVING"
}
