package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var globalCmd = &cobra.Command{
	Use:     "global",
	Short:   "Read or write a global",
	GroupID: "documents",
}

var globalGetCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Show a global",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := apiClient.GetGlobal(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting global %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(g)
		}
		printGlobal(os.Stdout, g)
		return nil
	},
}

var globalSetCmd = &cobra.Command{
	Use:   "set <slug> [key=value...]",
	Short: "Update a global",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		body, err := parseFields(data, args[1:], os.Stdin)
		if err != nil {
			return err
		}
		g, err := apiClient.SetGlobal(context.Background(), args[0], body)
		if err != nil {
			return fmt.Errorf("updating global %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(g)
		}
		fmt.Printf("Updated global %s\n", g.Slug)
		return nil
	},
}

func init() {
	globalSetCmd.Flags().String("data", "", "JSON object body, or - to read stdin")
	globalCmd.AddCommand(globalGetCmd, globalSetCmd)
}
