package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/client"
)

var listCmd = &cobra.Command{
	Use:     "list <collection>",
	Short:   "List documents in a collection",
	GroupID: "documents",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		sort, _ := cmd.Flags().GetString("sort")
		whereFlags, _ := cmd.Flags().GetStringArray("where")

		where, err := parseWhere(whereFlags)
		if err != nil {
			return err
		}
		res, err := apiClient.List(context.Background(), args[0], &client.ListRequest{
			Page:  page,
			Limit: limit,
			Sort:  sort,
			Where: where,
		})
		if err != nil {
			return fmt.Errorf("listing %s: %w", args[0], err)
		}

		if jsonOutput {
			return printJSON(res)
		}
		printResultTable(os.Stdout, res)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:     "get <collection> <id>",
	Short:   "Show a document",
	GroupID: "documents",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := apiClient.Get(context.Background(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("getting %s/%s: %w", args[0], args[1], err)
		}
		if jsonOutput {
			return printJSON(doc)
		}
		printDocument(os.Stdout, doc)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:     "create <collection> [key=value...]",
	Short:   "Create a document",
	GroupID: "documents",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		body, err := parseFields(data, args[1:], os.Stdin)
		if err != nil {
			return err
		}
		doc, err := apiClient.Create(context.Background(), args[0], body)
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(doc)
		}
		fmt.Printf("Created %s/%s\n", args[0], doc.ID)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <collection> <id> [key=value...]",
	Short:   "Update a document",
	Long:    "Update a document. Empty values are ignored; use key=null to clear a field.",
	GroupID: "documents",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		body, err := parseFields(data, args[2:], os.Stdin)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return fmt.Errorf("nothing to update")
		}
		doc, err := apiClient.Update(context.Background(), args[0], args[1], body)
		if err != nil {
			return fmt.Errorf("updating %s/%s: %w", args[0], args[1], err)
		}
		if jsonOutput {
			return printJSON(doc)
		}
		fmt.Printf("Updated %s/%s\n", args[0], doc.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <collection> <id>...",
	Short:   "Delete one or more documents",
	GroupID: "documents",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args[1:] {
			if err := apiClient.Delete(context.Background(), args[0], id); err != nil {
				return fmt.Errorf("deleting %s/%s: %w", args[0], id, err)
			}
			fmt.Printf("Deleted %s/%s\n", args[0], id)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("limit", 20, "documents per page (max 100)")
	listCmd.Flags().String("sort", "", "sort field, prefix with - for descending")
	listCmd.Flags().StringArrayP("where", "w", nil, "filter by field (key=value, repeatable)")

	createCmd.Flags().String("data", "", "JSON object body, or - to read stdin")
	updateCmd.Flags().String("data", "", "JSON object body, or - to read stdin")
}
