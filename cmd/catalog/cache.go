package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/client"
	"github.com/alfredjeanlab/catalog/internal/ui"
)

var revalidateCmd = &cobra.Command{
	Use:     "revalidate <collection> [operation]",
	Short:   "Drop cached reads for a collection",
	Long:    "Report a change to a collection so the server drops the cache tags it maps to.\nWith --tag and --transport grpc, drop the named tags directly.",
	GroupID: "cache",
	Args:    cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, _ := cmd.Flags().GetStringArray("tag")
		ctx := context.Background()

		var (
			resp *client.RevalidateResponse
			err  error
		)
		switch {
		case len(tags) > 0:
			g, ok := cacheClient.(*client.GRPCClient)
			if !ok {
				return fmt.Errorf("--tag requires --transport grpc")
			}
			resp, err = g.InvalidateTags(ctx, tags...)
		case len(args) == 0:
			return fmt.Errorf("collection is required")
		default:
			op := "update"
			if len(args) == 2 {
				op = args[1]
			}
			resp, err = cacheClient.Revalidate(ctx, args[0], op)
		}
		if err != nil {
			return fmt.Errorf("revalidating: %w", err)
		}

		if jsonOutput {
			return printJSON(resp)
		}
		fmt.Printf("Revalidated %s\n", ui.RenderStatus(describeRevalidate(resp, tags), resp.Revalidated))
		return nil
	},
}

func describeRevalidate(resp *client.RevalidateResponse, tags []string) string {
	if len(tags) > 0 {
		return fmt.Sprintf("tags %v", resp.Tags)
	}
	if len(resp.Tags) > 0 {
		return fmt.Sprintf("%s (%s) tags %v", resp.Collection, resp.Operation, resp.Tags)
	}
	return fmt.Sprintf("%s (%s)", resp.Collection, resp.Operation)
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show cache statistics",
	GroupID: "cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := cacheClient.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("fetching stats: %w", err)
		}
		if jsonOutput {
			return printJSON(stats)
		}
		flat := flattenStats("", stats)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, flat[k])
		}
		return tw.Flush()
	},
}

// flattenStats joins nested keys with dots so the HTTP shape
// ({"cache": {...}}) and the gRPC shape (flat) print alike.
func flattenStats(prefix string, m map[string]any) map[string]string {
	out := map[string]string{}
	for k, v := range m {
		key := k
		if prefix != "" && prefix != "cache" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flattenStats(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = formatValue(v)
	}
	return out
}

func init() {
	revalidateCmd.Flags().StringArray("tag", nil, "cache tag to drop directly (gRPC only, repeatable)")
}
