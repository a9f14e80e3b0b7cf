package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/config"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/ui"
)

var collectionsCmd = &cobra.Command{
	Use:               "collections",
	Short:             "Show the configured collections and globals",
	Long:              "Show the schema loaded from CATALOG_SCHEMA_FILE, or the built-in schema.",
	GroupID:           "documents",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		reg, err := loadSchema(cfg)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{
				"collections": reg.Collections(),
				"globals":     reg.Globals(),
			})
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, ui.RenderAccent("Collections:"))
		for _, c := range reg.Collections() {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", ui.RenderCommand(c.Slug), collectionTraits(c), fieldNames(c.Fields))
		}
		fmt.Fprintln(tw, ui.RenderAccent("Globals:"))
		for _, g := range reg.Globals() {
			fmt.Fprintf(tw, "  %s\t\t%s\n", ui.RenderCommand(g.Slug), fieldNames(g.Fields))
		}
		return tw.Flush()
	},
}

func collectionTraits(c *schema.Collection) string {
	var t []string
	if c.Auth {
		t = append(t, "auth")
	}
	if c.Upload != nil {
		t = append(t, "upload")
	}
	return ui.RenderMuted(strings.Join(t, ","))
}

func fieldNames(fields []schema.Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Hidden {
			continue
		}
		n := f.Name
		if f.Required {
			n += "*"
		}
		names = append(names, n)
	}
	return strings.Join(names, " ")
}
