package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/alfredjeanlab/catalog/internal/store"
	"github.com/alfredjeanlab/catalog/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

// titleKeys are tried in order to label a document in tables.
var titleKeys = []string{"title", "name", "email", "filename", "slug"}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func titleOf(doc *store.Document) string {
	for _, k := range titleKeys {
		if s, ok := doc.Data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func printDocument(w io.Writer, doc *store.Document) {
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("ID:"), doc.ID)
	if doc.Collection != "" {
		fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("Collection:"), doc.Collection)
	}
	printData(w, doc.Data)
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("Created:"), ui.RenderMuted(doc.CreatedAt.Local().Format(timeLayout)))
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("Updated:"), ui.RenderMuted(doc.UpdatedAt.Local().Format(timeLayout)))
}

func printGlobal(w io.Writer, g *store.GlobalDoc) {
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("Global:"), g.Slug)
	printData(w, g.Data)
	if !g.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "%s %s\n", ui.RenderAccent("Updated:"), ui.RenderMuted(g.UpdatedAt.Local().Format(timeLayout)))
	}
}

// printData writes each field on its own line, sorted by key. Nested
// values are rendered as compact JSON.
func printData(w io.Writer, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, formatValue(data[k]))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ui.RenderMuted("null")
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func printResultTable(w io.Writer, res *store.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	for _, d := range res.Docs {
		title := titleOf(d)
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, title, d.UpdatedAt.Local().Format(timeLayout))
	}
	tw.Flush()
	if res.TotalDocs == 0 {
		fmt.Fprintln(w, ui.RenderMuted("\nno documents"))
		return
	}
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("\npage %d of %d, %d documents total", res.Page, res.TotalPages, res.TotalDocs)))
}

