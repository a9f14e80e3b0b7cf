package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/ui"
)

var (
	// Unindented "Documents:", "Flags:" etc. "Usage:" is left plain.
	reSection = regexp.MustCompile(`(?m)^([A-Z][A-Za-z ]*:)[ \t]*$`)
	// Two-space indented command name followed by its description.
	reSubcommand = regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(\s{2,})`)
	// Flag value types such as "--limit int".
	reValueType = regexp.MustCompile(`(--[\w-]+ )(string|int|bool|duration|stringArray)\b`)
	reDefault   = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text and styles it when stdout
// supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		text := buf.String()
		if ui.ShouldUseColor(out) {
			ui.SetColor(true)
			text = styleHelp(text)
		}
		fmt.Fprint(out, text)
	}
}

func styleHelp(s string) string {
	s = reSection.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "Usage:") {
			return m
		}
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	s = reSubcommand.ReplaceAllString(s, "${1}"+ui.RenderCommand("${2}")+"${3}")
	s = reValueType.ReplaceAllString(s, "${1}"+ui.RenderMuted("${2}"))
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
