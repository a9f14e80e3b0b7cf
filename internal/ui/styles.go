// Package ui renders ANSI-styled text for the catalog CLI.
package ui

import (
	"fmt"
	"sync/atomic"
)

// Style is an ANSI 256-color foreground.
type Style int

// Ayu-like palette.
const (
	Accent  Style = 74  // blue: section headers
	Command Style = 250 // light gray: command names
	Muted   Style = 245 // medium gray: types, defaults, timestamps
	Success Style = 114 // green
	Failure Style = 203 // red
)

var noColor atomic.Bool

// Render returns s wrapped in the style's escape codes, or s unchanged
// when color is disabled.
func (st Style) Render(s string) string {
	if noColor.Load() || s == "" {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", int(st), s)
}

// RenderAccent returns s in the accent color.
func RenderAccent(s string) string { return Accent.Render(s) }

// RenderMuted returns s in the muted color.
func RenderMuted(s string) string { return Muted.Render(s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return Command.Render(s) }

// RenderStatus colors a health or operation status: green when ok is true,
// red otherwise.
func RenderStatus(s string, ok bool) string {
	if ok {
		return Success.Render(s)
	}
	return Failure.Render(s)
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor.Store(!enabled)
}
