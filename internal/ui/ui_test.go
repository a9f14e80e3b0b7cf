package ui

import (
	"bytes"
	"testing"
)

func TestRender(t *testing.T) {
	SetColor(true)
	t.Cleanup(func() { SetColor(true) })

	if got, want := RenderAccent("Flags:"), "\x1b[38;5;74mFlags:\x1b[0m"; got != want {
		t.Errorf("RenderAccent = %q, want %q", got, want)
	}
	if got := RenderStatus("SERVING", true); got != Success.Render("SERVING") {
		t.Errorf("RenderStatus ok = %q", got)
	}
	if got := RenderStatus("down", false); got != Failure.Render("down") {
		t.Errorf("RenderStatus fail = %q", got)
	}
	if got := RenderMuted(""); got != "" {
		t.Errorf("empty string rendered as %q", got)
	}

	SetColor(false)
	if got := RenderCommand("serve"); got != "serve" {
		t.Errorf("RenderCommand without color = %q", got)
	}
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		force    string
		clicolor string
		want     bool
	}{
		{"default non-tty", "", "", "", false},
		{"NO_COLOR wins", "1", "1", "", false},
		{"forced", "", "1", "", true},
		{"CLICOLOR=0", "", "", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("CLICOLOR_FORCE", tt.force)
			t.Setenv("CLICOLOR", tt.clicolor)
			if got := ShouldUseColor(&bytes.Buffer{}); got != tt.want {
				t.Errorf("ShouldUseColor = %v, want %v", got, tt.want)
			}
		})
	}
}
