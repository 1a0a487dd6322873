package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ErrNoClipboard is returned when no clipboard command is configured or found.
var ErrNoClipboard = errors.New("no clipboard command available")

// copyText copies text to the system clipboard using command, or an
// auto-detected command when it is empty.
func copyText(text, command string) error {
	cmd := detectClipboardCommand(command, exec.LookPath)
	if cmd == "" {
		return ErrNoClipboard
	}

	// Parse command
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return errors.New("invalid clipboard command")
	}

	// Execute with text as stdin
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)

	return c.Run()
}

// detectClipboardCommand returns the clipboard command to use.
func detectClipboardCommand(configured string, lookPath func(string) (string, error)) string {
	// Use configured command if specified
	if configured != "" {
		return configured
	}

	// Auto-detect based on environment
	// Check for Wayland
	if _, err := lookPath("wl-copy"); err == nil {
		return "wl-copy"
	}

	// Check for X11
	if _, err := lookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}

	if _, err := lookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}

	return ""
}
