// Package console formats user-facing CLI output. Styling is applied only
// when stdout is a terminal so piped output stays plain.
package console

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/hkdev/hk/pkg/styles"
	"github.com/hkdev/hk/pkg/tty"
)

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return tty.IsStdoutTerminal()
}

// applyStyle conditionally applies styling based on TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// ToRelativePath converts an absolute path to a relative path from the
// current working directory, falling back to the input on any error.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}

	wd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}

	return relPath
}

// FormatSuccessMessage formats a success message with a checkmark
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatErrorMessage formats an error message
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, message)
}

// FormatCommandMessage formats a shell command for display
func FormatCommandMessage(command string) string {
	return applyStyle(styles.Highlight, command)
}

// FormatMutedMessage formats secondary information such as durations
func FormatMutedMessage(message string) string {
	return applyStyle(styles.Muted, message)
}

// FormatStepResult renders one line of the end-of-run summary.
func FormatStepResult(name, outcome, detail string) string {
	var line string
	switch outcome {
	case "succeeded":
		line = FormatSuccessMessage(name)
	case "failed":
		line = FormatErrorMessage(name)
	case "cancelled", "skipped":
		line = FormatWarningMessage(fmt.Sprintf("%s (%s)", name, outcome))
	default:
		line = name
	}
	if detail != "" {
		line += " " + FormatMutedMessage(detail)
	}
	return line
}
