// Package tty reports terminal capabilities of the standard streams.
package tty

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsStdoutTerminal reports whether stdout is attached to a terminal.
func IsStdoutTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// IsStderrTerminal reports whether stderr is attached to a terminal.
func IsStderrTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// IsStdinTerminal reports whether stdin is attached to a terminal.
// Interactive steps require this to inherit the controlling terminal.
func IsStdinTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// Width returns the terminal width of stdout, or the fallback when stdout is
// not a terminal or the size cannot be determined.
func Width(fallback int) int {
	if !IsStdoutTerminal() {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
