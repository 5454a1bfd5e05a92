// Package styles provides centralized style and color definitions for
// terminal output. It uses lipgloss.AdaptiveColor to adapt to the terminal
// background, so output stays readable in both light and dark themes.
package styles

import "github.com/charmbracelet/lipgloss"

// Adaptive colors that work well in both light and dark terminal themes.
// Light variants use darker, more saturated colors for visibility on light
// backgrounds; dark variants use brighter colors.
var (
	// ColorError is used for error messages and failed steps.
	ColorError = lipgloss.AdaptiveColor{
		Light: "#D73737",
		Dark:  "#FF5555",
	}

	// ColorWarning is used for warnings and skipped steps.
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#E67E22",
		Dark:  "#FFB86C",
	}

	// ColorSuccess is used for passing steps and confirmations.
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#27AE60",
		Dark:  "#50FA7B",
	}

	// ColorInfo is used for informational messages
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2980B9",
		Dark:  "#8BE9FD",
	}

	// ColorHighlight is used for file paths, step names, and commands
	ColorHighlight = lipgloss.AdaptiveColor{
		Light: "#8E44AD",
		Dark:  "#BD93F9",
	}

	// ColorMuted is used for secondary information like durations
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#6C7A89",
		Dark:  "#6272A4",
	}
)

// Pre-configured styles for common use cases
var (
	Error     = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	Warning   = lipgloss.NewStyle().Foreground(ColorWarning)
	Success   = lipgloss.NewStyle().Foreground(ColorSuccess)
	Info      = lipgloss.NewStyle().Foreground(ColorInfo)
	Highlight = lipgloss.NewStyle().Foreground(ColorHighlight)
	Muted     = lipgloss.NewStyle().Foreground(ColorMuted)
	FilePath  = lipgloss.NewStyle().Foreground(ColorHighlight).Underline(true)
	Bold      = lipgloss.NewStyle().Bold(true)
)
