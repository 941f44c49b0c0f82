package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple (violet-400)
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray (brighter for readability)
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray (gray-500)
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	SectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	// Category styles color-code task categories in order output
	categoryStyles = map[string]lipgloss.Style{
		"setup":         lipgloss.NewStyle().Foreground(BlueColor),
		"architecture":  lipgloss.NewStyle().Foreground(PrimaryColor),
		"feature":       lipgloss.NewStyle().Foreground(SecondaryColor),
		"testing":       lipgloss.NewStyle().Foreground(WarningColor),
		"documentation": lipgloss.NewStyle().Foreground(MutedColor),
		"deployment":    lipgloss.NewStyle().Foreground(ErrorColor),
	}

	// Severity styles for validation issue lines
	severityStyles = map[string]lipgloss.Style{
		"info":    Muted,
		"warning": Warning,
		"error":   Error,
	}

	scorePassStyle = lipgloss.NewStyle().Bold(true).Foreground(SecondaryColor)
	scoreWarnStyle = lipgloss.NewStyle().Bold(true).Foreground(WarningColor)
	scoreFailStyle = lipgloss.NewStyle().Bold(true).Foreground(ErrorColor)
)

// CategoryStyle returns the style for a task category, falling back to the
// plain text style for unknown categories.
func CategoryStyle(category string) lipgloss.Style {
	if s, ok := categoryStyles[category]; ok {
		return s
	}
	return Text
}

// SeverityStyle returns the style for an issue severity.
func SeverityStyle(severity string) lipgloss.Style {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return Text
}
