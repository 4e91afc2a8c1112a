package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
	Warn    lipgloss.Color // Nonzero error counts
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#ffb454"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Warn   lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
		Value:  lipgloss.NewStyle(),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// DefaultStyles are the styles of DefaultTheme.
var DefaultStyles = NewStyles(DefaultTheme)

// Field is one labeled line of a Summary.
type Field struct {
	Label string
	Value string
	Warn  bool // highlight the value
}

// Summary is a titled list of fields rendered in a rounded frame.
type Summary struct {
	Title  string
	Fields []Field
}

// Summarizer is implemented by results that have a table rendering.
type Summarizer interface {
	Summary() Summary
}

// Render renders the summary with labels right-aligned to the widest one.
func (s Summary) Render(st Styles) string {
	width := 0
	for _, f := range s.Fields {
		width = max(width, lipgloss.Width(f.Label))
	}

	lines := []string{st.Title.Render(s.Title)}
	for _, f := range s.Fields {
		label := strings.Repeat(" ", width-lipgloss.Width(f.Label)) + f.Label
		value := st.Value.Render(f.Value)
		if f.Warn {
			value = st.Warn.Render(f.Value)
		}
		lines = append(lines, st.Label.Render(label)+"  "+value)
	}
	return st.Border.Render(strings.Join(lines, "\n"))
}
