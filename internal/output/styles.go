package output

import "github.com/charmbracelet/lipgloss"

// Color palette. A single accent color keeps the output readable in
// transcripts.
const (
	ColorAccent   = "110" // steel blue for titles and answers
	ColorWhite    = "255" // headers
	ColorGray     = "245" // citation metadata
	ColorDarkGray = "238" // separators
	ColorGreen    = "114" // high relevance, success
	ColorYellow   = "220" // medium relevance, warnings
	ColorRed      = "196" // errors
)

// Styles holds the lipgloss styles used for rendering search responses.
type Styles struct {
	Header    Style
	Answer    Style
	DocTitle  Style
	Citation  Style
	Excerpt   Style
	High      Style
	Medium    Style
	Low       Style
	Success   Style
	Warning   Style
	Error     Style
	Separator Style
}

// Style aliases lipgloss.Style so callers need not import it.
type Style = lipgloss.Style

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Answer:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		DocTitle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Citation:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Excerpt:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		High:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Medium:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Low:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle(),
		Answer:    lipgloss.NewStyle(),
		DocTitle:  lipgloss.NewStyle(),
		Citation:  lipgloss.NewStyle(),
		Excerpt:   lipgloss.NewStyle(),
		High:      lipgloss.NewStyle(),
		Medium:    lipgloss.NewStyle(),
		Low:       lipgloss.NewStyle(),
		Success:   lipgloss.NewStyle(),
		Warning:   lipgloss.NewStyle(),
		Error:     lipgloss.NewStyle(),
		Separator: lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
