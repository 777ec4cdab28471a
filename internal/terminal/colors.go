package terminal

import "github.com/charmbracelet/lipgloss"

// Palette shared by the text report and the TUI.
const (
	ColorText   = lipgloss.Color("#cdd6f4")
	ColorDim    = lipgloss.Color("#6c7086")
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorCyan   = lipgloss.Color("#89dceb")
	ColorBgDark = lipgloss.Color("#313244")
	ColorStatus = lipgloss.Color("#45475a")
)

// Styles holds the lipgloss styles used to render reports.
type Styles struct {
	Text    lipgloss.Style
	Dim     lipgloss.Style
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Header  lipgloss.Style
	Rule    lipgloss.Style
	Banner  lipgloss.Style
	Summary lipgloss.Style
}

// NewStyles returns the report styles. Without color every style renders
// its input unchanged.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Text:    lipgloss.NewStyle().Foreground(ColorText),
		Dim:     lipgloss.NewStyle().Foreground(ColorDim),
		Pass:    lipgloss.NewStyle().Foreground(ColorGreen).Bold(true),
		Fail:    lipgloss.NewStyle().Foreground(ColorRed).Bold(true),
		Header:  lipgloss.NewStyle().Foreground(ColorBlue).Bold(true),
		Rule:    lipgloss.NewStyle().Foreground(ColorYellow),
		Banner:  lipgloss.NewStyle().Background(ColorBgDark).Foreground(ColorCyan),
		Summary: lipgloss.NewStyle().Background(ColorStatus).Foreground(ColorText),
	}
}
