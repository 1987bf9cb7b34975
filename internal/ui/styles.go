// Package ui renders boards for the terminal and asks for confirmation
// before destructive actions.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

var (
	ColorGreen  = lipgloss.Color("#5bc17f")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#4facfe")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Bold(true)
)

// SetColor enables or disables colour output. Colour is also off when the
// NO_COLOR environment variable is set.
func SetColor(enabled bool) {
	if !enabled || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// StatusBadge renders the connection indicator.
func StatusBadge(s board.Status) string {
	switch s {
	case board.StatusServer:
		return StyleGreen.Render("● server")
	case board.StatusCloud:
		return StyleBlue.Render("● cloud")
	case board.StatusServerFailed, board.StatusCloudFailed:
		return StyleRed.Render("● " + string(s))
	default:
		return StyleDim.Render("● local")
	}
}

// RiskBadge renders a task's risk status. OK renders as nothing.
func RiskBadge(s risk.Status) string {
	switch s {
	case risk.StatusBlocked:
		return StyleRed.Render("BLOCKED")
	case risk.StatusRisk:
		return StyleYellow.Render("AT RISK")
	default:
		return ""
	}
}

// StatusMark renders a task status checkbox.
func StatusMark(status string) string {
	switch status {
	case schema.StatusDone:
		return StyleGreen.Render("[x]")
	case schema.StatusDoing:
		return StyleYellow.Render("[~]")
	default:
		return "[ ]"
	}
}

// Dim renders text in the muted colour.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Header renders a section header.
func Header(text string) string {
	return StyleHeader.Render(text)
}
