package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StageStatusPill returns a colored indicator such as "● in progress".
func StageStatusPill(status domain.StageStatus) string {
	switch status {
	case domain.StageCompleted:
		return StyleGreen.Render("✔ completed")
	case domain.StageInProgress:
		return StyleYellow.Render("● in progress")
	case domain.StageFailed:
		return StyleRed.Render("✖ failed")
	case domain.StagePending:
		return StyleDim.Render("○ pending")
	default:
		return StyleDim.Render(string(status))
	}
}

// StageMarker is the one-rune form of StageStatusPill used in compact lists.
func StageMarker(status domain.StageStatus) string {
	switch status {
	case domain.StageCompleted:
		return StyleGreen.Render("✔")
	case domain.StageInProgress:
		return StyleYellow.Render("▶")
	case domain.StageFailed:
		return StyleRed.Render("✖")
	default:
		return StyleDim.Render("○")
	}
}

// ModeBadge renders a workflow mode label.
func ModeBadge(mode domain.Mode) string {
	if mode == "" {
		return StyleDim.Render("--")
	}
	return StylePurple.Render(strings.ToUpper(string(mode)))
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// Warning renders a yellow "WARNING:" line.
func Warning(text string) string {
	return StyleYellow.Render("WARNING: " + text)
}
