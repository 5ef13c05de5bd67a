package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Leaf green for the FoodSave branding.
const brandGreen = "#34A853"

// FOODSAVE ASCII art banner.
var bannerArt = []string{
	"███████╗ ██████╗  ██████╗ ██████╗ ███████╗ █████╗ ██╗   ██╗███████╗",
	"██╔════╝██╔═══██╗██╔═══██╗██╔══██╗██╔════╝██╔══██╗██║   ██║██╔════╝",
	"█████╗  ██║   ██║██║   ██║██║  ██║███████╗███████║██║   ██║█████╗  ",
	"██╔══╝  ██║   ██║██║   ██║██║  ██║╚════██║██╔══██║╚██╗ ██╔╝██╔══╝  ",
	"██║     ╚██████╔╝╚██████╔╝██████╔╝███████║██║  ██║ ╚████╔╝ ███████╗",
	"╚═╝      ╚═════╝  ╚═════╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝  ╚═══╝  ╚══════╝",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandGreen)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandGreen)),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the styled ASCII art banner.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips is shown under the banner on a fresh surface.
var welcomeTips = []string{
	"Na początek:",
	"  • Pytaj naturalnie, po polsku lub po angielsku",
	"  • /clear zaczyna nową rozmowę, /help pokazuje komendy",
	"  • /bielik, /search, /shopping, /cooking przełączają tryby",
	"  • Ctrl+C anuluje, Ctrl+D kończy",
}

// RenderWelcomeTips returns the styled tips block.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
