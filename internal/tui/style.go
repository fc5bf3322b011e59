package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorMauve   = lipgloss.Color("#cba6f7")
	colorRed     = lipgloss.Color("#f38ba8")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorOverlay = lipgloss.Color("#6c7086")
	colorText    = lipgloss.Color("230")
	colorAccent  = lipgloss.Color("62")
)

func colored(fg, bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(fg).Background(bg)
}

var (
	titleStyle = colored(colorText, colorAccent).Padding(0, 1)
	errorStyle = colored(colorText, colorRed).Padding(0, 1)
	faint      = func(s string) string { return lipgloss.NewStyle().Faint(true).Render(s) }
	bold       = func(s string) string { return lipgloss.NewStyle().Bold(true).Render(s) }
)

// flag renders a playback flag, lit when on.
func flag(name string, on bool) string {
	if on {
		return colored(colorMauve, "").Bold(true).Render(name)
	}
	return colored(colorOverlay, "").Render(name)
}

func playing(on bool) string {
	if on {
		return colored(colorGreen, "").Render("▶")
	}
	return colored(colorOverlay, "").Render("⏸")
}
