package tui

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

// spanPattern matches the Pango spans used by the status line.
var spanPattern = regexp.MustCompile(`<span color="([^"]*)">(.*?)</span>`)

// RenderMarkup renders Pango color spans as terminal colors.
func RenderMarkup(text string) string {
	return spanPattern.ReplaceAllStringFunc(text, func(span string) string {
		sub := spanPattern.FindStringSubmatch(span)
		return lipgloss.NewStyle().Foreground(lipgloss.Color(sub[1])).Render(sub[2])
	})
}

// StripMarkup removes Pango color spans, keeping their contents.
func StripMarkup(text string) string {
	return spanPattern.ReplaceAllString(text, "$2")
}
