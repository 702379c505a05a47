// Package summary renders the post-startup service summary block that tells
// the developer what is running and where to point their browser.
package summary

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"devup/internal/config"
	"devup/internal/services"
)

// Semantic colors with consistent light/dark mode support
var (
	colorPrimary = lipgloss.AdaptiveColor{
		Light: "#5A56E0",
		Dark:  "#7571F9",
	}
	colorSuccess = lipgloss.AdaptiveColor{
		Light: "#059669",
		Dark:  "#10B981",
	}
	colorError = lipgloss.AdaptiveColor{
		Light: "#DC2626",
		Dark:  "#EF4444",
	}
	colorWarning = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}
	colorMuted = lipgloss.AdaptiveColor{
		Light: "#9CA3AF",
		Dark:  "#6B7280",
	}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Underline(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	runningStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorError)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorWarning)
)

// Item pairs a service definition with its observed lifecycle state.
type Item struct {
	Definition config.ServiceDefinition
	State      services.ServiceState
}

// Render produces the styled summary block for the given services.
func Render(items []Item) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Development environment"))
	lines = append(lines, "")

	for _, item := range items {
		lines = append(lines, renderServiceLine(item))
	}

	if entry := entryDocument(items); entry != "" {
		lines = append(lines, "")
		lines = append(lines, noteStyle.Render(fmt.Sprintf("Entry point: %s", entry)))
	}

	lines = append(lines, "")
	lines = append(lines, noteStyle.Render("Services keep running in the background. Run 'devup status' to check on them."))

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderServiceLine(item Item) string {
	def := item.Definition

	icon := def.Icon
	if icon == "" {
		icon = "•"
	}

	parts := []string{
		renderStateMarker(item.State),
		icon,
		nameStyle.Render(def.Name),
	}

	switch {
	case def.URL != "":
		parts = append(parts, urlStyle.Render(def.URL))
	case def.Port > 0:
		parts = append(parts, urlStyle.Render(fmt.Sprintf("http://localhost:%d", def.Port)))
	default:
		parts = append(parts, noteStyle.Render("no local port"))
	}

	if url := def.HealthURL(); url != "" {
		parts = append(parts, noteStyle.Render(fmt.Sprintf("(health: %s)", url)))
	}
	if def.Note != "" {
		parts = append(parts, noteStyle.Render(fmt.Sprintf("(%s)", def.Note)))
	}

	return strings.Join(parts, " ")
}

func renderStateMarker(state services.ServiceState) string {
	switch state {
	case services.StateRunning:
		return runningStyle.Render("✓")
	case services.StateFailed:
		return failedStyle.Render("✗")
	case services.StateStarting, services.StateWaiting:
		return pendingStyle.Render("…")
	default:
		return noteStyle.Render("-")
	}
}

// entryDocument finds the document the developer should open first. The
// document name may contain spaces and parentheses, so it is URL-escaped
// before being joined onto the serving root.
func entryDocument(items []Item) string {
	for _, item := range items {
		def := item.Definition
		if def.Entry == "" {
			continue
		}
		if def.Port > 0 {
			return fmt.Sprintf("http://localhost:%d/%s", def.Port, url.PathEscape(def.Entry))
		}
		return def.Entry
	}
	return ""
}
