package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"

	"eventchat/internal/dom"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "212"})
	userStyle      = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "241"})
	deletedStyle   = mutedStyle.Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"})
	dialogStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	marker      = "▸ "
	noMarker    = "  "
	deleteLabel = "🗑"
)

// block renders one child of the message container at width columns.
func block(el dom.Element, width int, selected bool) string {
	inner := width - lipgloss.Width(noMarker)
	if inner < 1 {
		inner = 1
	}
	wrap := lipgloss.NewStyle().Width(inner)

	var body string
	switch {
	case el.HasClass("chat-message"):
		user := userStyle
		if el.HasClass("highlighted") {
			user = highlightStyle
		}
		header := user.Render(el.Query(".message-user").Text()) + " " +
			mutedStyle.Render(el.Query(".message-time").Text())
		if btn := el.Query(".delete-btn"); btn.Exists() && !btn.Hidden() {
			header += " " + mutedStyle.Render(deleteLabel)
		}
		content := el.Query(".message-content").Text()
		if el.HasClass("message-deleted") {
			content = deletedStyle.Render(content)
		}
		body = wrap.Render(header + "\n" + content)
	case el.HasClass("no-messages"):
		body = mutedStyle.Width(inner).Align(lipgloss.Center).Render(strings.TrimSpace(el.Text()))
	case el.HasClass("load-error"):
		body = errorStyle.Width(inner).Align(lipgloss.Center).Render(strings.TrimSpace(el.Text()))
	default:
		body = wrap.Render(strings.TrimSpace(el.Text()))
	}

	lines := strings.Split(body, "\n")
	for i := range lines {
		switch {
		case i == 0 && selected:
			lines[i] = selectedStyle.Render(marker) + lines[i]
		default:
			lines[i] = noMarker + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// layout measures container children the way block draws them, so the page's
// scroll geometry matches the screen.
func layout(doc *dom.Document, width int) dom.Layout {
	return func(n *html.Node) int {
		return lipgloss.Height(block(doc.Element(n), width, false))
	}
}
