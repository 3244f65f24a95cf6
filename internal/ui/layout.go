package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/theme"
)

// Layout manages the terminal frame: header, content, status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height left for the main content area.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 1)
}

// StatsLine formats the points summary shown in the header.
func StatsLine(stats model.UserStats, s locale.Strings) string {
	return fmt.Sprintf("%s %d · %s %d · %s %d",
		s.Points, stats.Points,
		s.Completed, stats.CompletedCount,
		s.Failed, stats.FailedCount,
	)
}

// RenderHeader renders the title on the left and right on the right,
// filling the gap with the header background.
func (l Layout) RenderHeader(title, right string) string {
	return l.bar(theme.HeaderStyle, title, right)
}

// RenderStatusBar renders the bottom bar with keyboard hints and an
// optional flash message.
func (l Layout) RenderStatusBar(hints, flash string) string {
	return l.bar(theme.StatusBarStyle, hints, flash)
}

func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)

	var rightRendered string
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := max(l.Width-lipgloss.Width(leftRendered)-lipgloss.Width(rightRendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}

// RenderWithFrame vertically joins the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
