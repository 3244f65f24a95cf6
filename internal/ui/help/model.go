package help

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/keys"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	mailbox bool
	width   int
	height  int
}

// New creates a new help view model. mailbox adds the mailed proof notes.
func New(keys *keys.KeyMap, mailbox bool, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:    keys,
		help:    h,
		mailbox: mailbox,
		width:   width,
		height:  height,
	}
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("How it works"),
		theme.HelpStyle.Render(m.rules()),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func (m Model) rules() string {
	lines := []string{
		"Start a task to begin its countdown.",
		"When time is up, submit a photo of the result.",
		"The judge awards " + signed(model.PointsSuccess) + " for a verified task and " +
			signed(model.PointsFailure) + " otherwise.",
		"Dated tasks remind you once, on their day.",
	}
	if m.mailbox {
		lines = append(lines, "You can also mail the photo: put the tag shown in the proof prompt in the subject.")
	}
	return strings.Join(lines, "\n")
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
