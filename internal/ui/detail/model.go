package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/keys"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
	"github.com/nhle/focusproof/internal/theme"
	"github.com/nhle/focusproof/internal/verify"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	viewport viewport.Model
	keys     *keys.KeyMap
	strs     locale.Strings
	style    string
	mailbox  bool
	width    int
	height   int
}

// New creates a new detail view model. style is a glamour standard style
// name used for the judge's feedback.
func New(k *keys.KeyMap, strs locale.Strings, style string, mailbox bool, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		strs:     strs,
		style:    style,
		mailbox:  mailbox,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back, m.keys.Details) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badges := theme.StatusStyle(task.Status).Render(m.strs.StatusLabel(task.Status))
	if task.PointsEarned != nil {
		points := theme.PointsStyle(*task.PointsEarned).Render(fmt.Sprintf("%+d", *task.PointsEarned))
		badges = lipgloss.JoinHorizontal(lipgloss.Top, badges, "  ", points)
	}
	sections = append(sections, badges, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-10s", label+":")),
			valStyle.Render(value),
		))
	}

	row("Duration", fmt.Sprintf("%d min", task.DurationMinutes))
	if task.ScheduledDate != nil {
		row("Date", task.ScheduledDate.String())
	}
	if task.StartTime != nil {
		row("Started", task.StartTime.Local().Format("2006-01-02 15:04"))
	}
	row("Created", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	if task.ProofImageURL != nil {
		mediaType, data := verify.SplitDataURL(*task.ProofImageURL)
		row("Proof", fmt.Sprintf("%s, %d KB", mediaType, len(data)*3/4/1024))
	}
	if m.mailbox && task.Status == model.StatusVerifying {
		row("Mail tag", proof.Tag(task.ID))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Description"))
	if task.Description == "" {
		sections = append(sections, theme.DimmedStyle.Italic(true).Render("No description"))
	} else {
		sections = append(sections, task.Description)
	}

	if task.AIFeedback != nil {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render("Feedback"))
		sections = append(sections, m.renderMarkdown(*task.AIFeedback))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderMarkdown renders s with glamour, falling back to plain text.
func (m Model) renderMarkdown(s string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(max(m.width-4, 20)),
	)
	if err != nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}

// SetTask updates the task being displayed and re-renders the content.
func (m *Model) SetTask(task model.Task) {
	m.task = &task
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders the current task with t when the ids match, keeping the
// scroll position.
func (m *Model) Refresh(t model.Task) {
	if m.task == nil || m.task.ID != t.ID {
		return
	}
	m.task = &t
	m.viewport.SetContent(m.renderContent())
}

// TaskID returns the id of the displayed task.
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// SetStrings switches the status labels.
func (m *Model) SetStrings(strs locale.Strings) {
	m.strs = strs
	m.viewport.SetContent(m.renderContent())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
