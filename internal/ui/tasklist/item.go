package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/countdown"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// headerItem is a non-selectable row: a section label or a note.
type headerItem struct {
	label string
	note  bool
}

func (h headerItem) FilterValue() string { return "" }

// renderState is shared by reference between the Model and its delegate so
// per-tick updates are visible without rebuilding the list.
type renderState struct {
	strings   locale.Strings
	now       time.Time
	remaining map[string]int
	spinner   string
	bar       progress.Model
}

// ItemDelegate implements list.ItemDelegate for task rows.
type ItemDelegate struct {
	state *renderState
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	switch it := item.(type) {
	case headerItem:
		if it.note {
			fmt.Fprint(w, theme.ListItemStyle.Render(theme.HelpStyle.Render(it.label)))
			return
		}
		fmt.Fprint(w, theme.SectionStyle.Render(it.label))
	case TaskItem:
		d.renderTask(w, it.Task, index == m.Index())
	}
}

func (d ItemDelegate) renderTask(w io.Writer, task model.Task, isSelected bool) {
	s := d.state

	statusBadge := theme.StatusStyle(task.Status).Render(s.strings.StatusLabel(task.Status))

	var trailer string
	switch task.Status {
	case model.StatusPending:
		trailer = theme.DimmedStyle.Render(countdown.Format(task.DurationMinutes * 60))
	case model.StatusActive:
		secs, ok := s.remaining[task.ID]
		if !ok {
			secs = countdown.Remaining(task, s.now)
		}
		pct := 0.0
		if total := task.DurationMinutes * 60; total > 0 {
			pct = float64(secs) / float64(total)
		}
		trailer = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorYellow).
			Render(countdown.Format(secs)) + " " + s.bar.ViewAs(pct)
	case model.StatusVerifying:
		trailer = s.spinner
	case model.StatusCompleted, model.StatusFailed:
		if task.PointsEarned != nil {
			trailer = theme.PointsStyle(*task.PointsEarned).Render(signed(*task.PointsEarned))
		}
	}

	var date string
	if task.ScheduledDate != nil {
		date = theme.DimmedStyle.Render(" " + task.ScheduledDate.String())
	}

	line := fmt.Sprintf("%s %s%s  %s", statusBadge, task.Title, date, trailer)

	if task.Status.IsTerminal() {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// signed formats a point delta with an explicit sign.
func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// detail renders the description and verdict of the selected task.
func detail(task model.Task, s locale.Strings, width int) string {
	var lines []string
	if d := strings.TrimSpace(task.Description); d != "" {
		lines = append(lines, d)
	}
	if task.AIFeedback != nil {
		label := s.StatusLabel(task.Status)
		lines = append(lines, theme.StatusStyle(task.Status).UnsetPadding().Render(label+": ")+*task.AIFeedback)
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Width(width - 4).
		PaddingLeft(2).
		Foreground(theme.ColorGray).
		Render(strings.Join(lines, "\n"))
}
