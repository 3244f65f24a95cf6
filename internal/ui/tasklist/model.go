package tasklist

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/keys"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/tracker"
)

// detailHeight is reserved below the list for the selected task.
const detailHeight = 3

// Model is the Today / Upcoming task list.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	state  *renderState
	width  int
	height int
}

// New creates a new task list model.
func New(k *keys.KeyMap, strs locale.Strings, width, height int) Model {
	state := &renderState{
		strings:   strs,
		remaining: make(map[string]int),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
	}

	l := list.New([]list.Item{}, ItemDelegate{state: state}, width, height-detailHeight)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:   l,
		keys:   k,
		state:  state,
		width:  width,
		height: height,
	}
}

// SetTasks rebuilds the rows from tasks grouped around today, keeping the
// current selection when the task is still present.
func (m *Model) SetTasks(tasks []model.Task, today model.Date) tea.Cmd {
	selected, hadSelection := m.Selected()

	groups := tracker.GroupTasks(tasks, today)
	s := m.state.strings

	items := []list.Item{headerItem{label: s.Today}}
	if len(groups.Today) == 0 {
		items = append(items, headerItem{label: s.EmptyToday, note: true})
	}
	for _, t := range groups.Today {
		items = append(items, TaskItem{Task: t})
	}
	if len(groups.Upcoming) > 0 {
		items = append(items, headerItem{label: s.Upcoming})
		for _, t := range groups.Upcoming {
			items = append(items, TaskItem{Task: t})
		}
	}

	cmd := m.list.SetItems(items)

	target := -1
	for i, it := range items {
		ti, ok := it.(TaskItem)
		if !ok {
			continue
		}
		if target < 0 {
			target = i
		}
		if hadSelection && ti.Task.ID == selected.ID {
			target = i
			break
		}
	}
	if target >= 0 {
		m.list.Select(target)
	}
	return cmd
}

// SetClock updates the time used for countdowns not driven by a timer.
func (m *Model) SetClock(now time.Time) { m.state.now = now }

// SetRemaining replaces the per-task remaining seconds.
func (m *Model) SetRemaining(remaining map[string]int) {
	m.state.remaining = remaining
}

// SetSpinner sets the frame shown next to verifying tasks.
func (m *Model) SetSpinner(frame string) { m.state.spinner = frame }

// SetStrings switches the display language.
func (m *Model) SetStrings(strs locale.Strings) { m.state.strings = strs }

// Selected returns the highlighted task.
func (m Model) Selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.Task, true
}

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.list.CursorUp()
		m.skipHeaders(-1)
		return m, nil
	case key.Matches(keyMsg, m.keys.Down):
		m.list.CursorDown()
		m.skipHeaders(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.skipHeaders(1)
	return m, cmd
}

// skipHeaders moves the cursor off non-selectable rows, turning around at
// either end of the list.
func (m *Model) skipHeaders(dir int) {
	n := len(m.list.Items())
	for range n {
		if _, ok := m.list.SelectedItem().(headerItem); !ok {
			return
		}
		idx := m.list.Index()
		if dir < 0 && idx == 0 {
			dir = 1
		} else if dir > 0 && idx == n-1 {
			dir = -1
		}
		if dir < 0 {
			m.list.CursorUp()
		} else {
			m.list.CursorDown()
		}
	}
}

// View renders the task list and the selected task's detail.
func (m Model) View() string {
	listView := m.list.View()

	var detailView string
	if task, ok := m.Selected(); ok {
		detailView = detail(task, m.state.strings, m.width)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		listView,
		lipgloss.NewStyle().Height(detailHeight).Render(detailView),
	)
}

// Empty reports whether there are no tasks at all.
func (m Model) Empty() bool {
	for _, it := range m.list.Items() {
		if _, ok := it.(TaskItem); ok {
			return false
		}
	}
	return true
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-detailHeight, 1))
}
