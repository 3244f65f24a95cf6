package taskform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/theme"
	"github.com/nhle/focusproof/internal/tracker"
)

// SubmittedMsg is dispatched when the form is completed.
type SubmittedMsg struct {
	Task tracker.NewTask
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	duration    string
	date        string
}

// Model is the Bubble Tea model for the new-task form.
type Model struct {
	form            *huh.Form
	fb              *formBindings
	defaultDuration int
	width           int
	height          int
}

// New creates a new task form model.
func New(defaultDuration, width, height int) Model {
	if defaultDuration <= 0 {
		defaultDuration = model.DefaultDurationMinutes
	}
	return Model{
		fb:              &formBindings{},
		defaultDuration: defaultDuration,
		width:           width,
		height:          height,
	}
}

// Start resets the fields and builds a fresh form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{duration: strconv.Itoa(m.defaultDuration)}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		task, err := m.fb.toNewTask()
		m.form = nil
		if err != nil {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		return m, func() tea.Msg { return SubmittedMsg{Task: task} }
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Task") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What will you get done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("What should the proof photo show? (optional)").
				Value(&m.fb.description),
			huh.NewInput().
				Title("Duration (minutes)").
				Value(&m.fb.duration).
				Validate(validateDuration),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD (empty for today)").
				Value(&m.fb.date).
				Validate(validateOptionalDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (fb formBindings) toNewTask() (tracker.NewTask, error) {
	task := tracker.NewTask{
		Title:       strings.TrimSpace(fb.title),
		Description: strings.TrimSpace(fb.description),
	}

	if s := strings.TrimSpace(fb.duration); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return tracker.NewTask{}, err
		}
		task.DurationMinutes = n
	}

	if s := strings.TrimSpace(fb.date); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return tracker.NewTask{}, err
		}
		task.ScheduledDate = &d
	}
	return task, nil
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("duration must be a positive number of minutes")
	}
	return nil
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := model.ParseDate(s); err != nil {
		return errors.New("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
