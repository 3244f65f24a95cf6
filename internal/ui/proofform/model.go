// Package proofform asks for the proof of a task whose time is up.
package proofform

import (
	"errors"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
	"github.com/nhle/focusproof/internal/theme"
)

// Source selects where the proof comes from.
type Source string

const (
	SourceFile    Source = "file"
	SourceMailbox Source = "mailbox"
)

// SubmittedMsg carries a proof loaded from disk, or the error loading it.
type SubmittedMsg struct {
	TaskID string
	Proof  proof.Proof
	Err    error
}

// MailboxRequestedMsg asks the caller to look the proof up in the mailbox.
type MailboxRequestedMsg struct {
	TaskID string
}

// CancelMsg is dispatched when the user abandons the prompt. The task stays
// in VERIFYING and the prompt can be reopened.
type CancelMsg struct {
	TaskID string
}

type formBindings struct {
	source Source
	path   string
}

// Model is the proof submission prompt.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	task    model.Task
	mailbox bool
	width   int
	height  int
}

// New creates a proof form. When mailbox is false only file proofs are offered.
func New(mailbox bool, width, height int) Model {
	return Model{
		fb:      &formBindings{source: SourceFile},
		mailbox: mailbox,
		width:   width,
		height:  height,
	}
}

// Start opens the prompt for task.
func (m *Model) Start(task model.Task) tea.Cmd {
	m.task = task
	*m.fb = formBindings{source: SourceFile}
	m.form = m.buildForm()
	return m.form.Init()
}

// TaskID returns the task the prompt is open for.
func (m Model) TaskID() string { return m.task.ID }

// Update handles messages for the proof form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	taskID := m.task.ID
	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		if m.fb.source == SourceMailbox {
			return m, func() tea.Msg { return MailboxRequestedMsg{TaskID: taskID} }
		}
		return m, loadFile(taskID, m.fb.path)
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{TaskID: taskID} }
	}

	return m, cmd
}

func loadFile(taskID, path string) tea.Cmd {
	return func() tea.Msg {
		p, err := proof.FromFile(path)
		return SubmittedMsg{TaskID: taskID, Proof: p, Err: err}
	}
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	header := titleStyle.Render("Time is up: "+m.task.Title) + "\n" +
		theme.HelpStyle.Render("Show your work. A photo will be judged.") + "\n"

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(header + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	pathField := huh.NewInput().
		Title("Photo").
		Placeholder("~/Pictures/proof.jpg").
		Value(&m.fb.path).
		Validate(validatePath)

	if !m.mailbox {
		return huh.NewForm(huh.NewGroup(pathField)).
			WithWidth(m.formWidth())
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Source]().
				Title("Proof source").
				Options(
					huh.NewOption("Photo file", SourceFile),
					huh.NewOption("Mailed photo (subject "+proof.Tag(m.task.ID)+")", SourceMailbox),
				).
				Value(&m.fb.source),
		),
		huh.NewGroup(pathField).
			WithHideFunc(func() bool { return m.fb.source != SourceFile }),
	).WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func validatePath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("a photo path is required")
	}
	if strings.HasPrefix(s, "~") {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		return errors.New("file not found")
	}
	if info.IsDir() {
		return errors.New("that is a directory")
	}
	return nil
}
