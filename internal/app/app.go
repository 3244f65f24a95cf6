package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/focusproof/internal/countdown"
	"github.com/nhle/focusproof/internal/keys"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	appsync "github.com/nhle/focusproof/internal/sync"
	"github.com/nhle/focusproof/internal/ui"
	companionview "github.com/nhle/focusproof/internal/ui/companion"
	settings "github.com/nhle/focusproof/internal/ui/config"
	"github.com/nhle/focusproof/internal/ui/detail"
	helpview "github.com/nhle/focusproof/internal/ui/help"
	"github.com/nhle/focusproof/internal/ui/proofform"
	"github.com/nhle/focusproof/internal/ui/taskform"
	"github.com/nhle/focusproof/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewTaskCreate
	ViewProof
	ViewCompanion
	ViewHelp
	ViewDetail
	ViewSettings
)

// tickMsg drives countdowns and the reminder checker.
type tickMsg time.Time

// Model is the root Bubble Tea model. It owns view routing and is the only
// place where tracker transitions are triggered from user input and timers.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *Services
	keys         *keys.KeyMap
	lang         locale.Lang

	taskList      tasklist.Model
	taskForm      taskform.Model
	proofForm     proofform.Model
	companionView companionview.Model
	helpView      helpview.Model
	detailView    detail.Model
	settingsView  settings.Model
	spinner       spinner.Model

	timers *countdown.Set

	// ctx is cancelled on quit, which cancels every verification in flight.
	ctx    context.Context
	cancel context.CancelFunc

	// proofQueue holds tasks whose time ran out while another prompt was open.
	proofQueue []string

	avatarJobs int
	flash      string
	ready      bool
	tick       time.Duration
}

// New creates the root model.
func New(svc *Services) Model {
	k := keys.DefaultKeyMap()
	cfg := svc.Config
	lang := locale.Parse(cfg.Display.Language)
	strs := locale.For(lang)
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tick := time.Duration(cfg.Reminder.TickIntervalMS) * time.Millisecond
	if tick <= 0 {
		tick = time.Second
	}

	m := Model{
		currentView:   ViewList,
		svc:           svc,
		keys:          k,
		lang:          lang,
		taskList:      tasklist.New(k, strs, 80, 22),
		taskForm:      taskform.New(cfg.Tasks.DefaultDurationMinutes, 80, 22),
		proofForm:     proofform.New(svc.Mailbox != nil, 80, 22),
		companionView: companionview.New(ctx, svc.Companion, lang, cfg.Display.Theme, 80, 22),
		helpView:      helpview.New(k, svc.Mailbox != nil, 80, 22),
		detailView:    detail.New(k, strs, cfg.Display.Theme, svc.Mailbox != nil, 80, 22),
		settingsView:  settings.New(cfg, svc.ConfigPath, 80, 22),
		spinner:       sp,
		timers:        countdown.NewSet(svc.Logger),
		ctx:           ctx,
		cancel:        cancel,
		tick:          tick,
	}
	m.refreshTasks()
	return m
}

// Init starts the clock, the spinner, the mailbox poller, and the first
// avatar generation when none is stored.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.tickCmd(),
		m.spinner.Tick,
	}
	if m.svc.Poller != nil {
		cmds = append(cmds, m.svc.Poller.Start())
	}
	if m.svc.Companion.NeedsAvatar() {
		cmds = append(cmds, func() tea.Msg { return avatarRequestMsg{mood: m.svc.Companion.Mood()} })
	}
	return tea.Batch(cmds...)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := msg.Width, m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.proofForm.SetSize(w, h)
		m.companionView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.taskList.SetSpinner(m.spinner.View())
		return m, cmd

	case taskform.SubmittedMsg:
		m.currentView = ViewList
		return m.addTask(msg)

	case taskform.CancelMsg:
		m.currentView = ViewList
		cmd := m.nextPrompt()
		return m, cmd

	case proofform.SubmittedMsg:
		return m.handleProofFile(msg)

	case proofform.MailboxRequestedMsg:
		return m.handleMailboxRequest(msg)

	case proofform.CancelMsg:
		m.currentView = ViewList
		m.flash = "Proof postponed. Press p on the task to submit it later."
		cmd := m.nextPrompt()
		return m, cmd

	case mailboxProofMsg:
		return m.handleMailboxProof(msg)

	case appsync.PollResultMsg:
		return m.handlePollResult(msg)

	case verifiedMsg:
		return m.handleVerified(msg)

	case avatarRequestMsg:
		cmd := m.generateAvatar(msg.mood)
		return m, cmd

	case avatarMsg:
		return m.handleAvatar(msg)

	case companionview.ReplyMsg:
		var cmd tea.Cmd
		m.companionView, cmd = m.companionView.Update(msg)
		return m, cmd

	case companionview.CloseMsg, detail.BackMsg, settings.ConfigDoneMsg:
		m.currentView = ViewList
		cmd := m.nextPrompt()
		return m, cmd

	case settings.SavedMsg:
		return m.applySettings(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.currentView == ViewList) {
			return m.quit()
		}
		if m.currentView == ViewList {
			if next, cmd, handled := m.handleListKeys(msg); handled {
				return next, cmd
			}
		}
		if m.currentView == ViewHelp && (key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back)) {
			m.currentView = m.previousView
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// handleListKeys processes the task actions available on the list.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.New):
		m.currentView = ViewTaskCreate
		cmd := m.taskForm.Start()
		return m, cmd, true

	case key.Matches(msg, m.keys.Start):
		task, ok := m.taskList.Selected()
		if !ok {
			return m, nil, true
		}
		next, cmd := m.startTask(task.ID)
		return next, cmd, true

	case key.Matches(msg, m.keys.Proof):
		task, ok := m.taskList.Selected()
		if !ok || task.Status != model.StatusVerifying {
			return m, nil, true
		}
		cmd := m.openProof(task)
		return m, cmd, true

	case key.Matches(msg, m.keys.Details):
		task, ok := m.taskList.Selected()
		if !ok {
			return m, nil, true
		}
		m.detailView.SetTask(task)
		m.currentView = ViewDetail
		return m, nil, true

	case key.Matches(msg, m.keys.Refresh):
		if m.svc.Poller != nil {
			m.svc.Poller.Refresh()
			m.flash = "Checking mailbox..."
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Companion):
		m.currentView = ViewCompanion
		m.companionView.Refresh()
		cmd := m.companionView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Language):
		m.setLanguage(toggle(m.lang))
		return m, nil, true

	case key.Matches(msg, m.keys.Settings):
		if m.svc.ConfigPath == "" {
			return m, nil, true
		}
		m.currentView = ViewSettings
		cmd := m.settingsView.Start()
		return m, cmd, true
	}
	return m, nil, false
}

func toggle(lang locale.Lang) locale.Lang {
	if lang == locale.Arabic {
		return locale.English
	}
	return locale.Arabic
}

func (m *Model) setLanguage(lang locale.Lang) {
	m.lang = lang
	strs := locale.For(lang)
	m.taskList.SetStrings(strs)
	m.detailView.SetStrings(strs)
	m.companionView.SetLanguage(lang)
	m.svc.Checker.SetLanguage(lang)
	m.refreshTasks()
}

// applySettings adopts a saved configuration. Language, bell and task
// defaults change immediately; mail and AI settings need a restart.
func (m Model) applySettings(msg settings.SavedMsg) (tea.Model, tea.Cmd) {
	m.currentView = ViewList
	if msg.Err != nil {
		m.flash = "Settings not saved: " + msg.Err.Error()
		cmd := m.nextPrompt()
		return m, cmd
	}

	*m.svc.Config = *msg.Config
	cfg := m.svc.Config
	m.svc.Bell.SetEnabled(cfg.Reminder.Bell)
	m.taskForm = taskform.New(cfg.Tasks.DefaultDurationMinutes, m.layout.Width, m.layout.ContentHeight())
	m.setLanguage(locale.Parse(cfg.Display.Language))
	m.flash = "Settings saved to " + m.svc.ConfigPath

	cmd := m.nextPrompt()
	return m, cmd
}

// quit cancels in-flight work and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	if m.svc.Poller != nil {
		m.svc.Poller.Stop()
	}
	return m, tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewTaskCreate:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewProof:
		m.proofForm, cmd = m.proofForm.Update(msg)
	case ViewCompanion:
		m.companionView, cmd = m.companionView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// refreshTasks rebuilds the list from the tracker.
func (m *Model) refreshTasks() {
	now := m.svc.Clock.Now()
	m.taskList.SetClock(now)
	m.taskList.SetTasks(m.svc.Tracker.Tasks(), model.DateOf(now))
	if m.currentView == ViewDetail {
		if task, ok := m.svc.Tracker.Get(m.detailView.TaskID()); ok {
			m.detailView.Refresh(task)
		}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	strs := locale.For(m.lang)
	header := m.layout.RenderHeader("focusproof", ui.StatsLine(m.svc.Tracker.Stats(), strs))
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.flash)

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewTaskCreate:
		return m.taskForm.View()
	case ViewProof:
		return m.proofForm.View()
	case ViewCompanion:
		return m.companionView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return m.taskList.View()
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCompanion:
		return "enter send | esc close"
	case ViewDetail:
		return "j/k scroll | esc back"
	case ViewTaskCreate, ViewProof, ViewSettings:
		return "enter submit | esc cancel"
	default:
		hints := "q quit | ? help | n new | s start | p proof | i details | c Yahya"
		if m.svc.Poller != nil {
			hints += " | r mailbox"
		}
		return hints
	}
}
