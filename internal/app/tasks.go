package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
	appsync "github.com/nhle/focusproof/internal/sync"
	"github.com/nhle/focusproof/internal/tracker"
	"github.com/nhle/focusproof/internal/ui/proofform"
	"github.com/nhle/focusproof/internal/ui/taskform"
	"github.com/nhle/focusproof/internal/verify"
)

const (
	verifyTimeout  = 2 * time.Minute
	mailboxTimeout = time.Minute
)

// verifiedMsg carries the judge's verdict for a claimed proof.
type verifiedMsg struct {
	taskID   string
	result   model.VerificationResult
	proofURL string
}

// mailboxProofMsg carries the result of an on-demand mailbox lookup.
type mailboxProofMsg struct {
	task  model.Task
	proof proof.Proof
	err   error
}

// avatarRequestMsg asks for an avatar for mood.
type avatarRequestMsg struct {
	mood model.Mood
}

// avatarMsg carries a generated avatar.
type avatarMsg struct {
	mood model.Mood
	img  []byte
	err  error
}

func (m Model) addTask(msg taskform.SubmittedMsg) (tea.Model, tea.Cmd) {
	task, err := m.svc.Tracker.AddTask(m.ctx, msg.Task)
	if errors.Is(err, tracker.ErrEmptyTitle) {
		m.flash = "A task needs a title."
		return m, nil
	}
	if err != nil {
		m.flash = err.Error()
		return m, nil
	}

	m.flash = fmt.Sprintf("Added %q (%d min)", task.Title, task.DurationMinutes)
	m.refreshTasks()
	cmd := m.nextPrompt()
	return m, cmd
}

func (m Model) startTask(id string) (Model, tea.Cmd) {
	task, ok := m.svc.Tracker.Start(m.ctx, id)
	if !ok {
		m.flash = "Only tasks that have not started can be started."
		return m, nil
	}

	m.flash = fmt.Sprintf("%s: %d min on the clock", task.Title, task.DurationMinutes)
	m.refreshTasks()

	var cmd tea.Cmd
	if m.svc.Companion.Reset() {
		cmd = m.generateAvatar(m.svc.Companion.Mood())
	}
	m.companionView.Refresh()
	return m, cmd
}

// handleTick advances countdowns, moves expired tasks to VERIFYING, and
// fires due reminders. The tick only wakes the loop; time comes from the
// services clock, the same one that stamps start times.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	now := m.svc.Clock.Now()
	m.timers.Sync(m.svc.Tracker.Tasks())
	remaining, fired := m.timers.Tick(now)

	for _, id := range fired {
		if _, ok := m.svc.Tracker.OnTimeUp(m.ctx, id); ok {
			m.proofQueue = append(m.proofQueue, id)
		}
	}

	if due := m.svc.Checker.Check(m.ctx, now); len(due) > 0 {
		last := due[len(due)-1]
		m.flash = last.Title + ": " + last.Body
	}

	m.taskList.SetRemaining(remaining)
	m.refreshTasks()

	prompt := m.nextPrompt()
	return m, tea.Batch(m.tickCmd(), prompt)
}

// openProof shows the proof prompt for task.
func (m *Model) openProof(task model.Task) tea.Cmd {
	m.currentView = ViewProof
	return m.proofForm.Start(task)
}

// nextPrompt opens the proof prompt for the next queued task still waiting
// for proof. Nothing happens while a form is open.
func (m *Model) nextPrompt() tea.Cmd {
	switch m.currentView {
	case ViewTaskCreate, ViewProof, ViewSettings:
		return nil
	}
	for len(m.proofQueue) > 0 {
		id := m.proofQueue[0]
		m.proofQueue = m.proofQueue[1:]

		task, ok := m.svc.Tracker.Get(id)
		if ok && task.Status == model.StatusVerifying {
			return m.openProof(task)
		}
	}
	return nil
}

func (m Model) handleProofFile(msg proofform.SubmittedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.flash = msg.Err.Error()
		task, ok := m.svc.Tracker.Get(msg.TaskID)
		if !ok || task.Status != model.StatusVerifying {
			m.currentView = ViewList
			return m, nil
		}
		cmd := m.openProof(task)
		return m, cmd
	}

	m.currentView = ViewList
	cmd := m.submitProof(msg.TaskID, msg.Proof, true)
	next := m.nextPrompt()
	return m, tea.Batch(cmd, next)
}

// submitProof claims the task and sends p to the judge. A task that is no
// longer waiting, or whose proof is already with the judge, is left alone.
func (m *Model) submitProof(taskID string, p proof.Proof, report bool) tea.Cmd {
	task, ok := m.svc.Tracker.ClaimProof(taskID)
	if !ok {
		if report {
			m.flash = "This task's proof has already been submitted."
		}
		return nil
	}
	m.flash = fmt.Sprintf("Judging proof for %q...", task.Title)
	return m.verifyCmd(task, p)
}

func (m *Model) verifyCmd(task model.Task, p proof.Proof) tea.Cmd {
	ctx, cancel := context.WithTimeout(m.ctx, verifyTimeout)
	gw := m.svc.Gateway
	req := verify.Request{
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		Image:           p.DataURL,
		MIMEType:        p.MIMEType,
	}
	return func() tea.Msg {
		defer cancel()
		return verifiedMsg{
			taskID:   task.ID,
			result:   gw.Verify(ctx, req),
			proofURL: p.DataURL,
		}
	}
}

func (m Model) handleVerified(msg verifiedMsg) (tea.Model, tea.Cmd) {
	// A verdict produced by cancelling on quit is not a verdict.
	if m.ctx.Err() != nil {
		return m, nil
	}

	task, ok := m.svc.Tracker.Finalize(m.ctx, msg.taskID, msg.result, msg.proofURL)
	if !ok {
		return m, nil
	}

	strs := locale.For(m.lang)
	m.flash = fmt.Sprintf("%s %+d: %s", strs.StatusLabel(task.Status), msg.result.PointsAdjustment, msg.result.Explanation)
	m.refreshTasks()

	var cmd tea.Cmd
	if m.svc.Companion.OnVerdict(msg.result) {
		cmd = m.generateAvatar(m.svc.Companion.Mood())
	}
	m.companionView.Refresh()
	return m, cmd
}

func (m Model) handleMailboxRequest(msg proofform.MailboxRequestedMsg) (tea.Model, tea.Cmd) {
	m.currentView = ViewList
	if m.svc.Mailbox == nil {
		return m, nil
	}

	task, ok := m.svc.Tracker.ClaimProof(msg.TaskID)
	if !ok {
		m.flash = "This task's proof has already been submitted."
		cmd := m.nextPrompt()
		return m, cmd
	}

	m.flash = "Looking for " + proof.Tag(task.ID) + " in the mailbox..."
	ctx, cancel := context.WithTimeout(m.ctx, mailboxTimeout)
	mailbox := m.svc.Mailbox
	find := func() tea.Msg {
		defer cancel()
		p, err := mailbox.Find(ctx, task)
		return mailboxProofMsg{task: task, proof: p, err: err}
	}
	next := m.nextPrompt()
	return m, tea.Batch(find, next)
}

func (m Model) handleMailboxProof(msg mailboxProofMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.svc.Tracker.ReleaseProof(msg.task.ID)
		if errors.Is(msg.err, proof.ErrNoProof) {
			m.flash = "No mailed proof yet for " + proof.Tag(msg.task.ID) + ". Press p to try again."
		} else {
			m.flash = "Mailbox: " + msg.err.Error()
		}
		return m, nil
	}
	cmd := m.verifyCmd(msg.task, msg.proof)
	m.flash = fmt.Sprintf("Judging mailed proof for %q...", msg.task.Title)
	return m, cmd
}

func (m Model) handlePollResult(msg appsync.PollResultMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.svc.Poller.WaitForNextResult()}

	if msg.Error != nil {
		m.flash = "Mailbox: " + msg.Error.Error()
	}
	for _, found := range msg.Found {
		if m.currentView == ViewProof && m.proofForm.TaskID() == found.TaskID {
			m.currentView = ViewList
		}
		cmds = append(cmds, m.submitProof(found.TaskID, found.Proof, false))
	}
	return m, tea.Batch(cmds...)
}

// generateAvatar starts rendering an avatar for mood.
func (m *Model) generateAvatar(mood model.Mood) tea.Cmd {
	c := m.svc.Companion
	if !c.CanGenerateAvatars() {
		return nil
	}
	m.avatarJobs++
	m.companionView.SetGenerating(true)

	ctx := m.ctx
	return func() tea.Msg {
		img, err := c.GenerateAvatar(ctx, mood)
		return avatarMsg{mood: mood, img: img, err: err}
	}
}

func (m Model) handleAvatar(msg avatarMsg) (tea.Model, tea.Cmd) {
	m.avatarJobs = max(m.avatarJobs-1, 0)
	if m.avatarJobs == 0 {
		m.companionView.SetGenerating(false)
	}

	if msg.err != nil {
		m.svc.Logger.Warn().Err(msg.err).Str("mood", string(msg.mood)).Msg("avatar generation failed")
	} else if m.ctx.Err() == nil {
		m.svc.Companion.ApplyAvatar(m.ctx, msg.mood, msg.img)
	}
	m.companionView.Refresh()
	return m, nil
}
