// Package sync polls the proof mailbox in the background and delivers
// found proofs to the Bubble Tea event loop.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller's last known state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// ProofFound pairs a task with a proof mailed for it.
type ProofFound struct {
	TaskID string
	Proof  proof.Proof
}

// PollResultMsg is a tea.Msg sent when a poll completes.
type PollResultMsg struct {
	Found   []ProofFound
	Checked int
	Error   error
}

// fetchTimeout is the maximum time allowed for a single poll.
const fetchTimeout = 60 * time.Second

// Finder looks up proofs for a set of tasks.
type Finder interface {
	FindAll(ctx context.Context, tasks []model.Task) (map[string]proof.Proof, error)
}

// TaskSource lists the current tasks.
type TaskSource interface {
	Tasks() []model.Task
}

// Poller periodically checks the mailbox for proofs of VERIFYING tasks.
type Poller struct {
	finder    Finder
	tasks     TaskSource
	interval  time.Duration
	status    SyncStatus
	resultCh  chan PollResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	logger    zerolog.Logger
}

// New creates a Poller. A non-positive interval defaults to one minute.
func New(f Finder, tasks TaskSource, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		finder:    f,
		tasks:     tasks,
		interval:  interval,
		resultCh:  make(chan PollResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		logger:    logger.With().Str("component", "poller").Logger(),
	}
}

// Start launches the polling goroutine and returns a command that waits
// for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already pending.
	}
}

// Status returns the current poll status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll runs one lookup for every VERIFYING task.
func (p *Poller) poll() {
	var waiting []model.Task
	for _, t := range p.tasks.Tasks() {
		if t.Status == model.StatusVerifying {
			waiting = append(waiting, t)
		}
	}
	if len(waiting) == 0 {
		return
	}

	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	found, err := p.finder.FindAll(ctx, waiting)
	if err != nil {
		p.logger.Warn().Err(err).Int("tasks", len(waiting)).Msg("mailbox poll failed")
		p.setStatus(SyncError, err)
	} else {
		p.setStatus(SyncIdle, nil)
	}

	msg := PollResultMsg{Checked: len(waiting), Error: err}
	for _, t := range waiting {
		if pr, ok := found[t.ID]; ok {
			msg.Found = append(msg.Found, ProofFound{TaskID: t.ID, Proof: pr})
		}
	}
	if len(msg.Found) > 0 || err != nil {
		p.sendResult(msg)
	}
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(msg PollResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call it after handling a PollResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
