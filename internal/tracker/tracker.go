// Package tracker owns the task collection and the points aggregate, and
// guards every lifecycle transition:
//
//	PENDING -> ACTIVE -> VERIFYING -> COMPLETED | FAILED
//
// All transitions are re-checked against the current status under the
// tracker lock, so stale or duplicate requests are silent no-ops.
package tracker

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/clock"
	"github.com/nhle/focusproof/internal/model"
)

// ErrEmptyTitle is returned by AddTask when the title is blank.
var ErrEmptyTitle = errors.New("task title must not be empty")

// Persister loads and saves whole-state snapshots.
type Persister interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	LoadStats(ctx context.Context) (model.UserStats, error)
	SaveSnapshot(ctx context.Context, tasks []model.Task, stats model.UserStats) error
}

// NewTask holds the user-supplied fields for AddTask.
type NewTask struct {
	Title           string
	Description     string
	DurationMinutes int
	ScheduledDate   *model.Date
}

// Groups is the display partition of the task collection.
type Groups struct {
	Today    []model.Task
	Upcoming []model.Task
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDefaultDuration sets the duration used when a task is added without
// a positive one.
func WithDefaultDuration(minutes int) Option {
	return func(t *Tracker) {
		if minutes > 0 {
			t.defaultDuration = minutes
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// Tracker is the single owner of task and stats state.
type Tracker struct {
	mu      sync.Mutex
	tasks   []model.Task // newest first
	stats   model.UserStats
	claimed map[string]bool

	persister       Persister
	clock           clock.Clock
	logger          zerolog.Logger
	defaultDuration int
	newID           func() string

	hookMu      sync.RWMutex
	onVerifying []func(model.Task)
	onFinalized []func(model.Task, model.VerificationResult)
}

// New creates an empty Tracker. Call Load to restore persisted state.
func New(p Persister, c clock.Clock, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		claimed:         make(map[string]bool),
		persister:       p,
		clock:           c,
		logger:          logger.With().Str("component", "tracker").Logger(),
		defaultDuration: model.DefaultDurationMinutes,
		newID:           func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnVerifying registers fn to run after a task enters VERIFYING.
func (t *Tracker) OnVerifying(fn func(model.Task)) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	t.onVerifying = append(t.onVerifying, fn)
}

// OnFinalized registers fn to run after a verdict has been applied.
func (t *Tracker) OnFinalized(fn func(model.Task, model.VerificationResult)) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	t.onFinalized = append(t.onFinalized, fn)
}

// Load replaces the in-memory state with the persisted snapshot.
// Records that violate the data invariants are kept but logged.
func (t *Tracker) Load(ctx context.Context) error {
	tasks, err := t.persister.LoadTasks(ctx)
	if err != nil {
		return err
	}
	stats, err := t.persister.LoadStats(ctx)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			t.logger.Error().Err(err).Msg("loaded task violates invariants")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = tasks
	t.stats = stats
	t.claimed = make(map[string]bool)
	return nil
}

// AddTask creates a PENDING task at the head of the collection.
func (t *Tracker) AddTask(ctx context.Context, in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		duration = t.defaultDuration
	}

	task := model.Task{
		ID:              t.newID(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		DurationMinutes: duration,
		Status:          model.StatusPending,
		CreatedAt:       t.clock.Now(),
	}
	if in.ScheduledDate != nil {
		d := *in.ScheduledDate
		task.ScheduledDate = &d
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks = append([]model.Task{task}, t.tasks...)
	t.saveLocked(ctx)

	t.logger.Info().Str("task", task.ID).Int("duration", duration).Msg("task added")
	return task.Clone(), nil
}

// Start moves a PENDING task to ACTIVE and stamps its start time.
func (t *Tracker) Start(ctx context.Context, id string) (model.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(id)
	if i < 0 || t.tasks[i].Status != model.StatusPending {
		t.logIgnored(id, i, "start")
		return model.Task{}, false
	}

	now := t.clock.Now()
	t.tasks[i].Status = model.StatusActive
	t.tasks[i].StartTime = &now
	t.saveLocked(ctx)

	t.logger.Info().Str("task", id).Time("start", now).Msg("task started")
	return t.tasks[i].Clone(), true
}

// OnTimeUp moves an ACTIVE task to VERIFYING. It reports true only when
// the transition happened, so repeated expiry events fire side effects once.
func (t *Tracker) OnTimeUp(ctx context.Context, id string) (model.Task, bool) {
	t.mu.Lock()
	i := t.indexLocked(id)
	if i < 0 || t.tasks[i].Status != model.StatusActive {
		t.logIgnored(id, i, "time up")
		t.mu.Unlock()
		return model.Task{}, false
	}

	t.tasks[i].Status = model.StatusVerifying
	t.saveLocked(ctx)
	task := t.tasks[i].Clone()
	t.mu.Unlock()

	t.logger.Info().Str("task", id).Msg("time up, awaiting proof")

	t.hookMu.RLock()
	hooks := slices.Clone(t.onVerifying)
	t.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(task.Clone())
	}

	return task, true
}

// ClaimProof reserves the proof submission for a VERIFYING task.
// At most one claim is outstanding per task.
func (t *Tracker) ClaimProof(id string) (model.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(id)
	if i < 0 || t.tasks[i].Status != model.StatusVerifying || t.claimed[id] {
		t.logIgnored(id, i, "proof claim")
		return model.Task{}, false
	}

	t.claimed[id] = true
	return t.tasks[i].Clone(), true
}

// ReleaseProof drops an outstanding claim without a verdict.
func (t *Tracker) ReleaseProof(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.claimed, id)
}

// Finalize applies a verdict to a VERIFYING task and folds its points into
// the stats in the same critical section. Any other status is a no-op.
func (t *Tracker) Finalize(
	ctx context.Context,
	id string,
	verdict model.VerificationResult,
	proofImageURL string,
) (model.Task, bool) {
	t.mu.Lock()
	i := t.indexLocked(id)
	if i < 0 || t.tasks[i].Status != model.StatusVerifying {
		t.logIgnored(id, i, "finalize")
		t.mu.Unlock()
		return model.Task{}, false
	}

	task := &t.tasks[i]
	points := verdict.PointsAdjustment
	feedback := verdict.Explanation
	proof := proofImageURL

	task.ProofImageURL = &proof
	task.PointsEarned = &points
	task.AIFeedback = &feedback

	t.stats.Points += points
	if verdict.IsSuccessful {
		task.Status = model.StatusCompleted
		t.stats.CompletedCount++
	} else {
		task.Status = model.StatusFailed
		t.stats.FailedCount++
	}
	delete(t.claimed, id)

	t.saveLocked(ctx)
	out := task.Clone()
	t.mu.Unlock()

	t.logger.Info().
		Str("task", id).
		Str("status", string(out.Status)).
		Int("points", points).
		Msg("task finalized")

	t.hookMu.RLock()
	hooks := slices.Clone(t.onFinalized)
	t.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(out.Clone(), verdict)
	}

	return out, true
}

// MarkNotified sets the notified flag on the given tasks scheduled for
// forDate. Tasks already notified are skipped. It returns how many
// tasks changed.
func (t *Tracker) MarkNotified(ctx context.Context, ids []string, forDate model.Date) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := 0
	for _, id := range ids {
		i := t.indexLocked(id)
		if i < 0 {
			continue
		}
		task := &t.tasks[i]
		if task.Notified || task.ScheduledDate == nil || *task.ScheduledDate != forDate {
			continue
		}
		task.Notified = true
		changed++
	}

	if changed > 0 {
		t.saveLocked(ctx)
	}
	return changed
}

// Tasks returns a copy of the collection, newest first.
func (t *Tracker) Tasks() []model.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cloneTasksLocked()
}

// Get returns a copy of the task with the given id.
func (t *Tracker) Get(id string) (model.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(id)
	if i < 0 {
		return model.Task{}, false
	}
	return t.tasks[i].Clone(), true
}

// Stats returns the current aggregate.
func (t *Tracker) Stats() model.UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Snapshot returns tasks and stats read under one lock.
func (t *Tracker) Snapshot() ([]model.Task, model.UserStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cloneTasksLocked(), t.stats
}

// Group partitions the collection relative to today. Tasks without a
// date, or dated today or earlier, are in Today. Upcoming is ordered by
// date; Today keeps collection order.
func (t *Tracker) Group(today model.Date) Groups {
	return GroupTasks(t.Tasks(), today)
}

// GroupTasks partitions tasks the same way Group does.
func GroupTasks(tasks []model.Task, today model.Date) Groups {
	var g Groups
	for _, task := range tasks {
		if task.ScheduledDate != nil && task.ScheduledDate.After(today) {
			g.Upcoming = append(g.Upcoming, task)
			continue
		}
		g.Today = append(g.Today, task)
	}

	slices.SortStableFunc(g.Upcoming, func(a, b model.Task) int {
		switch {
		case a.ScheduledDate.Before(*b.ScheduledDate):
			return -1
		case a.ScheduledDate.After(*b.ScheduledDate):
			return 1
		}
		return 0
	})
	return g
}

func (t *Tracker) indexLocked(id string) int {
	return slices.IndexFunc(t.tasks, func(task model.Task) bool {
		return task.ID == id
	})
}

func (t *Tracker) cloneTasksLocked() []model.Task {
	out := make([]model.Task, len(t.tasks))
	for i, task := range t.tasks {
		out[i] = task.Clone()
	}
	return out
}

// saveLocked writes the snapshot. Failures are logged; the in-memory
// state is authoritative for the rest of the session.
func (t *Tracker) saveLocked(ctx context.Context) {
	if t.persister == nil {
		return
	}
	if err := t.persister.SaveSnapshot(ctx, t.cloneTasksLocked(), t.stats); err != nil {
		t.logger.Error().Err(err).Msg("saving snapshot")
	}
}

func (t *Tracker) logIgnored(id string, i int, op string) {
	ev := t.logger.Debug().Str("task", id).Str("op", op)
	if i < 0 {
		ev.Msg("unknown task, ignoring")
		return
	}
	ev.Str("status", string(t.tasks[i].Status)).Msg("stale transition, ignoring")
}
