// Package countdown derives remaining time for ACTIVE tasks from their
// start time and the clock, and detects the moment a countdown expires.
package countdown

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/model"
)

var (
	// ErrMissingStartTime means an ACTIVE task has no start time.
	ErrMissingStartTime = errors.New("active task has no start time")

	// ErrNotActive means a timer was requested for a task that is not ACTIVE.
	ErrNotActive = errors.New("task is not active")
)

// Remaining returns whole seconds left on the task's countdown.
// Tasks that are not ACTIVE, or lack a start time, report the full duration.
func Remaining(task model.Task, now time.Time) int {
	total := task.DurationMinutes * 60
	if task.Status != model.StatusActive || task.StartTime == nil {
		return total
	}
	return remaining(*task.StartTime, task.Duration(), now)
}

func remaining(start time.Time, d time.Duration, now time.Time) int {
	left := start.Add(d).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Progress returns the fraction of the countdown still remaining, in [0, 1].
func Progress(task model.Task, now time.Time) float64 {
	total := task.DurationMinutes * 60
	if total <= 0 {
		return 0
	}
	p := float64(Remaining(task, now)) / float64(total)
	return min(max(p, 0), 1)
}

// Format renders seconds as m:ss.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Timer tracks one ACTIVE episode of a task.
type Timer struct {
	taskID   string
	start    time.Time
	duration time.Duration
	last     int
	fired    bool
}

// New creates a timer for an ACTIVE task.
func New(task model.Task) (*Timer, error) {
	if task.Status != model.StatusActive {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrNotActive)
	}
	if task.StartTime == nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrMissingStartTime)
	}
	return &Timer{
		taskID:   task.ID,
		start:    *task.StartTime,
		duration: task.Duration(),
		last:     int(task.Duration() / time.Second),
	}, nil
}

// TaskID returns the id of the task this timer belongs to.
func (t *Timer) TaskID() string { return t.taskID }

// Tick returns the remaining seconds at now. fire is true exactly once,
// on the first tick that observes zero. The remaining value never
// increases, even if the wall clock steps backwards.
func (t *Timer) Tick(now time.Time) (int, bool) {
	r := min(remaining(t.start, t.duration, now), t.last)
	t.last = r

	if r == 0 && !t.fired {
		t.fired = true
		return 0, true
	}
	return r, false
}

// Fired reports whether the timer has already expired.
func (t *Timer) Fired() bool { return t.fired }

// Set keeps one Timer per ACTIVE task.
type Set struct {
	timers map[string]*Timer
	broken map[string]bool
	logger zerolog.Logger
}

// NewSet returns an empty Set.
func NewSet(logger zerolog.Logger) *Set {
	return &Set{
		timers: make(map[string]*Timer),
		broken: make(map[string]bool),
		logger: logger.With().Str("component", "countdown").Logger(),
	}
}

// Sync creates timers for tasks that entered ACTIVE and drops timers for
// tasks that left it. A task restarted with a new start time gets a new timer.
func (s *Set) Sync(tasks []model.Task) {
	active := make(map[string]bool, len(tasks))

	for _, task := range tasks {
		if task.Status != model.StatusActive {
			continue
		}
		active[task.ID] = true

		if tm, ok := s.timers[task.ID]; ok {
			if task.StartTime != nil && tm.start.Equal(*task.StartTime) {
				continue
			}
		}

		tm, err := New(task)
		if err != nil {
			if !s.broken[task.ID] {
				s.logger.Error().Err(err).Str("task", task.ID).Msg("cannot track countdown")
				s.broken[task.ID] = true
			}
			delete(s.timers, task.ID)
			continue
		}
		delete(s.broken, task.ID)
		s.timers[task.ID] = tm
	}

	for id := range s.timers {
		if !active[id] {
			delete(s.timers, id)
		}
	}
	for id := range s.broken {
		if !active[id] {
			delete(s.broken, id)
		}
	}
}

// Tick advances every timer to now. It returns the remaining seconds per
// task and the ids whose countdown expired on this tick.
func (s *Set) Tick(now time.Time) (map[string]int, []string) {
	left := make(map[string]int, len(s.timers))
	var expired []string

	for id, tm := range s.timers {
		r, fire := tm.Tick(now)
		left[id] = r
		if fire {
			expired = append(expired, id)
		}
	}
	return left, expired
}

// Len returns the number of tracked timers.
func (s *Set) Len() int { return len(s.timers) }
