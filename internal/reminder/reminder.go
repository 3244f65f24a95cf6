// Package reminder fires a one-time notification for each task on the day
// it is scheduled.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
)

// Reminder is a notification about a task scheduled for today.
type Reminder struct {
	TaskID string
	Title  string
	Body   string
	Date   model.Date
}

// New builds the localized reminder for task on date.
func New(task model.Task, date model.Date, lang locale.Lang) Reminder {
	text := locale.For(lang)
	return Reminder{
		TaskID: task.ID,
		Title:  text.ReminderTitle,
		Body:   fmt.Sprintf(text.ReminderBody, task.Title),
		Date:   date,
	}
}

// Tasks is the slice of the tracker the checker needs.
type Tasks interface {
	Tasks() []model.Task
	MarkNotified(ctx context.Context, ids []string, forDate model.Date) int
}

// Recorder keeps a log of fired reminders.
type Recorder interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

// Checker scans for due tasks on every tick.
type Checker struct {
	tasks    Tasks
	notifier Notifier
	recorder Recorder
	lang     locale.Lang
	logger   zerolog.Logger
}

// NewChecker creates a Checker. recorder may be nil.
func NewChecker(
	tasks Tasks,
	notifier Notifier,
	recorder Recorder,
	lang locale.Lang,
	logger zerolog.Logger,
) *Checker {
	return &Checker{
		tasks:    tasks,
		notifier: notifier,
		recorder: recorder,
		lang:     lang,
		logger:   logger.With().Str("component", "reminder").Logger(),
	}
}

// SetLanguage changes the language of future reminders.
func (c *Checker) SetLanguage(lang locale.Lang) { c.lang = lang }

// Check notifies every task scheduled exactly for now's calendar date that
// has not been notified yet, then marks them notified. Tasks dated in the
// past are never reminded.
func (c *Checker) Check(ctx context.Context, now time.Time) []Reminder {
	today := model.DateOf(now)

	var (
		due []Reminder
		ids []string
	)
	for _, task := range c.tasks.Tasks() {
		if task.Notified || task.ScheduledDate == nil || !task.ScheduledDate.Equal(today) {
			continue
		}
		due = append(due, New(task, today, c.lang))
		ids = append(ids, task.ID)
	}
	if len(due) == 0 {
		return nil
	}

	for _, r := range due {
		if c.notifier != nil {
			if err := c.notifier.Notify(ctx, r); err != nil {
				c.logger.Warn().Err(err).Str("task", r.TaskID).Msg("delivering reminder")
			}
		}
		c.record(ctx, r, now)
	}

	marked := c.tasks.MarkNotified(ctx, ids, today)
	c.logger.Info().Int("due", len(due)).Int("marked", marked).Str("date", today.String()).Msg("reminders fired")
	return due
}

func (c *Checker) record(ctx context.Context, r Reminder, now time.Time) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.CreateNotification(ctx, model.Notification{
		TaskID:    r.TaskID,
		ForDate:   r.Date,
		Title:     r.Title,
		Message:   r.Body,
		CreatedAt: now,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("task", r.TaskID).Msg("recording reminder")
	}
}
