package reminder

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r Reminder) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, r Reminder) error { return f(ctx, r) }

// Multi fans a reminder out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers r to all notifiers, even when some fail.
func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes reminders to a logger.
type Log struct {
	Logger zerolog.Logger
}

// Notify logs r at info level.
func (l Log) Notify(_ context.Context, r Reminder) error {
	l.Logger.Info().Str("task", r.TaskID).Str("title", r.Title).Msg(r.Body)
	return nil
}

// Cue is an audible event.
type Cue int

const (
	CueReminder Cue = iota
	CueTimeUp
	CueSuccess
)

// Bell rings the terminal bell. The zero value is silent.
type Bell struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer, enabled bool) *Bell {
	return &Bell{w: w, enabled: enabled}
}

// Play rings the bell for cue. Time-up rings twice.
func (b *Bell) Play(cue Cue) {
	if b == nil {
		return
	}
	n := 1
	if cue == CueTimeUp {
		n = 2
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled || b.w == nil {
		return
	}
	_, _ = io.WriteString(b.w, strings.Repeat("\a", n))
}

// SetEnabled turns the bell on or off.
func (b *Bell) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
}

// Notify rings the reminder cue.
func (b *Bell) Notify(_ context.Context, _ Reminder) error {
	b.Play(CueReminder)
	return nil
}

// asyncTimeout bounds background deliveries.
const asyncTimeout = time.Minute

// Async delivers through n on a background goroutine so slow transports
// never block the event loop. Errors are logged.
type Async struct {
	n      Notifier
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewAsync wraps n.
func NewAsync(n Notifier, logger zerolog.Logger) *Async {
	return &Async{n: n, logger: logger.With().Str("component", "reminder").Logger()}
}

// Notify starts delivery and returns immediately.
func (a *Async) Notify(ctx context.Context, r Reminder) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncTimeout)
		defer cancel()

		if err := a.n.Notify(ctx, r); err != nil {
			a.logger.Warn().Err(err).Str("task", r.TaskID).Msg("background reminder delivery failed")
		}
	}()
	return nil
}

// Wait blocks until pending deliveries finish.
func (a *Async) Wait() { a.wg.Wait() }
